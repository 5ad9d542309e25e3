//go:build !windows

package display

// NewNative returns the platform overlay backend.
func NewNative() (Backend, error) {
	return nil, ErrUnsupported
}
