// Package watermark describes what gets stamped on the overlays and holds the
// payload helpers used to turn command-line input into stamp data.
package watermark

import "fmt"

// Mode selects the kind of stamp drawn on every surface.
type Mode int

const (
	// ModeNone draws nothing; surfaces stay fully transparent.
	ModeNone Mode = iota
	// ModeText draws the watermark string rotated at every grid anchor.
	ModeText
	// ModeImage draws a scaled image stamp at every grid anchor.
	ModeImage
)

// String returns the lowercase name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeText:
		return "text"
	case ModeImage:
		return "image"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Spec is the watermark configuration. It is built once before the
// coordinator starts and never mutated afterwards.
type Spec struct {
	Mode Mode

	// Text is the watermark string for ModeText.
	Text string

	// Image holds the raw (already base64-decoded) image bytes for ModeImage.
	// It may be empty or garbage; surfaces then render without an image.
	Image []byte

	// ExcludeFromCapture hides the overlays from screen capture and sharing.
	ExcludeFromCapture bool
}

// Validate reports a ConfigError when the spec asks for nothing at all.
// Privacy-only operation (ModeNone with ExcludeFromCapture) is valid.
func (s Spec) Validate() error {
	switch s.Mode {
	case ModeNone:
		if !s.ExcludeFromCapture {
			return &ConfigError{Reason: "no watermark content and capture exclusion not requested"}
		}
	case ModeText, ModeImage:
	default:
		return &ConfigError{Reason: fmt.Sprintf("unknown watermark mode %d", int(s.Mode))}
	}
	return nil
}
