// Package display abstracts the OS windowing and compositing layer: monitor
// enumeration, overlay surfaces, and the event source that drives the
// coordinator loop.
package display

import (
	"errors"
	"image"
	"time"
)

// ErrUnsupported is returned by NewNative on platforms without a native
// overlay backend.
var ErrUnsupported = errors.New("native overlay backend not supported on this platform")

// Monitor describes one physical display.
type Monitor struct {
	// Index is the enumeration order; 0 is the first monitor reported.
	Index int

	// Bounds is the monitor rectangle in virtual desktop coordinates.
	Bounds image.Rectangle
}

// SurfaceOptions configure a new overlay surface. Surfaces are always
// input-transparent, topmost and hidden from the taskbar.
type SurfaceOptions struct {
	// ExcludeFromCapture omits the surface from screen capture output.
	ExcludeFromCapture bool
}

// EventKind tags a backend event.
type EventKind int

const (
	// EventTimer fires for the periodic refresh timer.
	EventTimer EventKind = iota + 1
	// EventTopologyChange fires when monitors are added, removed or resized.
	EventTopologyChange
	// EventQuit is a termination request raised by the OS. Backends may emit
	// it incidentally while surfaces are destroyed.
	EventQuit
)

func (k EventKind) String() string {
	switch k {
	case EventTimer:
		return "timer"
	case EventTopologyChange:
		return "topology-change"
	case EventQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// Event is a single backend notification.
type Event struct {
	Kind EventKind
}

// Surface is a translucent overlay covering one monitor.
type Surface interface {
	// Present replaces the visible content with frame in one update.
	// frame is premultiplied RGBA sized to the surface bounds.
	Present(frame *image.RGBA) error

	// Destroy releases the OS surface. It is safe to call more than once.
	Destroy() error
}

// Backend is the OS windowing layer. All methods except those documented
// otherwise must be called from the goroutine that called Open, which must
// be locked to its OS thread.
type Backend interface {
	// Open prepares the backend on the calling thread.
	Open() error

	// Monitors returns the current display rectangles.
	Monitors() ([]Monitor, error)

	// CreateSurface creates and shows an overlay at bounds.
	CreateSurface(bounds image.Rectangle, opts SurfaceOptions) (Surface, error)

	// ArmTimer (re)starts the periodic timer on s. Only one timer is armed
	// at a time; arming again replaces the previous one.
	ArmTimer(s Surface, interval time.Duration) error

	// WaitEvent blocks until an event is available or timeout elapses.
	// ok is false on timeout.
	WaitEvent(timeout time.Duration) (ev Event, ok bool)

	// Close releases backend resources. Surfaces must be destroyed first.
	Close() error
}
