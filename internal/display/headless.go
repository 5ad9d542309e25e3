package display

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var errSurfaceDestroyed = errors.New("surface destroyed")

// Headless is an in-memory backend. It keeps the latest frame of every
// surface and can write PNG previews, which makes it useful both on hosts
// without a native backend and in tests, where monitors, topology changes
// and failures are injected by the caller.
type Headless struct {
	// PreviewDir, when set, receives surface-<n>.png with each presented frame.
	PreviewDir string

	// QuitOnDestroy posts an EventQuit whenever a surface is destroyed,
	// mimicking window managers that emit a quit while tearing windows down.
	QuitOnDestroy bool

	mu          sync.Mutex
	monitors    []image.Rectangle
	failCreate  map[image.Rectangle]bool
	presentErr  error
	live        []*HeadlessSurface
	nextID      int
	created     int
	destroyed   int
	timerStop   chan struct{}
	timerTarget *HeadlessSurface

	events chan Event
}

// NewHeadless returns a backend reporting the given monitor rectangles.
func NewHeadless(monitors ...image.Rectangle) *Headless {
	return &Headless{
		monitors:   append([]image.Rectangle(nil), monitors...),
		failCreate: make(map[image.Rectangle]bool),
		events:     make(chan Event, 64),
	}
}

// Open implements Backend.
func (h *Headless) Open() error {
	if h.PreviewDir != "" {
		if err := os.MkdirAll(h.PreviewDir, 0o755); err != nil {
			return fmt.Errorf("failed to create preview dir: %w", err)
		}
	}
	return nil
}

// Monitors implements Backend.
func (h *Headless) Monitors() ([]Monitor, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Monitor, len(h.monitors))
	for i, r := range h.monitors {
		out[i] = Monitor{Index: i, Bounds: r}
	}
	return out, nil
}

// CreateSurface implements Backend.
func (h *Headless) CreateSurface(bounds image.Rectangle, opts SurfaceOptions) (Surface, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.failCreate[bounds] {
		return nil, fmt.Errorf("failed to create surface at %v: injected failure", bounds)
	}
	if bounds.Empty() {
		return nil, fmt.Errorf("failed to create surface at %v: empty bounds", bounds)
	}

	s := &HeadlessSurface{
		backend: h,
		id:      h.nextID,
		bounds:  bounds,
		opts:    opts,
	}
	h.nextID++
	h.created++
	h.live = append(h.live, s)
	return s, nil
}

// ArmTimer implements Backend. Ticks are coalesced when the event queue is
// full, like OS timer messages.
func (h *Headless) ArmTimer(s Surface, interval time.Duration) error {
	hs, ok := s.(*HeadlessSurface)
	if !ok {
		return fmt.Errorf("failed to arm timer: foreign surface %T", s)
	}
	if interval <= 0 {
		return fmt.Errorf("failed to arm timer: invalid interval %v", interval)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.stopTimerLocked()
	stop := make(chan struct{})
	h.timerStop = stop
	h.timerTarget = hs

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				h.emit(Event{Kind: EventTimer})
			}
		}
	}()
	return nil
}

func (h *Headless) stopTimerLocked() {
	if h.timerStop != nil {
		close(h.timerStop)
		h.timerStop = nil
		h.timerTarget = nil
	}
}

// WaitEvent implements Backend.
func (h *Headless) WaitEvent(timeout time.Duration) (Event, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ev := <-h.events:
		return ev, true
	case <-timer.C:
		return Event{}, false
	}
}

// Close implements Backend.
func (h *Headless) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopTimerLocked()
	return nil
}

// emit queues ev without blocking; it is used from the worker goroutine and
// the timer goroutine, neither of which may stall on a full queue.
func (h *Headless) emit(ev Event) {
	select {
	case h.events <- ev:
	default:
	}
}

// Post queues an event, blocking while the queue is full.
func (h *Headless) Post(ev Event) {
	h.events <- ev
}

// SetMonitors replaces the reported monitor set. Follow with a topology
// change event to have the coordinator pick it up.
func (h *Headless) SetMonitors(monitors ...image.Rectangle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.monitors = append([]image.Rectangle(nil), monitors...)
}

// FailSurfaceAt makes CreateSurface fail for the given bounds.
func (h *Headless) FailSurfaceAt(bounds image.Rectangle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failCreate[bounds] = true
}

// SetPresentError makes every Present return err until cleared with nil.
func (h *Headless) SetPresentError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.presentErr = err
}

// Live returns the surfaces that have not been destroyed, in creation order.
func (h *Headless) Live() []*HeadlessSurface {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*HeadlessSurface(nil), h.live...)
}

// Counts returns how many surfaces were created and destroyed in total.
func (h *Headless) Counts() (created, destroyed int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.created, h.destroyed
}

// TimerTarget returns the surface the periodic timer is armed on, if any.
func (h *Headless) TimerTarget() *HeadlessSurface {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.timerTarget
}

func (h *Headless) release(s *HeadlessSurface) {
	h.mu.Lock()
	for i, l := range h.live {
		if l == s {
			h.live = append(h.live[:i], h.live[i+1:]...)
			break
		}
	}
	if h.timerTarget == s {
		h.stopTimerLocked()
	}
	h.destroyed++
	quit := h.QuitOnDestroy
	h.mu.Unlock()

	if quit {
		h.emit(Event{Kind: EventQuit})
	}
}

// HeadlessSurface is a surface of the Headless backend.
type HeadlessSurface struct {
	backend *Headless
	id      int
	bounds  image.Rectangle
	opts    SurfaceOptions

	mu        sync.Mutex
	frame     *image.RGBA
	presents  int
	destroyed bool
}

// Present implements Surface. The stored frame is swapped in one step.
func (s *HeadlessSurface) Present(frame *image.RGBA) error {
	s.backend.mu.Lock()
	err := s.backend.presentErr
	dir := s.backend.PreviewDir
	s.backend.mu.Unlock()
	if err != nil {
		return err
	}
	if frame.Bounds().Size() != s.bounds.Size() {
		return fmt.Errorf("frame size %v does not match surface %v", frame.Bounds().Size(), s.bounds.Size())
	}

	cp := image.NewRGBA(frame.Bounds())
	copy(cp.Pix, frame.Pix)

	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return errSurfaceDestroyed
	}
	s.frame = cp
	s.presents++
	s.mu.Unlock()

	if dir != "" {
		return writePreview(filepath.Join(dir, fmt.Sprintf("surface-%d.png", s.id)), cp)
	}
	return nil
}

// Destroy implements Surface.
func (s *HeadlessSurface) Destroy() error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return nil
	}
	s.destroyed = true
	s.frame = nil
	s.mu.Unlock()

	s.backend.release(s)
	return nil
}

// Bounds returns the surface rectangle in desktop coordinates.
func (s *HeadlessSurface) Bounds() image.Rectangle {
	return s.bounds
}

// Options returns the options the surface was created with.
func (s *HeadlessSurface) Options() SurfaceOptions {
	return s.opts
}

// Frame returns the last presented frame, or nil.
func (s *HeadlessSurface) Frame() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

// Presents returns how many frames were presented successfully.
func (s *HeadlessSurface) Presents() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presents
}

// Destroyed reports whether Destroy has been called.
func (s *HeadlessSurface) Destroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

// writePreview writes img via a temp file and rename so readers never see a
// partial PNG.
func writePreview(path string, img image.Image) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".preview-*.png")
	if err != nil {
		return fmt.Errorf("failed to create preview: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode preview: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write preview: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to publish preview: %w", err)
	}
	return nil
}
