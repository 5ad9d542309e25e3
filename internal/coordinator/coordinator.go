// Package coordinator runs the overlay event loop: one goroutine, locked to
// its OS thread, owns the display backend and every surface, and dispatches
// timer, topology and quit events until asked to stop.
package coordinator

import (
	"errors"
	"fmt"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/phinze/watermark/internal/display"
	"github.com/phinze/watermark/internal/metrics"
	"github.com/phinze/watermark/internal/overlay"
	"github.com/phinze/watermark/internal/render"
	"github.com/phinze/watermark/internal/watermark"
)

// Config holds the loop timings.
type Config struct {
	// RefreshInterval is the periodic timer armed on the first surface.
	RefreshInterval time.Duration

	// IdleInterval is the self-heal period: every surface is re-rendered
	// this often even if no timer event arrives. It also bounds how long
	// Stop waits for the loop to notice.
	IdleInterval time.Duration
}

// DefaultConfig returns the standard timings.
func DefaultConfig() Config {
	return Config{
		RefreshInterval: time.Second,
		IdleInterval:    500 * time.Millisecond,
	}
}

// ErrAlreadyStarted is returned when Start is called twice.
var ErrAlreadyStarted = errors.New("coordinator already started")

// Coordinator manages the overlay lifecycle on a dedicated thread.
type Coordinator struct {
	backend display.Backend
	config  Config
	metrics *metrics.Metrics

	// Owned by the worker goroutine.
	manager *overlay.Manager

	// Lifecycle
	stop atomic.Bool
	done chan struct{}
	mu   sync.Mutex
}

// New creates a coordinator for backend. m may be nil.
func New(backend display.Backend, config Config, m *metrics.Metrics) *Coordinator {
	def := DefaultConfig()
	if config.RefreshInterval <= 0 {
		config.RefreshInterval = def.RefreshInterval
	}
	if config.IdleInterval <= 0 {
		config.IdleInterval = def.IdleInterval
	}
	return &Coordinator{
		backend: backend,
		config:  config,
		metrics: m,
	}
}

// Start validates spec, launches the worker and returns once the initial
// surfaces are up and the loop is running. Configuration errors are
// reported before the worker starts.
func (c *Coordinator) Start(spec watermark.Spec) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done != nil {
		return ErrAlreadyStarted
	}

	renderer, err := render.New(spec)
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}

	c.done = make(chan struct{})
	ready := make(chan error, 1)
	go c.run(spec, renderer, ready)

	if err := <-ready; err != nil {
		<-c.done
		return err
	}
	return nil
}

// Stop asks the loop to exit and waits until the worker has torn down every
// surface. It is safe to call more than once, and before Start.
func (c *Coordinator) Stop() error {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done == nil {
		return nil
	}
	c.stop.Store(true)
	<-done
	return nil
}

// Done is closed when the worker has exited.
func (c *Coordinator) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// run is the worker. Surface APIs are thread-affine, so it stays on one OS
// thread for its whole life.
func (c *Coordinator) run(spec watermark.Spec, renderer *render.Renderer, ready chan<- error) {
	defer close(c.done)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := c.backend.Open(); err != nil {
		ready <- fmt.Errorf("failed to open display backend: %w", err)
		return
	}
	defer c.backend.Close()

	c.manager = overlay.NewManager(c.backend, renderer, spec, c.config.RefreshInterval, c.metrics)
	defer c.manager.Teardown()

	if err := c.manager.Create(); err != nil {
		ready <- err
		return
	}
	c.manager.RefreshAll()
	if err := c.manager.ArmTimer(); err != nil {
		log.Printf("Warning: %v", err)
	}

	log.Printf("Overlay loop running (mode=%s, capture exclusion=%v)", spec.Mode, spec.ExcludeFromCapture)
	ready <- nil

	c.loop()
	log.Println("Overlay loop stopped")
}

// loop waits for events with a deadline at the next self-heal tick. The stop
// flag is only checked between iterations, so a rebuild always completes.
func (c *Coordinator) loop() {
	nextIdle := time.Now().Add(c.config.IdleInterval)

	for !c.stop.Load() {
		if ev, ok := c.backend.WaitEvent(time.Until(nextIdle)); ok {
			c.dispatch(ev)
		}

		if !time.Now().Before(nextIdle) {
			c.manager.RefreshAll()
			nextIdle = time.Now().Add(c.config.IdleInterval)
		}
	}
}

// dispatch routes an event to its handler.
func (c *Coordinator) dispatch(ev display.Event) {
	switch ev.Kind {
	case display.EventTimer:
		c.onTimer()
	case display.EventTopologyChange:
		c.onTopologyChange()
	case display.EventQuit:
		c.onQuit()
	default:
		log.Printf("Ignoring unknown event %d", ev.Kind)
	}
}

func (c *Coordinator) onTimer() {
	c.manager.RefreshAll()
}

func (c *Coordinator) onTopologyChange() {
	log.Println("Display topology changed, rebuilding overlays")
	if err := c.manager.Rebuild(); err != nil {
		log.Printf("Warning: rebuild incomplete: %v", err)
	}
}

// onQuit discards OS quit requests. Destroying windows during a rebuild can
// produce one; only Stop ends the loop.
func (c *Coordinator) onQuit() {
	log.Println("Ignoring quit notification (display reconfiguration)")
	c.metrics.SpuriousQuit()
}
