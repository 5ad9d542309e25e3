// Package overlay owns the per-monitor overlay surfaces: it creates them from
// the monitor topology, keeps their layout and image stamps, renders and
// presents frames, and tears everything down on rebuild or shutdown.
package overlay

import (
	"fmt"
	"image"
	"log"
	"time"

	"github.com/phinze/watermark/internal/display"
	"github.com/phinze/watermark/internal/layout"
	"github.com/phinze/watermark/internal/metrics"
	"github.com/phinze/watermark/internal/render"
	"github.com/phinze/watermark/internal/watermark"
)

// Manager owns the overlay surfaces. It is not safe for concurrent use;
// every method must run on the goroutine that opened the backend.
type Manager struct {
	backend  display.Backend
	renderer *render.Renderer
	spec     watermark.Spec
	refresh  time.Duration
	metrics  *metrics.Metrics

	surfaces []*Surface
}

// NewManager creates a manager with no surfaces. refresh is the periodic
// timer interval armed on the first surface.
func NewManager(backend display.Backend, renderer *render.Renderer, spec watermark.Spec, refresh time.Duration, m *metrics.Metrics) *Manager {
	return &Manager{
		backend:  backend,
		renderer: renderer,
		spec:     spec,
		refresh:  refresh,
		metrics:  m,
	}
}

// Surfaces returns the live surfaces in monitor order.
func (m *Manager) Surfaces() []*Surface {
	return append([]*Surface(nil), m.surfaces...)
}

// Create enumerates monitors and builds one surface per monitor. A monitor
// whose surface cannot be created is skipped. Create expects no live
// surfaces; call Teardown first.
func (m *Manager) Create() error {
	if len(m.surfaces) != 0 {
		return fmt.Errorf("create called with %d live surfaces", len(m.surfaces))
	}

	monitors, err := m.backend.Monitors()
	if err != nil {
		return fmt.Errorf("failed to enumerate monitors: %w", err)
	}

	opts := display.SurfaceOptions{ExcludeFromCapture: m.spec.ExcludeFromCapture}
	for _, mon := range monitors {
		s, err := m.createSurface(mon, opts)
		if err != nil {
			log.Printf("Warning: skipping monitor %d %v: %v", mon.Index, mon.Bounds, err)
			m.metrics.SurfaceFailed()
			continue
		}
		m.surfaces = append(m.surfaces, s)
	}

	m.metrics.SetSurfaces(len(m.surfaces))
	log.Printf("Created %d overlay surface(s) for %d monitor(s)", len(m.surfaces), len(monitors))
	return nil
}

func (m *Manager) createSurface(mon display.Monitor, opts display.SurfaceOptions) (*Surface, error) {
	handle, err := m.backend.CreateSurface(mon.Bounds, opts)
	if err != nil {
		return nil, err
	}

	stamp := m.renderer.StampSize()
	s := &Surface{
		handle:    handle,
		Bounds:    mon.Bounds,
		StampSize: stamp,
		Anchors:   layout.ComputeGrid(mon.Bounds, stamp),
	}

	if m.spec.Mode == watermark.ModeImage {
		img, err := render.DecodeImageStamp(m.spec.Image)
		if err != nil {
			log.Printf("Warning: failed to load watermark image for monitor rect %d,%d,%d,%d: %v",
				mon.Bounds.Min.X, mon.Bounds.Min.Y, mon.Bounds.Max.X, mon.Bounds.Max.Y, err)
			m.metrics.ImageFailed()
		} else {
			s.Image = newImageResource(img)
		}
	}

	s.Initialized = true
	return s, nil
}

// Rebuild destroys every surface before enumerating monitors again, so old
// and new surfaces never coexist. It then presents one frame everywhere and
// re-arms the refresh timer on the first surface.
func (m *Manager) Rebuild() error {
	m.Teardown()
	m.metrics.Rebuilt()

	if err := m.Create(); err != nil {
		return err
	}
	m.RefreshAll()
	return m.ArmTimer()
}

// ArmTimer starts the periodic refresh timer on the first surface.
func (m *Manager) ArmTimer() error {
	if len(m.surfaces) == 0 {
		return nil
	}
	if err := m.backend.ArmTimer(m.surfaces[0].handle, m.refresh); err != nil {
		return fmt.Errorf("failed to arm refresh timer: %w", err)
	}
	return nil
}

// Teardown releases every image resource and surface. Calling it again is a
// no-op.
func (m *Manager) Teardown() {
	if len(m.surfaces) == 0 {
		return
	}
	for _, s := range m.surfaces {
		if err := s.destroy(); err != nil {
			log.Printf("Warning: failed to destroy surface %v: %v", s.Bounds, err)
		}
	}
	m.surfaces = nil
	m.metrics.SetSurfaces(0)
}

// RefreshAll renders and presents a fresh frame on every surface. A failed
// present drops that frame only; the next tick tries again.
func (m *Manager) RefreshAll() {
	start := time.Now()
	for _, s := range m.surfaces {
		if err := m.present(s); err != nil {
			log.Printf("Warning: dropped frame for surface %v: %v", s.Bounds, err)
			m.metrics.PresentFailed()
			continue
		}
		m.metrics.FramePresented()
	}
	m.metrics.ObserveRefresh(time.Since(start))
}

// Render produces the current frame for s without presenting it.
func (m *Manager) Render(s *Surface) (*image.RGBA, error) {
	if !s.Initialized {
		return nil, fmt.Errorf("surface %v not initialized", s.Bounds)
	}
	return m.renderer.RenderFrame(s.layer())
}

func (m *Manager) present(s *Surface) error {
	frame, err := m.Render(s)
	if err != nil {
		return err
	}
	return s.handle.Present(frame)
}
