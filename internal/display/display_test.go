package display

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestToBGRA(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 2, 2))
	frame.SetRGBA(0, 0, color.RGBA{1, 2, 3, 4})
	frame.SetRGBA(1, 0, color.RGBA{10, 20, 30, 40})
	frame.SetRGBA(0, 1, color.RGBA{50, 60, 70, 80})
	frame.SetRGBA(1, 1, color.RGBA{90, 100, 110, 120})

	dst := make([]byte, 16)
	ToBGRA(dst, frame)

	want := []byte{
		3, 2, 1, 4, 30, 20, 10, 40,
		70, 60, 50, 80, 110, 100, 90, 120,
	}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("dst = %v, want %v", dst, want)
		}
	}
}

func TestToBGRASubImage(t *testing.T) {
	parent := image.NewRGBA(image.Rect(0, 0, 4, 4))
	parent.SetRGBA(2, 2, color.RGBA{9, 8, 7, 6})
	sub := parent.SubImage(image.Rect(2, 2, 4, 4)).(*image.RGBA)

	dst := make([]byte, 16)
	ToBGRA(dst, sub)
	if dst[0] != 7 || dst[1] != 8 || dst[2] != 9 || dst[3] != 6 {
		t.Errorf("first pixel = %v", dst[:4])
	}
}

func TestHeadlessSurfaceLifecycle(t *testing.T) {
	h := NewHeadless(image.Rect(0, 0, 100, 50), image.Rect(100, 0, 300, 100))
	if err := h.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer h.Close()

	monitors, err := h.Monitors()
	if err != nil {
		t.Fatalf("Monitors: %v", err)
	}
	if len(monitors) != 2 || monitors[1].Index != 1 || monitors[1].Bounds != image.Rect(100, 0, 300, 100) {
		t.Fatalf("Monitors() = %+v", monitors)
	}

	s, err := h.CreateSurface(monitors[0].Bounds, SurfaceOptions{ExcludeFromCapture: true})
	if err != nil {
		t.Fatalf("CreateSurface: %v", err)
	}
	hs := s.(*HeadlessSurface)
	if !hs.Options().ExcludeFromCapture {
		t.Error("options not recorded")
	}

	if err := s.Present(image.NewRGBA(image.Rect(0, 0, 10, 10))); err == nil {
		t.Error("expected size mismatch error")
	}
	if err := s.Present(image.NewRGBA(image.Rect(0, 0, 100, 50))); err != nil {
		t.Fatalf("Present: %v", err)
	}
	if hs.Presents() != 1 || hs.Frame() == nil {
		t.Errorf("presents = %d, frame = %v", hs.Presents(), hs.Frame())
	}

	injected := errors.New("device lost")
	h.SetPresentError(injected)
	if err := s.Present(image.NewRGBA(image.Rect(0, 0, 100, 50))); !errors.Is(err, injected) {
		t.Errorf("Present error = %v, want %v", err, injected)
	}
	h.SetPresentError(nil)

	if err := s.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if err := s.Destroy(); err != nil {
		t.Fatalf("second Destroy: %v", err)
	}
	created, destroyed := h.Counts()
	if created != 1 || destroyed != 1 || len(h.Live()) != 0 {
		t.Errorf("created=%d destroyed=%d live=%d", created, destroyed, len(h.Live()))
	}
}

func TestHeadlessFailSurfaceAt(t *testing.T) {
	bad := image.Rect(0, 0, 640, 480)
	h := NewHeadless(bad)
	h.FailSurfaceAt(bad)
	if _, err := h.CreateSurface(bad, SurfaceOptions{}); err == nil {
		t.Error("expected injected failure")
	}
	if _, err := h.CreateSurface(image.Rect(0, 0, 0, 10), SurfaceOptions{}); err == nil {
		t.Error("expected error for empty bounds")
	}
}

func TestHeadlessTimerAndEvents(t *testing.T) {
	h := NewHeadless(image.Rect(0, 0, 10, 10))
	defer h.Close()

	if _, ok := h.WaitEvent(10 * time.Millisecond); ok {
		t.Fatal("unexpected event on idle backend")
	}

	s, err := h.CreateSurface(image.Rect(0, 0, 10, 10), SurfaceOptions{})
	if err != nil {
		t.Fatalf("CreateSurface: %v", err)
	}
	if err := h.ArmTimer(s, 5*time.Millisecond); err != nil {
		t.Fatalf("ArmTimer: %v", err)
	}
	if h.TimerTarget() != s {
		t.Error("timer not armed on surface")
	}
	ev, ok := h.WaitEvent(time.Second)
	if !ok || ev.Kind != EventTimer {
		t.Fatalf("WaitEvent = %v, %v; want timer", ev, ok)
	}

	// Destroying the timer's surface disarms it, as with OS window timers.
	h.QuitOnDestroy = true
	s.Destroy()
	if h.TimerTarget() != nil {
		t.Error("timer still armed after surface destroyed")
	}
	for {
		ev, ok := h.WaitEvent(50 * time.Millisecond)
		if !ok {
			t.Fatal("no quit event after destroy")
		}
		if ev.Kind == EventQuit {
			break
		}
	}

	h.Post(Event{Kind: EventTopologyChange})
	if ev, ok := h.WaitEvent(time.Second); !ok || ev.Kind != EventTopologyChange {
		t.Errorf("WaitEvent = %v, %v; want topology change", ev, ok)
	}
}

func TestHeadlessPreview(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "preview")
	h := NewHeadless(image.Rect(0, 0, 8, 8))
	h.PreviewDir = dir
	if err := h.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}

	s, err := h.CreateSurface(image.Rect(0, 0, 8, 8), SurfaceOptions{})
	if err != nil {
		t.Fatalf("CreateSurface: %v", err)
	}
	if err := s.Present(image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatalf("Present: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "surface-0.png")); err != nil {
		t.Errorf("preview not written: %v", err)
	}
}
