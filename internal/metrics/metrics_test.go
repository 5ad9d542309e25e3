package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.FramePresented()
	m.PresentFailed()
	m.Rebuilt()
	m.SurfaceFailed()
	m.ImageFailed()
	m.SpuriousQuit()
	m.SetSurfaces(3)
	m.ObserveRefresh(time.Millisecond)
}

func TestCounters(t *testing.T) {
	m := New()
	m.FramePresented()
	m.FramePresented()
	m.PresentFailed()
	m.SetSurfaces(2)

	if got := testutil.ToFloat64(m.FramesPresented); got != 2 {
		t.Errorf("frames presented = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.PresentErrors); got != 1 {
		t.Errorf("present errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Surfaces); got != 2 {
		t.Errorf("surfaces = %v, want 2", got)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.Rebuilt()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), "watermark_rebuilds_total 1") {
		t.Errorf("exposition missing rebuild counter:\n%s", body)
	}
}
