package main

import (
	"context"
	"errors"
	"flag"
	"image"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phinze/watermark/internal/config"
	"github.com/phinze/watermark/internal/coordinator"
	"github.com/phinze/watermark/internal/display"
	"github.com/phinze/watermark/internal/metrics"
)

// previewMonitor is the single virtual display used with --preview-dir.
var previewMonitor = image.Rect(0, 0, 1920, 1080)

func main() {
	cfg, err := config.Load(os.Args[1:], os.Getenv, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}

	log.Println("=== Watermark Overlay ===")
	log.Printf("Mode: %s, exclude from capture: %t", cfg.Spec.Mode, cfg.Spec.ExcludeFromCapture)

	backend, err := newBackend(cfg)
	if err != nil {
		log.Fatalf("failed to create display backend: %v", err)
	}

	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("\nReceived shutdown signal")
		cancel()
	}()

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		go func() {
			if err := m.Serve(ctx, cfg.MetricsAddr); err != nil {
				log.Printf("Metrics server error: %v", err)
			}
		}()
	}

	coord := coordinator.New(backend, cfg.Loop, m)
	if err := coord.Start(cfg.Spec); err != nil {
		log.Fatalf("failed to start overlays: %v", err)
	}

	log.Println("Watermark overlay running. Press Ctrl+C to exit.")

	select {
	case <-ctx.Done():
		log.Println("Shutting down...")
	case <-coord.Done():
		log.Println("Overlay loop exited")
	}

	// Stop coordinator with timeout
	done := make(chan struct{})
	go func() {
		coord.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		log.Println("Cleanup timed out")
	}
	log.Println("Exiting...")
}

// newBackend picks the PNG preview backend when a preview directory is
// configured and the platform's native overlays otherwise.
func newBackend(cfg config.Config) (display.Backend, error) {
	if cfg.PreviewDir != "" {
		h := display.NewHeadless(previewMonitor)
		h.PreviewDir = cfg.PreviewDir
		log.Printf("Rendering previews to %s", cfg.PreviewDir)
		return h, nil
	}

	backend, err := display.NewNative()
	if errors.Is(err, display.ErrUnsupported) {
		return nil, errors.New("no native overlay support on this platform; use --preview-dir")
	}
	return backend, err
}
