package config

import (
	"encoding/base64"
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/phinze/watermark/internal/watermark"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadText(t *testing.T) {
	cfg, err := Load([]string{"--text", "CONFIDENTIAL", "--overlay"}, env(nil), io.Discard)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Spec.Mode != watermark.ModeText || cfg.Spec.Text != "CONFIDENTIAL" {
		t.Errorf("spec = %+v", cfg.Spec)
	}
	if !cfg.Spec.ExcludeFromCapture {
		t.Error("--overlay not applied")
	}
	if cfg.Loop.RefreshInterval != time.Second || cfg.Loop.IdleInterval != 500*time.Millisecond {
		t.Errorf("loop config = %+v", cfg.Loop)
	}
}

func TestLoadMutuallyExclusive(t *testing.T) {
	path := writeFile(t, "logo.png", pngHeader)
	tests := [][]string{
		{"--text", "a", "--image-path", path},
		{"--text", "a", "--qr", "b"},
		{"--image-path", path, "--base64-file", path},
	}
	for _, args := range tests {
		_, err := Load(args, env(nil), io.Discard)
		var cfgErr *watermark.ConfigError
		if !errors.As(err, &cfgErr) {
			t.Errorf("Load(%v) error = %v, want *ConfigError", args, err)
		}
	}
}

func TestLoadRequiresSomething(t *testing.T) {
	_, err := Load(nil, env(nil), io.Discard)
	var cfgErr *watermark.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %v, want *ConfigError", err)
	}

	cfg, err := Load([]string{"--overlay"}, env(nil), io.Discard)
	if err != nil {
		t.Fatalf("overlay-only Load: %v", err)
	}
	if cfg.Spec.Mode != watermark.ModeNone || !cfg.Spec.ExcludeFromCapture {
		t.Errorf("spec = %+v", cfg.Spec)
	}
}

func TestLoadHelpAndUnknown(t *testing.T) {
	if _, err := Load([]string{"--help"}, env(nil), io.Discard); !errors.Is(err, flag.ErrHelp) {
		t.Errorf("--help error = %v, want flag.ErrHelp", err)
	}
	if _, err := Load([]string{"--bogus"}, env(nil), io.Discard); err == nil {
		t.Error("expected error for unknown flag")
	}
	_, err := Load([]string{"--text", "a", "extra"}, env(nil), io.Discard)
	var cfgErr *watermark.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("positional arg error = %v, want *ConfigError", err)
	}
}

func TestLoadBase64File(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString(pngHeader)
	wrapped := encoded[:8] + "\n" + encoded[8:] + "\n"
	path := writeFile(t, "payload.b64", []byte(wrapped))

	cfg, err := Load([]string{"--base64-file", path}, env(nil), io.Discard)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Spec.Mode != watermark.ModeImage || string(cfg.Spec.Image) != string(pngHeader) {
		t.Errorf("spec = %+v", cfg.Spec)
	}
}

func TestLoadCorruptBase64IsNotFatal(t *testing.T) {
	path := writeFile(t, "payload.b64", []byte("iVBOR*** not base64 ***"))

	cfg, err := Load([]string{"--base64-file", path}, env(nil), io.Discard)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Spec.Mode != watermark.ModeImage || cfg.Spec.Image != nil {
		t.Errorf("spec = %+v, want image mode without data", cfg.Spec)
	}
}

func TestLoadMissingBase64FileIsFatal(t *testing.T) {
	_, err := Load([]string{"--base64-file", filepath.Join(t.TempDir(), "missing")}, env(nil), io.Discard)
	var cfgErr *watermark.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("error = %v, want *ConfigError", err)
	}
}

func TestLoadImagePath(t *testing.T) {
	path := writeFile(t, "logo.png", pngHeader)
	cfg, err := Load([]string{"--image-path", path}, env(nil), io.Discard)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Spec.Mode != watermark.ModeImage || len(cfg.Spec.Image) != len(pngHeader) {
		t.Errorf("spec = %+v", cfg.Spec)
	}

	cfg, err = Load([]string{"--image-path", filepath.Join(t.TempDir(), "missing.png")}, env(nil), io.Discard)
	if err != nil {
		t.Fatalf("missing image should not be fatal: %v", err)
	}
	if cfg.Spec.Image != nil {
		t.Error("missing image produced data")
	}
}

func TestLoadQR(t *testing.T) {
	cfg, err := Load([]string{"--qr", "user=alice"}, env(nil), io.Discard)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Spec.Mode != watermark.ModeImage || !watermark.IsRecognizedImage(cfg.Spec.Image) {
		t.Errorf("QR spec not an image: mode=%v", cfg.Spec.Mode)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	cfg, err := Load(nil, env(map[string]string{
		EnvText:        "from env",
		EnvOverlay:     "true",
		EnvMetricsAddr: ":9102",
		EnvPreviewDir:  "/tmp/preview",
	}), io.Discard)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Spec.Text != "from env" || !cfg.Spec.ExcludeFromCapture {
		t.Errorf("spec = %+v", cfg.Spec)
	}
	if cfg.MetricsAddr != ":9102" || cfg.PreviewDir != "/tmp/preview" {
		t.Errorf("cfg = %+v", cfg)
	}

	// Flags win over the environment.
	cfg, err = Load([]string{"--text", "from flag"}, env(map[string]string{EnvText: "from env"}), io.Discard)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Spec.Text != "from flag" {
		t.Errorf("text = %q, want flag value", cfg.Spec.Text)
	}

	if _, err := Load(nil, env(map[string]string{EnvOverlay: "maybe"}), io.Discard); err == nil {
		t.Error("expected error for invalid boolean")
	}
}

func TestLoadRejectsBadIntervals(t *testing.T) {
	_, err := Load([]string{"--text", "a", "--idle", "0s"}, env(nil), io.Discard)
	var cfgErr *watermark.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("error = %v, want *ConfigError", err)
	}
}
