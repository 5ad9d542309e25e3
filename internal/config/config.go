// Package config turns command-line flags and environment variables into a
// watermark spec and runtime settings.
package config

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/phinze/watermark/internal/coordinator"
	"github.com/phinze/watermark/internal/watermark"
)

// Environment variables consulted when the matching flag is absent.
const (
	EnvText        = "WATERMARK_TEXT"
	EnvImagePath   = "WATERMARK_IMAGE_PATH"
	EnvBase64File  = "WATERMARK_BASE64_FILE"
	EnvQR          = "WATERMARK_QR"
	EnvOverlay     = "WATERMARK_OVERLAY"
	EnvMetricsAddr = "WATERMARK_METRICS_ADDR"
	EnvPreviewDir  = "WATERMARK_PREVIEW_DIR"
)

// Config is the fully resolved runtime configuration.
type Config struct {
	Spec        watermark.Spec
	Loop        coordinator.Config
	MetricsAddr string
	PreviewDir  string
}

// Load parses args (without the program name). Usage text goes to output.
// It returns flag.ErrHelp for -h/--help and *watermark.ConfigError for
// invalid combinations.
func Load(args []string, getenv func(string) string, output io.Writer) (Config, error) {
	overlayDefault, err := envBool(getenv, EnvOverlay)
	if err != nil {
		return Config{}, err
	}

	fs := flag.NewFlagSet("watermark", flag.ContinueOnError)
	fs.SetOutput(output)

	text := fs.String("text", getenv(EnvText), "Use text watermark")
	imagePath := fs.String("image-path", getenv(EnvImagePath), "Use image file")
	base64File := fs.String("base64-file", getenv(EnvBase64File), "Use base64 encoded image file")
	qr := fs.String("qr", getenv(EnvQR), "Use a QR code of the given content as image watermark")
	overlay := fs.Bool("overlay", overlayDefault, "Exclude overlays from screen capture and sharing (can be combined)")
	metricsAddr := fs.String("metrics-addr", getenv(EnvMetricsAddr), "Serve Prometheus metrics on this address")
	previewDir := fs.String("preview-dir", getenv(EnvPreviewDir), "Render to PNG files in this directory instead of the screen")
	refresh := fs.Duration("refresh", coordinator.DefaultConfig().RefreshInterval, "Periodic refresh interval")
	idle := fs.Duration("idle", coordinator.DefaultConfig().IdleInterval, "Self-heal refresh interval")

	fs.Usage = func() {
		fmt.Fprintln(output, "Usage:")
		fmt.Fprintln(output, "  watermark [--text <text> | --image-path <path> | --base64-file <path> | --qr <content>] [--overlay]")
		fmt.Fprintln(output)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if fs.NArg() > 0 {
		return Config{}, &watermark.ConfigError{Reason: fmt.Sprintf("unknown option: %s", fs.Arg(0))}
	}
	if *refresh <= 0 || *idle <= 0 {
		return Config{}, &watermark.ConfigError{Reason: "refresh and idle intervals must be positive"}
	}

	spec, err := resolveSpec(*text, *imagePath, *base64File, *qr)
	if err != nil {
		return Config{}, err
	}
	spec.ExcludeFromCapture = *overlay

	if err := spec.Validate(); err != nil {
		return Config{}, &watermark.ConfigError{
			Reason: "you must specify one of --text, --image-path, --base64-file or --qr (unless only --overlay is used)",
		}
	}

	return Config{
		Spec: spec,
		Loop: coordinator.Config{
			RefreshInterval: *refresh,
			IdleInterval:    *idle,
		},
		MetricsAddr: *metricsAddr,
		PreviewDir:  *previewDir,
	}, nil
}

// resolveSpec picks the single watermark source and loads its payload.
// Unreadable or undecodable images are not fatal: the overlays run without
// an image and a warning is logged.
func resolveSpec(text, imagePath, base64File, qr string) (watermark.Spec, error) {
	set := 0
	for _, v := range []string{text, imagePath, base64File, qr} {
		if v != "" {
			set++
		}
	}
	if set > 1 {
		return watermark.Spec{}, &watermark.ConfigError{
			Reason: "only one of --text, --image-path, --base64-file or --qr can be used at a time",
		}
	}

	switch {
	case text != "":
		return watermark.Spec{Mode: watermark.ModeText, Text: text}, nil

	case imagePath != "":
		data, err := os.ReadFile(imagePath)
		if err != nil {
			log.Printf("Warning: unable to read image file %s: %v", imagePath, err)
		}
		return watermark.Spec{Mode: watermark.ModeImage, Image: data}, nil

	case base64File != "":
		raw, err := os.ReadFile(base64File)
		if err != nil {
			return watermark.Spec{}, &watermark.ConfigError{Reason: fmt.Sprintf("unable to open base64 file: %s", base64File)}
		}
		data, err := watermark.DecodeBase64(string(raw))
		if err != nil {
			log.Printf("Warning: %s: %v", base64File, err)
		} else if !watermark.IsRecognizedImage(data) {
			log.Printf("Warning: %s: %v", base64File, watermark.ErrUnrecognizedImage)
		}
		return watermark.Spec{Mode: watermark.ModeImage, Image: data}, nil

	case qr != "":
		data, err := watermark.QRCodePNG(qr)
		if err != nil {
			return watermark.Spec{}, &watermark.ConfigError{Reason: err.Error()}
		}
		return watermark.Spec{Mode: watermark.ModeImage, Image: data}, nil
	}

	return watermark.Spec{Mode: watermark.ModeNone}, nil
}

func envBool(getenv func(string) string, key string) (bool, error) {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, &watermark.ConfigError{Reason: fmt.Sprintf("%s: invalid boolean %q", key, v)}
	}
	return b, nil
}
