package watermark

import (
	"fmt"
	"image/color"

	"github.com/skip2/go-qrcode"
)

// QRSize is the edge length of generated QR PNGs. Stamps are scaled down
// afterwards, so this only needs to be comfortably above the stamp size.
const QRSize = 256

// Gray is the watermark ink color shared by text, SVG and QR stamps.
var Gray = color.RGBA{128, 128, 128, 255}

// QRCodePNG encodes content as a QR code PNG suitable for ModeImage. The
// background is transparent so the desktop shows between modules.
func QRCodePNG(content string) ([]byte, error) {
	if content == "" {
		return nil, fmt.Errorf("failed to generate QR code: empty content")
	}
	qr, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}
	qr.ForegroundColor = Gray
	qr.BackgroundColor = color.Transparent

	png, err := qr.PNG(QRSize)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code to PNG: %w", err)
	}
	return png, nil
}
