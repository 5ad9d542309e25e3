package render

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/phinze/watermark/internal/watermark"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DecodeImageStamp validates and decodes image bytes and scales the result
// to the fixed ImageStampSize square. Callers decode once per surface and
// keep the returned image for the surface's lifetime.
func DecodeImageStamp(data []byte) (*image.RGBA, error) {
	if !watermark.IsRecognizedImage(data) {
		return nil, watermark.ErrUnrecognizedImage
	}

	if watermark.IsSVG(data) {
		return renderSVGStamp(string(data), ImageStampSize)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if src.Bounds().Empty() {
		return nil, fmt.Errorf("failed to decode image: empty bounds")
	}

	dst := image.NewRGBA(image.Rect(0, 0, ImageStampSize, ImageStampSize))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst, nil
}

// renderSVGStamp rasterizes an SVG document into a transparent square.
// currentColor is painted in the watermark gray.
func renderSVGStamp(svgContent string, size int) (*image.RGBA, error) {
	g := watermark.Gray
	hexColor := fmt.Sprintf("#%02x%02x%02x", g.R, g.G, g.B)
	svgContent = strings.ReplaceAll(svgContent, "currentColor", hexColor)

	icon, err := oksvg.ReadIconStream(strings.NewReader(svgContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse SVG: %w", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	icon.SetTarget(0, 0, float64(size), float64(size))

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	return img, nil
}
