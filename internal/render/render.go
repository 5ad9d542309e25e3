// Package render composites watermark frames for overlay surfaces.
package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/phinze/watermark/internal/watermark"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
)

// ImageStampSize is the edge length of an image stamp in pixels.
const ImageStampSize = 64

// textColor is the watermark gray at roughly half opacity.
var textColor = color.NRGBA{128, 128, 128, 0x80}

// Layer is the per-surface input to RenderFrame.
type Layer struct {
	// Size is the surface width and height.
	Size image.Point

	// Anchors are the stamp positions from layout.ComputeGrid.
	Anchors []image.Point

	// StampSize is the measured stamp the anchors were computed for.
	StampSize image.Point

	// Image is the surface's decoded image stamp, nil when absent.
	Image image.Image
}

// Renderer draws frames for one immutable watermark spec. It is not safe
// for concurrent use; the coordinator goroutine owns it.
type Renderer struct {
	mode watermark.Mode
	text string

	face font.Face
	tile *image.RGBA
}

// New prepares a renderer for spec. In text mode the text is rasterized
// once here and reused for every frame.
func New(spec watermark.Spec) (*Renderer, error) {
	r := &Renderer{
		mode: spec.Mode,
		text: spec.Text,
	}

	if err := r.initFonts(); err != nil {
		return nil, err
	}

	if r.mode == watermark.ModeText && r.text != "" {
		r.tile = r.rasterizeText(r.text)
	}

	return r, nil
}

// Mode returns the watermark mode the renderer was built for.
func (r *Renderer) Mode() watermark.Mode {
	return r.mode
}

// StampSize returns the measured size of a single stamp: the text extents
// in text mode, the fixed image footprint in image mode, zero otherwise.
func (r *Renderer) StampSize() image.Point {
	switch r.mode {
	case watermark.ModeText:
		if r.tile == nil {
			return image.Point{}
		}
		return r.tile.Bounds().Size()
	case watermark.ModeImage:
		return image.Pt(ImageStampSize, ImageStampSize)
	default:
		return image.Point{}
	}
}

// RenderFrame builds a full-surface frame from scratch. Pixels no stamp
// touches stay fully transparent.
func (r *Renderer) RenderFrame(l Layer) (*image.RGBA, error) {
	if l.Size.X <= 0 || l.Size.Y <= 0 {
		return nil, fmt.Errorf("invalid surface size %v", l.Size)
	}
	frame := image.NewRGBA(image.Rectangle{Max: l.Size})

	switch r.mode {
	case watermark.ModeImage:
		if l.Image != nil {
			r.drawImageStamps(frame, l)
		}
	case watermark.ModeText:
		if r.tile != nil {
			r.drawTextStamps(frame, l)
		}
	}

	return frame, nil
}

// drawImageStamps blits the cached stamp centered on every anchor's stamp box.
func (r *Renderer) drawImageStamps(frame *image.RGBA, l Layer) {
	half := ImageStampSize / 2
	sp := l.Image.Bounds().Min
	for _, pt := range l.Anchors {
		c := stampCenter(pt, l.StampSize)
		dst := image.Rect(c.X-half, c.Y-half, c.X+half, c.Y+half)
		draw.Draw(frame, dst, l.Image, sp, draw.Over)
	}
}

func stampCenter(anchor, stamp image.Point) image.Point {
	return image.Pt(anchor.X+stamp.X/2, anchor.Y+stamp.Y/2)
}
