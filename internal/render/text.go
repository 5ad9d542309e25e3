package render

import (
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
)

const (
	fontSize = 24

	// textAngle is the stamp rotation in radians (45°).
	textAngle = math.Pi / 4
)

// initFonts initializes the font face for text stamps.
func (r *Renderer) initFonts() error {
	tt, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return fmt.Errorf("failed to parse watermark font: %w", err)
	}

	r.face, err = opentype.NewFace(tt, &opentype.FaceOptions{
		Size:    fontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return fmt.Errorf("failed to create watermark face: %w", err)
	}

	return nil
}

// rasterizeText draws text unrotated into a tile sized to its extents:
// advance width by ascent+descent.
func (r *Renderer) rasterizeText(text string) *image.RGBA {
	metrics := r.face.Metrics()
	w := font.MeasureString(r.face, text).Ceil()
	h := (metrics.Ascent + metrics.Descent).Ceil()
	if w <= 0 || h <= 0 {
		return nil
	}

	tile := image.NewRGBA(image.Rect(0, 0, w, h))
	d := &font.Drawer{
		Dst:  tile,
		Src:  image.NewUniform(textColor),
		Face: r.face,
		Dot:  fixed.Point26_6{X: 0, Y: metrics.Ascent},
	}
	d.DrawString(text)

	return tile
}

// drawTextStamps draws the text tile rotated about each stamp's center.
func (r *Renderer) drawTextStamps(frame *image.RGBA, l Layer) {
	size := r.tile.Bounds().Size()
	for _, pt := range l.Anchors {
		m := rotateAbout(stampCenter(pt, l.StampSize), size, textAngle)
		draw.BiLinear.Transform(frame, m, r.tile, r.tile.Bounds(), draw.Over, nil)
	}
}

// rotateAbout returns the source-to-destination transform that places a
// size-sized tile at (-w/2, -h/2), rotates it by theta and translates it to
// center. The linear part is (cosθ, −sinθ; sinθ, cosθ) in row-major form.
func rotateAbout(center, size image.Point, theta float64) f64.Aff3 {
	sin, cos := math.Sincos(theta)
	hw, hh := float64(size.X)/2, float64(size.Y)/2
	cx, cy := float64(center.X), float64(center.Y)
	return f64.Aff3{
		cos, -sin, cx - cos*hw + sin*hh,
		sin, cos, cy - sin*hw - cos*hh,
	}
}
