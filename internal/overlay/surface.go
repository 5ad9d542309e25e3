package overlay

import (
	"image"

	"github.com/phinze/watermark/internal/display"
	"github.com/phinze/watermark/internal/render"
)

// ImageResource is a decoded image stamp owned by exactly one Surface.
type ImageResource struct {
	img      *image.RGBA
	released bool
}

func newImageResource(img *image.RGBA) *ImageResource {
	return &ImageResource{img: img}
}

// Image returns the decoded stamp, or nil once released.
func (r *ImageResource) Image() *image.RGBA {
	return r.img
}

// Released reports whether the owning surface has let go of the resource.
func (r *ImageResource) Released() bool {
	return r.released
}

// release drops the pixels. Later calls are no-ops.
func (r *ImageResource) release() {
	if r.released {
		return
	}
	r.img = nil
	r.released = true
}

// Surface is the overlay covering one monitor.
type Surface struct {
	handle display.Surface

	// Bounds is the monitor rectangle in desktop coordinates.
	Bounds image.Rectangle

	// Anchors are the stamp positions, relative to Bounds.Min.
	Anchors []image.Point

	// StampSize is the stamp measurement the anchors were computed from.
	StampSize image.Point

	// Image is the owned image stamp; nil outside image mode or when
	// decoding failed.
	Image *ImageResource

	Initialized bool
}

// Handle returns the backend surface.
func (s *Surface) Handle() display.Surface {
	return s.handle
}

func (s *Surface) layer() render.Layer {
	l := render.Layer{
		Size:      s.Bounds.Size(),
		Anchors:   s.Anchors,
		StampSize: s.StampSize,
	}
	if s.Image != nil {
		if img := s.Image.Image(); img != nil {
			l.Image = img
		}
	}
	return l
}

// destroy releases the image and then the OS surface.
func (s *Surface) destroy() error {
	if s.Image != nil {
		s.Image.release()
		s.Image = nil
	}
	s.Initialized = false
	if s.handle == nil {
		return nil
	}
	err := s.handle.Destroy()
	s.handle = nil
	return err
}
