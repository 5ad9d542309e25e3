// Package layout computes where watermark stamps go on a surface.
package layout

import "image"

// Grid dimensions shared by every surface.
const (
	Cols = 5
	Rows = 5
)

// Cell returns the size of one grid cell for bounds.
func Cell(bounds image.Rectangle) image.Point {
	return image.Pt(bounds.Dx()/Cols, bounds.Dy()/Rows)
}

// ComputeGrid partitions bounds into a Cols×Rows grid and returns, row by
// row, the top-left corner of a stamp of the given size centered in each
// cell. Anchors are relative to the surface origin, not the virtual desktop.
func ComputeGrid(bounds image.Rectangle, stamp image.Point) []image.Point {
	cell := Cell(bounds)
	off := image.Pt((cell.X-stamp.X)/2, (cell.Y-stamp.Y)/2)

	anchors := make([]image.Point, 0, Cols*Rows)
	for row := 0; row < Rows; row++ {
		for col := 0; col < Cols; col++ {
			anchors = append(anchors, image.Pt(col*cell.X+off.X, row*cell.Y+off.Y))
		}
	}
	return anchors
}
