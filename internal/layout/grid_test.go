package layout

import (
	"image"
	"testing"
)

func TestComputeGridExample(t *testing.T) {
	bounds := image.Rect(0, 0, 1920, 1080)
	anchors := ComputeGrid(bounds, image.Pt(100, 40))

	if got := Cell(bounds); got != image.Pt(384, 216) {
		t.Errorf("Cell() = %v, want (384,216)", got)
	}
	if len(anchors) != Cols*Rows {
		t.Fatalf("got %d anchors, want %d", len(anchors), Cols*Rows)
	}
	if anchors[0] != image.Pt(142, 88) {
		t.Errorf("anchor(0,0) = %v, want (142,88)", anchors[0])
	}
	if last := anchors[4*Cols+4]; last != image.Pt(1678, 952) {
		t.Errorf("anchor(4,4) = %v, want (1678,952)", last)
	}
}

func TestComputeGridLattice(t *testing.T) {
	tests := []struct {
		name   string
		bounds image.Rectangle
		stamp  image.Point
	}{
		{"full hd", image.Rect(0, 0, 1920, 1080), image.Pt(100, 40)},
		{"secondary monitor offset", image.Rect(1920, -200, 1920+2560, 1240), image.Pt(180, 30)},
		{"portrait", image.Rect(0, 0, 1080, 1920), image.Pt(64, 64)},
		{"tiny", image.Rect(0, 0, 50, 50), image.Pt(1, 1)},
		{"zero stamp", image.Rect(0, 0, 800, 600), image.Pt(0, 0)},
		{"odd sizes", image.Rect(0, 0, 1366, 768), image.Pt(97, 33)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			anchors := ComputeGrid(tt.bounds, tt.stamp)
			if len(anchors) != Cols*Rows {
				t.Fatalf("got %d anchors, want %d", len(anchors), Cols*Rows)
			}

			w, h := tt.bounds.Dx(), tt.bounds.Dy()
			for i, a := range anchors {
				if a.X < 0 || a.Y < 0 || a.X >= w || a.Y >= h {
					t.Errorf("anchor %d = %v outside %dx%d", i, a, w, h)
				}
			}

			cell := Cell(tt.bounds)
			for row := 0; row < Rows; row++ {
				for col := 0; col < Cols; col++ {
					a := anchors[row*Cols+col]
					if col > 0 {
						prev := anchors[row*Cols+col-1]
						if a.X-prev.X != cell.X || a.Y != prev.Y {
							t.Errorf("column spacing at (%d,%d): %v -> %v", row, col, prev, a)
						}
					}
					if row > 0 {
						prev := anchors[(row-1)*Cols+col]
						if a.Y-prev.Y != cell.Y || a.X != prev.X {
							t.Errorf("row spacing at (%d,%d): %v -> %v", row, col, prev, a)
						}
					}
				}
			}
		})
	}
}

func TestComputeGridDeterministic(t *testing.T) {
	bounds := image.Rect(0, 0, 2560, 1440)
	a := ComputeGrid(bounds, image.Pt(150, 31))
	b := ComputeGrid(bounds, image.Pt(150, 31))
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("anchor %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}
