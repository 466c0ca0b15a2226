// Package camera positions the fixed-size visible window over the world.
package camera

import "github.com/zucenko/painter/model"

// Compute returns the top-left world cell of the viewport, centering self when
// possible and never letting the window leave the world.
func Compute(self model.Position, world, view model.Size) model.Position {
	return model.Position{
		X: axis(self.X, world.Cols, view.Cols),
		Y: axis(self.Y, world.Rows, view.Rows),
	}
}

func axis(self, world, view int) int {
	v := self - view/2
	if max := world - view; v > max {
		v = max
	}
	if v < 0 {
		v = 0
	}
	return v
}

// Visible reports whether a world cell falls inside the window starting at cam.
func Visible(p, cam model.Position, view model.Size) bool {
	return p.X >= cam.X && p.Y >= cam.Y && p.X < cam.X+view.Cols && p.Y < cam.Y+view.Rows
}

// CellSize picks the largest whole pixel size fitting the viewport into the space left
// after reserving hudWidth pixels on the right.
func CellSize(outerWidth, outerHeight, hudWidth int, view model.Size, min int) int {
	w := (outerWidth - hudWidth) / view.Cols
	h := outerHeight / view.Rows
	size := w
	if h < size {
		size = h
	}
	if size < min {
		size = min
	}
	return size
}
