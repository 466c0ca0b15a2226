package main

import (
	"image"
	"image/color"

	"github.com/hajimehoshi/ebiten"
)

// Nine is a nine-slice panel: corners keep their size, edges and center stretch.
type Nine struct {
	images              *ebiten.Image
	alpha               float64
	R, G, B, Scale      float64
	positions           [4][2]int
	x, y, width, height int
	targetPositions     [4][2]float64
}

// NewNine builds the panel source procedurally: a rounded square of side 2*corner+1
// whose single middle row and column are the stretchable part.
func NewNine(corner int, fill, border color.RGBA) (*Nine, error) {
	side := 2*corner + 1
	src := image.NewRGBA(image.Rect(0, 0, side, side))
	r2 := corner * corner
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			dx, dy := edge(x, corner), edge(y, corner)
			d := dx*dx + dy*dy
			switch {
			case d > r2:
				// outside the rounded corner
			case d > (corner-2)*(corner-2):
				src.SetRGBA(x, y, border)
			default:
				src.SetRGBA(x, y, fill)
			}
		}
	}
	img, err := ebiten.NewImageFromImage(src, ebiten.FilterDefault)
	if err != nil {
		return nil, err
	}
	return &Nine{
		images:    img,
		alpha:     1,
		R:         1, G: 1, B: 1, Scale: 1,
		positions: [4][2]int{{0, 0}, {corner, corner}, {corner + 1, corner + 1}, {side, side}},
	}, nil
}

// edge is the distance past the inner square along one axis, zero inside it.
func edge(v, corner int) int {
	switch {
	case v < corner:
		return corner - v
	case v > corner:
		return v - corner
	default:
		return 0
	}
}

func (n *Nine) SetPosition(x, y int) {
	n.x = x
	n.y = y
	n.SetSize(n.width, n.height)
}

func (n *Nine) SetSize(width, height int) {
	n.width = width
	n.height = height
	n.targetPositions[0] = [2]float64{float64(n.x), float64(n.y)}
	n.targetPositions[1] = [2]float64{
		float64(n.x) + n.Scale*float64(n.positions[1][0]),
		float64(n.y) + n.Scale*float64(n.positions[1][1]),
	}
	n.targetPositions[2] = [2]float64{
		float64(n.x+n.width) - n.Scale*float64(n.positions[3][0]-n.positions[2][0]),
		float64(n.y+n.height) - n.Scale*float64(n.positions[3][1]-n.positions[2][1]),
	}
	n.targetPositions[3] = [2]float64{float64(n.x + n.width), float64(n.y + n.height)}
}

// Draw paints the nine patches row by row; patch (i,j) maps source span i,i+1 onto target span i,i+1.
func (n *Nine) Draw(screen *ebiten.Image) {
	for j := 0; j < 3; j++ {
		for i := 0; i < 3; i++ {
			src := image.Rect(n.positions[i][0], n.positions[j][1], n.positions[i+1][0], n.positions[j+1][1])
			if src.Empty() {
				continue
			}
			sx := (n.targetPositions[i+1][0] - n.targetPositions[i][0]) / float64(src.Dx())
			sy := (n.targetPositions[j+1][1] - n.targetPositions[j][1]) / float64(src.Dy())
			if sx <= 0 || sy <= 0 {
				continue
			}
			op := &ebiten.DrawImageOptions{}
			op.GeoM.Scale(sx, sy)
			op.GeoM.Translate(n.targetPositions[i][0], n.targetPositions[j][1])
			op.ColorM.Scale(n.R, n.G, n.B, n.alpha)
			screen.DrawImage(n.images.SubImage(src).(*ebiten.Image), op)
		}
	}
}
