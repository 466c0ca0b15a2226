// Package render paints the visible slice of the world onto a raster surface.
// A pass only reads its inputs, so it can run any number of times per state.
package render

import (
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/zucenko/painter/avatar"
	"github.com/zucenko/painter/camera"
	"github.com/zucenko/painter/model"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Scene is the read side of the world store.
type Scene interface {
	Cell(p model.Position) (model.Cell, bool)
	Players() []model.Player
	Self() (model.Player, bool)
}

type Avatars interface {
	Image(username string) (image.Image, avatar.State)
}

type Theme struct {
	Background color.RGBA
	GridLine   color.RGBA
	Fallback   color.RGBA
	Label      color.RGBA
	Banner     color.RGBA
	BannerText color.RGBA
}

var DefaultTheme = Theme{
	Background: color.RGBA{255, 255, 255, 255},
	GridLine:   color.RGBA{221, 221, 221, 255},
	Fallback:   color.RGBA{231, 76, 60, 255},
	Label:      color.RGBA{0, 0, 0, 255},
	Banner:     color.RGBA{40, 40, 40, 220},
	BannerText: color.RGBA{255, 255, 255, 255},
}

type Frame struct {
	Camera    model.Position
	Connected bool
}

type Renderer struct {
	View   model.Size
	CellPx int
	Face   font.Face
	Theme  Theme

	colors map[string]color.RGBA
}

func NewRenderer(view model.Size, cellPx int, face font.Face) *Renderer {
	if face == nil {
		face = basicfont.Face7x13
	}
	return &Renderer{
		View:   view,
		CellPx: cellPx,
		Face:   face,
		Theme:  DefaultTheme,
		colors: make(map[string]color.RGBA),
	}
}

// Bounds is the raster size the renderer expects: viewport cells times cell pixels.
func (r *Renderer) Bounds() image.Rectangle {
	return image.Rect(0, 0, r.View.Cols*r.CellPx, r.View.Rows*r.CellPx)
}

func (r *Renderer) NewSurface() *image.RGBA {
	return image.NewRGBA(r.Bounds())
}

func (r *Renderer) Render(dst *image.RGBA, scene Scene, avatars Avatars, f Frame) {
	fill(dst, dst.Bounds(), r.Theme.Background)
	r.drawGridLines(dst)
	r.drawCells(dst, scene, f.Camera)

	for _, p := range scene.Players() {
		r.drawPlayer(dst, p, avatars, f.Camera)
	}
	if self, ok := scene.Self(); ok {
		r.drawPlayer(dst, self, avatars, f.Camera)
	}

	if !f.Connected {
		r.drawBanner(dst, "Connecting to server...")
	}
}

func (r *Renderer) drawGridLines(dst *image.RGBA) {
	b := dst.Bounds()
	for i := 0; i <= r.View.Cols; i++ {
		x := i * r.CellPx
		fill(dst, image.Rect(x, b.Min.Y, x+1, b.Max.Y), r.Theme.GridLine)
	}
	for i := 0; i <= r.View.Rows; i++ {
		y := i * r.CellPx
		fill(dst, image.Rect(b.Min.X, y, b.Max.X, y+1), r.Theme.GridLine)
	}
}

func (r *Renderer) drawCells(dst *image.RGBA, scene Scene, cam model.Position) {
	for vy := 0; vy < r.View.Rows; vy++ {
		for vx := 0; vx < r.View.Cols; vx++ {
			c, ok := scene.Cell(model.Position{X: cam.X + vx, Y: cam.Y + vy})
			if !ok {
				continue
			}
			fill(dst, r.cellRect(vx, vy), r.color(c.Color))
		}
	}
}

func (r *Renderer) cellRect(vx, vy int) image.Rectangle {
	return image.Rect(vx*r.CellPx, vy*r.CellPx, (vx+1)*r.CellPx, (vy+1)*r.CellPx)
}

func (r *Renderer) drawPlayer(dst *image.RGBA, p model.Player, avatars Avatars, cam model.Position) {
	if !camera.Visible(p.Position, cam, r.View) {
		return
	}
	rect := r.cellRect(p.Position.X-cam.X, p.Position.Y-cam.Y)
	base := r.color(p.Color)
	fill(dst, rect, border(base))

	inner := rect.Inset(2)
	if r.CellPx < 6 {
		inner = rect
	}
	var img image.Image
	if avatars != nil {
		img, _ = avatars.Image(p.Username)
	}
	if img != nil {
		draw.ApproxBiLinear.Scale(dst, inner, img, img.Bounds(), draw.Over, nil)
	} else {
		fill(dst, inner, base)
	}
	r.drawLabel(dst, p.Username, rect)
}

func (r *Renderer) drawLabel(dst *image.RGBA, name string, cell image.Rectangle) {
	m := r.Face.Metrics()
	width := font.MeasureString(r.Face, name).Ceil()
	x := cell.Min.X + (cell.Dx()-width)/2
	y := cell.Min.Y - 2
	if y-m.Ascent.Ceil() < 0 {
		// no room above the top row, write below
		y = cell.Max.Y + m.Ascent.Ceil()
	}
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(r.Theme.Label),
		Face: r.Face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(name)
}

func (r *Renderer) drawBanner(dst *image.RGBA, msg string) {
	m := r.Face.Metrics()
	h := m.Height.Ceil() + 8
	b := dst.Bounds()
	bar := image.Rect(b.Min.X, b.Min.Y, b.Max.X, b.Min.Y+h)
	draw.Draw(dst, bar, image.NewUniform(r.Theme.Banner), image.Point{}, draw.Over)
	width := font.MeasureString(r.Face, msg).Ceil()
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(r.Theme.BannerText),
		Face: r.Face,
		Dot:  fixed.P(b.Min.X+(b.Dx()-width)/2, b.Min.Y+4+m.Ascent.Ceil()),
	}
	d.DrawString(msg)
}

// color parses #rgb / #rrggbb, falling back to the theme color for anything else.
func (r *Renderer) color(hex string) color.RGBA {
	if c, ok := r.colors[hex]; ok {
		return c
	}
	c := r.Theme.Fallback
	if parsed, err := colorful.Hex(hex); err == nil {
		cr, cg, cb := parsed.Clamped().RGB255()
		c = color.RGBA{cr, cg, cb, 255}
	}
	if r.colors == nil {
		r.colors = make(map[string]color.RGBA)
	}
	r.colors[hex] = c
	return c
}

func border(c color.RGBA) color.RGBA {
	base, _ := colorful.MakeColor(c)
	dark := base.BlendLab(colorful.Color{}, 0.45).Clamped()
	r, g, b := dark.RGB255()
	return color.RGBA{r, g, b, 255}
}

func fill(dst *image.RGBA, r image.Rectangle, c color.RGBA) {
	draw.Draw(dst, r, image.NewUniform(c), image.Point{}, draw.Src)
}
