package render

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zucenko/painter/avatar"
	"github.com/zucenko/painter/model"
	"github.com/zucenko/painter/world"
)

var view = model.Size{Cols: 5, Rows: 5}

type fakeAvatars map[string]image.Image

func (f fakeAvatars) Image(username string) (image.Image, avatar.State) {
	img, ok := f[username]
	if !ok {
		return nil, avatar.Failed
	}
	return img, avatar.Ready
}

func solid(c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

// center reads the pixel in the middle of viewport cell vx,vy.
func center(img *image.RGBA, cellPx, vx, vy int) color.RGBA {
	return img.RGBAAt(vx*cellPx+cellPx/2, vy*cellPx+cellPx/2)
}

func newScene() *world.Store {
	return world.NewStore("me", model.Size{Cols: 100, Rows: 100})
}

func TestRenderPaintsVisibleCellsOnly(t *testing.T) {
	s := newScene()
	s.Apply(model.CellPainted{PaintedCell: model.PaintedCell{X: 11, Y: 12, Username: "a", Color: "#00ff00"}})
	s.Apply(model.CellPainted{PaintedCell: model.PaintedCell{X: 1, Y: 1, Username: "a", Color: "#0000ff"}})

	r := NewRenderer(view, 20, nil)
	dst := r.NewSurface()
	r.Render(dst, s, nil, Frame{Camera: model.Position{X: 10, Y: 10}, Connected: true})

	assert.Equal(t, color.RGBA{0, 255, 0, 255}, center(dst, 20, 1, 2))
	assert.Equal(t, DefaultTheme.Background, center(dst, 20, 0, 0))
	assert.Equal(t, DefaultTheme.GridLine, dst.RGBAAt(20, 5))
}

func TestFailedAvatarFallsBackToColorEveryFrame(t *testing.T) {
	s := newScene()
	s.Apply(model.PlayerMoved{Player: model.Player{Username: "bob", Position: model.Position{X: 2, Y: 2}, Color: "#ff0000", Avatar: "data:broken"}})

	r := NewRenderer(view, 20, nil)
	dst := r.NewSurface()
	for i := 0; i < 3; i++ {
		require.NotPanics(t, func() {
			r.Render(dst, s, fakeAvatars{}, Frame{Connected: true})
		})
		assert.Equal(t, color.RGBA{255, 0, 0, 255}, center(dst, 20, 2, 2))
	}
}

func TestReadyAvatarIsDrawn(t *testing.T) {
	s := newScene()
	s.Apply(model.PlayerMoved{Player: model.Player{Username: "bob", Position: model.Position{X: 2, Y: 2}, Color: "#ff0000"}})
	blue := color.RGBA{0, 0, 255, 255}

	r := NewRenderer(view, 20, nil)
	dst := r.NewSurface()
	r.Render(dst, s, fakeAvatars{"bob": solid(blue)}, Frame{Connected: true})
	assert.Equal(t, blue, center(dst, 20, 2, 2))
}

func TestSelfDrawnOverRemotePlayers(t *testing.T) {
	s := newScene()
	s.Apply(model.PlayerData{Player: model.Player{Username: "me", Position: model.Position{X: 3, Y: 3}, Color: "#0000ff"}})
	s.Apply(model.PlayerMoved{Player: model.Player{Username: "twin", Position: model.Position{X: 3, Y: 3}, Color: "#ff0000"}})

	r := NewRenderer(view, 20, nil)
	dst := r.NewSurface()
	r.Render(dst, s, nil, Frame{Connected: true})
	assert.Equal(t, color.RGBA{0, 0, 255, 255}, center(dst, 20, 3, 3))
}

func TestInvalidColorUsesFallback(t *testing.T) {
	s := newScene()
	s.Apply(model.CellPainted{PaintedCell: model.PaintedCell{X: 0, Y: 0, Username: "a", Color: "not-a-color"}})

	r := NewRenderer(view, 20, nil)
	dst := r.NewSurface()
	r.Render(dst, s, nil, Frame{Connected: true})
	assert.Equal(t, DefaultTheme.Fallback, center(dst, 20, 0, 0))
}

func TestBannerWhileDisconnected(t *testing.T) {
	r := NewRenderer(view, 20, nil)
	dst := r.NewSurface()
	r.Render(dst, newScene(), nil, Frame{Connected: false})
	assert.NotEqual(t, DefaultTheme.Background, dst.RGBAAt(dst.Bounds().Dx()-2, 2))

	r.Render(dst, newScene(), nil, Frame{Connected: true})
	assert.Equal(t, DefaultTheme.Background, dst.RGBAAt(dst.Bounds().Dx()-2, 2))
}

func TestLoadFaceDefault(t *testing.T) {
	face, err := LoadFace("", 12)
	require.NoError(t, err)
	assert.NotNil(t, face)

	_, err = LoadFace("/nonexistent.ttf", 12)
	assert.Error(t, err)
}
