package main

import (
	"context"
	"fmt"
	"image/color"
	"os"

	"github.com/hajimehoshi/ebiten"
	"github.com/hajimehoshi/ebiten/ebitenutil"
	"github.com/hajimehoshi/ebiten/inpututil"
	"github.com/hajimehoshi/ebiten/text"
	log "github.com/sirupsen/logrus"
	"github.com/tanema/gween"
	"github.com/zucenko/painter/camera"
	"github.com/zucenko/painter/dispatch"
	"github.com/zucenko/painter/hud"
	"github.com/zucenko/painter/input"
	"github.com/zucenko/painter/render"
	"github.com/zucenko/painter/session"
	"golang.org/x/image/font"
)

const (
	hudWidth    = 220
	minCellSize = 8
	queueSize   = 1024
	tweenStep   = 1.0 / 60
)

var KEYS = input.Keymap{
	int(ebiten.KeyUp):    input.Up,
	int(ebiten.KeyDown):  input.Down,
	int(ebiten.KeyLeft):  input.Left,
	int(ebiten.KeyRight): input.Right,
	int(ebiten.KeyW):     input.Up,
	int(ebiten.KeyS):     input.Down,
	int(ebiten.KeyA):     input.Left,
	int(ebiten.KeyD):     input.Right,
}

type GameState int

const (
	CONNECTING GameState = iota + 1
	PLAYING
)

func (s GameState) Name() string {
	switch s {
	case CONNECTING:
		return "CONNECTING"
	case PLAYING:
		return "PLAYING"
	default:
		return fmt.Sprintf("N/A(%d)", s)
	}
}

// Game is the ebiten shell. Everything it touches in the session runs inside Update,
// which is also where the dispatch queue is drained.
type Game struct {
	State   GameState
	Config  session.Config
	Queue   *dispatch.Queue
	Session *session.Session
	Font    font.Face
	Panel   *Nine
	Tweens  map[*gween.Tween]*Action

	board       *ebiten.Image
	hud         hud.Model
	outerW      int
	outerH      int
	statusAlpha float64
	pulsing     bool
}

func NewGame(cfg session.Config) (*Game, error) {
	face, err := render.LoadFace(cfg.FontPath, cfg.FontSize)
	if err != nil {
		return nil, err
	}
	panel, err := NewNine(8, color.RGBA{40, 40, 48, 255}, color.RGBA{90, 90, 110, 255})
	if err != nil {
		return nil, err
	}
	q := dispatch.New(queueSize)
	ch := session.NewChannel(cfg, q)
	s := session.New(cfg, q, ch, session.NewService(cfg), nil, face)
	return &Game{
		State:       CONNECTING,
		Config:      cfg,
		Queue:       q,
		Session:     s,
		Font:        face,
		Panel:       panel,
		Tweens:      make(map[*gween.Tween]*Action),
		statusAlpha: 1,
	}, nil
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.outerW, g.outerH = outsideWidth, outsideHeight
	px := g.Session.CellSize()
	view := g.Config.Viewport()
	return view.Cols*px + hudWidth, view.Rows * px
}

func (g *Game) Update(screen *ebiten.Image) error {
	if g.outerW > 0 {
		g.Session.SetCellSize(camera.CellSize(g.outerW, g.outerH, hudWidth, g.Config.Viewport(), minCellSize))
	}
	g.handleKeys()
	g.Queue.Drain()
	g.refreshState()
	g.updateTweens(tweenStep)

	if ebiten.IsDrawingSkipped() {
		return nil
	}
	if err := g.drawBoard(screen); err != nil {
		return err
	}
	g.drawHud(screen)
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("%s %s %.0f", g.State.Name(), g.Session.MoveState().Name(), ebiten.CurrentTPS()), 4, 0)
	return nil
}

func (g *Game) handleKeys() {
	for k, d := range KEYS {
		key := ebiten.Key(k)
		if inpututil.IsKeyJustPressed(key) {
			g.Session.KeyDown(d)
		}
		if inpututil.IsKeyJustReleased(key) && !KEYS.Held(d, keyDown) {
			g.Session.KeyUp(d)
		}
	}
}

func keyDown(k int) bool {
	return ebiten.IsKeyPressed(ebiten.Key(k))
}

func (g *Game) refreshState() {
	if g.Session.Connected() {
		g.State = PLAYING
	} else {
		g.State = CONNECTING
		g.pulseStatus()
	}
	snap, ok := g.Session.Stats()
	g.hud = hud.Build(g.Session.Connected(), g.Config.Username, g.Session.Leaderboard(), g.Session.Color,
		g.Session.Achievements(), g.Session.Thresholds(), snap, ok, g.Config.TopN)
}

// drawBoard uploads the raster only when the session repainted it.
func (g *Game) drawBoard(screen *ebiten.Image) error {
	raster, changed := g.Session.Frame()
	b := raster.Bounds()
	if g.board != nil {
		if w, h := g.board.Size(); w != b.Dx() || h != b.Dy() {
			g.board.Dispose()
			g.board = nil
		}
	}
	if g.board == nil {
		img, err := ebiten.NewImage(b.Dx(), b.Dy(), ebiten.FilterDefault)
		if err != nil {
			return err
		}
		g.board = img
		changed = true
	}
	if changed {
		if err := g.board.ReplacePixels(raster.Pix); err != nil {
			return err
		}
	}
	return screen.DrawImage(g.board, &ebiten.DrawImageOptions{})
}

func (g *Game) drawHud(screen *ebiten.Image) {
	_, h := screen.Size()
	x := g.Config.ViewportCols * g.Session.CellSize()
	g.Panel.SetPosition(x+4, 4)
	g.Panel.SetSize(hudWidth-8, h-8)
	g.Panel.Draw(screen)

	lineH := g.Font.Metrics().Height.Ceil() + 2
	y := 16 + lineH
	tx := x + 14

	status := color.NRGBA{hud.COLOR_TEXT.R, hud.COLOR_TEXT.G, hud.COLOR_TEXT.B, uint8(255 * g.statusAlpha)}
	text.Draw(screen, g.Config.Username+" - "+g.hud.Status, g.Font, tx, y, status)
	y += lineH * 2

	section := func(title string, lines []hud.Line) {
		if len(lines) == 0 {
			return
		}
		text.Draw(screen, title, g.Font, tx, y, hud.COLOR_TEXT)
		y += lineH
		for _, l := range lines {
			if y > h-8 {
				return
			}
			text.Draw(screen, l.Text, g.Font, tx+6, y, l.Color)
			y += lineH
		}
		y += lineH / 2
	}
	section("Leaderboard", g.hud.Leaderboard)
	section("Achievements", g.hud.Achievements)
	section("Stats", g.hud.Stats)
}

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	g, err := NewGame(cfg)
	if err != nil {
		log.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	g.Session.Start(ctx)

	view := cfg.Viewport()
	ebiten.SetWindowTitle("Painter - " + cfg.Username)
	ebiten.SetWindowResizable(true)
	ebiten.SetWindowSize(view.Cols*g.Session.CellSize()+hudWidth, view.Rows*g.Session.CellSize())

	err = ebiten.RunGame(g)
	cancel()
	g.Queue.Close()
	g.Session.Close()
	if err != nil {
		log.Fatal(err)
	}
}
