// Package hud derives the side panel contents from session state.
package hud

import (
	"fmt"
	"image/color"

	"github.com/dustin/go-humanize"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/zucenko/painter/model"
	"github.com/zucenko/painter/score"
	"github.com/zucenko/painter/stats"
)

var (
	COLOR_TEXT     = color.RGBA{230, 230, 230, 255}
	COLOR_DIM      = color.RGBA{140, 140, 140, 255}
	COLOR_UNLOCKED = color.RGBA{250, 200, 40, 255}
)

type Line struct {
	Text  string
	Color color.Color
}

// Model is what the side panel shows, rebuilt from the session after every drain.
type Model struct {
	Status       string
	Leaderboard  []Line
	Achievements []Line
	Stats        []Line
}

func Build(connected bool, self string, board []score.Entry, colorOf func(string) string,
	a model.Achievements, th score.Thresholds, snap stats.Snapshot, haveStats bool, topN int) Model {

	h := Model{Status: "online"}
	if !connected {
		h.Status = "connecting..."
	}

	for i, e := range board {
		if i == topN {
			break
		}
		c := swatch(colorOf(e.Username))
		if e.Username == self {
			c = COLOR_UNLOCKED
		}
		h.Leaderboard = append(h.Leaderboard, Line{
			Text:  fmt.Sprintf("%d. %s %s", i+1, e.Username, humanize.Comma(int64(e.Count))),
			Color: c,
		})
	}

	flags := []bool{a.FiftyPoints, a.HundredPoints, a.TwoHundredPoints}
	for i, on := range flags {
		h.Achievements = append(h.Achievements, achievement(fmt.Sprintf("%s cells", humanize.Comma(int64(th[i]))), on))
	}
	h.Achievements = append(h.Achievements, achievement("all unlocked", a.AllUnlocked))

	if haveStats {
		for _, l := range snap.Lines() {
			h.Stats = append(h.Stats, Line{Text: l, Color: COLOR_DIM})
		}
	}
	return h
}

func achievement(label string, on bool) Line {
	if on {
		return Line{Text: "[x] " + label, Color: COLOR_UNLOCKED}
	}
	return Line{Text: "[ ] " + label, Color: COLOR_DIM}
}

// swatch lightens dark player colors so names stay readable on the panel.
func swatch(hex string) color.Color {
	c, err := colorful.Hex(hex)
	if err != nil {
		return COLOR_TEXT
	}
	h, s, l := c.Hsl()
	if l < 0.55 {
		l = 0.55
	}
	return colorful.Hsl(h, s, l).Clamped()
}
