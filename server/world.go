package server

import (
	"sort"

	log "github.com/sirupsen/logrus"
	"github.com/zucenko/painter/model"
)

func NewWorld(size model.Size, palette []string) *World {
	return &World{
		Size:         size,
		Palette:      palette,
		Players:      make(map[string]model.Player),
		Grid:         make(map[model.Position]model.Cell),
		Colors:       make(map[string]string),
		Achievements: make(map[string]model.Achievements),
	}
}

// Join places a player at the origin, or keeps the old position when the
// username is already present (reconnect, second tab).
func (w *World) Join(name string) []Outgoing {
	p, present := w.Players[name]
	if !present {
		p = model.Player{Username: name, Position: model.Position{}, Color: w.colorFor(name)}
		w.Players[name] = p
	}
	cell := w.paint(p)

	out := []Outgoing{
		{To: name, Envelope: envelope(model.EventPlayerData, model.PlayerData{Player: p})},
		{To: name, Envelope: envelope(model.EventGameState, model.GameState{Players: w.players()})},
		{To: name, Envelope: envelope(model.EventGridState, w.gridState())},
	}
	if !present {
		out = append(out, Outgoing{Except: name, Envelope: envelope(model.EventPlayerJoined, model.PlayerJoined{Player: p})})
	}
	return append(out, Outgoing{Except: name, Envelope: envelope(model.EventCellPainted, model.CellPainted{PaintedCell: cell})})
}

// Move relocates a player and paints the destination. The echo goes to everyone,
// the mover included, since clients only move on confirmation.
func (w *World) Move(name string, to model.Position) []Outgoing {
	p, ok := w.Players[name]
	if !ok {
		log.WithField("username", name).Warn("move from unknown player")
		return nil
	}
	if !w.Size.Contains(to) {
		log.WithFields(log.Fields{"username": name, "x": to.X, "y": to.Y}).Warn("move outside the world")
		return nil
	}
	p.Position = to
	w.Players[name] = p
	cell := w.paint(p)
	return []Outgoing{
		{Envelope: envelope(model.EventPlayerMoved, model.PlayerMoved{Player: p})},
		{Envelope: envelope(model.EventCellPainted, model.CellPainted{PaintedCell: cell})},
	}
}

// Leave removes the player. Painted cells stay.
func (w *World) Leave(name string) []Outgoing {
	if _, ok := w.Players[name]; !ok {
		return nil
	}
	delete(w.Players, name)
	return []Outgoing{{Envelope: envelope(model.EventPlayerLeft, model.PlayerLeft{Username: name})}}
}

func (w *World) UpdateAchievements(name string, a model.Achievements) {
	w.Achievements[name] = w.Achievements[name].Merge(a)
}

func (w *World) colorFor(name string) string {
	if c, ok := w.Colors[name]; ok {
		return c
	}
	c := w.Palette[len(w.Colors)%len(w.Palette)]
	w.Colors[name] = c
	return c
}

func (w *World) paint(p model.Player) model.PaintedCell {
	w.Grid[p.Position] = model.Cell{Username: p.Username, Color: p.Color}
	return model.PaintedCell{X: p.Position.X, Y: p.Position.Y, Username: p.Username, Color: p.Color}
}

func (w *World) players() []model.Player {
	out := make([]model.Player, 0, len(w.Players))
	for _, p := range w.Players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

func (w *World) gridState() model.GridState {
	cells := make([]model.PaintedCell, 0, len(w.Grid))
	for pos, c := range w.Grid {
		cells = append(cells, model.PaintedCell{X: pos.X, Y: pos.Y, Username: c.Username, Color: c.Color})
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Y != cells[j].Y {
			return cells[i].Y < cells[j].Y
		}
		return cells[i].X < cells[j].X
	})
	colors := make(map[string]string, len(w.Colors))
	for k, v := range w.Colors {
		colors[k] = v
	}
	return model.GridState{Cells: cells, UserColors: colors}
}

func envelope(event string, payload interface{}) model.Envelope {
	env, err := model.NewEnvelope(event, payload)
	if err != nil {
		log.WithError(err).WithField("event", event).Error("cant encode")
	}
	return env
}
