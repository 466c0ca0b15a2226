// Package world mirrors the room state the server is authoritative for:
// remote players, the painted grid and the local player.
package world

import (
	"sort"

	log "github.com/sirupsen/logrus"
	"github.com/zucenko/painter/model"
)

// Change reports which parts of the store an event touched.
type Change uint8

const (
	ChangePlayers Change = 1 << iota
	ChangeGrid
	ChangeSelf
	ChangeColors
)

func (c Change) Has(o Change) bool {
	return c&o != 0
}

type Store struct {
	size     model.Size
	selfName string

	self      model.Player
	selfKnown bool

	players map[string]model.Player
	grid    map[model.Position]model.Cell
	colors  map[string]string
}

func NewStore(selfName string, size model.Size) *Store {
	return &Store{
		size:     size,
		selfName: selfName,
		self:     model.Player{Username: selfName},
		players:  make(map[string]model.Player),
		grid:     make(map[model.Position]model.Cell),
		colors:   make(map[string]string),
	}
}

func (s *Store) Size() model.Size { return s.size }

// Self returns the local player and whether the server has placed it yet.
func (s *Store) Self() (model.Player, bool) {
	return s.self, s.selfKnown
}

func (s *Store) Player(name string) (model.Player, bool) {
	p, ok := s.players[name]
	return p, ok
}

// Players returns remote players ordered by username.
func (s *Store) Players() []model.Player {
	out := make([]model.Player, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

func (s *Store) Cell(p model.Position) (model.Cell, bool) {
	c, ok := s.grid[p]
	return c, ok
}

func (s *Store) CellCount() int { return len(s.grid) }

// EachCell visits every painted cell in unspecified order.
func (s *Store) EachCell(f func(model.Position, model.Cell)) {
	for p, c := range s.grid {
		f(p, c)
	}
}

// Color returns the best known color for a username: the authoritative map first,
// then the live player record.
func (s *Store) Color(name string) string {
	if c, ok := s.colors[name]; ok && c != "" {
		return c
	}
	if name == s.selfName {
		return s.self.Color
	}
	return s.players[name].Color
}

// Known lists everyone the leaderboard must show: self, present players and cell owners.
func (s *Store) Known() []string {
	seen := map[string]struct{}{s.selfName: {}}
	for name := range s.players {
		seen[name] = struct{}{}
	}
	for _, c := range s.grid {
		seen[c.Username] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Apply reduces one inbound event into the store.
func (s *Store) Apply(ev model.Event) Change {
	switch e := ev.(type) {
	case model.PlayerJoined:
		return s.join(e.Player)
	case model.PlayerMoved:
		return s.move(e.Player)
	case model.PlayerLeft:
		return s.leave(e.Username)
	case model.GameState:
		return s.replacePlayers(e.Players)
	case model.PlayerData:
		return s.initSelf(e.Player)
	case model.GridState:
		return s.replaceGrid(e.Cells, e.UserColors)
	case model.CellPainted:
		return s.paint(e.Position(), e.Cell())
	default:
		log.WithField("event", ev.EventName()).Warn("store has no reducer")
		return 0
	}
}

func (s *Store) join(p model.Player) Change {
	if p.Username == s.selfName {
		log.WithField("username", p.Username).Debug("ignoring join naming self")
		return 0
	}
	ch := s.upsert(p)
	// the server's own paint event for the start cell may lag behind
	return ch | s.paint(p.Position, model.Cell{Username: p.Username, Color: p.Color})
}

func (s *Store) move(p model.Player) Change {
	if p.Username == s.selfName {
		return s.setSelf(p)
	}
	return s.upsert(p)
}

func (s *Store) leave(name string) Change {
	if _, ok := s.players[name]; !ok {
		return 0
	}
	delete(s.players, name)
	return ChangePlayers
}

func (s *Store) upsert(p model.Player) Change {
	if old, ok := s.players[p.Username]; ok {
		if p.Color == "" {
			p.Color = old.Color
		}
		if p.Avatar == "" {
			p.Avatar = old.Avatar
		}
		if old == p {
			return 0
		}
	}
	s.players[p.Username] = p
	return ChangePlayers
}

func (s *Store) replacePlayers(ps []model.Player) Change {
	next := make(map[string]model.Player, len(ps))
	for _, p := range ps {
		if p.Username == s.selfName {
			continue
		}
		next[p.Username] = p
	}
	if equalPlayers(s.players, next) {
		return 0
	}
	s.players = next
	return ChangePlayers
}

func (s *Store) initSelf(p model.Player) Change {
	ch := s.setSelf(p)
	return ch | s.paint(p.Position, model.Cell{Username: s.selfName, Color: s.self.Color})
}

// setSelf overwrites the local player with the server's view. Fields the server
// left empty keep their previous value.
func (s *Store) setSelf(p model.Player) Change {
	next := s.self
	next.Position = p.Position
	if p.Color != "" {
		next.Color = p.Color
	}
	if p.Avatar != "" {
		next.Avatar = p.Avatar
	}
	if s.selfKnown && next == s.self {
		return 0
	}
	s.self = next
	s.selfKnown = true
	return ChangeSelf
}

// SetSelfAvatar records an avatar learned out of band, e.g. from the profile service.
func (s *Store) SetSelfAvatar(ref string) Change {
	if ref == "" || s.self.Avatar == ref {
		return 0
	}
	s.self.Avatar = ref
	return ChangeSelf
}

func (s *Store) paint(pos model.Position, c model.Cell) Change {
	if !s.size.Contains(pos) {
		log.WithFields(log.Fields{"x": pos.X, "y": pos.Y}).Warn("ignoring paint outside the world")
		return 0
	}
	if old, ok := s.grid[pos]; ok && old == c {
		return 0
	}
	s.grid[pos] = c
	return ChangeGrid
}

func (s *Store) replaceGrid(cells []model.PaintedCell, colors map[string]string) Change {
	next := make(map[model.Position]model.Cell, len(cells))
	for _, c := range cells {
		pos := c.Position()
		if !s.size.Contains(pos) {
			continue
		}
		next[pos] = c.Cell()
	}
	var ch Change
	if !equalGrid(s.grid, next) {
		s.grid = next
		ch |= ChangeGrid
	}
	if colors != nil {
		s.colors = make(map[string]string, len(colors))
		for name, c := range colors {
			s.colors[name] = c
		}
		ch |= ChangeColors
	}
	return ch
}

func equalPlayers(a, b map[string]model.Player) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}

func equalGrid(a, b map[model.Position]model.Cell) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}
