package model

type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Position) Add(dx, dy int) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// Size is a grid extent in cells. Cols bounds X, Rows bounds Y.
type Size struct {
	Cols, Rows int
}

func (s Size) Contains(p Position) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < s.Cols && p.Y < s.Rows
}

func (s Size) Clamp(p Position) Position {
	return Position{X: clamp(p.X, 0, s.Cols-1), Y: clamp(p.Y, 0, s.Rows-1)}
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

type Player struct {
	Username string   `json:"username"`
	Position Position `json:"position"`
	Color    string   `json:"color,omitempty"`
	Avatar   string   `json:"avatar,omitempty"`
}

// Cell is the owner of one painted grid square.
type Cell struct {
	Username string
	Color    string
}

type PaintedCell struct {
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Username string `json:"username"`
	Color    string `json:"color"`
}

func (c PaintedCell) Position() Position {
	return Position{X: c.X, Y: c.Y}
}

func (c PaintedCell) Cell() Cell {
	return Cell{Username: c.Username, Color: c.Color}
}
