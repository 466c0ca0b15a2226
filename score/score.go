// Package score derives the leaderboard and the local player's achievements from the grid.
package score

import (
	"sort"

	"github.com/zucenko/painter/model"
)

type Entry struct {
	Username string
	Count    int
}

// Source is the read side of the world store the engine needs.
type Source interface {
	EachCell(f func(model.Position, model.Cell))
	Known() []string
}

// Thresholds are the owned-cell counts unlocking fiftyPoints, hundredPoints and twoHundredPoints.
type Thresholds [3]int

var DefaultThresholds = Thresholds{50, 100, 200}

type Engine struct {
	self       string
	thresholds Thresholds

	counts   map[string]int
	board    []Entry
	achieved model.Achievements
}

func NewEngine(self string, thresholds Thresholds) *Engine {
	return &Engine{
		self:       self,
		thresholds: thresholds,
		counts:     map[string]int{},
	}
}

// Rank counts cells per owner and lists every known player, zero counts included,
// ordered by count descending then username ascending.
func Rank(src Source) ([]Entry, map[string]int) {
	counts := map[string]int{}
	src.EachCell(func(_ model.Position, c model.Cell) {
		counts[c.Username]++
	})
	known := src.Known()
	board := make([]Entry, 0, len(known))
	seen := make(map[string]struct{}, len(known))
	for _, name := range known {
		seen[name] = struct{}{}
		board = append(board, Entry{Username: name, Count: counts[name]})
	}
	for name, n := range counts {
		if _, ok := seen[name]; !ok {
			board = append(board, Entry{Username: name, Count: n})
		}
	}
	sort.Slice(board, func(i, j int) bool {
		if board[i].Count != board[j].Count {
			return board[i].Count > board[j].Count
		}
		return board[i].Username < board[j].Username
	})
	return board, counts
}

// Recompute rebuilds the leaderboard and reports whether an achievement was newly unlocked.
func (e *Engine) Recompute(src Source) bool {
	e.board, e.counts = Rank(src)
	return e.evaluate(e.counts[e.self])
}

func (e *Engine) evaluate(n int) bool {
	next := e.achieved.Merge(model.Achievements{
		FiftyPoints:      n >= e.thresholds[0],
		HundredPoints:    n >= e.thresholds[1],
		TwoHundredPoints: n >= e.thresholds[2],
	})
	changed := next != e.achieved
	e.achieved = next
	return changed
}

// Seed merges flags persisted in an earlier session. It never clears a flag.
func (e *Engine) Seed(a model.Achievements) bool {
	next := e.achieved.Merge(a)
	changed := next != e.achieved
	e.achieved = next
	return changed
}

func (e *Engine) Leaderboard() []Entry {
	return e.board
}

func (e *Engine) Count(name string) int {
	return e.counts[name]
}

func (e *Engine) Achievements() model.Achievements {
	return e.achieved
}

func (e *Engine) Thresholds() Thresholds {
	return e.thresholds
}
