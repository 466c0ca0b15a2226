package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zucenko/painter/model"
	"github.com/zucenko/painter/world"
)

func storeWith(counts map[string]int, joined ...string) *world.Store {
	s := world.NewStore("me", model.Size{Cols: 100, Rows: 100})
	for _, name := range joined {
		s.Apply(model.PlayerMoved{Player: model.Player{Username: name}})
	}
	x := 0
	for name, n := range counts {
		for i := 0; i < n; i++ {
			s.Apply(model.CellPainted{PaintedCell: model.PaintedCell{X: x % 100, Y: x / 100, Username: name, Color: "#fff"}})
			x++
		}
	}
	return s
}

func TestRankIncludesZeroCountPlayers(t *testing.T) {
	s := storeWith(map[string]int{"A": 3, "B": 5}, "A", "B", "C")
	board, _ := Rank(s)
	assert.Equal(t, []Entry{{"B", 5}, {"A", 3}, {"C", 0}, {"me", 0}}, board)
}

func TestRankTieBreaksByUsername(t *testing.T) {
	s := storeWith(map[string]int{"zed": 2, "amy": 2, "me": 2})
	board, _ := Rank(s)
	assert.Equal(t, []Entry{{"amy", 2}, {"me", 2}, {"zed", 2}}, board)
}

func TestAchievementsUnlockAtThresholds(t *testing.T) {
	e := NewEngine("me", Thresholds{2, 3, 5})

	assert.False(t, e.Recompute(storeWith(map[string]int{"me": 1})))
	assert.True(t, e.Recompute(storeWith(map[string]int{"me": 3})))
	assert.Equal(t, model.Achievements{FiftyPoints: true, HundredPoints: true}, e.Achievements())

	assert.True(t, e.Recompute(storeWith(map[string]int{"me": 5})))
	assert.True(t, e.Achievements().AllUnlocked)
}

func TestAchievementsAreMonotonic(t *testing.T) {
	e := NewEngine("me", DefaultThresholds)
	assert.True(t, e.Recompute(storeWith(map[string]int{"me": 50})))
	assert.True(t, e.Achievements().FiftyPoints)

	assert.False(t, e.Recompute(storeWith(map[string]int{"me": 10})))
	assert.True(t, e.Achievements().FiftyPoints)
	assert.Equal(t, 10, e.Count("me"))
}

func TestSeedNeverClears(t *testing.T) {
	e := NewEngine("me", DefaultThresholds)
	assert.True(t, e.Seed(model.Achievements{HundredPoints: true}))
	assert.False(t, e.Seed(model.Achievements{}))
	assert.True(t, e.Achievements().HundredPoints)
	assert.False(t, e.Achievements().AllUnlocked)
}
