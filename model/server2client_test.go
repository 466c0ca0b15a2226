package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeVariants(t *testing.T) {
	ev, err := Decode(EventPlayerMoved, []byte(`{"username":"bob","position":{"x":3,"y":4},"color":"#fff"}`))
	require.NoError(t, err)
	moved, ok := ev.(PlayerMoved)
	require.True(t, ok)
	assert.Equal(t, Position{X: 3, Y: 4}, moved.Position)
	assert.Equal(t, EventPlayerMoved, moved.EventName())

	ev, err = Decode(EventGridState, []byte(`{"cells":[{"x":1,"y":2,"username":"a","color":"#f00"}],"user_colors":{"a":"#f00"}}`))
	require.NoError(t, err)
	grid := ev.(GridState)
	require.Len(t, grid.Cells, 1)
	assert.Equal(t, Cell{Username: "a", Color: "#f00"}, grid.Cells[0].Cell())
	assert.Equal(t, "#f00", grid.UserColors["a"])

	ev, err = Decode(EventCellPainted, []byte(`{"x":0,"y":0,"username":"a","color":"#f00"}`))
	require.NoError(t, err)
	assert.Equal(t, Position{}, ev.(CellPainted).Position())

	ev, err = Decode(EventPlayerLeft, []byte(`{"username":"a"}`))
	require.NoError(t, err)
	assert.Equal(t, PlayerLeft{Username: "a"}, ev)
}

func TestDecodeRejects(t *testing.T) {
	cases := map[string]struct {
		event string
		data  string
	}{
		"not json":         {EventCellPainted, `{`},
		"empty":            {EventPlayerJoined, ``},
		"no username":      {EventPlayerMoved, `{"position":{"x":1,"y":1}}`},
		"negative":         {EventCellPainted, `{"x":-1,"y":0,"username":"a"}`},
		"bad player in gs": {EventGameState, `{"players":[{"username":""}]}`},
		"wrong type":       {EventPlayerData, `{"username":"a","position":{"x":"1"}}`},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(c.event, []byte(c.data))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformed))
		})
	}

	_, err := Decode("dance", []byte(`{}`))
	assert.True(t, errors.Is(err, ErrUnknownEvent))
}

func TestAchievementsMergeNeverClears(t *testing.T) {
	a := Achievements{FiftyPoints: true, HundredPoints: true}
	m := a.Merge(Achievements{TwoHundredPoints: true})
	assert.True(t, m.AllUnlocked)
	assert.Equal(t, m, m.Merge(Achievements{}))
}

func TestSizeClamp(t *testing.T) {
	s := Size{Cols: 10, Rows: 5}
	assert.Equal(t, Position{X: 9, Y: 0}, s.Clamp(Position{X: 12, Y: -3}))
	assert.True(t, s.Contains(Position{X: 9, Y: 4}))
	assert.False(t, s.Contains(Position{X: 10, Y: 4}))
}
