package input

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zucenko/painter/dispatch"
	"github.com/zucenko/painter/model"
)

type fakeTimer struct {
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() { t.stopped = true }

type fakeScheduler struct {
	timers []*fakeTimer
}

func (s *fakeScheduler) Every(d time.Duration, f func()) dispatch.Timer {
	t := &fakeTimer{f: f}
	s.timers = append(s.timers, t)
	return t
}

// tick fires every live timer once, the way the queue would after one interval.
func (s *fakeScheduler) tick() {
	for _, t := range s.timers {
		if !t.stopped {
			t.f()
		}
	}
}

func (s *fakeScheduler) live() int {
	n := 0
	for _, t := range s.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

type fakeSender struct {
	online bool
	moves  []model.Position
}

func (f *fakeSender) Send(event string, payload interface{}) error {
	f.moves = append(f.moves, payload.(model.Move).Position)
	return nil
}

func (f *fakeSender) Connected() bool { return f.online }

type fakeLocator struct {
	self  model.Player
	known bool
}

func (f *fakeLocator) Self() (model.Player, bool) { return f.self, f.known }

func setup(x, y int) (*Controller, *fakeScheduler, *fakeSender, *fakeLocator) {
	sched := &fakeScheduler{}
	sender := &fakeSender{online: true}
	loc := &fakeLocator{self: model.Player{Username: "me", Position: model.Position{X: x, Y: y}}, known: true}
	c := NewController(sched, 100*time.Millisecond, model.Size{Cols: 100, Rows: 100}, sender, loc)
	return c, sched, sender, loc
}

func TestHoldEmitsImmediatelyThenRepeats(t *testing.T) {
	c, sched, sender, loc := setup(10, 10)

	c.KeyDown(Right)
	require.Equal(t, []model.Position{{X: 11, Y: 10}}, sender.moves)
	assert.Equal(t, MOVING, c.State())

	loc.self.Position = model.Position{X: 11, Y: 10}
	sched.tick()
	loc.self.Position = model.Position{X: 12, Y: 10}
	sched.tick()
	assert.Equal(t, []model.Position{{X: 11, Y: 10}, {X: 12, Y: 10}, {X: 13, Y: 10}}, sender.moves)

	c.KeyUp(Right)
	sched.tick()
	assert.Len(t, sender.moves, 3)
	assert.Equal(t, IDLE, c.State())
	assert.Equal(t, 0, sched.live())
}

func TestRepeatUsesLatestPositionNotKeyDownPosition(t *testing.T) {
	c, sched, sender, _ := setup(10, 10)
	c.KeyDown(Down)
	// no echo arrived: the same target is requested again
	sched.tick()
	assert.Equal(t, []model.Position{{X: 10, Y: 11}, {X: 10, Y: 11}}, sender.moves)
}

func TestReleasingInactiveKeyIsNoop(t *testing.T) {
	c, sched, sender, _ := setup(10, 10)
	c.KeyUp(Left)
	assert.Empty(t, sender.moves)

	c.KeyDown(Up)
	c.KeyUp(Left)
	assert.Equal(t, MOVING, c.State())
	assert.Equal(t, 1, sched.live())
	assert.Len(t, sender.moves, 1)
}

func TestSwitchingDirectionRestartsRepeat(t *testing.T) {
	c, sched, sender, _ := setup(10, 10)
	c.KeyDown(Up)
	c.KeyDown(Left)

	assert.Equal(t, []model.Position{{X: 10, Y: 9}, {X: 9, Y: 10}}, sender.moves)
	assert.Equal(t, 1, sched.live())
	assert.True(t, sched.timers[0].stopped)
	assert.Equal(t, Left, c.Direction())

	sched.tick()
	assert.Equal(t, model.Position{X: 9, Y: 10}, sender.moves[2])
}

func TestSameDirectionKeyDownIgnored(t *testing.T) {
	c, sched, sender, _ := setup(10, 10)
	c.KeyDown(Up)
	c.KeyDown(Up)
	assert.Len(t, sender.moves, 1)
	assert.Len(t, sched.timers, 1)
}

func TestClampedAtWorldEdge(t *testing.T) {
	c, _, sender, _ := setup(0, 0)
	c.KeyDown(Left)
	c.KeyDown(Up)
	assert.Empty(t, sender.moves)

	c2, _, sender2, _ := setup(99, 99)
	c2.KeyDown(Right)
	c2.KeyDown(Down)
	assert.Empty(t, sender2.moves)
}

func TestSuppressedWhileDisconnected(t *testing.T) {
	c, sched, sender, _ := setup(10, 10)
	sender.online = false
	c.KeyDown(Right)
	sched.tick()
	assert.Empty(t, sender.moves)
}

func TestNoMoveBeforeSelfKnown(t *testing.T) {
	c, _, sender, loc := setup(10, 10)
	loc.known = false
	c.KeyDown(Right)
	assert.Empty(t, sender.moves)
}

func TestCancelStopsTimer(t *testing.T) {
	c, sched, _, _ := setup(10, 10)
	c.KeyDown(Right)
	c.Cancel()
	assert.Equal(t, 0, sched.live())
	assert.Equal(t, None, c.Direction())
}

func TestSharedBindingKeepsMoving(t *testing.T) {
	const arrowRight, keyD, arrowLeft = 1, 2, 3
	keys := Keymap{arrowRight: Right, keyD: Right, arrowLeft: Left}
	down := map[int]bool{}
	isDown := func(k int) bool { return down[k] }

	c, sched, _, _ := setup(10, 10)
	press := func(k int) {
		down[k] = true
		c.KeyDown(keys[k])
	}
	release := func(k int) {
		down[k] = false
		if !keys.Held(keys[k], isDown) {
			c.KeyUp(keys[k])
		}
	}

	press(arrowRight)
	press(keyD)
	release(keyD)
	assert.Equal(t, MOVING, c.State())
	assert.Equal(t, Right, c.Direction())
	assert.Equal(t, 1, sched.live())

	release(arrowRight)
	assert.Equal(t, IDLE, c.State())
	assert.Equal(t, 0, sched.live())
	assert.False(t, keys.Held(Left, isDown))
}
