// Package input turns directional key edges into a repeating stream of move requests.
package input

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/zucenko/painter/dispatch"
	"github.com/zucenko/painter/model"
)

type Direction int

const (
	None Direction = iota
	Up
	Down
	Left
	Right
)

func (d Direction) Name() string {
	switch d {
	case None:
		return "NONE"
	case Up:
		return "UP"
	case Down:
		return "DOWN"
	case Left:
		return "LEFT"
	case Right:
		return "RIGHT"
	default:
		return fmt.Sprintf("N/A(%d)", d)
	}
}

func (d Direction) Delta() (dx, dy int) {
	switch d {
	case Up:
		return 0, -1
	case Down:
		return 0, 1
	case Left:
		return -1, 0
	case Right:
		return 1, 0
	}
	return 0, 0
}

type State int

const (
	IDLE State = iota + 1
	MOVING
)

func (s State) Name() string {
	switch s {
	case IDLE:
		return "IDLE"
	case MOVING:
		return "MOVING"
	default:
		return fmt.Sprintf("N/A(%d)", s)
	}
}

// Keymap binds physical key codes to directions. Several keys may share a direction.
type Keymap map[int]Direction

// Held reports whether any key bound to d is still down.
func (m Keymap) Held(d Direction, isDown func(key int) bool) bool {
	for k, kd := range m {
		if kd == d && isDown(k) {
			return true
		}
	}
	return false
}

// Sender is the outbound side of the connection.
type Sender interface {
	Send(event string, payload interface{}) error
	Connected() bool
}

// Locator reports the last server-confirmed position of the local player.
type Locator interface {
	Self() (model.Player, bool)
}

// Controller never moves the local player itself; only the server echo does.
type Controller struct {
	sched    dispatch.Scheduler
	interval time.Duration
	world    model.Size
	sender   Sender
	locator  Locator

	state State
	dir   Direction
	timer dispatch.Timer
}

func NewController(sched dispatch.Scheduler, interval time.Duration, world model.Size, sender Sender, locator Locator) *Controller {
	return &Controller{
		sched:    sched,
		interval: interval,
		world:    world,
		sender:   sender,
		locator:  locator,
		state:    IDLE,
	}
}

func (c *Controller) State() State { return c.state }

func (c *Controller) Direction() Direction { return c.dir }

func (c *Controller) KeyDown(d Direction) {
	if d == None {
		return
	}
	if c.state == MOVING && c.dir == d {
		return
	}
	c.stopTimer()
	c.state = MOVING
	c.dir = d
	c.emit()
	c.timer = c.sched.Every(c.interval, c.emit)
}

func (c *Controller) KeyUp(d Direction) {
	if c.state != MOVING || c.dir != d {
		return
	}
	c.Cancel()
}

// Cancel drops any held direction. Used on key release, disconnect and teardown.
func (c *Controller) Cancel() {
	c.stopTimer()
	c.state = IDLE
	c.dir = None
}

func (c *Controller) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) emit() {
	if !c.sender.Connected() {
		return
	}
	self, ok := c.locator.Self()
	if !ok {
		return
	}
	next := c.world.Clamp(self.Position.Add(c.dir.Delta()))
	if next == self.Position {
		return
	}
	if err := c.sender.Send(model.EventMove, model.Move{Position: next}); err != nil {
		log.WithError(err).WithField("direction", c.dir.Name()).Debug("move not sent")
	}
}
