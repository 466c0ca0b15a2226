package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMalformed    = errors.New("malformed event")
	ErrUnknownEvent = errors.New("unknown event")
)

// Local lifecycle events, synthesized by the connection and never sent on the wire.
const (
	EventConnect      = "connect"
	EventDisconnect   = "disconnect"
	EventConnectError = "connect_error"
)

const (
	EventPlayerJoined = "player_joined"
	EventPlayerLeft   = "player_left"
	EventPlayerMoved  = "player_moved"
	EventGameState    = "game_state"
	EventPlayerData   = "player_data"
	EventGridState    = "grid_state"
	EventCellPainted  = "cell_painted"
)

// Event is one decoded inbound message.
type Event interface {
	EventName() string
	Validate() error
}

type PlayerJoined struct {
	Player
}

type PlayerLeft struct {
	Username string `json:"username"`
}

type PlayerMoved struct {
	Player
}

type GameState struct {
	Players []Player `json:"players"`
}

// PlayerData initializes the local player after join.
type PlayerData struct {
	Player
}

type GridState struct {
	Cells      []PaintedCell     `json:"cells"`
	UserColors map[string]string `json:"user_colors,omitempty"`
}

type CellPainted struct {
	PaintedCell
}

type ConnectError struct {
	Message string `json:"error"`
}

func (PlayerJoined) EventName() string { return EventPlayerJoined }
func (PlayerLeft) EventName() string   { return EventPlayerLeft }
func (PlayerMoved) EventName() string  { return EventPlayerMoved }
func (GameState) EventName() string    { return EventGameState }
func (PlayerData) EventName() string   { return EventPlayerData }
func (GridState) EventName() string    { return EventGridState }
func (CellPainted) EventName() string  { return EventCellPainted }

func (p Player) Validate() error {
	if p.Username == "" {
		return fmt.Errorf("%w: missing username", ErrMalformed)
	}
	if p.Position.X < 0 || p.Position.Y < 0 {
		return fmt.Errorf("%w: negative position %d,%d for %s", ErrMalformed, p.Position.X, p.Position.Y, p.Username)
	}
	return nil
}

func (e PlayerLeft) Validate() error {
	if e.Username == "" {
		return fmt.Errorf("%w: missing username", ErrMalformed)
	}
	return nil
}

func (e GameState) Validate() error {
	for i, p := range e.Players {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("player %d: %w", i, err)
		}
	}
	return nil
}

func (c PaintedCell) Validate() error {
	if c.Username == "" {
		return fmt.Errorf("%w: cell %d,%d has no owner", ErrMalformed, c.X, c.Y)
	}
	if c.X < 0 || c.Y < 0 {
		return fmt.Errorf("%w: negative cell %d,%d", ErrMalformed, c.X, c.Y)
	}
	return nil
}

func (e GridState) Validate() error {
	for i, c := range e.Cells {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("cell %d: %w", i, err)
		}
	}
	return nil
}

// Decode turns a named wire payload into its typed variant.
// A nil error guarantees the event passed Validate.
func Decode(name string, data []byte) (Event, error) {
	var ev Event
	switch name {
	case EventPlayerJoined:
		ev = &PlayerJoined{}
	case EventPlayerLeft:
		ev = &PlayerLeft{}
	case EventPlayerMoved:
		ev = &PlayerMoved{}
	case EventGameState:
		ev = &GameState{}
	case EventPlayerData:
		ev = &PlayerData{}
	case EventGridState:
		ev = &GridState{}
	case EventCellPainted:
		ev = &CellPainted{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s without payload", ErrMalformed, name)
	}
	if err := json.Unmarshal(data, ev); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, name, err)
	}
	if err := ev.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return deref(ev), nil
}

func deref(ev Event) Event {
	switch e := ev.(type) {
	case *PlayerJoined:
		return *e
	case *PlayerLeft:
		return *e
	case *PlayerMoved:
		return *e
	case *GameState:
		return *e
	case *PlayerData:
		return *e
	case *GridState:
		return *e
	case *CellPainted:
		return *e
	}
	return ev
}
