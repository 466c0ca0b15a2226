package model

import (
	"encoding/json"
	"fmt"
)

const (
	EventJoinGame           = "join_game"
	EventMove               = "move"
	EventUpdateAchievements = "update_achievements"
)

type JoinGame struct {
	Username string `json:"username"`
	Room     string `json:"room"`
}

type Move struct {
	Position Position `json:"position"`
}

type Achievements struct {
	FiftyPoints      bool `json:"fiftyPoints"`
	HundredPoints    bool `json:"hundredPoints"`
	TwoHundredPoints bool `json:"twoHundredPoints"`
	AllUnlocked      bool `json:"allUnlocked"`
}

// Merge ORs two flag sets; flags never go back to false.
func (a Achievements) Merge(o Achievements) Achievements {
	m := Achievements{
		FiftyPoints:      a.FiftyPoints || o.FiftyPoints,
		HundredPoints:    a.HundredPoints || o.HundredPoints,
		TwoHundredPoints: a.TwoHundredPoints || o.TwoHundredPoints,
	}
	m.AllUnlocked = m.FiftyPoints && m.HundredPoints && m.TwoHundredPoints
	return m
}

type UpdateAchievements struct {
	Username     string       `json:"username"`
	Achievements Achievements `json:"achievements"`
}

// Envelope is the frame carried by every websocket text message.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func NewEnvelope(event string, payload interface{}) (Envelope, error) {
	if payload == nil {
		return Envelope{Event: event}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encoding %s: %w", event, err)
	}
	return Envelope{Event: event, Data: data}, nil
}
