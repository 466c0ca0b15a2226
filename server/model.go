// Package server is a development room: it relays the paint protocol between
// connected clients, keeps the grid in memory and assigns colors.
package server

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/zucenko/painter/model"
)

type GameServer struct {
	Config   Config
	Rooms    map[string]*Room
	Requests chan RoomRequest
	Upgrader *websocket.Upgrader
	done     chan struct{}
}

type RoomState int

const (
	RS_EMPTY RoomState = iota + 1
	RS_PLAY
)

// Room serializes every change of one world through its Loop goroutine.
type Room struct {
	Name  string
	State RoomState
	World *World

	Sessions map[*PlayerSession]struct{}

	Joins  chan *PlayerSession
	Events chan PlayerEvent
	Leaves chan *PlayerSession
}

type PlayerSessionState int

const (
	PS_NEW PlayerSessionState = iota + 1
	PS_PLAY
	PS_OVER
	PS_ERR
)

type PlayerSession struct {
	State    PlayerSessionState
	Username string
	Room     *Room
	Conn     *websocket.Conn
	GameOver chan struct{}

	MessagesToSend chan model.Envelope

	DebugInMessages  int
	DebugOutMessages int
	DebugLastMessage time.Time
}

// World is the authoritative state of a room. It is only touched from Room.Loop.
type World struct {
	Size    model.Size
	Palette []string
	Players map[string]model.Player
	Grid    map[model.Position]model.Cell
	Colors  map[string]string

	Achievements map[string]model.Achievements
}

// Outgoing is a frame addressed either to one player or to everyone in the room.
type Outgoing struct {
	To       string
	Except   string
	Envelope model.Envelope
}
