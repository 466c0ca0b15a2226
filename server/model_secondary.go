package server

import (
	"fmt"
	"net/http"

	"github.com/zucenko/painter/model"
)

type ResponseCode int

const (
	ROOM_READY ResponseCode = iota
	ROOM_INVALID
	ROOM_CLOSED
)

func (h ResponseCode) ToHttp() int {
	switch h {
	case ROOM_READY:
		return http.StatusOK
	case ROOM_INVALID:
		return http.StatusBadRequest
	case ROOM_CLOSED:
		return http.StatusServiceUnavailable
	default:
		panic(h)
	}
}

func (rs RoomState) Name() string {
	switch rs {
	case RS_EMPTY:
		return "EMPTY"
	case RS_PLAY:
		return "PLAY"
	default:
		return fmt.Sprintf("n/a:%d", rs)
	}
}

func (ps PlayerSessionState) Name() string {
	switch ps {
	case PS_NEW:
		return "NEW"
	case PS_PLAY:
		return "PLAY"
	case PS_OVER:
		return "OVER"
	case PS_ERR:
		return "ERR"
	default:
		return "N/A"
	}
}

type RoomAwaiting struct {
	ResponseCode ResponseCode
	Room         *Room
}

type RoomRequest struct {
	Name         string
	RoomAwaiting chan RoomAwaiting
}

type PlayerEvent struct {
	Session  *PlayerSession
	Envelope model.Envelope
}
