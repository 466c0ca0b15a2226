package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"github.com/zucenko/painter/model"
)

const writeWait = 10 * time.Second

func NewGameServer(cfg Config) *GameServer {
	return &GameServer{
		Config:   cfg,
		Rooms:    make(map[string]*Room),
		Requests: make(chan RoomRequest),
		Upgrader: &websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		done: make(chan struct{}),
	}
}

// HandleHttpCall upgrades the request and keeps it open until the player leaves.
// roomName extracts the room from the request, usually a router parameter.
func (s *GameServer) HandleHttpCall(roomName func(r *http.Request) string) http.HandlerFunc {
	timeout := s.Config.Timeout
	return func(w http.ResponseWriter, r *http.Request) {
		name := roomName(r)
		logger := log.WithField("room", name)
		logger.Debug("HandleHttpCall connection received")

		awaiting := make(chan RoomAwaiting, 1)
		select {
		case s.Requests <- RoomRequest{Name: name, RoomAwaiting: awaiting}:
		case <-time.After(timeout):
			logger.Warn("room request timed out")
			w.WriteHeader(http.StatusRequestTimeout)
			return
		}

		var ra RoomAwaiting
		select {
		case ra = <-awaiting:
			if ra.ResponseCode != ROOM_READY {
				w.WriteHeader(ra.ResponseCode.ToHttp())
				return
			}
		case <-time.After(timeout):
			logger.Warn("room awaiting timed out")
			w.WriteHeader(http.StatusRequestTimeout)
			return
		}

		con, err := s.Upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already replied
			logger.WithError(err).Warn("websocket upgrade failed")
			return
		}
		defer con.Close()

		ps := &PlayerSession{
			State:          PS_NEW,
			Room:           ra.Room,
			Conn:           con,
			GameOver:       make(chan struct{}),
			MessagesToSend: make(chan model.Envelope, s.Config.SendBuffer),
		}
		select {
		case ra.Room.Joins <- ps:
		case <-s.done:
			return
		}

		go ps.LoopChannelWrite()
		go ps.LoopChannelRead(s.done)

		<-ps.GameOver
		logger.Debug("HandleHttpCall player over")
	}
}

// Loop hands out rooms, creating them on first use.
func (s *GameServer) Loop() {
	log.Info("GameServer.Loop starting")
	for {
		select {
		case req := <-s.Requests:
			if req.Name == "" {
				req.RoomAwaiting <- RoomAwaiting{ResponseCode: ROOM_INVALID}
				continue
			}
			room, ok := s.Rooms[req.Name]
			if !ok {
				log.WithField("room", req.Name).Info("creating room")
				room = NewRoom(req.Name, NewWorld(s.Config.Size(), s.Config.Palette))
				s.Rooms[req.Name] = room
				go room.Loop(s.done)
			}
			req.RoomAwaiting <- RoomAwaiting{ResponseCode: ROOM_READY, Room: room}
		case <-s.done:
			log.Info("GameServer.Loop ended")
			return
		}
	}
}

// Close stops every room and releases the connected players.
func (s *GameServer) Close() {
	close(s.done)
}

func NewRoom(name string, world *World) *Room {
	return &Room{
		Name:     name,
		State:    RS_EMPTY,
		World:    world,
		Sessions: make(map[*PlayerSession]struct{}),
		Joins:    make(chan *PlayerSession),
		Events:   make(chan PlayerEvent),
		Leaves:   make(chan *PlayerSession),
	}
}

func (r *Room) Loop(done <-chan struct{}) {
	logger := log.WithField("room", r.Name)
	logger.Info("Room.Loop start")
	for {
		select {
		case ps := <-r.Joins:
			r.Sessions[ps] = struct{}{}
			r.State = RS_PLAY
		case pe := <-r.Events:
			r.handle(pe)
		case ps := <-r.Leaves:
			r.remove(ps, PS_OVER)
		case <-done:
			for ps := range r.Sessions {
				r.remove(ps, PS_OVER)
			}
			logger.Info("Room.Loop ended")
			return
		}
	}
}

func (r *Room) handle(pe PlayerEvent) {
	ps := pe.Session
	if _, ok := r.Sessions[ps]; !ok {
		return
	}
	logger := log.WithFields(log.Fields{"room": r.Name, "event": pe.Envelope.Event, "username": ps.Username})

	switch pe.Envelope.Event {
	case model.EventJoinGame:
		var join model.JoinGame
		if err := json.Unmarshal(pe.Envelope.Data, &join); err != nil || join.Username == "" {
			logger.Warn("bad join")
			return
		}
		if join.Room != "" && join.Room != r.Name {
			logger.WithField("join_room", join.Room).Warn("join names another room, closing")
			r.remove(ps, PS_ERR)
			return
		}
		ps.Username = join.Username
		ps.State = PS_PLAY
		logger.WithField("username", join.Username).Info("player joined")
		r.deliver(r.World.Join(join.Username))
	case model.EventMove:
		if ps.State != PS_PLAY {
			logger.Warn("move before join")
			return
		}
		var mv model.Move
		if err := json.Unmarshal(pe.Envelope.Data, &mv); err != nil {
			logger.WithError(err).Warn("bad move")
			return
		}
		r.deliver(r.World.Move(ps.Username, mv.Position))
	case model.EventUpdateAchievements:
		var ua model.UpdateAchievements
		if err := json.Unmarshal(pe.Envelope.Data, &ua); err != nil || ps.State != PS_PLAY {
			logger.Warn("bad achievements")
			return
		}
		r.World.UpdateAchievements(ps.Username, ua.Achievements)
		logger.WithField("achievements", ua.Achievements).Debug("achievements recorded")
	default:
		logger.Warn("unknown event")
	}
}

// deliver fans frames out to joined sessions. A session that cannot keep up is dropped.
func (r *Room) deliver(outs []Outgoing) {
	var slow []*PlayerSession
	for _, out := range outs {
		for ps := range r.Sessions {
			if ps.State != PS_PLAY {
				continue
			}
			if out.To != "" && ps.Username != out.To {
				continue
			}
			if out.Except != "" && ps.Username == out.Except {
				continue
			}
			select {
			case ps.MessagesToSend <- out.Envelope:
			default:
				slow = append(slow, ps)
			}
		}
	}
	for _, ps := range slow {
		log.WithField("username", ps.Username).Warn("outbox full, dropping player")
		r.remove(ps, PS_ERR)
	}
}

func (r *Room) remove(ps *PlayerSession, state PlayerSessionState) {
	if _, ok := r.Sessions[ps]; !ok {
		return
	}
	delete(r.Sessions, ps)
	joined := ps.State == PS_PLAY
	ps.State = state
	close(ps.MessagesToSend)
	close(ps.GameOver)
	if len(r.Sessions) == 0 {
		r.State = RS_EMPTY
	}
	if !joined || r.online(ps.Username) {
		return
	}
	log.WithFields(log.Fields{"room": r.Name, "username": ps.Username}).Info("player left")
	r.deliver(r.World.Leave(ps.Username))
}

func (r *Room) online(username string) bool {
	for ps := range r.Sessions {
		if ps.State == PS_PLAY && ps.Username == username {
			return true
		}
	}
	return false
}

func (ps *PlayerSession) LoopChannelRead(done <-chan struct{}) {
	for {
		_, rd, err := ps.Conn.NextReader()
		if err != nil {
			log.WithError(err).Debug("LoopChannelRead ended")
			break
		}
		var env model.Envelope
		if err := json.NewDecoder(rd).Decode(&env); err != nil {
			log.WithError(err).Warn("LoopChannelRead cant decode")
			continue
		}
		ps.DebugInMessages++
		ps.DebugLastMessage = time.Now()
		select {
		case ps.Room.Events <- PlayerEvent{Session: ps, Envelope: env}:
		case <-ps.GameOver:
			return
		case <-done:
			return
		}
	}
	select {
	case ps.Room.Leaves <- ps:
	case <-ps.GameOver:
	case <-done:
	}
}

// LoopChannelWrite is the only writer of the connection. It ends when the room closes the outbox.
func (ps *PlayerSession) LoopChannelWrite() {
	for env := range ps.MessagesToSend {
		ps.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		w, err := ps.Conn.NextWriter(websocket.TextMessage)
		if err != nil {
			log.WithError(err).Warn("LoopChannelWrite cant get writer")
			break
		}
		if err := json.NewEncoder(w).Encode(env); err != nil {
			log.WithError(err).Warn("LoopChannelWrite cant encode")
			break
		}
		if err := w.Close(); err != nil {
			log.WithError(err).Warn("LoopChannelWrite cant flush")
			break
		}
		ps.DebugOutMessages++
	}
	ps.Conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	ps.Conn.Close()
	for range ps.MessagesToSend {
	}
}
