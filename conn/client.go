// Package conn owns the websocket channel to one room: dialing, reconnection,
// named-event fan out and fire-and-forget sends.
package conn

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"github.com/zucenko/painter/dispatch"
	"github.com/zucenko/painter/model"
	"golang.org/x/time/rate"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	outboxSize = 64
)

var (
	ErrNotConnected = errors.New("not connected")
	ErrRateLimited  = errors.New("send rate exceeded")
	ErrOutboxFull   = errors.New("outbox full")
)

type Handler func(data json.RawMessage)

type Subscription struct {
	event string
	id    int
}

type Config struct {
	URL      string
	Username string
	Room     string

	// ReconnectAttempts bounds consecutive failed dials before giving up. Zero disables reconnection.
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	ReconnectDelayMax time.Duration

	SendRate  rate.Limit
	SendBurst int

	Header http.Header
	Dialer *websocket.Dialer
}

type Client struct {
	cfg     Config
	post    dispatch.Poster
	limiter *rate.Limiter

	mu       sync.Mutex
	handlers map[string][]subscriber
	nextID   int
	outbox   chan model.Envelope

	online  atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

type subscriber struct {
	id int
	h  Handler
}

func NewClient(cfg Config, post dispatch.Poster) *Client {
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = time.Second
	}
	if cfg.ReconnectDelayMax < cfg.ReconnectDelay {
		cfg.ReconnectDelayMax = cfg.ReconnectDelay
	}
	limit, burst := cfg.SendRate, cfg.SendBurst
	if limit <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		cfg:      cfg,
		post:     post,
		limiter:  rate.NewLimiter(limit, burst),
		handlers: make(map[string][]subscriber),
		done:     make(chan struct{}),
	}
}

// Subscribe registers h for event. Handlers always run on the dispatch goroutine,
// in subscription order.
func (c *Client) Subscribe(event string, h Handler) Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	c.handlers[event] = append(c.handlers[event], subscriber{id: c.nextID, h: h})
	return Subscription{event: event, id: c.nextID}
}

func (c *Client) Unsubscribe(s Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	subs := c.handlers[s.event]
	for i, sub := range subs {
		if sub.id == s.id {
			c.handlers[s.event] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(c.handlers[s.event]) == 0 {
		delete(c.handlers, s.event)
	}
}

func (c *Client) Connected() bool {
	return c.online.Load()
}

// Connect starts the connection loop in the background and returns immediately.
func (c *Client) Connect(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	ctx, c.cancel = context.WithCancel(ctx)
	c.mu.Unlock()
	go c.loop(ctx)
}

// Close tears the channel down and waits for the connection loop to exit.
func (c *Client) Close() {
	c.mu.Lock()
	started, cancel := c.started, c.cancel
	c.mu.Unlock()
	if !started {
		return
	}
	cancel()
	<-c.done
}

// Send queues one event for the current connection. It never blocks; the event is
// dropped while disconnected, when the send rate is exceeded or when the outbox is full.
func (c *Client) Send(event string, payload interface{}) error {
	if !c.online.Load() {
		return ErrNotConnected
	}
	if !c.limiter.Allow() {
		log.WithField("event", event).Warn("send rate exceeded, dropping")
		return ErrRateLimited
	}
	env, err := model.NewEnvelope(event, payload)
	if err != nil {
		return err
	}
	return c.enqueue(env)
}

func (c *Client) enqueue(env model.Envelope) error {
	c.mu.Lock()
	outbox := c.outbox
	c.mu.Unlock()
	if outbox == nil {
		return ErrNotConnected
	}
	select {
	case outbox <- env:
		return nil
	default:
		log.WithField("event", env.Event).Warn("outbox full, dropping")
		return ErrOutboxFull
	}
}

func (c *Client) loop(ctx context.Context) {
	defer close(c.done)
	failures := 0
	for {
		connected := c.session(ctx)
		if ctx.Err() != nil {
			return
		}
		if connected {
			failures = 0
		} else {
			failures++
		}
		if failures > c.cfg.ReconnectAttempts || (connected && c.cfg.ReconnectAttempts == 0) {
			log.WithField("failures", failures).Warn("giving up on reconnecting")
			return
		}
		delay := c.backoff(failures)
		log.WithField("delay", delay).Info("reconnecting")
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) backoff(failures int) time.Duration {
	d := c.cfg.ReconnectDelay
	for i := 1; i < failures && d < c.cfg.ReconnectDelayMax; i++ {
		d *= 2
	}
	if d > c.cfg.ReconnectDelayMax {
		d = c.cfg.ReconnectDelayMax
	}
	return d
}

// session dials once and serves the connection until it drops.
// It reports whether the dial succeeded.
func (c *Client) session(ctx context.Context) bool {
	logger := log.WithFields(log.Fields{"conn": uuid.NewString(), "url": c.cfg.URL})
	ws, _, err := c.cfg.Dialer.DialContext(ctx, c.cfg.URL, c.cfg.Header)
	if err != nil {
		if ctx.Err() == nil {
			logger.WithError(err).Warn("connect failed")
			c.emit(model.EventConnectError, model.ConnectError{Message: err.Error()})
		}
		return false
	}
	logger.Info("connected")

	outbox := make(chan model.Envelope, outboxSize)
	c.mu.Lock()
	c.outbox = outbox
	c.mu.Unlock()

	join, _ := model.NewEnvelope(model.EventJoinGame, model.JoinGame{Username: c.cfg.Username, Room: c.cfg.Room})
	outbox <- join
	c.online.Store(true)
	c.emit(model.EventConnect, nil)

	connCtx, stop := context.WithCancel(ctx)
	writerDone := make(chan struct{})
	go func() {
		c.write(connCtx, ws, outbox, logger)
		close(writerDone)
	}()

	err = c.read(ws, logger)

	c.online.Store(false)
	c.mu.Lock()
	c.outbox = nil
	c.mu.Unlock()
	stop()
	<-writerDone
	ws.Close()

	if ctx.Err() == nil {
		logger.WithError(err).Warn("disconnected")
	} else {
		logger.Info("closed")
	}
	c.emit(model.EventDisconnect, nil)
	return true
}

func (c *Client) read(ws *websocket.Conn, logger *log.Entry) error {
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, r, err := ws.NextReader()
		if err != nil {
			return err
		}
		var env model.Envelope
		if err := json.NewDecoder(r).Decode(&env); err != nil {
			logger.WithError(err).Warn("ignoring undecodable frame")
			continue
		}
		if env.Event == "" {
			logger.Warn("ignoring frame without event name")
			continue
		}
		logger.WithField("event", env.Event).Debug("received")
		c.deliver(env.Event, env.Data)
	}
}

// write is the only goroutine writing to ws. It exits when ctx is done or a write fails,
// closing the socket so the reader unblocks.
func (c *Client) write(ctx context.Context, ws *websocket.Conn, outbox chan model.Envelope, logger *log.Entry) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case env := <-outbox:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			w, err := ws.NextWriter(websocket.TextMessage)
			if err != nil {
				logger.WithError(err).Warn("cant get writer")
				ws.Close()
				return
			}
			if err := json.NewEncoder(w).Encode(env); err != nil {
				logger.WithError(err).Warn("cant encode")
				ws.Close()
				return
			}
			if err := w.Close(); err != nil {
				logger.WithError(err).Warn("cant flush")
				ws.Close()
				return
			}
			logger.WithField("event", env.Event).Debug("sent")
		case <-ping.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				logger.WithError(err).Warn("ping failed")
				ws.Close()
				return
			}
		case <-ctx.Done():
			ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			ws.Close()
			return
		}
	}
}

func (c *Client) emit(event string, payload interface{}) {
	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			log.WithError(err).WithField("event", event).Error("cant encode local event")
			return
		}
		data = b
	}
	c.deliver(event, data)
}

func (c *Client) deliver(event string, data json.RawMessage) {
	c.post.Post(func() {
		c.mu.Lock()
		subs := append([]subscriber(nil), c.handlers[event]...)
		c.mu.Unlock()
		if len(subs) == 0 {
			log.WithField("event", event).Debug("no handler")
			return
		}
		for _, s := range subs {
			s.h(data)
		}
	})
}
