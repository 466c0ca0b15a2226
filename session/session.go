// Package session is the client component: it wires the channel, the world store,
// scoring, avatars, input and rendering together on one dispatch goroutine.
package session

import (
	"context"
	"encoding/json"
	"image"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/zucenko/painter/avatar"
	"github.com/zucenko/painter/camera"
	"github.com/zucenko/painter/conn"
	"github.com/zucenko/painter/dispatch"
	"github.com/zucenko/painter/input"
	"github.com/zucenko/painter/model"
	"github.com/zucenko/painter/render"
	"github.com/zucenko/painter/score"
	"github.com/zucenko/painter/stats"
	"github.com/zucenko/painter/world"
	"golang.org/x/image/font"
	"golang.org/x/time/rate"
)

const serviceTimeout = 10 * time.Second

// Loop is where every handler of the session runs.
type Loop interface {
	dispatch.Poster
	dispatch.Scheduler
}

// Channel is the bidirectional event connection to the room.
type Channel interface {
	Connect(ctx context.Context)
	Close()
	Send(event string, payload interface{}) error
	Connected() bool
	Subscribe(event string, h conn.Handler) conn.Subscription
	Unsubscribe(s conn.Subscription)
}

// Service is the request/response collaborator for profile, stats and achievements.
type Service interface {
	stats.Source
	Profile(ctx context.Context, username string) (stats.Profile, error)
	Achievements(ctx context.Context, username string) (model.Achievements, error)
	SaveAchievements(ctx context.Context, username string, a model.Achievements) error
}

type Session struct {
	cfg  Config
	loop Loop
	ch   Channel
	svc  Service

	store    *world.Store
	score    *score.Engine
	avatars  *avatar.Cache
	input    *input.Controller
	poller   *stats.Poller
	renderer *render.Renderer

	surface *image.RGBA
	dirty   bool
	subs    []conn.Subscription

	ctx    context.Context
	cancel context.CancelFunc
}

// NewChannel builds the websocket channel described by cfg.
func NewChannel(cfg Config, post dispatch.Poster) *conn.Client {
	return conn.NewClient(conn.Config{
		URL:               cfg.ChannelURL(),
		Username:          cfg.Username,
		Room:              cfg.Room,
		ReconnectAttempts: cfg.ReconnectAttempts,
		ReconnectDelay:    cfg.ReconnectDelay.Duration,
		ReconnectDelayMax: cfg.ReconnectDelayMax.Duration,
		SendRate:          rate.Limit(cfg.SendRate),
		SendBurst:         cfg.SendBurst,
	}, post)
}

// NewService returns the collaborator client, or nil when no api_url is configured.
func NewService(cfg Config) Service {
	if cfg.APIURL == "" {
		return nil
	}
	return stats.NewClient(cfg.APIURL, &http.Client{Timeout: serviceTimeout})
}

// New assembles a session. svc may be nil; fetcher nil means the default avatar loader.
func New(cfg Config, loop Loop, ch Channel, svc Service, fetcher avatar.Fetcher, face font.Face) *Session {
	if fetcher == nil {
		fetcher = avatar.Loader{Client: &http.Client{Timeout: cfg.AvatarTimeout.Duration}}
	}
	store := world.NewStore(cfg.Username, cfg.World())
	s := &Session{
		cfg:      cfg,
		loop:     loop,
		ch:       ch,
		svc:      svc,
		store:    store,
		score:    score.NewEngine(cfg.Username, cfg.ScoreThresholds()),
		avatars:  avatar.NewCache(fetcher, loop, cfg.AvatarWorkers, cfg.AvatarTimeout.Duration),
		input:    input.NewController(loop, cfg.RepeatInterval.Duration, cfg.World(), ch, store),
		renderer: render.NewRenderer(cfg.Viewport(), 24, face),
		dirty:    true,
	}
	s.avatars.OnReady(func(string) { s.dirty = true })
	if svc != nil {
		s.poller = stats.NewPoller(svc, loop, loop, cfg.Username, cfg.TopN, cfg.StatsInterval.Duration)
		s.poller.OnUpdate(func(stats.Snapshot) { s.dirty = true })
	}
	s.score.Recompute(store)
	return s
}

// Start subscribes to the room events and opens the channel.
func (s *Session) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.subscribe(model.EventConnect, s.onConnect)
	s.subscribe(model.EventDisconnect, s.onDisconnect)
	s.subscribe(model.EventConnectError, s.onConnectError)
	for _, name := range []string{
		model.EventPlayerJoined,
		model.EventPlayerLeft,
		model.EventPlayerMoved,
		model.EventGameState,
		model.EventPlayerData,
		model.EventGridState,
		model.EventCellPainted,
	} {
		s.subscribe(name, s.decoder(name))
	}

	if s.svc != nil {
		s.loadProfile()
		s.loadAchievements()
	}
	s.ch.Connect(s.ctx)
}

func (s *Session) subscribe(event string, h conn.Handler) {
	s.subs = append(s.subs, s.ch.Subscribe(event, h))
}

// Close cancels every timer, closes the channel and waits for avatar workers.
func (s *Session) Close() {
	s.input.Cancel()
	if s.poller != nil {
		s.poller.Close()
	}
	for _, sub := range s.subs {
		s.ch.Unsubscribe(sub)
	}
	s.subs = nil
	if s.cancel != nil {
		s.cancel()
	}
	s.ch.Close()
	s.avatars.Close()
}

func (s *Session) onConnect(json.RawMessage) {
	log.WithField("username", s.cfg.Username).Info("joined room " + s.cfg.Room)
	if s.poller != nil {
		s.poller.Start()
	}
	s.dirty = true
}

func (s *Session) onDisconnect(json.RawMessage) {
	s.input.Cancel()
	if s.poller != nil {
		s.poller.Stop()
	}
	s.dirty = true
}

func (s *Session) onConnectError(data json.RawMessage) {
	var e model.ConnectError
	if len(data) > 0 {
		if err := json.Unmarshal(data, &e); err != nil {
			log.WithError(err).Debug("unreadable connect error payload")
		}
	}
	log.WithField("error", e.Message).Debug("connect error")
	s.input.Cancel()
	s.dirty = true
}

func (s *Session) decoder(name string) conn.Handler {
	return func(data json.RawMessage) {
		ev, err := model.Decode(name, data)
		if err != nil {
			log.WithError(err).WithField("event", name).Warn("ignoring event")
			return
		}
		s.Apply(ev)
	}
}

// Apply reduces one event and schedules whatever it invalidated.
func (s *Session) Apply(ev model.Event) {
	ch := s.store.Apply(ev)
	if ch == 0 {
		return
	}
	s.observeAvatars(ev)
	if ch.Has(world.ChangeGrid | world.ChangePlayers | world.ChangeSelf) {
		s.recompute()
	}
	s.dirty = true
}

func (s *Session) observeAvatars(ev model.Event) {
	request := func(p model.Player) {
		if p.Username == s.cfg.Username {
			p, _ = s.store.Self()
		}
		if p.Avatar != "" {
			s.avatars.Request(p.Username, p.Avatar)
		}
	}
	switch e := ev.(type) {
	case model.PlayerJoined:
		request(e.Player)
	case model.PlayerMoved:
		request(e.Player)
	case model.PlayerData:
		request(e.Player)
	case model.GameState:
		for _, p := range e.Players {
			request(p)
		}
	}
}

func (s *Session) recompute() {
	if !s.score.Recompute(s.store) {
		return
	}
	s.pushAchievements()
}

func (s *Session) pushAchievements() {
	a := s.score.Achievements()
	log.WithField("achievements", a).Info("achievement unlocked")
	if s.ch.Connected() {
		err := s.ch.Send(model.EventUpdateAchievements, model.UpdateAchievements{Username: s.cfg.Username, Achievements: a})
		if err != nil {
			log.WithError(err).Warn("cant send achievements")
		}
	}
	if s.svc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(s.context(), serviceTimeout)
	go func() {
		defer cancel()
		if err := s.svc.SaveAchievements(ctx, s.cfg.Username, a); err != nil {
			log.WithError(err).Warn("cant persist achievements")
		}
	}()
}

func (s *Session) loadAchievements() {
	ctx, cancel := context.WithTimeout(s.context(), serviceTimeout)
	go func() {
		defer cancel()
		a, err := s.svc.Achievements(ctx, s.cfg.Username)
		if err != nil {
			log.WithError(err).Warn("cant load achievements")
			return
		}
		s.loop.Post(func() {
			if s.score.Seed(a) {
				s.dirty = true
			}
		})
	}()
}

func (s *Session) loadProfile() {
	ctx, cancel := context.WithTimeout(s.context(), serviceTimeout)
	go func() {
		defer cancel()
		p, err := s.svc.Profile(ctx, s.cfg.Username)
		if err != nil {
			log.WithError(err).Warn("cant load profile")
			return
		}
		if p.Avatar == "" {
			return
		}
		s.loop.Post(func() {
			if s.store.SetSelfAvatar(p.Avatar) != 0 {
				s.avatars.Request(s.cfg.Username, p.Avatar)
				s.dirty = true
			}
		})
	}()
}

func (s *Session) context() context.Context {
	if s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}

func (s *Session) KeyDown(d input.Direction) { s.input.KeyDown(d) }

func (s *Session) KeyUp(d input.Direction) { s.input.KeyUp(d) }

// Camera is derived from the confirmed self position on every call.
func (s *Session) Camera() model.Position {
	self, _ := s.store.Self()
	return camera.Compute(self.Position, s.cfg.World(), s.cfg.Viewport())
}

// SetCellSize changes the raster scale. The next Frame reallocates the surface.
func (s *Session) SetCellSize(px int) {
	if px <= 0 || px == s.renderer.CellPx {
		return
	}
	s.renderer.CellPx = px
	s.surface = nil
	s.dirty = true
}

func (s *Session) CellSize() int { return s.renderer.CellPx }

// Frame repaints the raster if anything changed since the previous frame.
func (s *Session) Frame() (*image.RGBA, bool) {
	if s.surface == nil {
		s.surface = s.renderer.NewSurface()
		s.dirty = true
	}
	if !s.dirty {
		return s.surface, false
	}
	s.renderer.Render(s.surface, s.store, s.avatars, render.Frame{
		Camera:    s.Camera(),
		Connected: s.ch.Connected(),
	})
	s.dirty = false
	return s.surface, true
}

func (s *Session) Connected() bool { return s.ch.Connected() }

func (s *Session) Store() *world.Store { return s.store }

func (s *Session) Leaderboard() []score.Entry { return s.score.Leaderboard() }

func (s *Session) Achievements() model.Achievements { return s.score.Achievements() }

func (s *Session) Thresholds() score.Thresholds { return s.score.Thresholds() }

func (s *Session) MoveState() input.State { return s.input.State() }

// Stats returns the latest collaborator snapshot; ok is false without a service.
func (s *Session) Stats() (stats.Snapshot, bool) {
	if s.poller == nil {
		return stats.Snapshot{}, false
	}
	return s.poller.Last(), true
}

func (s *Session) Color(username string) string { return s.store.Color(username) }
