package stats

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/zucenko/painter/dispatch"
)

// Source is the part of Client the poller reads.
type Source interface {
	Stats(ctx context.Context, username string) (Stats, error)
	Leaderboard(ctx context.Context, limit int) ([]LeaderEntry, error)
}

type Snapshot struct {
	Stats     Stats
	HaveStats bool
	Top       []LeaderEntry
	At        time.Time
}

// Poller refreshes stats on an interval. Start and Stop run on the dispatch goroutine;
// requests run on their own goroutines and post results back.
type Poller struct {
	src      Source
	sched    dispatch.Scheduler
	post     dispatch.Poster
	interval time.Duration
	username string
	topN     int
	timeout  time.Duration

	timer    dispatch.Timer
	last     Snapshot
	onUpdate func(Snapshot)
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewPoller(src Source, sched dispatch.Scheduler, post dispatch.Poster, username string, topN int, interval time.Duration) *Poller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		src:      src,
		sched:    sched,
		post:     post,
		interval: interval,
		username: username,
		topN:     topN,
		timeout:  10 * time.Second,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (p *Poller) OnUpdate(f func(Snapshot)) {
	p.onUpdate = f
}

func (p *Poller) Last() Snapshot {
	return p.last
}

func (p *Poller) Running() bool {
	return p.timer != nil
}

// Start refreshes immediately and then every interval until Stop.
func (p *Poller) Start() {
	if p.timer != nil || p.ctx.Err() != nil {
		return
	}
	p.refresh()
	p.timer = p.sched.Every(p.interval, p.refresh)
}

func (p *Poller) Stop() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// Close stops polling and abandons requests in flight.
func (p *Poller) Close() {
	p.Stop()
	p.cancel()
}

func (p *Poller) refresh() {
	ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
	go func() {
		defer cancel()
		logger := log.WithField("username", p.username)
		snap := Snapshot{At: time.Now()}
		s, err := p.src.Stats(ctx, p.username)
		if err != nil {
			logger.WithError(err).Warn("stats refresh failed")
		} else {
			snap.Stats, snap.HaveStats = s, true
		}
		top, err := p.src.Leaderboard(ctx, p.topN)
		if err != nil {
			logger.WithError(err).Warn("leaderboard refresh failed")
		} else {
			snap.Top = top
		}
		if p.ctx.Err() != nil {
			return
		}
		p.post.Post(func() { p.apply(snap) })
	}()
}

func (p *Poller) apply(snap Snapshot) {
	if !snap.HaveStats {
		snap.Stats, snap.HaveStats = p.last.Stats, p.last.HaveStats
	}
	if snap.Top == nil {
		snap.Top = p.last.Top
	}
	p.last = snap
	if p.onUpdate != nil {
		p.onUpdate(snap)
	}
}
