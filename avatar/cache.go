// Package avatar loads player images off the dispatch goroutine and hands
// decoded results back to it. Each reference is fetched at most once.
package avatar

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/remeh/sizedwaitgroup"
	log "github.com/sirupsen/logrus"
	"github.com/zucenko/painter/dispatch"
)

type State int

const (
	Absent State = iota
	Loading
	Ready
	Failed
)

func (s State) Name() string {
	switch s {
	case Absent:
		return "ABSENT"
	case Loading:
		return "LOADING"
	case Ready:
		return "READY"
	case Failed:
		return "FAILED"
	default:
		return "N/A"
	}
}

// Fetcher resolves a reference into a decoded image. It runs on a worker goroutine.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) (image.Image, error)
}

type FetcherFunc func(ctx context.Context, ref string) (image.Image, error)

func (f FetcherFunc) Fetch(ctx context.Context, ref string) (image.Image, error) {
	return f(ctx, ref)
}

type load struct {
	state State
	img   image.Image
}

// Cache maps usernames to their latest avatar reference and references to load results.
// All methods except Close must be called on the dispatch goroutine.
type Cache struct {
	fetcher Fetcher
	post    dispatch.Poster
	timeout time.Duration
	onReady func(username string)

	users map[string]string
	refs  map[string]*load

	ctx     context.Context
	cancel  context.CancelFunc
	pending sync.WaitGroup
	workers sizedwaitgroup.SizedWaitGroup
}

func NewCache(fetcher Fetcher, post dispatch.Poster, workers int, timeout time.Duration) *Cache {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Cache{
		fetcher: fetcher,
		post:    post,
		timeout: timeout,
		users:   make(map[string]string),
		refs:    make(map[string]*load),
		ctx:     ctx,
		cancel:  cancel,
		workers: sizedwaitgroup.New(workers),
	}
}

// OnReady registers the callback run when a user's current avatar finishes decoding.
func (c *Cache) OnReady(f func(username string)) {
	c.onReady = f
}

// Request points username at ref and starts loading ref unless it was seen before.
// An empty ref clears the user's avatar.
func (c *Cache) Request(username, ref string) {
	if ref == "" {
		delete(c.users, username)
		return
	}
	if c.users[username] == ref {
		return
	}
	c.users[username] = ref
	if _, ok := c.refs[ref]; ok {
		return
	}
	c.refs[ref] = &load{state: Loading}
	log.WithField("username", username).Debug("avatar requested")
	c.pending.Add(1)
	go c.fetch(ref)
}

// fetch waits for a worker slot. A fetch still queued when Close runs never calls the fetcher.
func (c *Cache) fetch(ref string) {
	defer c.pending.Done()
	c.workers.Add()
	defer c.workers.Done()
	if c.ctx.Err() != nil {
		return
	}

	ctx := c.ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	img, err := c.fetcher.Fetch(ctx, ref)
	if c.ctx.Err() != nil {
		return
	}
	c.post.Post(func() { c.complete(ref, img, err) })
}

func (c *Cache) complete(ref string, img image.Image, err error) {
	l, ok := c.refs[ref]
	if !ok {
		return
	}
	if err != nil || img == nil {
		log.WithError(err).Debug("avatar failed, using color fill")
		l.state = Failed
		return
	}
	l.state = Ready
	l.img = img
	if c.onReady == nil {
		return
	}
	// only users still pointing at ref care about this completion
	for username, current := range c.users {
		if current == ref {
			c.onReady(username)
		}
	}
}

// Image returns the decoded avatar for username, or nil with the reason it is not drawable.
func (c *Cache) Image(username string) (image.Image, State) {
	ref, ok := c.users[username]
	if !ok {
		return nil, Absent
	}
	l := c.refs[ref]
	if l.state != Ready {
		return nil, l.state
	}
	return l.img, Ready
}

// Close stops pending fetches and waits for every started or queued fetch to exit.
func (c *Cache) Close() {
	c.cancel()
	c.pending.Wait()
}
