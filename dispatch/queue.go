// Package dispatch serializes every state mutation of the client onto one goroutine.
// Network reads, timer ticks and image decodes run elsewhere and re-enter through Post.
package dispatch

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

type Queue struct {
	tasks  chan func()
	closed chan struct{}
	once   sync.Once
}

// Poster accepts work to be run on the dispatch goroutine.
type Poster interface {
	Post(f func()) bool
}

// Timer is a cancellable queue-bound timer.
type Timer interface {
	Stop()
}

// Scheduler starts timers whose callbacks run on the dispatch goroutine.
type Scheduler interface {
	Every(d time.Duration, f func()) Timer
}

func New(size int) *Queue {
	return &Queue{
		tasks:  make(chan func(), size),
		closed: make(chan struct{}),
	}
}

// Post enqueues f. It blocks while the queue is full and returns false once the queue is closed.
// Only producers running outside the dispatch goroutine may block here.
func (q *Queue) Post(f func()) bool {
	select {
	case <-q.closed:
		return false
	default:
	}
	select {
	case q.tasks <- f:
		return true
	case <-q.closed:
		return false
	}
}

// Drain runs queued tasks until the queue is empty and reports how many ran.
func (q *Queue) Drain() int {
	n := 0
	for {
		select {
		case f := <-q.tasks:
			q.run(f)
			n++
		default:
			return n
		}
	}
}

// Run executes tasks until ctx is done or the queue is closed.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case f := <-q.tasks:
			q.run(f)
		case <-ctx.Done():
			return
		case <-q.closed:
			return
		}
	}
}

func (q *Queue) Close() {
	q.once.Do(func() { close(q.closed) })
}

func (q *Queue) run(f func()) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("dispatch task panicked")
		}
	}()
	f()
}

type ticker struct {
	q       *Queue
	stop    chan struct{}
	once    sync.Once
	stopped bool // owned by the dispatch goroutine
}

// Stop must be called on the dispatch goroutine. A tick already queued is discarded.
func (t *ticker) Stop() {
	t.stopped = true
	t.once.Do(func() { close(t.stop) })
}

func (t *ticker) fire(f func()) {
	t.q.Post(func() {
		if t.stopped {
			return
		}
		f()
	})
}

// Every runs f on the dispatch goroutine every d until stopped.
func (q *Queue) Every(d time.Duration, f func()) Timer {
	t := &ticker{q: q, stop: make(chan struct{})}
	go func() {
		tk := time.NewTicker(d)
		defer tk.Stop()
		for {
			select {
			case <-tk.C:
				t.fire(f)
			case <-t.stop:
				return
			case <-q.closed:
				return
			}
		}
	}()
	return t
}
