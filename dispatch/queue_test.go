package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrainRunsInPostOrder(t *testing.T) {
	q := New(8)
	var got []int
	for i := 0; i < 3; i++ {
		i := i
		require.True(t, q.Post(func() { got = append(got, i) }))
	}
	assert.Equal(t, 3, q.Drain())
	assert.Equal(t, []int{0, 1, 2}, got)
	assert.Equal(t, 0, q.Drain())
}

func TestPostAfterClose(t *testing.T) {
	q := New(1)
	q.Close()
	assert.False(t, q.Post(func() {}))
}

func TestPanickingTaskDoesNotStopQueue(t *testing.T) {
	q := New(4)
	ran := false
	q.Post(func() { panic("boom") })
	q.Post(func() { ran = true })
	q.Drain()
	assert.True(t, ran)
}

func TestRunStopsOnContext(t *testing.T) {
	q := New(4)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		q.Run(ctx)
		close(done)
	}()
	hit := make(chan struct{})
	q.Post(func() { close(hit) })
	<-hit
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}

func TestEveryStopsAndDiscardsQueuedTick(t *testing.T) {
	q := New(16)
	ticks := 0
	tm := q.Every(5*time.Millisecond, func() { ticks++ })

	require.Eventually(t, func() bool {
		q.Drain()
		return ticks >= 2
	}, time.Second, time.Millisecond)

	tm.Stop()
	seen := ticks
	time.Sleep(20 * time.Millisecond)
	q.Drain()
	assert.Equal(t, seen, ticks)
}
