package stats

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zucenko/painter/dispatch"
	"github.com/zucenko/painter/model"
)

func fakeService(t *testing.T) (*httptest.Server, *[]model.UpdateAchievements) {
	var saved []model.UpdateAchievements
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/profile", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Profile{Avatar: "data:image/png;base64,AAAA"})
	})
	mux.HandleFunc("/api/game/stats", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("username") != "me" {
			http.Error(w, "no such user", http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(Stats{Username: "me", TotalCells: 1234, GamesPlayed: 3, PlaySeconds: 3700})
	})
	mux.HandleFunc("/api/game/leaderboard", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"leaderboard":[{"username":"b","total_cells":9},{"username":"me","total_cells":4}]}`))
	})
	mux.HandleFunc("/api/game/achievements", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			var u model.UpdateAchievements
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&u))
			saved = append(saved, u)
			return
		}
		w.Write([]byte(`{"achievements":{"fiftyPoints":true,"hundredPoints":false,"twoHundredPoints":false}}`))
	})
	mux.HandleFunc("/api/auth/avatar", func(w http.ResponseWriter, r *http.Request) {
		f, _, err := r.FormFile("avatar")
		if !assert.NoError(t, err) {
			return
		}
		b, _ := io.ReadAll(f)
		assert.Equal(t, "me", r.FormValue("username"))
		assert.Equal(t, "png-bytes", string(b))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &saved
}

func TestClientReads(t *testing.T) {
	srv, _ := fakeService(t)
	c := NewClient(srv.URL, nil)
	ctx := context.Background()

	p, err := c.Profile(ctx, "me")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p.Avatar, "data:image/png"))

	s, err := c.Stats(ctx, "me")
	require.NoError(t, err)
	assert.Equal(t, 1234, s.TotalCells)

	_, err = c.Stats(ctx, "ghost")
	assert.True(t, errors.Is(err, ErrStatus))

	top, err := c.Leaderboard(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []LeaderEntry{{"b", 9}, {"me", 4}}, top)

	a, err := c.Achievements(ctx, "me")
	require.NoError(t, err)
	assert.Equal(t, model.Achievements{FiftyPoints: true}, a)
}

func TestClientWrites(t *testing.T) {
	srv, saved := fakeService(t)
	c := NewClient(srv.URL, nil)
	ctx := context.Background()

	flags := model.Achievements{FiftyPoints: true, HundredPoints: true}
	require.NoError(t, c.SaveAchievements(ctx, "me", flags))
	require.Len(t, *saved, 1)
	assert.Equal(t, model.UpdateAchievements{Username: "me", Achievements: flags}, (*saved)[0])

	require.NoError(t, c.UploadAvatar(ctx, "me", "a.png", strings.NewReader("png-bytes")))
}

type manualTimer struct{ stopped bool }

func (m *manualTimer) Stop() { m.stopped = true }

type manualScheduler struct {
	every []func()
	timer *manualTimer
}

func (s *manualScheduler) Every(d time.Duration, f func()) dispatch.Timer {
	s.every = append(s.every, f)
	s.timer = &manualTimer{}
	return s.timer
}

func TestPollerRefreshesAndStops(t *testing.T) {
	srv, _ := fakeService(t)
	q := dispatch.New(8)
	sched := &manualScheduler{}
	p := NewPoller(NewClient(srv.URL, nil), sched, q, "me", 2, 30*time.Second)

	var got []Snapshot
	p.OnUpdate(func(s Snapshot) { got = append(got, s) })

	p.Start()
	p.Start()
	assert.Len(t, sched.every, 1)
	assert.True(t, p.Running())

	require.Eventually(t, func() bool {
		q.Drain()
		return len(got) == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, 1234, got[0].Stats.TotalCells)
	assert.Len(t, got[0].Top, 2)
	assert.Contains(t, got[0].Lines(), "cells painted: 1,234")

	p.Stop()
	assert.True(t, sched.timer.stopped)
	assert.False(t, p.Running())
	p.Close()
}

func TestPollerKeepsLastGoodValues(t *testing.T) {
	p := &Poller{}
	p.apply(Snapshot{Stats: Stats{TotalCells: 5}, HaveStats: true, Top: []LeaderEntry{{"a", 1}}})
	p.apply(Snapshot{})
	assert.Equal(t, 5, p.Last().Stats.TotalCells)
	assert.Equal(t, []LeaderEntry{{"a", 1}}, p.Last().Top)
}
