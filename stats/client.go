// Package stats talks to the profile and statistics service over plain JSON requests.
// Every call is best-effort: callers log failures and keep playing.
package stats

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/zucenko/painter/model"
)

var ErrStatus = errors.New("unexpected status")

type Stats struct {
	Username    string    `json:"username"`
	TotalCells  int       `json:"total_cells"`
	GamesPlayed int       `json:"games_played"`
	PlaySeconds int64     `json:"play_seconds"`
	LastSeen    time.Time `json:"last_seen"`
}

func (s Stats) PlayTime() time.Duration {
	return time.Duration(s.PlaySeconds) * time.Second
}

type LeaderEntry struct {
	Username   string `json:"username"`
	TotalCells int    `json:"total_cells"`
}

type Profile struct {
	Avatar string `json:"avatar"`
}

type Client struct {
	base string
	http *http.Client
}

func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{base: baseURL, http: hc}
}

func (c *Client) Profile(ctx context.Context, username string) (Profile, error) {
	var p Profile
	err := c.get(ctx, "/api/auth/profile", url.Values{"username": {username}}, &p)
	return p, err
}

func (c *Client) Stats(ctx context.Context, username string) (Stats, error) {
	var s Stats
	err := c.get(ctx, "/api/game/stats", url.Values{"username": {username}}, &s)
	return s, err
}

func (c *Client) Leaderboard(ctx context.Context, limit int) ([]LeaderEntry, error) {
	var out struct {
		Leaderboard []LeaderEntry `json:"leaderboard"`
	}
	err := c.get(ctx, "/api/game/leaderboard", url.Values{"limit": {strconv.Itoa(limit)}}, &out)
	return out.Leaderboard, err
}

func (c *Client) Achievements(ctx context.Context, username string) (model.Achievements, error) {
	var out struct {
		Achievements model.Achievements `json:"achievements"`
	}
	err := c.get(ctx, "/api/game/achievements", url.Values{"username": {username}}, &out)
	return out.Achievements, err
}

func (c *Client) SaveAchievements(ctx context.Context, username string, a model.Achievements) error {
	body, err := json.Marshal(model.UpdateAchievements{Username: username, Achievements: a})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/game/achievements", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, nil)
}

// UploadAvatar posts an image file as multipart form data under the "avatar" field.
func (c *Client) UploadAvatar(ctx context.Context, username, filename string, r io.Reader) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("username", username); err != nil {
		return err
	}
	fw, err := mw.CreateFormFile("avatar", filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(fw, r); err != nil {
		return fmt.Errorf("reading avatar: %w", err)
	}
	if err := mw.Close(); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/auth/avatar", &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req, nil)
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%s %s: %w %d", req.Method, req.URL.Path, ErrStatus, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", req.URL.Path, err)
	}
	return nil
}
