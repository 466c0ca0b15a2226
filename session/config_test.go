package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zucenko/painter/score"
)

func TestDefaultConfigNeedsUsername(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "username")

	cfg.Username = "alice"
	assert.NoError(t, cfg.Validate())
}

func TestConfigFromJSON(t *testing.T) {
	cfg := DefaultConfig()
	err := json.Unmarshal([]byte(`{
		"username": "alice",
		"server_url": "wss://paint.example.com/play/main",
		"repeat_interval": "50ms",
		"thresholds": [5, 10, 20]
	}`), &cfg)
	require.NoError(t, err)

	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 50*time.Millisecond, cfg.RepeatInterval.Duration)
	assert.Equal(t, 30*time.Second, cfg.StatsInterval.Duration)
	assert.Equal(t, score.Thresholds{5, 10, 20}, cfg.ScoreThresholds())
}

func TestConfigRejectsBadDuration(t *testing.T) {
	cfg := DefaultConfig()
	err := json.Unmarshal([]byte(`{"repeat_interval": 100}`), &cfg)
	assert.Error(t, err)

	err = json.Unmarshal([]byte(`{"repeat_interval": "soon"}`), &cfg)
	assert.Error(t, err)
}

func TestConfigValidateRejects(t *testing.T) {
	cases := map[string]func(c *Config){
		"http server":           func(c *Config) { c.ServerURL = "http://localhost:8080" },
		"descending thresholds": func(c *Config) { c.Thresholds = []int{100, 50, 200} },
		"two thresholds":        func(c *Config) { c.Thresholds = []int{1, 2} },
		"empty world":           func(c *Config) { c.WorldCols = 0 },
		"fast repeat":           func(c *Config) { c.RepeatInterval = Duration{time.Millisecond} },
		"ftp api":               func(c *Config) { c.APIURL = "ftp://example.com" },
		"no room":               func(c *Config) { c.Room = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Username = "alice"
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDurationRoundTrip(t *testing.T) {
	b, err := json.Marshal(Duration{1500 * time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, `"1.5s"`, string(b))
}

func TestLoadConfigAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "painter.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"username": "file", "room": "lobby", "top_n": 3}`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "file", cfg.Username)
	assert.Equal(t, "lobby", cfg.Room)
	assert.Equal(t, 3, cfg.TopN)
	assert.Equal(t, 100, cfg.WorldCols)

	env := map[string]string{EnvUsername: "env", EnvAPI: "http://localhost:5000"}
	cfg.ApplyEnv(func(k string) string { return env[k] })
	assert.Equal(t, "env", cfg.Username)
	assert.Equal(t, "http://localhost:5000", cfg.APIURL)
	assert.Equal(t, "ws://localhost:8080/play/lobby", cfg.ChannelURL())

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestChannelURLFollowsRoom(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "ws://localhost:8080/play/main", cfg.ChannelURL())

	cfg.Room = "other room"
	assert.Equal(t, "ws://localhost:8080/play/other%20room", cfg.ChannelURL())

	cfg.ServerURL = "wss://paint.example.com/socket"
	assert.Equal(t, "wss://paint.example.com/socket", cfg.ChannelURL())
}
