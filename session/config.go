package session

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/pixil98/go-errors"
	"github.com/zucenko/painter/model"
	"github.com/zucenko/painter/score"
)

// Duration reads "100ms" style strings from JSON.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

type Config struct {
	// ServerURL may contain RoomPlaceholder, replaced by the escaped room name.
	ServerURL string `json:"server_url"`
	APIURL    string `json:"api_url"`
	Username  string `json:"username"`
	Room      string `json:"room"`

	ReconnectAttempts int      `json:"reconnect_attempts"`
	ReconnectDelay    Duration `json:"reconnect_delay"`
	ReconnectDelayMax Duration `json:"reconnect_delay_max"`
	SendRate          float64  `json:"send_rate"`
	SendBurst         int      `json:"send_burst"`

	RepeatInterval Duration `json:"repeat_interval"`
	WorldCols      int      `json:"world_cols"`
	WorldRows      int      `json:"world_rows"`
	ViewportCols   int      `json:"viewport_cols"`
	ViewportRows   int      `json:"viewport_rows"`

	Thresholds    []int    `json:"thresholds"`
	StatsInterval Duration `json:"stats_interval"`
	TopN          int      `json:"top_n"`

	AvatarWorkers int      `json:"avatar_workers"`
	AvatarTimeout Duration `json:"avatar_timeout"`

	FontPath string  `json:"font_path"`
	FontSize float64 `json:"font_size"`
	LogLevel string  `json:"log_level"`
}

func DefaultConfig() Config {
	return Config{
		ServerURL:         "ws://localhost:8080/play/" + RoomPlaceholder,
		Room:              "main",
		ReconnectAttempts: 5,
		ReconnectDelay:    Duration{time.Second},
		ReconnectDelayMax: Duration{5 * time.Second},
		SendRate:          20,
		SendBurst:         5,
		RepeatInterval:    Duration{100 * time.Millisecond},
		WorldCols:         100,
		WorldRows:         100,
		ViewportCols:      25,
		ViewportRows:      25,
		Thresholds:        []int{50, 100, 200},
		StatsInterval:     Duration{30 * time.Second},
		TopN:              10,
		AvatarWorkers:     4,
		AvatarTimeout:     Duration{10 * time.Second},
		FontSize:          12,
		LogLevel:          "info",
	}
}

func (c *Config) Validate() error {
	el := errors.NewErrorList()

	if c.Username == "" {
		el.Add(fmt.Errorf("username is required"))
	}
	if c.Room == "" {
		el.Add(fmt.Errorf("room is required"))
	}
	if u, err := url.Parse(c.ChannelURL()); err != nil {
		el.Add(fmt.Errorf("parsing server_url: %w", err))
	} else if u.Scheme != "ws" && u.Scheme != "wss" {
		el.Add(fmt.Errorf("server_url must be ws:// or wss://"))
	}
	if c.APIURL != "" {
		if u, err := url.Parse(c.APIURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			el.Add(fmt.Errorf("api_url must be an http(s) url"))
		}
	}
	if c.ReconnectAttempts < 0 {
		el.Add(fmt.Errorf("reconnect_attempts must not be negative"))
	}
	if c.RepeatInterval.Duration < 10*time.Millisecond {
		el.Add(fmt.Errorf("repeat_interval must be at least 10ms"))
	}
	if c.WorldCols <= 0 || c.WorldRows <= 0 {
		el.Add(fmt.Errorf("world size must be positive"))
	}
	if c.ViewportCols <= 0 || c.ViewportRows <= 0 {
		el.Add(fmt.Errorf("viewport size must be positive"))
	}
	if len(c.Thresholds) != 3 {
		el.Add(fmt.Errorf("thresholds needs exactly 3 values"))
	} else if c.Thresholds[0] > c.Thresholds[1] || c.Thresholds[1] > c.Thresholds[2] {
		el.Add(fmt.Errorf("thresholds must be ascending"))
	}
	if c.StatsInterval.Duration < time.Second {
		el.Add(fmt.Errorf("stats_interval must be at least 1 second"))
	}
	if c.TopN <= 0 {
		el.Add(fmt.Errorf("top_n must be positive"))
	}

	return el.Err()
}

const RoomPlaceholder = "{room}"

// ChannelURL is the websocket url for the configured room.
func (c *Config) ChannelURL() string {
	return strings.ReplaceAll(c.ServerURL, RoomPlaceholder, url.PathEscape(c.Room))
}

func (c *Config) World() model.Size {
	return model.Size{Cols: c.WorldCols, Rows: c.WorldRows}
}

func (c *Config) Viewport() model.Size {
	return model.Size{Cols: c.ViewportCols, Rows: c.ViewportRows}
}

func (c *Config) ScoreThresholds() score.Thresholds {
	var t score.Thresholds
	copy(t[:], c.Thresholds)
	return t
}

// LoadConfig reads a JSON file over the defaults. It does not validate.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

const (
	EnvUsername = "PAINTER_USERNAME"
	EnvServer   = "PAINTER_SERVER"
	EnvAPI      = "PAINTER_API"
)

// ApplyEnv overrides identity and endpoints from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvUsername); v != "" {
		c.Username = v
	}
	if v := getenv(EnvServer); v != "" {
		c.ServerURL = v
	}
	if v := getenv(EnvAPI); v != "" {
		c.APIURL = v
	}
}
