package server

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pixil98/go-errors"
	"github.com/zucenko/painter/model"
)

var COLORS = []string{
	"#e6194b", "#3cb44b", "#ffe119", "#4363d8", "#f58231", "#911eb4",
	"#46f0f0", "#f032e6", "#bcf60c", "#fabebe", "#008080", "#e6beff",
}

type Config struct {
	Cols    int      `json:"cols"`
	Rows    int      `json:"rows"`
	Palette []string `json:"palette"`

	// SendBuffer is the per player outbox. A player whose outbox is full is dropped.
	SendBuffer int `json:"send_buffer"`
	// Timeout bounds every hand-off between the HTTP handler and the loops.
	Timeout time.Duration `json:"-"`
}

func DefaultConfig() Config {
	return Config{
		Cols:       100,
		Rows:       100,
		Palette:    COLORS,
		SendBuffer: 256,
		Timeout:    200 * time.Millisecond,
	}
}

// LoadConfig reads a JSON file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading room config: %w", err)
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing room config: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	el := errors.NewErrorList()

	if c.Cols <= 0 || c.Rows <= 0 {
		el.Add(fmt.Errorf("cols and rows must be positive"))
	}
	if len(c.Palette) == 0 {
		el.Add(fmt.Errorf("palette is required"))
	}
	for _, p := range c.Palette {
		if _, err := colorful.Hex(p); err != nil {
			el.Add(fmt.Errorf("palette color %q: %w", p, err))
		}
	}
	if c.SendBuffer <= 0 {
		el.Add(fmt.Errorf("send_buffer must be positive"))
	}

	return el.Err()
}

func (c *Config) Size() model.Size {
	return model.Size{Cols: c.Cols, Rows: c.Rows}
}
