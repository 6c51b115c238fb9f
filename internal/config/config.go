// Package config loads wasmplay settings from WASMPLAY_* environment variables.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Prefix is the environment variable prefix.
const Prefix = "WASMPLAY"

// Config holds all application configuration.
type Config struct {
	Logging LogConfig
	Canvas  CanvasConfig
	Runtime RuntimeConfig
	Input   InputConfig
	Metrics MetricsConfig
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEVELOPMENT" default:"true"`
}

// CanvasConfig holds the drawing surface and window configuration.
type CanvasConfig struct {
	ID     string  `envconfig:"CANVAS_ID" default:"main_canvas"`
	Width  int     `envconfig:"CANVAS_WIDTH" default:"800"`
	Height int     `envconfig:"CANVAS_HEIGHT" default:"600"`
	Scale  float64 `envconfig:"SCALE" default:"1"`
	TPS    int     `envconfig:"TPS" default:"60"`
}

// RuntimeConfig holds WebAssembly runtime configuration.
type RuntimeConfig struct {
	MemoryLimitPages uint32 `envconfig:"MEMORY_LIMIT_PAGES" default:"0"`
	DiskCache        bool   `envconfig:"DISK_CACHE" default:"true"`
	CacheDir         string `envconfig:"CACHE_DIR"`
}

// InputConfig holds controller configuration.
type InputConfig struct {
	AxisDevices []string `envconfig:"AXIS_DEVICES" default:"Xbox 360,X-Box 360,Logitech Dual Action,USB Gamepad"`
}

// MetricsConfig holds metrics exposition configuration.
type MetricsConfig struct {
	Addr string `envconfig:"METRICS_ADDR"`
}

// Load loads configuration from environment variables. Each section is
// processed on its own so its keys sit directly under Prefix
// (WASMPLAY_CANVAS_WIDTH, not WASMPLAY_CANVAS_CANVAS_WIDTH).
func Load() (*Config, error) {
	var cfg Config
	for _, section := range cfg.sections() {
		if err := envconfig.Process(Prefix, section); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) sections() []any {
	return []any{&c.Logging, &c.Canvas, &c.Runtime, &c.Input, &c.Metrics}
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate checks values envconfig cannot.
func (c *Config) Validate() error {
	if c.Canvas.ID == "" {
		return fmt.Errorf("invalid config: empty canvas id")
	}
	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
		return fmt.Errorf("invalid config: canvas size %dx%d", c.Canvas.Width, c.Canvas.Height)
	}
	if c.Canvas.Scale <= 0 {
		return fmt.Errorf("invalid config: scale %v", c.Canvas.Scale)
	}
	if c.Canvas.TPS <= 0 {
		return fmt.Errorf("invalid config: tps %d", c.Canvas.TPS)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Logging: LogConfig{
			Level:       "info",
			Development: true,
		},
		Canvas: CanvasConfig{
			ID:     "main_canvas",
			Width:  800,
			Height: 600,
			Scale:  1,
			TPS:    60,
		},
		Runtime: RuntimeConfig{
			DiskCache: true,
		},
		Input: InputConfig{
			AxisDevices: []string{"Xbox 360", "X-Box 360", "Logitech Dual Action", "USB Gamepad"},
		},
	}
}
