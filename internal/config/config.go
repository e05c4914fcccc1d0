// Package config loads juggletracker settings.
// Precedence (highest to lowest): CLI flags > environment variables > defaults.
package config

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/teslashibe/juggletracker/pkg/camera"
	"github.com/teslashibe/juggletracker/pkg/configdir"
)

// Config holds every runtime setting.
type Config struct {
	Device  int    `env:"JUGGLE_CAMERA_DEVICE" envDefault:"0"`
	Preset  string `env:"JUGGLE_PRESET" envDefault:"720p"`
	Width   int    `env:"JUGGLE_WIDTH"`  // overrides the preset when set
	Height  int    `env:"JUGGLE_HEIGHT"` // overrides the preset when set
	Quality int    `env:"JUGGLE_JPEG_QUALITY"`

	KeyPoll time.Duration `env:"JUGGLE_KEY_POLL" envDefault:"1ms"`

	// ConfigDir overrides the platform config directory.
	ConfigDir string `env:"JUGGLE_CONFIG_DIR"`

	// PreviewAddr enables the web preview when non-empty.
	PreviewAddr  string `env:"JUGGLE_PREVIEW_ADDR"`
	PreviewEvery int    `env:"JUGGLE_PREVIEW_EVERY" envDefault:"3"`

	LogLevel string `env:"JUGGLE_LOG_LEVEL" envDefault:"info"`
	GoEnv    string `env:"GO_ENV"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// BindFlags registers flags on fs that default to the current values,
// so parsing fs overrides the environment.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.Device, "device", c.Device, "Camera device index (JUGGLE_CAMERA_DEVICE)")
	fs.StringVar(&c.Preset, "preset", c.Preset, "Resolution preset: "+strings.Join(camera.PresetNames(), ", ")+" (JUGGLE_PRESET)")
	fs.IntVar(&c.Width, "width", c.Width, "Requested frame width, overrides preset (JUGGLE_WIDTH)")
	fs.IntVar(&c.Height, "height", c.Height, "Requested frame height, overrides preset (JUGGLE_HEIGHT)")
	fs.StringVar(&c.ConfigDir, "config-dir", c.ConfigDir, "Configuration directory (JUGGLE_CONFIG_DIR)")
	fs.StringVar(&c.PreviewAddr, "preview-addr", c.PreviewAddr, "Serve a web preview on this address, e.g. 127.0.0.1:8090 (JUGGLE_PREVIEW_ADDR)")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level: debug, info, warn, error (JUGGLE_LOG_LEVEL)")
}

// Production reports whether JSON logging should be used.
func (c *Config) Production() bool {
	return c.GoEnv == "production"
}

// Camera builds the camera configuration from the preset and overrides.
func (c *Config) Camera() (camera.Config, error) {
	preset := camera.GetPreset(c.Preset)
	if preset == nil {
		return camera.Config{}, fmt.Errorf("unknown preset %q (available: %s)", c.Preset, strings.Join(camera.PresetNames(), ", "))
	}

	cam := *preset
	cam.Device = c.Device
	if c.Width > 0 {
		cam.Width = c.Width
	}
	if c.Height > 0 {
		cam.Height = c.Height
	}
	if c.Quality > 0 {
		cam.Quality = c.Quality
	}
	if c.KeyPoll > 0 {
		cam.KeyPoll = c.KeyPoll
	}

	if errs := cam.Validate(); len(errs) > 0 {
		return camera.Config{}, fmt.Errorf("invalid camera config: %s", strings.Join(errs, "; "))
	}
	return cam, nil
}

// Validate checks the settings that do not belong to the camera.
func (c *Config) Validate() error {
	var errs []error
	if c.PreviewEvery < 1 {
		errs = append(errs, fmt.Errorf("preview every must be at least 1, got %d", c.PreviewEvery))
	}
	return errors.Join(errs...)
}

// ResolveConfigDir returns the override directory or the platform default,
// creating it if needed.
func (c *Config) ResolveConfigDir() (string, error) {
	if c.ConfigDir != "" {
		if err := configdir.EnsureDir(c.ConfigDir); err != nil {
			return "", err
		}
		return c.ConfigDir, nil
	}
	return configdir.Default()
}
