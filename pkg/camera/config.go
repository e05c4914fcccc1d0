// Package camera defines the capture and display contracts used by the tracker,
// together with the camera configuration and a scripted mock for tests.
// The OpenCV-backed implementation lives in pkg/camera/opencv.
package camera

import "time"

// Config holds the camera and display settings.
type Config struct {
	// Device is the capture device index; 0 is the system default camera.
	Device int `json:"device"`

	// Requested resolution. Devices may deliver something else; it is not verified.
	Width  int `json:"width"`
	Height int `json:"height"`

	// Quality is the JPEG quality (1-100) used when frames are encoded for preview.
	Quality int `json:"quality"`

	// WindowTitle names the display window.
	WindowTitle string `json:"window_title"`

	// KeyPoll is how long each key poll waits; it also pumps window events.
	KeyPoll time.Duration `json:"key_poll"`
}

// Resolution limits accepted by Validate.
const (
	MinWidth  = 160
	MinHeight = 120
	MaxWidth  = 3840
	MaxHeight = 2160
)

// DefaultWindowTitle is the title of the frame window.
const DefaultWindowTitle = "JuggleTracker"

// DefaultConfig returns the default device at 1280x720.
func DefaultConfig() Config {
	return Config{
		Device:      0,
		Width:       1280,
		Height:      720,
		Quality:     80,
		WindowTitle: DefaultWindowTitle,
		KeyPoll:     time.Millisecond,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Device < 0 {
		errors = append(errors, "device must be 0 or greater")
	}
	if c.Width < MinWidth || c.Width > MaxWidth {
		errors = append(errors, "width must be between 160 and 3840")
	}
	if c.Height < MinHeight || c.Height > MaxHeight {
		errors = append(errors, "height must be between 120 and 2160")
	}
	if c.Quality < 1 || c.Quality > 100 {
		errors = append(errors, "quality must be between 1 and 100")
	}
	if c.WindowTitle == "" {
		errors = append(errors, "window_title must not be empty")
	}
	if c.KeyPoll < time.Millisecond {
		errors = append(errors, "key_poll must be at least 1ms")
	}

	return errors
}

// KeyPollMillis returns KeyPoll in whole milliseconds, at least 1.
func (c *Config) KeyPollMillis() int {
	ms := int(c.KeyPoll / time.Millisecond)
	if ms < 1 {
		return 1
	}
	return ms
}
