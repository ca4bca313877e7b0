// Package simulator stands in for the external eye tracker process.
//
// It accepts client sessions on /ws/tracker, streams synthetic tracking frames
// while "streaming", honours auto-start and recenter requests and exposes a small
// REST API to inspect sessions and simulate connectivity loss.
package simulator

import (
	"errors"
	"log/slog"
	"time"

	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/tracking"
)

// Config holds simulator settings.
type Config struct {
	// FrameRate is the number of frames per second sent while streaming.
	FrameRate int

	// Screen is the unified screen area gaze points are generated in.
	Screen tracking.ViewportGeometry

	// StartStreaming makes the tracker stream from the moment it starts.
	StartStreaming bool

	// AutoStartDelay is how long an auto-start takes to bring the webcam up.
	AutoStartDelay time.Duration

	// AutoStartSucceeds selects the auto-start outcome.
	AutoStartSucceeds bool

	// TrackerVersion is reported in every welcome.
	TrackerVersion tracking.Version

	Logger *slog.Logger
}

// DefaultConfig returns a 60 Hz tracker on a 1920x1080 screen that is idle until
// a client asks for auto-start.
func DefaultConfig() Config {
	return Config{
		FrameRate: 60,
		Screen: tracking.ViewportGeometry{
			Point00: tracking.Point{X: 0, Y: 0},
			Point11: tracking.Point{X: 1919, Y: 1079},
		},
		AutoStartDelay:    500 * time.Millisecond,
		AutoStartSucceeds: true,
		TrackerVersion:    tracking.LibraryVersion,
	}
}

// Validate checks the configuration and fills in the logger.
func (c *Config) Validate() error {
	if c.FrameRate <= 0 || c.FrameRate > 1000 {
		return errors.New("simulator: frame rate must be in 1..1000")
	}
	if c.Screen.Width() < 2 || c.Screen.Height() < 2 {
		return errors.New("simulator: screen must be at least 2x2 pixels")
	}
	if c.AutoStartDelay < 0 {
		return errors.New("simulator: negative auto-start delay")
	}
	if c.Logger == nil {
		c.Logger = log.Component("simulator")
	}
	return nil
}
