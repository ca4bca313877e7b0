// Package producer implements transports that feed tracking frames into a gaze client.
package producer

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/teslashibe/go-gaze/internal/config"
	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/tracking"
)

// Sentinel errors for common error conditions.
var (
	// ErrNotConnected is returned when a request needs a live tracker connection.
	ErrNotConnected = fmt.Errorf("producer: not connected: %w", tracking.ErrProducerUnavailable)

	// ErrNotStreaming is returned when a request needs active tracking.
	ErrNotStreaming = fmt.Errorf("producer: tracker not streaming: %w", tracking.ErrProducerUnavailable)

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("producer: closed")
)

// Config holds websocket producer configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	// Tracker endpoint
	URL       string
	HealthURL string // derived from URL when empty

	// Session identity shown in the tracker UI
	FriendlyName string
	Viewport     tracking.ViewportGeometry

	// Timeouts
	HandshakeTimeout  time.Duration
	WriteTimeout      time.Duration
	ReadTimeout       time.Duration
	StaleAfter        time.Duration // no frame for this long while streaming -> disconnected
	PingInterval      time.Duration
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration

	HTTPClient *http.Client

	// Observability
	Logger *slog.Logger
}

// Option is a functional option for configuring the producer.
type Option func(*Config)

// DefaultConfig returns the configuration used when no options are given.
func DefaultConfig() Config {
	return Config{
		URL:               config.TrackerURL(),
		FriendlyName:      config.FriendlyName(),
		HandshakeTimeout:  5 * time.Second,
		WriteTimeout:      5 * time.Second,
		ReadTimeout:       30 * time.Second,
		StaleAfter:        2 * time.Second,
		PingInterval:      10 * time.Second,
		ReconnectDelay:    500 * time.Millisecond,
		MaxReconnectDelay: 10 * time.Second,
	}
}

// Validate checks the configuration and fills derived fields.
func (c *Config) Validate() error {
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("producer: tracker url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("producer: tracker url scheme %q, want ws or wss", u.Scheme)
	}
	if err := tracking.ValidateFriendlyName(c.FriendlyName); err != nil {
		return err
	}
	if c.HealthURL == "" {
		if c.HealthURL, err = config.HealthURL(c.URL); err != nil {
			return fmt.Errorf("producer: %w", err)
		}
	}
	if c.StaleAfter <= 0 || c.ReconnectDelay <= 0 || c.HandshakeTimeout <= 0 {
		return fmt.Errorf("producer: timeouts must be positive")
	}
	if c.MaxReconnectDelay < c.ReconnectDelay {
		c.MaxReconnectDelay = c.ReconnectDelay
	}
	if c.Logger == nil {
		c.Logger = log.Component("producer")
	}
	return nil
}

// WithURL sets the tracker websocket URL.
func WithURL(u string) Option {
	return func(c *Config) {
		c.URL = u
	}
}

// WithHealthURL overrides the tracker health endpoint probed before auto-start.
func WithHealthURL(u string) Option {
	return func(c *Config) {
		c.HealthURL = u
	}
}

// WithFriendlyName sets the name shown in the tracker UI.
func WithFriendlyName(name string) Option {
	return func(c *Config) {
		c.FriendlyName = name
	}
}

// WithViewport sets the initial viewport geometry.
func WithViewport(g tracking.ViewportGeometry) Option {
	return func(c *Config) {
		c.Viewport = g
	}
}

// WithStaleAfter sets how long a streaming link may go without frames.
func WithStaleAfter(d time.Duration) Option {
	return func(c *Config) {
		c.StaleAfter = d
	}
}

// WithReconnectDelay sets the initial and maximum reconnect backoff.
func WithReconnectDelay(initial, max time.Duration) Option {
	return func(c *Config) {
		c.ReconnectDelay = initial
		c.MaxReconnectDelay = max
	}
}

// WithHTTPClient sets the client used for health probes.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) {
		c.HTTPClient = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}
