// Package client is the application-facing gaze API.
//
// A Client consumes frames from a tracking.Producer and offers them three ways:
// polling with LatestFrame, blocking with WaitForUpdate, and push delivery to
// registered listeners. It also drives auto-start, recentering and camera
// transforms.
package client

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-gaze/pkg/camera"
	"github.com/teslashibe/go-gaze/pkg/tracking"
)

// Client is safe for concurrent use.
type Client struct {
	friendlyName string
	producer     tracking.Producer
	dispatcher   *tracking.Dispatcher
	recenter     *camera.Recenter
	camera       *camera.Manager
	logger       *slog.Logger

	mu       sync.RWMutex
	viewport tracking.ViewportGeometry

	closed    atomic.Bool
	closeOnce sync.Once
}

// Option is a functional option for configuring a Client.
type Option func(*tracking.Config)

// WithLogger sets the logger used by the client and its engine.
func WithLogger(logger *slog.Logger) Option {
	return func(c *tracking.Config) {
		c.Logger = logger
	}
}

// WithObserver attaches an engine observer, typically metrics.
func WithObserver(o tracking.Observer) Option {
	return func(c *tracking.Config) {
		c.Observer = o
	}
}

// WithFanOutBatchSize sets the listener count above which fan-out runs in parallel.
func WithFanOutBatchSize(n int) Option {
	return func(c *tracking.Config) {
		c.FanOutBatchSize = n
	}
}

// New validates the friendly name, wires p into a dispatch engine and starts it.
// The client owns p from here on and closes it in Close.
func New(friendlyName string, viewport tracking.ViewportGeometry, p tracking.Producer, opts ...Option) (*Client, error) {
	if err := tracking.ValidateFriendlyName(friendlyName); err != nil {
		return nil, err
	}
	if p == nil {
		return nil, tracking.ErrNilProducer
	}

	cfg := tracking.DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	d, err := tracking.NewDispatcher(p, cfg)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = tracking.DefaultConfig().Logger
	}
	logger = logger.With("app", friendlyName)

	c := &Client{
		friendlyName: friendlyName,
		producer:     p,
		dispatcher:   d,
		recenter:     camera.NewRecenter(p, logger),
		camera:       camera.NewManager(),
		logger:       logger,
		viewport:     viewport,
	}

	if err := p.UpdateViewport(viewport); err != nil {
		logger.Debug("initial viewport not delivered", "error", err)
	}
	d.Start(context.Background())
	logger.Info("gaze client started", "version", tracking.LibraryVersion.String(),
		"viewport_width", viewport.Width(), "viewport_height", viewport.Height())
	return c, nil
}

// Version returns the library version.
func (c *Client) Version() tracking.Version {
	return tracking.LibraryVersion
}

// FriendlyName returns the name shown in the tracker UI.
func (c *Client) FriendlyName() string {
	return c.friendlyName
}

// ViewportGeometry returns the current viewport geometry.
func (c *Client) ViewportGeometry() tracking.ViewportGeometry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viewport
}

// UpdateViewportGeometry changes the viewport used for viewport-normalized gaze.
// Delivery problems are logged; the tracker picks the geometry up on reconnect.
func (c *Client) UpdateViewportGeometry(g tracking.ViewportGeometry) {
	c.mu.Lock()
	c.viewport = g
	c.mu.Unlock()

	if c.closed.Load() {
		return
	}
	if err := c.producer.UpdateViewport(g); err != nil {
		c.logger.Warn("viewport update not delivered", "error", err)
	}
}

// AttemptAutoStart asks the tracker to start tracking if no data is flowing.
// It returns false when the request could not be made; the reception status
// reports the outcome either way.
func (c *Client) AttemptAutoStart() bool {
	if c.closed.Load() {
		return false
	}
	return c.dispatcher.AttemptAutoStart()
}

// RegisterListener starts push delivery to l. Registering the same listener twice
// yields two handles, each delivering independently.
func (c *Client) RegisterListener(l tracking.Listener) (tracking.ListenerHandle, error) {
	if c.closed.Load() {
		return tracking.InvalidListenerHandle, tracking.ErrClosed
	}
	return c.dispatcher.Registry().Register(l)
}

// UnregisterListener stops delivery to h, waiting for a callback in flight on
// another goroutine. Unknown handles are ignored. Must not be called for h from
// inside h's own callback.
func (c *Client) UnregisterListener(h tracking.ListenerHandle) {
	c.dispatcher.Registry().Unregister(h)
}

// ListenerCount returns the number of registered listeners.
func (c *Client) ListenerCount() int {
	return c.dispatcher.Registry().Len()
}

// WaitForUpdate blocks until a frame with a timestamp other than *lastSeen is
// available or timeout elapses. See tracking.Waiter.
func (c *Client) WaitForUpdate(lastSeen *tracking.Timestamp, timeout time.Duration) bool {
	return c.dispatcher.Waiter().WaitForUpdate(lastSeen, timeout)
}

// LatestFrame returns a copy of the most recent frame.
func (c *Client) LatestFrame() tracking.Frame {
	f, _ := c.dispatcher.Slot().Read()
	return f
}

// LatestFrameWithTimestamp returns a copy of the most recent frame and its timestamp.
func (c *Client) LatestFrameWithTimestamp() (tracking.Frame, tracking.Timestamp) {
	return c.dispatcher.Slot().Read()
}

// ReceptionStatus returns the current reception status without blocking.
func (c *Client) ReceptionStatus() tracking.ReceptionStatus {
	return c.dispatcher.Status()
}

// ComputeCameraTransform blends the two pose components of state.
func (c *Client) ComputeCameraTransform(state tracking.SimGameCameraState, eyeWeight, headWeight float32) tracking.Transform3D {
	return camera.ComputeTransform(state, eyeWeight, headWeight)
}

// CameraTransform applies the configured sensitivities to the latest frame.
func (c *Client) CameraTransform() (tracking.Transform3D, bool) {
	f := c.LatestFrame()
	return c.camera.Transform(&f)
}

// Camera returns the runtime camera sensitivity settings.
func (c *Client) Camera() *camera.Manager {
	return c.camera
}

// RecenterStart begins capturing the user's current pose as the camera's neutral pose.
// It returns false if the request could not be queued, for example without active tracking.
func (c *Client) RecenterStart() bool {
	if c.closed.Load() {
		return false
	}
	return c.recenter.Start()
}

// RecenterEnd ends a recenter sequence started with RecenterStart.
func (c *Client) RecenterEnd() {
	c.recenter.End()
}

// RecenterState returns the state of the recenter sequence.
func (c *Client) RecenterState() camera.RecenterState {
	return c.recenter.State()
}

// Close stops dispatching and closes the producer.
// Listeners get no further callbacks once Close returns.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.dispatcher.Close()
		err = c.producer.Close()
		c.logger.Info("gaze client closed")
	})
	return err
}
