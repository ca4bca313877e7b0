// Package web serves a live gaze dashboard: a REST API over the client plus
// websocket feeds for reception status and frames.
package web

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/camera"
	"github.com/teslashibe/go-gaze/pkg/hub"
	"github.com/teslashibe/go-gaze/pkg/recorder"
	"github.com/teslashibe/go-gaze/pkg/tracking"
)

// Controller is the client surface the dashboard drives. *client.Client implements it.
type Controller interface {
	FriendlyName() string
	Version() tracking.Version
	ReceptionStatus() tracking.ReceptionStatus
	LatestFrameWithTimestamp() (tracking.Frame, tracking.Timestamp)
	ComputeCameraTransform(state tracking.SimGameCameraState, eyeWeight, headWeight float32) tracking.Transform3D
	AttemptAutoStart() bool
	RecenterStart() bool
	RecenterEnd()
	RecenterState() camera.RecenterState
	ViewportGeometry() tracking.ViewportGeometry
	UpdateViewportGeometry(g tracking.ViewportGeometry)
	Camera() *camera.Manager
	ListenerCount() int
}

// Recordings is the read side of a recorder.
type Recordings interface {
	Latest(n int) ([]recorder.Sample, error)
	GetStats() recorder.Stats
}

// Config holds dashboard settings.
type Config struct {
	// Addr is the listen address, e.g. ":7491".
	Addr string

	// MaxFrameRate caps frames pushed on /ws/frames per second.
	MaxFrameRate int

	// StaticDir, if set, is served at /.
	StaticDir string

	// Metrics, if set, is served at /metrics.
	Metrics http.Handler

	// Recordings, if set, backs /api/recordings.
	Recordings Recordings

	Logger *slog.Logger
}

// DefaultConfig returns a dashboard on :7491 pushing at most 30 frames per second.
func DefaultConfig() Config {
	return Config{
		Addr:         ":7491",
		MaxFrameRate: 30,
	}
}

// Validate checks the configuration and fills in the logger.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("web: empty listen address")
	}
	if c.MaxFrameRate <= 0 {
		return errors.New("web: max frame rate must be positive")
	}
	if c.Logger == nil {
		c.Logger = log.Component("web")
	}
	return nil
}

// StatusEvent is pushed on /ws/status.
type StatusEvent struct {
	Status    tracking.ReceptionStatus `json:"status"`
	Listeners int                      `json:"listeners"`
	Time      time.Time                `json:"time"`
}

// FrameEvent is pushed on /ws/frames.
type FrameEvent struct {
	Timestamp tracking.Timestamp   `json:"timestamp"`
	Frame     tracking.Frame       `json:"frame"`
	Camera    tracking.Transform3D `json:"camera_transform"`
}

// Server is the dashboard. It is a tracking.Listener: register it on the client
// to feed the websocket hubs.
type Server struct {
	cfg    Config
	ctrl   Controller
	app    *fiber.App
	logger *slog.Logger

	statusHub *hub.Hub
	frameHub  *hub.Hub

	mu            sync.Mutex
	lastFrameSent time.Time
	frameInterval time.Duration
}

var _ tracking.Listener = (*Server)(nil)

// NewServer builds the dashboard for ctrl.
func NewServer(ctrl Controller, cfg Config) (*Server, error) {
	if ctrl == nil {
		return nil, errors.New("web: nil controller")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		cfg:           cfg,
		ctrl:          ctrl,
		logger:        cfg.Logger,
		statusHub:     hub.New("status", hub.WithReplay(), hub.WithLogger(cfg.Logger)),
		frameHub:      hub.New("frames", hub.WithLogger(cfg.Logger)),
		frameInterval: time.Second / time.Duration(cfg.MaxFrameRate),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Gaze Dashboard",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/frame", s.handleFrame)
	api.Get("/camera", s.handleCamera)
	api.Get("/camera/config", s.handleGetCameraConfig)
	api.Put("/camera/config", s.handleUpdateCameraConfig)
	api.Post("/autostart", s.handleAutoStart)
	api.Post("/recenter/start", s.handleRecenterStart)
	api.Post("/recenter/end", s.handleRecenterEnd)
	api.Get("/viewport", s.handleGetViewport)
	api.Put("/viewport", s.handleUpdateViewport)
	api.Get("/recordings", s.handleRecordings)

	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics))
	}

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(func(c *websocket.Conn) { hub.Serve(s.statusHub, c) }))
	app.Get("/ws/frames", websocket.New(func(c *websocket.Conn) { hub.Serve(s.frameHub, c) }))

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	s.app = app
	go s.statusHub.Run()
	go s.frameHub.Run()
	s.statusHub.BroadcastJSON(s.statusEvent(ctrl.ReceptionStatus()))
	return s, nil
}

// App returns the underlying Fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("dashboard listening", "addr", s.cfg.Addr)
	return s.app.Listen(s.cfg.Addr)
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("dashboard stopped", "error", err)
		}
	}()
}

// Shutdown stops the HTTP server and the hubs.
func (s *Server) Shutdown() error {
	s.statusHub.Stop()
	s.frameHub.Stop()
	return s.app.Shutdown()
}

func (s *Server) statusEvent(status tracking.ReceptionStatus) StatusEvent {
	return StatusEvent{
		Status:    status,
		Listeners: s.ctrl.ListenerCount(),
		Time:      time.Now(),
	}
}

// OnReceptionStatusChanged pushes the new status to /ws/status.
func (s *Server) OnReceptionStatusChanged(status tracking.ReceptionStatus) {
	if err := s.statusHub.BroadcastJSON(s.statusEvent(status)); err != nil {
		s.logger.Warn("status not broadcast", "error", err)
	}
}

// OnTrackingFrame pushes f to /ws/frames, at most MaxFrameRate times per second.
func (s *Server) OnTrackingFrame(f *tracking.Frame, ts tracking.Timestamp) {
	now := time.Now()
	s.mu.Lock()
	if now.Sub(s.lastFrameSent) < s.frameInterval {
		s.mu.Unlock()
		return
	}
	s.lastFrameSent = now
	s.mu.Unlock()

	if s.frameHub.ClientCount() == 0 {
		return
	}
	ev := FrameEvent{Timestamp: ts, Frame: *f}
	if f.HasCamera() {
		ev.Camera, _ = s.ctrl.Camera().Transform(f)
	}
	if err := s.frameHub.BroadcastJSON(ev); err != nil {
		s.logger.Warn("frame not broadcast", "error", err)
	}
}
