package simulator

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-gaze/pkg/debug"
	"github.com/teslashibe/go-gaze/pkg/protocol"
	"github.com/teslashibe/go-gaze/pkg/tracking"
)

// Session is one connected client.
type Session struct {
	ID           string
	ClientID     string
	FriendlyName string
	Connected    time.Time

	conn *websocket.Conn

	mu       sync.Mutex
	viewport tracking.ViewportGeometry
	lastSeen time.Time
}

// Send writes msg to the client.
func (s *Session) Send(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Viewport returns the viewport last reported by the client.
func (s *Session) Viewport() tracking.ViewportGeometry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewport
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

// Server simulates the tracker process.
type Server struct {
	cfg    Config
	app    *fiber.App
	logger *slog.Logger
	epoch  time.Time

	mu               sync.RWMutex
	sessions         map[string]*Session
	streaming        bool
	autoStartPending bool
	recentering      bool
	neutral          tracking.Transform3D
	trackUID         uint64
	seq              uint64

	messagesReceived atomic.Uint64
	messagesSent     atomic.Uint64
	framesSent       atomic.Uint64
	autoStarts       atomic.Uint64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer builds a simulator and registers its routes. Frames flow once Start
// (or Run) is called.
func NewServer(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		cfg:       cfg,
		logger:    cfg.Logger,
		epoch:     time.Now(),
		sessions:  make(map[string]*Session),
		streaming: cfg.StartStreaming,
	}
	if s.streaming {
		s.trackUID = 1
	}

	app := fiber.New(fiber.Config{
		AppName:               "gaze-sim",
		DisableStartupMessage: true,
	})
	s.RegisterRoutes(app)
	s.RegisterAPIRoutes(app.Group("/api"))
	s.app = app
	return s, nil
}

// App returns the underlying Fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// RegisterRoutes registers the tracker websocket endpoint.
func (s *Server) RegisterRoutes(app *fiber.App) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/tracker", websocket.New(s.handleSession))
}

// Run generates frames until ctx is cancelled.
func (s *Server) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second / time.Duration(s.cfg.FrameRate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// Start runs the frame generator and listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Run(ctx)
	}()

	s.logger.Info("tracker simulator listening", "addr", addr,
		"frame_rate", s.cfg.FrameRate, "streaming", s.Streaming())
	return s.app.Listen(addr)
}

// Shutdown stops the frame generator and the HTTP server.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	return s.app.Shutdown()
}

// Streaming reports whether the simulated webcam is delivering frames.
func (s *Server) Streaming() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.streaming
}

// SetStreaming turns the simulated webcam on or off and tells every client.
func (s *Server) SetStreaming(on bool, reason string) {
	s.mu.Lock()
	if s.streaming == on {
		s.mu.Unlock()
		return
	}
	s.streaming = on
	if on {
		s.trackUID++
	} else {
		s.recentering = false
	}
	s.mu.Unlock()

	s.logger.Info("streaming changed", "streaming", on, "reason", reason)
	if msg, err := protocol.NewStatusMessage(on, reason); err == nil {
		s.Broadcast(msg)
	}
}

// tick sends one frame to every session when streaming.
func (s *Server) tick() {
	s.mu.Lock()
	if !s.streaming {
		s.mu.Unlock()
		return
	}
	t := time.Since(s.epoch).Seconds()
	p := poseAt(t)
	if s.recentering {
		s.neutral = p.head
	}
	neutral := s.neutral
	uid := s.trackUID
	s.seq++
	seq := s.seq
	sessions := s.snapshot()
	s.mu.Unlock()

	ts := tracking.Timestamp(t)
	for _, sess := range sessions {
		frame := buildFrame(ts, p, s.cfg.Screen, sess.Viewport(), neutral, uid)
		msg, err := protocol.NewFrameMessage(seq, ts, frame)
		if err != nil {
			continue
		}
		if err := sess.Send(msg); err != nil {
			debug.FrameLog("frame not sent", "session", sess.ID, "error", err)
			continue
		}
		s.messagesSent.Add(1)
		s.framesSent.Add(1)
	}
}

// snapshot must be called with s.mu held.
func (s *Server) snapshot() []*Session {
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out
}

// handleSession serves one client connection.
func (s *Server) handleSession(c *websocket.Conn) {
	sess := &Session{
		ID:        uuid.NewString(),
		Connected: time.Now(),
		lastSeen:  time.Now(),
		conn:      c,
	}
	logger := s.logger.With("session", sess.ID)

	defer func() {
		s.mu.Lock()
		delete(s.sessions, sess.ID)
		count := len(s.sessions)
		s.mu.Unlock()
		logger.Info("client disconnected", "app", sess.FriendlyName, "sessions", count)
	}()

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			logger.Debug("read ended", "error", err)
			return
		}
		sess.touch()
		s.messagesReceived.Add(1)

		msg, err := protocol.ParseMessage(data)
		if err != nil {
			logger.Warn("parse error", "error", err)
			continue
		}
		s.handleMessage(sess, msg, logger)
	}
}

func (s *Server) handleMessage(sess *Session, msg *protocol.Message, logger *slog.Logger) {
	switch msg.Type {
	case protocol.TypeHello:
		hello, err := msg.GetHelloData()
		if err != nil {
			s.reject(sess, msg.Type, err.Error())
			return
		}
		if err := tracking.ValidateFriendlyName(hello.FriendlyName); err != nil {
			s.reject(sess, msg.Type, err.Error())
			return
		}
		sess.mu.Lock()
		sess.viewport = hello.Viewport
		sess.mu.Unlock()
		sess.FriendlyName = hello.FriendlyName
		sess.ClientID = hello.SessionID

		s.mu.Lock()
		s.sessions[sess.ID] = sess
		count := len(s.sessions)
		streaming := s.streaming
		s.mu.Unlock()
		logger.Info("client connected", "app", hello.FriendlyName,
			"client_version", hello.Version.String(), "sessions", count)

		welcome, err := protocol.NewWelcomeMessage(sess.ClientID, s.cfg.TrackerVersion, streaming)
		if err == nil {
			s.send(sess, welcome)
		}

	case protocol.TypeViewport:
		data, err := msg.GetViewportData()
		if err != nil {
			s.reject(sess, msg.Type, err.Error())
			return
		}
		sess.mu.Lock()
		sess.viewport = data.Viewport
		sess.mu.Unlock()

	case protocol.TypeAutoStart:
		s.autoStart(sess)

	case protocol.TypeRecenterStart:
		s.mu.Lock()
		ok := s.streaming
		if ok {
			s.recentering = true
		}
		s.mu.Unlock()
		if !ok {
			s.reject(sess, msg.Type, "not tracking")
			return
		}
		logger.Info("recenter started")

	case protocol.TypeRecenterEnd:
		s.mu.Lock()
		s.recentering = false
		s.mu.Unlock()
		logger.Info("recenter ended")

	case protocol.TypePing:
		ping, _ := msg.GetPingData()
		id := ""
		if ping != nil {
			id = ping.ID
		}
		if pong, err := protocol.NewPongMessage(id, msg.Timestamp, time.Now().UnixMilli()); err == nil {
			s.send(sess, pong)
		}

	case protocol.TypePong:
		debug.Log("pong", "session", sess.ID)

	default:
		s.reject(sess, msg.Type, "unsupported request")
	}
}

// autoStart brings the simulated webcam up after the configured delay.
func (s *Server) autoStart(sess *Session) {
	s.autoStarts.Add(1)

	s.mu.Lock()
	if s.streaming {
		s.mu.Unlock()
		if msg, err := protocol.NewAutoStartResultMessage(true, "already tracking"); err == nil {
			s.send(sess, msg)
		}
		return
	}
	pending := s.autoStartPending
	s.autoStartPending = true
	s.mu.Unlock()
	if pending {
		return
	}

	time.AfterFunc(s.cfg.AutoStartDelay, func() {
		s.mu.Lock()
		s.autoStartPending = false
		s.mu.Unlock()

		if !s.cfg.AutoStartSucceeds {
			s.logger.Info("auto-start failed")
			if msg, err := protocol.NewAutoStartResultMessage(false, "webcam unavailable"); err == nil {
				s.Broadcast(msg)
			}
			return
		}
		s.SetStreaming(true, "auto_start")
		if msg, err := protocol.NewAutoStartResultMessage(true, ""); err == nil {
			s.Broadcast(msg)
		}
	})
}

func (s *Server) reject(sess *Session, request protocol.MessageType, reason string) {
	if msg, err := protocol.NewErrorMessage(request, reason); err == nil {
		s.send(sess, msg)
	}
}

func (s *Server) send(sess *Session, msg *protocol.Message) {
	if err := sess.Send(msg); err != nil {
		s.logger.Debug("send failed", "session", sess.ID, "type", msg.Type, "error", err)
		return
	}
	s.messagesSent.Add(1)
}

// Broadcast sends msg to every session that has said hello.
func (s *Server) Broadcast(msg *protocol.Message) {
	s.mu.RLock()
	sessions := s.snapshot()
	s.mu.RUnlock()

	for _, sess := range sessions {
		s.send(sess, msg)
	}
}

// SessionCount returns the number of registered sessions.
func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Stats contains simulator statistics.
type Stats struct {
	Sessions         int    `json:"sessions"`
	Streaming        bool   `json:"streaming"`
	Recentering      bool   `json:"recentering"`
	MessagesReceived uint64 `json:"messages_received"`
	MessagesSent     uint64 `json:"messages_sent"`
	FramesSent       uint64 `json:"frames_sent"`
	AutoStarts       uint64 `json:"auto_starts"`
}

// GetStats returns simulator statistics.
func (s *Server) GetStats() Stats {
	s.mu.RLock()
	st := Stats{
		Sessions:    len(s.sessions),
		Streaming:   s.streaming,
		Recentering: s.recentering,
	}
	s.mu.RUnlock()
	st.MessagesReceived = s.messagesReceived.Load()
	st.MessagesSent = s.messagesSent.Load()
	st.FramesSent = s.framesSent.Load()
	st.AutoStarts = s.autoStarts.Load()
	return st
}

// SessionInfo describes a connected client.
type SessionInfo struct {
	ID           string                    `json:"id"`
	ClientID     string                    `json:"client_id"`
	FriendlyName string                    `json:"friendly_name"`
	Viewport     tracking.ViewportGeometry `json:"viewport"`
	Connected    time.Time                 `json:"connected"`
	LastSeen     time.Time                 `json:"last_seen"`
}

// GetSessionInfos returns info about all registered sessions.
func (s *Server) GetSessionInfos() []SessionInfo {
	s.mu.RLock()
	sessions := s.snapshot()
	s.mu.RUnlock()

	infos := make([]SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		sess.mu.Lock()
		infos = append(infos, SessionInfo{
			ID:           sess.ID,
			ClientID:     sess.ClientID,
			FriendlyName: sess.FriendlyName,
			Viewport:     sess.viewport,
			Connected:    sess.Connected,
			LastSeen:     sess.lastSeen,
		})
		sess.mu.Unlock()
	}
	return infos
}

// RegisterAPIRoutes registers the inspection and control API.
func (s *Server) RegisterAPIRoutes(api fiber.Router) {
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "ok",
			"streaming": s.Streaming(),
			"version":   s.cfg.TrackerVersion.String(),
		})
	})

	api.Get("/sessions", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"sessions": s.GetSessionInfos(),
			"count":    s.SessionCount(),
		})
	})

	api.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(s.GetStats())
	})

	// Simulate the webcam going away or coming back.
	api.Post("/streaming", func(c *fiber.Ctx) error {
		var req struct {
			Streaming bool   `json:"streaming"`
			Reason    string `json:"reason"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		if req.Reason == "" {
			req.Reason = "api"
		}
		s.SetStreaming(req.Streaming, req.Reason)
		return c.JSON(fiber.Map{"streaming": s.Streaming()})
	})
}
