package producer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-gaze/internal/httpc"
	"github.com/teslashibe/go-gaze/pkg/debug"
	"github.com/teslashibe/go-gaze/pkg/protocol"
	"github.com/teslashibe/go-gaze/pkg/tracking"
)

// WebSocket is a tracking.Producer talking JSON over a websocket to the tracker process.
//
// It connects in the background and reconnects with exponential backoff. Each
// connection starts with a hello carrying the friendly name, a per-producer
// session ID and the current viewport.
type WebSocket struct {
	cfg       Config
	logger    *slog.Logger
	sessionID string

	mu               sync.Mutex
	seq              uint64
	frame            tracking.Frame
	ts               tracking.Timestamp
	lastFrameAt      time.Time
	connected        bool
	streaming        bool
	autoStartFailed  bool
	pendingAutoStart bool
	viewport         tracking.ViewportGeometry

	conn    *websocket.Conn
	writeMu sync.Mutex

	updates chan struct{}

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

var _ tracking.Producer = (*WebSocket)(nil)

// NewWebSocket validates the configuration and starts connecting.
func NewWebSocket(opts ...Option) (*WebSocket, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &WebSocket{
		cfg:       cfg,
		logger:    cfg.Logger.With("url", cfg.URL),
		sessionID: uuid.NewString(),
		frame:     tracking.EmptyFrame(),
		ts:        tracking.NullDataTimestamp,
		viewport:  cfg.Viewport,
		updates:   make(chan struct{}, 1),
		ctx:       ctx,
		cancel:    cancel,
	}

	w.wg.Add(2)
	go w.run()
	go w.watchdog()
	return w, nil
}

// SessionID returns the ID sent in every hello.
func (w *WebSocket) SessionID() string { return w.sessionID }

// Updates implements tracking.Producer.
func (w *WebSocket) Updates() <-chan struct{} { return w.updates }

// Fetch implements tracking.Producer.
func (w *WebSocket) Fetch() tracking.Sample {
	w.mu.Lock()
	defer w.mu.Unlock()
	return tracking.Sample{
		Frame:        w.frame,
		Timestamp:    w.ts,
		Seq:          w.seq,
		Connectivity: w.connectivityLocked(),
	}
}

func (w *WebSocket) connectivityLocked() tracking.Connectivity {
	switch {
	case w.connected && w.streaming:
		return tracking.Streaming
	case w.autoStartFailed:
		return tracking.AutoStartFailed
	default:
		return tracking.Disconnected
	}
}

// Connected reports whether a tracker session is up.
func (w *WebSocket) Connected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.connected
}

// RequestAutoStart asks the tracker to start tracking.
//
// Without a live session the tracker health endpoint is probed first. If nothing
// answers ErrProducerUnavailable is returned; otherwise the request is held and sent
// right after the next hello.
func (w *WebSocket) RequestAutoStart() error {
	if w.ctx.Err() != nil {
		return ErrClosed
	}

	w.mu.Lock()
	w.autoStartFailed = false
	connected := w.connected
	w.mu.Unlock()

	if connected {
		msg, err := protocol.NewAutoStartMessage()
		if err != nil {
			return err
		}
		return w.send(msg)
	}

	ctx, cancel := context.WithTimeout(w.ctx, w.cfg.HandshakeTimeout)
	defer cancel()
	if err := httpc.Probe(ctx, w.cfg.HTTPClient, w.cfg.HealthURL); err != nil {
		return fmt.Errorf("%w: %v", tracking.ErrProducerUnavailable, err)
	}

	w.mu.Lock()
	w.pendingAutoStart = true
	w.mu.Unlock()
	w.logger.Info("tracker reachable, auto-start queued until session is up")
	return nil
}

// RequestRecenterStart asks the tracker to capture the current pose as neutral.
// It fails unless the tracker is streaming.
func (w *WebSocket) RequestRecenterStart() error {
	w.mu.Lock()
	ok := w.connected && w.streaming
	w.mu.Unlock()
	if !ok {
		return ErrNotStreaming
	}

	msg, err := protocol.NewRecenterStartMessage()
	if err != nil {
		return err
	}
	return w.send(msg)
}

// RequestRecenterEnd ends the recenter capture.
func (w *WebSocket) RequestRecenterEnd() error {
	msg, err := protocol.NewRecenterEndMessage()
	if err != nil {
		return err
	}
	return w.send(msg)
}

// UpdateViewport stores g for future hellos and forwards it to a live session.
func (w *WebSocket) UpdateViewport(g tracking.ViewportGeometry) error {
	w.mu.Lock()
	w.viewport = g
	connected := w.connected
	w.mu.Unlock()

	if !connected {
		return nil
	}
	msg, err := protocol.NewViewportMessage(g)
	if err != nil {
		return err
	}
	return w.send(msg)
}

// Close stops reconnecting, closes the connection and the Updates channel.
func (w *WebSocket) Close() error {
	w.closeOnce.Do(func() {
		w.cancel()
		w.writeMu.Lock()
		if w.conn != nil {
			w.conn.Close()
		}
		w.writeMu.Unlock()
		w.wg.Wait()
		close(w.updates)
	})
	return nil
}

func (w *WebSocket) notify() {
	select {
	case w.updates <- struct{}{}:
	default:
	}
}

func (w *WebSocket) send(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	if w.conn == nil {
		return ErrNotConnected
	}
	w.conn.SetWriteDeadline(time.Now().Add(w.cfg.WriteTimeout))
	if err := w.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	return nil
}

// run owns the reconnect loop.
func (w *WebSocket) run() {
	defer w.wg.Done()

	delay := w.cfg.ReconnectDelay
	for {
		established, err := w.session()
		if w.ctx.Err() != nil {
			return
		}
		if established {
			delay = w.cfg.ReconnectDelay
		}
		w.logger.Debug("tracker session ended", "error", err, "retry_in", delay)

		select {
		case <-w.ctx.Done():
			return
		case <-time.After(delay):
		}
		delay = min(delay*2, w.cfg.MaxReconnectDelay)
	}
}

// session dials, says hello and reads until the connection breaks.
func (w *WebSocket) session() (bool, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: w.cfg.HandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(w.ctx, w.cfg.URL, nil)
	if err != nil {
		return false, fmt.Errorf("dial: %w", err)
	}

	conn.SetPingHandler(func(appData string) error {
		w.writeMu.Lock()
		defer w.writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(w.cfg.WriteTimeout))
	})

	w.writeMu.Lock()
	w.conn = conn
	w.writeMu.Unlock()

	sessCtx, sessCancel := context.WithCancel(w.ctx)
	defer func() {
		sessCancel()
		w.writeMu.Lock()
		w.conn = nil
		w.writeMu.Unlock()
		conn.Close()
		w.setDisconnected()
	}()

	w.mu.Lock()
	viewport := w.viewport
	w.mu.Unlock()

	hello, err := protocol.NewHelloMessage(w.cfg.FriendlyName, w.sessionID, viewport)
	if err != nil {
		return false, err
	}
	if err := w.send(hello); err != nil {
		return false, err
	}

	w.wg.Add(1)
	go w.keepAlive(sessCtx, conn)

	// Unblock ReadMessage on shutdown.
	go func() {
		<-sessCtx.Done()
		conn.Close()
	}()

	established := false
	for {
		conn.SetReadDeadline(time.Now().Add(w.cfg.ReadTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return established, err
		}

		msg, err := protocol.ParseMessage(data)
		if err != nil {
			w.logger.Warn("dropping tracker message", "error", err)
			continue
		}
		if msg.Type == protocol.TypeWelcome {
			established = true
		}
		w.handle(msg)
	}
}

func (w *WebSocket) handle(msg *protocol.Message) {
	switch msg.Type {
	case protocol.TypeWelcome:
		data, err := msg.GetWelcomeData()
		if err != nil {
			w.logger.Warn("bad welcome", "error", err)
			return
		}
		w.mu.Lock()
		w.connected = true
		w.streaming = data.Streaming
		if data.Streaming {
			w.lastFrameAt = time.Now()
		}
		pending := w.pendingAutoStart
		w.pendingAutoStart = false
		w.mu.Unlock()

		w.logger.Info("tracker session up", "session", data.SessionID,
			"tracker_version", data.TrackerVersion.String(), "streaming", data.Streaming)
		w.notify()

		if pending {
			if m, err := protocol.NewAutoStartMessage(); err == nil {
				if err := w.send(m); err != nil {
					w.logger.Warn("queued auto-start not sent", "error", err)
				}
			}
		}

	case protocol.TypeStatus:
		data, err := msg.GetStatusData()
		if err != nil {
			w.logger.Warn("bad status", "error", err)
			return
		}
		w.mu.Lock()
		w.streaming = data.Streaming
		if data.Streaming {
			w.autoStartFailed = false
			w.lastFrameAt = time.Now()
		}
		w.mu.Unlock()
		w.logger.Info("tracker status", "streaming", data.Streaming, "reason", data.Reason)
		w.notify()

	case protocol.TypeFrame:
		data, err := msg.GetFrameData()
		if err != nil {
			w.logger.Warn("bad frame", "error", err)
			return
		}
		w.mu.Lock()
		w.seq++
		w.frame = data.Frame
		w.ts = data.Timestamp
		w.lastFrameAt = time.Now()
		w.streaming = true
		w.autoStartFailed = false
		seq := w.seq
		w.mu.Unlock()
		debug.FrameLog("frame received", "seq", seq, "wire_seq", data.Seq, "ts", float64(data.Timestamp))
		w.notify()

	case protocol.TypeAutoStartResult:
		data, err := msg.GetAutoStartResultData()
		if err != nil {
			w.logger.Warn("bad auto-start result", "error", err)
			return
		}
		if data.Started {
			w.logger.Info("auto-start accepted")
			return
		}
		w.mu.Lock()
		w.autoStartFailed = true
		w.mu.Unlock()
		w.logger.Warn("auto-start failed", "reason", data.Reason)
		w.notify()

	case protocol.TypeError:
		if data, err := msg.GetErrorData(); err == nil {
			w.logger.Warn("tracker rejected request", "request", string(data.Request), "message", data.Message)
		}

	case protocol.TypePing:
		data, err := msg.GetPingData()
		if err != nil {
			return
		}
		if pong, err := protocol.NewPongMessage(data.ID, data.Timestamp, time.Now().UnixMilli()); err == nil {
			w.send(pong)
		}

	case protocol.TypePong:
		if data, err := msg.GetPongData(); err == nil {
			debug.Log("tracker pong", "latency_ms", time.Now().UnixMilli()-data.PingTS)
		}

	default:
		w.logger.Debug("ignoring tracker message", "type", string(msg.Type))
	}
}

func (w *WebSocket) setDisconnected() {
	w.mu.Lock()
	changed := w.connected || w.streaming
	w.connected = false
	w.streaming = false
	w.mu.Unlock()
	if changed {
		w.logger.Info("tracker session down")
		w.notify()
	}
}

// keepAlive sends periodic pings on one session.
func (w *WebSocket) keepAlive(ctx context.Context, conn *websocket.Conn) {
	defer w.wg.Done()
	if w.cfg.PingInterval <= 0 {
		return
	}
	ticker := time.NewTicker(w.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ping, err := protocol.NewPingMessage(uuid.NewString())
			if err != nil {
				continue
			}
			if err := w.send(ping); err != nil {
				if !errors.Is(err, ErrNotConnected) {
					w.logger.Debug("ping failed", "error", err)
				}
				return
			}
		}
	}
}

// watchdog drops the streaming flag when frames stop arriving.
func (w *WebSocket) watchdog() {
	defer w.wg.Done()
	ticker := time.NewTicker(max(w.cfg.StaleAfter/4, time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.mu.Lock()
			stale := w.streaming && time.Since(w.lastFrameAt) > w.cfg.StaleAfter
			if stale {
				w.streaming = false
			}
			w.mu.Unlock()
			if stale {
				w.logger.Warn("no frames from tracker", "stale_after", w.cfg.StaleAfter)
				w.notify()
			}
		}
	}
}
