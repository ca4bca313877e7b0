package simulator

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-gaze/pkg/protocol"
	"github.com/teslashibe/go-gaze/pkg/tracking"
)

var testViewport = tracking.ViewportGeometry{
	Point00: tracking.Point{X: 0, Y: 0},
	Point11: tracking.Point{X: 959, Y: 539},
}

func startServer(t *testing.T, port int, cfg Config) *Server {
	t.Helper()
	s, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	go s.Start(fmt.Sprintf("127.0.0.1:%d", port))
	t.Cleanup(func() { s.Shutdown() })
	time.Sleep(100 * time.Millisecond)
	return s
}

func dial(t *testing.T, port int) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://127.0.0.1:%d/ws/tracker", port), nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func send(t *testing.T, ws *websocket.Conn, msg *protocol.Message, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
	data, _ := msg.Bytes()
	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// readUntil skips messages until one of type typ arrives.
func readUntil(t *testing.T, ws *websocket.Conn, typ protocol.MessageType) *protocol.Message {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(3 * time.Second))
	defer ws.SetReadDeadline(time.Time{})
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s: %v", typ, err)
		}
		msg, err := protocol.ParseMessage(data)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if msg.Type == typ {
			return msg
		}
	}
}

func hello(t *testing.T, ws *websocket.Conn) *protocol.WelcomeData {
	t.Helper()
	msg, err := protocol.NewHelloMessage("Sim Test", "client-1", testViewport)
	send(t, ws, msg, err)
	welcome, err := readUntil(t, ws, protocol.TypeWelcome).GetWelcomeData()
	if err != nil {
		t.Fatal(err)
	}
	return welcome
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"zero rate", func(c *Config) { c.FrameRate = 0 }, true},
		{"huge rate", func(c *Config) { c.FrameRate = 5000 }, true},
		{"tiny screen", func(c *Config) { c.Screen = tracking.ViewportGeometry{} }, true},
		{"negative delay", func(c *Config) { c.AutoStartDelay = -time.Second }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBuildFrame(t *testing.T) {
	screen := DefaultConfig().Screen
	p := pose{gx: 0.1, gy: 0.1, head: tracking.Transform3D{Yaw: 0.3, Z: 0.02}}
	neutral := tracking.Transform3D{Yaw: 0.1}

	f := buildFrame(2.5, p, screen, testViewport, neutral, 7)

	if f.User.Timestamp != 2.5 || f.Camera.Timestamp != 2.5 || f.HUD.Timestamp != 2.5 || f.Foveation.Timestamp != 2.5 {
		t.Error("all sub-states should carry the frame timestamp")
	}
	if f.User.HeadPose.TrackSessionUID != 7 {
		t.Errorf("TrackSessionUID = %d", f.User.HeadPose.TrackSessionUID)
	}
	por := f.User.UnifiedScreenGaze.PointOfRegard
	if por.X != 192 || por.Y != 108 {
		t.Errorf("PointOfRegard = %+v, want {192 108}", por)
	}
	vp := f.User.ViewportGaze.NormalizedPointOfRegard
	if math.Abs(float64(vp.X)-192.0/959) > 1e-6 {
		t.Errorf("viewport gaze x = %v", vp.X)
	}
	if f.Foveation.NormalizedCenter != vp {
		t.Error("foveation should be centered on the viewport gaze")
	}
	if got := f.Camera.HeadComponent.Yaw; math.Abs(float64(got)-0.2) > 1e-6 {
		t.Errorf("head yaw relative to neutral = %v, want 0.2", got)
	}
	if f.HUD.Likelihood(tracking.TopLeft) != 1 {
		t.Errorf("top-left likelihood = %v, want 1", f.HUD.Likelihood(tracking.TopLeft))
	}
	if f.HUD.Likelihood(tracking.BottomRight) != 0 {
		t.Errorf("bottom-right likelihood = %v, want 0", f.HUD.Likelihood(tracking.BottomRight))
	}
}

func TestUnboundedGaze(t *testing.T) {
	screen := DefaultConfig().Screen
	f := buildFrame(1, pose{gx: 1.05, gy: -0.05}, screen, testViewport, tracking.Transform3D{}, 1)

	g := f.User.UnifiedScreenGaze
	if g.PointOfRegard.X != 1919 || g.PointOfRegard.Y != 0 {
		t.Errorf("bounded gaze = %+v", g.PointOfRegard)
	}
	if g.UnboundedPointOfRegard.X <= 1919 || g.UnboundedPointOfRegard.Y >= 0 {
		t.Errorf("unbounded gaze = %+v", g.UnboundedPointOfRegard)
	}
}

func TestPoseIsSmooth(t *testing.T) {
	a := poseAt(10)
	b := poseAt(10 + 1.0/60)
	if math.Abs(a.gx-b.gx) > 0.02 || math.Abs(float64(a.head.Yaw-b.head.Yaw)) > 0.01 {
		t.Error("consecutive poses should be close")
	}
}

func TestHelloAndFrames(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StartStreaming = true
	cfg.FrameRate = 100
	s := startServer(t, 18090, cfg)
	ws := dial(t, 18090)

	welcome := hello(t, ws)
	if !welcome.Streaming || welcome.SessionID != "client-1" {
		t.Errorf("welcome = %+v", welcome)
	}
	if s.SessionCount() != 1 {
		t.Errorf("SessionCount = %d, want 1", s.SessionCount())
	}

	first, err := readUntil(t, ws, protocol.TypeFrame).GetFrameData()
	if err != nil {
		t.Fatal(err)
	}
	second, err := readUntil(t, ws, protocol.TypeFrame).GetFrameData()
	if err != nil {
		t.Fatal(err)
	}
	if second.Seq <= first.Seq || second.Timestamp <= first.Timestamp {
		t.Errorf("frames out of order: %d@%v then %d@%v", first.Seq, first.Timestamp, second.Seq, second.Timestamp)
	}
	if !second.Frame.HasUser() || !second.Frame.HasCamera() {
		t.Error("frame should carry user and camera state")
	}

	ws.Close()
	time.Sleep(100 * time.Millisecond)
	if s.SessionCount() != 0 {
		t.Errorf("SessionCount = %d, want 0 after disconnect", s.SessionCount())
	}
}

func TestAutoStart(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AutoStartDelay = 20 * time.Millisecond
	s := startServer(t, 18091, cfg)
	ws := dial(t, 18091)

	if welcome := hello(t, ws); welcome.Streaming {
		t.Fatal("simulator should start idle")
	}

	msg, err := protocol.NewAutoStartMessage()
	send(t, ws, msg, err)

	status, err := readUntil(t, ws, protocol.TypeStatus).GetStatusData()
	if err != nil || !status.Streaming {
		t.Fatalf("status = %+v, %v", status, err)
	}
	result, err := readUntil(t, ws, protocol.TypeAutoStartResult).GetAutoStartResultData()
	if err != nil || !result.Started {
		t.Fatalf("auto-start result = %+v, %v", result, err)
	}
	readUntil(t, ws, protocol.TypeFrame)

	if st := s.GetStats(); st.AutoStarts != 1 || !st.Streaming {
		t.Errorf("stats = %+v", st)
	}
}

func TestAutoStartFails(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AutoStartDelay = 10 * time.Millisecond
	cfg.AutoStartSucceeds = false
	s := startServer(t, 18092, cfg)
	ws := dial(t, 18092)
	hello(t, ws)

	msg, err := protocol.NewAutoStartMessage()
	send(t, ws, msg, err)

	result, err := readUntil(t, ws, protocol.TypeAutoStartResult).GetAutoStartResultData()
	if err != nil || result.Started {
		t.Fatalf("auto-start result = %+v, %v", result, err)
	}
	if s.Streaming() {
		t.Error("failed auto-start left the simulator streaming")
	}
}

func TestRecenter(t *testing.T) {
	cfg := DefaultConfig()
	s := startServer(t, 18093, cfg)
	ws := dial(t, 18093)
	hello(t, ws)

	msg, err := protocol.NewRecenterStartMessage()
	send(t, ws, msg, err)
	rejected, err := readUntil(t, ws, protocol.TypeError).GetErrorData()
	if err != nil || rejected.Request != protocol.TypeRecenterStart {
		t.Fatalf("error = %+v, %v", rejected, err)
	}

	s.SetStreaming(true, "test")
	readUntil(t, ws, protocol.TypeStatus)

	msg, err = protocol.NewRecenterStartMessage()
	send(t, ws, msg, err)
	readUntil(t, ws, protocol.TypeFrame)
	time.Sleep(50 * time.Millisecond)
	if !s.GetStats().Recentering {
		t.Fatal("recenter not started")
	}

	// While recentering the neutral pose follows the head, so the head
	// component of frames generated from now on is zero. Frames already
	// queued before the request may still carry the old offset.
	centered := false
	for i := 0; i < 60 && !centered; i++ {
		f, err := readUntil(t, ws, protocol.TypeFrame).GetFrameData()
		if err != nil {
			t.Fatal(err)
		}
		centered = f.Frame.Camera.HeadComponent == tracking.Transform3D{}
	}
	if !centered {
		t.Error("head component never reached zero during recenter")
	}

	msg, err = protocol.NewRecenterEndMessage()
	send(t, ws, msg, err)
	time.Sleep(50 * time.Millisecond)
	if s.GetStats().Recentering {
		t.Error("recenter not ended")
	}
}

func TestPingPong(t *testing.T) {
	startServer(t, 18094, DefaultConfig())
	ws := dial(t, 18094)

	msg, err := protocol.NewPingMessage("p1")
	send(t, ws, msg, err)

	pong, err := readUntil(t, ws, protocol.TypePong).GetPongData()
	if err != nil || pong.ID != "p1" {
		t.Errorf("pong = %+v, %v", pong, err)
	}
}

func TestAPIRoutes(t *testing.T) {
	s, err := NewServer(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	app := s.App()

	for _, path := range []string{"/api/health", "/api/sessions", "/api/stats"} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil))
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		if resp.StatusCode != 200 {
			t.Errorf("%s status = %d, want 200", path, resp.StatusCode)
		}
	}

	req := httptest.NewRequest("POST", "/api/streaming", strings.NewReader(`{"streaming":true}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	var got struct {
		Streaming bool `json:"streaming"`
	}
	if err := json.Unmarshal(body, &got); err != nil || !got.Streaming {
		t.Errorf("POST /api/streaming = %s", body)
	}
	if !s.Streaming() {
		t.Error("simulator not streaming after POST")
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/ws/tracker", nil))
	if resp.StatusCode != 426 {
		t.Errorf("plain GET /ws/tracker status = %d, want 426", resp.StatusCode)
	}
}
