package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-gaze/pkg/client"
	"github.com/teslashibe/go-gaze/pkg/metrics"
	"github.com/teslashibe/go-gaze/pkg/producer"
	"github.com/teslashibe/go-gaze/pkg/recorder"
	"github.com/teslashibe/go-gaze/pkg/tracking"
)

var testViewport = tracking.ViewportGeometry{Point11: tracking.Point{X: 1919, Y: 1079}}

type fixture struct {
	srv  *Server
	cl   *client.Client
	mock *producer.Mock
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	m := producer.NewMock()
	cl, err := client.New("Dashboard Test", testViewport, m)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { cl.Close() })

	srv, err := NewServer(cl, cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { srv.Shutdown() })
	if _, err := cl.RegisterListener(srv); err != nil {
		t.Fatal(err)
	}
	return &fixture{srv: srv, cl: cl, mock: m}
}

func (fx *fixture) emit(t *testing.T, ts tracking.Timestamp) {
	t.Helper()
	f := tracking.EmptyFrame()
	f.User.Timestamp = ts
	f.User.UnifiedScreenGaze.Confidence = tracking.High
	f.User.HeadPose.Confidence = tracking.High
	f.User.HeadPose.Rotation = tracking.Identity()
	f.Camera.Timestamp = ts
	f.Camera.EyeComponent = tracking.Transform3D{Yaw: 0.5}
	f.Camera.HeadComponent = tracking.Transform3D{Yaw: 0.25}
	fx.mock.Emit(f, ts)

	last := tracking.NullDataTimestamp
	if !fx.cl.WaitForUpdate(&last, time.Second) {
		t.Fatal("frame not published")
	}
}

func do(t *testing.T, fx *fixture, method, path, body string) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := fx.srv.App().Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	data, _ := io.ReadAll(resp.Body)
	out := map[string]any{}
	json.Unmarshal(data, &out)
	return resp.StatusCode, out
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	cfg.MaxFrameRate = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero frame rate accepted")
	}
	if _, err := NewServer(nil, DefaultConfig()); err == nil {
		t.Error("nil controller accepted")
	}
}

func TestStatusAndFrame(t *testing.T) {
	fx := newFixture(t, DefaultConfig())

	code, body := do(t, fx, "GET", "/api/status", "")
	if code != 200 || body["reception_status"] != "NOT_RECEIVING" || body["friendly_name"] != "Dashboard Test" {
		t.Errorf("GET /api/status = %d %v", code, body)
	}

	code, _ = do(t, fx, "GET", "/api/camera", "")
	if code != http.StatusServiceUnavailable {
		t.Errorf("GET /api/camera without data = %d", code)
	}

	fx.emit(t, 2)
	code, body = do(t, fx, "GET", "/api/frame", "")
	if code != 200 || body["timestamp"] != 2.0 {
		t.Errorf("GET /api/frame = %d %v", code, body)
	}
}

func TestCameraWeights(t *testing.T) {
	fx := newFixture(t, DefaultConfig())
	fx.emit(t, 1)

	tests := []struct {
		query   string
		wantYaw float64
	}{
		{"", 0.75},
		{"?eye=0&head=1", 0.25},
		{"?eye=1&head=0", 0.5},
		{"?eye=0&head=0", 0},
	}
	for _, tt := range tests {
		code, body := do(t, fx, "GET", "/api/camera"+tt.query, "")
		if code != 200 {
			t.Fatalf("GET /api/camera%s = %d", tt.query, code)
		}
		tr := body["transform"].(map[string]any)
		if got := tr["yaw_in_radians"].(float64); got != tt.wantYaw {
			t.Errorf("GET /api/camera%s yaw = %v, want %v", tt.query, got, tt.wantYaw)
		}
	}

	for _, q := range []string{"?eye=abc", "?eye=NaN", "?head=Inf", "?head=-inf", "?eye=1e39"} {
		if code, _ := do(t, fx, "GET", "/api/camera"+q, ""); code != 400 {
			t.Errorf("GET /api/camera%s status = %d, want 400", q, code)
		}
	}
}

func TestCameraConfig(t *testing.T) {
	fx := newFixture(t, DefaultConfig())

	code, body := do(t, fx, "PUT", "/api/camera/config", `{"preset":"eye_only"}`)
	if code != 200 || body["head_sensitivity"] != 0.0 {
		t.Errorf("PUT preset = %d %v", code, body)
	}
	code, _ = do(t, fx, "PUT", "/api/camera/config", `{"preset":"nope"}`)
	if code != 400 {
		t.Errorf("unknown preset status = %d", code)
	}
	code, body = do(t, fx, "GET", "/api/camera/config", "")
	if code != 200 || body["eye_sensitivity"] != 1.0 {
		t.Errorf("GET config = %d %v", code, body)
	}
	caps, ok := body["capabilities"].(map[string]any)
	if !ok || caps["max_sensitivity"] != 4.0 {
		t.Fatalf("capabilities = %v", body["capabilities"])
	}
	presets, _ := caps["presets"].([]any)
	found := false
	for _, p := range presets {
		found = found || p == "eye_only"
	}
	if !found {
		t.Errorf("presets = %v, want eye_only listed", presets)
	}
}

func TestControlRoutes(t *testing.T) {
	fx := newFixture(t, DefaultConfig())

	code, body := do(t, fx, "POST", "/api/autostart", "")
	if code != 200 || body["requested"] != true || body["reception_status"] != "ATTEMPTING_AUTO_START" {
		t.Errorf("POST /api/autostart = %d %v", code, body)
	}
	if fx.mock.CallCount("RequestAutoStart") != 1 {
		t.Error("auto-start not forwarded")
	}

	code, body = do(t, fx, "POST", "/api/recenter/start", "")
	if code != 200 || body["recenter_state"] != "recentering" {
		t.Errorf("POST /api/recenter/start = %d %v", code, body)
	}
	code, body = do(t, fx, "POST", "/api/recenter/end", "")
	if code != 200 || body["recenter_state"] != "idle" {
		t.Errorf("POST /api/recenter/end = %d %v", code, body)
	}

	fx.mock.RecenterStartFunc = func() error { return tracking.ErrProducerUnavailable }
	if code, _ := do(t, fx, "POST", "/api/recenter/start", ""); code != http.StatusConflict {
		t.Errorf("rejected recenter status = %d", code)
	}

	code, _ = do(t, fx, "PUT", "/api/viewport", `{"point_00":{"x":0,"y":0},"point_11":{"x":799,"y":599}}`)
	if code != 200 {
		t.Fatalf("PUT /api/viewport = %d", code)
	}
	if got := fx.cl.ViewportGeometry(); got.Point11 != (tracking.Point{X: 799, Y: 599}) {
		t.Errorf("viewport = %+v", got)
	}
	if last := fx.mock.LastCall(); last == nil || last.Method != "UpdateViewport" {
		t.Errorf("viewport not forwarded: %+v", last)
	}
}

func TestRecordingsAndMetrics(t *testing.T) {
	rec, err := recorder.Open(filepath.Join(t.TempDir(), "dash.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer rec.Close()
	m := metrics.New()

	cfg := DefaultConfig()
	cfg.Recordings = rec
	cfg.Metrics = m.Handler()
	fx := newFixture(t, cfg)
	fx.cl.RegisterListener(rec)

	fx.emit(t, 5)
	deadline := time.Now().Add(2 * time.Second)
	for {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		err := rec.Sync(ctx)
		cancel()
		if err != nil {
			t.Fatal(err)
		}
		if n, _ := rec.Count(); n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("sample not recorded")
		}
		time.Sleep(5 * time.Millisecond)
	}

	code, body := do(t, fx, "GET", "/api/recordings?limit=10", "")
	if code != 200 {
		t.Fatalf("GET /api/recordings = %d", code)
	}
	samples := body["samples"].([]any)
	if len(samples) != 1 {
		t.Fatalf("samples = %v", samples)
	}
	ch := samples[0].(map[string]any)["channels"].(map[string]any)
	if ch["gaze_conf_int"] != float64(tracking.High) || ch["rot_m11"] != 1.0 {
		t.Errorf("channels = %v", ch)
	}

	if code, _ := do(t, fx, "GET", "/api/recordings?limit=0", ""); code != 400 {
		t.Errorf("limit=0 status = %d", code)
	}

	resp, err := fx.srv.App().Test(httptest.NewRequest("GET", "/metrics", nil))
	if err != nil {
		t.Fatal(err)
	}
	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != 200 || !strings.Contains(string(data), "gaze_listeners") {
		t.Errorf("GET /metrics = %d", resp.StatusCode)
	}
}

func TestRecordingsDisabled(t *testing.T) {
	fx := newFixture(t, DefaultConfig())
	if code, _ := do(t, fx, "GET", "/api/recordings", ""); code != 404 {
		t.Errorf("status = %d, want 404", code)
	}
	if code, _ := do(t, fx, "GET", "/metrics", ""); code != 404 {
		t.Errorf("/metrics without handler = %d, want 404", code)
	}
}

func TestStatusWebSocket(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:18096"
	fx := newFixture(t, cfg)
	fx.srv.StartAsync()
	time.Sleep(100 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://127.0.0.1:18096/ws/status", nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	defer ws.Close()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))

	var ev StatusEvent
	if err := ws.ReadJSON(&ev); err != nil {
		t.Fatalf("read replayed status: %v", err)
	}
	if ev.Status != tracking.NotReceiving {
		t.Errorf("replayed status = %v", ev.Status)
	}

	fx.cl.AttemptAutoStart()
	if err := ws.ReadJSON(&ev); err != nil {
		t.Fatalf("read status: %v", err)
	}
	if ev.Status != tracking.AttemptingAutoStart {
		t.Errorf("status = %v, want ATTEMPTING_AUTO_START", ev.Status)
	}
}
