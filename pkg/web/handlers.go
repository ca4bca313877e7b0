package web

import (
	"fmt"
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-gaze/pkg/camera"
	"github.com/teslashibe/go-gaze/pkg/recorder"
	"github.com/teslashibe/go-gaze/pkg/tracking"
)

// handleStatus returns the client's reception state.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"friendly_name":    s.ctrl.FriendlyName(),
		"version":          s.ctrl.Version().String(),
		"reception_status": s.ctrl.ReceptionStatus(),
		"recenter_state":   s.ctrl.RecenterState().String(),
		"listeners":        s.ctrl.ListenerCount(),
		"viewport":         s.ctrl.ViewportGeometry(),
	})
}

// handleFrame returns the latest frame.
func (s *Server) handleFrame(c *fiber.Ctx) error {
	f, ts := s.ctrl.LatestFrameWithTimestamp()
	return c.JSON(fiber.Map{
		"timestamp": ts,
		"frame":     f,
	})
}

// handleCamera blends the latest camera state with the weights from the query
// string. Missing weights come from the configured sensitivities.
func (s *Server) handleCamera(c *fiber.Ctx) error {
	f, _ := s.ctrl.LatestFrameWithTimestamp()
	if !f.HasCamera() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "no camera data"})
	}

	cfg := s.ctrl.Camera().GetConfig()
	eye, err := weight(c.Query("eye"), cfg.EyeSensitivity)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid eye weight"})
	}
	head, err := weight(c.Query("head"), cfg.HeadSensitivity)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid head weight"})
	}

	return c.JSON(fiber.Map{
		"timestamp":   f.Camera.Timestamp,
		"eye_weight":  eye,
		"head_weight": head,
		"transform":   s.ctrl.ComputeCameraTransform(f.Camera, eye, head),
	})
}

func weight(q string, def float32) (float32, error) {
	if q == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(q, 32)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("weight %q is not finite", q)
	}
	return float32(v), nil
}

// handleGetCameraConfig returns the sensitivities plus the accepted ranges and presets.
func (s *Server) handleGetCameraConfig(c *fiber.Ctx) error {
	out := s.ctrl.Camera().GetConfigJSON()
	out["capabilities"] = camera.Capabilities()
	return c.JSON(out)
}

func (s *Server) handleUpdateCameraConfig(c *fiber.Ctx) error {
	var params map[string]interface{}
	if err := c.BodyParser(&params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := s.ctrl.Camera().UpdateConfig(params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(s.ctrl.Camera().GetConfigJSON())
}

func (s *Server) handleAutoStart(c *fiber.Ctx) error {
	ok := s.ctrl.AttemptAutoStart()
	return c.JSON(fiber.Map{
		"requested":        ok,
		"reception_status": s.ctrl.ReceptionStatus(),
	})
}

func (s *Server) handleRecenterStart(c *fiber.Ctx) error {
	if !s.ctrl.RecenterStart() {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "recenter not possible without tracking"})
	}
	return c.JSON(fiber.Map{"recenter_state": s.ctrl.RecenterState().String()})
}

func (s *Server) handleRecenterEnd(c *fiber.Ctx) error {
	s.ctrl.RecenterEnd()
	return c.JSON(fiber.Map{"recenter_state": s.ctrl.RecenterState().String()})
}

func (s *Server) handleGetViewport(c *fiber.Ctx) error {
	return c.JSON(s.ctrl.ViewportGeometry())
}

func (s *Server) handleUpdateViewport(c *fiber.Ctx) error {
	var g tracking.ViewportGeometry
	if err := c.BodyParser(&g); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	s.ctrl.UpdateViewportGeometry(g)
	return c.JSON(g)
}

// handleRecordings returns the newest recorded samples, ?limit= defaults to 100.
func (s *Server) handleRecordings(c *fiber.Ctx) error {
	if s.cfg.Recordings == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "recording disabled"})
	}
	limit := c.QueryInt("limit", 100)
	if limit <= 0 || limit > 10000 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "limit must be in 1..10000"})
	}

	samples, err := s.cfg.Recordings.Latest(limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	type sampleJSON struct {
		Timestamp tracking.Timestamp `json:"timestamp"`
		WallMS    int64              `json:"wall_ms"`
		Channels  map[string]float32 `json:"channels"`
	}
	out := make([]sampleJSON, 0, len(samples))
	for _, sm := range samples {
		ch := make(map[string]float32, len(sm.Channels))
		for i, v := range sm.Channels {
			ch[recorder.ChannelNames[i]] = v
		}
		out = append(out, sampleJSON{Timestamp: sm.Timestamp, WallMS: sm.WallClock.UnixMilli(), Channels: ch})
	}
	return c.JSON(fiber.Map{
		"samples": out,
		"stats":   s.cfg.Recordings.GetStats(),
	})
}
