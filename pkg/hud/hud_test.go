package hud

import (
	"math"
	"testing"
	"time"

	"github.com/teslashibe/go-gaze/pkg/tracking"
)

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-5
}

func TestLookingAt(t *testing.T) {
	tests := []struct {
		v    float32
		want bool
	}{
		{0, false},
		{0.5, false},
		{0.51, true},
		{1, true},
	}
	for _, tt := range tests {
		if got := LookingAt(tt.v); got != tt.want {
			t.Errorf("LookingAt(%v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestUpdateOpacity(t *testing.T) {
	tests := []struct {
		name    string
		prev    float32
		looking bool
		dt      time.Duration
		want    float32
	}{
		{"rise", 0.2, true, 50 * time.Millisecond, 0.7},
		{"rise capped", 0.95, true, 100 * time.Millisecond, 1},
		{"fall", 1, false, 500 * time.Millisecond, 0.5},
		{"fall floored", 0.3, false, time.Second, MinOpacity},
		{"no time", 0.6, false, 0, 0.6},
		{"below floor is lifted", 0, false, 0, MinOpacity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UpdateOpacity(tt.prev, tt.looking, tt.dt); !near(got, tt.want) {
				t.Errorf("UpdateOpacity(%v, %v, %v) = %v, want %v", tt.prev, tt.looking, tt.dt, got, tt.want)
			}
		})
	}
}

func hudFrame(ts tracking.Timestamp, lookingAt tracking.HUDRegion) *tracking.Frame {
	f := tracking.EmptyFrame()
	f.HUD.Timestamp = ts
	f.HUD.LookingAt[lookingAt] = 0.9
	return &f
}

func TestOverlayFadesUnwatchedCorners(t *testing.T) {
	o := NewOverlay()
	for _, r := range Corners {
		if o.Opacity(r) != MaxOpacity {
			t.Fatalf("initial opacity of %s = %v", r, o.Opacity(r))
		}
	}

	o.OnTrackingFrame(hudFrame(1, tracking.TopLeft), 1)
	o.Update(500 * time.Millisecond)

	if !near(o.Opacity(tracking.TopLeft), 1) {
		t.Errorf("watched corner opacity = %v, want 1", o.Opacity(tracking.TopLeft))
	}
	if !near(o.Opacity(tracking.BottomRight), 0.5) {
		t.Errorf("unwatched corner opacity = %v, want 0.5", o.Opacity(tracking.BottomRight))
	}

	o.Update(2 * time.Second)
	if !near(o.Opacity(tracking.BottomRight), MinOpacity) {
		t.Errorf("opacity after long fade = %v, want %v", o.Opacity(tracking.BottomRight), MinOpacity)
	}

	// Looking back brings it up quickly.
	o.OnTrackingFrame(hudFrame(2, tracking.BottomRight), 2)
	o.Update(100 * time.Millisecond)
	if !near(o.Opacity(tracking.BottomRight), 1) {
		t.Errorf("opacity after looking back = %v, want 1", o.Opacity(tracking.BottomRight))
	}
}

func TestOverlayIgnoresFramesWithoutHUD(t *testing.T) {
	o := NewOverlay()
	o.OnTrackingFrame(hudFrame(1, tracking.TopLeft), 1)

	empty := tracking.EmptyFrame()
	o.OnTrackingFrame(&empty, 2)
	o.Update(time.Second)

	if !near(o.Opacity(tracking.TopLeft), 1) {
		t.Error("frame without HUD data should keep the previous flags")
	}
}

func TestOverlayResetsOnNotReceiving(t *testing.T) {
	o := NewOverlay()
	o.OnTrackingFrame(hudFrame(1, tracking.TopLeft), 1)
	o.Update(time.Second)

	o.OnReceptionStatusChanged(tracking.Receiving)
	if near(o.Opacity(tracking.TopRight), 1) {
		t.Fatal("RECEIVING should not reset the overlay")
	}

	o.OnReceptionStatusChanged(tracking.NotReceiving)
	for name, v := range o.Opacities() {
		if v != MaxOpacity {
			t.Errorf("%s opacity = %v after reset", name, v)
		}
	}
	if len(o.Opacities()) != len(Corners) {
		t.Errorf("Opacities() has %d entries", len(o.Opacities()))
	}
	if o.Opacity(tracking.TopMiddle) != MaxOpacity {
		t.Error("non-animated region should report full opacity")
	}
}
