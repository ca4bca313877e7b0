// Package hud fades immersive HUD elements based on where the user is looking.
package hud

import (
	"sync"
	"time"

	"github.com/teslashibe/go-gaze/pkg/tracking"
)

// LookingAtThreshold is the likelihood above which the user counts as looking at a region.
const LookingAtThreshold = 0.5

// Opacity animation parameters.
const (
	RiseRate   = 10.0 // per second: fully visible within 0.1 s
	FallRate   = 1.0  // per second: fades out over 1 s
	MinOpacity = 0.2
	MaxOpacity = 1.0
)

// Corners are the HUD regions an Overlay animates.
var Corners = []tracking.HUDRegion{
	tracking.TopLeft,
	tracking.TopRight,
	tracking.BottomLeft,
	tracking.BottomRight,
}

// LookingAt reports whether likelihood v means the user is looking at the region.
func LookingAt(v float32) bool {
	return v > LookingAtThreshold
}

// UpdateOpacity advances prev by dt: up at RiseRate while looking, down at
// FallRate otherwise, clamped to [MinOpacity, MaxOpacity].
func UpdateOpacity(prev float32, looking bool, dt time.Duration) float32 {
	rate := float32(-FallRate)
	if looking {
		rate = RiseRate
	}
	next := prev + rate*float32(dt.Seconds())
	return min(max(next, MinOpacity), MaxOpacity)
}

// Overlay tracks the opacity of the four corner HUD elements.
//
// Register it as a listener to feed it frames, then call Update once per game
// frame. When tracking data stops the HUD snaps back to fully visible.
type Overlay struct {
	mu      sync.Mutex
	looking map[tracking.HUDRegion]bool
	opacity map[tracking.HUDRegion]float32
	lastTS  tracking.Timestamp
}

var _ tracking.Listener = (*Overlay)(nil)

// NewOverlay returns a fully visible overlay.
func NewOverlay() *Overlay {
	o := &Overlay{
		looking: make(map[tracking.HUDRegion]bool, len(Corners)),
		opacity: make(map[tracking.HUDRegion]float32, len(Corners)),
	}
	o.resetLocked()
	return o
}

func (o *Overlay) resetLocked() {
	for _, r := range Corners {
		o.looking[r] = true
		o.opacity[r] = MaxOpacity
	}
	o.lastTS = tracking.NullDataTimestamp
}

// Reset makes every corner fully visible.
func (o *Overlay) Reset() {
	o.mu.Lock()
	o.resetLocked()
	o.mu.Unlock()
}

// OnReceptionStatusChanged resets the overlay when data stops flowing.
func (o *Overlay) OnReceptionStatusChanged(status tracking.ReceptionStatus) {
	if status == tracking.NotReceiving {
		o.Reset()
	}
}

// OnTrackingFrame latches the looking-at flags from the frame's HUD state.
// Frames without HUD data or with a stale HUD timestamp leave the flags as they are.
func (o *Overlay) OnTrackingFrame(f *tracking.Frame, _ tracking.Timestamp) {
	if !f.HasHUD() {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if f.HUD.Timestamp == o.lastTS {
		return
	}
	o.lastTS = f.HUD.Timestamp
	for _, r := range Corners {
		o.looking[r] = LookingAt(f.HUD.Likelihood(r))
	}
}

// Update advances every corner's opacity by dt.
func (o *Overlay) Update(dt time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, r := range Corners {
		o.opacity[r] = UpdateOpacity(o.opacity[r], o.looking[r], dt)
	}
}

// Opacity returns the current opacity of r, or MaxOpacity for a region the
// overlay does not animate.
func (o *Overlay) Opacity(r tracking.HUDRegion) float32 {
	o.mu.Lock()
	defer o.mu.Unlock()
	if v, ok := o.opacity[r]; ok {
		return v
	}
	return MaxOpacity
}

// Opacities returns a copy of all corner opacities keyed by region name.
func (o *Overlay) Opacities() map[string]float32 {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[string]float32, len(o.opacity))
	for r, v := range o.opacity {
		out[r.String()] = v
	}
	return out
}
