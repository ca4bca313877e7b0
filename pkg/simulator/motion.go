package simulator

import (
	"math"

	"github.com/teslashibe/go-gaze/pkg/tracking"
)

// nominalHeadDistance is the resting head distance from the screen in meters.
const nominalHeadDistance = 0.6

// hudRange is the normalized distance from a region's anchor at which the
// looking-at likelihood reaches zero.
const hudRange = 0.3

var hudAnchors = map[tracking.HUDRegion][2]float64{
	tracking.TopLeft:      {0.1, 0.1},
	tracking.TopMiddle:    {0.5, 0.1},
	tracking.TopRight:     {0.9, 0.1},
	tracking.CenterLeft:   {0.1, 0.5},
	tracking.CenterRight:  {0.9, 0.5},
	tracking.BottomLeft:   {0.1, 0.9},
	tracking.BottomMiddle: {0.5, 0.9},
	tracking.BottomRight:  {0.9, 0.9},
}

var foveationRadii = tracking.FoveationRadii{Level1: 0.1, Level2: 0.2, Level3: 0.3, Level4: 0.45}

// pose is the simulated user at one instant.
type pose struct {
	// gaze in normalized screen coordinates, possibly outside [0, 1]
	gx, gy float64
	head   tracking.Transform3D
}

func wave(t, freq, phase float64) float64 {
	return math.Sin(2*math.Pi*freq*t + phase)
}

// poseAt returns a smooth Lissajous-style gaze path and a slow head sway.
func poseAt(t float64) pose {
	return pose{
		gx: 0.5 + 0.55*wave(t, 0.11, 0),
		gy: 0.5 + 0.55*wave(t, 0.07, 0.5),
		head: tracking.Transform3D{
			Roll:  float32(0.05 * wave(t, 0.13, 1)),
			Pitch: float32(0.2 * wave(t, 0.08, 0.3)),
			Yaw:   float32(0.35 * wave(t, 0.05, 0)),
			X:     float32(0.03 * wave(t, 0.05, 0)),
			Y:     float32(0.02 * wave(t, 0.08, 0.3)),
			Z:     float32(0.05 * wave(t, 0.03, 2)),
		},
	}
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}

// screenPoint maps normalized coordinates onto the screen rectangle.
func screenPoint(screen tracking.ViewportGeometry, nx, ny float64) tracking.Point {
	x0, y0 := min(screen.Point00.X, screen.Point11.X), min(screen.Point00.Y, screen.Point11.Y)
	return tracking.Point{
		X: x0 + int32(math.Round(nx*float64(screen.Width()-1))),
		Y: y0 + int32(math.Round(ny*float64(screen.Height()-1))),
	}
}

// hudState derives looking-at likelihoods from the bounded gaze.
func hudState(ts tracking.Timestamp, nx, ny float64) tracking.GameImmersiveHUDState {
	s := tracking.GameImmersiveHUDState{Timestamp: ts}
	for r, a := range hudAnchors {
		d := math.Hypot(nx-a[0], ny-a[1])
		s.LookingAt[r] = float32(clamp01(1 - d/hudRange))
	}
	return s
}

// buildFrame renders p into a full frame for one client viewport. The camera's
// head component is relative to neutral.
func buildFrame(ts tracking.Timestamp, p pose, screen, viewport tracking.ViewportGeometry, neutral tracking.Transform3D, trackUID uint64) tracking.Frame {
	bx, by := clamp01(p.gx), clamp01(p.gy)
	por := screenPoint(screen, bx, by)
	unbounded := screenPoint(screen, p.gx, p.gy)

	vpGaze := tracking.PointF{}
	if !viewport.IsZero() {
		vpGaze = viewport.Normalize(por)
	}

	f := tracking.Frame{}
	f.User = tracking.UserState{
		Timestamp: ts,
		HeadPose: tracking.HeadPose{
			Confidence: tracking.High,
			Rotation:   tracking.RotationFromEuler(float64(p.head.Roll), float64(p.head.Pitch), float64(p.head.Yaw)),
			Translation: tracking.Vector3D{
				X: p.head.X,
				Y: p.head.Y,
				Z: p.head.Z + nominalHeadDistance,
			},
			TrackSessionUID: trackUID,
		},
		UnifiedScreenGaze: tracking.UnifiedScreenGaze{
			Confidence:             tracking.High,
			PointOfRegard:          por,
			UnboundedPointOfRegard: unbounded,
		},
		ViewportGaze: tracking.ViewportGaze{
			Confidence:              tracking.High,
			NormalizedPointOfRegard: vpGaze,
		},
	}
	f.Camera = tracking.SimGameCameraState{
		Timestamp: ts,
		EyeComponent: tracking.Transform3D{
			Yaw:   float32((bx - 0.5) * 0.6),
			Pitch: float32((0.5 - by) * 0.4),
		},
		HeadComponent: p.head.Sub(neutral),
	}
	f.HUD = hudState(ts, bx, by)
	f.Foveation = tracking.FoveatedRenderingState{
		Timestamp:        ts,
		NormalizedCenter: vpGaze,
		NormalizedRadii:  foveationRadii,
	}
	return f
}
