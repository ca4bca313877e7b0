package tracking

import (
	"fmt"
	"math"
	"time"
)

// Timestamp is a tracking time in seconds since tracking started.
//
// It is only meaningful while tracking runs continuously; the counter may reset
// when the user stops and restarts tracking, so it is not strictly monotonic.
type Timestamp float64

// NullDataTimestamp marks absent data: when a sub-state carries it, the other
// fields of that sub-state are undefined and must not be read.
const NullDataTimestamp Timestamp = -1.0

// DefaultWaitTimeout is the default bound for Waiter.WaitForUpdate.
const DefaultWaitTimeout = 1000 * time.Millisecond

// Valid reports whether t is not the null sentinel.
func (t Timestamp) Valid() bool {
	return t != NullDataTimestamp
}

// String formats the timestamp in seconds, or "null".
func (t Timestamp) String() string {
	if !t.Valid() {
		return "null"
	}
	return fmt.Sprintf("%.3fs", float64(t))
}

// Confidence is the reliability of a tracking result.
type Confidence int32

const (
	// LostTracking means the signal is unavailable; positional and angular
	// fields next to it must not be interpreted.
	LostTracking Confidence = iota
	// Low means tracking is present but highly uncertain.
	Low
	// Medium means tracking reliability is fair.
	Medium
	// High means tracking is as reliable as it gets.
	High
)

// String returns the confidence name.
func (c Confidence) String() string {
	switch c {
	case LostTracking:
		return "LOST_TRACKING"
	case Low:
		return "LOW"
	case Medium:
		return "MEDIUM"
	case High:
		return "HIGH"
	default:
		return fmt.Sprintf("Confidence(%d)", int32(c))
	}
}

// Tracked reports whether the confidence allows reading the data it qualifies.
func (c Confidence) Tracked() bool {
	return c > LostTracking
}

// ReceptionStatus says whether this client is receiving frames from the tracker,
// regardless of whether the user is actually being tracked.
type ReceptionStatus int32

const (
	// NotReceiving means no data is flowing; usually manual user action is needed.
	NotReceiving ReceptionStatus = iota
	// Receiving means the tracker is connected and sending regular updates.
	Receiving
	// AttemptingAutoStart means an explicit auto-start request is in progress.
	AttemptingAutoStart
)

// String returns the status name.
func (s ReceptionStatus) String() string {
	switch s {
	case NotReceiving:
		return "NOT_RECEIVING"
	case Receiving:
		return "RECEIVING"
	case AttemptingAutoStart:
		return "ATTEMPTING_AUTO_START"
	default:
		return fmt.Sprintf("ReceptionStatus(%d)", int32(s))
	}
}

// MarshalText encodes the status as its name.
func (s ReceptionStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name.
func (s *ReceptionStatus) UnmarshalText(b []byte) error {
	switch string(b) {
	case "NOT_RECEIVING":
		*s = NotReceiving
	case "RECEIVING":
		*s = Receiving
	case "ATTEMPTING_AUTO_START":
		*s = AttemptingAutoStart
	default:
		return fmt.Errorf("%w: unknown reception status %q", ErrInvalidArgument, b)
	}
	return nil
}

// Version identifies a library or tracker build.
type Version struct {
	Major uint32 `json:"major"`
	Minor uint32 `json:"minor"`
	Patch uint32 `json:"patch"`
	Build uint32 `json:"build"`
}

// String formats the version as major.minor.patch.build.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Patch, v.Build)
}

// LibraryVersion is the version of this client library.
var LibraryVersion = Version{Major: 2, Minor: 1, Patch: 0, Build: 0}

// Point is an integer point in the unified screen coordinate system.
type Point struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
}

// PointF is a floating point, typically viewport-normalized.
type PointF struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// ViewportGeometry maps unified screen coordinates onto the viewport.
//
// Point00 is where the viewport's (0, 0) lies and Point11 where its (1, 1) lies.
// Both corners are inclusive, so width = Point11.X + 1 - Point00.X.
// Point00 may sit below Point11 (bottom-left origin engines); the spans are then
// measured in absolute value and normalization follows the corner orientation.
type ViewportGeometry struct {
	Point00 Point `json:"point_00"`
	Point11 Point `json:"point_11"`
}

// Width returns the inclusive horizontal span in pixels.
func (g ViewportGeometry) Width() int32 {
	return span(g.Point00.X, g.Point11.X)
}

// Height returns the inclusive vertical span in pixels.
func (g ViewportGeometry) Height() int32 {
	return span(g.Point00.Y, g.Point11.Y)
}

func span(a, b int32) int32 {
	if b >= a {
		return b + 1 - a
	}
	return a + 1 - b
}

// IsZero reports whether both corners are at the origin.
func (g ViewportGeometry) IsZero() bool {
	return g == ViewportGeometry{}
}

// Normalize maps p to viewport-normalized coordinates. Points inside the viewport
// land in [0, 1]; points outside may be negative or exceed 1.
func (g ViewportGeometry) Normalize(p Point) PointF {
	return PointF{
		X: normalizeAxis(p.X, g.Point00.X, g.Point11.X),
		Y: normalizeAxis(p.Y, g.Point00.Y, g.Point11.Y),
	}
}

func normalizeAxis(v, p0, p1 int32) float32 {
	if p0 == p1 {
		return 0
	}
	return float32(v-p0) / float32(p1-p0)
}

// Vector3D is a 3D vector or point.
type Vector3D struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// Matrix3x3 is a row-major 3x3 matrix; m[row][col].
type Matrix3x3 [3][3]float32

// Identity returns the 3x3 identity matrix.
func Identity() Matrix3x3 {
	return Matrix3x3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// Flatten returns the nine coefficients in row-major order.
func (m Matrix3x3) Flatten() [9]float32 {
	return [9]float32{
		m[0][0], m[0][1], m[0][2],
		m[1][0], m[1][1], m[1][2],
		m[2][0], m[2][1], m[2][2],
	}
}

// RotationFromEuler builds a rotation matrix R = Rz(yaw) * Ry(pitch) * Rx(roll).
func RotationFromEuler(roll, pitch, yaw float64) Matrix3x3 {
	sr, cr := math.Sincos(roll)
	sp, cp := math.Sincos(pitch)
	sy, cy := math.Sincos(yaw)
	return Matrix3x3{
		{float32(cy * cp), float32(cy*sp*sr - sy*cr), float32(cy*sp*cr + sy*sr)},
		{float32(sy * cp), float32(sy*sp*sr + cy*cr), float32(sy*sp*cr - cy*sr)},
		{float32(-sp), float32(cp * sr), float32(cp * cr)},
	}
}

// HeadPose is the head pose for one time instant.
type HeadPose struct {
	Confidence Confidence `json:"confidence"`
	// Rotation from the head coordinate system to the world coordinate system.
	Rotation Matrix3x3 `json:"rotation_from_hcs_to_wcs"`
	// Translation from the head coordinate system to the world coordinate system, meters.
	Translation Vector3D `json:"translation_from_hcs_to_wcs"`
	// TrackSessionUID stays constant while the user is tracked over consecutive
	// frames and increments once they are re-acquired after being lost.
	TrackSessionUID uint64 `json:"track_session_uid"`
}

// UnifiedScreenGaze relates the user's attention to the plugged-in displays.
type UnifiedScreenGaze struct {
	Confidence Confidence `json:"confidence"`
	// PointOfRegard is kept within the screen bounds.
	PointOfRegard Point `json:"point_of_regard"`
	// UnboundedPointOfRegard may leave the physical screen space.
	UnboundedPointOfRegard Point `json:"unbounded_point_of_regard"`
}

// ViewportGaze is the gaze relative to the configured viewport.
type ViewportGaze struct {
	Confidence              Confidence `json:"confidence"`
	NormalizedPointOfRegard PointF     `json:"normalized_point_of_regard"`
}

// UserState holds head pose and both gaze representations.
type UserState struct {
	Timestamp         Timestamp         `json:"timestamp_in_seconds"`
	HeadPose          HeadPose          `json:"head_pose"`
	UnifiedScreenGaze UnifiedScreenGaze `json:"unified_screen_gaze"`
	ViewportGaze      ViewportGaze      `json:"viewport_gaze"`
}

// Transform3D is the transform to apply to an in-game camera.
// Angles are radians, translations meters.
type Transform3D struct {
	Roll  float32 `json:"roll_in_radians"`
	Pitch float32 `json:"pitch_in_radians"`
	Yaw   float32 `json:"yaw_in_radians"`
	X     float32 `json:"x_in_meters"`
	Y     float32 `json:"y_in_meters"`
	Z     float32 `json:"z_in_meters"`
}

// Add returns the channel-wise sum of t and other.
func (t Transform3D) Add(other Transform3D) Transform3D {
	return Transform3D{
		Roll:  t.Roll + other.Roll,
		Pitch: t.Pitch + other.Pitch,
		Yaw:   t.Yaw + other.Yaw,
		X:     t.X + other.X,
		Y:     t.Y + other.Y,
		Z:     t.Z + other.Z,
	}
}

// Sub returns the channel-wise difference t - other.
func (t Transform3D) Sub(other Transform3D) Transform3D {
	return t.Add(other.Scale(-1))
}

// Scale multiplies every channel by k.
func (t Transform3D) Scale(k float32) Transform3D {
	return Transform3D{
		Roll:  t.Roll * k,
		Pitch: t.Pitch * k,
		Yaw:   t.Yaw * k,
		X:     t.X * k,
		Y:     t.Y * k,
		Z:     t.Z * k,
	}
}

// SimGameCameraState holds the two pose components driving immersive camera controls.
type SimGameCameraState struct {
	Timestamp Timestamp `json:"timestamp_in_seconds"`
	// EyeComponent is the camera transform derived from eye tracking only.
	EyeComponent Transform3D `json:"eye_tracking_pose_component"`
	// HeadComponent is the camera transform derived from head tracking only.
	HeadComponent Transform3D `json:"head_tracking_pose_component"`
}

// HUDRegion names one of the eight non-center screen regions.
type HUDRegion int

const (
	TopLeft HUDRegion = iota
	TopMiddle
	TopRight
	CenterLeft
	CenterRight
	BottomLeft
	BottomMiddle
	BottomRight

	hudRegionCount
)

var hudRegionNames = [hudRegionCount]string{
	"top_left", "top_middle", "top_right",
	"center_left", "center_right",
	"bottom_left", "bottom_middle", "bottom_right",
}

// String returns the snake_case region name.
func (r HUDRegion) String() string {
	if r < 0 || r >= hudRegionCount {
		return fmt.Sprintf("HUDRegion(%d)", int(r))
	}
	return hudRegionNames[r]
}

// HUDRegions lists all regions in declaration order.
func HUDRegions() []HUDRegion {
	out := make([]HUDRegion, 0, hudRegionCount)
	for r := TopLeft; r < hudRegionCount; r++ {
		out = append(out, r)
	}
	return out
}

// GameImmersiveHUDState carries "looking at" likelihoods in [0, 1] per region.
type GameImmersiveHUDState struct {
	Timestamp Timestamp               `json:"timestamp_in_seconds"`
	LookingAt [hudRegionCount]float32 `json:"looking_at"`
}

// Likelihood returns the likelihood the user is looking at r, or 0 for an unknown region.
func (s GameImmersiveHUDState) Likelihood(r HUDRegion) float32 {
	if r < 0 || r >= hudRegionCount {
		return 0
	}
	return s.LookingAt[r]
}

// FoveationRadii are the normalized radii of the four rendering-definition levels,
// innermost first.
type FoveationRadii struct {
	Level1 float32 `json:"radius_level_1"`
	Level2 float32 `json:"radius_level_2"`
	Level3 float32 `json:"radius_level_3"`
	Level4 float32 `json:"radius_level_4"`
}

// FoveatedRenderingState positions the foveated rendering regions.
type FoveatedRenderingState struct {
	Timestamp        Timestamp      `json:"timestamp_in_seconds"`
	NormalizedCenter PointF         `json:"normalized_foveation_center"`
	NormalizedRadii  FoveationRadii `json:"normalized_foveation_radii"`
}
