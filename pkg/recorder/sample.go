package recorder

import (
	"time"

	"github.com/teslashibe/go-gaze/pkg/tracking"
)

// ChannelCount is the number of values stored per sample.
const ChannelCount = 16

// ChannelNames labels the sample channels in storage order. They double as the
// column names of the samples table.
var ChannelNames = [ChannelCount]string{
	"gaze_conf_int",
	"gaze_por_x",
	"gaze_por_y",
	"head_conf_int",
	"head_pos_x_m",
	"head_pos_y_m",
	"head_pos_z_m",
	"rot_m11", "rot_m12", "rot_m13",
	"rot_m21", "rot_m22", "rot_m23",
	"rot_m31", "rot_m32", "rot_m33",
}

// Sample is one recorded gaze and head measurement.
type Sample struct {
	Timestamp tracking.Timestamp
	WallClock time.Time
	Channels  [ChannelCount]float32
}

// GazeConfidence returns the gaze confidence channel.
func (s Sample) GazeConfidence() tracking.Confidence {
	return tracking.Confidence(s.Channels[0])
}

// HeadConfidence returns the head confidence channel.
func (s Sample) HeadConfidence() tracking.Confidence {
	return tracking.Confidence(s.Channels[3])
}

// SampleFromFrame extracts the recorded channels from f. It reports false when
// the frame carries no user state. Channels of a measurement whose confidence is
// LostTracking are zero.
func SampleFromFrame(f *tracking.Frame, now time.Time) (Sample, bool) {
	if f == nil || !f.HasUser() {
		return Sample{}, false
	}
	u := f.User
	s := Sample{Timestamp: u.Timestamp, WallClock: now}

	gaze := u.UnifiedScreenGaze
	s.Channels[0] = float32(gaze.Confidence)
	if gaze.Confidence.Tracked() {
		s.Channels[1] = float32(gaze.PointOfRegard.X)
		s.Channels[2] = float32(gaze.PointOfRegard.Y)
	}

	head := u.HeadPose
	s.Channels[3] = float32(head.Confidence)
	if head.Confidence.Tracked() {
		s.Channels[4] = head.Translation.X
		s.Channels[5] = head.Translation.Y
		s.Channels[6] = head.Translation.Z
		rot := head.Rotation.Flatten()
		copy(s.Channels[7:], rot[:])
	}
	return s, true
}
