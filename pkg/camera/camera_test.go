package camera

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-gaze/pkg/tracking"
)

func sampleState() tracking.SimGameCameraState {
	return tracking.SimGameCameraState{
		Timestamp:     1.25,
		EyeComponent:  tracking.Transform3D{Roll: 0.1, Pitch: 0.2, Yaw: 0.3, X: 0.01, Y: 0.02, Z: 0.03},
		HeadComponent: tracking.Transform3D{Roll: -0.05, Pitch: 0.4, Yaw: -0.1, X: 0.1, Y: -0.2, Z: 0.5},
	}
}

func TestComputeTransformIdentityWeights(t *testing.T) {
	s := sampleState()
	got := ComputeTransform(s, 1, 1)
	want := s.EyeComponent.Add(s.HeadComponent)
	assert.Equal(t, want, got)
}

func TestComputeTransformZeroWeights(t *testing.T) {
	assert.Equal(t, tracking.Transform3D{}, ComputeTransform(sampleState(), 0, 0))
}

func TestComputeTransformNotNormalized(t *testing.T) {
	s := sampleState()

	eyeOnly := ComputeTransform(s, 2, 0)
	assert.InDelta(t, 0.6, eyeOnly.Yaw, 1e-6)
	assert.InDelta(t, 0.06, eyeOnly.Z, 1e-6)

	headOnly := ComputeTransform(s, 0, 0.5)
	assert.InDelta(t, 0.2, headOnly.Pitch, 1e-6)
	assert.InDelta(t, 0.25, headOnly.Z, 1e-6)
}

func TestTransformFromFrame(t *testing.T) {
	f := tracking.EmptyFrame()
	_, ok := TransformFromFrame(&f, DefaultConfig())
	assert.False(t, ok, "null camera timestamp must not yield a transform")

	_, ok = TransformFromFrame(nil, DefaultConfig())
	assert.False(t, ok)

	f.Camera = sampleState()
	got, ok := TransformFromFrame(&f, Config{EyeSensitivity: 1, HeadSensitivity: 0})
	require.True(t, ok)
	assert.Equal(t, f.Camera.EyeComponent, got)
}

func TestManagerUpdateConfig(t *testing.T) {
	m := NewManager()
	assert.Equal(t, DefaultConfig(), m.GetConfig())

	var applied []Config
	m.OnConfigChange = func(cfg Config) error {
		applied = append(applied, cfg)
		return nil
	}

	require.NoError(t, m.UpdateConfig(map[string]interface{}{"preset": PresetHeadOnly}))
	assert.Equal(t, float32(0), m.GetConfig().EyeSensitivity)

	require.NoError(t, m.UpdateConfig(map[string]interface{}{"eye_sensitivity": 0.5}))
	assert.Equal(t, Config{EyeSensitivity: 0.5, HeadSensitivity: 1}, m.GetConfig())
	assert.Len(t, applied, 2)

	assert.Error(t, m.UpdateConfig(map[string]interface{}{"preset": "nope"}))
	assert.Error(t, m.UpdateConfig(map[string]interface{}{"head_sensitivity": 9.0}))
	assert.Equal(t, float32(1), m.GetConfig().HeadSensitivity, "rejected update must not apply")

	m.OnConfigChange = func(Config) error { return errors.New("disk full") }
	assert.Error(t, m.SetConfig(DefaultConfig()))
}

func TestPresetsValid(t *testing.T) {
	for _, name := range PresetNames() {
		p := GetPreset(name)
		require.NotNil(t, p, name)
		assert.Empty(t, p.Validate(), name)
	}
	assert.Nil(t, GetPreset("unknown"))
}

type fakeRecenterer struct {
	startErr error
	endErr   error
	starts   int
	ends     int
}

func (f *fakeRecenterer) RequestRecenterStart() error {
	f.starts++
	return f.startErr
}

func (f *fakeRecenterer) RequestRecenterEnd() error {
	f.ends++
	return f.endErr
}

func TestRecenterSequence(t *testing.T) {
	target := &fakeRecenterer{}
	r := NewRecenter(target, nil)
	assert.Equal(t, Idle, r.State())

	// End while idle is a no-op.
	r.End()
	assert.Equal(t, 0, target.ends)

	assert.True(t, r.Start())
	assert.Equal(t, Recentering, r.State())

	// Second start is not queued again.
	assert.True(t, r.Start())
	assert.Equal(t, 1, target.starts)
	assert.Equal(t, Recentering, r.State())

	r.End()
	assert.Equal(t, Idle, r.State())
	assert.Equal(t, 1, target.ends)
}

func TestRecenterStartRejected(t *testing.T) {
	target := &fakeRecenterer{startErr: tracking.ErrProducerUnavailable}
	r := NewRecenter(target, nil)

	assert.False(t, r.Start())
	assert.Equal(t, Idle, r.State())
}

func TestRecenterEndUnconditional(t *testing.T) {
	target := &fakeRecenterer{endErr: tracking.ErrProducerUnavailable}
	r := NewRecenter(target, nil)

	require.True(t, r.Start())
	r.End()
	assert.Equal(t, Idle, r.State())
}
