package camera

import "github.com/teslashibe/go-gaze/pkg/tracking"

// ComputeTransform blends the two pose components of state:
//
//	eyeWeight*EyeComponent + headWeight*HeadComponent
//
// on each of the six channels. Weights scale, they are not normalized and need not
// sum to one. Weights of 1.0 pass through whatever curve the tracker already applied.
func ComputeTransform(state tracking.SimGameCameraState, eyeWeight, headWeight float32) tracking.Transform3D {
	return state.EyeComponent.Scale(eyeWeight).Add(state.HeadComponent.Scale(headWeight))
}

// TransformFromFrame computes the camera transform of f with cfg's sensitivities.
// It returns false when the frame carries no camera state.
func TransformFromFrame(f *tracking.Frame, cfg Config) (tracking.Transform3D, bool) {
	if f == nil || !f.HasCamera() {
		return tracking.Transform3D{}, false
	}
	return ComputeTransform(f.Camera, cfg.EyeSensitivity, cfg.HeadSensitivity), true
}
