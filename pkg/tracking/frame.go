package tracking

// Frame is one bundle of tracking sub-states delivered per update.
//
// Each sub-state has its own timestamp. A sub-state whose timestamp is
// NullDataTimestamp did not update in this frame and its other fields are undefined.
// Frame is a plain value: assigning it copies it.
type Frame struct {
	User      UserState              `json:"user_state"`
	Camera    SimGameCameraState     `json:"sim_game_camera_state"`
	HUD       GameImmersiveHUDState  `json:"game_immersive_hud_state"`
	Foveation FoveatedRenderingState `json:"foveated_rendering_state"`
}

// EmptyFrame returns a frame whose sub-states all carry NullDataTimestamp.
func EmptyFrame() Frame {
	return Frame{
		User:      UserState{Timestamp: NullDataTimestamp},
		Camera:    SimGameCameraState{Timestamp: NullDataTimestamp},
		HUD:       GameImmersiveHUDState{Timestamp: NullDataTimestamp},
		Foveation: FoveatedRenderingState{Timestamp: NullDataTimestamp},
	}
}

// HasUser reports whether the user state carries data.
func (f *Frame) HasUser() bool { return f.User.Timestamp.Valid() }

// HasCamera reports whether the camera state carries data.
func (f *Frame) HasCamera() bool { return f.Camera.Timestamp.Valid() }

// HasHUD reports whether the HUD state carries data.
func (f *Frame) HasHUD() bool { return f.HUD.Timestamp.Valid() }

// HasFoveation reports whether the foveation state carries data.
func (f *Frame) HasFoveation() bool { return f.Foveation.Timestamp.Valid() }
