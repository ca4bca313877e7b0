// Package camera turns tracking frames into in-game camera motion.
// Sensitivities are runtime-configurable the same way as the dispatch engine settings.
package camera

// Config holds the camera control parameters.
// These can be modified via the camera API at runtime.
type Config struct {
	// EyeSensitivity scales the eye tracking pose component.
	EyeSensitivity float32 `json:"eye_sensitivity"`

	// HeadSensitivity scales the head tracking pose component.
	HeadSensitivity float32 `json:"head_sensitivity"`
}

// Sensitivity bounds accepted by Validate.
// ComputeTransform itself accepts any weight.
const (
	MinSensitivity = 0.0
	MaxSensitivity = 4.0
)

// DefaultConfig passes both components through unchanged.
func DefaultConfig() Config {
	return Config{
		EyeSensitivity:  1.0,
		HeadSensitivity: 1.0,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.EyeSensitivity < MinSensitivity || c.EyeSensitivity > MaxSensitivity {
		errors = append(errors, "eye_sensitivity must be between 0.0 and 4.0")
	}
	if c.HeadSensitivity < MinSensitivity || c.HeadSensitivity > MaxSensitivity {
		errors = append(errors, "head_sensitivity must be between 0.0 and 4.0")
	}

	return errors
}

// Capabilities describes the tunable ranges for API clients.
func Capabilities() map[string]interface{} {
	return map[string]interface{}{
		"min_sensitivity": MinSensitivity,
		"max_sensitivity": MaxSensitivity,
		"presets":         PresetNames(),
		"recenter_states": []string{Idle.String(), Recentering.String()},
	}
}
