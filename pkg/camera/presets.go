package camera

// Preset names for common configurations
const (
	PresetDefault   = "default"
	PresetEyeOnly   = "eye_only"
	PresetHeadOnly  = "head_only"
	PresetSubtle    = "subtle"
	PresetAmplified = "amplified"
	PresetOff       = "off"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault:   DefaultConfig(),
		PresetEyeOnly:   {EyeSensitivity: 1.0, HeadSensitivity: 0},
		PresetHeadOnly:  {EyeSensitivity: 0, HeadSensitivity: 1.0},
		PresetSubtle:    {EyeSensitivity: 0.5, HeadSensitivity: 0.5},
		PresetAmplified: {EyeSensitivity: 1.5, HeadSensitivity: 1.5},
		PresetOff:       {},
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{
		PresetDefault,
		PresetEyeOnly,
		PresetHeadOnly,
		PresetSubtle,
		PresetAmplified,
		PresetOff,
	}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	if cfg, ok := Presets()[name]; ok {
		return &cfg
	}
	return nil
}
