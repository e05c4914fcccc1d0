package camera

// Preset names for common resolutions
const (
	Preset480p  = "480p"
	Preset720p  = "720p"
	Preset1080p = "1080p"
)

// PresetDefault is the preset matching DefaultConfig.
const PresetDefault = Preset720p

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		Preset480p:  SD480Config(),
		Preset720p:  DefaultConfig(),
		Preset1080p: HD1080Config(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{Preset480p, Preset720p, Preset1080p}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	if cfg, ok := Presets()[name]; ok {
		return &cfg
	}
	return nil
}

// SD480Config returns 640x480, for cameras that struggle at HD.
func SD480Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 640
	cfg.Height = 480
	return cfg
}

// HD1080Config returns 1080p Full HD configuration.
// Higher CPU usage; most webcams drop to 30fps or below.
func HD1080Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1920
	cfg.Height = 1080
	return cfg
}
