package engine

import "github.com/spaghettifunk/anima-rhi/engine/core"

type ApplicationConfig struct {
	// The application name used for the Vulkan instance and heap labels.
	Name string
	// TOML file loaded on top of core.DefaultConfig. Empty runs on the defaults.
	ConfigPath string
	// Backend overrides [application].backend when not empty.
	Backend string
	// Frames overrides [application].frames when not zero.
	Frames uint64
}

// Load resolves the engine configuration: defaults, then the file, then the overrides.
func (ac *ApplicationConfig) Load() (*core.Config, error) {
	cfg := core.DefaultConfig()
	if ac.ConfigPath != "" {
		loaded, err := core.LoadConfig(ac.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if ac.Name != "" {
		cfg.Application.Name = ac.Name
	}
	if ac.Backend != "" {
		cfg.Application.Backend = ac.Backend
	}
	if ac.Frames != 0 {
		cfg.Application.Frames = ac.Frames
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
