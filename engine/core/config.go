package core

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/anima-rhi/engine/math"
)

const (
	// MaxFramesInFlight bounds [heap].frames_in_flight.
	MaxFramesInFlight uint32 = 8
)

type ApplicationConfig struct {
	Name string `toml:"name"`
	// Backend is either "headless" or "vulkan".
	Backend string `toml:"backend"`
	// Frames is the number of frames the testbed runs before shutting down. Zero runs
	// until interrupted.
	Frames uint64 `toml:"frames"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type HeapConfig struct {
	FramesInFlight uint32 `toml:"frames_in_flight"`
	// DebugNames generates a name for heaps created without one.
	DebugNames bool `toml:"debug_names"`
}

// LimitsConfig caps what the headless device accepts. A zero value means unlimited.
type LimitsConfig struct {
	MaxSets                  uint32 `toml:"max_sets"`
	MaxSamplers              uint32 `toml:"max_samplers"`
	MaxCombinedImageSamplers uint32 `toml:"max_combined_image_samplers"`
	MaxSampledImages         uint32 `toml:"max_sampled_images"`
	MaxStorageImages         uint32 `toml:"max_storage_images"`
	MaxUniformBuffers        uint32 `toml:"max_uniform_buffers"`
	MaxStorageBuffers        uint32 `toml:"max_storage_buffers"`
	MaxTexelBuffers          uint32 `toml:"max_texel_buffers"`
	MaxImageViews            uint32 `toml:"max_image_views"`
	MaxBufferViews           uint32 `toml:"max_buffer_views"`
	MinBufferOffsetAlignment uint64 `toml:"min_buffer_offset_alignment"`
}

type WatchConfig struct {
	Enabled bool `toml:"enabled"`
}

type Config struct {
	Application ApplicationConfig `toml:"application"`
	Log         LogConfig         `toml:"log"`
	Heap        HeapConfig        `toml:"heap"`
	Limits      LimitsConfig      `toml:"limits"`
	Watch       WatchConfig       `toml:"watch"`
}

func DefaultConfig() *Config {
	return &Config{
		Application: ApplicationConfig{
			Name:    "Anima RHI Testbed",
			Backend: "headless",
			Frames:  240,
		},
		Log: LogConfig{
			Level: "info",
		},
		Heap: HeapConfig{
			FramesInFlight: 3,
			DebugNames:     true,
		},
		Limits: LimitsConfig{
			MaxSets:                  4096,
			MaxSamplers:              4096,
			MaxCombinedImageSamplers: 4096,
			MaxSampledImages:         16384,
			MaxStorageImages:         4096,
			MaxUniformBuffers:        8192,
			MaxStorageBuffers:        8192,
			MaxTexelBuffers:          4096,
			MaxImageViews:            16384,
			MaxBufferViews:           4096,
			MinBufferOffsetAlignment: 256,
		},
	}
}

// LoadConfig reads a TOML file on top of DefaultConfig, so a file only needs the keys
// it overrides.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate normalizes the values that have a safe range and rejects the rest.
func (c *Config) Validate() error {
	switch c.Application.Backend {
	case "headless", "vulkan":
	default:
		return fmt.Errorf("unknown backend %q: %w", c.Application.Backend, ErrConfiguration)
	}
	c.Heap.FramesInFlight = math.Clamp(c.Heap.FramesInFlight, 1, MaxFramesInFlight)
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	return nil
}

func (c *Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}
