package engine

import (
	"bytes"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/spaghettifunk/framecore/engine/renderer/vulkan"
)

const (
	DemoCube     = "cube"
	DemoSpectrum = "spectrum"
)

type ApplicationConfig struct {
	// The application name used in windowing.
	Name string `toml:"name"`
	// Window starting position x axis.
	StartPosX uint32 `toml:"start_pos_x"`
	// Window starting position y axis.
	StartPosY uint32 `toml:"start_pos_y"`
	// Window starting width.
	StartWidth uint32 `toml:"start_width"`
	// Window starting height.
	StartHeight uint32 `toml:"start_height"`

	LogLevel     string `toml:"log_level"`
	Demo         string `toml:"demo"`
	ShaderDir    string `toml:"shader_dir"`
	WatchShaders bool   `toml:"watch_shaders"`

	Renderer vulkan.RendererConfig `toml:"renderer"`
}

func DefaultApplicationConfig() *ApplicationConfig {
	return &ApplicationConfig{
		Name:         "framecore",
		StartPosX:    100,
		StartPosY:    100,
		StartWidth:   640,
		StartHeight:  480,
		LogLevel:     "debug",
		Demo:         DemoCube,
		ShaderDir:    "assets/shaders",
		WatchShaders: true,
		Renderer: vulkan.RendererConfig{
			Validation:         true,
			RequireDiscreteGPU: true,
			FenceTimeoutNs:     vulkan.DefaultFenceTimeout,
			MemoryPreference:   "gpu_only",
			ClearColor:         [4]float32{0, 0, 0.2, 1},
		},
	}
}

// LoadApplicationConfig reads path over the defaults. A missing file yields
// the defaults unchanged.
func LoadApplicationConfig(path string) (*ApplicationConfig, error) {
	cfg := DefaultApplicationConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		core.LogInfo("no config at %s, using defaults", path)
		return cfg, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config %s", path)
	}

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, errors.Wrapf(err, "unknown keys in %s:\n%s", path, strict.String())
		}
		return nil, errors.Wrapf(err, "failed to parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", path)
	}
	return cfg, nil
}

func (c *ApplicationConfig) Validate() error {
	if c.StartWidth == 0 || c.StartHeight == 0 {
		return errors.Newf("window size must be non-zero, got %dx%d", c.StartWidth, c.StartHeight)
	}
	if _, err := core.ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := vulkan.ParseBufferMemoryOption(c.Renderer.MemoryPreference); err != nil {
		return err
	}
	switch c.Demo {
	case DemoCube, DemoSpectrum:
	default:
		return errors.Newf("unknown demo %q", c.Demo)
	}
	return nil
}

// Level is the parsed log level. Validate has already rejected bad values.
func (c *ApplicationConfig) Level() core.LogLevel {
	lvl, _ := core.ParseLogLevel(c.LogLevel)
	return lvl
}
