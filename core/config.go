package core

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/gobuffalo/envy"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Configuration defines a global engine configuration setting
type Configuration struct {
	Time     TimeConfiguration     `yaml:"time"`
	Instance InstanceConfiguration `yaml:"instance"`
	Renderer RendererConfiguration `yaml:"renderer"`
	Logging  LoggingConfiguration  `yaml:"logging"`
}

// TimeConfiguration is used to configure time services
type TimeConfiguration struct {
	// FramesPerSecond caps frames per second that is put out
	// To unlimit, set to 0
	FramesPerSecond int `yaml:"framesPerSecond"`
}

// InstanceConfiguration is used to configure the Vulkan instance
type InstanceConfiguration struct {
	ApplicationName string `yaml:"applicationName"`

	// Validation enables the Khronos validation layer and
	// the debug report callback, when they are available
	Validation bool `yaml:"validation"`

	// Extensions are required on top of the ones the window needs
	Extensions []string `yaml:"extensions,omitempty"`
	// OptionalExtensions are enabled only if the loader supports them
	OptionalExtensions []string `yaml:"optionalExtensions,omitempty"`
	Layers             []string `yaml:"layers,omitempty"`
}

// RendererConfiguration is used to configure the renderer
type RendererConfiguration struct {
	SwapchainSize  uint32 `yaml:"swapchainSize"`
	FramesInFlight uint32 `yaml:"framesInFlight"`

	// DeviceExtensions are required from the logical device,
	// VK_KHR_swapchain is always added
	DeviceExtensions []string `yaml:"deviceExtensions,omitempty"`

	ScreenWidth  uint32 `yaml:"screenWidth"`
	ScreenHeight uint32 `yaml:"screenHeight"`

	ShaderDirectory string `yaml:"shaderDirectory"`
	// ShaderArchive takes precedence over ShaderDirectory when set
	ShaderArchive string `yaml:"shaderArchive,omitempty"`
}

// LoggingConfiguration sets up the engine logger
type LoggingConfiguration struct {
	Level string `yaml:"level"`
}

// Environment variables that override configuration values
const (
	EnvScreenWidth     = "PYX_SCREEN_WIDTH"
	EnvScreenHeight    = "PYX_SCREEN_HEIGHT"
	EnvShaderDirectory = "PYX_SHADER_DIRECTORY"
	EnvShaderArchive   = "PYX_SHADER_ARCHIVE"
	EnvLogLevel        = "PYX_LOG_LEVEL"
	EnvValidation      = "PYX_VALIDATION"
	EnvFramesPerSecond = "PYX_FPS"
)

// DefaultConfiguration returns the configuration the engine runs with
// when nothing is overridden.
func DefaultConfiguration() Configuration {
	return Configuration{
		Time: TimeConfiguration{
			FramesPerSecond: 60,
		},
		Instance: InstanceConfiguration{
			ApplicationName: "pyx",
			Validation:      true,
		},
		Renderer: RendererConfiguration{
			SwapchainSize:   3,
			FramesInFlight:  2,
			ScreenWidth:     1920 / 2,
			ScreenHeight:    1080 / 2,
			ShaderDirectory: "./shaders",
		},
		Logging: LoggingConfiguration{
			Level: "info",
		},
	}
}

// LoadConfiguration builds the configuration from the defaults, the YAML file
// at path (skipped if path is empty or missing), the given dotenv files and
// finally the process environment.
func LoadConfiguration(path string, envFiles ...string) (Configuration, error) {
	cfg := DefaultConfiguration()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read configuration %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse configuration %s: %w", path, err)
			}
		}
	}

	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return cfg, fmt.Errorf("load env files: %w", err)
		}
	}
	envy.Reload()

	if err := cfg.applyEnvironment(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Configuration) applyEnvironment() error {
	if err := envUint32(EnvScreenWidth, &c.Renderer.ScreenWidth); err != nil {
		return err
	}
	if err := envUint32(EnvScreenHeight, &c.Renderer.ScreenHeight); err != nil {
		return err
	}
	if v := envy.Get(EnvFramesPerSecond, ""); v != "" {
		fps, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvFramesPerSecond, err)
		}
		c.Time.FramesPerSecond = fps
	}
	if v := envy.Get(EnvValidation, ""); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvValidation, err)
		}
		c.Instance.Validation = enabled
	}
	c.Renderer.ShaderDirectory = envy.Get(EnvShaderDirectory, c.Renderer.ShaderDirectory)
	c.Renderer.ShaderArchive = envy.Get(EnvShaderArchive, c.Renderer.ShaderArchive)
	c.Logging.Level = envy.Get(EnvLogLevel, c.Logging.Level)
	return nil
}

func envUint32(key string, dst *uint32) error {
	v := envy.Get(key, "")
	if v == "" {
		return nil
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = uint32(n)
	return nil
}

// Validate checks the values the renderer cannot start without.
func (c Configuration) Validate() error {
	if c.Renderer.ScreenWidth == 0 || c.Renderer.ScreenHeight == 0 {
		return fmt.Errorf("invalid screen size %dx%d", c.Renderer.ScreenWidth, c.Renderer.ScreenHeight)
	}
	if c.Renderer.FramesInFlight == 0 {
		return errors.New("framesInFlight must be at least 1")
	}
	if c.Time.FramesPerSecond < 0 {
		return errors.New("framesPerSecond cannot be negative")
	}
	return nil
}
