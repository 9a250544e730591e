package core_test

import (
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
	log "github.com/sirupsen/logrus"

	"github.com/devblok/pyx/core"
)

func writeFile(c *qt.C, name, content string) string {
	path := filepath.Join(c.TempDir(), name)
	c.Assert(os.WriteFile(path, []byte(content), 0o644), qt.IsNil)
	return path
}

func TestLoadConfigurationDefaults(t *testing.T) {
	c := qt.New(t)

	cfg, err := core.LoadConfiguration(filepath.Join(c.TempDir(), "missing.yml"))
	c.Assert(err, qt.IsNil)
	c.Assert(cfg, qt.DeepEquals, core.DefaultConfiguration())
}

func TestLoadConfigurationFile(t *testing.T) {
	c := qt.New(t)

	path := writeFile(c, "pyx.yml", `
time:
  framesPerSecond: 144
instance:
  applicationName: test
  validation: false
  extensions: [VK_EXT_debug_utils]
renderer:
  screenWidth: 800
  screenHeight: 600
  shaderArchive: shaders.kar
logging:
  level: debug
`)
	cfg, err := core.LoadConfiguration(path)
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Time.FramesPerSecond, qt.Equals, 144)
	c.Assert(cfg.Instance.ApplicationName, qt.Equals, "test")
	c.Assert(cfg.Instance.Validation, qt.IsFalse)
	c.Assert(cfg.Instance.Extensions, qt.DeepEquals, []string{"VK_EXT_debug_utils"})
	c.Assert(cfg.Renderer.ScreenWidth, qt.Equals, uint32(800))
	c.Assert(cfg.Renderer.ScreenHeight, qt.Equals, uint32(600))
	c.Assert(cfg.Renderer.ShaderArchive, qt.Equals, "shaders.kar")
	c.Assert(cfg.Logging.Level, qt.Equals, "debug")

	// untouched values keep their defaults
	c.Assert(cfg.Renderer.FramesInFlight, qt.Equals, core.DefaultConfiguration().Renderer.FramesInFlight)
}

func TestLoadConfigurationEnvironment(t *testing.T) {
	c := qt.New(t)

	c.Setenv(core.EnvScreenWidth, "1280")
	c.Setenv(core.EnvValidation, "false")
	c.Setenv(core.EnvLogLevel, "warn")

	cfg, err := core.LoadConfiguration("")
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Renderer.ScreenWidth, qt.Equals, uint32(1280))
	c.Assert(cfg.Instance.Validation, qt.IsFalse)
	c.Assert(cfg.Logging.Level, qt.Equals, "warn")
}

func TestLoadConfigurationEnvFile(t *testing.T) {
	c := qt.New(t)

	// godotenv does not override variables that are already set
	c.Setenv(core.EnvShaderDirectory, "")
	os.Unsetenv(core.EnvShaderDirectory)

	env := writeFile(c, ".env", core.EnvShaderDirectory+"=/opt/shaders\n")
	cfg, err := core.LoadConfiguration("", env)
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Renderer.ShaderDirectory, qt.Equals, "/opt/shaders")
}

func TestLoadConfigurationInvalid(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{{
		name: "malformed yaml",
		yaml: "renderer: [",
	}, {
		name: "zero screen size",
		yaml: "renderer:\n  screenWidth: 0\n",
	}, {
		name: "no frames in flight",
		yaml: "renderer:\n  framesInFlight: 0\n",
	}, {
		name: "negative fps",
		yaml: "time:\n  framesPerSecond: -1\n",
	}, {
		name: "bad width",
		env:  map[string]string{core.EnvScreenWidth: "wide"},
	}, {
		name: "bad validation flag",
		env:  map[string]string{core.EnvValidation: "maybe"},
	}}
	for _, test := range tests {
		c.Run(test.name, func(c *qt.C) {
			for k, v := range test.env {
				c.Setenv(k, v)
			}
			path := writeFile(c, "pyx.yml", test.yaml)
			_, err := core.LoadConfiguration(path)
			c.Assert(err, qt.IsNotNil)
		})
	}
}

func TestNewLogger(t *testing.T) {
	c := qt.New(t)

	logger, err := core.NewLogger(core.LoggingConfiguration{Level: "debug"})
	c.Assert(err, qt.IsNil)
	c.Assert(logger.GetLevel(), qt.Equals, log.DebugLevel)

	_, err = core.NewLogger(core.LoggingConfiguration{Level: "loud"})
	c.Assert(err, qt.IsNotNil)
}
