package main

import (
	"fmt"
	"unsafe"

	vk "github.com/devblok/vulkan"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/devblok/pyx/core"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Open the window and render",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(configuration, logger)
	},
}

// sdlWindow adapts an SDL window to core.Window
type sdlWindow struct {
	window *sdl.Window
}

func (w sdlWindow) InstanceExtensions() []string {
	return w.window.VulkanGetInstanceExtensions()
}

func (w sdlWindow) ProcAddr() unsafe.Pointer {
	return sdl.VulkanGetVkGetInstanceProcAddr()
}

func (w sdlWindow) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	surface, err := w.window.VulkanCreateSurface(instance)
	if err != nil {
		return vk.NullSurface, err
	}
	return vk.SurfaceFromPointer(uintptr(surface)), nil
}

func (w sdlWindow) DrawableSize() (uint32, uint32) {
	width, height := w.window.VulkanGetDrawableSize()
	if width < 0 || height < 0 {
		return 0, 0
	}
	return uint32(width), uint32(height)
}

func run(cfg core.Configuration, logger *log.Logger) error {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return fmt.Errorf("sdl.Init(): %w", err)
	}
	defer sdl.Quit()

	if err := sdl.VulkanLoadLibrary(""); err != nil {
		return fmt.Errorf("sdl.VulkanLoadLibrary(): %w", err)
	}
	defer sdl.VulkanUnloadLibrary()

	window, err := sdl.CreateWindow(cfg.Instance.ApplicationName,
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		int32(cfg.Renderer.ScreenWidth),
		int32(cfg.Renderer.ScreenHeight),
		sdl.WINDOW_VULKAN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		return fmt.Errorf("sdl.CreateWindow(): %w", err)
	}
	defer window.Destroy()

	engine := core.NewEngine(cfg, logger)
	defer engine.Destroy()

	if err := engine.Initialise(sdlWindow{window: window}); err != nil {
		return err
	}

	clock := core.NewTime(cfg.Time)
	defer clock.Stop()

	var frames uint64
	for range clock.FpsTicker().C {
		if quit := pollEvents(); quit {
			break
		}
		if err := engine.Draw(); err != nil {
			return err
		}
		frames = clock.Tick()
	}

	logger.WithField("frames", frames).Info("event loop exited")
	return nil
}

// pollEvents drains the SDL event queue and reports whether to quit
func pollEvents() bool {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch et := event.(type) {
		case *sdl.KeyboardEvent:
			if et.Type != sdl.KEYDOWN {
				continue
			}
			switch et.Keysym.Sym {
			case sdl.K_ESCAPE, sdl.K_TAB:
				return true
			}
		case *sdl.QuitEvent:
			return true
		}
	}
	return false
}
