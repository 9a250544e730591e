// Package core bootstraps a Vulkan renderer. Every Vulkan object the
// engine creates is released through a single deletion queue that is
// flushed once, at shutdown.
package core

import (
	"errors"
	"unsafe"

	vk "github.com/devblok/vulkan"
)

// package errors
var (
	ErrNoSuitableDevice   = errors.New("no suitable physical device")
	ErrMissingExtensions  = errors.New("required extensions are not supported")
	ErrMissingQueueFamily = errors.New("required queue family not found")
	ErrNoShaders          = errors.New("no vertex and fragment shader pair found")
)

// Window is the platform window the renderer presents into.
type Window interface {
	// InstanceExtensions lists the instance extensions
	// the window system needs to create a surface
	InstanceExtensions() []string

	// ProcAddr returns vkGetInstanceProcAddr as loaded by the window
	// system, nil makes the loader use its default
	ProcAddr() unsafe.Pointer

	// CreateSurface creates a presentation surface for instance
	CreateSurface(instance vk.Instance) (vk.Surface, error)

	// DrawableSize returns the size of the drawable area in pixels
	DrawableSize() (width, height uint32)
}

// Renderer describes the rendering machinery.
// It's created only with internal values set,
// it needs to be initialised with Initialise() before use.
type Renderer interface {
	// Initialise sets up the configured rendering pipeline
	Initialise(Window) error

	// Draw renders and presents one frame
	Draw() error

	// Destroy releases everything that was created, exactly once
	Destroy()
}

// ShaderType represents the type of shader thats loaded
type ShaderType int

// Identifies shader objects with their types
const (
	VertexShaderType ShaderType = iota
	FragmentShaderType
	UnknownShaderType
)

func (s ShaderType) String() string {
	switch s {
	case VertexShaderType:
		return "vertex"
	case FragmentShaderType:
		return "fragment"
	default:
		return "unknown"
	}
}
