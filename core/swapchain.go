package core

import (
	"fmt"
	"math"

	vk "github.com/devblok/vulkan"
	log "github.com/sirupsen/logrus"

	"github.com/devblok/pyx/core/deletion"
)

// surfaceLimits is the part of vk.SurfaceCapabilities the swapchain
// choices depend on
type surfaceLimits struct {
	current   vk.Extent2D
	min       vk.Extent2D
	max       vk.Extent2D
	minImages uint32
	maxImages uint32
}

func chooseSurfaceFormat(formats []vk.SurfaceFormat) (vk.SurfaceFormat, error) {
	if len(formats) == 0 {
		return vk.SurfaceFormat{}, fmt.Errorf("vk.GetPhysicalDeviceSurfaceFormats(): no surface formats")
	}
	for _, f := range formats {
		if f.Format == vk.FormatB8g8r8a8Srgb && f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return f, nil
		}
	}
	return formats[0], nil
}

func choosePresentMode(modes []vk.PresentMode) vk.PresentMode {
	for _, m := range modes {
		if m == vk.PresentModeMailbox {
			return m
		}
	}
	return vk.PresentModeFifo
}

func chooseExtent(limits surfaceLimits, width, height uint32) vk.Extent2D {
	if limits.current.Width != math.MaxUint32 {
		return limits.current
	}
	return vk.Extent2D{
		Width:  clampUint32(width, limits.min.Width, limits.max.Width),
		Height: clampUint32(height, limits.min.Height, limits.max.Height),
	}
}

// chooseImageCount clamps requested into the surface limits,
// a zero maximum means there is no upper bound
func chooseImageCount(requested uint32, limits surfaceLimits) uint32 {
	count := requested
	if count < limits.minImages {
		count = limits.minImages
	}
	if limits.maxImages > 0 && count > limits.maxImages {
		count = limits.maxImages
	}
	return count
}

func clampUint32(v, min, max uint32) uint32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Swapchain owns the presentation images and their views
type Swapchain struct {
	device  *Device
	surface vk.Surface
	window  Window
	queue   *deletion.Queue
	logger  log.FieldLogger

	requestedImages uint32

	handle      vk.Swapchain
	format      vk.SurfaceFormat
	presentMode vk.PresentMode
	extent      vk.Extent2D
	images      []vk.Image
	views       []vk.ImageView

	deleter deletion.Handle
}

// NewSwapchain creates a swapchain for surface sized after the window.
// The swapchain and its image views are released by queue.
func NewSwapchain(device *Device, surface vk.Surface, window Window, cfg RendererConfiguration, queue *deletion.Queue, logger log.FieldLogger) (*Swapchain, error) {
	s := &Swapchain{
		device:          device,
		surface:         surface,
		window:          window,
		queue:           queue,
		logger:          logger.WithField("component", "swapchain"),
		requestedImages: cfg.SwapchainSize,
	}

	formats, err := s.surfaceFormats()
	if err != nil {
		return nil, err
	}
	if s.format, err = chooseSurfaceFormat(formats); err != nil {
		return nil, err
	}

	modes, err := s.presentModes()
	if err != nil {
		return nil, err
	}
	s.presentMode = choosePresentMode(modes)

	if err := s.create(nil); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Swapchain) surfaceFormats() ([]vk.SurfaceFormat, error) {
	physical := s.device.Physical()

	var count uint32
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(physical, s.surface, &count, nil)); err != nil {
		return nil, fmt.Errorf("vk.GetPhysicalDeviceSurfaceFormats(): %w", err)
	}
	formats := make([]vk.SurfaceFormat, count)
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(physical, s.surface, &count, formats)); err != nil {
		return nil, fmt.Errorf("vk.GetPhysicalDeviceSurfaceFormats(): %w", err)
	}
	for i := range formats {
		formats[i].Deref()
	}
	return formats, nil
}

func (s *Swapchain) presentModes() ([]vk.PresentMode, error) {
	physical := s.device.Physical()

	var count uint32
	if err := vk.Error(vk.GetPhysicalDeviceSurfacePresentModes(physical, s.surface, &count, nil)); err != nil {
		return nil, fmt.Errorf("vk.GetPhysicalDeviceSurfacePresentModes(): %w", err)
	}
	modes := make([]vk.PresentMode, count)
	if err := vk.Error(vk.GetPhysicalDeviceSurfacePresentModes(physical, s.surface, &count, modes)); err != nil {
		return nil, fmt.Errorf("vk.GetPhysicalDeviceSurfacePresentModes(): %w", err)
	}
	return modes, nil
}

func (s *Swapchain) limits() (surfaceLimits, vk.SurfaceCapabilities, error) {
	var capabilities vk.SurfaceCapabilities
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceCapabilities(s.device.Physical(), s.surface, &capabilities)); err != nil {
		return surfaceLimits{}, capabilities, fmt.Errorf("vk.GetPhysicalDeviceSurfaceCapabilities(): %w", err)
	}
	capabilities.Deref()
	capabilities.CurrentExtent.Deref()
	capabilities.MinImageExtent.Deref()
	capabilities.MaxImageExtent.Deref()

	return surfaceLimits{
		current:   capabilities.CurrentExtent,
		min:       capabilities.MinImageExtent,
		max:       capabilities.MaxImageExtent,
		minImages: capabilities.MinImageCount,
		maxImages: capabilities.MaxImageCount,
	}, capabilities, nil
}

func (s *Swapchain) create(oldSwapchain vk.Swapchain) error {
	limits, capabilities, err := s.limits()
	if err != nil {
		return err
	}

	width, height := s.window.DrawableSize()
	s.extent = chooseExtent(limits, width, height)
	imageCount := chooseImageCount(s.requestedImages, limits)

	compositeAlpha := vk.CompositeAlphaOpaqueBit
	for _, flag := range []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	} {
		if capabilities.SupportedCompositeAlpha&vk.CompositeAlphaFlags(flag) != 0 {
			compositeAlpha = flag
			break
		}
	}

	scci := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          s.surface,
		MinImageCount:    imageCount,
		ImageFormat:      s.format.Format,
		ImageColorSpace:  s.format.ColorSpace,
		ImageExtent:      s.extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     capabilities.CurrentTransform,
		CompositeAlpha:   compositeAlpha,
		PresentMode:      s.presentMode,
		Clipped:          vk.True,
		OldSwapchain:     oldSwapchain,
	}

	graphics, _ := s.device.Family(QueueFamilyGraphics)
	presentation, _ := s.device.Family(QueueFamilyPresentation)
	if graphics != presentation {
		scci.ImageSharingMode = vk.SharingModeConcurrent
		scci.QueueFamilyIndexCount = 2
		scci.PQueueFamilyIndices = []uint32{graphics, presentation}
	}

	device := s.device.Logical()

	var swapchain vk.Swapchain
	if err := vk.Error(vk.CreateSwapchain(device, &scci, nil, &swapchain)); err != nil {
		return fmt.Errorf("vk.CreateSwapchain(): %w", err)
	}

	var numImages uint32
	if err := vk.Error(vk.GetSwapchainImages(device, swapchain, &numImages, nil)); err != nil {
		vk.DestroySwapchain(device, swapchain, nil)
		return fmt.Errorf("vk.GetSwapchainImages(num): %w", err)
	}
	images := make([]vk.Image, numImages)
	if err := vk.Error(vk.GetSwapchainImages(device, swapchain, &numImages, images)); err != nil {
		vk.DestroySwapchain(device, swapchain, nil)
		return fmt.Errorf("vk.GetSwapchainImages(images): %w", err)
	}

	views := make([]vk.ImageView, 0, len(images))
	for idx, image := range images {
		ivci := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    image,
			ViewType: vk.ImageViewType2d,
			Format:   s.format.Format,
			Components: vk.ComponentMapping{
				R: vk.ComponentSwizzleIdentity,
				G: vk.ComponentSwizzleIdentity,
				B: vk.ComponentSwizzleIdentity,
				A: vk.ComponentSwizzleIdentity,
			},
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}

		var view vk.ImageView
		if err := vk.Error(vk.CreateImageView(device, &ivci, nil, &view)); err != nil {
			destroySwapchain(device, swapchain, views)
			return fmt.Errorf("vk.CreateImageView()[%d]: %w", idx, err)
		}
		views = append(views, view)
	}

	s.handle = swapchain
	s.images = images
	s.views = views
	s.deleter = s.queue.Push(func() {
		destroySwapchain(device, swapchain, views)
	})

	s.logger.WithFields(log.Fields{
		"images":  len(images),
		"width":   s.extent.Width,
		"height":  s.extent.Height,
		"format":  s.format.Format,
		"present": s.presentMode,
	}).Info("swapchain created")
	return nil
}

func destroySwapchain(device vk.Device, swapchain vk.Swapchain, views []vk.ImageView) {
	for _, view := range views {
		vk.DestroyImageView(device, view, nil)
	}
	vk.DestroySwapchain(device, swapchain, nil)
}

// Recreate builds a new swapchain for the current window size and
// releases the old one right away. The device must be idle.
func (s *Swapchain) Recreate() error {
	device := s.device.Logical()
	old, oldViews, oldDeleter := s.handle, s.views, s.deleter

	if err := s.create(old); err != nil {
		return err
	}

	s.queue.Remove(oldDeleter)
	destroySwapchain(device, old, oldViews)
	return nil
}

// Handle returns the underlying vk.Swapchain
func (s *Swapchain) Handle() vk.Swapchain {
	return s.handle
}

// Format returns the image format of the swapchain
func (s *Swapchain) Format() vk.Format {
	return s.format.Format
}

// Extent returns the size of the swapchain images
func (s *Swapchain) Extent() vk.Extent2D {
	return s.extent
}

// Views returns one image view per swapchain image
func (s *Swapchain) Views() []vk.ImageView {
	return s.views
}
