package core

import (
	"fmt"
	"math"
	"time"

	vk "github.com/devblok/vulkan"
	log "github.com/sirupsen/logrus"

	"github.com/devblok/pyx/core/deletion"
	"github.com/devblok/pyx/model"
	"github.com/devblok/pyx/utility/kar"
)

var _ Renderer = (*Engine)(nil)

type frame struct {
	commandBuffer  vk.CommandBuffer
	fence          vk.Fence
	imageAvailable vk.Semaphore
	renderFinished vk.Semaphore
}

// Engine is the renderer state. Everything it creates is registered with
// its deletion queue, Destroy releases all of it in reverse order.
type Engine struct {
	cfg    Configuration
	logger log.FieldLogger
	queue  deletion.Queue

	window    Window
	instance  *Instance
	surface   vk.Surface
	device    *Device
	swapchain *Swapchain
	pipeline  *Pipeline
	commands  *Commands

	vertices    *Buffer
	vertexCount uint32

	commandPool vk.CommandPool
	frames      []frame
	frameIndex  int

	framebuffers           []vk.Framebuffer
	framebuffersDeleter    deletion.Handle
	framebuffersRegistered bool
}

// NewEngine creates an engine that still needs to be initialised
func NewEngine(cfg Configuration, logger log.FieldLogger) *Engine {
	return &Engine{
		cfg:    cfg,
		logger: logger.WithField("component", "engine"),
	}
}

// Initialise implements Renderer. When it fails the objects created so far
// stay registered and are released by Destroy.
func (e *Engine) Initialise(window Window) error {
	start := time.Now()
	e.window = window

	var err error
	if e.instance, err = NewInstance(e.cfg.Instance, window.ProcAddr(), window.InstanceExtensions(), &e.queue, e.logger); err != nil {
		return err
	}
	if e.surface, err = e.instance.CreateSurface(window, &e.queue); err != nil {
		return err
	}
	if e.device, err = NewDevice(e.instance, e.surface, e.cfg.Renderer.DeviceExtensions, &e.queue, e.logger); err != nil {
		return err
	}
	if e.swapchain, err = NewSwapchain(e.device, e.surface, window, e.cfg.Renderer, &e.queue, e.logger); err != nil {
		return err
	}

	vertex, fragment, err := e.loadShaders()
	if err != nil {
		return err
	}
	if e.pipeline, err = NewPipeline(e.device, e.swapchain.Format(), vertex, fragment, &e.queue, e.logger); err != nil {
		return err
	}

	if e.commands, err = NewTransientCommands(e.device, QueueFamilyGraphics, &e.queue); err != nil {
		return err
	}
	triangle := model.Triangle()
	if e.vertices, err = UploadVertices(e.device, e.commands, model.Bytes(triangle), &e.queue, e.logger); err != nil {
		return err
	}
	e.vertexCount = uint32(len(triangle))

	if err := e.createFrames(); err != nil {
		return err
	}
	if err := e.createFramebuffers(); err != nil {
		return err
	}

	e.logger.WithFields(log.Fields{
		"device":   e.device.Name(),
		"deleters": e.queue.Len(),
		"took":     time.Since(start),
	}).Info("engine initialised")
	return nil
}

func (e *Engine) loadShaders() (vertex, fragment ShaderFile, err error) {
	var source ShaderSource
	if path := e.cfg.Renderer.ShaderArchive; path != "" {
		archive, err := kar.OpenFile(path)
		if err != nil {
			return vertex, fragment, fmt.Errorf("open shader archive %s: %w", path, err)
		}
		defer archive.Close()
		source = NewArchiveShaderSource(archive)
	} else {
		if source, err = NewDirectoryShaderSource(e.cfg.Renderer.ShaderDirectory); err != nil {
			return vertex, fragment, err
		}
	}

	shaders, err := source.Shaders()
	if err != nil {
		return vertex, fragment, err
	}
	return PickShaderPair(shaders)
}

func (e *Engine) createFrames() error {
	device := e.device.Logical()
	family, _ := e.device.Family(QueueFamilyGraphics)

	cpci := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: family,
	}
	var commandPool vk.CommandPool
	if err := vk.Error(vk.CreateCommandPool(device, &cpci, nil, &commandPool)); err != nil {
		return fmt.Errorf("vk.CreateCommandPool(): %w", err)
	}
	e.queue.Push(func() {
		vk.DestroyCommandPool(device, commandPool, nil)
	})
	e.commandPool = commandPool

	count := e.cfg.Renderer.FramesInFlight
	cbai := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        commandPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: count,
	}
	commandBuffers := make([]vk.CommandBuffer, count)
	if err := vk.Error(vk.AllocateCommandBuffers(device, &cbai, commandBuffers)); err != nil {
		return fmt.Errorf("vk.AllocateCommandBuffers(): %w", err)
	}

	fci := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
		Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit),
	}
	sci := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}

	e.frames = make([]frame, 0, count)
	for idx, commandBuffer := range commandBuffers {
		f := frame{commandBuffer: commandBuffer}
		if err := vk.Error(vk.CreateFence(device, &fci, nil, &f.fence)); err != nil {
			return fmt.Errorf("vk.CreateFence()[%d]: %w", idx, err)
		}
		if err := vk.Error(vk.CreateSemaphore(device, &sci, nil, &f.imageAvailable)); err != nil {
			vk.DestroyFence(device, f.fence, nil)
			return fmt.Errorf("vk.CreateSemaphore()[%d]: %w", idx, err)
		}
		if err := vk.Error(vk.CreateSemaphore(device, &sci, nil, &f.renderFinished)); err != nil {
			vk.DestroyFence(device, f.fence, nil)
			vk.DestroySemaphore(device, f.imageAvailable, nil)
			return fmt.Errorf("vk.CreateSemaphore()[%d]: %w", idx, err)
		}

		sync := f
		e.queue.Push(func() {
			vk.DestroyFence(device, sync.fence, nil)
			vk.DestroySemaphore(device, sync.imageAvailable, nil)
			vk.DestroySemaphore(device, sync.renderFinished, nil)
		})
		e.frames = append(e.frames, f)
	}
	return nil
}

func (e *Engine) createFramebuffers() error {
	device := e.device.Logical()
	extent := e.swapchain.Extent()

	framebuffers := make([]vk.Framebuffer, 0, len(e.swapchain.Views()))
	for idx, view := range e.swapchain.Views() {
		fci := vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      e.pipeline.RenderPass(),
			AttachmentCount: 1,
			PAttachments:    []vk.ImageView{view},
			Width:           extent.Width,
			Height:          extent.Height,
			Layers:          1,
		}

		var framebuffer vk.Framebuffer
		if err := vk.Error(vk.CreateFramebuffer(device, &fci, nil, &framebuffer)); err != nil {
			destroyFramebuffers(device, framebuffers)
			return fmt.Errorf("vk.CreateFramebuffer()[%d]: %w", idx, err)
		}
		framebuffers = append(framebuffers, framebuffer)
	}

	e.framebuffers = framebuffers
	e.framebuffersDeleter = e.queue.Push(func() {
		destroyFramebuffers(device, framebuffers)
	})
	e.framebuffersRegistered = true
	return nil
}

// releaseFramebuffers destroys the current framebuffers ahead of the flush.
// The handle is dropped with them since the queue hands it out again.
func (e *Engine) releaseFramebuffers() {
	if !e.framebuffersRegistered {
		return
	}
	e.queue.Remove(e.framebuffersDeleter)
	e.framebuffersRegistered = false

	if len(e.framebuffers) > 0 {
		destroyFramebuffers(e.device.Logical(), e.framebuffers)
	}
	e.framebuffers = nil
}

func destroyFramebuffers(device vk.Device, framebuffers []vk.Framebuffer) {
	for _, framebuffer := range framebuffers {
		vk.DestroyFramebuffer(device, framebuffer, nil)
	}
}

// recreate rebuilds the swapchain and framebuffers for the current window size
func (e *Engine) recreate() error {
	if width, height := e.window.DrawableSize(); width == 0 || height == 0 {
		return nil
	}
	if err := e.device.WaitIdle(); err != nil {
		return err
	}

	e.releaseFramebuffers()

	if err := e.swapchain.Recreate(); err != nil {
		return err
	}
	if err := e.createFramebuffers(); err != nil {
		return err
	}

	extent := e.swapchain.Extent()
	e.logger.WithFields(log.Fields{
		"width":  extent.Width,
		"height": extent.Height,
	}).Debug("swapchain recreated")
	return nil
}

// Draw implements Renderer
func (e *Engine) Draw() error {
	if width, height := e.window.DrawableSize(); width == 0 || height == 0 {
		return nil
	}

	// a failed recreate leaves no framebuffers to draw into
	if !e.framebuffersRegistered {
		return e.recreate()
	}

	device := e.device.Logical()
	f := e.frames[e.frameIndex]

	if err := vk.Error(vk.WaitForFences(device, 1, []vk.Fence{f.fence}, vk.True, math.MaxUint64)); err != nil {
		return fmt.Errorf("vk.WaitForFences(): %w", err)
	}

	var imageIndex uint32
	switch result := vk.AcquireNextImage(device, e.swapchain.Handle(), math.MaxUint64, f.imageAvailable, nil, &imageIndex); result {
	case vk.Success, vk.Suboptimal:
	case vk.ErrorOutOfDate:
		return e.recreate()
	default:
		return fmt.Errorf("vk.AcquireNextImage(): %w", vk.Error(result))
	}

	if err := vk.Error(vk.ResetFences(device, 1, []vk.Fence{f.fence})); err != nil {
		return fmt.Errorf("vk.ResetFences(): %w", err)
	}
	if err := e.record(f.commandBuffer, e.framebuffers[imageIndex]); err != nil {
		return err
	}

	submit := []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{f.imageAvailable},
		PWaitDstStageMask: []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{f.commandBuffer},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{f.renderFinished},
	}}
	if err := vk.Error(vk.QueueSubmit(e.device.Queue(QueueFamilyGraphics), 1, submit, f.fence)); err != nil {
		return fmt.Errorf("vk.QueueSubmit(): %w", err)
	}

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{f.renderFinished},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{e.swapchain.Handle()},
		PImageIndices:      []uint32{imageIndex},
	}

	e.frameIndex = (e.frameIndex + 1) % len(e.frames)

	switch result := vk.QueuePresent(e.device.Queue(QueueFamilyPresentation), &presentInfo); result {
	case vk.Success:
		return nil
	case vk.Suboptimal, vk.ErrorOutOfDate:
		return e.recreate()
	default:
		return fmt.Errorf("vk.QueuePresent(): %w", vk.Error(result))
	}
}

func (e *Engine) record(commandBuffer vk.CommandBuffer, framebuffer vk.Framebuffer) error {
	if err := vk.Error(vk.ResetCommandBuffer(commandBuffer, 0)); err != nil {
		return fmt.Errorf("vk.ResetCommandBuffer(): %w", err)
	}

	cbbi := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if err := vk.Error(vk.BeginCommandBuffer(commandBuffer, &cbbi)); err != nil {
		return fmt.Errorf("vk.BeginCommandBuffer(): %w", err)
	}

	extent := e.swapchain.Extent()
	clearValues := make([]vk.ClearValue, 1)
	clearValues[0].SetColor([]float32{0, 0, 0, 1})

	rpbi := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  e.pipeline.RenderPass(),
		Framebuffer: framebuffer,
		RenderArea: vk.Rect2D{
			Extent: extent,
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}

	vk.CmdBeginRenderPass(commandBuffer, &rpbi, vk.SubpassContentsInline)
	vk.CmdBindPipeline(commandBuffer, vk.PipelineBindPointGraphics, e.pipeline.Handle())
	vk.CmdSetViewport(commandBuffer, 0, 1, []vk.Viewport{{
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}})
	vk.CmdSetScissor(commandBuffer, 0, 1, []vk.Rect2D{{
		Extent: extent,
	}})
	vk.CmdBindVertexBuffers(commandBuffer, 0, 1, []vk.Buffer{e.vertices.Handle()}, []vk.DeviceSize{0})
	vk.CmdDraw(commandBuffer, e.vertexCount, 1, 0, 0)
	vk.CmdEndRenderPass(commandBuffer)

	if err := vk.Error(vk.EndCommandBuffer(commandBuffer)); err != nil {
		return fmt.Errorf("vk.EndCommandBuffer(): %w", err)
	}
	return nil
}

// Destroy implements Renderer. It waits for the device to finish and
// releases every registered object, calling it again does nothing.
func (e *Engine) Destroy() {
	if e.device != nil {
		if err := e.device.WaitIdle(); err != nil {
			e.logger.Warn(err)
		}
	}

	pending := e.queue.Len()
	start := time.Now()
	e.queue.Flush()

	if pending > 0 {
		e.logger.WithFields(log.Fields{
			"deleters": pending,
			"took":     time.Since(start),
		}).Info("engine destroyed")
	}
	e.device = nil
	e.instance = nil
}

// Pending returns the number of objects waiting to be released
func (e *Engine) Pending() int {
	return e.queue.Len()
}
