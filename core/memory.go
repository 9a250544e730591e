package core

import (
	"errors"
	"fmt"
	"unsafe"

	vk "github.com/devblok/vulkan"
	log "github.com/sirupsen/logrus"

	"github.com/devblok/pyx/core/deletion"
)

var errNoMemoryType = errors.New("requested memory type not found")

// findMemoryType returns the first memory type allowed by typeBits
// that has all of the requested properties
func findMemoryType(types []vk.MemoryPropertyFlags, typeBits uint32, properties vk.MemoryPropertyFlags) (uint32, error) {
	for idx, flags := range types {
		if typeBits&(1<<uint(idx)) == 0 {
			continue
		}
		if flags&properties == properties {
			return uint32(idx), nil
		}
	}
	return 0, errNoMemoryType
}

func (d *Device) memoryTypes() []vk.MemoryPropertyFlags {
	types := make([]vk.MemoryPropertyFlags, d.memoryProperties.MemoryTypeCount)
	for idx := range types {
		d.memoryProperties.MemoryTypes[idx].Deref()
		types[idx] = d.memoryProperties.MemoryTypes[idx].PropertyFlags
	}
	return types
}

// Buffer is a vk.Buffer bound to its own allocation
type Buffer struct {
	handle vk.Buffer
	memory vk.DeviceMemory
	size   vk.DeviceSize

	deleter deletion.Handle
}

// Handle returns the underlying vk.Buffer
func (b *Buffer) Handle() vk.Buffer {
	return b.handle
}

// Size returns the requested size of the buffer
func (b *Buffer) Size() vk.DeviceSize {
	return b.size
}

// CreateBuffer creates a buffer with memory that has the given properties.
// The buffer is released by queue, or earlier by DestroyBuffer.
func (d *Device) CreateBuffer(size vk.DeviceSize, usage vk.BufferUsageFlags, properties vk.MemoryPropertyFlags, queue *deletion.Queue) (*Buffer, error) {
	bci := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}

	var buffer vk.Buffer
	if err := vk.Error(vk.CreateBuffer(d.logical, &bci, nil, &buffer)); err != nil {
		return nil, fmt.Errorf("vk.CreateBuffer(): %w", err)
	}

	var memoryRequirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.logical, buffer, &memoryRequirements)
	memoryRequirements.Deref()

	memoryType, err := findMemoryType(d.memoryTypes(), memoryRequirements.MemoryTypeBits, properties)
	if err != nil {
		vk.DestroyBuffer(d.logical, buffer, nil)
		return nil, err
	}

	mai := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memoryRequirements.Size,
		MemoryTypeIndex: memoryType,
	}

	var memory vk.DeviceMemory
	if err := vk.Error(vk.AllocateMemory(d.logical, &mai, nil, &memory)); err != nil {
		vk.DestroyBuffer(d.logical, buffer, nil)
		return nil, fmt.Errorf("vk.AllocateMemory(): %w", err)
	}

	if err := vk.Error(vk.BindBufferMemory(d.logical, buffer, memory, 0)); err != nil {
		vk.DestroyBuffer(d.logical, buffer, nil)
		vk.FreeMemory(d.logical, memory, nil)
		return nil, fmt.Errorf("vk.BindBufferMemory(): %w", err)
	}

	device := d.logical
	return &Buffer{
		handle: buffer,
		memory: memory,
		size:   size,
		deleter: queue.Push(func() {
			vk.DestroyBuffer(device, buffer, nil)
			vk.FreeMemory(device, memory, nil)
		}),
	}, nil
}

// DestroyBuffer releases b now and cancels its pending deleter
func (d *Device) DestroyBuffer(b *Buffer, queue *deletion.Queue) {
	queue.Remove(b.deleter)
	vk.DestroyBuffer(d.logical, b.handle, nil)
	vk.FreeMemory(d.logical, b.memory, nil)
}

// Fill copies data into host visible buffer memory
func (d *Device) Fill(b *Buffer, data []byte) error {
	if vk.DeviceSize(len(data)) > b.size {
		return fmt.Errorf("fill buffer: %d bytes do not fit into %d", len(data), b.size)
	}

	var ptr unsafe.Pointer
	if err := vk.Error(vk.MapMemory(d.logical, b.memory, 0, b.size, 0, &ptr)); err != nil {
		return fmt.Errorf("vk.MapMemory(): %w", err)
	}
	vk.Memcopy(ptr, data)
	vk.UnmapMemory(d.logical, b.memory)
	return nil
}

// Commands records and submits one time command buffers
type Commands struct {
	device *Device
	pool   vk.CommandPool
	queue  vk.Queue
}

// NewTransientCommands creates a command pool for short lived command
// buffers on the queue family assigned to role. The pool is released by queue.
func NewTransientCommands(device *Device, role QueueFamily, queue *deletion.Queue) (*Commands, error) {
	family, ok := device.Family(role)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingQueueFamily, role)
	}

	cpci := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit),
		QueueFamilyIndex: family,
	}

	var pool vk.CommandPool
	if err := vk.Error(vk.CreateCommandPool(device.Logical(), &cpci, nil, &pool)); err != nil {
		return nil, fmt.Errorf("vk.CreateCommandPool(): %w", err)
	}

	logical := device.Logical()
	queue.Push(func() {
		vk.DestroyCommandPool(logical, pool, nil)
	})

	return &Commands{
		device: device,
		pool:   pool,
		queue:  device.Queue(role),
	}, nil
}

// Submit records a command buffer with record, submits it and
// waits until the queue is idle
func (c *Commands) Submit(record func(vk.CommandBuffer)) error {
	logical := c.device.Logical()

	cbai := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        c.pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	commandBuffers := make([]vk.CommandBuffer, 1)
	if err := vk.Error(vk.AllocateCommandBuffers(logical, &cbai, commandBuffers)); err != nil {
		return fmt.Errorf("vk.AllocateCommandBuffers(): %w", err)
	}
	defer vk.FreeCommandBuffers(logical, c.pool, 1, commandBuffers)

	cbbi := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if err := vk.Error(vk.BeginCommandBuffer(commandBuffers[0], &cbbi)); err != nil {
		return fmt.Errorf("vk.BeginCommandBuffer(): %w", err)
	}
	record(commandBuffers[0])
	if err := vk.Error(vk.EndCommandBuffer(commandBuffers[0])); err != nil {
		return fmt.Errorf("vk.EndCommandBuffer(): %w", err)
	}

	submit := []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    commandBuffers,
	}}
	if err := vk.Error(vk.QueueSubmit(c.queue, 1, submit, nil)); err != nil {
		return fmt.Errorf("vk.QueueSubmit(): %w", err)
	}
	if err := vk.Error(vk.QueueWaitIdle(c.queue)); err != nil {
		return fmt.Errorf("vk.QueueWaitIdle(): %w", err)
	}
	return nil
}

// UploadVertices copies data into a device local vertex buffer through a
// staging buffer. The staging buffer is gone once UploadVertices returns.
func UploadVertices(device *Device, commands *Commands, data []byte, queue *deletion.Queue, logger log.FieldLogger) (*Buffer, error) {
	size := vk.DeviceSize(len(data))

	staging, err := device.CreateBuffer(size,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit),
		queue)
	if err != nil {
		return nil, err
	}
	defer device.DestroyBuffer(staging, queue)

	if err := device.Fill(staging, data); err != nil {
		return nil, err
	}

	vertices, err := device.CreateBuffer(size,
		vk.BufferUsageFlags(vk.BufferUsageTransferDstBit|vk.BufferUsageVertexBufferBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		queue)
	if err != nil {
		return nil, err
	}

	if err := commands.Submit(func(cmd vk.CommandBuffer) {
		vk.CmdCopyBuffer(cmd, staging.Handle(), vertices.Handle(), 1, []vk.BufferCopy{{
			Size: size,
		}})
	}); err != nil {
		return nil, err
	}

	logger.WithFields(log.Fields{
		"component": "memory",
		"bytes":     size,
	}).Debug("vertex buffer uploaded")
	return vertices, nil
}
