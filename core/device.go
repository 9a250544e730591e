package core

import (
	"fmt"

	vk "github.com/devblok/vulkan"
	log "github.com/sirupsen/logrus"

	"github.com/devblok/pyx/core/deletion"
)

const extensionSwapchain = "VK_KHR_swapchain"

// PhysicalDeviceInfo describes available physical properties of a rendering device
type PhysicalDeviceInfo struct {
	ID            int
	VendorID      int
	DriverVersion int
	Name          string
	Type          string
	Invalid       bool
	Extensions    []string
	Layers        []string
	Memory        uint64
}

// QueueFamily is the role a device queue family is used for
type QueueFamily int

// Queue family roles, in the order they are assigned
const (
	QueueFamilyGraphics QueueFamily = iota
	QueueFamilyPresentation
	QueueFamilyCompute
	QueueFamilyTransfer
)

func (q QueueFamily) String() string {
	switch q {
	case QueueFamilyGraphics:
		return "graphics"
	case QueueFamilyPresentation:
		return "presentation"
	case QueueFamilyCompute:
		return "compute"
	case QueueFamilyTransfer:
		return "transfer"
	default:
		return "none"
	}
}

// deviceCapabilities is what device selection looks at
type deviceCapabilities struct {
	deviceType vk.PhysicalDeviceType
	graphics   bool
	surface    bool
}

func scoreDevice(c deviceCapabilities) uint32 {
	var score uint32
	switch c.deviceType {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		score += 400
	case vk.PhysicalDeviceTypeIntegratedGpu:
		score += 300
	case vk.PhysicalDeviceTypeCpu:
		score += 200
	default:
		score += 100
	}

	if c.surface {
		score += 5000
	}
	if c.graphics {
		score += 5000
	}
	return score
}

// pickDevice returns the index of the highest scoring device,
// later devices win ties.
func pickDevice(devices []deviceCapabilities) (int, error) {
	if len(devices) == 0 {
		return 0, ErrNoSuitableDevice
	}

	var (
		best      int
		bestScore uint32
	)
	for i, d := range devices {
		if score := scoreDevice(d); score >= bestScore {
			best = i
			bestScore = score
		}
	}
	return best, nil
}

// queueFamilyInfo is what queue family assignment looks at
type queueFamilyInfo struct {
	flags   vk.QueueFlags
	count   uint32
	present bool
}

func (q queueFamilyInfo) has(bit vk.QueueFlagBits) bool {
	return q.count > 0 && q.flags&vk.QueueFlags(bit) != 0
}

// assignQueueFamilies picks a family index for every role it can serve.
// Presentation shares the graphics family when possible, compute and
// transfer prefer families no other role uses.
func assignQueueFamilies(families []queueFamilyInfo) (map[QueueFamily]uint32, error) {
	assigned := make(map[QueueFamily]uint32)
	used := make(map[uint32]bool)

	find := func(match func(queueFamilyInfo) bool, exclusive bool) (uint32, bool) {
		for i, f := range families {
			if exclusive && used[uint32(i)] {
				continue
			}
			if match(f) {
				return uint32(i), true
			}
		}
		return 0, false
	}
	assign := func(role QueueFamily, idx uint32) {
		assigned[role] = idx
		used[idx] = true
	}

	graphics, ok := find(func(f queueFamilyInfo) bool { return f.has(vk.QueueGraphicsBit) }, false)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingQueueFamily, QueueFamilyGraphics)
	}
	assign(QueueFamilyGraphics, graphics)

	if families[graphics].present {
		assign(QueueFamilyPresentation, graphics)
	} else if idx, ok := find(func(f queueFamilyInfo) bool { return f.count > 0 && f.present }, false); ok {
		assign(QueueFamilyPresentation, idx)
	} else {
		return nil, fmt.Errorf("%w: %s", ErrMissingQueueFamily, QueueFamilyPresentation)
	}

	roles := []struct {
		role QueueFamily
		bit  vk.QueueFlagBits
	}{
		{QueueFamilyCompute, vk.QueueComputeBit},
		{QueueFamilyTransfer, vk.QueueTransferBit},
	}
	for _, r := range roles {
		bit := r.bit
		match := func(f queueFamilyInfo) bool { return f.has(bit) }
		if idx, ok := find(match, true); ok {
			assign(r.role, idx)
		} else if idx, ok := find(match, false); ok {
			assign(r.role, idx)
		}
	}
	return assigned, nil
}

func queueFamilies(physical vk.PhysicalDevice, surface vk.Surface) []queueFamilyInfo {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(physical, &count, nil)
	props := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(physical, &count, props)

	families := make([]queueFamilyInfo, count)
	for i := range props {
		props[i].Deref()
		families[i].flags = props[i].QueueFlags
		families[i].count = props[i].QueueCount

		if surface != nil {
			var supported vk.Bool32
			vk.GetPhysicalDeviceSurfaceSupport(physical, uint32(i), surface, &supported)
			families[i].present = supported.B()
		}
	}
	return families
}

func queryCapabilities(physical vk.PhysicalDevice, surface vk.Surface) deviceCapabilities {
	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(physical, &properties)
	properties.Deref()

	c := deviceCapabilities{deviceType: properties.DeviceType}
	for _, f := range queueFamilies(physical, surface) {
		c.graphics = c.graphics || f.has(vk.QueueGraphicsBit)
		c.surface = c.surface || f.present
		if c.graphics && c.surface {
			break
		}
	}
	return c
}

func deviceTypeName(t vk.PhysicalDeviceType) string {
	switch t {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return "discrete"
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return "integrated"
	case vk.PhysicalDeviceTypeVirtualGpu:
		return "virtual"
	case vk.PhysicalDeviceTypeCpu:
		return "cpu"
	default:
		return "other"
	}
}

// Device is the selected physical device and the logical device created on it
type Device struct {
	physical vk.PhysicalDevice
	logical  vk.Device
	name     string

	families map[QueueFamily]uint32
	queues   map[QueueFamily]vk.Queue

	memoryProperties vk.PhysicalDeviceMemoryProperties
}

// NewDevice selects the best physical device for surface and creates a
// logical device with a queue for every assigned family. The logical
// device is released by queue.
func NewDevice(instance *Instance, surface vk.Surface, extensions []string, queue *deletion.Queue, logger log.FieldLogger) (*Device, error) {
	logger = logger.WithField("component", "device")

	physicalDevices := instance.AvailableDevices()
	capabilities := make([]deviceCapabilities, len(physicalDevices))
	for i, pd := range physicalDevices {
		capabilities[i] = queryCapabilities(pd, surface)
	}

	selected, err := pickDevice(capabilities)
	if err != nil {
		return nil, err
	}
	physical := physicalDevices[selected]

	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(physical, &properties)
	properties.Deref()

	d := &Device{
		physical: physical,
		name:     vk.ToString(properties.DeviceName[:]),
		queues:   make(map[QueueFamily]vk.Queue),
	}

	d.families, err = assignQueueFamilies(queueFamilies(physical, surface))
	if err != nil {
		return nil, err
	}

	supported, err := deviceExtensions(physical)
	if err != nil {
		return nil, err
	}
	enabled, err := negotiate(logger, "device extension", append([]string{extensionSwapchain}, extensions...), nil, supported)
	if err != nil {
		return nil, err
	}

	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(physical, &features)
	features.Deref()

	var queueInfos []vk.DeviceQueueCreateInfo
	for _, family := range uniqueFamilies(d.families) {
		queueInfos = append(queueInfos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1},
		})
	}

	dci := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(enabled)),
		PpEnabledExtensionNames: safeStrings(enabled),
		PEnabledFeatures: []vk.PhysicalDeviceFeatures{{
			SamplerAnisotropy: features.SamplerAnisotropy,
		}},
	}

	var logical vk.Device
	if err := vk.Error(vk.CreateDevice(physical, &dci, nil, &logical)); err != nil {
		return nil, fmt.Errorf("vk.CreateDevice(): %w", err)
	}
	queue.Push(func() {
		vk.DestroyDevice(logical, nil)
	})
	d.logical = logical

	for role, family := range d.families {
		var q vk.Queue
		vk.GetDeviceQueue(logical, family, 0, &q)
		d.queues[role] = q
	}

	vk.GetPhysicalDeviceMemoryProperties(physical, &d.memoryProperties)
	d.memoryProperties.Deref()

	logger.WithFields(log.Fields{
		"name":       d.name,
		"type":       deviceTypeName(properties.DeviceType),
		"score":      scoreDevice(capabilities[selected]),
		"extensions": enabled,
	}).Info("device selected")
	for role, family := range d.families {
		logger.Debugf("%s queue family: %d", role, family)
	}
	return d, nil
}

func uniqueFamilies(families map[QueueFamily]uint32) []uint32 {
	var unique []uint32
	for role := QueueFamilyGraphics; role <= QueueFamilyTransfer; role++ {
		family, ok := families[role]
		if !ok || containsUint32(unique, family) {
			continue
		}
		unique = append(unique, family)
	}
	return unique
}

// Logical returns the logical device handle
func (d *Device) Logical() vk.Device {
	return d.logical
}

// Physical returns the physical device handle
func (d *Device) Physical() vk.PhysicalDevice {
	return d.physical
}

// Name returns the physical device name
func (d *Device) Name() string {
	return d.name
}

// Family returns the queue family index assigned to role
func (d *Device) Family(role QueueFamily) (uint32, bool) {
	family, ok := d.families[role]
	return family, ok
}

// Queue returns the device queue assigned to role
func (d *Device) Queue(role QueueFamily) vk.Queue {
	return d.queues[role]
}

// WaitIdle blocks until the device finished all submitted work
func (d *Device) WaitIdle() error {
	if err := vk.Error(vk.DeviceWaitIdle(d.logical)); err != nil {
		return fmt.Errorf("vk.DeviceWaitIdle(): %w", err)
	}
	return nil
}
