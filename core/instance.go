package core

import (
	"fmt"
	"unsafe"

	vk "github.com/devblok/vulkan"
	log "github.com/sirupsen/logrus"

	"github.com/devblok/pyx/core/deletion"
)

// Instance extensions and layers the engine asks for on its own
const (
	extensionPhysicalDeviceProperties2 = "VK_KHR_get_physical_device_properties2"
	extensionDebugReport               = "VK_EXT_debug_report"
	layerKhronosValidation             = "VK_LAYER_KHRONOS_validation"
)

const validationPrefix = "[Validation Layer]"

// NewInstance loads Vulkan and creates an instance with the extensions the
// window needs. A nil procAddr makes the loader use its default library.
// The returned Instance is released by queue.
func NewInstance(cfg InstanceConfiguration, procAddr unsafe.Pointer, windowExtensions []string, queue *deletion.Queue, logger log.FieldLogger) (*Instance, error) {
	logger = logger.WithField("component", "instance")

	if procAddr == nil {
		if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
			return nil, fmt.Errorf("vk.SetDefaultGetInstanceProcAddr(): %w", err)
		}
	} else {
		vk.SetGetInstanceProcAddr(procAddr)
	}

	if err := vk.Init(); err != nil {
		return nil, fmt.Errorf("vk.Init(): %w", err)
	}

	supportedExtensions, err := instanceExtensions()
	if err != nil {
		return nil, err
	}

	required := append([]string{extensionPhysicalDeviceProperties2}, windowExtensions...)
	required = append(required, cfg.Extensions...)
	optional := append([]string{}, cfg.OptionalExtensions...)
	if cfg.Validation {
		optional = append(optional, extensionDebugReport)
	}

	extensions, err := negotiate(logger, "extension", required, optional, supportedExtensions)
	if err != nil {
		return nil, err
	}

	var layers []string
	{
		requested := append([]string{}, cfg.Layers...)
		if cfg.Validation {
			requested = append(requested, layerKhronosValidation)
		}
		if len(requested) > 0 {
			supportedLayers, err := instanceLayers()
			if err != nil {
				return nil, err
			}
			var unsupported []string
			layers, unsupported = ValidateNames(requested, supportedLayers)
			for _, layer := range unsupported {
				logger.Errorf("layer: %s is not supported", layer)
			}
		}
	}

	appName := cfg.ApplicationName
	if appName == "" {
		appName = "pyx"
	}
	appInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PApplicationName:   safeString(appName),
		ApplicationVersion: vk.MakeVersion(0, 1, 0),
		PEngineName:        safeString("Pyx"),
		EngineVersion:      vk.MakeVersion(0, 1, 0),
		ApiVersion:         vk.MakeVersion(1, 1, 0),
	}

	ici := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: safeStrings(extensions),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     safeStrings(layers),
	}

	var instance vk.Instance
	if err := vk.Error(vk.CreateInstance(&ici, nil, &instance)); err != nil {
		return nil, fmt.Errorf("vk.CreateInstance(): %w", err)
	}
	vk.InitInstance(instance)

	v := &Instance{
		instance:   instance,
		extensions: extensions,
		layers:     layers,
		logger:     logger,
	}

	if contains(extensions, extensionDebugReport) {
		v.createDebugCallback()
	}

	debugCallback := v.debugCallback
	queue.Push(func() {
		if debugCallback != nil {
			vk.DestroyDebugReportCallback(instance, debugCallback, nil)
		}
		vk.DestroyInstance(instance, nil)
	})

	devices, err := enumerateDevices(instance)
	if err != nil {
		return nil, err
	}
	v.availableDevices = devices

	logger.WithFields(log.Fields{
		"extensions": extensions,
		"layers":     layers,
		"devices":    len(devices),
	}).Info("instance created")
	return v, nil
}

// Instance describes a Vulkan API Instance
type Instance struct {
	instance      vk.Instance
	debugCallback vk.DebugReportCallback
	surface       vk.Surface

	extensions       []string
	layers           []string
	availableDevices []vk.PhysicalDevice

	logger log.FieldLogger
}

func (v *Instance) createDebugCallback() {
	dci := vk.DebugReportCallbackCreateInfo{
		SType: vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags: vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit |
			vk.DebugReportPerformanceWarningBit | vk.DebugReportInformationBit | vk.DebugReportDebugBit),
		PfnCallback: v.reportValidation,
	}

	var callback vk.DebugReportCallback
	if err := vk.Error(vk.CreateDebugReportCallback(v.instance, &dci, nil, &callback)); err != nil {
		// validation output is a convenience, the instance stays usable
		v.logger.Warnf("vk.CreateDebugReportCallback(): %s", err)
		return
	}
	v.debugCallback = callback
}

func (v *Instance) reportValidation(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint, location uint, messageCode int32, pLayerPrefix string,
	pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	entry := v.logger.WithField("layer", pLayerPrefix)
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		entry.Errorf("%s %s", validationPrefix, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit|vk.DebugReportPerformanceWarningBit) != 0:
		entry.Warnf("%s %s", validationPrefix, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportInformationBit) != 0:
		entry.Infof("%s %s", validationPrefix, pMessage)
	default:
		entry.Debugf("%s %s", validationPrefix, pMessage)
	}
	return vk.False
}

// CreateSurface creates the presentation surface through the window.
// The surface is released by queue.
func (v *Instance) CreateSurface(window Window, queue *deletion.Queue) (vk.Surface, error) {
	surface, err := window.CreateSurface(v.instance)
	if err != nil {
		return vk.NullSurface, fmt.Errorf("window.CreateSurface(): %w", err)
	}

	instance := v.instance
	queue.Push(func() {
		vk.DestroySurface(instance, surface, nil)
	})
	v.surface = surface
	return surface, nil
}

func enumerateDevices(instance vk.Instance) ([]vk.PhysicalDevice, error) {
	var deviceCount uint32
	if err := vk.Error(vk.EnumeratePhysicalDevices(instance, &deviceCount, nil)); err != nil {
		return nil, fmt.Errorf("vk.EnumeratePhysicalDevices(): %w", err)
	}
	availableDevices := make([]vk.PhysicalDevice, deviceCount)
	if err := vk.Error(vk.EnumeratePhysicalDevices(instance, &deviceCount, availableDevices)); err != nil {
		return nil, fmt.Errorf("vk.EnumeratePhysicalDevices(): %w", err)
	}
	return availableDevices, nil
}

// Handle returns the underlying vk.Instance
func (v *Instance) Handle() vk.Instance {
	return v.instance
}

// Surface returns the window surface, if it's not set
// it returns a valid but empty surface
func (v *Instance) Surface() vk.Surface {
	if v.surface == nil {
		return vk.NullSurface
	}
	return v.surface
}

// Extensions returns the enabled instance extensions
func (v *Instance) Extensions() []string {
	return v.extensions
}

// Layers returns the enabled instance layers
func (v *Instance) Layers() []string {
	return v.layers
}

// AvailableDevices returns handles of Physical Devices
func (v *Instance) AvailableDevices() []vk.PhysicalDevice {
	return v.availableDevices
}

// PhysicalDevicesInfo returns a report for each Physical Device
func (v *Instance) PhysicalDevicesInfo() []PhysicalDeviceInfo {
	pdi := make([]PhysicalDeviceInfo, len(v.availableDevices))
	for i, device := range v.availableDevices {
		if extensions, err := deviceExtensions(device); err != nil {
			pdi[i].Invalid = true
		} else {
			pdi[i].Extensions = extensions
		}

		var numDeviceLayers uint32
		if err := vk.Error(vk.EnumerateDeviceLayerProperties(device, &numDeviceLayers, nil)); err != nil {
			pdi[i].Invalid = true
		}
		deviceLayers := make([]vk.LayerProperties, numDeviceLayers)
		if err := vk.Error(vk.EnumerateDeviceLayerProperties(device, &numDeviceLayers, deviceLayers)); err != nil {
			pdi[i].Invalid = true
		}
		for _, layer := range deviceLayers {
			layer.Deref()
			pdi[i].Layers = append(pdi[i].Layers, vk.ToString(layer.LayerName[:]))
		}

		var memoryProperties vk.PhysicalDeviceMemoryProperties
		vk.GetPhysicalDeviceMemoryProperties(device, &memoryProperties)
		memoryProperties.Deref()
		for iMem := uint32(0); iMem < memoryProperties.MemoryHeapCount; iMem++ {
			memoryProperties.MemoryHeaps[iMem].Deref()
			pdi[i].Memory += uint64(memoryProperties.MemoryHeaps[iMem].Size)
		}

		var properties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(device, &properties)
		properties.Deref()
		pdi[i].ID = int(properties.DeviceID)
		pdi[i].VendorID = int(properties.VendorID)
		pdi[i].Name = vk.ToString(properties.DeviceName[:])
		pdi[i].DriverVersion = int(properties.DriverVersion)
		pdi[i].Type = deviceTypeName(properties.DeviceType)
	}
	return pdi
}
