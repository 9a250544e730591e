package core

import (
	"testing"

	vk "github.com/devblok/vulkan"
	qt "github.com/frankban/quicktest"
)

func TestScoreDevice(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		name   string
		device deviceCapabilities
		want   uint32
	}{
		{"discrete", deviceCapabilities{deviceType: vk.PhysicalDeviceTypeDiscreteGpu}, 400},
		{"integrated", deviceCapabilities{deviceType: vk.PhysicalDeviceTypeIntegratedGpu}, 300},
		{"cpu", deviceCapabilities{deviceType: vk.PhysicalDeviceTypeCpu}, 200},
		{"other", deviceCapabilities{deviceType: vk.PhysicalDeviceTypeOther}, 100},
		{"virtual", deviceCapabilities{deviceType: vk.PhysicalDeviceTypeVirtualGpu}, 100},
		{"capable integrated", deviceCapabilities{
			deviceType: vk.PhysicalDeviceTypeIntegratedGpu,
			graphics:   true,
			surface:    true,
		}, 10300},
		{"discrete without surface", deviceCapabilities{
			deviceType: vk.PhysicalDeviceTypeDiscreteGpu,
			graphics:   true,
		}, 5400},
	}
	for _, test := range tests {
		c.Run(test.name, func(c *qt.C) {
			c.Assert(scoreDevice(test.device), qt.Equals, test.want)
		})
	}
}

func TestPickDevice(t *testing.T) {
	c := qt.New(t)

	c.Run("empty", func(c *qt.C) {
		_, err := pickDevice(nil)
		c.Assert(err, qt.ErrorIs, ErrNoSuitableDevice)
	})

	c.Run("capabilities outweigh type", func(c *qt.C) {
		idx, err := pickDevice([]deviceCapabilities{
			{deviceType: vk.PhysicalDeviceTypeDiscreteGpu},
			{deviceType: vk.PhysicalDeviceTypeIntegratedGpu, graphics: true, surface: true},
			{deviceType: vk.PhysicalDeviceTypeCpu, graphics: true},
		})
		c.Assert(err, qt.IsNil)
		c.Assert(idx, qt.Equals, 1)
	})

	c.Run("later device wins a tie", func(c *qt.C) {
		gpu := deviceCapabilities{deviceType: vk.PhysicalDeviceTypeDiscreteGpu, graphics: true, surface: true}
		idx, err := pickDevice([]deviceCapabilities{gpu, gpu})
		c.Assert(err, qt.IsNil)
		c.Assert(idx, qt.Equals, 1)
	})
}

func flags(bits ...vk.QueueFlagBits) vk.QueueFlags {
	var f vk.QueueFlags
	for _, b := range bits {
		f |= vk.QueueFlags(b)
	}
	return f
}

func TestAssignQueueFamilies(t *testing.T) {
	c := qt.New(t)

	c.Run("single family serves every role", func(c *qt.C) {
		assigned, err := assignQueueFamilies([]queueFamilyInfo{
			{flags: flags(vk.QueueGraphicsBit, vk.QueueComputeBit, vk.QueueTransferBit), count: 1, present: true},
		})
		c.Assert(err, qt.IsNil)
		c.Assert(assigned, qt.DeepEquals, map[QueueFamily]uint32{
			QueueFamilyGraphics:     0,
			QueueFamilyPresentation: 0,
			QueueFamilyCompute:      0,
			QueueFamilyTransfer:     0,
		})
	})

	c.Run("separate presentation family", func(c *qt.C) {
		assigned, err := assignQueueFamilies([]queueFamilyInfo{
			{flags: flags(vk.QueueGraphicsBit), count: 1},
			{flags: flags(vk.QueueTransferBit), count: 1, present: true},
		})
		c.Assert(err, qt.IsNil)
		c.Assert(assigned[QueueFamilyGraphics], qt.Equals, uint32(0))
		c.Assert(assigned[QueueFamilyPresentation], qt.Equals, uint32(1))
		c.Assert(assigned[QueueFamilyTransfer], qt.Equals, uint32(1))
		_, ok := assigned[QueueFamilyCompute]
		c.Assert(ok, qt.IsFalse)
	})

	c.Run("compute and transfer prefer unused families", func(c *qt.C) {
		all := flags(vk.QueueGraphicsBit, vk.QueueComputeBit, vk.QueueTransferBit)
		assigned, err := assignQueueFamilies([]queueFamilyInfo{
			{flags: all, count: 16, present: true},
			{flags: flags(vk.QueueComputeBit, vk.QueueTransferBit), count: 8},
			{flags: flags(vk.QueueTransferBit), count: 2},
		})
		c.Assert(err, qt.IsNil)
		c.Assert(assigned, qt.DeepEquals, map[QueueFamily]uint32{
			QueueFamilyGraphics:     0,
			QueueFamilyPresentation: 0,
			QueueFamilyCompute:      1,
			QueueFamilyTransfer:     2,
		})
	})

	c.Run("families without queues are skipped", func(c *qt.C) {
		assigned, err := assignQueueFamilies([]queueFamilyInfo{
			{flags: flags(vk.QueueGraphicsBit), count: 0, present: true},
			{flags: flags(vk.QueueGraphicsBit), count: 1, present: true},
		})
		c.Assert(err, qt.IsNil)
		c.Assert(assigned[QueueFamilyGraphics], qt.Equals, uint32(1))
	})

	c.Run("missing graphics", func(c *qt.C) {
		_, err := assignQueueFamilies([]queueFamilyInfo{
			{flags: flags(vk.QueueComputeBit), count: 1, present: true},
		})
		c.Assert(err, qt.ErrorIs, ErrMissingQueueFamily)
		c.Assert(err, qt.ErrorMatches, ".*graphics")
	})

	c.Run("missing presentation", func(c *qt.C) {
		_, err := assignQueueFamilies([]queueFamilyInfo{
			{flags: flags(vk.QueueGraphicsBit), count: 1},
		})
		c.Assert(err, qt.ErrorIs, ErrMissingQueueFamily)
		c.Assert(err, qt.ErrorMatches, ".*presentation")
	})
}

func TestUniqueFamilies(t *testing.T) {
	c := qt.New(t)
	families := uniqueFamilies(map[QueueFamily]uint32{
		QueueFamilyGraphics:     0,
		QueueFamilyPresentation: 0,
		QueueFamilyCompute:      2,
		QueueFamilyTransfer:     2,
	})
	c.Assert(families, qt.DeepEquals, []uint32{0, 2})
}
