package core

import (
	"testing"

	vk "github.com/devblok/vulkan"
	qt "github.com/frankban/quicktest"
)

func TestFindMemoryType(t *testing.T) {
	c := qt.New(t)

	deviceLocal := vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	hostVisible := vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	types := []vk.MemoryPropertyFlags{
		deviceLocal,
		hostVisible,
		deviceLocal | hostVisible,
	}

	idx, err := findMemoryType(types, 0b111, deviceLocal)
	c.Assert(err, qt.IsNil)
	c.Assert(idx, qt.Equals, uint32(0))

	idx, err = findMemoryType(types, 0b111, hostVisible)
	c.Assert(err, qt.IsNil)
	c.Assert(idx, qt.Equals, uint32(1))

	c.Run("type bits filter candidates", func(c *qt.C) {
		idx, err := findMemoryType(types, 0b100, deviceLocal)
		c.Assert(err, qt.IsNil)
		c.Assert(idx, qt.Equals, uint32(2))
	})

	c.Run("no match", func(c *qt.C) {
		_, err := findMemoryType(types, 0b001, hostVisible)
		c.Assert(err, qt.ErrorIs, errNoMemoryType)
	})
}
