package core

import (
	"math"
	"testing"

	vk "github.com/devblok/vulkan"
	qt "github.com/frankban/quicktest"
)

func TestChooseSurfaceFormat(t *testing.T) {
	c := qt.New(t)

	c.Run("prefers srgb", func(c *qt.C) {
		want := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}
		got, err := chooseSurfaceFormat([]vk.SurfaceFormat{
			{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
			want,
		})
		c.Assert(err, qt.IsNil)
		c.Assert(got, qt.Equals, want)
	})

	c.Run("falls back to first", func(c *qt.C) {
		first := vk.SurfaceFormat{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}
		got, err := chooseSurfaceFormat([]vk.SurfaceFormat{
			first,
			{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		})
		c.Assert(err, qt.IsNil)
		c.Assert(got, qt.Equals, first)
	})

	c.Run("none", func(c *qt.C) {
		_, err := chooseSurfaceFormat(nil)
		c.Assert(err, qt.IsNotNil)
	})
}

func TestChoosePresentMode(t *testing.T) {
	c := qt.New(t)
	c.Assert(choosePresentMode([]vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox}), qt.Equals, vk.PresentModeMailbox)
	c.Assert(choosePresentMode([]vk.PresentMode{vk.PresentModeImmediate, vk.PresentModeFifo}), qt.Equals, vk.PresentModeFifo)
	c.Assert(choosePresentMode(nil), qt.Equals, vk.PresentModeFifo)
}

func TestChooseExtent(t *testing.T) {
	c := qt.New(t)

	limits := surfaceLimits{
		min: vk.Extent2D{Width: 100, Height: 100},
		max: vk.Extent2D{Width: 1000, Height: 800},
	}

	c.Run("current extent is used as is", func(c *qt.C) {
		l := limits
		l.current = vk.Extent2D{Width: 640, Height: 480}
		c.Assert(chooseExtent(l, 1920, 1080), qt.Equals, l.current)
	})

	c.Run("window size is clamped", func(c *qt.C) {
		l := limits
		l.current = vk.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32}
		c.Assert(chooseExtent(l, 1920, 50), qt.Equals, vk.Extent2D{Width: 1000, Height: 100})
		c.Assert(chooseExtent(l, 500, 400), qt.Equals, vk.Extent2D{Width: 500, Height: 400})
	})
}

func TestChooseImageCount(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		name      string
		requested uint32
		min, max  uint32
		want      uint32
	}{
		{"within limits", 3, 2, 8, 3},
		{"below minimum", 1, 2, 8, 2},
		{"above maximum", 10, 2, 8, 8},
		{"unbounded maximum", 10, 2, 0, 10},
	}
	for _, test := range tests {
		c.Run(test.name, func(c *qt.C) {
			got := chooseImageCount(test.requested, surfaceLimits{minImages: test.min, maxImages: test.max})
			c.Assert(got, qt.Equals, test.want)
		})
	}
}
