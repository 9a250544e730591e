package core

import (
	"testing"

	qt "github.com/frankban/quicktest"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestValidateNames(t *testing.T) {
	c := qt.New(t)

	selected, missing := ValidateNames(
		[]string{"VK_KHR_surface\x00", "VK_KHR_xcb_surface", "VK_KHR_surface", "VK_EXT_missing"},
		[]string{"VK_KHR_xcb_surface\x00", "VK_KHR_surface"},
	)
	c.Assert(selected, qt.DeepEquals, []string{"VK_KHR_surface", "VK_KHR_xcb_surface"})
	c.Assert(missing, qt.DeepEquals, []string{"VK_EXT_missing"})
}

func TestNegotiate(t *testing.T) {
	c := qt.New(t)
	supported := []string{"a", "b", "c"}

	c.Run("required and optional", func(c *qt.C) {
		logger, hook := test.NewNullLogger()
		selected, err := negotiate(logger, "extension", []string{"a", "b"}, []string{"b", "c", "d"}, supported)
		c.Assert(err, qt.IsNil)
		c.Assert(selected, qt.DeepEquals, []string{"a", "b", "c"})
		c.Assert(hook.Entries, qt.HasLen, 1)
		c.Assert(hook.LastEntry().Level, qt.Equals, log.InfoLevel)
		c.Assert(hook.LastEntry().Message, qt.Equals, "optional extension: d is not supported")
	})

	c.Run("missing required", func(c *qt.C) {
		logger, hook := test.NewNullLogger()
		_, err := negotiate(logger, "layer", []string{"a", "x"}, nil, supported)
		c.Assert(err, qt.ErrorIs, ErrMissingExtensions)
		c.Assert(err, qt.ErrorMatches, ".*: x")
		c.Assert(hook.LastEntry().Level, qt.Equals, log.ErrorLevel)
	})
}
