package core

import (
	"testing"

	qt "github.com/frankban/quicktest"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestEngineDestroyReleasesEverythingOnce(t *testing.T) {
	c := qt.New(t)
	logger, hook := test.NewNullLogger()

	e := NewEngine(DefaultConfiguration(), logger)

	var released []string
	e.queue.Push(func() { released = append(released, "instance") })
	e.queue.Push(func() { released = append(released, "device") })
	h := e.queue.Push(func() { released = append(released, "framebuffers") })
	e.queue.Remove(h)
	e.queue.Push(func() { released = append(released, "pipeline") })
	c.Assert(e.Pending(), qt.Equals, 3)

	e.Destroy()
	c.Assert(released, qt.DeepEquals, []string{"pipeline", "device", "instance"})
	c.Assert(e.Pending(), qt.Equals, 0)
	c.Assert(hook.LastEntry().Level, qt.Equals, log.InfoLevel)
	c.Assert(hook.LastEntry().Data["deleters"], qt.Equals, 3)

	hook.Reset()
	e.Destroy()
	c.Assert(released, qt.HasLen, 3)
	c.Assert(hook.Entries, qt.HasLen, 0)
}

func TestReleaseFramebuffersForgetsReusedHandle(t *testing.T) {
	c := qt.New(t)
	logger, _ := test.NewNullLogger()
	e := NewEngine(DefaultConfiguration(), logger)

	var released []string
	e.framebuffersDeleter = e.queue.Push(func() { released = append(released, "framebuffers") })
	e.framebuffersRegistered = true

	e.releaseFramebuffers()
	c.Assert(e.framebuffersRegistered, qt.IsFalse)

	// the next push, like a recreated swapchain, gets the freed handle back
	swapchain := e.queue.Push(func() { released = append(released, "swapchain") })
	c.Assert(swapchain, qt.Equals, e.framebuffersDeleter)

	e.releaseFramebuffers()
	c.Assert(e.Pending(), qt.Equals, 1)

	e.Destroy()
	c.Assert(released, qt.DeepEquals, []string{"swapchain"})
}
