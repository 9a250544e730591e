package core_test

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/pyx/core"
)

func TestTime(t *testing.T) {
	c := qt.New(t)

	clock := core.NewTime(core.TimeConfiguration{FramesPerSecond: 1000})
	defer clock.Stop()
	c.Assert(clock.Fps(), qt.Equals, 1000)

	select {
	case <-clock.FpsTicker().C:
	case <-time.After(time.Second):
		c.Fatal("ticker did not fire")
	}

	c.Assert(clock.Tick(), qt.Equals, uint64(1))
	c.Assert(clock.Tick(), qt.Equals, uint64(2))
}

func TestTimeUnlimited(t *testing.T) {
	c := qt.New(t)

	clock := core.NewTime(core.TimeConfiguration{FramesPerSecond: 0})
	defer clock.Stop()

	select {
	case <-clock.FpsTicker().C:
	case <-time.After(time.Second):
		c.Fatal("unlimited ticker did not fire")
	}
}
