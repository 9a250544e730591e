package core

import (
	"time"
)

// NewTime creates a new time service
func NewTime(cfg TimeConfiguration) *Time {
	return &Time{
		fps:       cfg.FramesPerSecond,
		fpsTicker: time.NewTicker(frameInterval(cfg.FramesPerSecond)),
	}
}

func frameInterval(fps int) time.Duration {
	if fps <= 0 {
		return time.Nanosecond
	}
	return time.Second / time.Duration(fps)
}

// Time paces the main loop
type Time struct {
	fps       int
	fpsTicker *time.Ticker
	frames    uint64
}

// Fps gets the set frames per second
func (t *Time) Fps() int {
	return t.fps
}

// FpsTicker gets the initialized fps ticker
func (t *Time) FpsTicker() *time.Ticker {
	return t.fpsTicker
}

// Tick counts a rendered frame and returns the total so far
func (t *Time) Tick() uint64 {
	t.frames++
	return t.frames
}

// Stop releases the ticker
func (t *Time) Stop() {
	t.fpsTicker.Stop()
}
