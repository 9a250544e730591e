package core

import (
	"testing"

	vk "github.com/devblok/vulkan"
	qt "github.com/frankban/quicktest"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestReportValidation(t *testing.T) {
	c := qt.New(t)
	logger, hook := test.NewNullLogger()
	logger.SetLevel(log.DebugLevel)
	instance := &Instance{logger: logger}

	var callback vk.DebugReportCallbackFunc = instance.reportValidation

	tests := []struct {
		name  string
		flags vk.DebugReportFlagBits
		level log.Level
	}{
		{"error", vk.DebugReportErrorBit, log.ErrorLevel},
		{"warning", vk.DebugReportWarningBit, log.WarnLevel},
		{"performance warning", vk.DebugReportPerformanceWarningBit, log.WarnLevel},
		{"information", vk.DebugReportInformationBit, log.InfoLevel},
		{"debug", vk.DebugReportDebugBit, log.DebugLevel},
	}
	for _, test := range tests {
		c.Run(test.name, func(c *qt.C) {
			hook.Reset()
			ret := callback(vk.DebugReportFlags(test.flags), vk.DebugReportObjectTypeUnknown,
				0, 0, 0, "Validation", "message", nil)
			c.Assert(ret, qt.Equals, vk.Bool32(vk.False))

			entry := hook.LastEntry()
			c.Assert(entry, qt.IsNotNil)
			c.Assert(entry.Level, qt.Equals, test.level)
			c.Assert(entry.Message, qt.Equals, validationPrefix+" message")
			c.Assert(entry.Data["layer"], qt.Equals, "Validation")
		})
	}
}
