package main

import (
	"fmt"
	"os"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/devblok/pyx/core"
	"github.com/devblok/pyx/core/deletion"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Print the physical devices Vulkan reports as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		var queue deletion.Queue
		defer queue.Flush()

		instance, err := core.NewInstance(configuration.Instance, nil, nil, &queue, logger)
		if err != nil {
			return err
		}

		out, err := sonic.ConfigDefault.MarshalIndent(instance.PhysicalDevicesInfo(), "", "  ")
		if err != nil {
			return fmt.Errorf("sonic.MarshalIndent(): %w", err)
		}
		_, err = fmt.Fprintln(os.Stdout, string(out))
		return err
	},
}
