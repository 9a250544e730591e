package main

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/devblok/pyx/core"
)

var (
	configPath string
	envFiles   []string

	configuration core.Configuration
	logger        *log.Logger
)

// rootCmd runs the renderer when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "pyx",
	Short:         "Pyx Vulkan renderer",
	Long:          `Opens a window and renders through Vulkan until Escape, Tab or the window is closed.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := core.LoadConfiguration(configPath, envFiles...)
		if err != nil {
			return err
		}
		l, err := core.NewLogger(cfg.Logging)
		if err != nil {
			return err
		}
		configuration = cfg
		logger = l
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(configuration, logger)
	},
}

// Execute runs the command line, any returned error is fatal
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if logger == nil {
			logger = log.StandardLogger()
		}
		logger.Fatal(err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "pyx.yml", "Configuration file path")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env", nil, "dotenv files loaded before reading the environment")

	rootCmd.AddCommand(runCmd, devicesCmd, packCmd)
}
