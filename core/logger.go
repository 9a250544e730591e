package core

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
)

// NewLogger creates the engine logger writing to stdout.
func NewLogger(cfg LoggingConfiguration) (*log.Logger, error) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("logging level: %w", err)
	}

	logger := log.New()
	logger.SetOutput(os.Stdout)
	logger.SetLevel(level)
	logger.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05 -0700",
	})
	return logger, nil
}
