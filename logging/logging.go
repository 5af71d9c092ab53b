// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/arunvm123/carrental/config"
)

// New builds a logger from the log section of the config. Unknown formats
// fall back to JSON.
func New(cfg config.Log, service string) (*logrus.Entry, error) {
	return NewWithOutput(cfg, service, os.Stdout)
}

func NewWithOutput(cfg config.Log, service string, out io.Writer) (*logrus.Entry, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(level)
	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	return logger.WithField("service", service), nil
}
