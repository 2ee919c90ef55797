package config

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// NewLoggerTo builds a logger for cfg writing to w.
func NewLoggerTo(w io.Writer, cfg LogConfig) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(level)
	switch cfg.Format {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	default:
		return nil, fmt.Errorf("log format %q: %w", cfg.Format, ErrInvalidConfig)
	}
	return log, nil
}

// DiscardLogger returns a logger that drops everything. Used where no
// logger was configured.
func DiscardLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.PanicLevel)
	return log
}
