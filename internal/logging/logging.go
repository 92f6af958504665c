package logging

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"

	"taskboard/backend/internal/config"
)

// New builds the process logger. Production defaults to JSON so log shipping
// can index the structured fields; everything else gets the text formatter.
func New(cfg *config.Config) *log.Logger {
	return NewWithOutput(cfg, os.Stdout)
}

func NewWithOutput(cfg *config.Config, out io.Writer) *log.Logger {
	logger := log.New()
	logger.SetOutput(out)

	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = log.InfoLevel
	}
	logger.SetLevel(level)

	format := cfg.Log.Format
	if format == "" {
		if cfg.IsProduction() {
			format = "json"
		} else {
			format = "text"
		}
	}

	if format == "json" {
		logger.SetFormatter(&log.JSONFormatter{})
	} else {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	if err != nil {
		logger.WithField("level", cfg.Log.Level).Warn("unknown log level, using info")
	}

	return logger
}
