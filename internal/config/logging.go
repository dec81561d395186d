package config

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the process-wide structured logger.
// LOG_LEVEL accepts the usual logrus level names; production gets JSON output.
func NewLogger(nodeEnv string) *logrus.Logger {
	logg := logrus.New()
	logg.SetOutput(os.Stdout)

	if nodeEnv == "production" {
		logg.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logg.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		level = logrus.InfoLevel
	}
	logg.SetLevel(level)

	return logg
}
