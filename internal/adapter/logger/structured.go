package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// SetLoggerToStructured configures the global logger. Diagnostics go to
// stderr so they do not interleave with operator output on stdout; when
// filePath is set they are also appended there.
func SetLoggerToStructured(level logrus.Level, filePath string, json bool) {
	if json {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	logrus.SetLevel(level)

	if filePath == "" {
		logrus.SetOutput(os.Stderr)
		return
	}
	if file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600); err == nil {
		logrus.SetOutput(io.MultiWriter(os.Stderr, file))
	} else {
		logrus.SetOutput(os.Stderr)
		logrus.WithError(err).Error("Could not create file for logging")
	}
}

// ParseLevel parses name, falling back to warn.
func ParseLevel(name string) logrus.Level {
	level, err := logrus.ParseLevel(name)
	if err != nil {
		return logrus.WarnLevel
	}
	return level
}
