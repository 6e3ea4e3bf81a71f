package logger

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger wraps a logrus entry so call sites can chain fields directly.
type Logger struct {
	*logrus.Entry
}

// New builds the process logger. Local env = pretty console; others = JSON.
func New() *Logger {
	base := logrus.New()

	env := os.Getenv("ENVIRONMENT")
	if env == "" || env == "local" {
		base.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339Nano,
		})
	} else {
		base.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	}

	base.SetOutput(os.Stderr)

	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		base.SetLevel(logrus.DebugLevel)
	case "warn":
		base.SetLevel(logrus.WarnLevel)
	case "error":
		base.SetLevel(logrus.ErrorLevel)
	default:
		base.SetLevel(logrus.InfoLevel)
	}

	return &Logger{Entry: logrus.NewEntry(base)}
}

// WithComponent tags log lines with the subsystem that emitted them.
func (l *Logger) WithComponent(name string) *logrus.Entry {
	return l.WithField("component", name)
}
