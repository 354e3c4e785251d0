package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"HeapDB/config"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Logger is the process-wide logger. Components take an entry from WithComponent
// so every line carries the component name.
var Logger = newDefault()

func newDefault() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})
	return l
}

// Init applies cfg to Logger. A log file is opened in append mode and created if needed.
func Init(cfg config.LogConfig) error {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return err
	}
	Logger.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "json":
		Logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		Logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05.000",
		})
	}

	if cfg.File == "" {
		Logger.SetOutput(os.Stderr)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
		return errors.Wrapf(err, "create log dir for %s", cfg.File)
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return errors.Wrapf(err, "open log file %s", cfg.File)
	}
	Logger.SetOutput(f)
	return nil
}

func parseLevel(level string) (logrus.Level, error) {
	if level == "" {
		return logrus.InfoLevel, nil
	}
	l, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		return logrus.InfoLevel, errors.Wrapf(err, "log level %q", level)
	}
	return l, nil
}

// WithComponent returns an entry tagged with the component name.
func WithComponent(name string) *logrus.Entry {
	return Logger.WithField("component", name)
}

// Discard silences Logger, used by tests and CLI tools that print their own output.
func Discard() {
	Logger.SetOutput(io.Discard)
}
