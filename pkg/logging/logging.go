// Package logging provides component-scoped logrus loggers shared by the
// playground packages.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu   sync.Mutex
	base = newBase()
)

func newBase() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})
	return logger
}

// NewLogger returns an entry tagged with the given component name, e.g.
// "grove-playground.autosave".
func NewLogger(component string) *logrus.Entry {
	mu.Lock()
	defer mu.Unlock()
	return base.WithField("component", component)
}

// Base returns the process-wide logger.
func Base() *logrus.Logger {
	mu.Lock()
	defer mu.Unlock()
	return base
}

// SetLevel parses level ("debug", "info", "warn", ...) and applies it. Unknown
// levels fall back to warn.
func SetLevel(level string) {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.WarnLevel
	}
	Base().SetLevel(lvl)
}

// SetOutput redirects all component loggers.
func SetOutput(w io.Writer) {
	Base().SetOutput(w)
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}
