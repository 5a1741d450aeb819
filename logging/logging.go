// Package logging configures the structured logger every component of the
// core logs through, per spec §4.9. It is built on logrus — the level
// names spec's config documents (Trace/Debug/Info/Warn/Error) are exactly
// logrus's own level set, which is why logrus was picked over the other
// logging libraries in the pack (glog, charmbracelet/log): the config
// format and the library's vocabulary already agree.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/apoloval/flightvars/config"
)

// New builds a logger from cfg. A level that fails to parse falls back to
// Info and is logged loudly against the returned logger itself, matching
// spec §7's "fall back to defaults for the section" rule. A file that
// cannot be opened falls back to stderr — a config-section failure, never
// a fatal one.
func New(cfg config.LoggingConfig) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(formatterFor(cfg.Pattern))

	lvl := config.ParseLevel(cfg.Level, logger)
	logger.SetLevel(lvl)

	var out io.Writer = os.Stderr
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logger.WithError(err).Warnf("cannot open log file %q, falling back to stderr", cfg.File)
		} else {
			out = f
		}
	}
	logger.SetOutput(out)
	return logger
}

// formatterFor maps the config's pattern string onto logrus's TextFormatter
// knobs. The source format is a free-form template; only the "%timestamp%"
// placeholder is recognized, and its presence decides whether full
// timestamps are forced. The timestamp format itself is fixed, and every
// other detail keeps logrus's default formatting.
func formatterFor(pattern string) logrus.Formatter {
	return &logrus.TextFormatter{
		FullTimestamp:   strings.Contains(pattern, "%timestamp%"),
		TimestampFormat: "2006-01-02 15:04:05.000",
		DisableColors:   true,
	}
}

// For scopes a logger to a single component, the structured-field idiom
// used throughout the core (component=listener, component=fsuipc, ...).
func For(logger *logrus.Logger, component string) *logrus.Entry {
	return logger.WithField("component", component)
}
