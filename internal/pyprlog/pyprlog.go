// Package pyprlog builds the daemon's zerolog loggers.
//
// The teacher (Nomadcxx-sysc-walls cmd/daemon/main.go's setupLogging) wrote
// stdlib log output to stderr, switching to a logfile when daemonized. This
// keeps that same two-mode split but on a structured zerolog root logger, so
// that per-plugin sub-loggers (internal/backendproxy, internal/pluginhost)
// can attach a "plugin" field instead of teacher's ad hoc %s prefixes.
package pyprlog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Options controls root-logger construction.
type Options struct {
	Debug    bool
	LogFile  string // when set, logs go here instead of stderr (daemonized mode)
	NoColor  bool
}

// New builds the root logger. Mirrors the teacher's setupLogging: console
// writer for interactive stderr, plain JSON lines when redirected to a file.
func New(opts Options) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if opts.Debug {
		level = zerolog.DebugLevel
	}

	var w io.Writer
	if opts.LogFile != "" {
		f, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Logger{}, err
		}
		w = f
	} else {
		w = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.Kitchen,
			NoColor:    opts.NoColor,
		}
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}

// ForPlugin returns a sub-logger carrying the plugin's name, the mechanism
// spec §4.4 calls "per-plugin logger".
func ForPlugin(root zerolog.Logger, name string) zerolog.Logger {
	return root.With().Str("plugin", name).Logger()
}
