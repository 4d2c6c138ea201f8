// Package sysutil holds process-level bootstrap helpers shared by the CLI
// commands.
package sysutil

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ParseLevel maps a level name (debug, info, warn, error, fatal, panic;
// case-insensitive) to a zerolog level. Empty or unknown names are info.
func ParseLevel(lvl string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}

// LogOptions configures SetupLogging.
type LogOptions struct {
	Level   string
	Debug   bool // forces debug regardless of Level
	Pretty  bool // human-readable console output
	Service string
	Out     io.Writer // defaults to stderr
}

// SetupLogging configures the global zerolog logger.
func SetupLogging(opt LogOptions) {
	level := ParseLevel(opt.Level)
	if opt.Debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	out := opt.Out
	if out == nil {
		out = os.Stderr
	}
	if opt.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	ctx := zerolog.New(out).With().Timestamp()
	if opt.Service != "" {
		ctx = ctx.Str("service", opt.Service)
	}
	log.Logger = ctx.Logger()
}

// FirstNonEmpty returns the first value that is not blank, or "".
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
