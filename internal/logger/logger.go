// Package logger builds the process-wide slog logger.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	slogmulti "github.com/samber/slog-multi"
	slogzerolog "github.com/samber/slog-zerolog/v2"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

type Options struct {
	Level  string
	Format string
	// Path, when set, receives a JSON copy of every record.
	Path string
	// Out defaults to stderr.
	Out io.Writer
}

// New returns the logger and a func that closes the log file, if any.
func New(opts Options) (*slog.Logger, func() error, error) {
	level := slog.LevelInfo
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToUpper(opts.Level))); err != nil {
			return nil, nil, fmt.Errorf("log level: %w", err)
		}
	}
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	var h slog.Handler
	switch strings.ToLower(opts.Format) {
	case "", FormatConsole:
		zl := zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}).
			With().
			Timestamp().
			Logger()
		h = slogzerolog.Option{Level: level, Logger: &zl}.NewZerologHandler()
	case FormatJSON:
		h = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	default:
		return nil, nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	closer := func() error { return nil }
	if opts.Path != "" {
		f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		h = slogmulti.Fanout(h, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
		closer = f.Close
	}

	return slog.New(h), closer, nil
}
