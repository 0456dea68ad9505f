// Package logging builds the process-wide slog logger from configuration.
//
// Messages follow the "[Component] message" convention with key/value
// attributes, e.g.
//
//	slog.Info("[Session] transition", "from", "pending", "to", "authenticated")
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/joeycumines/storefront/internal/config"
)

// Options describe a logger.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means warn.
	Level string
	// Format is text or json. Empty means text.
	Format string
	// File, when set, receives the log instead of the fallback writer.
	File string
	// MaxSizeMB and MaxFiles configure rotation of File.
	MaxSizeMB int
	MaxFiles  int
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning", "":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s", s)
	}
}

// New builds a logger. Output goes to the rotating File when set, otherwise
// to fallback. The returned closer releases the file and is never nil.
func New(opts Options, fallback io.Writer) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	var (
		out    = fallback
		closer io.Closer = nopCloser{}
	)
	if opts.File != "" {
		maxSize := opts.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 10
		}
		w, err := NewRotatingFileWriter(opts.File, maxSize, opts.MaxFiles)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file %s: %w", opts.File, err)
		}
		out, closer = w, w
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(opts.Format) {
	case "json":
		handler = slog.NewJSONHandler(out, handlerOpts)
	case "text", "":
		handler = slog.NewTextHandler(out, handlerOpts)
	default:
		_ = closer.Close()
		return nil, nil, fmt.Errorf("invalid log format: %s", opts.Format)
	}
	return slog.New(handler), closer, nil
}

// OptionsFromConfig resolves logging options from configuration. Non-empty
// flag values take precedence.
func OptionsFromConfig(cfg *config.Config, flagLevel, flagFile string) Options {
	schema := config.DefaultSchema()
	opts := Options{
		Level:     flagLevel,
		Format:    schema.Resolve(cfg, config.KeyLogFormat),
		File:      flagFile,
		MaxSizeMB: schema.ResolveInt(cfg, config.KeyLogMaxSizeMB),
		MaxFiles:  schema.ResolveInt(cfg, config.KeyLogMaxFiles),
	}
	if opts.Level == "" {
		opts.Level = schema.Resolve(cfg, config.KeyLogLevel)
	}
	if opts.File == "" {
		opts.File = schema.Resolve(cfg, config.KeyLogFile)
	}
	return opts
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
