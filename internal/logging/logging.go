// Package logging builds the process logger: a console writer plus an
// optional append-only log file.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Options controls logger construction.
type Options struct {
	Out     io.Writer // console destination, os.Stdout if nil
	JSON    bool
	Verbose bool
	Quiet   bool
	File    string // append-only log file, always written at debug level
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New creates a logger for opts. The returned closer releases the log file.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	// Set output format
	var console io.Writer
	if opts.JSON {
		console = out
	} else {
		output := zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
		output.FormatLevel = func(i interface{}) string {
			if s, ok := i.(string); ok {
				return strings.ToUpper(s)
			}
			return ""
		}
		console = output
	}

	consoleLevel := Level(opts)
	writers := []io.Writer{
		&zerolog.FilteredLevelWriter{
			Writer: zerolog.LevelWriterAdapter{Writer: console},
			Level:  consoleLevel,
		},
	}
	minLevel := consoleLevel
	var closer io.Closer = nopCloser{}

	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // path is operator supplied
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("opening log file: %w", err)
		}
		writers = append(writers, f)
		minLevel = zerolog.DebugLevel
		closer = f
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(minLevel).
		With().Timestamp().
		Logger()

	return logger, closer, nil
}

// Level returns the console level selected by opts.
func Level(opts Options) zerolog.Level {
	switch {
	case opts.Quiet:
		return zerolog.ErrorLevel
	case opts.Verbose:
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}
