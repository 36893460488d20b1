package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

const (
	permission = 0664
)

// Builder assembles a zerolog.Logger from an output and a format.
type Builder struct {
	writer  io.Writer
	path    string
	level   string
	console bool
}

// New returns a builder writing JSON lines to stdout at info level.
func New() *Builder {
	return &Builder{writer: os.Stdout, level: "info"}
}

// FromPath appends log lines to the file at path instead of stdout.
func (b *Builder) FromPath(path string) *Builder {
	b.path = path
	return b
}

// FromWriter writes log lines to w.
func (b *Builder) FromWriter(w io.Writer) *Builder {
	b.writer = w
	return b
}

// Level sets the minimum level by name ("debug", "info", ...).
func (b *Builder) Level(level string) *Builder {
	b.level = level
	return b
}

// Console switches to the human-readable console format.
func (b *Builder) Console(on bool) *Builder {
	b.console = on
	return b
}

// Make builds the logger.
func (b *Builder) Make() (zerolog.Logger, error) {
	w := b.writer
	if b.path != "" {
		f, err := os.OpenFile(b.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return zerolog.Nop(), err
		}
		w = zerolog.SyncWriter(f)
	}
	if b.console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	level, err := zerolog.ParseLevel(b.level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}
