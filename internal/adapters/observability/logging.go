package observability

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns a zerolog Logger writing to stdout.
// APP_ENV=dev (or development) uses a human-friendly console writer.
// An unknown level falls back to info.
func NewLogger(env, level string) zerolog.Logger {
	return newLogger(os.Stdout, env, level)
}

func newLogger(out io.Writer, env, level string) zerolog.Logger {
	if env == "dev" || env == "development" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Str("app", "tripadvisor_hotels").Logger()
}
