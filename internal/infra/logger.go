package infra

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger aliases zerolog.Logger so internal packages share one logging
// contract without importing the module everywhere.
type Logger = zerolog.Logger

// NewLogger builds the process logger. Development runs get human-readable
// console output at debug level; everything else emits structured JSON at
// info level. The service name tags every line.
func NewLogger(appEnv, service string) zerolog.Logger {
	var out io.Writer = os.Stdout
	level := zerolog.InfoLevel
	if appEnv == "development" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		level = zerolog.DebugLevel
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", service).
		Logger()
}
