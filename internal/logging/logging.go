// Package logging builds the orchestrator's base zerolog.Logger. The
// teacher's own log package (imported everywhere as
// "github.com/compose-network/publisher/log" and called as
// log.New(level, pretty)) is not part of the retrieval pack, but every
// call site shows its two-argument constructor shape; this package
// reconstructs it directly against zerolog.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the root logger. level is parsed with zerolog's own level
// strings ("debug", "info", "warn", "error", ...); an invalid level
// falls back to info rather than failing startup. pretty switches
// between zerolog's human-readable console writer and raw JSON, mirroring
// log.New(level, pretty) call sites such as
// publisher-leader-app/main.go's `log.New(cfg.Log.Level, cfg.Log.Pretty)`.
func New(level string, pretty bool) zerolog.Logger {
	parsedLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		parsedLevel = zerolog.InfoLevel
	}

	var writer io.Writer = os.Stderr
	if pretty {
		writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	return zerolog.New(writer).
		Level(parsedLevel).
		With().
		Timestamp().
		Logger()
}
