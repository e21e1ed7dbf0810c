// Package logging настраивает структурное логирование рантайма.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New создает логгер с указанным уровнем, пишущий в w
func New(level string, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return zerolog.New(w).Level(parseLevel(level)).With().Timestamp().Logger()
}

// Nop возвращает логгер, отбрасывающий все записи (для тестов)
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

// ForComponent возвращает логгер с полем component
func ForComponent(base zerolog.Logger, id string) zerolog.Logger {
	return base.With().Str("component", id).Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
