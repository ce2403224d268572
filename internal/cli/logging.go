package cli

import (
	"io"
	"log/slog"
	"time"

	charmlog "github.com/charmbracelet/log"
)

// newLogger returns an slog.Logger backed by a charm handler writing to w,
// and the handler itself for libraries that take a printf-style logger.
func newLogger(w io.Writer, verbose bool) (*slog.Logger, *charmlog.Logger) {
	level := charmlog.InfoLevel
	if verbose {
		level = charmlog.DebugLevel
	}
	handler := charmlog.NewWithOptions(w, charmlog.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          "setfield",
	})
	return slog.New(handler), handler
}
