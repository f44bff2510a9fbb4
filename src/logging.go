package irblaster

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// NewLogger is the root logger.  Components take it with a prefix of
// their own, e.g. logger.WithPrefix("rx").
func NewLogger(w io.Writer, level string) (*log.Logger, error) {
	var lvl, err = log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}

	var logger = log.NewWithOptions(w, log.Options{ //nolint:exhaustruct
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})

	return logger, nil
}
