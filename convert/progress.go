package convert

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// rowReporter logs export progress at debug level.
type rowReporter struct {
	logger *slog.Logger
	total  uint32
	done   atomic.Uint32
}

func newRowReporter(logger *slog.Logger, rows uint32) *rowReporter {
	return &rowReporter{logger: logger, total: rows}
}

func (r *rowReporter) RowExported(row uint32, tokens int) {
	done := r.done.Add(1)
	if !r.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	r.logger.Debug("row exported", "row", row, "platforms", tokens, "done", done, "rows", r.total)
}
