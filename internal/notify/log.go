package notify

import (
	"context"
	"log/slog"
)

// Log writes each event to a structured logger.
type Log struct {
	Logger *slog.Logger
}

func (l Log) Notify(ctx context.Context, event Event) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "Ledger event",
		"event", event.Text(),
		"kind", string(event.Kind),
		"group_id", event.GroupID,
		"event_id", event.ID.String(),
	)
	return nil
}
