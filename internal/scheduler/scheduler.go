// Package scheduler delivers deferred settlement triggers.
//
// Delivery is at-least-once and may be late: handlers must tolerate replays
// and must not assume they run inside the trigger's window.
package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Trigger asks for a group to be settled between NotBefore and NotAfter.
type Trigger struct {
	GroupID   uint64
	NotBefore time.Time
	NotAfter  time.Time
}

// Handler is invoked for each due trigger.
type Handler func(ctx context.Context, groupID uint64) error

// Scheduler registers triggers and delivers them once due.
type Scheduler interface {
	// Schedule registers t. A trigger whose NotBefore has passed is delivered
	// as soon as Run is active.
	Schedule(ctx context.Context, t Trigger) error

	// Run delivers due triggers to h until ctx is cancelled.
	Run(ctx context.Context, h Handler) error
}

func deliver(ctx context.Context, h Handler, t Trigger, now time.Time) error {
	if !t.NotAfter.IsZero() && now.After(t.NotAfter) {
		slog.Warn("Settlement trigger delivered late",
			"group_id", t.GroupID,
			"not_after", t.NotAfter,
			"late_by", now.Sub(t.NotAfter).String(),
		)
	}
	if err := h(ctx, t.GroupID); err != nil {
		slog.Error("Settlement trigger failed", "group_id", t.GroupID, "error", err)
		return err
	}
	slog.Info("Settlement trigger delivered", "group_id", t.GroupID)
	return nil
}
