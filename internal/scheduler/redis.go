package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis keeps triggers in a sorted set scored by NotBefore (unix ms) and
// polls it for due entries. Entries are claimed with ZREM so concurrent
// pollers deliver each one once; a failed delivery is re-queued.
type Redis struct {
	client   *redis.Client
	key      string
	interval time.Duration
}

// NewRedis returns a scheduler storing triggers under key and polling every
// interval.
func NewRedis(client *redis.Client, key string, interval time.Duration) *Redis {
	return &Redis{client: client, key: key, interval: interval}
}

func (r *Redis) Schedule(ctx context.Context, t Trigger) error {
	z := redis.Z{
		Score:  float64(t.NotBefore.UnixMilli()),
		Member: encodeMember(t),
	}
	if err := r.client.ZAdd(ctx, r.key, z).Err(); err != nil {
		return fmt.Errorf("failed to schedule group %d: %w", t.GroupID, err)
	}
	return nil
}

func (r *Redis) Run(ctx context.Context, h Handler) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if err := r.poll(ctx, h); err != nil && ctx.Err() == nil {
			slog.Error("Failed to poll settlement triggers", "key", r.key, "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (r *Redis) poll(ctx context.Context, h Handler) error {
	now := time.Now()
	members, err := r.client.ZRangeByScore(ctx, r.key, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to list due triggers: %w", err)
	}

	for _, member := range members {
		claimed, err := r.client.ZRem(ctx, r.key, member).Result()
		if err != nil {
			return fmt.Errorf("failed to claim trigger %q: %w", member, err)
		}
		if claimed == 0 {
			continue
		}

		t, err := decodeMember(member)
		if err != nil {
			slog.Warn("Dropping malformed settlement trigger", "member", member, "error", err)
			continue
		}
		if err := deliver(ctx, h, t, time.Now()); err != nil {
			// Re-queue even when Run is stopping; the claim already removed it.
			t.NotBefore = time.Now().Add(r.interval)
			if err := r.Schedule(context.WithoutCancel(ctx), t); err != nil {
				return err
			}
		}
	}
	return nil
}

// encodeMember renders a trigger as "groupID:notAfterMillis".
func encodeMember(t Trigger) string {
	var notAfter int64
	if !t.NotAfter.IsZero() {
		notAfter = t.NotAfter.UnixMilli()
	}
	return strconv.FormatUint(t.GroupID, 10) + ":" + strconv.FormatInt(notAfter, 10)
}

func decodeMember(member string) (Trigger, error) {
	groupPart, notAfterPart, ok := strings.Cut(member, ":")
	if !ok {
		return Trigger{}, fmt.Errorf("missing separator")
	}
	groupID, err := strconv.ParseUint(groupPart, 10, 64)
	if err != nil {
		return Trigger{}, fmt.Errorf("invalid group id: %w", err)
	}
	notAfter, err := strconv.ParseInt(notAfterPart, 10, 64)
	if err != nil {
		return Trigger{}, fmt.Errorf("invalid deadline: %w", err)
	}

	t := Trigger{GroupID: groupID}
	if notAfter > 0 {
		t.NotAfter = time.UnixMilli(notAfter)
	}
	return t, nil
}
