package sqlstore

import (
	"context"
	"fmt"

	"github.com/mmynk/fairshare/internal/idalloc"
)

func (r *repo) NextID(ctx context.Context, seq idalloc.Sequence) (uint64, error) {
	var id int64
	err := r.queryRow(ctx,
		`INSERT INTO counters (name, value) VALUES (?, 1)
		 ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
		 RETURNING value`,
		string(seq),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate %s id: %w", seq, err)
	}
	return uint64(id), nil
}
