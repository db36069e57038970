package sqlstore

import (
	"context"
	"fmt"

	"github.com/mmynk/fairshare/internal/models"
	"github.com/shopspring/decimal"
)

// AppendSettlement persists a settlement at the end of its group's history.
func (r *repo) AppendSettlement(ctx context.Context, settlement *models.Settlement) error {
	var seq int64
	err := r.queryRow(ctx,
		"SELECT COALESCE(MAX(seq), 0) + 1 FROM settlements WHERE group_id = ?", settlement.GroupID,
	).Scan(&seq)
	if err != nil {
		return fmt.Errorf("failed to sequence settlement: %w", err)
	}

	_, err = r.exec(ctx,
		`INSERT INTO settlements (id, group_id, seq, from_member, to_member, amount, settled_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		settlement.ID, settlement.GroupID, seq, settlement.From, settlement.To,
		settlement.Amount.String(), settlement.SettledAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert settlement: %w", err)
	}
	return nil
}

// GroupSettlements retrieves a group's settlements in insertion order.
func (r *repo) GroupSettlements(ctx context.Context, groupID uint64) ([]*models.Settlement, error) {
	rows, err := r.query(ctx,
		`SELECT id, group_id, from_member, to_member, amount, settled_at
		 FROM settlements WHERE group_id = ? ORDER BY seq`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements by group: %w", err)
	}
	defer rows.Close()

	settlements := []*models.Settlement{}
	for rows.Next() {
		settlement := &models.Settlement{}
		var amount string

		if err := rows.Scan(&settlement.ID, &settlement.GroupID, &settlement.From, &settlement.To,
			&amount, &settlement.SettledAt); err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		if settlement.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("failed to parse amount of settlement %d: %w", settlement.ID, err)
		}

		settlements = append(settlements, settlement)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlements: %w", err)
	}

	return settlements, nil
}
