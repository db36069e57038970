package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmynk/fairshare/internal/idalloc"
	"github.com/mmynk/fairshare/internal/models"
	"github.com/mmynk/fairshare/internal/notify"
	"github.com/mmynk/fairshare/internal/storage"
	"github.com/shopspring/decimal"
)

// SettleDebt transfers amount from caller to another member of an Active
// group and records the settlement. The amount is not checked against any
// computed balance; over- and under-payments are netted on the next read.
func (c *Controller) SettleDebt(ctx context.Context, caller string, groupID uint64, to string, amount decimal.Decimal) (uint64, error) {
	if caller == "" {
		return 0, ErrNoCaller
	}
	if to == "" {
		return 0, ErrInvalidMember
	}
	if caller == to {
		return 0, ErrSelfSettlement
	}
	if !models.ValidAmount(amount) {
		return 0, ErrInvalidAmount
	}

	var settlementID uint64
	err := c.update(ctx, func(ctx context.Context, repo storage.Repository) ([]notify.Event, error) {
		group, err := loadGroup(ctx, repo, groupID)
		if err != nil {
			return nil, err
		}
		if !group.IsMember(caller) {
			return nil, ErrNotMember
		}
		if !group.IsMember(to) {
			return nil, ErrRecipientNotMember
		}
		if err := requireActive(group); err != nil {
			return nil, err
		}

		if err := c.transferer.Transfer(ctx, groupID, caller, to, amount); err != nil {
			return nil, fmt.Errorf("failed to transfer: %w", err)
		}

		id, err := repo.NextID(ctx, idalloc.SequenceSettlement)
		if err != nil {
			return nil, fmt.Errorf("failed to allocate settlement id: %w", err)
		}
		settlement := &models.Settlement{
			ID:        id,
			GroupID:   groupID,
			From:      caller,
			To:        to,
			Amount:    amount,
			SettledAt: c.now().UnixMilli(),
		}
		if err := repo.AppendSettlement(ctx, settlement); err != nil {
			return nil, fmt.Errorf("failed to save settlement: %w", err)
		}

		settlementID = id
		return []notify.Event{
			c.event(notify.KindDebtSettled, groupID, caller, to, amount.String()),
		}, nil
	})
	if err != nil {
		return 0, err
	}

	slog.Info("Debt settled", "group_id", groupID, "settlement_id", settlementID, "from", caller, "to", to)
	return settlementID, nil
}
