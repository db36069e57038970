package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"unicode/utf8"

	"github.com/mmynk/fairshare/internal/idalloc"
	"github.com/mmynk/fairshare/internal/models"
	"github.com/mmynk/fairshare/internal/notify"
	"github.com/mmynk/fairshare/internal/storage"
	"github.com/shopspring/decimal"
)

// NewExpense describes an expense to record. An empty SplitBetween splits
// the expense between every current member.
type NewExpense struct {
	GroupID      uint64
	Description  string
	Amount       decimal.Decimal
	Category     models.ExpenseCategory
	SplitBetween []string
}

// AddExpense records an expense paid by caller and returns its id.
func (c *Controller) AddExpense(ctx context.Context, caller string, in NewExpense) (uint64, error) {
	if caller == "" {
		return 0, ErrNoCaller
	}
	if n := utf8.RuneCountInString(in.Description); n == 0 || n > MaxDescriptionLength {
		return 0, ErrInvalidDescription
	}
	if !models.ValidAmount(in.Amount) {
		return 0, ErrInvalidAmount
	}
	split, err := dedupe(in.SplitBetween)
	if err != nil {
		return 0, err
	}

	var expenseID uint64
	err = c.update(ctx, func(ctx context.Context, repo storage.Repository) ([]notify.Event, error) {
		group, err := loadGroup(ctx, repo, in.GroupID)
		if err != nil {
			return nil, err
		}
		if !group.IsMember(caller) {
			return nil, ErrNotMember
		}
		if err := requireActive(group); err != nil {
			return nil, err
		}
		if group.ExpenseCount >= MaxExpensesPerGroup {
			return nil, ErrTooManyExpenses
		}

		if len(split) == 0 {
			split = slices.Clone(group.Members)
		}
		for _, m := range split {
			if !group.IsMember(m) {
				return nil, fmt.Errorf("%w: %s", ErrSplitNotMember, m)
			}
		}

		total := group.TotalExpenses.Add(in.Amount)
		if total.GreaterThan(models.MaxAmount) {
			return nil, fmt.Errorf("%w: group total would exceed 256 bits", ErrInvalidAmount)
		}

		id, err := repo.NextID(ctx, idalloc.SequenceExpense)
		if err != nil {
			return nil, fmt.Errorf("failed to allocate expense id: %w", err)
		}
		expense := &models.Expense{
			ID:           id,
			GroupID:      group.ID,
			Description:  in.Description,
			Amount:       in.Amount,
			PaidBy:       caller,
			SplitBetween: split,
			CreatedAt:    c.now().UnixMilli(),
			Category:     in.Category,
		}
		if err := repo.PutExpense(ctx, expense); err != nil {
			return nil, fmt.Errorf("failed to save expense: %w", err)
		}
		if err := repo.AddToGroupExpenses(ctx, group.ID, id); err != nil {
			return nil, fmt.Errorf("failed to index expense: %w", err)
		}

		group.TotalExpenses = total
		group.ExpenseCount++
		if err := repo.PutGroup(ctx, group); err != nil {
			return nil, fmt.Errorf("failed to save group: %w", err)
		}

		expenseID = id
		return []notify.Event{
			c.event(notify.KindExpenseAdded, group.ID, strconv.FormatUint(id, 10), in.Amount.String()),
		}, nil
	})
	if err != nil {
		return 0, err
	}

	slog.Info("Expense added", "group_id", in.GroupID, "expense_id", expenseID, "split_count", len(split))
	return expenseID, nil
}

// DeleteExpense removes an expense and takes it out of its group's totals.
// Only the payer may delete it. Settlements recorded since are kept as they
// are, and the group's status is not checked.
func (c *Controller) DeleteExpense(ctx context.Context, caller string, expenseID uint64) error {
	if caller == "" {
		return ErrNoCaller
	}

	var groupID uint64
	err := c.update(ctx, func(ctx context.Context, repo storage.Repository) ([]notify.Event, error) {
		expense, err := loadExpense(ctx, repo, expenseID)
		if err != nil {
			return nil, err
		}
		if expense.PaidBy != caller {
			return nil, ErrNotPayer
		}
		group, err := loadGroup(ctx, repo, expense.GroupID)
		if err != nil {
			return nil, err
		}

		total := group.TotalExpenses.Sub(expense.Amount)
		if total.IsNegative() || group.ExpenseCount == 0 {
			return nil, fmt.Errorf("group %d totals are inconsistent with expense %d", group.ID, expenseID)
		}

		if err := repo.DeleteExpense(ctx, expenseID); err != nil {
			return nil, fmt.Errorf("failed to delete expense: %w", err)
		}
		group.TotalExpenses = total
		group.ExpenseCount--
		if err := repo.PutGroup(ctx, group); err != nil {
			return nil, fmt.Errorf("failed to save group: %w", err)
		}

		groupID = group.ID
		return []notify.Event{
			c.event(notify.KindExpenseDeleted, group.ID, strconv.FormatUint(expenseID, 10)),
		}, nil
	})
	if err != nil {
		return err
	}

	slog.Info("Expense deleted", "group_id", groupID, "expense_id", expenseID)
	return nil
}
