package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmynk/fairshare/internal/calculator"
	"github.com/mmynk/fairshare/internal/models"
	"github.com/mmynk/fairshare/internal/storage"
)

// Group returns a group by id.
func (c *Controller) Group(ctx context.Context, groupID uint64) (*models.Group, error) {
	var group *models.Group
	err := c.view(ctx, func(ctx context.Context, repo storage.Repository) error {
		var err error
		group, err = loadGroup(ctx, repo, groupID)
		return err
	})
	return group, err
}

// UserGroups returns the groups member belongs to.
func (c *Controller) UserGroups(ctx context.Context, member string) ([]*models.Group, error) {
	var groups []*models.Group
	err := c.view(ctx, func(ctx context.Context, repo storage.Repository) error {
		ids, err := repo.UserGroupIDs(ctx, member)
		if err != nil {
			return fmt.Errorf("failed to load groups of %s: %w", member, err)
		}
		groups = make([]*models.Group, 0, len(ids))
		for _, id := range ids {
			group, err := repo.GetGroup(ctx, id)
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to load group %d: %w", id, err)
			}
			groups = append(groups, group)
		}
		return nil
	})
	return groups, err
}

// IsMember reports whether member belongs to the group. A missing group has
// no members.
func (c *Controller) IsMember(ctx context.Context, groupID uint64, member string) (bool, error) {
	group, err := c.Group(ctx, groupID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return group.IsMember(member), nil
}

// GroupExpenses returns the group's expenses in insertion order.
func (c *Controller) GroupExpenses(ctx context.Context, groupID uint64) ([]*models.Expense, error) {
	var expenses []*models.Expense
	err := c.view(ctx, func(ctx context.Context, repo storage.Repository) error {
		if _, err := loadGroup(ctx, repo, groupID); err != nil {
			return err
		}
		var err error
		expenses, err = repo.GroupExpenses(ctx, groupID)
		if err != nil {
			return fmt.Errorf("failed to load expenses of group %d: %w", groupID, err)
		}
		return nil
	})
	return expenses, err
}

// Expense returns an expense by id.
func (c *Controller) Expense(ctx context.Context, expenseID uint64) (*models.Expense, error) {
	var expense *models.Expense
	err := c.view(ctx, func(ctx context.Context, repo storage.Repository) error {
		var err error
		expense, err = loadExpense(ctx, repo, expenseID)
		return err
	})
	return expense, err
}

// Settlements returns the group's settlements in the order they were made.
func (c *Controller) Settlements(ctx context.Context, groupID uint64) ([]*models.Settlement, error) {
	var settlements []*models.Settlement
	err := c.view(ctx, func(ctx context.Context, repo storage.Repository) error {
		if _, err := loadGroup(ctx, repo, groupID); err != nil {
			return err
		}
		var err error
		settlements, err = repo.GroupSettlements(ctx, groupID)
		if err != nil {
			return fmt.Errorf("failed to load settlements of group %d: %w", groupID, err)
		}
		return nil
	})
	return settlements, err
}

// Snapshot is a group together with its full history and current balances.
type Snapshot struct {
	Group       *models.Group
	Expenses    []*models.Expense
	Settlements []*models.Settlement
	Balances    []models.Balance
}

// Snapshot reads a group and its history in one unit and nets its balances.
func (c *Controller) Snapshot(ctx context.Context, groupID uint64) (*Snapshot, error) {
	snap, err := c.load(ctx, groupID)
	if err != nil {
		return nil, err
	}
	snap.Balances, err = calculator.CalculateBalances(snap.Expenses, snap.Settlements)
	if err != nil {
		return nil, fmt.Errorf("failed to compute balances: %w", err)
	}
	return snap, nil
}

// load reads a group and its history in one unit, without balances.
func (c *Controller) load(ctx context.Context, groupID uint64) (*Snapshot, error) {
	snap := &Snapshot{}
	err := c.view(ctx, func(ctx context.Context, repo storage.Repository) error {
		group, err := loadGroup(ctx, repo, groupID)
		if err != nil {
			return err
		}
		snap.Group = group
		snap.Expenses, snap.Settlements, err = history(ctx, repo, groupID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Balances returns the group's netted debts, sorted by debtor then creditor.
func (c *Controller) Balances(ctx context.Context, groupID uint64) ([]models.Balance, error) {
	snap, err := c.Snapshot(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return snap.Balances, nil
}

// MemberBalance returns member's net position in the group: positive when
// the member is owed, negative when they owe.
func (c *Controller) MemberBalance(ctx context.Context, groupID uint64, member string) (int64, error) {
	snap, err := c.load(ctx, groupID)
	if err != nil {
		return 0, err
	}
	balance, err := calculator.MemberBalance(member, snap.Expenses, snap.Settlements)
	if err != nil {
		return 0, fmt.Errorf("failed to compute balance: %w", err)
	}
	return balance, nil
}

// Summaries returns one summary per current member, in member order.
func (c *Controller) Summaries(ctx context.Context, groupID uint64) ([]models.MemberSummary, error) {
	snap, err := c.load(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return summarize(snap)
}

// Summary returns the group's snapshot and member summaries, both computed
// from a single read.
func (c *Controller) Summary(ctx context.Context, groupID uint64) (*Snapshot, []models.MemberSummary, error) {
	snap, err := c.load(ctx, groupID)
	if err != nil {
		return nil, nil, err
	}
	snap.Balances, err = calculator.CalculateBalances(snap.Expenses, snap.Settlements)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compute balances: %w", err)
	}
	summaries, err := summarize(snap)
	if err != nil {
		return nil, nil, err
	}
	return snap, summaries, nil
}

func summarize(snap *Snapshot) ([]models.MemberSummary, error) {
	summaries, err := calculator.Summaries(snap.Group.Members, snap.Expenses, snap.Settlements)
	if err != nil {
		return nil, fmt.Errorf("failed to compute summaries: %w", err)
	}
	return summaries, nil
}
