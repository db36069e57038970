package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/mmynk/fairshare/internal/calculator"
	"github.com/mmynk/fairshare/internal/idalloc"
	"github.com/mmynk/fairshare/internal/models"
	"github.com/mmynk/fairshare/internal/notify"
	"github.com/mmynk/fairshare/internal/scheduler"
	"github.com/mmynk/fairshare/internal/storage"
)

// dedupe drops repeated identities, keeping first occurrences in order.
func dedupe(members []string) ([]string, error) {
	out := make([]string, 0, len(members))
	for _, m := range members {
		if m == "" {
			return nil, ErrInvalidMember
		}
		if !slices.Contains(out, m) {
			out = append(out, m)
		}
	}
	return out, nil
}

// CreateGroup creates an Active group owned by caller and returns its id.
// The caller is appended to members if absent. A positive settlementDate
// (unix ms, in the future) schedules an automatic settlement.
func (c *Controller) CreateGroup(ctx context.Context, caller, name string, members []string, settlementDate int64) (uint64, error) {
	if caller == "" {
		return 0, ErrNoCaller
	}
	if n := utf8.RuneCountInString(name); n == 0 || n > MaxGroupNameLength {
		return 0, ErrInvalidGroupName
	}
	list, err := dedupe(members)
	if err != nil {
		return 0, err
	}
	if !slices.Contains(list, caller) {
		list = append(list, caller)
	}
	if len(list) > MaxMembers {
		return 0, ErrTooManyMembers
	}

	now := c.now()
	if settlementDate > 0 {
		if settlementDate <= now.UnixMilli() {
			return 0, ErrSettlementDatePast
		}
		if c.scheduler == nil {
			return 0, ErrNoScheduler
		}
	}

	var (
		groupID uint64
		events  []notify.Event
	)
	err = c.store.Atomic(ctx, func(ctx context.Context, repo storage.Repository) error {
		id, err := repo.NextID(ctx, idalloc.SequenceGroup)
		if err != nil {
			return fmt.Errorf("failed to allocate group id: %w", err)
		}

		group := &models.Group{
			ID:             id,
			Name:           name,
			Creator:        caller,
			Members:        list,
			CreatedAt:      now.UnixMilli(),
			SettlementDate: settlementDate,
			Status:         models.GroupStatusActive,
		}
		if err := repo.PutGroup(ctx, group); err != nil {
			return fmt.Errorf("failed to save group: %w", err)
		}
		for _, m := range list {
			if err := repo.AddToUserGroups(ctx, m, id); err != nil {
				return fmt.Errorf("failed to index member %s: %w", m, err)
			}
		}

		groupID = id
		events = []notify.Event{c.event(notify.KindGroupCreated, id, name, caller)}
		return nil
	})
	if err != nil {
		return 0, err
	}

	// Scheduled after commit: a rolled-back unit gives its group id back.
	if settlementDate > 0 {
		if err := c.scheduler.Schedule(ctx, c.trigger(groupID, settlementDate)); err != nil {
			c.discard(ctx, groupID)
			return 0, fmt.Errorf("failed to schedule settlement: %w", err)
		}
		events = append(events, c.event(notify.KindSettlementScheduled, groupID, strconv.FormatInt(settlementDate, 10)))
	}
	c.publish(ctx, events)

	slog.Info("Group created", "group_id", groupID, "members_count", len(list), "settlement_date", settlementDate)
	return groupID, nil
}

func (c *Controller) trigger(groupID uint64, settlementDate int64) scheduler.Trigger {
	due := time.UnixMilli(settlementDate)
	return scheduler.Trigger{GroupID: groupID, NotBefore: due, NotAfter: due.Add(c.window)}
}

// discard deletes a group whose creation could not be completed. If that
// fails too, the group stays Active and ResumeSettlements picks it up.
func (c *Controller) discard(ctx context.Context, groupID uint64) {
	err := c.store.Atomic(context.WithoutCancel(ctx), func(ctx context.Context, repo storage.Repository) error {
		return repo.DeleteGroup(ctx, groupID)
	})
	if err != nil {
		slog.Error("Failed to discard unscheduled group", "group_id", groupID, "error", err)
	}
}

// ResumeSettlements registers a trigger for every Active group that has a
// settlement date and returns how many were registered. Groups already past
// their date are delivered as soon as the scheduler runs. Registering a group
// that is still pending is harmless.
func (c *Controller) ResumeSettlements(ctx context.Context) (int, error) {
	if c.scheduler == nil {
		return 0, ErrNoScheduler
	}

	var pending []storage.PendingSettlement
	err := c.view(ctx, func(ctx context.Context, repo storage.Repository) error {
		var err error
		pending, err = repo.PendingSettlements(ctx)
		if err != nil {
			return fmt.Errorf("failed to list pending settlements: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for i, p := range pending {
		if err := c.scheduler.Schedule(ctx, c.trigger(p.GroupID, p.SettlementDate)); err != nil {
			return i, fmt.Errorf("failed to schedule settlement of group %d: %w", p.GroupID, err)
		}
	}

	slog.Info("Pending settlements resumed", "count", len(pending))
	return len(pending), nil
}

// AddMember adds member to an Active group. Only the creator may add members.
// Adding an existing member does nothing.
func (c *Controller) AddMember(ctx context.Context, caller string, groupID uint64, member string) error {
	if caller == "" {
		return ErrNoCaller
	}
	if member == "" {
		return ErrInvalidMember
	}

	return c.update(ctx, func(ctx context.Context, repo storage.Repository) ([]notify.Event, error) {
		group, err := loadGroup(ctx, repo, groupID)
		if err != nil {
			return nil, err
		}
		if caller != group.Creator {
			return nil, ErrNotCreator
		}
		if err := requireActive(group); err != nil {
			return nil, err
		}
		if len(group.Members) >= MaxMembers {
			return nil, ErrGroupFull
		}
		if group.IsMember(member) {
			return nil, nil
		}

		group.AddMember(member)
		if err := repo.PutGroup(ctx, group); err != nil {
			return nil, fmt.Errorf("failed to save group: %w", err)
		}
		if err := repo.AddToUserGroups(ctx, member, groupID); err != nil {
			return nil, fmt.Errorf("failed to index member %s: %w", member, err)
		}
		return []notify.Event{c.event(notify.KindMemberAdded, groupID, member)}, nil
	})
}

// LeaveGroup removes caller from an Active group. The caller's net balance
// must be exactly zero.
func (c *Controller) LeaveGroup(ctx context.Context, caller string, groupID uint64) error {
	if caller == "" {
		return ErrNoCaller
	}

	return c.update(ctx, func(ctx context.Context, repo storage.Repository) ([]notify.Event, error) {
		group, err := loadGroup(ctx, repo, groupID)
		if err != nil {
			return nil, err
		}
		if !group.IsMember(caller) {
			return nil, ErrNotMember
		}
		if err := requireActive(group); err != nil {
			return nil, err
		}

		expenses, settlements, err := history(ctx, repo, groupID)
		if err != nil {
			return nil, err
		}
		balance, err := calculator.MemberBalance(caller, expenses, settlements)
		if err != nil {
			return nil, fmt.Errorf("failed to compute balance: %w", err)
		}
		if balance != 0 {
			return nil, fmt.Errorf("%w: balance is %d", ErrSettleFirst, balance)
		}

		group.RemoveMember(caller)
		if err := repo.PutGroup(ctx, group); err != nil {
			return nil, fmt.Errorf("failed to save group: %w", err)
		}
		if err := repo.RemoveFromUserGroups(ctx, caller, groupID); err != nil {
			return nil, fmt.Errorf("failed to unindex member %s: %w", caller, err)
		}
		return []notify.Event{c.event(notify.KindMemberLeft, groupID, caller)}, nil
	})
}

// CloseGroup settles an Active group on the creator's request and returns the
// outstanding balances at settlement.
func (c *Controller) CloseGroup(ctx context.Context, caller string, groupID uint64) ([]models.Balance, error) {
	if caller == "" {
		return nil, ErrNoCaller
	}

	var balances []models.Balance
	err := c.update(ctx, func(ctx context.Context, repo storage.Repository) ([]notify.Event, error) {
		group, err := loadGroup(ctx, repo, groupID)
		if err != nil {
			return nil, err
		}
		if caller != group.Creator {
			return nil, ErrNotCreator
		}
		if err := requireActive(group); err != nil {
			return nil, err
		}

		var events []notify.Event
		balances, events, err = c.settle(ctx, repo, group)
		return events, err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Group closed", "group_id", groupID, "outstanding", len(balances))
	return balances, nil
}

// AutoSettle settles an Active group and returns the outstanding balances at
// settlement. It does nothing for a group that is no longer Active, so
// repeated delivery of a deferred trigger is harmless.
func (c *Controller) AutoSettle(ctx context.Context, groupID uint64) ([]models.Balance, error) {
	var (
		balances []models.Balance
		settled  bool
	)
	err := c.update(ctx, func(ctx context.Context, repo storage.Repository) ([]notify.Event, error) {
		group, err := loadGroup(ctx, repo, groupID)
		if err != nil {
			return nil, err
		}
		if group.Status != models.GroupStatusActive {
			return nil, nil
		}

		var events []notify.Event
		balances, events, err = c.settle(ctx, repo, group)
		settled = err == nil
		return events, err
	})
	if err != nil {
		return nil, err
	}

	if !settled {
		slog.Info("Auto-settle skipped, group not active", "group_id", groupID)
		return nil, nil
	}
	slog.Info("Group auto-settled", "group_id", groupID, "outstanding", len(balances))
	return balances, nil
}

// SettleDue is the scheduler.Handler for deferred settlement triggers. A
// trigger for a group that no longer exists is dropped.
func (c *Controller) SettleDue(ctx context.Context, groupID uint64) error {
	_, err := c.AutoSettle(ctx, groupID)
	if errors.Is(err, ErrNotFound) {
		slog.Warn("Dropping settlement trigger for missing group", "group_id", groupID)
		return nil
	}
	return err
}

// settle moves group to Settled and returns the balances outstanding at that
// point with one AutoSettlement event each, followed by GroupSettled.
func (c *Controller) settle(ctx context.Context, repo storage.Repository, group *models.Group) ([]models.Balance, []notify.Event, error) {
	expenses, settlements, err := history(ctx, repo, group.ID)
	if err != nil {
		return nil, nil, err
	}
	balances, err := calculator.CalculateBalances(expenses, settlements)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compute balances: %w", err)
	}

	group.Status = models.GroupStatusSettled
	if err := repo.PutGroup(ctx, group); err != nil {
		return nil, nil, fmt.Errorf("failed to save group: %w", err)
	}

	events := make([]notify.Event, 0, len(balances)+1)
	for _, b := range balances {
		events = append(events, c.event(notify.KindAutoSettlement, group.ID, b.From, b.To, b.Amount.String()))
	}
	events = append(events, c.event(notify.KindGroupSettled, group.ID))
	return balances, events, nil
}

// CancelGroup moves an Active group to Cancelled on the creator's request.
// No balances are settled.
func (c *Controller) CancelGroup(ctx context.Context, caller string, groupID uint64) error {
	if caller == "" {
		return ErrNoCaller
	}

	err := c.update(ctx, func(ctx context.Context, repo storage.Repository) ([]notify.Event, error) {
		group, err := loadGroup(ctx, repo, groupID)
		if err != nil {
			return nil, err
		}
		if caller != group.Creator {
			return nil, ErrNotCreator
		}
		if err := requireActive(group); err != nil {
			return nil, err
		}

		group.Status = models.GroupStatusCancelled
		if err := repo.PutGroup(ctx, group); err != nil {
			return nil, fmt.Errorf("failed to save group: %w", err)
		}
		return []notify.Event{c.event(notify.KindGroupCancelled, groupID)}, nil
	})
	if err != nil {
		return err
	}

	slog.Info("Group cancelled", "group_id", groupID)
	return nil
}
