// Package ledger enforces the group lifecycle and expense rules on top of a
// storage.Store and computes balances on demand.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmynk/fairshare/internal/models"
	"github.com/mmynk/fairshare/internal/notify"
	"github.com/mmynk/fairshare/internal/scheduler"
	"github.com/mmynk/fairshare/internal/storage"
	"github.com/shopspring/decimal"
)

const (
	MaxMembers           = 20
	MaxGroupNameLength   = 50
	MaxDescriptionLength = 200
	MaxExpensesPerGroup  = 500

	// DefaultSettlementWindow is how long after its settlement date a group
	// may still be settled on time.
	DefaultSettlementWindow = 160 * time.Second
)

// Transferer moves value between members when a debt is settled.
type Transferer interface {
	Transfer(ctx context.Context, groupID uint64, from, to string, amount decimal.Decimal) error
}

// TransferFunc adapts a function to the Transferer interface.
type TransferFunc func(ctx context.Context, groupID uint64, from, to string, amount decimal.Decimal) error

func (f TransferFunc) Transfer(ctx context.Context, groupID uint64, from, to string, amount decimal.Decimal) error {
	return f(ctx, groupID, from, to, amount)
}

var noTransfer = TransferFunc(func(context.Context, uint64, string, string, decimal.Decimal) error { return nil })

// Controller runs every ledger operation. Each mutating operation validates
// and writes inside a single store unit; events are published only after the
// unit commits.
type Controller struct {
	store      storage.Store
	scheduler  scheduler.Scheduler
	notifier   notify.Notifier
	transferer Transferer
	now        func() time.Time
	window     time.Duration
}

// Option configures a Controller.
type Option func(*Controller)

// WithScheduler sets the scheduler used for groups with a settlement date.
// Without one, such groups are rejected with ErrNoScheduler.
func WithScheduler(s scheduler.Scheduler) Option {
	return func(c *Controller) { c.scheduler = s }
}

func WithNotifier(n notify.Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

func WithTransferer(t Transferer) Option {
	return func(c *Controller) { c.transferer = t }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithSettlementWindow sets how long after the settlement date a deferred
// trigger counts as on time.
func WithSettlementWindow(d time.Duration) Option {
	return func(c *Controller) { c.window = d }
}

// New returns a controller over store.
func New(store storage.Store, opts ...Option) *Controller {
	c := &Controller{
		store:      store,
		notifier:   notify.Nop,
		transferer: noTransfer,
		now:        time.Now,
		window:     DefaultSettlementWindow,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type unitFunc func(ctx context.Context, repo storage.Repository) ([]notify.Event, error)

// update runs fn as one store unit and publishes its events after commit.
func (c *Controller) update(ctx context.Context, fn unitFunc) error {
	var events []notify.Event
	err := c.store.Atomic(ctx, func(ctx context.Context, repo storage.Repository) error {
		var err error
		events, err = fn(ctx, repo)
		return err
	})
	if err != nil {
		return err
	}
	c.publish(ctx, events)
	return nil
}

// view runs fn as one read-only store unit.
func (c *Controller) view(ctx context.Context, fn func(ctx context.Context, repo storage.Repository) error) error {
	return c.store.View(ctx, fn)
}

func (c *Controller) publish(ctx context.Context, events []notify.Event) {
	for _, e := range events {
		if err := c.notifier.Notify(ctx, e); err != nil {
			slog.Warn("Failed to publish event", "event", e.Text(), "error", err)
		}
	}
}

func (c *Controller) event(kind notify.Kind, groupID uint64, fields ...string) notify.Event {
	e := notify.NewEvent(kind, groupID, fields...)
	e.At = c.now()
	return e
}

func loadGroup(ctx context.Context, repo storage.Repository, groupID uint64) (*models.Group, error) {
	group, err := repo.GetGroup(ctx, groupID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrGroupNotFound, groupID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load group %d: %w", groupID, err)
	}
	return group, nil
}

func loadExpense(ctx context.Context, repo storage.Repository, expenseID uint64) (*models.Expense, error) {
	expense, err := repo.GetExpense(ctx, expenseID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrExpenseNotFound, expenseID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load expense %d: %w", expenseID, err)
	}
	return expense, nil
}

// history loads a group's expenses and settlements in stored order.
func history(ctx context.Context, repo storage.Repository, groupID uint64) ([]*models.Expense, []*models.Settlement, error) {
	expenses, err := repo.GroupExpenses(ctx, groupID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load expenses of group %d: %w", groupID, err)
	}
	settlements, err := repo.GroupSettlements(ctx, groupID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load settlements of group %d: %w", groupID, err)
	}
	return expenses, settlements, nil
}

func requireActive(group *models.Group) error {
	if group.Status != models.GroupStatusActive {
		return fmt.Errorf("%w: group %d is %s", ErrGroupNotActive, group.ID, group.Status)
	}
	return nil
}
