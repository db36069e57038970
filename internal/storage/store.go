// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/fairshare/internal/idalloc"
	"github.com/mmynk/fairshare/internal/models"
)

// ErrNotFound is returned by Get methods when the requested record does not
// exist. Implementations wrap it with the kind and id of the record.
var ErrNotFound = errors.New("not found")

// PendingSettlement is an Active group waiting for its automatic settlement.
type PendingSettlement struct {
	GroupID        uint64
	SettlementDate int64
}

// Repository defines the entity and index operations of the ledger store.
// The interface allows swapping storage backends (memory, SQLite, PostgreSQL)
// without changing the ledger controller.
type Repository interface {
	// NextID returns a fresh identifier for seq. Identifiers start at 1 and
	// strictly increase.
	NextID(ctx context.Context, seq idalloc.Sequence) (uint64, error)

	// PutGroup creates or replaces a group, including its member list.
	PutGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group by ID. Returns ErrNotFound if it does not exist.
	GetGroup(ctx context.Context, groupID uint64) (*models.Group, error)

	GroupExists(ctx context.Context, groupID uint64) (bool, error)

	DeleteGroup(ctx context.Context, groupID uint64) error

	// PutExpense creates or replaces an expense. It does not touch the group
	// expense index; see AddToGroupExpenses.
	PutExpense(ctx context.Context, expense *models.Expense) error

	// GetExpense retrieves an expense by ID. Returns ErrNotFound if it does not exist.
	GetExpense(ctx context.Context, expenseID uint64) (*models.Expense, error)

	ExpenseExists(ctx context.Context, expenseID uint64) (bool, error)

	// DeleteExpense removes an expense and its entry in the group expense index.
	DeleteExpense(ctx context.Context, expenseID uint64) error

	// GroupExpenseIDs returns the group's expense IDs in insertion order.
	GroupExpenseIDs(ctx context.Context, groupID uint64) ([]uint64, error)

	// GroupExpenses returns the group's expenses in index order.
	GroupExpenses(ctx context.Context, groupID uint64) ([]*models.Expense, error)

	AddToGroupExpenses(ctx context.Context, groupID, expenseID uint64) error
	RemoveFromGroupExpenses(ctx context.Context, groupID, expenseID uint64) error

	// UserGroupIDs returns the IDs of the groups a member belongs to.
	UserGroupIDs(ctx context.Context, member string) ([]uint64, error)

	// AddToUserGroups indexes member under groupID. Adding an existing entry
	// is a no-op.
	AddToUserGroups(ctx context.Context, member string, groupID uint64) error
	RemoveFromUserGroups(ctx context.Context, member string, groupID uint64) error

	// AppendSettlement records a settlement. Settlements are never edited.
	AppendSettlement(ctx context.Context, settlement *models.Settlement) error

	// GroupSettlements returns the group's settlements in insertion order.
	GroupSettlements(ctx context.Context, groupID uint64) ([]*models.Settlement, error)

	// PendingSettlements lists the Active groups that have a settlement date,
	// ordered by group ID.
	PendingSettlements(ctx context.Context) ([]PendingSettlement, error)
}

// Store is a Repository that can run a unit of work atomically.
type Store interface {
	Repository

	// Atomic runs fn against a repository whose writes either all commit or,
	// if fn returns an error, all roll back.
	Atomic(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error

	// View runs fn against a consistent read-only repository. fn must not
	// write through it.
	View(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error

	// Close releases any resources held by the store.
	Close() error
}
