// Package memory provides an in-memory implementation of storage.Store.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/mmynk/fairshare/internal/idalloc"
	"github.com/mmynk/fairshare/internal/models"
	"github.com/mmynk/fairshare/internal/storage"
)

var _ storage.Store = (*Store)(nil)

type state struct {
	groups        map[uint64]*models.Group
	expenses      map[uint64]*models.Expense
	groupExpenses map[uint64][]uint64
	userGroups    map[string][]uint64
	settlements   map[uint64][]*models.Settlement
}

func newState() *state {
	return &state{
		groups:        make(map[uint64]*models.Group),
		expenses:      make(map[uint64]*models.Expense),
		groupExpenses: make(map[uint64][]uint64),
		userGroups:    make(map[string][]uint64),
		settlements:   make(map[uint64][]*models.Settlement),
	}
}

// clone copies the index slices and maps. Records are never mutated in place
// so they can be shared between snapshots.
func (st *state) clone() *state {
	c := &state{
		groups:        maps.Clone(st.groups),
		expenses:      maps.Clone(st.expenses),
		groupExpenses: make(map[uint64][]uint64, len(st.groupExpenses)),
		userGroups:    make(map[string][]uint64, len(st.userGroups)),
		settlements:   make(map[uint64][]*models.Settlement, len(st.settlements)),
	}
	for k, v := range st.groupExpenses {
		c.groupExpenses[k] = slices.Clone(v)
	}
	for k, v := range st.userGroups {
		c.userGroups[k] = slices.Clone(v)
	}
	for k, v := range st.settlements {
		c.settlements[k] = slices.Clone(v)
	}
	return c
}

// Store keeps every record in process memory. Each call, and each Atomic
// unit as a whole, holds the store lock.
type Store struct {
	mu  sync.Mutex
	ids idalloc.Allocator
	st  *state
}

// New returns an empty store.
func New() *Store {
	return &Store{st: newState()}
}

// Atomic runs fn under the store lock and restores the previous state if fn
// fails.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, repo storage.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.st.clone()
	ids := s.ids.Snapshot()

	if err := fn(ctx, &repo{st: s.st, ids: &s.ids}); err != nil {
		s.st = snap
		s.ids.Restore(ids)
		return err
	}
	return nil
}

// View runs fn under the store lock against the live state. Nothing is
// cloned, so fn must only read.
func (s *Store) View(ctx context.Context, fn func(ctx context.Context, repo storage.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(ctx, &repo{st: s.st, ids: &s.ids})
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func (s *Store) locked() (*repo, func()) {
	s.mu.Lock()
	return &repo{st: s.st, ids: &s.ids}, s.mu.Unlock
}

func (s *Store) NextID(ctx context.Context, seq idalloc.Sequence) (uint64, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.NextID(ctx, seq)
}

func (s *Store) PutGroup(ctx context.Context, group *models.Group) error {
	r, unlock := s.locked()
	defer unlock()
	return r.PutGroup(ctx, group)
}

func (s *Store) GetGroup(ctx context.Context, groupID uint64) (*models.Group, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.GetGroup(ctx, groupID)
}

func (s *Store) GroupExists(ctx context.Context, groupID uint64) (bool, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.GroupExists(ctx, groupID)
}

func (s *Store) DeleteGroup(ctx context.Context, groupID uint64) error {
	r, unlock := s.locked()
	defer unlock()
	return r.DeleteGroup(ctx, groupID)
}

func (s *Store) PutExpense(ctx context.Context, expense *models.Expense) error {
	r, unlock := s.locked()
	defer unlock()
	return r.PutExpense(ctx, expense)
}

func (s *Store) GetExpense(ctx context.Context, expenseID uint64) (*models.Expense, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.GetExpense(ctx, expenseID)
}

func (s *Store) ExpenseExists(ctx context.Context, expenseID uint64) (bool, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.ExpenseExists(ctx, expenseID)
}

func (s *Store) DeleteExpense(ctx context.Context, expenseID uint64) error {
	r, unlock := s.locked()
	defer unlock()
	return r.DeleteExpense(ctx, expenseID)
}

func (s *Store) GroupExpenseIDs(ctx context.Context, groupID uint64) ([]uint64, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.GroupExpenseIDs(ctx, groupID)
}

func (s *Store) GroupExpenses(ctx context.Context, groupID uint64) ([]*models.Expense, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.GroupExpenses(ctx, groupID)
}

func (s *Store) AddToGroupExpenses(ctx context.Context, groupID, expenseID uint64) error {
	r, unlock := s.locked()
	defer unlock()
	return r.AddToGroupExpenses(ctx, groupID, expenseID)
}

func (s *Store) RemoveFromGroupExpenses(ctx context.Context, groupID, expenseID uint64) error {
	r, unlock := s.locked()
	defer unlock()
	return r.RemoveFromGroupExpenses(ctx, groupID, expenseID)
}

func (s *Store) UserGroupIDs(ctx context.Context, member string) ([]uint64, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.UserGroupIDs(ctx, member)
}

func (s *Store) AddToUserGroups(ctx context.Context, member string, groupID uint64) error {
	r, unlock := s.locked()
	defer unlock()
	return r.AddToUserGroups(ctx, member, groupID)
}

func (s *Store) RemoveFromUserGroups(ctx context.Context, member string, groupID uint64) error {
	r, unlock := s.locked()
	defer unlock()
	return r.RemoveFromUserGroups(ctx, member, groupID)
}

func (s *Store) AppendSettlement(ctx context.Context, settlement *models.Settlement) error {
	r, unlock := s.locked()
	defer unlock()
	return r.AppendSettlement(ctx, settlement)
}

func (s *Store) GroupSettlements(ctx context.Context, groupID uint64) ([]*models.Settlement, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.GroupSettlements(ctx, groupID)
}

func (s *Store) PendingSettlements(ctx context.Context) ([]storage.PendingSettlement, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.PendingSettlements(ctx)
}

// repo implements storage.Repository over a state the caller has locked.
type repo struct {
	st  *state
	ids *idalloc.Allocator
}

func (r *repo) NextID(_ context.Context, seq idalloc.Sequence) (uint64, error) {
	return r.ids.Next(seq), nil
}

func (r *repo) PutGroup(_ context.Context, group *models.Group) error {
	r.st.groups[group.ID] = group.Clone()
	return nil
}

func (r *repo) GetGroup(_ context.Context, groupID uint64) (*models.Group, error) {
	g, ok := r.st.groups[groupID]
	if !ok {
		return nil, fmt.Errorf("group %d: %w", groupID, storage.ErrNotFound)
	}
	return g.Clone(), nil
}

func (r *repo) GroupExists(_ context.Context, groupID uint64) (bool, error) {
	_, ok := r.st.groups[groupID]
	return ok, nil
}

func (r *repo) DeleteGroup(_ context.Context, groupID uint64) error {
	g, ok := r.st.groups[groupID]
	if !ok {
		return fmt.Errorf("group %d: %w", groupID, storage.ErrNotFound)
	}
	for _, expenseID := range r.st.groupExpenses[groupID] {
		delete(r.st.expenses, expenseID)
	}
	for _, member := range g.Members {
		r.st.userGroups[member] = slices.DeleteFunc(slices.Clone(r.st.userGroups[member]),
			func(id uint64) bool { return id == groupID })
	}
	delete(r.st.groupExpenses, groupID)
	delete(r.st.settlements, groupID)
	delete(r.st.groups, groupID)
	return nil
}

func (r *repo) PutExpense(_ context.Context, expense *models.Expense) error {
	r.st.expenses[expense.ID] = expense.Clone()
	return nil
}

func (r *repo) GetExpense(_ context.Context, expenseID uint64) (*models.Expense, error) {
	e, ok := r.st.expenses[expenseID]
	if !ok {
		return nil, fmt.Errorf("expense %d: %w", expenseID, storage.ErrNotFound)
	}
	return e.Clone(), nil
}

func (r *repo) ExpenseExists(_ context.Context, expenseID uint64) (bool, error) {
	_, ok := r.st.expenses[expenseID]
	return ok, nil
}

func (r *repo) DeleteExpense(ctx context.Context, expenseID uint64) error {
	e, ok := r.st.expenses[expenseID]
	if !ok {
		return fmt.Errorf("expense %d: %w", expenseID, storage.ErrNotFound)
	}
	if err := r.RemoveFromGroupExpenses(ctx, e.GroupID, expenseID); err != nil {
		return err
	}
	delete(r.st.expenses, expenseID)
	return nil
}

func (r *repo) GroupExpenseIDs(_ context.Context, groupID uint64) ([]uint64, error) {
	return slices.Clone(r.st.groupExpenses[groupID]), nil
}

func (r *repo) GroupExpenses(_ context.Context, groupID uint64) ([]*models.Expense, error) {
	ids := r.st.groupExpenses[groupID]
	out := make([]*models.Expense, 0, len(ids))
	for _, id := range ids {
		if e, ok := r.st.expenses[id]; ok {
			out = append(out, e.Clone())
		}
	}
	return out, nil
}

func (r *repo) AddToGroupExpenses(_ context.Context, groupID, expenseID uint64) error {
	r.st.groupExpenses[groupID] = append(r.st.groupExpenses[groupID], expenseID)
	return nil
}

func (r *repo) RemoveFromGroupExpenses(_ context.Context, groupID, expenseID uint64) error {
	ids, ok := r.st.groupExpenses[groupID]
	if !ok {
		return nil
	}
	r.st.groupExpenses[groupID] = slices.DeleteFunc(slices.Clone(ids),
		func(id uint64) bool { return id == expenseID })
	return nil
}

func (r *repo) UserGroupIDs(_ context.Context, member string) ([]uint64, error) {
	return slices.Clone(r.st.userGroups[member]), nil
}

func (r *repo) AddToUserGroups(_ context.Context, member string, groupID uint64) error {
	if slices.Contains(r.st.userGroups[member], groupID) {
		return nil
	}
	r.st.userGroups[member] = append(r.st.userGroups[member], groupID)
	return nil
}

func (r *repo) RemoveFromUserGroups(_ context.Context, member string, groupID uint64) error {
	ids, ok := r.st.userGroups[member]
	if !ok {
		return nil
	}
	r.st.userGroups[member] = slices.DeleteFunc(slices.Clone(ids),
		func(id uint64) bool { return id == groupID })
	return nil
}

func (r *repo) AppendSettlement(_ context.Context, settlement *models.Settlement) error {
	c := *settlement
	r.st.settlements[settlement.GroupID] = append(r.st.settlements[settlement.GroupID], &c)
	return nil
}

func (r *repo) GroupSettlements(_ context.Context, groupID uint64) ([]*models.Settlement, error) {
	src := r.st.settlements[groupID]
	out := make([]*models.Settlement, len(src))
	for i, s := range src {
		c := *s
		out[i] = &c
	}
	return out, nil
}

func (r *repo) PendingSettlements(_ context.Context) ([]storage.PendingSettlement, error) {
	out := []storage.PendingSettlement{}
	for _, g := range r.st.groups {
		if g.Status == models.GroupStatusActive && g.SettlementDate > 0 {
			out = append(out, storage.PendingSettlement{GroupID: g.ID, SettlementDate: g.SettlementDate})
		}
	}
	slices.SortFunc(out, func(a, b storage.PendingSettlement) int {
		return cmp.Compare(a.GroupID, b.GroupID)
	})
	return out, nil
}
