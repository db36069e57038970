// Package storagetest holds the contract tests every storage.Store
// implementation must pass.
package storagetest

import (
	"context"
	"errors"
	"testing"

	"github.com/mmynk/fairshare/internal/idalloc"
	"github.com/mmynk/fairshare/internal/models"
	"github.com/mmynk/fairshare/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises store against the storage.Repository contract. newStore must
// return an empty store; Run closes it.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Store)
	}{
		{"NextID starts at one per sequence", testNextID},
		{"group round trip", testGroupRoundTrip},
		{"missing records are not found", testNotFound},
		{"expense index follows expense lifecycle", testExpenseIndex},
		{"user groups index is idempotent", testUserGroups},
		{"settlements keep insertion order", testSettlements},
		{"failed atomic unit leaves no trace", testAtomicRollback},
		{"delete group removes dependents", testDeleteGroup},
		{"pending settlements list active dated groups", testPendingSettlements},
		{"view reads committed state", testView},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { s.Close() })
			tt.fn(t, s)
		})
	}
}

func sampleGroup(id uint64) *models.Group {
	return &models.Group{
		ID:             id,
		Name:           "Lisbon trip",
		Creator:        "alice",
		Members:        []string{"bob", "carol", "alice"},
		CreatedAt:      1_700_000_000_000,
		SettlementDate: 0,
		Status:         models.GroupStatusActive,
		TotalExpenses:  decimal.Zero,
	}
}

func sampleExpense(id, groupID uint64, amount int64) *models.Expense {
	return &models.Expense{
		ID:           id,
		GroupID:      groupID,
		Description:  "Dinner",
		Amount:       decimal.NewFromInt(amount),
		PaidBy:       "alice",
		SplitBetween: []string{"alice", "bob", "carol"},
		CreatedAt:    1_700_000_100_000,
		Category:     models.CategoryFood,
	}
}

func testNextID(t *testing.T, s storage.Store) {
	ctx := context.Background()

	for want := uint64(1); want <= 3; want++ {
		got, err := s.NextID(ctx, idalloc.SequenceGroup)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	got, err := s.NextID(ctx, idalloc.SequenceExpense)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got)

	got, err = s.NextID(ctx, idalloc.SequenceSettlement)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got)
}

func testGroupRoundTrip(t *testing.T, s storage.Store) {
	ctx := context.Background()

	g := sampleGroup(7)
	require.NoError(t, s.PutGroup(ctx, g))

	exists, err := s.GroupExists(ctx, 7)
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := s.GetGroup(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, g.Name, got.Name)
	assert.Equal(t, g.Creator, got.Creator)
	assert.Equal(t, g.Members, got.Members, "member order must survive")
	assert.Equal(t, g.CreatedAt, got.CreatedAt)
	assert.Equal(t, g.Status, got.Status)
	assert.True(t, got.TotalExpenses.IsZero())

	big, err := decimal.NewFromString("115792089237316195423570985008687907853269984665640564039457584007913129639935")
	require.NoError(t, err)
	got.Status = models.GroupStatusSettled
	got.TotalExpenses = big
	got.ExpenseCount = 4
	got.RemoveMember("carol")
	require.NoError(t, s.PutGroup(ctx, got))

	again, err := s.GetGroup(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, models.GroupStatusSettled, again.Status)
	assert.True(t, big.Equal(again.TotalExpenses), "got %s", again.TotalExpenses)
	assert.Equal(t, uint32(4), again.ExpenseCount)
	assert.Equal(t, []string{"bob", "alice"}, again.Members)
}

func testNotFound(t *testing.T, s storage.Store) {
	ctx := context.Background()

	_, err := s.GetGroup(ctx, 99)
	assert.True(t, errors.Is(err, storage.ErrNotFound), "GetGroup: %v", err)

	_, err = s.GetExpense(ctx, 99)
	assert.True(t, errors.Is(err, storage.ErrNotFound), "GetExpense: %v", err)

	exists, err := s.GroupExists(ctx, 99)
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = s.ExpenseExists(ctx, 99)
	require.NoError(t, err)
	assert.False(t, exists)
}

func testExpenseIndex(t *testing.T, s storage.Store) {
	ctx := context.Background()
	require.NoError(t, s.PutGroup(ctx, sampleGroup(1)))

	for id := uint64(1); id <= 3; id++ {
		require.NoError(t, s.PutExpense(ctx, sampleExpense(id, 1, int64(id)*100)))
		require.NoError(t, s.AddToGroupExpenses(ctx, 1, id))
	}

	ids, err := s.GroupExpenseIDs(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 3}, ids)

	require.NoError(t, s.DeleteExpense(ctx, 2))

	ids, err = s.GroupExpenseIDs(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 3}, ids)

	exists, err := s.ExpenseExists(ctx, 2)
	require.NoError(t, err)
	assert.False(t, exists)

	expenses, err := s.GroupExpenses(ctx, 1)
	require.NoError(t, err)
	require.Len(t, expenses, 2)
	assert.Equal(t, uint64(1), expenses[0].ID)
	assert.Equal(t, uint64(3), expenses[1].ID)
	assert.Equal(t, []string{"alice", "bob", "carol"}, expenses[1].SplitBetween)
	assert.True(t, decimal.NewFromInt(300).Equal(expenses[1].Amount))
	assert.Equal(t, models.CategoryFood, expenses[1].Category)

	require.NoError(t, s.RemoveFromGroupExpenses(ctx, 1, 3))
	ids, err = s.GroupExpenseIDs(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, ids)
}

func testUserGroups(t *testing.T, s storage.Store) {
	ctx := context.Background()
	require.NoError(t, s.PutGroup(ctx, sampleGroup(1)))
	require.NoError(t, s.PutGroup(ctx, sampleGroup(2)))

	require.NoError(t, s.AddToUserGroups(ctx, "bob", 1))
	require.NoError(t, s.AddToUserGroups(ctx, "bob", 2))
	require.NoError(t, s.AddToUserGroups(ctx, "bob", 1))

	ids, err := s.UserGroupIDs(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, ids)

	require.NoError(t, s.RemoveFromUserGroups(ctx, "bob", 1))
	ids, err = s.UserGroupIDs(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, ids)

	ids, err = s.UserGroupIDs(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func testSettlements(t *testing.T, s storage.Store) {
	ctx := context.Background()
	require.NoError(t, s.PutGroup(ctx, sampleGroup(1)))

	for i, amount := range []int64{30, 5, 12} {
		require.NoError(t, s.AppendSettlement(ctx, &models.Settlement{
			ID:        uint64(i + 1),
			GroupID:   1,
			From:      "bob",
			To:        "alice",
			Amount:    decimal.NewFromInt(amount),
			SettledAt: int64(1_700_000_000_000 + i),
		}))
	}

	got, err := s.GroupSettlements(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, amount := range []int64{30, 5, 12} {
		assert.Equal(t, uint64(i+1), got[i].ID)
		assert.True(t, decimal.NewFromInt(amount).Equal(got[i].Amount))
		assert.Equal(t, "bob", got[i].From)
		assert.Equal(t, "alice", got[i].To)
	}

	other, err := s.GroupSettlements(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func testAtomicRollback(t *testing.T, s storage.Store) {
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Atomic(ctx, func(ctx context.Context, repo storage.Repository) error {
		id, err := repo.NextID(ctx, idalloc.SequenceGroup)
		if err != nil {
			return err
		}
		if err := repo.PutGroup(ctx, sampleGroup(id)); err != nil {
			return err
		}
		if err := repo.AddToUserGroups(ctx, "alice", id); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	exists, err := s.GroupExists(ctx, 1)
	require.NoError(t, err)
	assert.False(t, exists)

	ids, err := s.UserGroupIDs(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, ids)

	id, err := s.NextID(ctx, idalloc.SequenceGroup)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id, "rolled back unit must not consume ids")

	err = s.Atomic(ctx, func(ctx context.Context, repo storage.Repository) error {
		return repo.PutGroup(ctx, sampleGroup(id))
	})
	require.NoError(t, err)

	exists, err = s.GroupExists(ctx, id)
	require.NoError(t, err)
	assert.True(t, exists)
}

func testDeleteGroup(t *testing.T, s storage.Store) {
	ctx := context.Background()
	g := sampleGroup(1)
	require.NoError(t, s.PutGroup(ctx, g))
	for _, m := range g.Members {
		require.NoError(t, s.AddToUserGroups(ctx, m, 1))
	}
	require.NoError(t, s.PutExpense(ctx, sampleExpense(1, 1, 90)))
	require.NoError(t, s.AddToGroupExpenses(ctx, 1, 1))
	require.NoError(t, s.AppendSettlement(ctx, &models.Settlement{
		ID: 1, GroupID: 1, From: "bob", To: "alice", Amount: decimal.NewFromInt(30),
	}))

	require.NoError(t, s.DeleteGroup(ctx, 1))

	exists, err := s.GroupExists(ctx, 1)
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = s.ExpenseExists(ctx, 1)
	require.NoError(t, err)
	assert.False(t, exists)

	settlements, err := s.GroupSettlements(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, settlements)

	ids, err := s.UserGroupIDs(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, ids)

	err = s.DeleteGroup(ctx, 1)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func testPendingSettlements(t *testing.T, s storage.Store) {
	ctx := context.Background()

	pending, err := s.PendingSettlements(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	dated := func(id uint64, date int64, status models.GroupStatus) *models.Group {
		g := sampleGroup(id)
		g.SettlementDate = date
		g.Status = status
		return g
	}
	require.NoError(t, s.PutGroup(ctx, dated(4, 1_700_000_500_000, models.GroupStatusActive)))
	require.NoError(t, s.PutGroup(ctx, dated(1, 0, models.GroupStatusActive)))
	require.NoError(t, s.PutGroup(ctx, dated(2, 1_700_000_200_000, models.GroupStatusActive)))
	require.NoError(t, s.PutGroup(ctx, dated(3, 1_700_000_300_000, models.GroupStatusSettled)))
	require.NoError(t, s.PutGroup(ctx, dated(5, 1_700_000_600_000, models.GroupStatusCancelled)))

	pending, err = s.PendingSettlements(ctx)
	require.NoError(t, err)
	assert.Equal(t, []storage.PendingSettlement{
		{GroupID: 2, SettlementDate: 1_700_000_200_000},
		{GroupID: 4, SettlementDate: 1_700_000_500_000},
	}, pending)
}

func testView(t *testing.T, s storage.Store) {
	ctx := context.Background()
	require.NoError(t, s.PutGroup(ctx, sampleGroup(1)))
	require.NoError(t, s.PutExpense(ctx, sampleExpense(1, 1, 60)))
	require.NoError(t, s.AddToGroupExpenses(ctx, 1, 1))

	var (
		group    *models.Group
		expenses []*models.Expense
	)
	err := s.View(ctx, func(ctx context.Context, repo storage.Repository) error {
		var err error
		if group, err = repo.GetGroup(ctx, 1); err != nil {
			return err
		}
		expenses, err = repo.GroupExpenses(ctx, 1)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "Lisbon trip", group.Name)
	require.Len(t, expenses, 1)
	assert.True(t, decimal.NewFromInt(60).Equal(expenses[0].Amount))

	boom := errors.New("boom")
	err = s.View(ctx, func(ctx context.Context, repo storage.Repository) error {
		_, err := repo.GetGroup(ctx, 99)
		require.ErrorIs(t, err, storage.ErrNotFound)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	exists, err := s.GroupExists(ctx, 1)
	require.NoError(t, err)
	assert.True(t, exists)
}
