package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mmynk/fairshare/internal/calculator"
	"github.com/mmynk/fairshare/internal/models"
	"github.com/mmynk/fairshare/internal/notify"
	"github.com/mmynk/fairshare/internal/scheduler"
	"github.com/mmynk/fairshare/internal/storage"
	"github.com/mmynk/fairshare/internal/storage/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.UnixMilli(1_700_000_000_000)

type fakeScheduler struct {
	mu       sync.Mutex
	triggers []scheduler.Trigger
	err      error
}

func (f *fakeScheduler) Schedule(_ context.Context, t scheduler.Trigger) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.triggers = append(f.triggers, t)
	return nil
}

func (f *fakeScheduler) Run(ctx context.Context, _ scheduler.Handler) error {
	<-ctx.Done()
	return nil
}

type fixture struct {
	ctl    *Controller
	store  *memory.Store
	events *notify.Recorder
	sched  *fakeScheduler
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		store:  memory.New(),
		events: &notify.Recorder{},
		sched:  &fakeScheduler{},
	}
	base := []Option{
		WithNotifier(f.events),
		WithScheduler(f.sched),
		WithClock(func() time.Time { return epoch }),
	}
	f.ctl = New(f.store, append(base, opts...)...)
	return f
}

func amount(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

// trip creates a group "Trip" owned by A with members B and C.
func (f *fixture) trip(t *testing.T) uint64 {
	t.Helper()
	id, err := f.ctl.CreateGroup(context.Background(), "A", "Trip", []string{"B", "C"}, 0)
	require.NoError(t, err)
	f.events.Reset()
	return id
}

func (f *fixture) expense(t *testing.T, caller string, groupID uint64, amt int64, split ...string) uint64 {
	t.Helper()
	id, err := f.ctl.AddExpense(context.Background(), caller, NewExpense{
		GroupID:      groupID,
		Description:  "Dinner",
		Amount:       amount(amt),
		Category:     models.CategoryFood,
		SplitBetween: split,
	})
	require.NoError(t, err)
	return id
}

func balanceStrings(balances []models.Balance) []string {
	out := make([]string, len(balances))
	for i, b := range balances {
		out[i] = fmt.Sprintf("%s->%s:%s", b.From, b.To, b.Amount)
	}
	return out
}

func TestCreateGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.ctl.CreateGroup(ctx, "alice", "Lisbon trip", []string{"bob", "carol", "bob"}, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	group, err := f.ctl.Group(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "carol", "alice"}, group.Members)
	assert.Equal(t, "alice", group.Creator)
	assert.Equal(t, models.GroupStatusActive, group.Status)
	assert.Equal(t, epoch.UnixMilli(), group.CreatedAt)
	assert.True(t, group.TotalExpenses.IsZero())
	assert.Zero(t, group.ExpenseCount)

	for _, m := range []string{"alice", "bob", "carol"} {
		groups, err := f.ctl.UserGroups(ctx, m)
		require.NoError(t, err)
		require.Len(t, groups, 1, "member %s", m)
		assert.Equal(t, id, groups[0].ID)
	}

	assert.Equal(t, []string{"GroupCreated:1:Lisbon trip:alice"}, f.events.Texts())
	assert.Empty(t, f.sched.triggers)

	second, err := f.ctl.CreateGroup(ctx, "bob", "Rent", nil, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), second)
}

func TestCreateGroupValidation(t *testing.T) {
	members := func(n int) []string {
		out := make([]string, n)
		for i := range out {
			out[i] = fmt.Sprintf("m%02d", i)
		}
		return out
	}

	tests := []struct {
		name           string
		caller         string
		groupName      string
		members        []string
		settlementDate int64
		noScheduler    bool
		wantErr        error
	}{
		{name: "no caller", groupName: "Trip", wantErr: ErrNoCaller},
		{name: "empty name", caller: "A", groupName: "", wantErr: ErrInvalidGroupName},
		{name: "name too long", caller: "A", groupName: strings.Repeat("x", 51), wantErr: ErrInvalidGroupName},
		{name: "name at limit", caller: "A", groupName: strings.Repeat("x", 50)},
		{name: "empty member", caller: "A", groupName: "Trip", members: []string{"B", ""}, wantErr: ErrInvalidMember},
		{name: "creator pushes past limit", caller: "A", groupName: "Trip", members: members(20), wantErr: ErrTooManyMembers},
		{name: "creator fills last seat", caller: "A", groupName: "Trip", members: members(19)},
		{name: "creator already listed", caller: "m00", groupName: "Trip", members: members(20)},
		{name: "duplicates do not count", caller: "A", groupName: "Trip", members: append(members(19), members(19)...)},
		{name: "settlement date in the past", caller: "A", groupName: "Trip", settlementDate: epoch.UnixMilli() - 1, wantErr: ErrSettlementDatePast},
		{name: "settlement date now", caller: "A", groupName: "Trip", settlementDate: epoch.UnixMilli(), wantErr: ErrSettlementDatePast},
		{name: "no scheduler", caller: "A", groupName: "Trip", settlementDate: epoch.UnixMilli() + 1000, noScheduler: true, wantErr: ErrNoScheduler},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts []Option
			if tt.noScheduler {
				opts = append(opts, WithScheduler(nil))
			}
			f := newFixture(t, opts...)
			ctx := context.Background()

			_, err := f.ctl.CreateGroup(ctx, tt.caller, tt.groupName, tt.members, tt.settlementDate)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}

			require.ErrorIs(t, err, tt.wantErr)
			exists, err := f.store.GroupExists(ctx, 1)
			require.NoError(t, err)
			assert.False(t, exists, "rejected request must not persist a group")
			assert.Empty(t, f.events.Events())
		})
	}
}

func TestCreateGroupSchedulesSettlement(t *testing.T) {
	f := newFixture(t, WithSettlementWindow(time.Minute))
	ctx := context.Background()
	due := epoch.Add(24 * time.Hour)

	id, err := f.ctl.CreateGroup(ctx, "A", "Trip", []string{"B"}, due.UnixMilli())
	require.NoError(t, err)

	require.Len(t, f.sched.triggers, 1)
	trigger := f.sched.triggers[0]
	assert.Equal(t, id, trigger.GroupID)
	assert.True(t, trigger.NotBefore.Equal(due))
	assert.True(t, trigger.NotAfter.Equal(due.Add(time.Minute)))

	assert.Equal(t, []string{
		"GroupCreated:1:Trip:A",
		fmt.Sprintf("SettlementScheduled:1:%d", due.UnixMilli()),
	}, f.events.Texts())
}

func TestCreateGroupDiscardsGroupWhenSchedulingFails(t *testing.T) {
	f := newFixture(t)
	f.sched.err = errors.New("scheduler down")
	ctx := context.Background()

	_, err := f.ctl.CreateGroup(ctx, "A", "Trip", []string{"B"}, epoch.Add(time.Hour).UnixMilli())
	require.Error(t, err)

	exists, err := f.store.GroupExists(ctx, 1)
	require.NoError(t, err)
	assert.False(t, exists)
	ids, err := f.store.UserGroupIDs(ctx, "B")
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Empty(t, f.events.Events())

	f.sched.err = nil
	id, err := f.ctl.CreateGroup(ctx, "A", "Trip", []string{"B"}, epoch.Add(time.Hour).UnixMilli())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), id, "a discarded group keeps its id")
	require.Len(t, f.sched.triggers, 1)
	assert.Equal(t, id, f.sched.triggers[0].GroupID)
}

// commitFailure rolls back every unit after it runs, as a failed commit would.
type commitFailure struct {
	*memory.Store
}

func (s commitFailure) Atomic(ctx context.Context, fn func(ctx context.Context, repo storage.Repository) error) error {
	return s.Store.Atomic(ctx, func(ctx context.Context, repo storage.Repository) error {
		if err := fn(ctx, repo); err != nil {
			return err
		}
		return errors.New("commit failed")
	})
}

func TestCreateGroupSchedulesOnlyAfterCommit(t *testing.T) {
	store := memory.New()
	sched := &fakeScheduler{}
	events := &notify.Recorder{}
	ctl := New(commitFailure{store},
		WithScheduler(sched),
		WithNotifier(events),
		WithClock(func() time.Time { return epoch }),
	)
	ctx := context.Background()

	_, err := ctl.CreateGroup(ctx, "A", "Trip", []string{"B"}, epoch.Add(time.Hour).UnixMilli())
	require.Error(t, err)
	assert.Empty(t, sched.triggers)
	assert.Empty(t, events.Events())

	// The next group reuses id 1 and must not inherit a trigger.
	other := New(store, WithScheduler(sched), WithClock(func() time.Time { return epoch }))
	id, err := other.CreateGroup(ctx, "C", "Flat", nil, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
	assert.Empty(t, sched.triggers)
}

func TestAddMember(t *testing.T) {
	ctx := context.Background()

	t.Run("creator adds member", func(t *testing.T) {
		f := newFixture(t)
		id := f.trip(t)

		require.NoError(t, f.ctl.AddMember(ctx, "A", id, "D"))

		group, err := f.ctl.Group(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []string{"B", "C", "A", "D"}, group.Members)
		isMember, err := f.ctl.IsMember(ctx, id, "D")
		require.NoError(t, err)
		assert.True(t, isMember)
		assert.Equal(t, []string{"MemberAdded:1:D"}, f.events.Texts())
	})

	t.Run("existing member is a no-op", func(t *testing.T) {
		f := newFixture(t)
		id := f.trip(t)

		require.NoError(t, f.ctl.AddMember(ctx, "A", id, "B"))

		group, err := f.ctl.Group(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []string{"B", "C", "A"}, group.Members)
		assert.Empty(t, f.events.Events())
	})

	t.Run("errors", func(t *testing.T) {
		f := newFixture(t)
		id := f.trip(t)

		assert.ErrorIs(t, f.ctl.AddMember(ctx, "B", id, "D"), ErrNotCreator)
		assert.ErrorIs(t, f.ctl.AddMember(ctx, "A", 99, "D"), ErrGroupNotFound)
		assert.ErrorIs(t, f.ctl.AddMember(ctx, "A", id, ""), ErrInvalidMember)
		assert.ErrorIs(t, f.ctl.AddMember(ctx, "", id, "D"), ErrNoCaller)

		_, err := f.ctl.CloseGroup(ctx, "A", id)
		require.NoError(t, err)
		assert.ErrorIs(t, f.ctl.AddMember(ctx, "A", id, "D"), ErrGroupNotActive)
	})

	t.Run("full group", func(t *testing.T) {
		f := newFixture(t)
		id := f.trip(t)
		for i := 3; i < MaxMembers; i++ {
			require.NoError(t, f.ctl.AddMember(ctx, "A", id, fmt.Sprintf("m%02d", i)))
		}

		err := f.ctl.AddMember(ctx, "A", id, "late")
		assert.ErrorIs(t, err, ErrGroupFull)
		assert.ErrorIs(t, err, ErrStateConflict)
	})
}

func TestDinnerScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.trip(t)

	f.expense(t, "A", id, 90, "A", "B", "C")

	balances, err := f.ctl.Balances(ctx, id)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"B->A:30", "C->A:30"}, balanceStrings(balances))

	_, err = f.ctl.SettleDebt(ctx, "B", id, "A", amount(30))
	require.NoError(t, err)

	balances, err = f.ctl.Balances(ctx, id)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"C->A:30"}, balanceStrings(balances))

	for member, want := range map[string]int64{"A": 30, "B": 0, "C": -30} {
		got, err := f.ctl.MemberBalance(ctx, id, member)
		require.NoError(t, err)
		assert.Equal(t, want, got, "member %s", member)
	}

	assert.Equal(t, []string{
		"ExpenseAdded:1:1:90",
		"DebtSettled:1:B:A:30",
	}, f.events.Texts())
}

func TestReverseCancellationScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.trip(t)

	f.expense(t, "A", id, 100, "A", "B")
	f.expense(t, "B", id, 20, "A", "B")

	balances, err := f.ctl.Balances(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"B->A:40"}, balanceStrings(balances))
}

func TestLeaveGroupRequiresZeroBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.trip(t)
	f.expense(t, "A", id, 90, "A", "B", "C")

	for _, m := range []string{"A", "B", "C"} {
		balance, err := f.ctl.MemberBalance(ctx, id, m)
		require.NoError(t, err)
		require.NotZero(t, balance)

		err = f.ctl.LeaveGroup(ctx, m, id)
		assert.ErrorIs(t, err, ErrSettleFirst, "member %s", m)
	}

	_, err := f.ctl.SettleDebt(ctx, "B", id, "A", amount(30))
	require.NoError(t, err)
	f.events.Reset()

	balance, err := f.ctl.MemberBalance(ctx, id, "B")
	require.NoError(t, err)
	require.Zero(t, balance)
	require.NoError(t, f.ctl.LeaveGroup(ctx, "B", id))

	group, err := f.ctl.Group(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A"}, group.Members)
	groups, err := f.ctl.UserGroups(ctx, "B")
	require.NoError(t, err)
	assert.Empty(t, groups)
	assert.Equal(t, []string{"MemberLeft:1:B"}, f.events.Texts())

	// Past splits still name B.
	balances, err := f.ctl.Balances(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"C->A:30"}, balanceStrings(balances))

	assert.ErrorIs(t, f.ctl.LeaveGroup(ctx, "B", id), ErrNotMember)
	assert.ErrorIs(t, f.ctl.LeaveGroup(ctx, "B", 99), ErrGroupNotFound)
}

func TestLeaveGroupWhenNeverInvolved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.trip(t)
	f.expense(t, "A", id, 90, "A", "B")

	require.NoError(t, f.ctl.LeaveGroup(ctx, "C", id))

	_, err := f.ctl.CloseGroup(ctx, "A", id)
	require.NoError(t, err)
	assert.ErrorIs(t, f.ctl.LeaveGroup(ctx, "A", id), ErrGroupNotActive)
}

func TestExpenseTotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.trip(t)

	first := f.expense(t, "A", id, 90)
	second := f.expense(t, "B", id, 45, "B", "C")
	f.expense(t, "C", id, 15, "A", "C")

	group, err := f.ctl.Group(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "150", group.TotalExpenses.String())
	assert.Equal(t, uint32(3), group.ExpenseCount)

	require.NoError(t, f.ctl.DeleteExpense(ctx, "B", second))

	group, err = f.ctl.Group(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "105", group.TotalExpenses.String())
	assert.Equal(t, uint32(2), group.ExpenseCount)

	expenses, err := f.ctl.GroupExpenses(ctx, id)
	require.NoError(t, err)
	require.Len(t, expenses, 2)
	assert.Equal(t, first, expenses[0].ID)
	assert.Equal(t, []string{"B", "C", "A"}, expenses[0].SplitBetween, "empty split means every member")

	_, err = f.ctl.Expense(ctx, second)
	assert.ErrorIs(t, err, ErrExpenseNotFound)

	assert.Contains(t, f.events.Texts(), "ExpenseDeleted:1:2")
}

func TestAddExpenseValidation(t *testing.T) {
	huge := models.MaxAmount.Add(decimal.NewFromInt(1))

	tests := []struct {
		name    string
		caller  string
		in      NewExpense
		wantErr error
	}{
		{name: "no caller", in: NewExpense{GroupID: 1, Description: "x", Amount: amount(1)}, wantErr: ErrNoCaller},
		{name: "empty description", caller: "A", in: NewExpense{GroupID: 1, Amount: amount(1)}, wantErr: ErrInvalidDescription},
		{name: "description too long", caller: "A", in: NewExpense{GroupID: 1, Description: strings.Repeat("x", 201), Amount: amount(1)}, wantErr: ErrInvalidDescription},
		{name: "zero amount", caller: "A", in: NewExpense{GroupID: 1, Description: "x", Amount: amount(0)}, wantErr: ErrInvalidAmount},
		{name: "negative amount", caller: "A", in: NewExpense{GroupID: 1, Description: "x", Amount: amount(-5)}, wantErr: ErrInvalidAmount},
		{name: "fractional amount", caller: "A", in: NewExpense{GroupID: 1, Description: "x", Amount: decimal.RequireFromString("1.5")}, wantErr: ErrInvalidAmount},
		{name: "amount above 256 bits", caller: "A", in: NewExpense{GroupID: 1, Description: "x", Amount: huge}, wantErr: ErrInvalidAmount},
		{name: "missing group", caller: "A", in: NewExpense{GroupID: 9, Description: "x", Amount: amount(1)}, wantErr: ErrGroupNotFound},
		{name: "outsider", caller: "Z", in: NewExpense{GroupID: 1, Description: "x", Amount: amount(1)}, wantErr: ErrNotMember},
		{name: "split outsider", caller: "A", in: NewExpense{GroupID: 1, Description: "x", Amount: amount(1), SplitBetween: []string{"A", "Z"}}, wantErr: ErrSplitNotMember},
		{name: "description at limit", caller: "A", in: NewExpense{GroupID: 1, Description: strings.Repeat("x", 200), Amount: amount(1)}},
		{name: "largest amount", caller: "A", in: NewExpense{GroupID: 1, Description: "x", Amount: models.MaxAmount}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			f.trip(t)

			_, err := f.ctl.AddExpense(ctx, tt.caller, tt.in)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)

			group, err := f.ctl.Group(ctx, 1)
			require.NoError(t, err)
			assert.Zero(t, group.ExpenseCount)
			assert.True(t, group.TotalExpenses.IsZero())
			assert.Empty(t, f.events.Events())
		})
	}
}

func TestAddExpenseLimits(t *testing.T) {
	ctx := context.Background()

	t.Run("group total stays within 256 bits", func(t *testing.T) {
		f := newFixture(t)
		id := f.trip(t)
		_, err := f.ctl.AddExpense(ctx, "A", NewExpense{GroupID: id, Description: "x", Amount: models.MaxAmount})
		require.NoError(t, err)

		_, err = f.ctl.AddExpense(ctx, "A", NewExpense{GroupID: id, Description: "x", Amount: amount(1)})
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("expense count", func(t *testing.T) {
		f := newFixture(t)
		id := f.trip(t)
		for range MaxExpensesPerGroup {
			f.expense(t, "A", id, 3)
		}

		_, err := f.ctl.AddExpense(ctx, "A", NewExpense{GroupID: id, Description: "x", Amount: amount(3)})
		assert.ErrorIs(t, err, ErrTooManyExpenses)
	})

	t.Run("inactive group", func(t *testing.T) {
		f := newFixture(t)
		id := f.trip(t)
		require.NoError(t, f.ctl.CancelGroup(ctx, "A", id))

		_, err := f.ctl.AddExpense(ctx, "A", NewExpense{GroupID: id, Description: "x", Amount: amount(3)})
		assert.ErrorIs(t, err, ErrGroupNotActive)
	})
}

func TestDeleteExpense(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.trip(t)
	expenseID := f.expense(t, "A", id, 90, "A", "B", "C")

	assert.ErrorIs(t, f.ctl.DeleteExpense(ctx, "B", expenseID), ErrNotPayer)
	assert.ErrorIs(t, f.ctl.DeleteExpense(ctx, "A", 42), ErrExpenseNotFound)

	_, err := f.ctl.SettleDebt(ctx, "B", id, "A", amount(30))
	require.NoError(t, err)

	require.NoError(t, f.ctl.DeleteExpense(ctx, "A", expenseID))

	// The settlement made against the deleted expense stays on record.
	settlements, err := f.ctl.Settlements(ctx, id)
	require.NoError(t, err)
	require.Len(t, settlements, 1)

	balanceB, err := f.ctl.MemberBalance(ctx, id, "B")
	require.NoError(t, err)
	assert.Equal(t, int64(30), balanceB)
	balances, err := f.ctl.Balances(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, balances)
}

func TestDeleteExpenseAfterClose(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.trip(t)
	expenseID := f.expense(t, "A", id, 90)

	_, err := f.ctl.CloseGroup(ctx, "A", id)
	require.NoError(t, err)

	require.NoError(t, f.ctl.DeleteExpense(ctx, "A", expenseID))
	group, err := f.ctl.Group(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, group.ExpenseCount)
}

func TestSettleDebt(t *testing.T) {
	ctx := context.Background()

	t.Run("records exact amount", func(t *testing.T) {
		f := newFixture(t)
		id := f.trip(t)
		f.expense(t, "A", id, 90, "A", "B", "C")

		settlementID, err := f.ctl.SettleDebt(ctx, "C", id, "A", amount(50))
		require.NoError(t, err)
		assert.Equal(t, uint64(1), settlementID)

		settlements, err := f.ctl.Settlements(ctx, id)
		require.NoError(t, err)
		require.Len(t, settlements, 1)
		s := settlements[0]
		assert.Equal(t, "C", s.From)
		assert.Equal(t, "A", s.To)
		assert.Equal(t, "50", s.Amount.String())
		assert.Equal(t, epoch.UnixMilli(), s.SettledAt)

		// Overpayment drops the edge without reversing it.
		balances, err := f.ctl.Balances(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []string{"B->A:30"}, balanceStrings(balances))
	})

	t.Run("errors", func(t *testing.T) {
		f := newFixture(t)
		id := f.trip(t)

		tests := []struct {
			caller  string
			groupID uint64
			to      string
			amount  decimal.Decimal
			wantErr error
		}{
			{caller: "", groupID: id, to: "A", amount: amount(1), wantErr: ErrNoCaller},
			{caller: "B", groupID: id, to: "B", amount: amount(1), wantErr: ErrSelfSettlement},
			{caller: "B", groupID: id, to: "A", amount: amount(0), wantErr: ErrInvalidAmount},
			{caller: "B", groupID: 99, to: "A", amount: amount(1), wantErr: ErrGroupNotFound},
			{caller: "Z", groupID: id, to: "A", amount: amount(1), wantErr: ErrNotMember},
			{caller: "B", groupID: id, to: "Z", amount: amount(1), wantErr: ErrRecipientNotMember},
		}
		for _, tt := range tests {
			_, err := f.ctl.SettleDebt(ctx, tt.caller, tt.groupID, tt.to, tt.amount)
			assert.ErrorIs(t, err, tt.wantErr, "caller=%q to=%q", tt.caller, tt.to)
		}

		require.NoError(t, f.ctl.CancelGroup(ctx, "A", id))
		_, err := f.ctl.SettleDebt(ctx, "B", id, "A", amount(1))
		assert.ErrorIs(t, err, ErrGroupNotActive)
	})

	t.Run("failed transfer records nothing", func(t *testing.T) {
		var transfers []string
		failing := TransferFunc(func(_ context.Context, _ uint64, from, to string, amt decimal.Decimal) error {
			transfers = append(transfers, from+"->"+to+":"+amt.String())
			return errors.New("insufficient funds")
		})
		f := newFixture(t, WithTransferer(failing))
		id := f.trip(t)

		_, err := f.ctl.SettleDebt(ctx, "B", id, "A", amount(10))
		require.Error(t, err)
		assert.Equal(t, []string{"B->A:10"}, transfers)

		settlements, err := f.ctl.Settlements(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, settlements)
		assert.Empty(t, f.events.Events())
	})
}

func TestCloseGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.trip(t)
	f.expense(t, "A", id, 90, "A", "B", "C")

	_, err := f.ctl.CloseGroup(ctx, "B", id)
	assert.ErrorIs(t, err, ErrNotCreator)

	balances, err := f.ctl.CloseGroup(ctx, "A", id)
	require.NoError(t, err)
	assert.Equal(t, []string{"B->A:30", "C->A:30"}, balanceStrings(balances))

	group, err := f.ctl.Group(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.GroupStatusSettled, group.Status)

	assert.Equal(t, []string{
		"ExpenseAdded:1:1:90",
		"AutoSettlement:1:B:A:30",
		"AutoSettlement:1:C:A:30",
		"GroupSettled:1",
	}, f.events.Texts())

	_, err = f.ctl.CloseGroup(ctx, "A", id)
	assert.ErrorIs(t, err, ErrGroupNotActive)
}

func TestAutoSettleIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.trip(t)
	f.expense(t, "A", id, 90, "A", "B", "C")
	f.events.Reset()

	balances, err := f.ctl.AutoSettle(ctx, id)
	require.NoError(t, err)
	assert.Len(t, balances, 2)
	assert.Len(t, f.events.Events(), 3)

	f.events.Reset()
	for range 3 {
		balances, err = f.ctl.AutoSettle(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, balances)
		require.NoError(t, f.ctl.SettleDue(ctx, id))
	}
	assert.Empty(t, f.events.Events(), "replays must not emit events")

	_, err = f.ctl.AutoSettle(ctx, 99)
	assert.ErrorIs(t, err, ErrGroupNotFound)
	assert.NoError(t, f.ctl.SettleDue(ctx, 99), "trigger for a missing group is dropped")
}

func TestAutoSettleSkipsCancelledGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.trip(t)
	f.expense(t, "A", id, 90)

	require.NoError(t, f.ctl.CancelGroup(ctx, "A", id))
	assert.Equal(t, []string{"ExpenseAdded:1:1:90", "GroupCancelled:1"}, f.events.Texts())

	balances, err := f.ctl.AutoSettle(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, balances)

	group, err := f.ctl.Group(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.GroupStatusCancelled, group.Status)

	assert.ErrorIs(t, f.ctl.CancelGroup(ctx, "A", id), ErrGroupNotActive)
	assert.ErrorIs(t, f.ctl.CancelGroup(ctx, "B", id), ErrNotCreator)
}

func TestNotifierFailureDoesNotFailOperation(t *testing.T) {
	failing := notify.NotifierFunc(func(context.Context, notify.Event) error {
		return errors.New("broker down")
	})
	f := newFixture(t, WithNotifier(failing))

	id, err := f.ctl.CreateGroup(context.Background(), "A", "Trip", nil, 0)
	require.NoError(t, err)

	exists, err := f.store.GroupExists(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestConservationAcrossOperations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.trip(t)
	require.NoError(t, f.ctl.AddMember(ctx, "A", id, "D"))

	f.expense(t, "A", id, 100)
	f.expense(t, "B", id, 37, "B", "C", "D")
	doomed := f.expense(t, "C", id, 64, "A", "C")
	f.expense(t, "D", id, 11, "A", "B")
	_, err := f.ctl.SettleDebt(ctx, "B", id, "A", amount(12))
	require.NoError(t, err)
	require.NoError(t, f.ctl.DeleteExpense(ctx, "C", doomed))

	group, err := f.ctl.Group(ctx, id)
	require.NoError(t, err)

	var sum int64
	for _, m := range group.Members {
		balance, err := f.ctl.MemberBalance(ctx, id, m)
		require.NoError(t, err)
		sum += balance
	}
	assert.Zero(t, sum)

	assert.Equal(t, "148", group.TotalExpenses.String())
	assert.Equal(t, uint32(3), group.ExpenseCount)

	summaries, err := f.ctl.Summaries(ctx, id)
	require.NoError(t, err)
	require.Len(t, summaries, 4)
	var net int64
	for _, s := range summaries {
		net += s.Net
	}
	assert.Zero(t, net)
}

func TestBalancesPrecisionCeiling(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.trip(t)

	_, err := f.ctl.AddExpense(ctx, "A", NewExpense{
		GroupID:      id,
		Description:  "Yacht",
		Amount:       decimal.RequireFromString("36893488147419103232"), // 2^65
		SplitBetween: []string{"A", "B"},
	})
	require.NoError(t, err, "wide amounts are stored")

	_, err = f.ctl.Balances(ctx, id)
	assert.ErrorIs(t, err, calculator.ErrPrecisionCeiling)
	_, err = f.ctl.MemberBalance(ctx, id, "B")
	assert.ErrorIs(t, err, calculator.ErrPrecisionCeiling)
}

func TestQueriesOnMissingGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ctl.Group(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.ctl.GroupExpenses(ctx, 1)
	assert.ErrorIs(t, err, ErrGroupNotFound)
	_, err = f.ctl.Settlements(ctx, 1)
	assert.ErrorIs(t, err, ErrGroupNotFound)
	_, err = f.ctl.Balances(ctx, 1)
	assert.ErrorIs(t, err, ErrGroupNotFound)

	isMember, err := f.ctl.IsMember(ctx, 1, "A")
	require.NoError(t, err)
	assert.False(t, isMember)
}

// viewCounter counts read units.
type viewCounter struct {
	*memory.Store
	views int
}

func (s *viewCounter) View(ctx context.Context, fn func(ctx context.Context, repo storage.Repository) error) error {
	s.views++
	return s.Store.View(ctx, fn)
}

func TestSummaryReadsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.trip(t)
	f.expense(t, "A", id, 90, "A", "B", "C")
	_, err := f.ctl.SettleDebt(ctx, "B", id, "A", amount(30))
	require.NoError(t, err)

	store := &viewCounter{Store: f.store}
	ctl := New(store)

	snap, summaries, err := ctl.Summary(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, store.views)

	assert.Equal(t, []string{"C->A:30"}, balanceStrings(snap.Balances))
	assert.Equal(t, []models.MemberSummary{
		{Member: "B", Paid: 0, Owed: 30, Net: 0},
		{Member: "C", Paid: 0, Owed: 30, Net: -30},
		{Member: "A", Paid: 90, Owed: 30, Net: 30},
	}, summaries)

	_, _, err = ctl.Summary(ctx, 99)
	assert.ErrorIs(t, err, ErrGroupNotFound)
}
