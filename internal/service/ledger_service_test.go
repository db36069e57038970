package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/mmynk/fairshare/internal/auth"
	"github.com/mmynk/fairshare/internal/ledger"
	"github.com/mmynk/fairshare/internal/middleware"
	"github.com/mmynk/fairshare/internal/notify"
	"github.com/mmynk/fairshare/internal/storage/sqlite"
	"github.com/mmynk/fairshare/internal/wire"
	"github.com/mmynk/fairshare/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	client  *api.LedgerServiceClient
	jwt     *auth.JWTManager
	events  *notify.Recorder
	observe int
}

// setupTestServer creates a test server backed by a temp-file SQLite database.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ts := &testServer{
		jwt:    auth.NewJWTManager("test-secret", time.Hour),
		events: &notify.Recorder{},
	}

	ctrl := ledger.New(store, ledger.WithNotifier(ts.events))
	svc := NewLedgerService(ctrl, WithBalanceObserver(func(time.Duration) { ts.observe++ }))

	path, handler := api.NewLedgerServiceHandler(svc, connect.WithInterceptors(
		middleware.RequireAuth(ts.jwt, api.ReadProcedures...),
		middleware.LoggingInterceptor(),
	))

	mux := http.NewServeMux()
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	ts.client = api.NewLedgerServiceClient(http.DefaultClient, server.URL)
	return ts
}

// as builds a request authenticated as caller.
func as[T any](t *testing.T, ts *testServer, caller string, msg *T) *connect.Request[T] {
	t.Helper()
	req := connect.NewRequest(msg)
	token, err := ts.jwt.Generate(caller)
	require.NoError(t, err)
	req.Header().Set("Authorization", "Bearer "+token)
	return req
}

func createTrip(t *testing.T, ts *testServer) uint64 {
	t.Helper()
	resp, err := ts.client.CreateGroup(context.Background(), as(t, ts, "alice", &api.CreateGroupRequest{
		Name:    "Trip",
		Members: []string{"bob", "carol"},
	}))
	require.NoError(t, err)
	return resp.Msg.GroupID
}

func addExpense(t *testing.T, ts *testServer, caller string, groupID uint64, amount string, split ...string) uint64 {
	t.Helper()
	resp, err := ts.client.AddExpense(context.Background(), as(t, ts, caller, &api.AddExpenseRequest{
		GroupID:      groupID,
		Description:  "Dinner",
		Amount:       amount,
		SplitBetween: split,
	}))
	require.NoError(t, err)
	return resp.Msg.ExpenseID
}

func TestCreateGroup(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()

	groupID := createTrip(t, ts)
	assert.Equal(t, uint64(1), groupID)

	resp, err := ts.client.GetGroup(ctx, connect.NewRequest(&api.GetGroupRequest{GroupID: groupID}))
	require.NoError(t, err)

	group := resp.Msg.Group
	assert.Equal(t, "Trip", group.Name)
	assert.Equal(t, "alice", group.Creator)
	assert.Equal(t, []string{"alice", "bob", "carol"}, group.Members)
	assert.Equal(t, "Active", group.Status)
	assert.Equal(t, "0", group.TotalExpenses)

	assert.Equal(t, []string{"GroupCreated:1:Trip:alice"}, ts.events.Texts())
}

func TestDinnerScenario(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()
	groupID := createTrip(t, ts)

	addExpense(t, ts, "alice", groupID, "90")
	addExpense(t, ts, "bob", groupID, "30")

	balances, err := ts.client.CalculateBalances(ctx, connect.NewRequest(&api.CalculateBalancesRequest{GroupID: groupID}))
	require.NoError(t, err)
	assert.Equal(t, []api.Balance{
		{From: "bob", To: "alice", Amount: "20"},
		{From: "carol", To: "alice", Amount: "30"},
		{From: "carol", To: "bob", Amount: "10"},
	}, balances.Msg.Balances)
	assert.Equal(t, 1, ts.observe)

	member, err := ts.client.GetMemberBalance(ctx, connect.NewRequest(&api.GetMemberBalanceRequest{GroupID: groupID, Member: "alice"}))
	require.NoError(t, err)
	assert.Equal(t, int64(50), member.Msg.Balance)

	summary, err := ts.client.GetGroupSummary(ctx, connect.NewRequest(&api.GetGroupSummaryRequest{GroupID: groupID}))
	require.NoError(t, err)
	assert.Equal(t, "120", summary.Msg.Group.TotalExpenses)
	assert.Equal(t, uint32(2), summary.Msg.Group.ExpenseCount)
	assert.Equal(t, []api.MemberSummary{
		{Member: "alice", Net: 50, Paid: 90, Owed: 40},
		{Member: "bob", Net: -10, Paid: 30, Owed: 40},
		{Member: "carol", Net: -40, Paid: 0, Owed: 40},
	}, summary.Msg.Summaries)

	_, err = ts.client.SettleDebt(ctx, as(t, ts, "bob", &api.SettleDebtRequest{GroupID: groupID, To: "alice", Amount: "20"}))
	require.NoError(t, err)

	balances, err = ts.client.CalculateBalances(ctx, connect.NewRequest(&api.CalculateBalancesRequest{GroupID: groupID}))
	require.NoError(t, err)
	assert.Equal(t, []api.Balance{
		{From: "carol", To: "alice", Amount: "30"},
		{From: "carol", To: "bob", Amount: "10"},
	}, balances.Msg.Balances)

	settlements, err := ts.client.GetSettlements(ctx, connect.NewRequest(&api.GetSettlementsRequest{GroupID: groupID}))
	require.NoError(t, err)
	require.Len(t, settlements.Msg.Settlements, 1)
	assert.Equal(t, "bob", settlements.Msg.Settlements[0].From)

	closed, err := ts.client.CloseGroup(ctx, as(t, ts, "alice", &api.CloseGroupRequest{GroupID: groupID}))
	require.NoError(t, err)
	assert.Len(t, closed.Msg.Balances, 2)

	balances, err = ts.client.CalculateBalances(ctx, connect.NewRequest(&api.CalculateBalancesRequest{GroupID: groupID}))
	require.NoError(t, err)
	assert.Empty(t, balances.Msg.Balances)
}

func TestExpenseQueries(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()
	groupID := createTrip(t, ts)

	first := addExpense(t, ts, "alice", groupID, "60", "alice", "bob")
	addExpense(t, ts, "carol", groupID, "9")

	expense, err := ts.client.GetExpense(ctx, connect.NewRequest(&api.GetExpenseRequest{ExpenseID: first}))
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, expense.Msg.Expense.SplitBetween)
	assert.Equal(t, "Food", expense.Msg.Expense.Category)

	list, err := ts.client.GetGroupExpenses(ctx, connect.NewRequest(&api.GetGroupExpensesRequest{GroupID: groupID}))
	require.NoError(t, err)
	require.Len(t, list.Msg.Expenses, 2)
	assert.Equal(t, []string{"alice", "bob", "carol"}, list.Msg.Expenses[1].SplitBetween)

	_, err = ts.client.DeleteExpense(ctx, as(t, ts, "alice", &api.DeleteExpenseRequest{ExpenseID: first}))
	require.NoError(t, err)

	group, err := ts.client.GetGroup(ctx, connect.NewRequest(&api.GetGroupRequest{GroupID: groupID}))
	require.NoError(t, err)
	assert.Equal(t, "9", group.Msg.Group.TotalExpenses)
	assert.Equal(t, uint32(1), group.Msg.Group.ExpenseCount)
}

func TestMembership(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()
	groupID := createTrip(t, ts)

	_, err := ts.client.AddMember(ctx, as(t, ts, "alice", &api.AddMemberRequest{GroupID: groupID, Member: "dave"}))
	require.NoError(t, err)

	isMember, err := ts.client.IsMember(ctx, connect.NewRequest(&api.IsMemberRequest{GroupID: groupID, Member: "dave"}))
	require.NoError(t, err)
	assert.True(t, isMember.Msg.IsMember)

	groups, err := ts.client.GetUserGroups(ctx, as(t, ts, "dave", &api.GetUserGroupsRequest{}))
	require.NoError(t, err)
	require.Len(t, groups.Msg.Groups, 1)
	assert.Equal(t, groupID, groups.Msg.Groups[0].ID)

	_, err = ts.client.LeaveGroup(ctx, as(t, ts, "dave", &api.LeaveGroupRequest{GroupID: groupID}))
	require.NoError(t, err)

	isMember, err = ts.client.IsMember(ctx, connect.NewRequest(&api.IsMemberRequest{GroupID: groupID, Member: "dave"}))
	require.NoError(t, err)
	assert.False(t, isMember.Msg.IsMember)
}

func TestErrorCodes(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()
	groupID := createTrip(t, ts)
	addExpense(t, ts, "alice", groupID, "90")

	tests := []struct {
		name string
		call func() error
		want connect.Code
	}{
		{"missing group", func() error {
			_, err := ts.client.GetGroup(ctx, connect.NewRequest(&api.GetGroupRequest{GroupID: 99}))
			return err
		}, connect.CodeNotFound},
		{"unparseable amount", func() error {
			_, err := ts.client.AddExpense(ctx, as(t, ts, "alice", &api.AddExpenseRequest{
				GroupID: groupID, Description: "Taxi", Amount: "ten",
			}))
			return err
		}, connect.CodeInvalidArgument},
		{"fractional amount", func() error {
			_, err := ts.client.AddExpense(ctx, as(t, ts, "alice", &api.AddExpenseRequest{
				GroupID: groupID, Description: "Taxi", Amount: "1.5",
			}))
			return err
		}, connect.CodeInvalidArgument},
		{"non-creator adds member", func() error {
			_, err := ts.client.AddMember(ctx, as(t, ts, "bob", &api.AddMemberRequest{GroupID: groupID, Member: "dave"}))
			return err
		}, connect.CodePermissionDenied},
		{"leave while owing", func() error {
			_, err := ts.client.LeaveGroup(ctx, as(t, ts, "bob", &api.LeaveGroupRequest{GroupID: groupID}))
			return err
		}, connect.CodeFailedPrecondition},
		{"mutation without token", func() error {
			_, err := ts.client.CloseGroup(ctx, connect.NewRequest(&api.CloseGroupRequest{GroupID: groupID}))
			return err
		}, connect.CodeUnauthenticated},
		{"read with bad token", func() error {
			req := connect.NewRequest(&api.GetGroupRequest{GroupID: groupID})
			req.Header().Set("Authorization", "Bearer forged")
			_, err := ts.client.GetGroup(ctx, req)
			return err
		}, connect.CodeUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.Equal(t, tt.want, connect.CodeOf(err))
		})
	}
}

func TestPrecisionCeilingIsOutOfRange(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()
	groupID := createTrip(t, ts)

	// 2^70 split two ways leaves a share above the 64-bit balance range.
	addExpense(t, ts, "alice", groupID, "1180591620717411303424", "alice", "bob")

	_, err := ts.client.CalculateBalances(ctx, connect.NewRequest(&api.CalculateBalancesRequest{GroupID: groupID}))
	require.Error(t, err)
	assert.Equal(t, connect.CodeOutOfRange, connect.CodeOf(err))
}

func TestExportGroup(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()
	groupID := createTrip(t, ts)
	addExpense(t, ts, "alice", groupID, "90")
	_, err := ts.client.SettleDebt(ctx, as(t, ts, "bob", &api.SettleDebtRequest{GroupID: groupID, To: "alice", Amount: "10"}))
	require.NoError(t, err)

	resp, err := ts.client.ExportGroup(ctx, connect.NewRequest(&api.ExportGroupRequest{GroupID: groupID}))
	require.NoError(t, err)

	bundle, err := wire.DecodeBundle(resp.Msg.Data)
	require.NoError(t, err)
	assert.Equal(t, groupID, bundle.Group.ID)
	assert.Equal(t, []string{"alice", "bob", "carol"}, bundle.Group.Members)
	require.Len(t, bundle.Expenses, 1)
	assert.Equal(t, "90", bundle.Expenses[0].Amount.String())
	require.Len(t, bundle.Settlements, 1)
	require.Len(t, bundle.Balances, 2)
	assert.Equal(t, "20", bundle.Balances[0].Amount.String())
}

func TestCancelGroup(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()
	groupID := createTrip(t, ts)

	_, err := ts.client.CancelGroup(ctx, as(t, ts, "alice", &api.CancelGroupRequest{GroupID: groupID}))
	require.NoError(t, err)

	group, err := ts.client.GetGroup(ctx, connect.NewRequest(&api.GetGroupRequest{GroupID: groupID}))
	require.NoError(t, err)
	assert.Equal(t, "Cancelled", group.Msg.Group.Status)

	_, err = ts.client.AddExpense(ctx, as(t, ts, "alice", &api.AddExpenseRequest{
		GroupID: groupID, Description: "Late", Amount: "5",
	}))
	assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))
}
