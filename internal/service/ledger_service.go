// Package service exposes the ledger controller over Connect RPC.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"connectrpc.com/connect"
	"github.com/mmynk/fairshare/internal/ledger"
	"github.com/mmynk/fairshare/internal/middleware"
	"github.com/mmynk/fairshare/internal/models"
	"github.com/mmynk/fairshare/internal/wire"
	"github.com/mmynk/fairshare/pkg/api"
)

var _ api.LedgerServiceHandler = (*LedgerService)(nil)

// LedgerService implements api.LedgerServiceHandler. The caller of every
// mutation is the address the auth interceptor placed in the context.
type LedgerService struct {
	ledger  *ledger.Controller
	observe func(time.Duration)
}

// Option configures a LedgerService.
type Option func(*LedgerService)

// WithBalanceObserver reports the duration of every balance computation.
func WithBalanceObserver(fn func(time.Duration)) Option {
	return func(s *LedgerService) { s.observe = fn }
}

// NewLedgerService creates a LedgerService backed by the given controller.
func NewLedgerService(ctrl *ledger.Controller, opts ...Option) *LedgerService {
	s := &LedgerService{ledger: ctrl, observe: func(time.Duration) {}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *LedgerService) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error) {
	caller := middleware.GetCaller(ctx)
	slog.Info("CreateGroup request received",
		"caller", caller,
		"name", req.Msg.Name,
		"members_count", len(req.Msg.Members),
		"settlement_date", req.Msg.SettlementDate,
	)

	groupID, err := s.ledger.CreateGroup(ctx, caller, req.Msg.Name, req.Msg.Members, req.Msg.SettlementDate)
	if err != nil {
		return nil, fail("CreateGroup", err, "caller", caller)
	}

	slog.Info("Group created", "group_id", groupID)
	return connect.NewResponse(&api.CreateGroupResponse{GroupID: groupID}), nil
}

func (s *LedgerService) GetGroup(ctx context.Context, req *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error) {
	group, err := s.ledger.Group(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, fail("GetGroup", err, "group_id", req.Msg.GroupID)
	}
	return connect.NewResponse(&api.GetGroupResponse{Group: toAPIGroup(group)}), nil
}

// GetUserGroups lists the groups of the requested member, or of the caller
// when no member is given.
func (s *LedgerService) GetUserGroups(ctx context.Context, req *connect.Request[api.GetUserGroupsRequest]) (*connect.Response[api.GetUserGroupsResponse], error) {
	member := req.Msg.Member
	if member == "" {
		member = middleware.GetCaller(ctx)
	}
	if member == "" {
		return nil, fail("GetUserGroups", ledger.ErrInvalidMember)
	}

	groups, err := s.ledger.UserGroups(ctx, member)
	if err != nil {
		return nil, fail("GetUserGroups", err, "member", member)
	}
	return connect.NewResponse(&api.GetUserGroupsResponse{Groups: convert(groups, toAPIGroup)}), nil
}

func (s *LedgerService) AddMember(ctx context.Context, req *connect.Request[api.AddMemberRequest]) (*connect.Response[api.AddMemberResponse], error) {
	caller := middleware.GetCaller(ctx)
	slog.Info("AddMember request received", "caller", caller, "group_id", req.Msg.GroupID, "member", req.Msg.Member)

	if err := s.ledger.AddMember(ctx, caller, req.Msg.GroupID, req.Msg.Member); err != nil {
		return nil, fail("AddMember", err, "group_id", req.Msg.GroupID)
	}
	return connect.NewResponse(&api.AddMemberResponse{}), nil
}

func (s *LedgerService) LeaveGroup(ctx context.Context, req *connect.Request[api.LeaveGroupRequest]) (*connect.Response[api.LeaveGroupResponse], error) {
	caller := middleware.GetCaller(ctx)
	slog.Info("LeaveGroup request received", "caller", caller, "group_id", req.Msg.GroupID)

	if err := s.ledger.LeaveGroup(ctx, caller, req.Msg.GroupID); err != nil {
		return nil, fail("LeaveGroup", err, "group_id", req.Msg.GroupID)
	}
	return connect.NewResponse(&api.LeaveGroupResponse{}), nil
}

func (s *LedgerService) CloseGroup(ctx context.Context, req *connect.Request[api.CloseGroupRequest]) (*connect.Response[api.CloseGroupResponse], error) {
	caller := middleware.GetCaller(ctx)
	slog.Info("CloseGroup request received", "caller", caller, "group_id", req.Msg.GroupID)

	balances, err := s.ledger.CloseGroup(ctx, caller, req.Msg.GroupID)
	if err != nil {
		return nil, fail("CloseGroup", err, "group_id", req.Msg.GroupID)
	}

	slog.Info("Group closed", "group_id", req.Msg.GroupID, "settlements", len(balances))
	return connect.NewResponse(&api.CloseGroupResponse{Balances: toAPIBalances(balances)}), nil
}

func (s *LedgerService) CancelGroup(ctx context.Context, req *connect.Request[api.CancelGroupRequest]) (*connect.Response[api.CancelGroupResponse], error) {
	caller := middleware.GetCaller(ctx)
	slog.Info("CancelGroup request received", "caller", caller, "group_id", req.Msg.GroupID)

	if err := s.ledger.CancelGroup(ctx, caller, req.Msg.GroupID); err != nil {
		return nil, fail("CancelGroup", err, "group_id", req.Msg.GroupID)
	}
	return connect.NewResponse(&api.CancelGroupResponse{}), nil
}

func (s *LedgerService) AddExpense(ctx context.Context, req *connect.Request[api.AddExpenseRequest]) (*connect.Response[api.AddExpenseResponse], error) {
	caller := middleware.GetCaller(ctx)
	slog.Info("AddExpense request received",
		"caller", caller,
		"group_id", req.Msg.GroupID,
		"amount", req.Msg.Amount,
		"split_count", len(req.Msg.SplitBetween),
	)

	amount, err := parseAmount(req.Msg.Amount)
	if err != nil {
		return nil, fail("AddExpense", err, "group_id", req.Msg.GroupID)
	}

	expenseID, err := s.ledger.AddExpense(ctx, caller, ledger.NewExpense{
		GroupID:      req.Msg.GroupID,
		Description:  req.Msg.Description,
		Amount:       amount,
		Category:     models.CategoryFromCode(req.Msg.Category),
		SplitBetween: req.Msg.SplitBetween,
	})
	if err != nil {
		return nil, fail("AddExpense", err, "group_id", req.Msg.GroupID)
	}

	slog.Info("Expense added", "group_id", req.Msg.GroupID, "expense_id", expenseID)
	return connect.NewResponse(&api.AddExpenseResponse{ExpenseID: expenseID}), nil
}

func (s *LedgerService) DeleteExpense(ctx context.Context, req *connect.Request[api.DeleteExpenseRequest]) (*connect.Response[api.DeleteExpenseResponse], error) {
	caller := middleware.GetCaller(ctx)
	slog.Info("DeleteExpense request received", "caller", caller, "expense_id", req.Msg.ExpenseID)

	if err := s.ledger.DeleteExpense(ctx, caller, req.Msg.ExpenseID); err != nil {
		return nil, fail("DeleteExpense", err, "expense_id", req.Msg.ExpenseID)
	}
	return connect.NewResponse(&api.DeleteExpenseResponse{}), nil
}

func (s *LedgerService) GetGroupExpenses(ctx context.Context, req *connect.Request[api.GetGroupExpensesRequest]) (*connect.Response[api.GetGroupExpensesResponse], error) {
	expenses, err := s.ledger.GroupExpenses(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, fail("GetGroupExpenses", err, "group_id", req.Msg.GroupID)
	}
	return connect.NewResponse(&api.GetGroupExpensesResponse{Expenses: convert(expenses, toAPIExpense)}), nil
}

func (s *LedgerService) GetExpense(ctx context.Context, req *connect.Request[api.GetExpenseRequest]) (*connect.Response[api.GetExpenseResponse], error) {
	expense, err := s.ledger.Expense(ctx, req.Msg.ExpenseID)
	if err != nil {
		return nil, fail("GetExpense", err, "expense_id", req.Msg.ExpenseID)
	}
	return connect.NewResponse(&api.GetExpenseResponse{Expense: toAPIExpense(expense)}), nil
}

func (s *LedgerService) SettleDebt(ctx context.Context, req *connect.Request[api.SettleDebtRequest]) (*connect.Response[api.SettleDebtResponse], error) {
	caller := middleware.GetCaller(ctx)
	slog.Info("SettleDebt request received",
		"caller", caller,
		"group_id", req.Msg.GroupID,
		"to", req.Msg.To,
		"amount", req.Msg.Amount,
	)

	amount, err := parseAmount(req.Msg.Amount)
	if err != nil {
		return nil, fail("SettleDebt", err, "group_id", req.Msg.GroupID)
	}

	settlementID, err := s.ledger.SettleDebt(ctx, caller, req.Msg.GroupID, req.Msg.To, amount)
	if err != nil {
		return nil, fail("SettleDebt", err, "group_id", req.Msg.GroupID)
	}

	slog.Info("Debt settled", "group_id", req.Msg.GroupID, "settlement_id", settlementID)
	return connect.NewResponse(&api.SettleDebtResponse{SettlementID: settlementID}), nil
}

func (s *LedgerService) GetSettlements(ctx context.Context, req *connect.Request[api.GetSettlementsRequest]) (*connect.Response[api.GetSettlementsResponse], error) {
	settlements, err := s.ledger.Settlements(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, fail("GetSettlements", err, "group_id", req.Msg.GroupID)
	}
	return connect.NewResponse(&api.GetSettlementsResponse{Settlements: convert(settlements, toAPISettlement)}), nil
}

func (s *LedgerService) CalculateBalances(ctx context.Context, req *connect.Request[api.CalculateBalancesRequest]) (*connect.Response[api.CalculateBalancesResponse], error) {
	start := time.Now()
	balances, err := s.ledger.Balances(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, fail("CalculateBalances", err, "group_id", req.Msg.GroupID)
	}
	s.observe(time.Since(start))

	return connect.NewResponse(&api.CalculateBalancesResponse{Balances: toAPIBalances(balances)}), nil
}

func (s *LedgerService) GetMemberBalance(ctx context.Context, req *connect.Request[api.GetMemberBalanceRequest]) (*connect.Response[api.GetMemberBalanceResponse], error) {
	balance, err := s.ledger.MemberBalance(ctx, req.Msg.GroupID, req.Msg.Member)
	if err != nil {
		return nil, fail("GetMemberBalance", err, "group_id", req.Msg.GroupID, "member", req.Msg.Member)
	}
	return connect.NewResponse(&api.GetMemberBalanceResponse{Balance: balance}), nil
}

func (s *LedgerService) GetGroupSummary(ctx context.Context, req *connect.Request[api.GetGroupSummaryRequest]) (*connect.Response[api.GetGroupSummaryResponse], error) {
	start := time.Now()
	snap, summaries, err := s.ledger.Summary(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, fail("GetGroupSummary", err, "group_id", req.Msg.GroupID)
	}
	s.observe(time.Since(start))

	return connect.NewResponse(&api.GetGroupSummaryResponse{
		Group:     toAPIGroup(snap.Group),
		Summaries: toAPISummaries(summaries),
		Balances:  toAPIBalances(snap.Balances),
	}), nil
}

func (s *LedgerService) IsMember(ctx context.Context, req *connect.Request[api.IsMemberRequest]) (*connect.Response[api.IsMemberResponse], error) {
	ok, err := s.ledger.IsMember(ctx, req.Msg.GroupID, req.Msg.Member)
	if err != nil {
		return nil, fail("IsMember", err, "group_id", req.Msg.GroupID)
	}
	return connect.NewResponse(&api.IsMemberResponse{IsMember: ok}), nil
}

func (s *LedgerService) ExportGroup(ctx context.Context, req *connect.Request[api.ExportGroupRequest]) (*connect.Response[api.ExportGroupResponse], error) {
	snap, err := s.ledger.Snapshot(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, fail("ExportGroup", err, "group_id", req.Msg.GroupID)
	}

	data, err := wire.EncodeBundle(&wire.Bundle{
		Group:       snap.Group,
		Expenses:    snap.Expenses,
		Settlements: snap.Settlements,
		Balances:    snap.Balances,
	})
	if err != nil {
		return nil, fail("ExportGroup", fmt.Errorf("failed to encode group bundle: %w", err), "group_id", req.Msg.GroupID)
	}

	slog.Info("Group exported", "group_id", req.Msg.GroupID, "bytes", len(data))
	return connect.NewResponse(&api.ExportGroupResponse{Data: data}), nil
}
