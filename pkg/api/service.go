package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// ServiceName is the fully-qualified name of the ledger service.
const ServiceName = "fairshare.v1.LedgerService"

// Procedure paths, each of the form /ServiceName/Method.
const (
	CreateGroupProcedure       = "/" + ServiceName + "/CreateGroup"
	GetGroupProcedure          = "/" + ServiceName + "/GetGroup"
	GetUserGroupsProcedure     = "/" + ServiceName + "/GetUserGroups"
	AddMemberProcedure         = "/" + ServiceName + "/AddMember"
	LeaveGroupProcedure        = "/" + ServiceName + "/LeaveGroup"
	CloseGroupProcedure        = "/" + ServiceName + "/CloseGroup"
	CancelGroupProcedure       = "/" + ServiceName + "/CancelGroup"
	AddExpenseProcedure        = "/" + ServiceName + "/AddExpense"
	DeleteExpenseProcedure     = "/" + ServiceName + "/DeleteExpense"
	GetGroupExpensesProcedure  = "/" + ServiceName + "/GetGroupExpenses"
	GetExpenseProcedure        = "/" + ServiceName + "/GetExpense"
	SettleDebtProcedure        = "/" + ServiceName + "/SettleDebt"
	GetSettlementsProcedure    = "/" + ServiceName + "/GetSettlements"
	CalculateBalancesProcedure = "/" + ServiceName + "/CalculateBalances"
	GetMemberBalanceProcedure  = "/" + ServiceName + "/GetMemberBalance"
	GetGroupSummaryProcedure   = "/" + ServiceName + "/GetGroupSummary"
	IsMemberProcedure          = "/" + ServiceName + "/IsMember"
	ExportGroupProcedure       = "/" + ServiceName + "/ExportGroup"
)

// ReadProcedures lists the procedures that do not change ledger state.
var ReadProcedures = []string{
	GetGroupProcedure,
	GetUserGroupsProcedure,
	GetGroupExpensesProcedure,
	GetExpenseProcedure,
	GetSettlementsProcedure,
	CalculateBalancesProcedure,
	GetMemberBalanceProcedure,
	GetGroupSummaryProcedure,
	IsMemberProcedure,
	ExportGroupProcedure,
}

// LedgerServiceHandler is implemented by the server side of the service.
type LedgerServiceHandler interface {
	CreateGroup(context.Context, *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error)
	GetGroup(context.Context, *connect.Request[GetGroupRequest]) (*connect.Response[GetGroupResponse], error)
	GetUserGroups(context.Context, *connect.Request[GetUserGroupsRequest]) (*connect.Response[GetUserGroupsResponse], error)
	AddMember(context.Context, *connect.Request[AddMemberRequest]) (*connect.Response[AddMemberResponse], error)
	LeaveGroup(context.Context, *connect.Request[LeaveGroupRequest]) (*connect.Response[LeaveGroupResponse], error)
	CloseGroup(context.Context, *connect.Request[CloseGroupRequest]) (*connect.Response[CloseGroupResponse], error)
	CancelGroup(context.Context, *connect.Request[CancelGroupRequest]) (*connect.Response[CancelGroupResponse], error)
	AddExpense(context.Context, *connect.Request[AddExpenseRequest]) (*connect.Response[AddExpenseResponse], error)
	DeleteExpense(context.Context, *connect.Request[DeleteExpenseRequest]) (*connect.Response[DeleteExpenseResponse], error)
	GetGroupExpenses(context.Context, *connect.Request[GetGroupExpensesRequest]) (*connect.Response[GetGroupExpensesResponse], error)
	GetExpense(context.Context, *connect.Request[GetExpenseRequest]) (*connect.Response[GetExpenseResponse], error)
	SettleDebt(context.Context, *connect.Request[SettleDebtRequest]) (*connect.Response[SettleDebtResponse], error)
	GetSettlements(context.Context, *connect.Request[GetSettlementsRequest]) (*connect.Response[GetSettlementsResponse], error)
	CalculateBalances(context.Context, *connect.Request[CalculateBalancesRequest]) (*connect.Response[CalculateBalancesResponse], error)
	GetMemberBalance(context.Context, *connect.Request[GetMemberBalanceRequest]) (*connect.Response[GetMemberBalanceResponse], error)
	GetGroupSummary(context.Context, *connect.Request[GetGroupSummaryRequest]) (*connect.Response[GetGroupSummaryResponse], error)
	IsMember(context.Context, *connect.Request[IsMemberRequest]) (*connect.Response[IsMemberResponse], error)
	ExportGroup(context.Context, *connect.Request[ExportGroupRequest]) (*connect.Response[ExportGroupResponse], error)
}

// NewLedgerServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler and the
// handler itself. The JSON codec is always installed.
func NewLedgerServiceHandler(svc LedgerServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)

	handlers := map[string]http.Handler{
		CreateGroupProcedure:       connect.NewUnaryHandler(CreateGroupProcedure, svc.CreateGroup, opts...),
		GetGroupProcedure:          connect.NewUnaryHandler(GetGroupProcedure, svc.GetGroup, opts...),
		GetUserGroupsProcedure:     connect.NewUnaryHandler(GetUserGroupsProcedure, svc.GetUserGroups, opts...),
		AddMemberProcedure:         connect.NewUnaryHandler(AddMemberProcedure, svc.AddMember, opts...),
		LeaveGroupProcedure:        connect.NewUnaryHandler(LeaveGroupProcedure, svc.LeaveGroup, opts...),
		CloseGroupProcedure:        connect.NewUnaryHandler(CloseGroupProcedure, svc.CloseGroup, opts...),
		CancelGroupProcedure:       connect.NewUnaryHandler(CancelGroupProcedure, svc.CancelGroup, opts...),
		AddExpenseProcedure:        connect.NewUnaryHandler(AddExpenseProcedure, svc.AddExpense, opts...),
		DeleteExpenseProcedure:     connect.NewUnaryHandler(DeleteExpenseProcedure, svc.DeleteExpense, opts...),
		GetGroupExpensesProcedure:  connect.NewUnaryHandler(GetGroupExpensesProcedure, svc.GetGroupExpenses, opts...),
		GetExpenseProcedure:        connect.NewUnaryHandler(GetExpenseProcedure, svc.GetExpense, opts...),
		SettleDebtProcedure:        connect.NewUnaryHandler(SettleDebtProcedure, svc.SettleDebt, opts...),
		GetSettlementsProcedure:    connect.NewUnaryHandler(GetSettlementsProcedure, svc.GetSettlements, opts...),
		CalculateBalancesProcedure: connect.NewUnaryHandler(CalculateBalancesProcedure, svc.CalculateBalances, opts...),
		GetMemberBalanceProcedure:  connect.NewUnaryHandler(GetMemberBalanceProcedure, svc.GetMemberBalance, opts...),
		GetGroupSummaryProcedure:   connect.NewUnaryHandler(GetGroupSummaryProcedure, svc.GetGroupSummary, opts...),
		IsMemberProcedure:          connect.NewUnaryHandler(IsMemberProcedure, svc.IsMember, opts...),
		ExportGroupProcedure:       connect.NewUnaryHandler(ExportGroupProcedure, svc.ExportGroup, opts...),
	}

	return "/" + ServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})
}

// LedgerServiceClient is a client for the ledger service.
type LedgerServiceClient struct {
	createGroup       *connect.Client[CreateGroupRequest, CreateGroupResponse]
	getGroup          *connect.Client[GetGroupRequest, GetGroupResponse]
	getUserGroups     *connect.Client[GetUserGroupsRequest, GetUserGroupsResponse]
	addMember         *connect.Client[AddMemberRequest, AddMemberResponse]
	leaveGroup        *connect.Client[LeaveGroupRequest, LeaveGroupResponse]
	closeGroup        *connect.Client[CloseGroupRequest, CloseGroupResponse]
	cancelGroup       *connect.Client[CancelGroupRequest, CancelGroupResponse]
	addExpense        *connect.Client[AddExpenseRequest, AddExpenseResponse]
	deleteExpense     *connect.Client[DeleteExpenseRequest, DeleteExpenseResponse]
	getGroupExpenses  *connect.Client[GetGroupExpensesRequest, GetGroupExpensesResponse]
	getExpense        *connect.Client[GetExpenseRequest, GetExpenseResponse]
	settleDebt        *connect.Client[SettleDebtRequest, SettleDebtResponse]
	getSettlements    *connect.Client[GetSettlementsRequest, GetSettlementsResponse]
	calculateBalances *connect.Client[CalculateBalancesRequest, CalculateBalancesResponse]
	getMemberBalance  *connect.Client[GetMemberBalanceRequest, GetMemberBalanceResponse]
	getGroupSummary   *connect.Client[GetGroupSummaryRequest, GetGroupSummaryResponse]
	isMember          *connect.Client[IsMemberRequest, IsMemberResponse]
	exportGroup       *connect.Client[ExportGroupRequest, ExportGroupResponse]
}

// NewLedgerServiceClient constructs a client for the service at baseURL
// (for example, http://localhost:8080). The JSON codec is always installed.
func NewLedgerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *LedgerServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)

	return &LedgerServiceClient{
		createGroup:       connect.NewClient[CreateGroupRequest, CreateGroupResponse](httpClient, baseURL+CreateGroupProcedure, opts...),
		getGroup:          connect.NewClient[GetGroupRequest, GetGroupResponse](httpClient, baseURL+GetGroupProcedure, opts...),
		getUserGroups:     connect.NewClient[GetUserGroupsRequest, GetUserGroupsResponse](httpClient, baseURL+GetUserGroupsProcedure, opts...),
		addMember:         connect.NewClient[AddMemberRequest, AddMemberResponse](httpClient, baseURL+AddMemberProcedure, opts...),
		leaveGroup:        connect.NewClient[LeaveGroupRequest, LeaveGroupResponse](httpClient, baseURL+LeaveGroupProcedure, opts...),
		closeGroup:        connect.NewClient[CloseGroupRequest, CloseGroupResponse](httpClient, baseURL+CloseGroupProcedure, opts...),
		cancelGroup:       connect.NewClient[CancelGroupRequest, CancelGroupResponse](httpClient, baseURL+CancelGroupProcedure, opts...),
		addExpense:        connect.NewClient[AddExpenseRequest, AddExpenseResponse](httpClient, baseURL+AddExpenseProcedure, opts...),
		deleteExpense:     connect.NewClient[DeleteExpenseRequest, DeleteExpenseResponse](httpClient, baseURL+DeleteExpenseProcedure, opts...),
		getGroupExpenses:  connect.NewClient[GetGroupExpensesRequest, GetGroupExpensesResponse](httpClient, baseURL+GetGroupExpensesProcedure, opts...),
		getExpense:        connect.NewClient[GetExpenseRequest, GetExpenseResponse](httpClient, baseURL+GetExpenseProcedure, opts...),
		settleDebt:        connect.NewClient[SettleDebtRequest, SettleDebtResponse](httpClient, baseURL+SettleDebtProcedure, opts...),
		getSettlements:    connect.NewClient[GetSettlementsRequest, GetSettlementsResponse](httpClient, baseURL+GetSettlementsProcedure, opts...),
		calculateBalances: connect.NewClient[CalculateBalancesRequest, CalculateBalancesResponse](httpClient, baseURL+CalculateBalancesProcedure, opts...),
		getMemberBalance:  connect.NewClient[GetMemberBalanceRequest, GetMemberBalanceResponse](httpClient, baseURL+GetMemberBalanceProcedure, opts...),
		getGroupSummary:   connect.NewClient[GetGroupSummaryRequest, GetGroupSummaryResponse](httpClient, baseURL+GetGroupSummaryProcedure, opts...),
		isMember:          connect.NewClient[IsMemberRequest, IsMemberResponse](httpClient, baseURL+IsMemberProcedure, opts...),
		exportGroup:       connect.NewClient[ExportGroupRequest, ExportGroupResponse](httpClient, baseURL+ExportGroupProcedure, opts...),
	}
}

// CreateGroup calls fairshare.v1.LedgerService.CreateGroup.
func (c *LedgerServiceClient) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error) {
	return c.createGroup.CallUnary(ctx, req)
}

// GetGroup calls fairshare.v1.LedgerService.GetGroup.
func (c *LedgerServiceClient) GetGroup(ctx context.Context, req *connect.Request[GetGroupRequest]) (*connect.Response[GetGroupResponse], error) {
	return c.getGroup.CallUnary(ctx, req)
}

// GetUserGroups calls fairshare.v1.LedgerService.GetUserGroups.
func (c *LedgerServiceClient) GetUserGroups(ctx context.Context, req *connect.Request[GetUserGroupsRequest]) (*connect.Response[GetUserGroupsResponse], error) {
	return c.getUserGroups.CallUnary(ctx, req)
}

// AddMember calls fairshare.v1.LedgerService.AddMember.
func (c *LedgerServiceClient) AddMember(ctx context.Context, req *connect.Request[AddMemberRequest]) (*connect.Response[AddMemberResponse], error) {
	return c.addMember.CallUnary(ctx, req)
}

// LeaveGroup calls fairshare.v1.LedgerService.LeaveGroup.
func (c *LedgerServiceClient) LeaveGroup(ctx context.Context, req *connect.Request[LeaveGroupRequest]) (*connect.Response[LeaveGroupResponse], error) {
	return c.leaveGroup.CallUnary(ctx, req)
}

// CloseGroup calls fairshare.v1.LedgerService.CloseGroup.
func (c *LedgerServiceClient) CloseGroup(ctx context.Context, req *connect.Request[CloseGroupRequest]) (*connect.Response[CloseGroupResponse], error) {
	return c.closeGroup.CallUnary(ctx, req)
}

// CancelGroup calls fairshare.v1.LedgerService.CancelGroup.
func (c *LedgerServiceClient) CancelGroup(ctx context.Context, req *connect.Request[CancelGroupRequest]) (*connect.Response[CancelGroupResponse], error) {
	return c.cancelGroup.CallUnary(ctx, req)
}

// AddExpense calls fairshare.v1.LedgerService.AddExpense.
func (c *LedgerServiceClient) AddExpense(ctx context.Context, req *connect.Request[AddExpenseRequest]) (*connect.Response[AddExpenseResponse], error) {
	return c.addExpense.CallUnary(ctx, req)
}

// DeleteExpense calls fairshare.v1.LedgerService.DeleteExpense.
func (c *LedgerServiceClient) DeleteExpense(ctx context.Context, req *connect.Request[DeleteExpenseRequest]) (*connect.Response[DeleteExpenseResponse], error) {
	return c.deleteExpense.CallUnary(ctx, req)
}

// GetGroupExpenses calls fairshare.v1.LedgerService.GetGroupExpenses.
func (c *LedgerServiceClient) GetGroupExpenses(ctx context.Context, req *connect.Request[GetGroupExpensesRequest]) (*connect.Response[GetGroupExpensesResponse], error) {
	return c.getGroupExpenses.CallUnary(ctx, req)
}

// GetExpense calls fairshare.v1.LedgerService.GetExpense.
func (c *LedgerServiceClient) GetExpense(ctx context.Context, req *connect.Request[GetExpenseRequest]) (*connect.Response[GetExpenseResponse], error) {
	return c.getExpense.CallUnary(ctx, req)
}

// SettleDebt calls fairshare.v1.LedgerService.SettleDebt.
func (c *LedgerServiceClient) SettleDebt(ctx context.Context, req *connect.Request[SettleDebtRequest]) (*connect.Response[SettleDebtResponse], error) {
	return c.settleDebt.CallUnary(ctx, req)
}

// GetSettlements calls fairshare.v1.LedgerService.GetSettlements.
func (c *LedgerServiceClient) GetSettlements(ctx context.Context, req *connect.Request[GetSettlementsRequest]) (*connect.Response[GetSettlementsResponse], error) {
	return c.getSettlements.CallUnary(ctx, req)
}

// CalculateBalances calls fairshare.v1.LedgerService.CalculateBalances.
func (c *LedgerServiceClient) CalculateBalances(ctx context.Context, req *connect.Request[CalculateBalancesRequest]) (*connect.Response[CalculateBalancesResponse], error) {
	return c.calculateBalances.CallUnary(ctx, req)
}

// GetMemberBalance calls fairshare.v1.LedgerService.GetMemberBalance.
func (c *LedgerServiceClient) GetMemberBalance(ctx context.Context, req *connect.Request[GetMemberBalanceRequest]) (*connect.Response[GetMemberBalanceResponse], error) {
	return c.getMemberBalance.CallUnary(ctx, req)
}

// GetGroupSummary calls fairshare.v1.LedgerService.GetGroupSummary.
func (c *LedgerServiceClient) GetGroupSummary(ctx context.Context, req *connect.Request[GetGroupSummaryRequest]) (*connect.Response[GetGroupSummaryResponse], error) {
	return c.getGroupSummary.CallUnary(ctx, req)
}

// IsMember calls fairshare.v1.LedgerService.IsMember.
func (c *LedgerServiceClient) IsMember(ctx context.Context, req *connect.Request[IsMemberRequest]) (*connect.Response[IsMemberResponse], error) {
	return c.isMember.CallUnary(ctx, req)
}

// ExportGroup calls fairshare.v1.LedgerService.ExportGroup.
func (c *LedgerServiceClient) ExportGroup(ctx context.Context, req *connect.Request[ExportGroupRequest]) (*connect.Response[ExportGroupResponse], error) {
	return c.exportGroup.CallUnary(ctx, req)
}
