// Package api defines the FairShare ledger RPC surface: message types, the
// JSON codec they travel in, and Connect handler and client constructors.
//
// Amounts are base-10 integer strings so that values up to 2^256-1 survive
// JSON. Identifiers are JSON numbers.
package api

type Group struct {
	ID             uint64   `json:"id"`
	Name           string   `json:"name"`
	Creator        string   `json:"creator"`
	Members        []string `json:"members"`
	CreatedAt      int64    `json:"createdAt"`
	SettlementDate int64    `json:"settlementDate"`
	Status         string   `json:"status"`
	TotalExpenses  string   `json:"totalExpenses"`
	ExpenseCount   uint32   `json:"expenseCount"`
}

type Expense struct {
	ID           uint64   `json:"id"`
	GroupID      uint64   `json:"groupId"`
	Description  string   `json:"description"`
	Amount       string   `json:"amount"`
	PaidBy       string   `json:"paidBy"`
	SplitBetween []string `json:"splitBetween"`
	CreatedAt    int64    `json:"createdAt"`
	Category     string   `json:"category"`
}

type Settlement struct {
	ID        uint64 `json:"id"`
	GroupID   uint64 `json:"groupId"`
	From      string `json:"from"`
	To        string `json:"to"`
	Amount    string `json:"amount"`
	SettledAt int64  `json:"settledAt"`
}

// Balance reads "From owes Amount to To".
type Balance struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type MemberSummary struct {
	Member string `json:"member"`
	Net    int64  `json:"net"`
	Paid   int64  `json:"paid"`
	Owed   int64  `json:"owed"`
}

type CreateGroupRequest struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
	// SettlementDate is in milliseconds since the epoch; zero disables
	// automatic settlement.
	SettlementDate int64 `json:"settlementDate"`
}

type CreateGroupResponse struct {
	GroupID uint64 `json:"groupId"`
}

type GetGroupRequest struct {
	GroupID uint64 `json:"groupId"`
}

type GetGroupResponse struct {
	Group Group `json:"group"`
}

type GetUserGroupsRequest struct {
	Member string `json:"member"`
}

type GetUserGroupsResponse struct {
	Groups []Group `json:"groups"`
}

type AddMemberRequest struct {
	GroupID uint64 `json:"groupId"`
	Member  string `json:"member"`
}

type AddMemberResponse struct{}

type LeaveGroupRequest struct {
	GroupID uint64 `json:"groupId"`
}

type LeaveGroupResponse struct{}

type CloseGroupRequest struct {
	GroupID uint64 `json:"groupId"`
}

type CloseGroupResponse struct {
	// Balances are the debts that were outstanding at close.
	Balances []Balance `json:"balances"`
}

type CancelGroupRequest struct {
	GroupID uint64 `json:"groupId"`
}

type CancelGroupResponse struct{}

type AddExpenseRequest struct {
	GroupID     uint64 `json:"groupId"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	// Category is a code 0-5; higher codes are stored as Other.
	Category uint8 `json:"category"`
	// SplitBetween defaults to every current member when empty.
	SplitBetween []string `json:"splitBetween"`
}

type AddExpenseResponse struct {
	ExpenseID uint64 `json:"expenseId"`
}

type DeleteExpenseRequest struct {
	ExpenseID uint64 `json:"expenseId"`
}

type DeleteExpenseResponse struct{}

type GetGroupExpensesRequest struct {
	GroupID uint64 `json:"groupId"`
}

type GetGroupExpensesResponse struct {
	Expenses []Expense `json:"expenses"`
}

type GetExpenseRequest struct {
	ExpenseID uint64 `json:"expenseId"`
}

type GetExpenseResponse struct {
	Expense Expense `json:"expense"`
}

type SettleDebtRequest struct {
	GroupID uint64 `json:"groupId"`
	To      string `json:"to"`
	Amount  string `json:"amount"`
}

type SettleDebtResponse struct {
	SettlementID uint64 `json:"settlementId"`
}

type GetSettlementsRequest struct {
	GroupID uint64 `json:"groupId"`
}

type GetSettlementsResponse struct {
	Settlements []Settlement `json:"settlements"`
}

type CalculateBalancesRequest struct {
	GroupID uint64 `json:"groupId"`
}

type CalculateBalancesResponse struct {
	Balances []Balance `json:"balances"`
}

type GetMemberBalanceRequest struct {
	GroupID uint64 `json:"groupId"`
	Member  string `json:"member"`
}

type GetMemberBalanceResponse struct {
	// Balance is positive when the member is owed money.
	Balance int64 `json:"balance"`
}

type GetGroupSummaryRequest struct {
	GroupID uint64 `json:"groupId"`
}

type GetGroupSummaryResponse struct {
	Group     Group           `json:"group"`
	Summaries []MemberSummary `json:"summaries"`
	Balances  []Balance       `json:"balances"`
}

type IsMemberRequest struct {
	GroupID uint64 `json:"groupId"`
	Member  string `json:"member"`
}

type IsMemberResponse struct {
	IsMember bool `json:"isMember"`
}

type ExportGroupRequest struct {
	GroupID uint64 `json:"groupId"`
}

type ExportGroupResponse struct {
	// Data is the group bundle in the binary tuple encoding.
	Data []byte `json:"data"`
}
