package models

import "github.com/shopspring/decimal"

// Settlement represents value transferred between group members to clear debts.
// Settlements are append-only.
type Settlement struct {
	ID uint64

	// GroupID is the group this settlement belongs to.
	GroupID uint64

	// From is the member who paid (debtor settling up).
	From string

	// To is the member who received payment (creditor being paid).
	To string

	// Amount is the value actually transferred.
	Amount decimal.Decimal

	// SettledAt is the time in milliseconds since the epoch.
	SettledAt int64
}

// Balance is a netted directed debt: From owes Amount to To.
type Balance struct {
	From   string
	To     string
	Amount decimal.Decimal
}

// MemberSummary is a member's aggregate position in a group.
type MemberSummary struct {
	Member string

	// Net is positive when the member is owed money, negative when they owe.
	Net int64

	// Paid is the sum of the amounts of the expenses the member paid.
	Paid int64

	// Owed is the sum of the member's own shares across all expenses.
	Owed int64
}
