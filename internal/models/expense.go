package models

import (
	"slices"

	"github.com/shopspring/decimal"
)

// ExpenseCategory classifies an expense.
type ExpenseCategory uint8

const (
	CategoryFood ExpenseCategory = iota
	CategoryTransport
	CategoryAccommodation
	CategoryActivities
	CategoryShopping
	CategoryOther
)

// CategoryFromCode converts a category code. Codes above 5 normalize to Other.
func CategoryFromCode(code uint8) ExpenseCategory {
	if code > uint8(CategoryOther) {
		return CategoryOther
	}
	return ExpenseCategory(code)
}

func (c ExpenseCategory) String() string {
	switch c {
	case CategoryFood:
		return "Food"
	case CategoryTransport:
		return "Transport"
	case CategoryAccommodation:
		return "Accommodation"
	case CategoryActivities:
		return "Activities"
	case CategoryShopping:
		return "Shopping"
	default:
		return "Other"
	}
}

// Expense represents an amount paid by one member and split equally between
// SplitBetween.
type Expense struct {
	ID uint64

	// GroupID is the group this expense belongs to.
	GroupID uint64

	Description string

	// Amount is the total paid, a positive integer of at most 256 bits.
	Amount decimal.Decimal

	// PaidBy is the member who paid. Only this member may delete the expense.
	PaidBy string

	// SplitBetween lists the members sharing the expense, fixed when the
	// expense is created. Later membership changes do not alter it.
	SplitBetween []string

	// CreatedAt is the creation time in milliseconds since the epoch.
	CreatedAt int64

	Category ExpenseCategory
}

// IsInSplit reports whether member shares this expense.
func (e *Expense) IsInSplit(member string) bool {
	return slices.Contains(e.SplitBetween, member)
}

// Clone returns a deep copy of the expense.
func (e *Expense) Clone() *Expense {
	c := *e
	c.SplitBetween = slices.Clone(e.SplitBetween)
	return &c
}
