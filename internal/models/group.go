package models

import (
	"slices"

	"github.com/shopspring/decimal"
)

// GroupStatus is the lifecycle state of a group.
type GroupStatus uint8

const (
	GroupStatusActive GroupStatus = iota
	GroupStatusSettled
	GroupStatusCancelled
)

// GroupStatusFromCode converts a stored status code. Unknown codes decode as
// Active.
func GroupStatusFromCode(code uint8) GroupStatus {
	if code > uint8(GroupStatusCancelled) {
		return GroupStatusActive
	}
	return GroupStatus(code)
}

func (s GroupStatus) String() string {
	switch s {
	case GroupStatusActive:
		return "Active"
	case GroupStatusSettled:
		return "Settled"
	case GroupStatusCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Group represents a set of members sharing expenses.
type Group struct {
	// ID is assigned by the store's group sequence, starting at 1.
	ID uint64

	// Name is the display name of the group (e.g., "Lisbon trip").
	Name string

	// Creator is the identity that created the group. Only the creator can
	// add members or close the group.
	Creator string

	// Members is the insertion-ordered list of member identities.
	Members []string

	// CreatedAt is the creation time in milliseconds since the epoch.
	CreatedAt int64

	// SettlementDate is the time in milliseconds at which the group settles
	// automatically. Zero means manual settlement only.
	SettlementDate int64

	Status GroupStatus

	// TotalExpenses is the sum of the amounts of the expenses currently
	// attached to the group.
	TotalExpenses decimal.Decimal

	// ExpenseCount is the number of expenses currently attached to the group.
	ExpenseCount uint32
}

// IsMember reports whether member belongs to the group.
func (g *Group) IsMember(member string) bool {
	return slices.Contains(g.Members, member)
}

// AddMember appends member unless it is already present.
func (g *Group) AddMember(member string) {
	if !g.IsMember(member) {
		g.Members = append(g.Members, member)
	}
}

// RemoveMember removes member, preserving the order of the others.
func (g *Group) RemoveMember(member string) {
	g.Members = slices.DeleteFunc(g.Members, func(m string) bool { return m == member })
}

// Clone returns a deep copy of the group.
func (g *Group) Clone() *Group {
	c := *g
	c.Members = slices.Clone(g.Members)
	return &c
}
