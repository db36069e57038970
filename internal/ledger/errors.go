package ledger

import (
	"errors"
	"fmt"
)

// Error classes. Every error a ledger operation rejects a request with wraps
// exactly one of these, so callers can branch with errors.Is on either the
// class or the specific error below.
var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("invalid request")
	ErrUnauthorized  = errors.New("not authorized")
	ErrStateConflict = errors.New("state conflict")
)

var (
	ErrGroupNotFound   = fmt.Errorf("group %w", ErrNotFound)
	ErrExpenseNotFound = fmt.Errorf("expense %w", ErrNotFound)

	ErrInvalidGroupName   = fmt.Errorf("%w: group name must be 1 to %d characters", ErrValidation, MaxGroupNameLength)
	ErrInvalidDescription = fmt.Errorf("%w: description must be 1 to %d characters", ErrValidation, MaxDescriptionLength)
	ErrInvalidAmount      = fmt.Errorf("%w: amount must be a positive integer of at most 256 bits", ErrValidation)
	ErrInvalidMember      = fmt.Errorf("%w: member identity must not be empty", ErrValidation)
	ErrTooManyMembers     = fmt.Errorf("%w: a group holds at most %d members", ErrValidation, MaxMembers)
	ErrTooManyExpenses    = fmt.Errorf("%w: a group holds at most %d expenses", ErrValidation, MaxExpensesPerGroup)
	ErrSplitNotMember     = fmt.Errorf("%w: split member is not in the group", ErrValidation)
	ErrRecipientNotMember = fmt.Errorf("%w: recipient is not a member", ErrValidation)
	ErrSelfSettlement     = fmt.Errorf("%w: cannot settle with yourself", ErrValidation)
	ErrSettlementDatePast = fmt.Errorf("%w: settlement date must be in the future", ErrValidation)

	ErrNoCaller   = fmt.Errorf("%w: caller identity required", ErrUnauthorized)
	ErrNotCreator = fmt.Errorf("%w: only the group creator can do this", ErrUnauthorized)
	ErrNotMember  = fmt.Errorf("%w: not a member of this group", ErrUnauthorized)
	ErrNotPayer   = fmt.Errorf("%w: only the payer can delete an expense", ErrUnauthorized)

	ErrGroupFull      = fmt.Errorf("%w: group is full", ErrStateConflict)
	ErrGroupNotActive = fmt.Errorf("%w: group is not active", ErrStateConflict)
	ErrSettleFirst    = fmt.Errorf("%w: settle your balance before leaving", ErrStateConflict)
)

// ErrNoScheduler is returned when a group asks for a settlement date but the
// controller has no scheduler to deliver it.
var ErrNoScheduler = errors.New("no settlement scheduler configured")
