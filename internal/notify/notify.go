// Package notify publishes ledger state transitions as colon-delimited
// events.
package notify

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind names a state transition.
type Kind string

const (
	KindGroupCreated        Kind = "GroupCreated"
	KindMemberAdded         Kind = "MemberAdded"
	KindMemberLeft          Kind = "MemberLeft"
	KindExpenseAdded        Kind = "ExpenseAdded"
	KindExpenseDeleted      Kind = "ExpenseDeleted"
	KindDebtSettled         Kind = "DebtSettled"
	KindSettlementScheduled Kind = "SettlementScheduled"
	KindAutoSettlement      Kind = "AutoSettlement"
	KindGroupSettled        Kind = "GroupSettled"
	KindGroupCancelled      Kind = "GroupCancelled"
)

// Event is one state transition of a group. Fields follow the group id in
// the event text, in order.
type Event struct {
	ID      uuid.UUID `json:"id"`
	Kind    Kind      `json:"kind"`
	GroupID uint64    `json:"groupId"`
	Fields  []string  `json:"fields,omitempty"`
	At      time.Time `json:"at"`
}

// NewEvent returns an event stamped with a fresh id and the current time.
func NewEvent(kind Kind, groupID uint64, fields ...string) Event {
	return Event{
		ID:      uuid.New(),
		Kind:    kind,
		GroupID: groupID,
		Fields:  fields,
		At:      time.Now(),
	}
}

// Text renders the event as "Kind:groupID:field:...", for example
// "ExpenseAdded:3:12:4500".
func (e Event) Text() string {
	parts := make([]string, 0, len(e.Fields)+2)
	parts = append(parts, string(e.Kind), strconv.FormatUint(e.GroupID, 10))
	parts = append(parts, e.Fields...)
	return strings.Join(parts, ":")
}

// Notifier delivers events to interested parties.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, event Event) error

func (f NotifierFunc) Notify(ctx context.Context, event Event) error { return f(ctx, event) }

// Nop discards every event.
var Nop Notifier = NotifierFunc(func(context.Context, Event) error { return nil })

// Fanout delivers each event to every notifier and joins their errors.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, event Event) error {
	var errs []error
	for _, n := range f {
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps every event it receives. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Notify(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of the recorded events in delivery order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Texts returns the text of every recorded event.
func (r *Recorder) Texts() []string {
	events := r.Events()
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Text()
	}
	return out
}

// Reset discards the recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
