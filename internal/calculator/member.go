package calculator

import (
	"fmt"

	"github.com/mmynk/fairshare/internal/models"
)

// MemberBalance returns member's signed net position, positive when the
// member is owed money. It is computed directly from the history rather than
// from the netted edges.
func MemberBalance(member string, expenses []*models.Expense, settlements []*models.Settlement) (int64, error) {
	var balance int64

	for _, e := range expenses {
		if len(e.SplitBetween) == 0 || (e.PaidBy != member && !e.IsInSplit(member)) {
			continue
		}
		share, err := Share(e.Amount, len(e.SplitBetween))
		if err != nil {
			return 0, fmt.Errorf("expense %d: %w", e.ID, err)
		}

		if e.PaidBy == member {
			others := 0
			for _, m := range e.SplitBetween {
				if m != member {
					others++
				}
			}
			owed, err := mul(share, others)
			if err != nil {
				return 0, fmt.Errorf("expense %d: %w", e.ID, err)
			}
			if balance, err = add(balance, owed); err != nil {
				return 0, fmt.Errorf("expense %d: %w", e.ID, err)
			}
		} else if e.IsInSplit(member) {
			if balance, err = sub(balance, share); err != nil {
				return 0, fmt.Errorf("expense %d: %w", e.ID, err)
			}
		}
	}

	for _, s := range settlements {
		if s.From != member && s.To != member {
			continue
		}
		amount, err := narrow(s.Amount)
		if err != nil {
			return 0, fmt.Errorf("settlement %d: %w", s.ID, err)
		}
		if s.From == member {
			if balance, err = add(balance, amount); err != nil {
				return 0, fmt.Errorf("settlement %d: %w", s.ID, err)
			}
		}
		if s.To == member {
			if balance, err = sub(balance, amount); err != nil {
				return 0, fmt.Errorf("settlement %d: %w", s.ID, err)
			}
		}
	}

	return balance, nil
}

// Summaries returns one MemberSummary per member, in the order given.
func Summaries(members []string, expenses []*models.Expense, settlements []*models.Settlement) ([]models.MemberSummary, error) {
	out := make([]models.MemberSummary, 0, len(members))
	for _, member := range members {
		net, err := MemberBalance(member, expenses, settlements)
		if err != nil {
			return nil, err
		}
		summary := models.MemberSummary{Member: member, Net: net}

		for _, e := range expenses {
			if len(e.SplitBetween) == 0 {
				continue
			}
			if e.PaidBy == member {
				amount, err := narrow(e.Amount)
				if err != nil {
					return nil, fmt.Errorf("expense %d: %w", e.ID, err)
				}
				if summary.Paid, err = add(summary.Paid, amount); err != nil {
					return nil, fmt.Errorf("expense %d: %w", e.ID, err)
				}
			}
			if e.IsInSplit(member) {
				share, err := Share(e.Amount, len(e.SplitBetween))
				if err != nil {
					return nil, fmt.Errorf("expense %d: %w", e.ID, err)
				}
				if summary.Owed, err = add(summary.Owed, share); err != nil {
					return nil, fmt.Errorf("expense %d: %w", e.ID, err)
				}
			}
		}

		out = append(out, summary)
	}
	return out, nil
}
