package calculator

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/mmynk/fairshare/internal/models"
	"github.com/shopspring/decimal"
)

// pair identifies a directed debt: from owes to.
type pair struct {
	from string
	to   string
}

func (p pair) reverse() pair { return pair{from: p.to, to: p.from} }

// debts is the netting map. Every stored value is strictly positive; a
// debt and its reverse are never both present.
type debts map[pair]int64

// owe records that from owes amount to to, cancelling any debt in the
// opposite direction first.
func (d debts) owe(from, to string, amount int64) error {
	if amount == 0 {
		return nil
	}
	key := pair{from: from, to: to}
	rev := key.reverse()

	if old, ok := d[rev]; ok {
		remaining := old - amount
		switch {
		case remaining > 0:
			d[rev] = remaining
		case remaining < 0:
			delete(d, rev)
			d[key] = -remaining
		default:
			delete(d, rev)
		}
		return nil
	}

	total, err := add(d[key], amount)
	if err != nil {
		return err
	}
	d[key] = total
	return nil
}

// settle reduces an existing from→to debt by amount. A settlement never
// creates or flips an edge; one with no matching edge is dropped.
func (d debts) settle(from, to string, amount int64) {
	key := pair{from: from, to: to}
	old, ok := d[key]
	if !ok {
		return
	}
	if remaining := old - amount; remaining > 0 {
		d[key] = remaining
	} else {
		delete(d, key)
	}
}

// CalculateBalances nets a group's history into directed debts.
//
// Algorithm:
//   - For each expense, in order: share = floor(amount / len(split)); every
//     split member other than the payer owes the payer share, cancelling
//     against any debt the payer already owes that member
//   - For each settlement, in order: reduce the matching from→to debt, never
//     below zero
//   - Emit one Balance per remaining positive debt, sorted by (From, To)
//
// Expenses with an empty split are skipped.
func CalculateBalances(expenses []*models.Expense, settlements []*models.Settlement) ([]models.Balance, error) {
	d := make(debts)

	for _, e := range expenses {
		if len(e.SplitBetween) == 0 {
			continue
		}
		share, err := Share(e.Amount, len(e.SplitBetween))
		if err != nil {
			return nil, fmt.Errorf("expense %d: %w", e.ID, err)
		}
		for _, member := range e.SplitBetween {
			if member == e.PaidBy {
				continue
			}
			if err := d.owe(member, e.PaidBy, share); err != nil {
				return nil, fmt.Errorf("expense %d: %w", e.ID, err)
			}
		}
	}

	for _, s := range settlements {
		amount, err := narrow(s.Amount)
		if err != nil {
			return nil, fmt.Errorf("settlement %d: %w", s.ID, err)
		}
		d.settle(s.From, s.To, amount)
	}

	balances := make([]models.Balance, 0, len(d))
	for key, amount := range d {
		if amount <= 0 {
			continue
		}
		balances = append(balances, models.Balance{
			From:   key.from,
			To:     key.to,
			Amount: decimal.NewFromInt(amount),
		})
	}
	slices.SortFunc(balances, func(a, b models.Balance) int {
		return cmp.Or(cmp.Compare(a.From, b.From), cmp.Compare(a.To, b.To))
	})

	return balances, nil
}

// NetPositions sums the signed edges touching each member: positive when the
// member is owed, negative when they owe.
func NetPositions(balances []models.Balance) (map[string]int64, error) {
	net := make(map[string]int64)
	for _, b := range balances {
		amount, err := narrow(b.Amount)
		if err != nil {
			return nil, err
		}
		if net[b.To], err = add(net[b.To], amount); err != nil {
			return nil, err
		}
		if net[b.From], err = sub(net[b.From], amount); err != nil {
			return nil, err
		}
	}
	return net, nil
}
