package service

import (
	"fmt"

	"github.com/mmynk/fairshare/internal/ledger"
	"github.com/mmynk/fairshare/internal/models"
	"github.com/mmynk/fairshare/pkg/api"
	"github.com/shopspring/decimal"
)

func parseAmount(s string) (decimal.Decimal, error) {
	amount, err := models.ParseAmount(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ledger.ErrInvalidAmount, s)
	}
	return amount, nil
}

func toAPIGroup(g *models.Group) api.Group {
	return api.Group{
		ID:             g.ID,
		Name:           g.Name,
		Creator:        g.Creator,
		Members:        g.Members,
		CreatedAt:      g.CreatedAt,
		SettlementDate: g.SettlementDate,
		Status:         g.Status.String(),
		TotalExpenses:  g.TotalExpenses.String(),
		ExpenseCount:   g.ExpenseCount,
	}
}

func toAPIExpense(e *models.Expense) api.Expense {
	return api.Expense{
		ID:           e.ID,
		GroupID:      e.GroupID,
		Description:  e.Description,
		Amount:       e.Amount.String(),
		PaidBy:       e.PaidBy,
		SplitBetween: e.SplitBetween,
		CreatedAt:    e.CreatedAt,
		Category:     e.Category.String(),
	}
}

func toAPISettlement(s *models.Settlement) api.Settlement {
	return api.Settlement{
		ID:        s.ID,
		GroupID:   s.GroupID,
		From:      s.From,
		To:        s.To,
		Amount:    s.Amount.String(),
		SettledAt: s.SettledAt,
	}
}

func toAPIBalances(balances []models.Balance) []api.Balance {
	out := make([]api.Balance, len(balances))
	for i, b := range balances {
		out[i] = api.Balance{From: b.From, To: b.To, Amount: b.Amount.String()}
	}
	return out
}

func toAPISummaries(summaries []models.MemberSummary) []api.MemberSummary {
	out := make([]api.MemberSummary, len(summaries))
	for i, s := range summaries {
		out[i] = api.MemberSummary{Member: s.Member, Net: s.Net, Paid: s.Paid, Owed: s.Owed}
	}
	return out
}

// convert maps records through fn, keeping an empty (not nil) result.
func convert[T any, R any](in []T, fn func(T) R) []R {
	out := make([]R, len(in))
	for i, v := range in {
		out[i] = fn(v)
	}
	return out
}
