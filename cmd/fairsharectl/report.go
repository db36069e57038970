package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/mmynk/fairshare/internal/ledger"
	"github.com/mmynk/fairshare/internal/models"
)

func reportMarkdown(snap *ledger.Snapshot, summaries []models.MemberSummary) string {
	var b strings.Builder
	g := snap.Group

	fmt.Fprintf(&b, "# %s\n\n", g.Name)
	fmt.Fprintf(&b, "Group %d created by `%s` on %s. Status: **%s**.\n\n",
		g.ID, g.Creator, formatMillis(g.CreatedAt), g.Status)
	if g.SettlementDate != 0 {
		fmt.Fprintf(&b, "Settles automatically on %s.\n\n", formatMillis(g.SettlementDate))
	}
	fmt.Fprintf(&b, "%d expenses totalling %s.\n\n", g.ExpenseCount, g.TotalExpenses)

	b.WriteString("## Members\n\n")
	b.WriteString("| Member | Paid | Share | Net |\n|---|---:|---:|---:|\n")
	for _, s := range summaries {
		fmt.Fprintf(&b, "| %s | %d | %d | %+d |\n", s.Member, s.Paid, s.Owed, s.Net)
	}

	if len(snap.Expenses) > 0 {
		b.WriteString("\n## Expenses\n\n")
		b.WriteString("| ID | Description | Category | Paid by | Amount | Split |\n|---:|---|---|---|---:|---|\n")
		for _, e := range snap.Expenses {
			fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %s |\n",
				e.ID, escape(e.Description), e.Category, e.PaidBy, e.Amount, strings.Join(e.SplitBetween, ", "))
		}
	}

	if len(snap.Settlements) > 0 {
		b.WriteString("\n## Settlements\n\n")
		b.WriteString("| From | To | Amount | When |\n|---|---|---:|---|\n")
		for _, s := range snap.Settlements {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", s.From, s.To, s.Amount, formatMillis(s.SettledAt))
		}
	}

	b.WriteString("\n## Outstanding debts\n\n")
	if len(snap.Balances) == 0 {
		b.WriteString("Everyone is square.\n")
		return b.String()
	}
	for _, bal := range snap.Balances {
		fmt.Fprintf(&b, "- `%s` owes `%s` **%s**\n", bal.From, bal.To, bal.Amount)
	}
	return b.String()
}

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04 MST")
}

// escape keeps user text from breaking a table row.
func escape(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}
