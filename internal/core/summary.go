package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// DefaultRecentLimit is how many transactions the dashboard shows.
const DefaultRecentLimit = 5

// Totals is the aggregate of a set of entries.
type Totals struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
}

// Dashboard is the read model behind the overview screen.
type Dashboard struct {
	Team   string  `json:"team,omitempty"`
	Totals Totals  `json:"totals"`
	Recent []Entry `json:"recent"`
	Teams  []Team  `json:"teams"`
}

// ComputeTotals sums entries by kind. Decimal addition is exact, so the
// result does not depend on input order.
func ComputeTotals(entries []Entry) Totals {
	t := Totals{Income: decimal.Zero, Expense: decimal.Zero}
	for _, e := range entries {
		switch e.Kind {
		case KindIncome:
			t.Income = t.Income.Add(e.Amount)
		case KindExpense:
			t.Expense = t.Expense.Add(e.Amount)
		}
	}
	t.Balance = t.Income.Sub(t.Expense)
	return t
}

// RecentTransactions merges incomes and expenses and returns at most limit
// of them, newest first. Entries sharing a date keep their input order,
// incomes before expenses. The inputs are not modified.
func RecentTransactions(incomes, expenses []Entry, limit int) []Entry {
	if limit <= 0 {
		return []Entry{}
	}
	merged := make([]Entry, 0, len(incomes)+len(expenses))
	merged = append(merged, incomes...)
	merged = append(merged, expenses...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Date.After(merged[j].Date)
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

// SortByDateDesc orders entries newest first in place.
func SortByDateDesc(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.After(entries[j].Date)
	})
}

// FilterByTeam keeps the entries tagged with teamName.
func FilterByTeam(entries []Entry, teamName string) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.TeamName == teamName {
			out = append(out, e)
		}
	}
	return out
}
