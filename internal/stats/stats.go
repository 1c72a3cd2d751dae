// Package stats derives dashboard statistics from record snapshots.
// Every function is pure: the same snapshot always produces the same
// result and nothing here mutates the store.
package stats

import (
	"time"

	"budget/internal/core"
)

// Dashboard is the summary block shown at the top of the dashboard.
type Dashboard struct {
	MonthlyIncome   core.Money
	MonthlyExpenses core.Money
	Balance         core.Money
	TotalSavings    core.Money
	TotalTarget     core.Money
	SavingsProgress float64
}

// CategoryTotal is one slice of the category breakdown.
type CategoryTotal struct {
	Category string
	Total    core.Money
}

// MonthTotals is one bar pair of the trailing-months overview.
type MonthTotals struct {
	Label   string
	Year    int
	Month   int
	Income  core.Money
	Expense core.Money
}

// MonthlyTotal sums amounts over entries whose date falls in the given
// calendar month, calendar-local rather than UTC-normalized.
func MonthlyTotal(entries []core.Entry, year, month int) core.Money {
	var total core.Money
	for _, e := range entries {
		if e.Date.InMonth(year, month) {
			total = total.Add(e.Amount)
		}
	}
	return total
}

// Compute builds the dashboard summary for now's calendar month.
// Balance is monthly income minus monthly expenses; savings progress
// guards against a zero total target.
func Compute(income, expenses []core.Entry, goals []core.SavingsGoal, now time.Time) Dashboard {
	year, month := now.Year(), int(now.Month())

	monthlyIncome := MonthlyTotal(income, year, month)
	monthlyExpenses := MonthlyTotal(expenses, year, month)

	var totalSavings, totalTarget core.Money
	for _, g := range goals {
		totalSavings = totalSavings.Add(g.SavedAmount)
		totalTarget = totalTarget.Add(g.TargetAmount)
	}

	progress := 0.0
	if totalTarget.Cents > 0 {
		progress = float64(totalSavings.Cents) / float64(totalTarget.Cents) * 100
	}

	return Dashboard{
		MonthlyIncome:   monthlyIncome,
		MonthlyExpenses: monthlyExpenses,
		Balance:         core.Money{Cents: monthlyIncome.Cents - monthlyExpenses.Cents},
		TotalSavings:    totalSavings,
		TotalTarget:     totalTarget,
		SavingsProgress: progress,
	}
}

// CategoryBreakdown groups the given month's expenses by category,
// summing amounts. Categories appear in first-occurrence order.
func CategoryBreakdown(expenses []core.Entry, year, month int) []CategoryTotal {
	index := make(map[string]int)
	var out []CategoryTotal
	for _, e := range expenses {
		if !e.Date.InMonth(year, month) {
			continue
		}
		if i, seen := index[e.Category]; seen {
			out[i].Total = out[i].Total.Add(e.Amount)
			continue
		}
		index[e.Category] = len(out)
		out = append(out, CategoryTotal{Category: e.Category, Total: e.Amount})
	}
	return out
}

// TrailingMonths computes per-month income and expense sums for the n
// most recent calendar months ending at now's month, ordered oldest to
// newest. Labels are short month names ("Jan").
func TrailingMonths(income, expenses []core.Entry, n int, now time.Time) []MonthTotals {
	if n <= 0 {
		return nil
	}

	out := make([]MonthTotals, 0, n)
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := n - 1; i >= 0; i-- {
		m := first.AddDate(0, -i, 0)
		year, month := m.Year(), int(m.Month())
		out = append(out, MonthTotals{
			Label:   m.Format("Jan"),
			Year:    year,
			Month:   month,
			Income:  MonthlyTotal(income, year, month),
			Expense: MonthlyTotal(expenses, year, month),
		})
	}
	return out
}
