package store

import (
	"budget/internal/core"
	"budget/internal/stats"
)

// DashboardStats computes the dashboard summary over the current
// snapshot of the user's collections.
func (s *Store) DashboardStats() stats.Dashboard {
	return stats.Compute(
		s.Entries(core.CollectionIncome),
		s.Entries(core.CollectionExpenses),
		s.Goals(),
		s.now(),
	)
}

// CategoryBreakdown groups the current month's expenses by category.
func (s *Store) CategoryBreakdown() []stats.CategoryTotal {
	now := s.now()
	return stats.CategoryBreakdown(s.Entries(core.CollectionExpenses), now.Year(), int(now.Month()))
}

// TrailingMonths computes income and expense sums for the n most
// recent months ending at the current one, oldest first.
func (s *Store) TrailingMonths(n int) []stats.MonthTotals {
	return stats.TrailingMonths(
		s.Entries(core.CollectionIncome),
		s.Entries(core.CollectionExpenses),
		n,
		s.now(),
	)
}
