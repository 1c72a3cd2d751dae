package stats

import (
	"testing"
	"time"

	"budget/internal/core"
)

func entry(cents int64, category string, year, month, day int) core.Entry {
	return core.Entry{
		ID:       "x",
		Amount:   core.Money{Cents: cents},
		Category: category,
		Date:     core.NewDate(year, month, day),
	}
}

func TestMonthlyTotal(t *testing.T) {
	entries := []core.Entry{
		entry(1000, "Food", 2024, 3, 1),
		entry(2500, "Rent", 2024, 3, 31),
		entry(9900, "Rent", 2024, 2, 28),
		entry(500, "Food", 2023, 3, 15),
	}

	got := MonthlyTotal(entries, 2024, 3)
	if got.Cents != 3500 {
		t.Errorf("expected 3500, got %d", got.Cents)
	}

	if got := MonthlyTotal(nil, 2024, 3); got.Cents != 0 {
		t.Errorf("expected 0 for no entries, got %d", got.Cents)
	}
}

func TestComputeDashboard(t *testing.T) {
	now := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
	income := []core.Entry{entry(100000, "Salary", 2024, 3, 1)}
	expenses := []core.Entry{
		entry(40000, "Rent", 2024, 3, 5),
		entry(12345, "Rent", 2024, 2, 5), // previous month, excluded
	}
	goals := []core.SavingsGoal{
		{ID: "1", GoalName: "A", TargetAmount: core.Money{Cents: 50000}, SavedAmount: core.Money{Cents: 20000}},
		{ID: "2", GoalName: "B", TargetAmount: core.Money{Cents: 50000}, SavedAmount: core.Money{Cents: 5000}},
	}

	d := Compute(income, expenses, goals, now)

	if d.MonthlyIncome.Cents != 100000 {
		t.Errorf("monthly income: expected 100000, got %d", d.MonthlyIncome.Cents)
	}
	if d.MonthlyExpenses.Cents != 40000 {
		t.Errorf("monthly expenses: expected 40000, got %d", d.MonthlyExpenses.Cents)
	}
	if d.Balance.Cents != 60000 {
		t.Errorf("balance: expected 60000, got %d", d.Balance.Cents)
	}
	if d.TotalSavings.Cents != 25000 {
		t.Errorf("total savings: expected 25000, got %d", d.TotalSavings.Cents)
	}
	if d.SavingsProgress != 25.0 {
		t.Errorf("savings progress: expected 25, got %f", d.SavingsProgress)
	}
}

func TestComputeZeroTargetProgress(t *testing.T) {
	now := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
	d := Compute(nil, nil, nil, now)
	if d.SavingsProgress != 0 {
		t.Errorf("expected 0 progress with no goals, got %f", d.SavingsProgress)
	}

	goals := []core.SavingsGoal{{ID: "1", GoalName: "A", SavedAmount: core.Money{Cents: 100}}}
	d = Compute(nil, nil, goals, now)
	if d.SavingsProgress != 0 {
		t.Errorf("expected 0 progress with zero target, got %f", d.SavingsProgress)
	}
}

func TestCategoryBreakdownOrderAndSums(t *testing.T) {
	expenses := []core.Entry{
		entry(1000, "Food", 2024, 3, 1),
		entry(2000, "Rent", 2024, 3, 2),
		entry(500, "Food", 2024, 3, 3),
		entry(700, "Food", 2024, 2, 3), // previous month, excluded
	}

	got := CategoryBreakdown(expenses, 2024, 3)
	if len(got) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(got))
	}
	if got[0].Category != "Food" || got[0].Total.Cents != 1500 {
		t.Errorf("expected Food=1500 first, got %s=%d", got[0].Category, got[0].Total.Cents)
	}
	if got[1].Category != "Rent" || got[1].Total.Cents != 2000 {
		t.Errorf("expected Rent=2000 second, got %s=%d", got[1].Category, got[1].Total.Cents)
	}
}

func TestTrailingMonthsOrderAndLabels(t *testing.T) {
	now := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
	income := []core.Entry{
		entry(100, "Salary", 2023, 9, 1),
		entry(200, "Salary", 2024, 2, 1),
	}
	expenses := []core.Entry{
		entry(50, "Food", 2023, 12, 25),
	}

	got := TrailingMonths(income, expenses, 6, now)
	if len(got) != 6 {
		t.Fatalf("expected 6 months, got %d", len(got))
	}

	// Oldest to newest, crossing the year boundary
	wantLabels := []string{"Sep", "Oct", "Nov", "Dec", "Jan", "Feb"}
	for i, want := range wantLabels {
		if got[i].Label != want {
			t.Errorf("month %d: expected label %s, got %s", i, want, got[i].Label)
		}
	}
	if got[0].Year != 2023 || got[0].Month != 9 {
		t.Errorf("expected first month 2023-09, got %d-%02d", got[0].Year, got[0].Month)
	}
	if got[0].Income.Cents != 100 {
		t.Errorf("expected September income 100, got %d", got[0].Income.Cents)
	}
	if got[3].Expense.Cents != 50 {
		t.Errorf("expected December expense 50, got %d", got[3].Expense.Cents)
	}
	if got[5].Income.Cents != 200 {
		t.Errorf("expected February income 200, got %d", got[5].Income.Cents)
	}
}

func TestTrailingMonthsZeroCount(t *testing.T) {
	if got := TrailingMonths(nil, nil, 0, time.Now()); got != nil {
		t.Errorf("expected nil for n=0, got %v", got)
	}
}
