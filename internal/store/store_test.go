package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget/internal/core"
	"budget/internal/kvstore"
)

// fixedIdentity returns a constant user, or no user when absent.
type fixedIdentity struct {
	user core.User
	ok   bool
}

func (f fixedIdentity) CurrentUser() (core.User, bool) { return f.user, f.ok }

func testUser() core.User {
	return core.User{ID: "1700000000000", Name: "Alice", Email: "alice@example.com"}
}

// newTestStore builds a store over an in-memory KV with a ticking fake
// clock so every record gets a distinct timestamp.
func newTestStore(t *testing.T) (*Store, *kvstore.Memory) {
	t.Helper()
	kv := kvstore.NewMemory()
	tick := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	s := New(kv, fixedIdentity{user: testUser(), ok: true}, WithClock(func() time.Time {
		tick = tick.Add(time.Millisecond)
		return tick
	}))
	return s, kv
}

func TestAddEntryAndList(t *testing.T) {
	s, _ := newTestStore(t)

	first, err := s.AddEntry(core.CollectionExpenses, core.Money{Cents: 1250}, "Food", core.NewDate(2024, 3, 10))
	require.NoError(t, err)
	second, err := s.AddEntry(core.CollectionExpenses, core.Money{Cents: 900}, "Transportation", core.NewDate(2024, 3, 11))
	require.NoError(t, err)

	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID, "ids must be unique")

	entries := s.Entries(core.CollectionExpenses)
	require.Len(t, entries, 2)
	assert.Equal(t, first.ID, entries[0].ID, "insertion order preserved")
	assert.Equal(t, second.ID, entries[1].ID)
	assert.Equal(t, int64(1250), entries[0].Amount.Cents)
	assert.Equal(t, "Food", entries[0].Category)
	assert.Nil(t, entries[0].UpdatedAt)
}

func TestAddEntryUniqueIDsSameMillisecond(t *testing.T) {
	kv := kvstore.NewMemory()
	frozen := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	s := New(kv, fixedIdentity{user: testUser(), ok: true}, WithClock(func() time.Time { return frozen }))

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		e, err := s.AddEntry(core.CollectionIncome, core.Money{Cents: 100}, "Salary", core.NewDate(2024, 3, 1))
		require.NoError(t, err)
		assert.False(t, seen[e.ID], "id %s reused", e.ID)
		seen[e.ID] = true
	}
}

func TestAddEntryValidation(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.AddEntry(core.CollectionExpenses, core.Money{Cents: -100}, "Food", core.NewDate(2024, 3, 10))
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	_, err = s.AddEntry(core.CollectionExpenses, core.Money{Cents: 100}, "   ", core.NewDate(2024, 3, 10))
	assert.ErrorIs(t, err, core.ErrEmptyCategory)

	_, err = s.AddEntry(core.CollectionExpenses, core.Money{Cents: 100}, "Food", core.Date{})
	assert.ErrorIs(t, err, core.ErrInvalidDate)

	assert.Empty(t, s.Entries(core.CollectionExpenses), "failed adds must not persist")
}

func TestAddEntryNoUser(t *testing.T) {
	s := New(kvstore.NewMemory(), fixedIdentity{})
	_, err := s.AddEntry(core.CollectionIncome, core.Money{Cents: 100}, "Salary", core.NewDate(2024, 3, 1))
	assert.ErrorIs(t, err, core.ErrNoUser)
}

func TestUpdateEntryMergesPatch(t *testing.T) {
	s, _ := newTestStore(t)

	e, err := s.AddEntry(core.CollectionExpenses, core.Money{Cents: 1250}, "Food", core.NewDate(2024, 3, 10))
	require.NoError(t, err)

	amount := core.Money{Cents: 2000}
	updated, err := s.UpdateEntry(core.CollectionExpenses, e.ID, core.EntryPatch{Amount: &amount})
	require.NoError(t, err)

	assert.Equal(t, int64(2000), updated.Amount.Cents)
	assert.Equal(t, "Food", updated.Category, "unpatched fields keep stored values")
	assert.Equal(t, e.CreatedAt, updated.CreatedAt)
	require.NotNil(t, updated.UpdatedAt)

	entries := s.Entries(core.CollectionExpenses)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(2000), entries[0].Amount.Cents)
}

func TestUpdateEntryNotFound(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.UpdateEntry(core.CollectionExpenses, "missing", core.EntryPatch{})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestDeleteTwoPhase(t *testing.T) {
	s, _ := newTestStore(t)

	e, err := s.AddEntry(core.CollectionExpenses, core.Money{Cents: 1250}, "Food", core.NewDate(2024, 3, 10))
	require.NoError(t, err)

	pending, err := s.RequestDelete(core.CollectionExpenses, e.ID)
	require.NoError(t, err)
	assert.Contains(t, pending.Prompt(), "delete this expense")
	assert.Contains(t, pending.Summary(), "Amount: $12.50")
	assert.Contains(t, pending.Summary(), "Category: Food")
	assert.Contains(t, pending.Summary(), "Date: 3/10/2024")

	// Nothing removed until confirmed
	require.Len(t, s.Entries(core.CollectionExpenses), 1)

	removed, err := pending.Confirm()
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Empty(t, s.Entries(core.CollectionExpenses))

	// A second confirm is a no-op
	removed, err = pending.Confirm()
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestDeleteCancelKeepsRecord(t *testing.T) {
	s, _ := newTestStore(t)

	e, err := s.AddEntry(core.CollectionIncome, core.Money{Cents: 100000}, "Salary", core.NewDate(2024, 3, 1))
	require.NoError(t, err)

	pending, err := s.RequestDelete(core.CollectionIncome, e.ID)
	require.NoError(t, err)
	pending.Cancel()

	removed, err := pending.Confirm()
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Len(t, s.Entries(core.CollectionIncome), 1)
}

func TestDeleteMissingRecord(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.RequestDelete(core.CollectionExpenses, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestDeleteRecordVanishedBetweenRequestAndConfirm(t *testing.T) {
	s, _ := newTestStore(t)

	e, err := s.AddEntry(core.CollectionExpenses, core.Money{Cents: 500}, "Food", core.NewDate(2024, 3, 5))
	require.NoError(t, err)

	pending, err := s.RequestDelete(core.CollectionExpenses, e.ID)
	require.NoError(t, err)

	// Remove it out of band before confirming
	other, err := s.RequestDelete(core.CollectionExpenses, e.ID)
	require.NoError(t, err)
	removed, err := other.Confirm()
	require.NoError(t, err)
	require.True(t, removed)

	removed, err = pending.Confirm()
	require.NoError(t, err)
	assert.False(t, removed, "vanished record reports false, not an error")
}

func TestDeleteSavingsGoalSummary(t *testing.T) {
	s, _ := newTestStore(t)

	g, err := s.AddGoal("Vacation", core.Money{Cents: 50000}, core.Money{Cents: 12000})
	require.NoError(t, err)

	pending, err := s.RequestDelete(core.CollectionSavings, g.ID)
	require.NoError(t, err)
	assert.Contains(t, pending.Prompt(), "delete this savings goal")
	assert.Contains(t, pending.Summary(), "Goal: Vacation")
	assert.Contains(t, pending.Summary(), "Target: $500.00")
	assert.Contains(t, pending.Summary(), "Saved: $120.00")

	removed, err := pending.Confirm()
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Empty(t, s.Goals())
}

func TestDeleteSettingTwoPhase(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.SaveSetting("theme", "dark"))

	pending, err := s.RequestDelete(core.CollectionSettings, "theme")
	require.NoError(t, err)
	assert.Contains(t, pending.Prompt(), "delete this setting")
	assert.Contains(t, pending.Summary(), "Setting: theme")

	removed, err := pending.Confirm()
	require.NoError(t, err)
	assert.True(t, removed, "confirm must remove the setting it summarized")

	_, ok := s.Setting("theme")
	assert.False(t, ok)
	assert.Empty(t, s.Settings())
}

func TestClearAllTwoPhase(t *testing.T) {
	s, kv := newTestStore(t)

	_, err := s.AddEntry(core.CollectionIncome, core.Money{Cents: 100}, "Salary", core.NewDate(2024, 3, 1))
	require.NoError(t, err)
	_, err = s.AddEntry(core.CollectionExpenses, core.Money{Cents: 50}, "Food", core.NewDate(2024, 3, 2))
	require.NoError(t, err)
	_, err = s.AddGoal("Car", core.Money{Cents: 10000}, core.Money{})
	require.NoError(t, err)
	require.NoError(t, s.SetCurrency("EUR"))

	pending, err := s.RequestClear()
	require.NoError(t, err)
	assert.Contains(t, pending.Prompt(), "cannot be undone")

	// Still intact before confirmation
	require.Len(t, s.Entries(core.CollectionIncome), 1)

	cleared, err := pending.Confirm()
	require.NoError(t, err)
	assert.True(t, cleared)

	assert.Empty(t, s.Entries(core.CollectionIncome))
	assert.Empty(t, s.Entries(core.CollectionExpenses))
	assert.Empty(t, s.Goals())
	assert.Empty(t, s.Settings())
	assert.Equal(t, "USD", s.Currency(), "currency falls back to default after clear")

	for _, key := range kv.Keys() {
		assert.NotContains(t, key, testUser().ID, "no user-scoped keys may survive a clear")
	}
}

func TestSavingsAddToGoalClampsAtTarget(t *testing.T) {
	s, _ := newTestStore(t)

	g, err := s.AddGoal("Emergency fund", core.Money{Cents: 50000}, core.Money{Cents: 45000})
	require.NoError(t, err)

	updated, err := s.AddToGoal(g.ID, core.Money{Cents: 10000})
	require.NoError(t, err)
	assert.Equal(t, int64(50000), updated.SavedAmount.Cents, "saved amount clamps at target")
	assert.InDelta(t, 100.0, updated.Progress(), 0.0001)
}

func TestSavingsAddToGoalRejectsNonPositive(t *testing.T) {
	s, _ := newTestStore(t)

	g, err := s.AddGoal("Bike", core.Money{Cents: 20000}, core.Money{})
	require.NoError(t, err)

	_, err = s.AddToGoal(g.ID, core.Money{Cents: 0})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
	_, err = s.AddToGoal(g.ID, core.Money{Cents: -100})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	_, err = s.AddToGoal("missing", core.Money{Cents: 100})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSavingsUpdateGoalDoesNotReclamp(t *testing.T) {
	s, _ := newTestStore(t)

	g, err := s.AddGoal("House", core.Money{Cents: 50000}, core.Money{Cents: 60000})
	require.NoError(t, err)

	// Direct edits may leave saved above target; only increments clamp
	saved := core.Money{Cents: 70000}
	updated, err := s.UpdateGoal(g.ID, core.GoalPatch{SavedAmount: &saved})
	require.NoError(t, err)
	assert.Equal(t, int64(70000), updated.SavedAmount.Cents)
	assert.Greater(t, updated.Progress(), 100.0)
}

func TestSavingsGoalValidation(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.AddGoal("  ", core.Money{Cents: 100}, core.Money{})
	assert.ErrorIs(t, err, core.ErrEmptyGoalName)

	_, err = s.AddGoal("Trip", core.Money{Cents: -1}, core.Money{})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
}

func TestSettingsUpsertByName(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.SaveSetting("theme", "dark"))
	require.NoError(t, s.SaveSetting("theme", "light"))

	settings := s.Settings()
	require.Len(t, settings, 1, "one entry per setting name")
	assert.Equal(t, "theme", settings[0].SettingName)
	assert.Equal(t, "light", settings[0].Value)
}

func TestCurrencyDefaultsAndRelabel(t *testing.T) {
	s, _ := newTestStore(t)

	assert.Equal(t, "USD", s.Currency())

	e, err := s.AddEntry(core.CollectionExpenses, core.Money{Cents: 1250}, "Food", core.NewDate(2024, 3, 10))
	require.NoError(t, err)

	require.NoError(t, s.SetCurrency("eur"))
	assert.Equal(t, "EUR", s.Currency())

	// Stored amounts are never converted by a currency change
	entries := s.Entries(core.CollectionExpenses)
	require.Len(t, entries, 1)
	assert.Equal(t, e.Amount.Cents, entries[0].Amount.Cents)
}

func TestCategoriesDefaultsAndAdd(t *testing.T) {
	s, _ := newTestStore(t)

	assert.Equal(t, DefaultCategories(), s.Categories())

	require.NoError(t, s.AddCategory("Books"))
	assert.Contains(t, s.Categories(), "Books")

	assert.ErrorIs(t, s.AddCategory("Books"), ErrDuplicateCategory)
	assert.ErrorIs(t, s.AddCategory("  "), core.ErrEmptyCategory)
}

func TestDeleteCategoryRelabelsExpenses(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.AddEntry(core.CollectionExpenses, core.Money{Cents: 1000}, "Food", core.NewDate(2024, 3, 10))
	require.NoError(t, err)
	_, err = s.AddEntry(core.CollectionExpenses, core.Money{Cents: 2000}, "Rent", core.NewDate(2024, 3, 11))
	require.NoError(t, err)

	require.NoError(t, s.DeleteCategory("Food"))

	assert.NotContains(t, s.Categories(), "Food")

	entries := s.Entries(core.CollectionExpenses)
	require.Len(t, entries, 2, "entries survive category deletion")
	assert.Equal(t, core.UncategorizedCategory, entries[0].Category)
	assert.Equal(t, "Rent", entries[1].Category)

	assert.ErrorIs(t, s.DeleteCategory("Nope"), core.ErrNotFound)
}

func TestExportImportRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.AddEntry(core.CollectionIncome, core.Money{Cents: 100000}, "Salary", core.NewDate(2024, 3, 1))
	require.NoError(t, err)
	_, err = s.AddEntry(core.CollectionExpenses, core.Money{Cents: 40000}, "Rent", core.NewDate(2024, 3, 5))
	require.NoError(t, err)
	_, err = s.AddGoal("Vacation", core.Money{Cents: 50000}, core.Money{Cents: 10000})
	require.NoError(t, err)
	require.NoError(t, s.SetCurrency("GBP"))

	doc, err := s.ExportAll()
	require.NoError(t, err)
	data, err := json.Marshal(doc)
	require.NoError(t, err)

	// Wipe, then restore
	pending, err := s.RequestClear()
	require.NoError(t, err)
	_, err = pending.Confirm()
	require.NoError(t, err)
	require.Empty(t, s.Entries(core.CollectionIncome))

	require.NoError(t, s.ImportAll(data))

	income := s.Entries(core.CollectionIncome)
	require.Len(t, income, 1)
	assert.Equal(t, int64(100000), income[0].Amount.Cents)
	require.Len(t, s.Entries(core.CollectionExpenses), 1)
	require.Len(t, s.Goals(), 1)
	assert.Equal(t, "GBP", s.Currency())
}

func TestExportEmptyCollectionsAreEmptyLists(t *testing.T) {
	s, _ := newTestStore(t)

	doc, err := s.ExportAll()
	require.NoError(t, err)

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"income":[]`)
	assert.Contains(t, string(data), `"expenses":[]`)
	assert.Contains(t, string(data), `"savings":[]`)
	assert.Contains(t, string(data), `"settings":[]`)
	assert.False(t, doc.ExportDate.IsZero())
}

func TestImportPartialDocumentLeavesOtherCollections(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.AddEntry(core.CollectionExpenses, core.Money{Cents: 500}, "Food", core.NewDate(2024, 3, 2))
	require.NoError(t, err)

	// Document carrying only income; expenses must survive untouched
	partial := `{"income":[{"id":"5","amount":100,"category":"Salary","date":"2024-03-01","createdAt":"2024-03-01T00:00:00Z"}]}`
	require.NoError(t, s.ImportAll([]byte(partial)))

	require.Len(t, s.Entries(core.CollectionIncome), 1)
	require.Len(t, s.Entries(core.CollectionExpenses), 1)
}

func TestImportMalformedFailsWithoutPartialWrite(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.AddEntry(core.CollectionIncome, core.Money{Cents: 100}, "Salary", core.NewDate(2024, 3, 1))
	require.NoError(t, err)

	// income parses, expenses does not; neither may be written
	bad := `{"income":[],"expenses":"not a list"}`
	err = s.ImportAll([]byte(bad))
	require.Error(t, err)

	require.Len(t, s.Entries(core.CollectionIncome), 1, "existing income must survive a failed import")

	assert.Error(t, s.ImportAll([]byte("not json")))
}

func TestImportIgnoresUnknownKeys(t *testing.T) {
	s, _ := newTestStore(t)

	doc := `{"income":[],"wallet":{"foo":1}}`
	require.NoError(t, s.ImportAll([]byte(doc)))
	assert.Empty(t, s.Entries(core.CollectionIncome))
}

func TestDashboardStatsMonthScenario(t *testing.T) {
	kv := kvstore.NewMemory()
	now := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	s := New(kv, fixedIdentity{user: testUser(), ok: true}, WithClock(func() time.Time { return now }))

	_, err := s.AddEntry(core.CollectionIncome, core.Money{Cents: 100000}, "Salary", core.NewDate(2024, 3, 1))
	require.NoError(t, err)
	_, err = s.AddEntry(core.CollectionExpenses, core.Money{Cents: 40000}, "Rent", core.NewDate(2024, 3, 5))
	require.NoError(t, err)
	// Outside the current month, must not count
	_, err = s.AddEntry(core.CollectionExpenses, core.Money{Cents: 99900}, "Rent", core.NewDate(2024, 2, 5))
	require.NoError(t, err)

	d := s.DashboardStats()
	assert.Equal(t, int64(100000), d.MonthlyIncome.Cents)
	assert.Equal(t, int64(40000), d.MonthlyExpenses.Cents)
	assert.Equal(t, int64(60000), d.Balance.Cents)
}

func TestUserIsolation(t *testing.T) {
	kv := kvstore.NewMemory()
	alice := New(kv, fixedIdentity{user: core.User{ID: "1"}, ok: true})
	bob := New(kv, fixedIdentity{user: core.User{ID: "2"}, ok: true})

	_, err := alice.AddEntry(core.CollectionExpenses, core.Money{Cents: 100}, "Food", core.NewDate(2024, 3, 1))
	require.NoError(t, err)

	assert.Empty(t, bob.Entries(core.CollectionExpenses), "collections are scoped per user")
	assert.Len(t, alice.Entries(core.CollectionExpenses), 1)
}

func TestCorruptCollectionDegradesToEmpty(t *testing.T) {
	s, kv := newTestStore(t)

	require.NoError(t, kv.Set(testUser().ID+"_expenses", "{corrupt"))
	assert.Empty(t, s.Entries(core.CollectionExpenses), "unreadable collection reads as empty")

	// Writing through replaces the corrupt payload
	_, err := s.AddEntry(core.CollectionExpenses, core.Money{Cents: 100}, "Food", core.NewDate(2024, 3, 1))
	require.NoError(t, err)
	assert.Len(t, s.Entries(core.CollectionExpenses), 1)
}
