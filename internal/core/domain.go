package core

import (
	"errors"
	"strings"
	"time"
)

const (
	CollectionIncome   Collection = "income"
	CollectionExpenses Collection = "expenses"
	CollectionSavings  Collection = "savings"
	CollectionSettings Collection = "settings"

	// UncategorizedCategory is the sentinel a deleted category is
	// relabeled to; historical totals keep counting these entries.
	UncategorizedCategory = "Uncategorized"
)

type (
	// Collection names a user-scoped sequence of records of one kind.
	Collection string

	// Date is a calendar date; time-of-day components are always zero.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// User is the owner of all collections below.
	User struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}

	// Entry is one income or expense record. Income and expenses share
	// this shape and differ only by the collection they live in.
	Entry struct {
		ID        string     `json:"id"`
		Amount    Money      `json:"amount"`
		Category  string     `json:"category"`
		Date      Date       `json:"date"`
		CreatedAt time.Time  `json:"createdAt"`
		UpdatedAt *time.Time `json:"updatedAt,omitempty"`
		UserID    string     `json:"userId,omitempty"`
	}

	SavingsGoal struct {
		ID           string     `json:"id"`
		GoalName     string     `json:"goalName"`
		TargetAmount Money      `json:"targetAmount"`
		SavedAmount  Money      `json:"savedAmount"`
		CreatedDate  Date       `json:"createdDate"`
		CreatedAt    time.Time  `json:"createdAt"`
		UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
		UserID       string     `json:"userId,omitempty"`
	}

	// Setting is a named, single-valued user preference. Values survive
	// a JSON round trip, so collection-valued settings (the category
	// list) come back as []any and need coercion at the read site.
	Setting struct {
		SettingName string `json:"settingName"`
		Value       any    `json:"value"`
	}

	// EntryPatch is a partial update; nil fields keep the stored value.
	EntryPatch struct {
		Amount   *Money
		Category *string
		Date     *Date
	}

	// GoalPatch is a partial update for a savings goal. The update path
	// does not re-clamp SavedAmount against TargetAmount; only the
	// increment path clamps.
	GoalPatch struct {
		GoalName     *string
		TargetAmount *Money
		SavedAmount  *Money
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrEmptyCategory = errors.New("empty category")
	ErrEmptyGoalName = errors.New("empty goal name")

	// ErrNotFound signals an update or delete against a missing id. It
	// is consumed by callers, never treated as fatal.
	ErrNotFound = errors.New("record not found")

	// ErrNoUser signals an operation attempted with no active user.
	ErrNoUser = errors.New("no active user")
)

// Collections lists every user-scoped collection, in storage order.
func Collections() []Collection {
	return []Collection{CollectionIncome, CollectionExpenses, CollectionSavings, CollectionSettings}
}

// Label returns the singular human-readable name for confirmation
// prompts ("delete this expense?").
func (c Collection) Label() string {
	switch c {
	case CollectionIncome:
		return "income entry"
	case CollectionExpenses:
		return "expense"
	case CollectionSavings:
		return "savings goal"
	case CollectionSettings:
		return "setting"
	default:
		return "record"
	}
}

// NewDate creates a calendar date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month, 1-12
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// InMonth reports whether the date falls in the given calendar month,
// calendar-local rather than UTC-normalized.
func (d Date) InMonth(year, month int) bool {
	return d.Year() == year && d.Month() == month
}

func (e Entry) Validate() error {
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	return nil
}

func (g SavingsGoal) Validate() error {
	if len(strings.TrimSpace(g.GoalName)) == 0 {
		return ErrEmptyGoalName
	}
	if len(g.GoalName) > 200 {
		return errors.New("goal name too long (max 200 characters)")
	}
	if err := g.TargetAmount.Validate(); err != nil {
		return err
	}
	if err := g.SavedAmount.Validate(); err != nil {
		return err
	}
	return nil
}

// Progress returns the goal's completion percentage, 0 when the target
// is zero.
func (g SavingsGoal) Progress() float64 {
	if g.TargetAmount.Cents <= 0 {
		return 0
	}
	return float64(g.SavedAmount.Cents) / float64(g.TargetAmount.Cents) * 100
}
