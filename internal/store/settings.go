package store

import (
	"log/slog"
	"strings"

	"budget/internal/core"
	applog "budget/internal/log"
)

const (
	SettingCurrency   = "currency"
	SettingCategories = "categories"

	DefaultCurrency = "USD"
)

// DefaultCategories is the bootstrap expense category set for users
// who have never edited their categories.
func DefaultCategories() []string {
	return []string{"Food", "Transportation", "Rent", "Utilities", "Entertainment", "Healthcare", "Shopping"}
}

// Settings returns every stored setting, empty when no user is active.
func (s *Store) Settings() []core.Setting {
	user, ok := s.identity.CurrentUser()
	if !ok {
		return nil
	}
	return readCollection[core.Setting](s, user.ID, core.CollectionSettings)
}

// Setting returns the named setting's value, if stored.
func (s *Store) Setting(name string) (any, bool) {
	for _, st := range s.Settings() {
		if st.SettingName == name {
			return st.Value, true
		}
	}
	return nil, false
}

// SaveSetting upserts a setting: updated in place when the name
// exists, appended otherwise. One entry per name.
func (s *Store) SaveSetting(name string, value any) error {
	user, ok := s.identity.CurrentUser()
	if !ok {
		return core.ErrNoUser
	}

	settings := readCollection[core.Setting](s, user.ID, core.CollectionSettings)
	updated := false
	for i := range settings {
		if settings[i].SettingName == name {
			settings[i].Value = value
			updated = true
			break
		}
	}
	if !updated {
		settings = append(settings, core.Setting{SettingName: name, Value: value})
	}

	if err := writeCollection(s, user.ID, core.CollectionSettings, settings); err != nil {
		return err
	}

	slog.Debug("Setting saved", applog.FieldUserID, user.ID, applog.FieldSetting, name)
	return nil
}

// Currency returns the display currency code, defaulting to USD.
// Changing it relabels amounts only; stored values are never
// converted.
func (s *Store) Currency() string {
	if v, ok := s.Setting(SettingCurrency); ok {
		if code, isString := v.(string); isString && code != "" {
			return code
		}
	}
	return DefaultCurrency
}

// SetCurrency stores the display currency code.
func (s *Store) SetCurrency(code string) error {
	return s.SaveSetting(SettingCurrency, strings.ToUpper(strings.TrimSpace(code)))
}

// Categories returns the user's expense categories, falling back to
// the bootstrap defaults when unset or unreadable.
func (s *Store) Categories() []string {
	v, ok := s.Setting(SettingCategories)
	if !ok {
		return DefaultCategories()
	}
	cats := toStrings(v)
	if cats == nil {
		// A non-list value means the setting was corrupted; fall back
		return DefaultCategories()
	}
	return cats
}

// AddCategory appends a new category. Duplicates are rejected.
func (s *Store) AddCategory(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ErrEmptyCategory
	}

	cats := s.Categories()
	for _, c := range cats {
		if c == name {
			return ErrDuplicateCategory
		}
	}
	return s.SaveSetting(SettingCategories, append(cats, name))
}

// DeleteCategory removes a category from the list and relabels every
// expense that referenced it to the Uncategorized sentinel, preserving
// amounts and historical totals.
func (s *Store) DeleteCategory(name string) error {
	user, ok := s.identity.CurrentUser()
	if !ok {
		return core.ErrNoUser
	}

	cats := s.Categories()
	kept := make([]string, 0, len(cats))
	found := false
	for _, c := range cats {
		if c == name {
			found = true
			continue
		}
		kept = append(kept, c)
	}
	if !found {
		return core.ErrNotFound
	}
	if err := s.SaveSetting(SettingCategories, kept); err != nil {
		return err
	}

	expenses := readCollection[core.Entry](s, user.ID, core.CollectionExpenses)
	relabeled := 0
	for i := range expenses {
		if expenses[i].Category == name {
			expenses[i].Category = core.UncategorizedCategory
			relabeled++
		}
	}
	if relabeled > 0 {
		if err := writeCollection(s, user.ID, core.CollectionExpenses, expenses); err != nil {
			return err
		}
	}

	slog.Debug("Category deleted",
		applog.FieldUserID, user.ID, applog.FieldCategory, name, "relabeled_expenses", relabeled)
	return nil
}

// toStrings coerces a JSON-round-tripped list back to []string. A
// freshly saved setting holds []string; one read back from storage
// holds []any.
func toStrings(v any) []string {
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...)
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}
