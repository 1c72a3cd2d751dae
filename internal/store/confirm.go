package store

import (
	"fmt"

	"budget/internal/core"
)

// Deletion and clearing are confirmation-gated: the request step
// resolves the target and produces the human-readable summary for the
// prompt, the confirm step performs the irreversible removal. The
// decision point is an explicit state transition rather than a blocking
// dialog, so it is testable without a UI.

// PendingDelete is a delete that has been requested but not yet
// confirmed.
type PendingDelete struct {
	store   *Store
	userID  string
	col     core.Collection
	id      string
	summary string
	done    bool
}

// RequestDelete locates the record and returns the pending
// confirmation. Returns ErrNotFound when the id does not exist in the
// collection.
func (s *Store) RequestDelete(col core.Collection, id string) (*PendingDelete, error) {
	user, ok := s.identity.CurrentUser()
	if !ok {
		return nil, core.ErrNoUser
	}

	summary, err := s.describe(user.ID, col, id)
	if err != nil {
		return nil, err
	}

	return &PendingDelete{
		store:   s,
		userID:  user.ID,
		col:     col,
		id:      id,
		summary: summary,
	}, nil
}

// Prompt returns the full confirmation question, including what is
// about to be removed.
func (p *PendingDelete) Prompt() string {
	return fmt.Sprintf("Are you sure you want to delete this %s?\n\n%s", p.col.Label(), p.summary)
}

// Summary returns the human-readable description of the record.
func (p *PendingDelete) Summary() string {
	return p.summary
}

// Confirm removes the record and reports whether deletion occurred.
// The record may have vanished between request and confirm; that is
// reported as false, not an error.
func (p *PendingDelete) Confirm() (bool, error) {
	if p.done {
		return false, nil
	}
	p.done = true

	switch p.col {
	case core.CollectionSavings:
		return removeByID[core.SavingsGoal](p.store, p.userID, p.col, p.id, func(g core.SavingsGoal) string { return g.ID })
	case core.CollectionSettings:
		// Settings are keyed by name, not id
		return removeByID[core.Setting](p.store, p.userID, p.col, p.id, func(st core.Setting) string { return st.SettingName })
	default:
		return removeByID[core.Entry](p.store, p.userID, p.col, p.id, func(e core.Entry) string { return e.ID })
	}
}

// Cancel abandons the pending delete, leaving the collection untouched.
func (p *PendingDelete) Cancel() {
	p.done = true
}

func removeByID[T any](s *Store, userID string, col core.Collection, id string, idOf func(T) string) (bool, error) {
	items := readCollection[T](s, userID, col)
	kept := make([]T, 0, len(items))
	removed := false
	for _, item := range items {
		if idOf(item) == id {
			removed = true
			continue
		}
		kept = append(kept, item)
	}
	if !removed {
		return false, nil
	}
	if err := writeCollection(s, userID, col, kept); err != nil {
		return false, err
	}
	return true, nil
}

// describe builds the summary line shown in the confirmation prompt,
// matching the collection's record shape.
func (s *Store) describe(userID string, col core.Collection, id string) (string, error) {
	switch col {
	case core.CollectionSavings:
		for _, g := range readCollection[core.SavingsGoal](s, userID, col) {
			if g.ID == id {
				return fmt.Sprintf("Goal: %s | Target: $%s | Saved: $%s",
					g.GoalName, g.TargetAmount, g.SavedAmount), nil
			}
		}
	case core.CollectionSettings:
		for _, st := range readCollection[core.Setting](s, userID, col) {
			if st.SettingName == id {
				return fmt.Sprintf("Setting: %s", st.SettingName), nil
			}
		}
	default:
		for _, e := range readCollection[core.Entry](s, userID, col) {
			if e.ID == id {
				return fmt.Sprintf("Amount: $%s | Category: %s | Date: %s",
					e.Amount, e.Category, e.Date.Format("1/2/2006")), nil
			}
		}
	}
	return "", core.ErrNotFound
}

// PendingClear is a requested-but-unconfirmed wipe of every collection
// belonging to the current user.
type PendingClear struct {
	store  *Store
	userID string
	done   bool
}

// RequestClear starts the clear-all flow for the current user.
func (s *Store) RequestClear() (*PendingClear, error) {
	user, ok := s.identity.CurrentUser()
	if !ok {
		return nil, core.ErrNoUser
	}
	return &PendingClear{store: s, userID: user.ID}, nil
}

// Prompt returns the confirmation question.
func (p *PendingClear) Prompt() string {
	return "Are you sure you want to clear ALL your data? This action cannot be undone."
}

// Confirm removes all four collections. Irreversible.
func (p *PendingClear) Confirm() (bool, error) {
	if p.done {
		return false, nil
	}
	p.done = true

	for _, col := range core.Collections() {
		if err := p.store.kv.Remove(p.store.key(p.userID, col)); err != nil {
			return false, fmt.Errorf("clear %s: %w", col, err)
		}
	}
	return true, nil
}

// Cancel abandons the pending clear.
func (p *PendingClear) Cancel() {
	p.done = true
}
