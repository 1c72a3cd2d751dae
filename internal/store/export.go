package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"budget/internal/core"
	applog "budget/internal/log"
)

// Document is the backup interchange format: a snapshot of all four
// collections plus the export timestamp. It is the sole format for
// backup and restore.
type Document struct {
	Income     []core.Entry       `json:"income"`
	Expenses   []core.Entry       `json:"expenses"`
	Savings    []core.SavingsGoal `json:"savings"`
	Settings   []core.Setting     `json:"settings"`
	ExportDate time.Time          `json:"exportDate"`
}

// ExportAll snapshots the current user's collections into a Document.
func (s *Store) ExportAll() (Document, error) {
	user, ok := s.identity.CurrentUser()
	if !ok {
		return Document{}, core.ErrNoUser
	}

	doc := Document{
		Income:     readCollection[core.Entry](s, user.ID, core.CollectionIncome),
		Expenses:   readCollection[core.Entry](s, user.ID, core.CollectionExpenses),
		Savings:    readCollection[core.SavingsGoal](s, user.ID, core.CollectionSavings),
		Settings:   readCollection[core.Setting](s, user.ID, core.CollectionSettings),
		ExportDate: s.now().UTC(),
	}
	if doc.Income == nil {
		doc.Income = []core.Entry{}
	}
	if doc.Expenses == nil {
		doc.Expenses = []core.Entry{}
	}
	if doc.Savings == nil {
		doc.Savings = []core.SavingsGoal{}
	}
	if doc.Settings == nil {
		doc.Settings = []core.Setting{}
	}
	return doc, nil
}

// ImportAll restores collections from a serialized Document. Each
// recognized collection key present in the document overwrites the
// stored collection wholesale (no merging); absent and unrecognized
// keys are ignored. Malformed input fails before anything is written,
// leaving all collections untouched.
func (s *Store) ImportAll(data []byte) error {
	user, ok := s.identity.CurrentUser()
	if !ok {
		return core.ErrNoUser
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse import document: %w", err)
	}

	// Stage every present collection first so a malformed one cannot
	// leave a partial overwrite behind.
	type staged struct {
		col   core.Collection
		write func() error
	}
	var writes []staged

	if blob, present := raw[string(core.CollectionIncome)]; present {
		var items []core.Entry
		if err := json.Unmarshal(blob, &items); err != nil {
			return fmt.Errorf("parse income collection: %w", err)
		}
		writes = append(writes, staged{core.CollectionIncome, func() error {
			return writeCollection(s, user.ID, core.CollectionIncome, items)
		}})
	}
	if blob, present := raw[string(core.CollectionExpenses)]; present {
		var items []core.Entry
		if err := json.Unmarshal(blob, &items); err != nil {
			return fmt.Errorf("parse expenses collection: %w", err)
		}
		writes = append(writes, staged{core.CollectionExpenses, func() error {
			return writeCollection(s, user.ID, core.CollectionExpenses, items)
		}})
	}
	if blob, present := raw[string(core.CollectionSavings)]; present {
		var items []core.SavingsGoal
		if err := json.Unmarshal(blob, &items); err != nil {
			return fmt.Errorf("parse savings collection: %w", err)
		}
		writes = append(writes, staged{core.CollectionSavings, func() error {
			return writeCollection(s, user.ID, core.CollectionSavings, items)
		}})
	}
	if blob, present := raw[string(core.CollectionSettings)]; present {
		var items []core.Setting
		if err := json.Unmarshal(blob, &items); err != nil {
			return fmt.Errorf("parse settings collection: %w", err)
		}
		writes = append(writes, staged{core.CollectionSettings, func() error {
			return writeCollection(s, user.ID, core.CollectionSettings, items)
		}})
	}

	for _, w := range writes {
		if err := w.write(); err != nil {
			return fmt.Errorf("restore %s: %w", w.col, err)
		}
	}

	slog.Info("Data imported", applog.FieldUserID, user.ID, "collections", len(writes))
	return nil
}
