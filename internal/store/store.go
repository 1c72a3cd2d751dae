// Package store implements the user-scoped record store: typed CRUD
// over named collections, settings, savings goals, and backup
// documents, persisted whole-collection through an injected key-value
// store. All reads and writes are scoped to the identity provider's
// current user; with no active user reads degrade to empty results and
// mutations fail with ErrNoUser.
package store

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"budget/internal/core"
	"budget/internal/kvstore"
	applog "budget/internal/log"
)

var (
	ErrDuplicateCategory = errors.New("category already exists")
)

// Identity supplies the active user. Injected rather than ambient so
// tests can substitute a fixed identity.
type Identity interface {
	CurrentUser() (core.User, bool)
}

// Store is the record store over one user's collections.
type Store struct {
	kv       kvstore.KV
	identity Identity
	now      func() time.Time

	// id generation state; ids are time-based and strictly monotonic
	// within the process, never reused
	idMu   sync.Mutex
	lastID int64
}

type Option func(*Store)

// WithClock overrides the store's notion of now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(kv kvstore.KV, identity Identity, opts ...Option) *Store {
	s := &Store{
		kv:       kv,
		identity: identity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// nextID returns a fresh record id: the current time in milliseconds,
// bumped past the previous id when two records land in the same
// millisecond.
func (s *Store) nextID() string {
	s.idMu.Lock()
	defer s.idMu.Unlock()

	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return strconv.FormatInt(id, 10)
}

func (s *Store) key(userID string, col core.Collection) string {
	return userID + "_" + string(col)
}

// readCollection loads one collection for the given user. A missing
// key or an unreadable value degrades to an empty collection; the
// record layer never surfaces persistence faults to the caller.
func readCollection[T any](s *Store, userID string, col core.Collection) []T {
	raw, ok, err := s.kv.Get(s.key(userID, col))
	if err != nil {
		slog.Warn("Failed reading collection",
			applog.FieldUserID, userID, applog.FieldCollection, string(col), applog.FieldError, err)
		return nil
	}
	if !ok {
		return nil
	}
	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		slog.Warn("Discarding unreadable collection",
			applog.FieldUserID, userID, applog.FieldCollection, string(col), applog.FieldError, err)
		return nil
	}
	return items
}

// writeCollection persists the whole collection back; every mutation
// rewrites the full serialized sequence.
func writeCollection[T any](s *Store, userID string, col core.Collection, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return s.kv.Set(s.key(userID, col), string(data))
}

// Entries returns the income or expense collection in insertion order.
// Returns nil when no user is active or the collection is empty.
func (s *Store) Entries(col core.Collection) []core.Entry {
	user, ok := s.identity.CurrentUser()
	if !ok {
		return nil
	}
	return readCollection[core.Entry](s, user.ID, col)
}

// AddEntry appends a validated entry to the income or expense
// collection, assigning a fresh id and creation stamp.
func (s *Store) AddEntry(col core.Collection, amount core.Money, category string, date core.Date) (core.Entry, error) {
	user, ok := s.identity.CurrentUser()
	if !ok {
		return core.Entry{}, core.ErrNoUser
	}

	entry := core.Entry{
		ID:        s.nextID(),
		Amount:    amount,
		Category:  category,
		Date:      date,
		CreatedAt: s.now().UTC(),
		UserID:    user.ID,
	}
	if err := entry.Validate(); err != nil {
		return core.Entry{}, err
	}

	items := readCollection[core.Entry](s, user.ID, col)
	items = append(items, entry)
	if err := writeCollection(s, user.ID, col, items); err != nil {
		return core.Entry{}, err
	}

	slog.Debug("Entry added",
		applog.FieldUserID, user.ID,
		applog.FieldCollection, string(col),
		applog.FieldRecordID, entry.ID,
		applog.FieldAmountCents, entry.Amount.Cents,
		applog.FieldCategory, entry.Category)

	return entry, nil
}

// UpdateEntry merges the non-nil patch fields over the stored entry,
// stamps the update time, and persists. Returns ErrNotFound when the
// id does not exist.
func (s *Store) UpdateEntry(col core.Collection, id string, patch core.EntryPatch) (core.Entry, error) {
	user, ok := s.identity.CurrentUser()
	if !ok {
		return core.Entry{}, core.ErrNoUser
	}

	items := readCollection[core.Entry](s, user.ID, col)
	idx := -1
	for i := range items {
		if items[i].ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return core.Entry{}, core.ErrNotFound
	}

	updated := items[idx]
	if patch.Amount != nil {
		updated.Amount = *patch.Amount
	}
	if patch.Category != nil {
		updated.Category = *patch.Category
	}
	if patch.Date != nil {
		updated.Date = *patch.Date
	}
	if err := updated.Validate(); err != nil {
		return core.Entry{}, err
	}
	stamp := s.now().UTC()
	updated.UpdatedAt = &stamp

	items[idx] = updated
	if err := writeCollection(s, user.ID, col, items); err != nil {
		return core.Entry{}, err
	}

	slog.Debug("Entry updated",
		applog.FieldUserID, user.ID, applog.FieldCollection, string(col), applog.FieldRecordID, id)

	return updated, nil
}
