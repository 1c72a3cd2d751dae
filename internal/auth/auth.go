// Package auth is the session and identity provider: registration,
// login, logout, and profile maintenance over the key-value store.
// The account index lives under the fixed key "users"; the active
// session is the pair "authToken" and "userData".
//
// Passwords are stored as bcrypt hashes at the storage boundary. No
// session hardening exists beyond that: the token is opaque and never
// expires, which matches the single-user, single-device model.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"budget/internal/core"
	"budget/internal/kvstore"
	applog "budget/internal/log"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	keyUsers     = "users"
	keyUserData  = "userData"
	keyAuthToken = "authToken"

	minPasswordLen = 6
)

var (
	ErrMissingField       = errors.New("missing required field")
	ErrEmailTaken         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters long")
	ErrPasswordUnchanged  = errors.New("new password must differ from the current password")
)

// storedUser is the persisted account record; the hash never leaves
// this package.
type storedUser struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
}

// Manager provides identity over a KV store. It implements
// store.Identity.
type Manager struct {
	kv    kvstore.KV
	delay time.Duration
	now   func() time.Time

	idMu   sync.Mutex
	lastID int64
}

type Option func(*Manager)

// WithLatency sets the fixed simulated delay applied to login and
// registration. The delay is cosmetic; the underlying lookups are
// synchronous and cannot time out.
func WithLatency(d time.Duration) Option {
	return func(m *Manager) { m.delay = d }
}

// WithClock overrides the manager's notion of now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func New(kv kvstore.KV, opts ...Option) *Manager {
	m := &Manager{kv: kv, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register creates an account and starts a session for it. Duplicate
// emails are rejected.
func (m *Manager) Register(ctx context.Context, name, email, password, confirm string) (core.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return core.User{}, ErrMissingField
	}
	if password != confirm {
		return core.User{}, ErrPasswordMismatch
	}
	if len(password) < minPasswordLen {
		return core.User{}, ErrPasswordTooShort
	}

	if err := m.simulateLatency(ctx); err != nil {
		return core.User{}, err
	}

	users, err := m.loadUsers()
	if err != nil {
		return core.User{}, err
	}
	for _, u := range users {
		if normalizeEmail(u.Email) == email {
			return core.User{}, ErrEmailTaken
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return core.User{}, err
	}

	account := storedUser{
		ID:           m.nextID(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
	}
	users = append(users, account)
	if err := m.saveUsers(users); err != nil {
		return core.User{}, err
	}

	user := core.User{ID: account.ID, Name: account.Name, Email: account.Email}
	if err := m.startSession(user); err != nil {
		return core.User{}, err
	}

	slog.Info("User registered", applog.FieldUserID, user.ID)
	return user, nil
}

// Login authenticates by email and password and starts a session.
// Failures return ErrInvalidCredentials without distinguishing a
// missing account from a wrong password.
func (m *Manager) Login(ctx context.Context, email, password string) (core.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return core.User{}, ErrMissingField
	}

	if err := m.simulateLatency(ctx); err != nil {
		return core.User{}, err
	}

	users, err := m.loadUsers()
	if err != nil {
		return core.User{}, err
	}
	for _, u := range users {
		if normalizeEmail(u.Email) != email {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
			return core.User{}, ErrInvalidCredentials
		}
		user := core.User{ID: u.ID, Name: u.Name, Email: u.Email}
		if err := m.startSession(user); err != nil {
			return core.User{}, err
		}
		slog.Info("User logged in", applog.FieldUserID, user.ID)
		return user, nil
	}
	return core.User{}, ErrInvalidCredentials
}

// Logout ends the current session. The user's collections stay in the
// store.
func (m *Manager) Logout() error {
	if err := m.kv.Remove(keyAuthToken); err != nil {
		return err
	}
	return m.kv.Remove(keyUserData)
}

// CurrentUser returns the active user, if a session exists.
func (m *Manager) CurrentUser() (core.User, bool) {
	_, hasToken, err := m.kv.Get(keyAuthToken)
	if err != nil || !hasToken {
		return core.User{}, false
	}
	raw, ok, err := m.kv.Get(keyUserData)
	if err != nil || !ok {
		return core.User{}, false
	}
	var user core.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		// A corrupt session is treated as logged out
		_ = m.Logout()
		return core.User{}, false
	}
	return user, true
}

// IsAuthenticated reports whether a session is active.
func (m *Manager) IsAuthenticated() bool {
	_, ok := m.CurrentUser()
	return ok
}

// UpdateProfile changes the current user's name and email, rewriting
// both the session snapshot and the account index.
func (m *Manager) UpdateProfile(name, email string) (core.User, error) {
	user, ok := m.CurrentUser()
	if !ok {
		return core.User{}, core.ErrNoUser
	}

	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" {
		return core.User{}, ErrMissingField
	}

	users, err := m.loadUsers()
	if err != nil {
		return core.User{}, err
	}
	for i := range users {
		if users[i].ID != user.ID && normalizeEmail(users[i].Email) == email {
			return core.User{}, ErrEmailTaken
		}
	}
	for i := range users {
		if users[i].ID == user.ID {
			users[i].Name = name
			users[i].Email = email
		}
	}
	if err := m.saveUsers(users); err != nil {
		return core.User{}, err
	}

	user.Name = name
	user.Email = email
	if err := m.writeUserData(user); err != nil {
		return core.User{}, err
	}
	return user, nil
}

// ChangePassword replaces the current user's password after checking
// the current one. The session stays active.
func (m *Manager) ChangePassword(current, next, confirm string) error {
	user, ok := m.CurrentUser()
	if !ok {
		return core.ErrNoUser
	}
	if current == "" || next == "" || confirm == "" {
		return ErrMissingField
	}
	if len(next) < minPasswordLen {
		return ErrPasswordTooShort
	}
	if next != confirm {
		return ErrPasswordMismatch
	}
	if next == current {
		return ErrPasswordUnchanged
	}

	users, err := m.loadUsers()
	if err != nil {
		return err
	}
	for i := range users {
		if users[i].ID != user.ID {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(users[i].PasswordHash), []byte(current)) != nil {
			return ErrInvalidCredentials
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		users[i].PasswordHash = string(hash)
		if err := m.saveUsers(users); err != nil {
			return err
		}
		slog.Info("Password changed", applog.FieldUserID, user.ID)
		return nil
	}
	return ErrInvalidCredentials
}

// UserByEmail looks up a registered user without touching the session.
// Used by operator tooling.
func (m *Manager) UserByEmail(email string) (core.User, error) {
	users, err := m.loadUsers()
	if err != nil {
		return core.User{}, err
	}
	normalized := normalizeEmail(email)
	for _, u := range users {
		if normalizeEmail(u.Email) == normalized {
			return core.User{ID: u.ID, Name: u.Name, Email: u.Email}, nil
		}
	}
	return core.User{}, core.ErrNotFound
}

func (m *Manager) startSession(user core.User) error {
	if err := m.kv.Set(keyAuthToken, uuid.NewString()); err != nil {
		return err
	}
	return m.writeUserData(user)
}

func (m *Manager) writeUserData(user core.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return m.kv.Set(keyUserData, string(data))
}

func (m *Manager) loadUsers() ([]storedUser, error) {
	raw, ok, err := m.kv.Get(keyUsers)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var users []storedUser
	if err := json.Unmarshal([]byte(raw), &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (m *Manager) saveUsers(users []storedUser) error {
	data, err := json.Marshal(users)
	if err != nil {
		return err
	}
	return m.kv.Set(keyUsers, string(data))
}

// nextID mirrors record id generation: millisecond timestamps, bumped
// to stay strictly monotonic within the process.
func (m *Manager) nextID() string {
	m.idMu.Lock()
	defer m.idMu.Unlock()

	id := m.now().UnixMilli()
	if id <= m.lastID {
		id = m.lastID + 1
	}
	m.lastID = id
	return strconv.FormatInt(id, 10)
}

// simulateLatency applies the configured fixed delay, honoring
// cancellation.
func (m *Manager) simulateLatency(ctx context.Context) error {
	if m.delay <= 0 {
		return nil
	}
	timer := time.NewTimer(m.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
