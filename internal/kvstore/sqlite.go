package kvstore

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"budget/internal/cache"

	_ "modernc.org/sqlite"
)

const cacheCleanupInterval = 5 * time.Minute

// SQLite is a durable KV backed by a single sqlite table. Values are
// whole serialized collections, so a small read-through LRU keeps the
// hot keys (the active user's four collections) out of the database on
// repeated reads. The single-writer model makes invalidation trivial:
// every write updates the cache in place.
type SQLite struct {
	db    *sql.DB
	cache *cache.LRUCache[string]

	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewSQLite opens (creating if needed) the database at dbPath and runs
// schema migrations.
func NewSQLite(dbPath string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	s := &SQLite{
		db:          db,
		cache:       cache.NewLRUCache[string](64, 5*time.Minute),
		stopCleanup: make(chan struct{}),
	}
	s.startCleanup()
	return s, nil
}

// startCleanup periodically drops expired cache entries so idle users'
// collections don't pin memory between requests.
func (s *SQLite) startCleanup() {
	go func() {
		ticker := time.NewTicker(cacheCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.cache.CleanExpired()
			case <-s.stopCleanup:
				return
			}
		}
	}()
}

func (s *SQLite) Get(key string) (string, bool, error) {
	if v, ok := s.cache.Get(key); ok {
		return v, true, nil
	}

	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}

	s.cache.Set(key, value)
	return value, true, nil
}

func (s *SQLite) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	s.cache.Set(key, value)
	return nil
}

func (s *SQLite) Remove(key string) error {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("remove %q: %w", key, err)
	}
	s.cache.Delete(key)
	return nil
}

func (s *SQLite) Ping() error {
	return s.db.Ping()
}

func (s *SQLite) Close() error {
	s.stopOnce.Do(func() { close(s.stopCleanup) })
	if s.db != nil {
		slog.Debug("Closing sqlite kv store", "cached_keys", s.cache.Size())
		return s.db.Close()
	}
	return nil
}
