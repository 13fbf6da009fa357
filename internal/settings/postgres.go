package settings

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"sync"
	"time"
)

// PostgresStore is a Provider backed by the settings table. Operators change
// values at runtime, so reads are not cached beyond a short TTL.
type PostgresStore struct {
	db *sql.DB

	mu    sync.Mutex
	cache map[string]cachedValue
	ttl   time.Duration
}

type cachedValue struct {
	value   string
	ok      bool
	expires time.Time
}

// NewPostgresStore creates a settings store over db.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:    db,
		cache: make(map[string]cachedValue),
		ttl:   30 * time.Second,
	}
}

// Get returns the stored value for key and whether it exists.
func (s *PostgresStore) Get(ctx context.Context, key string) (string, bool) {
	s.mu.Lock()
	if c, ok := s.cache[key]; ok && time.Now().Before(c.expires) {
		s.mu.Unlock()
		return c.value, c.ok
	}
	s.mu.Unlock()

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	found := true
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Printf("settings: read %q failed: %v", key, err)
			return "", false
		}
		found = false
	}

	s.mu.Lock()
	s.cache[key] = cachedValue{value: value, ok: found, expires: time.Now().Add(s.ttl)}
	s.mu.Unlock()
	return value, found
}

// Set upserts a setting and drops the cached read.
func (s *PostgresStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, key, value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()
	return nil
}
