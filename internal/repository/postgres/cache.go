package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/zologic/city-ride/internal/cache"
)

// CacheStore is the durable cache tier backed by the cache_entries table. It
// keeps computed statistics available across Redis restarts.
type CacheStore struct {
	q Querier
}

// NewCacheStore creates a new durable cache store.
func NewCacheStore(db *sql.DB) *CacheStore {
	return &CacheStore{q: db}
}

// Get retrieves an unexpired cached value.
func (s *CacheStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.q.QueryRowContext(ctx, `
		SELECT value FROM cache_entries WHERE key = $1 AND expires_at > NOW()
	`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

// Set upserts a cached value with a TTL.
func (s *CacheStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO cache_entries (key, value, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at
	`, key, value, time.Now().Add(ttl))
	return err
}

// Delete removes the given keys.
func (s *CacheStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := s.q.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ANY($1)`, pq.Array(keys))
	return err
}

// PurgeExpired removes expired rows. Intended to run periodically.
func (s *CacheStore) PurgeExpired(ctx context.Context) (int64, error) {
	result, err := s.q.ExecContext(ctx, `DELETE FROM cache_entries WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

var _ cache.Store = (*CacheStore)(nil)
