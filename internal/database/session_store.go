package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SessionStore keeps session values in sqlite. It satisfies session.AtomicStore.
type SessionStore struct {
	db  *DB
	ttl time.Duration
	now func() time.Time
}

// NewSessionStore returns a store whose values expire ttl after the last write.
// A non-positive ttl keeps values forever.
func NewSessionStore(db *DB, ttl time.Duration) *SessionStore {
	return &SessionStore{db: db, ttl: ttl, now: time.Now}
}

func (s *SessionStore) expiry() int64 {
	if s.ttl <= 0 {
		return 0
	}
	return s.now().Add(s.ttl).UnixNano()
}

// Get returns the live value stored under key.
func (s *SessionStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM session_values WHERE session_key = ? AND (expires_at = 0 OR expires_at > ?)`,
		key, s.now().UnixNano(),
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get session value: %w", err)
	}
	return value, true, nil
}

// Set stores value under key.
func (s *SessionStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO session_values (session_key, value, expires_at, updated_at)
        VALUES (?, ?, ?, CURRENT_TIMESTAMP)
        ON CONFLICT(session_key) DO UPDATE SET
            value = excluded.value,
            expires_at = excluded.expires_at,
            updated_at = CURRENT_TIMESTAMP`,
		key, value, s.expiry())
	if err != nil {
		return fmt.Errorf("set session value: %w", err)
	}
	return nil
}

// SetIfAbsent stores value unless a live value exists and returns the stored value.
// An expired row counts as absent.
func (s *SessionStore) SetIfAbsent(ctx context.Context, key, value string) (string, error) {
	now := s.now().UnixNano()
	_, err := s.db.ExecContext(ctx, `INSERT INTO session_values (session_key, value, expires_at, updated_at)
        VALUES (?, ?, ?, CURRENT_TIMESTAMP)
        ON CONFLICT(session_key) DO UPDATE SET
            value = excluded.value,
            expires_at = excluded.expires_at,
            updated_at = CURRENT_TIMESTAMP
        WHERE session_values.expires_at != 0 AND session_values.expires_at <= ?`,
		key, value, s.expiry(), now)
	if err != nil {
		return "", fmt.Errorf("set session value if absent: %w", err)
	}

	stored, ok, err := s.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return value, nil
	}
	return stored, nil
}

// CompareAndSwap stores value when the live row holds old or is missing, and
// returns the stored value.
func (s *SessionStore) CompareAndSwap(ctx context.Context, key, old, value string) (string, error) {
	now := s.now().UnixNano()
	_, err := s.db.ExecContext(ctx, `INSERT INTO session_values (session_key, value, expires_at, updated_at)
        VALUES (?, ?, ?, CURRENT_TIMESTAMP)
        ON CONFLICT(session_key) DO UPDATE SET
            value = excluded.value,
            expires_at = excluded.expires_at,
            updated_at = CURRENT_TIMESTAMP
        WHERE session_values.value = ?
            OR (session_values.expires_at != 0 AND session_values.expires_at <= ?)`,
		key, value, s.expiry(), old, now)
	if err != nil {
		return "", fmt.Errorf("compare and swap session value: %w", err)
	}

	stored, ok, err := s.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return value, nil
	}
	return stored, nil
}

// Prune deletes expired values and returns how many were removed.
func (s *SessionStore) Prune(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM session_values WHERE expires_at != 0 AND expires_at <= ?`, s.now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("prune session values: %w", err)
	}
	return res.RowsAffected()
}

// RunPrune prunes expired values every interval until ctx is done.
func (s *SessionStore) RunPrune(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Prune(ctx)
			if err != nil {
				s.db.logger.Error().Err(err).Msg("prune session values")
				continue
			}
			if n > 0 {
				s.db.logger.Debug().Int64("removed", n).Msg("pruned expired session values")
			}
		}
	}
}
