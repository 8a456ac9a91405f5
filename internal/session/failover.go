package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// DefaultRecoveryInterval is how long the primary stays bypassed after a failure.
const DefaultRecoveryInterval = time.Minute

// FailoverStore reads and writes the primary store and switches to the fallback
// while the primary is failing.
type FailoverStore struct {
	primary  Store
	fallback Store
	logger   *zerolog.Logger

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
	interval  time.Duration
}

// NewFailoverStore wraps primary with fallback.
func NewFailoverStore(primary, fallback Store, logger *zerolog.Logger) *FailoverStore {
	l := logger.With().Str("component", "session_failover").Logger()
	return &FailoverStore{
		primary:  primary,
		fallback: fallback,
		logger:   &l,
		interval: DefaultRecoveryInterval,
	}
}

// IsDown reports whether the primary is currently bypassed.
func (f *FailoverStore) IsDown() bool {
	return f.isDown.Load()
}

func (f *FailoverStore) usePrimary() bool {
	if !f.isDown.Load() {
		return true
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return time.Since(f.lastCheck) > f.interval
}

func (f *FailoverStore) markDown(err error) {
	f.mu.Lock()
	f.lastCheck = time.Now()
	f.mu.Unlock()
	if !f.isDown.Swap(true) {
		f.logger.Warn().Err(err).Msg("primary session store failed, switching to fallback")
	}
}

func (f *FailoverStore) markUp() {
	if f.isDown.Swap(false) {
		f.logger.Info().Msg("primary session store recovered")
	}
}

// Get reads from the primary, falling back on error. A value the fallback took
// during an outage is copied back to the primary once it answers again.
func (f *FailoverStore) Get(ctx context.Context, key string) (string, bool, error) {
	if f.usePrimary() {
		val, ok, err := f.primary.Get(ctx, key)
		if err == nil {
			f.markUp()
			if ok {
				return val, true, nil
			}
			return f.restore(ctx, key)
		}
		f.markDown(err)
	}
	return f.fallback.Get(ctx, key)
}

// restore moves a live fallback value for key into the primary and returns the
// value the primary ends up holding.
func (f *FailoverStore) restore(ctx context.Context, key string) (string, bool, error) {
	val, ok, err := f.fallback.Get(ctx, key)
	if err != nil || !ok {
		return "", false, nil
	}
	stored, err := SetIfAbsent(ctx, f.primary, key, val)
	if err != nil {
		f.markDown(err)
		return val, true, nil
	}
	return stored, true, nil
}

// Set writes to the primary, falling back on error.
func (f *FailoverStore) Set(ctx context.Context, key, value string) error {
	if f.usePrimary() {
		err := f.primary.Set(ctx, key, value)
		if err == nil {
			f.markUp()
			return nil
		}
		f.markDown(err)
	}
	return f.fallback.Set(ctx, key, value)
}

// SetIfAbsent writes through whichever store is active. On the primary, a live
// fallback value takes precedence over value so decisions made during an outage
// survive the recovery.
func (f *FailoverStore) SetIfAbsent(ctx context.Context, key, value string) (string, error) {
	if f.usePrimary() {
		if prev, ok, err := f.fallback.Get(ctx, key); err == nil && ok {
			value = prev
		}
		stored, err := SetIfAbsent(ctx, f.primary, key, value)
		if err == nil {
			f.markUp()
			return stored, nil
		}
		f.markDown(err)
	}
	return SetIfAbsent(ctx, f.fallback, key, value)
}

// CompareAndSwap swaps through whichever store is active.
func (f *FailoverStore) CompareAndSwap(ctx context.Context, key, old, value string) (string, error) {
	if f.usePrimary() {
		stored, err := CompareAndSwap(ctx, f.primary, key, old, value)
		if err == nil {
			f.markUp()
			return stored, nil
		}
		f.markDown(err)
	}
	return CompareAndSwap(ctx, f.fallback, key, old, value)
}
