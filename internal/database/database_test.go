package database

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"perfprime/internal/booking"
	"perfprime/internal/config"
	"perfprime/internal/events"
	"perfprime/internal/rollout"
	"perfprime/internal/session"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDB_RunsMigrationsTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pp.db")
	logger := zerolog.New(io.Discard)

	db, err := NewDB(path, &logger)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = NewDB(path, &logger)
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, path, db.Path())

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('session_values', 'variant_exposures', 'bookings')`).Scan(&n))
	assert.Equal(t, 3, n)
}

func TestSessionStore_GetSet(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(newTestDB(t), time.Hour)

	_, ok, err := store.Get(ctx, "session:a:k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "session:a:k", "old"))
	require.NoError(t, store.Set(ctx, "session:a:k", "new"))

	v, ok, err := store.Get(ctx, "session:a:k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "new", v)
}

func TestSessionStore_SetIfAbsent(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(newTestDB(t), time.Hour)

	v, err := store.SetIfAbsent(ctx, "k", "new")
	require.NoError(t, err)
	assert.Equal(t, "new", v)

	v, err = store.SetIfAbsent(ctx, "k", "old")
	require.NoError(t, err)
	assert.Equal(t, "new", v, "first writer wins")
}

func TestSessionStore_CompareAndSwap(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(newTestDB(t), time.Hour)
	require.NoError(t, store.Set(ctx, "k", "{bad"))

	v, err := store.CompareAndSwap(ctx, "k", "{bad", "new")
	require.NoError(t, err)
	assert.Equal(t, "new", v)

	v, err = store.CompareAndSwap(ctx, "k", "{bad", "old")
	require.NoError(t, err)
	assert.Equal(t, "new", v, "a repaired value is not replaced again")

	v, err = store.CompareAndSwap(ctx, "missing", "{bad", "old")
	require.NoError(t, err)
	assert.Equal(t, "old", v)
}

func TestSessionStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(newTestDB(t), time.Minute)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Set(ctx, "k", "new"))
	now = now.Add(2 * time.Minute)

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	v, err := store.SetIfAbsent(ctx, "k", "old")
	require.NoError(t, err)
	assert.Equal(t, "old", v, "expired value is replaced")

	now = now.Add(2 * time.Minute)
	n, err := store.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSessionStore_NoTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(newTestDB(t), 0)
	require.NoError(t, store.Set(ctx, "k", "v"))

	store.now = func() time.Time { return time.Now().Add(100 * 365 * 24 * time.Hour) }
	v, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestSessionStore_StickyRolloutAcrossGoroutines(t *testing.T) {
	ctx := context.Background()
	backend := NewSessionStore(newTestDB(t), time.Hour)
	store := session.Scope(backend, "sess")
	cfg := rollout.Config{Enabled: true, Percentage: 50}

	var (
		mu   sync.Mutex
		flip bool
	)
	rnd := func() float64 {
		mu.Lock()
		defer mu.Unlock()
		flip = !flip
		if flip {
			return 0.1
		}
		return 0.9
	}

	var wg sync.WaitGroup
	results := make([]rollout.Variant, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := rollout.Decide(ctx, cfg, "", rollout.Overrides{}, store, rnd)
			assert.NoError(t, err)
			results[i] = d.Variant
		}(i)
	}
	wg.Wait()

	for _, v := range results {
		assert.Equal(t, results[0], v)
	}
}

func TestExposureLog(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	log := NewExposureLog(db)
	bus := events.NewEventBus()
	log.Subscribe(bus)

	for _, x := range []rollout.Exposure{
		{SessionID: "a", Variant: rollout.VariantNew, Persisted: true, At: time.Now()},
		{SessionID: "b", Identity: "u@x.com", Variant: rollout.VariantOld, Persisted: true},
		{SessionID: "c", Variant: rollout.VariantNew},
	} {
		ev, err := events.NewJSONEvent(events.TypeVariantExposed, x)
		require.NoError(t, err)
		bus.Publish(ev)
	}

	counts, err := log.CountExposures(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[rollout.Variant]int{rollout.VariantNew: 2, rollout.VariantOld: 1}, counts)

	assert.Error(t, log.Handle(events.Event{Type: events.TypeVariantExposed, Payload: []byte("{")}))
}

func TestUpsertBookings(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	price := 45.5

	require.NoError(t, db.UpsertBookings(ctx, []booking.Record{
		{ID: "b1", ProfessionalID: "p1", Status: "pending", BookingDate: "2025-03-01", BookingTime: "09:00", Price: &price},
	}))
	require.NoError(t, db.UpsertBookings(ctx, []booking.Record{
		{ID: "b1", ProfessionalID: "p1", Status: "completed", BookingDate: "2025-03-01", BookingTime: "09:00", Duration: 60},
	}))

	var (
		status   string
		duration int
		n        int
	)
	require.NoError(t, db.QueryRow(`SELECT status, duration FROM bookings WHERE id = 'b1'`).Scan(&status, &duration))
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM bookings`).Scan(&n))
	assert.Equal(t, "completed", status)
	assert.Equal(t, 60, duration)
	assert.Equal(t, 1, n)
}

func TestBackupService(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	logger := zerolog.New(io.Discard)

	db, err := NewDB(filepath.Join(dir, "pp.db"), &logger)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, NewSessionStore(db, 0).Set(ctx, "k", "v"))

	cfg := config.BackupConfig{Enabled: true, StoragePath: filepath.Join(dir, "backups"), RetentionDays: 7}
	svc := NewBackupService(db, cfg, &logger)

	path, err := svc.PerformBackup(ctx)
	require.NoError(t, err)
	assert.FileExists(t, path)

	copyDB, err := NewDB(path, &logger)
	require.NoError(t, err)
	defer copyDB.Close()
	v, ok, err := NewSessionStore(copyDB, 0).Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	stale := filepath.Join(cfg.StoragePath, "backup_20000101_000000_000.db")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o600))
	old := time.Now().AddDate(0, 0, -30)
	require.NoError(t, os.Chtimes(stale, old, old))

	assert.Equal(t, 1, svc.CleanupOldBackups())
	assert.NoFileExists(t, stale)
	assert.FileExists(t, path)
}
