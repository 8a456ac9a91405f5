package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"perfprime/internal/booking"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// DB wraps sql.DB for the local service database.
type DB struct {
	*sql.DB
	path   string
	logger *zerolog.Logger
}

// NewDB opens the sqlite database at path and runs migrations.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	pragmas := []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"}
	if path == ":memory:" {
		// Every pooled connection would get its own empty in-memory database.
		db.SetMaxOpenConns(1)
	} else {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	l := logger.With().Str("component", "database").Logger()
	l.Info().Str("path", path).Msg("database ready")
	return &DB{DB: db, path: path, logger: &l}, nil
}

// Path returns the file the database was opened from.
func (db *DB) Path() string {
	return db.path
}

func createTables(db *sql.DB) error {
	queries := []string{
		// Session-scoped values; session_key already carries the session prefix.
		`CREATE TABLE IF NOT EXISTS session_values (
            session_key TEXT PRIMARY KEY,
            value TEXT NOT NULL,
            expires_at INTEGER NOT NULL DEFAULT 0,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE TABLE IF NOT EXISTS variant_exposures (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            session_id TEXT NOT NULL,
            identity TEXT,
            variant TEXT NOT NULL,
            persisted BOOLEAN NOT NULL DEFAULT 0,
            exposed_at DATETIME NOT NULL
        )`,

		// Local mirror of the booking store, same columns.
		`CREATE TABLE IF NOT EXISTS bookings (
            id TEXT PRIMARY KEY,
            professional_id TEXT NOT NULL,
            client_id TEXT,
            service_id TEXT,
            status TEXT NOT NULL DEFAULT 'pending',
            booking_date TEXT NOT NULL,
            booking_time TEXT NOT NULL,
            duration INTEGER,
            price REAL,
            notes TEXT
        )`,

		`CREATE INDEX IF NOT EXISTS idx_session_values_expires ON session_values(expires_at)`,
		`CREATE INDEX IF NOT EXISTS idx_variant_exposures_variant ON variant_exposures(variant)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_professional_date ON bookings(professional_id, booking_date)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

// UpsertBookings writes records into the local bookings mirror.
func (db *DB) UpsertBookings(ctx context.Context, records []booking.Record) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO bookings
        (id, professional_id, client_id, service_id, status, booking_date, booking_time, duration, price, notes)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            professional_id = excluded.professional_id,
            client_id = excluded.client_id,
            service_id = excluded.service_id,
            status = excluded.status,
            booking_date = excluded.booking_date,
            booking_time = excluded.booking_time,
            duration = excluded.duration,
            price = excluded.price,
            notes = excluded.notes`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		var duration sql.NullInt64
		if r.Duration > 0 {
			duration = sql.NullInt64{Int64: int64(r.Duration), Valid: true}
		}
		var price sql.NullFloat64
		if r.Price != nil {
			price = sql.NullFloat64{Float64: *r.Price, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, r.ID, r.ProfessionalID, nullString(r.ClientID), nullString(r.ServiceID),
			r.Status, r.BookingDate, r.BookingTime, duration, price, nullString(r.Notes)); err != nil {
			return fmt.Errorf("upsert booking %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
