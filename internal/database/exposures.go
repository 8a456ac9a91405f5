package database

import (
	"context"
	"fmt"

	"perfprime/internal/events"
	"perfprime/internal/rollout"
)

// ExposureLog records rollout exposures published on the event bus.
type ExposureLog struct {
	db *DB
}

// NewExposureLog returns a log backed by the variant_exposures table.
func NewExposureLog(db *DB) *ExposureLog {
	return &ExposureLog{db: db}
}

// Subscribe attaches the log to bus.
func (l *ExposureLog) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.TypeVariantExposed, l.Handle)
}

// Handle stores one variant.exposed event.
func (l *ExposureLog) Handle(ev events.Event) error {
	var x rollout.Exposure
	if err := ev.Decode(&x); err != nil {
		return fmt.Errorf("decode exposure: %w", err)
	}
	at := x.At
	if at.IsZero() {
		at = ev.CreatedAt
	}

	_, err := l.db.Exec(`INSERT INTO variant_exposures (session_id, identity, variant, persisted, exposed_at)
        VALUES (?, ?, ?, ?, ?)`,
		x.SessionID, nullString(x.Identity), string(x.Variant), x.Persisted, at.UTC())
	if err != nil {
		return fmt.Errorf("insert exposure: %w", err)
	}
	return nil
}

// CountExposures returns the number of recorded exposures per variant.
func (l *ExposureLog) CountExposures(ctx context.Context) (map[rollout.Variant]int, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT variant, COUNT(*) FROM variant_exposures GROUP BY variant`)
	if err != nil {
		return nil, fmt.Errorf("count exposures: %w", err)
	}
	defer rows.Close()

	counts := map[rollout.Variant]int{}
	for rows.Next() {
		var (
			variant string
			n       int
		)
		if err := rows.Scan(&variant, &n); err != nil {
			return nil, err
		}
		counts[rollout.Variant(variant)] = n
	}
	return counts, rows.Err()
}
