package bookingstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"perfprime/internal/booking"
	"perfprime/internal/metrics"
)

// SQLReader reads bookings straight from a SQL database holding the bookings table.
// Works with the postgres (lib/pq) and sqlite3 drivers.
type SQLReader struct {
	db       *sql.DB
	postgres bool
	source   string
}

// NewSQLReader wraps db; driver is the name it was opened with.
func NewSQLReader(db *sql.DB, driver string) *SQLReader {
	return &SQLReader{
		db:       db,
		postgres: driver == "postgres",
		source:   driver,
	}
}

const selectBookings = `SELECT CAST(id AS TEXT), CAST(professional_id AS TEXT),
	COALESCE(CAST(client_id AS TEXT), ''), COALESCE(CAST(service_id AS TEXT), ''),
	status, CAST(booking_date AS TEXT), CAST(booking_time AS TEXT),
	duration, price, COALESCE(notes, '')
	FROM bookings`

// ListBookings returns the bookings matching q.
func (r *SQLReader) ListBookings(ctx context.Context, q Query) ([]booking.Record, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	query, args := r.buildQuery(q)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		metrics.IncBookingStoreRequest(r.source, "error")
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	records := []booking.Record{}
	for rows.Next() {
		var (
			rec      booking.Record
			duration sql.NullInt64
			price    sql.NullFloat64
		)
		if err := rows.Scan(&rec.ID, &rec.ProfessionalID, &rec.ClientID, &rec.ServiceID,
			&rec.Status, &rec.BookingDate, &rec.BookingTime, &duration, &price, &rec.Notes); err != nil {
			metrics.IncBookingStoreRequest(r.source, "error")
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		if duration.Valid {
			rec.Duration = int(duration.Int64)
		}
		if price.Valid {
			p := price.Float64
			rec.Price = &p
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		metrics.IncBookingStoreRequest(r.source, "error")
		return nil, fmt.Errorf("iterate bookings: %w", err)
	}

	metrics.IncBookingStoreRequest(r.source, "ok")
	return records, nil
}

// Ping checks the database connection.
func (r *SQLReader) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLReader) buildQuery(q Query) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, r.placeholder(len(args))))
	}

	if q.ProfessionalID != "" {
		add("CAST(professional_id AS TEXT) = %s", q.ProfessionalID)
	}
	if q.From != "" {
		add("CAST(booking_date AS TEXT) >= %s", q.From)
	}
	if q.To != "" {
		add("CAST(booking_date AS TEXT) <= %s", q.To)
	}

	var sb strings.Builder
	sb.WriteString(selectBookings)
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY booking_date ASC, booking_time ASC")
	return sb.String(), args
}

func (r *SQLReader) placeholder(n int) string {
	if r.postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}
