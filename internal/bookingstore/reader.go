// Package bookingstore reads booking rows from the external booking store.
package bookingstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"perfprime/internal/booking"
)

// ErrInvalidQuery is returned when a query carries a malformed date.
var ErrInvalidQuery = errors.New("invalid booking query")

// Query selects bookings. Empty fields are not filtered on.
type Query struct {
	ProfessionalID string
	From           string // YYYY-MM-DD, inclusive
	To             string // YYYY-MM-DD, inclusive
}

// Validate checks the date bounds.
func (q Query) Validate() error {
	for _, d := range []string{q.From, q.To} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(booking.DateLayout, d); err != nil {
			return fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidQuery, d)
		}
	}
	if q.From != "" && q.To != "" && q.From > q.To {
		return fmt.Errorf("%w: from %s is after to %s", ErrInvalidQuery, q.From, q.To)
	}
	return nil
}

// Reader lists bookings ordered by booking_date then booking_time.
type Reader interface {
	ListBookings(ctx context.Context, q Query) ([]booking.Record, error)
}
