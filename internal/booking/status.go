// Package booking derives user-facing booking lifecycle states from raw store rows.
package booking

import "time"

// DateLayout is the calendar date format used by the booking store (booking_date column).
const DateLayout = "2006-01-02"

// RawStatus is the lifecycle tag stored by the booking backend.
type RawStatus string

const (
	RawCompleted    RawStatus = "completed"
	RawCancelled    RawStatus = "cancelled"
	RawNoShow       RawStatus = "no_show"
	RawPending      RawStatus = "pending"
	RawConfirmed    RawStatus = "confirmed"
	RawUnrecognized RawStatus = "unrecognized"
)

// ParseRawStatus maps a stored status string onto the known vocabulary.
// Anything outside it becomes RawUnrecognized.
func ParseRawStatus(s string) RawStatus {
	switch RawStatus(s) {
	case RawCompleted, RawCancelled, RawNoShow, RawPending, RawConfirmed:
		return RawStatus(s)
	default:
		return RawUnrecognized
	}
}

// DisplayStatus is the lifecycle label shown to users.
type DisplayStatus string

const (
	DisplayCompleted  DisplayStatus = "completed"
	DisplayCancelled  DisplayStatus = "cancelled"
	DisplayPending    DisplayStatus = "pending"
	DisplayIncomplete DisplayStatus = "incomplete"
	DisplayNoShow     DisplayStatus = "no_show"
)

// AllDisplayStatuses returns every display status in presentation order.
func AllDisplayStatuses() []DisplayStatus {
	return []DisplayStatus{
		DisplayCompleted,
		DisplayCancelled,
		DisplayIncomplete,
		DisplayPending,
		DisplayNoShow,
	}
}

// ParseDisplayStatus validates a display status coming from a request.
func ParseDisplayStatus(s string) (DisplayStatus, bool) {
	for _, st := range AllDisplayStatuses() {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// Today returns the date key that booking dates are compared against.
// A nil loc keeps now's own location.
func Today(now time.Time, loc *time.Location) string {
	if loc != nil {
		now = now.In(loc)
	}
	return now.Format(DateLayout)
}

// ResolveDisplayStatus derives the display status of a record as of today.
//
// Terminal statuses win regardless of date. A pending or confirmed booking whose
// date is strictly before today is reported as incomplete. Everything else,
// including statuses the store vocabulary does not know, is pending.
func ResolveDisplayStatus(rec Record, today time.Time) DisplayStatus {
	return resolve(ParseRawStatus(rec.Status), rec.BookingDate, today.Format(DateLayout))
}

func resolve(raw RawStatus, bookingDate, today string) DisplayStatus {
	switch raw {
	case RawCompleted:
		return DisplayCompleted
	case RawCancelled:
		return DisplayCancelled
	case RawNoShow:
		return DisplayNoShow
	}

	// booking_date and today share the YYYY-MM-DD layout, so string order is date order.
	if bookingDate < today && (raw == RawPending || raw == RawConfirmed) {
		return DisplayIncomplete
	}

	// TODO: unrecognized raw statuses land here as pending; confirm with product whether
	// the store can emit other values (e.g. "rescheduled") before changing this.
	return DisplayPending
}
