package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func TestParseRawStatus(t *testing.T) {
	tests := []struct {
		in   string
		want RawStatus
	}{
		{"completed", RawCompleted},
		{"cancelled", RawCancelled},
		{"no_show", RawNoShow},
		{"pending", RawPending},
		{"confirmed", RawConfirmed},
		{"", RawUnrecognized},
		{"rescheduled", RawUnrecognized},
		{"Completed", RawUnrecognized},
		{"unrecognized", RawUnrecognized},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRawStatus(tt.in))
		})
	}
}

func TestResolveDisplayStatus_TerminalIgnoresDate(t *testing.T) {
	today := day(2024, 6, 1)
	dates := []string{"2020-01-01", "2024-05-31", "2024-06-01", "2024-06-02", "2099-01-01"}

	for _, raw := range []string{"completed", "cancelled", "no_show"} {
		for _, date := range dates {
			rec := Record{Status: raw, BookingDate: date}
			assert.Equal(t, DisplayStatus(raw), ResolveDisplayStatus(rec, today), "%s on %s", raw, date)
		}
	}
}

func TestResolveDisplayStatus_DateBoundaries(t *testing.T) {
	today := day(2024, 6, 1)

	tests := []struct {
		name   string
		status string
		date   string
		want   DisplayStatus
	}{
		{"pending yesterday", "pending", "2024-05-31", DisplayIncomplete},
		{"pending today", "pending", "2024-06-01", DisplayPending},
		{"pending tomorrow", "pending", "2024-06-02", DisplayPending},
		{"confirmed yesterday", "confirmed", "2024-05-31", DisplayIncomplete},
		{"confirmed today", "confirmed", "2024-06-01", DisplayPending},
		{"confirmed tomorrow", "confirmed", "2024-06-02", DisplayPending},
		{"confirmed last year", "confirmed", "2024-01-01", DisplayIncomplete},
		{"pending far future", "pending", "2099-01-01", DisplayPending},
		{"month boundary", "pending", "2024-05-01", DisplayIncomplete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Record{Status: tt.status, BookingDate: tt.date}
			assert.Equal(t, tt.want, ResolveDisplayStatus(rec, today))
		})
	}
}

func TestResolveDisplayStatus_UnrecognizedFallsThroughToPending(t *testing.T) {
	today := day(2024, 6, 1)

	for _, raw := range []string{"rescheduled", "", "CONFIRMED", "garbage"} {
		assert.Equal(t, DisplayPending, ResolveDisplayStatus(Record{Status: raw, BookingDate: "2099-01-01"}, today))
		// Past dates do not turn unknown statuses into incomplete either.
		assert.Equal(t, DisplayPending, ResolveDisplayStatus(Record{Status: raw, BookingDate: "2020-01-01"}, today))
	}
}

func TestResolveDisplayStatus_UsesTodayLocation(t *testing.T) {
	rome, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		t.Skip("tzdata not available")
	}
	// 23:30 UTC on May 31 is already June 1 in Rome.
	now := time.Date(2024, 5, 31, 23, 30, 0, 0, time.UTC)
	rec := Record{Status: "pending", BookingDate: "2024-05-31"}

	assert.Equal(t, DisplayPending, ResolveDisplayStatus(rec, now))
	assert.Equal(t, DisplayIncomplete, ResolveDisplayStatus(rec, now.In(rome)))
	assert.Equal(t, "2024-06-01", Today(now, rome))
	assert.Equal(t, "2024-05-31", Today(now, nil))
}

func TestResolveDisplayStatus_IsPure(t *testing.T) {
	today := day(2024, 6, 1)
	rec := Record{ID: "b1", Status: "confirmed", BookingDate: "2024-01-01"}
	before := rec

	first := ResolveDisplayStatus(rec, today)
	second := ResolveDisplayStatus(rec, today)

	assert.Equal(t, DisplayIncomplete, first)
	assert.Equal(t, first, second)
	assert.Equal(t, before, rec)
}

func TestParseDisplayStatus(t *testing.T) {
	for _, st := range AllDisplayStatuses() {
		got, ok := ParseDisplayStatus(string(st))
		assert.True(t, ok)
		assert.Equal(t, st, got)
	}

	_, ok := ParseDisplayStatus("confirmed")
	assert.False(t, ok)
}

func TestDescribe_EveryStatusHasOneDescriptor(t *testing.T) {
	seen := make(map[string]DisplayStatus)
	for _, st := range AllDisplayStatuses() {
		d, ok := descriptors[st]
		assert.True(t, ok, "missing descriptor for %s", st)
		assert.NotEmpty(t, d.Label)
		assert.NotEmpty(t, d.ClassName)
		if prev, dup := seen[d.Label]; dup {
			t.Errorf("label %q shared by %s and %s", d.Label, prev, st)
		}
		seen[d.Label] = st
	}
	assert.Len(t, descriptors, len(AllDisplayStatuses()))
	assert.Equal(t, descriptors[DisplayPending], Describe(DisplayStatus("bogus")))
}

func TestRecord_IsTerminal(t *testing.T) {
	assert.True(t, Record{Status: "completed"}.IsTerminal())
	assert.True(t, Record{Status: "no_show"}.IsTerminal())
	assert.False(t, Record{Status: "confirmed"}.IsTerminal())
	assert.False(t, Record{Status: "whatever"}.IsTerminal())
}
