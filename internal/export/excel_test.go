package export

import (
	"bytes"
	"testing"
	"time"

	"perfprime/internal/booking"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestBookings(t *testing.T) {
	today := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	price := 40.0
	records := []booking.Record{
		{ID: "b1", Status: "completed", BookingDate: "2025-03-01", BookingTime: "09:00", Price: &price},
		{ID: "b2", Status: "confirmed", BookingDate: "2025-03-02", BookingTime: "10:00", Notes: "controllo"},
		{ID: "b3", Status: "pending", BookingDate: "2025-03-12", BookingTime: "11:00"},
	}
	views := booking.Annotate(records, today)

	var buf bytes.Buffer
	require.NoError(t, Bookings(&buf, views, booking.Summarize(records, today)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{bookingsSheet, summarySheet}, f.GetSheetList())

	rows, err := f.GetRows(bookingsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Stato visualizzato", rows[0][6])
	assert.Equal(t, "Completato", rows[1][6])
	assert.Equal(t, "40", rows[1][8])
	assert.Equal(t, "Non completato", rows[2][6])
	assert.Equal(t, "controllo", rows[2][9])
	assert.Equal(t, "In attesa", rows[3][6])

	total, err := f.GetCellValue(summarySheet, "B7")
	require.NoError(t, err)
	assert.Equal(t, "3", total)
	pct, err := f.GetCellValue(summarySheet, "B8")
	require.NoError(t, err)
	assert.Equal(t, "33", pct)
}

func TestBookings_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Bookings(&buf, nil, booking.Summary{}))
	assert.NotZero(t, buf.Len())
}
