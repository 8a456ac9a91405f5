// Package export renders annotated bookings as an XLSX workbook.
package export

import (
	"fmt"
	"io"

	"perfprime/internal/booking"

	"github.com/xuri/excelize/v2"
)

// ContentType is the MIME type of the produced workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	bookingsSheet = "Prenotazioni"
	summarySheet  = "Riepilogo"
)

// sheetWriter appends rows to one sheet at a time.
type sheetWriter struct {
	file         *excelize.File
	currentSheet string
	currentRow   int
}

func newSheetWriter() *sheetWriter {
	return &sheetWriter{file: excelize.NewFile()}
}

func (w *sheetWriter) addSheet(name string) error {
	// Excel limit
	if len(name) > 31 {
		name = name[:31]
	}

	if w.currentSheet == "" {
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("rename sheet %s: %w", name, err)
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}

	w.currentSheet = name
	w.currentRow = 1
	return nil
}

func (w *sheetWriter) writeHeader(columns []string) error {
	row := make([]any, len(columns))
	for i, c := range columns {
		row[i] = c
	}
	if err := w.writeRow(row); err != nil {
		return err
	}

	style, err := w.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		startCell, _ := excelize.CoordinatesToCellName(1, w.currentRow-1)
		endCell, _ := excelize.CoordinatesToCellName(len(columns), w.currentRow-1)
		_ = w.file.SetCellStyle(w.currentSheet, startCell, endCell, style)
	}
	return nil
}

func (w *sheetWriter) writeRow(row []any) error {
	if w.currentSheet == "" {
		return fmt.Errorf("no active sheet")
	}
	cell, err := excelize.CoordinatesToCellName(1, w.currentRow)
	if err != nil {
		return err
	}
	if err := w.file.SetSheetRow(w.currentSheet, cell, &row); err != nil {
		return err
	}
	w.currentRow++
	return nil
}

// Bookings writes views and their summary to out as an XLSX workbook.
func Bookings(out io.Writer, views []booking.View, summary booking.Summary) error {
	w := newSheetWriter()
	defer w.file.Close()

	if err := w.addSheet(bookingsSheet); err != nil {
		return err
	}
	if err := w.writeHeader([]string{"ID", "Data", "Ora", "Cliente", "Servizio", "Stato", "Stato visualizzato", "Durata", "Prezzo", "Note"}); err != nil {
		return err
	}
	for _, v := range views {
		var price any
		if v.Price != nil {
			price = *v.Price
		}
		row := []any{v.ID, v.BookingDate, v.BookingTime, v.ClientID, v.ServiceID, v.Status, v.Descriptor.Label, v.Duration, price, v.Notes}
		if err := w.writeRow(row); err != nil {
			return fmt.Errorf("write booking %s: %w", v.ID, err)
		}
	}

	if err := w.addSheet(summarySheet); err != nil {
		return err
	}
	if err := w.writeHeader([]string{"Stato", "Prenotazioni"}); err != nil {
		return err
	}
	for _, st := range booking.AllDisplayStatuses() {
		if err := w.writeRow([]any{booking.Describe(st).Label, summary.Count(st)}); err != nil {
			return err
		}
	}
	if err := w.writeRow([]any{"Totale", summary.Total}); err != nil {
		return err
	}
	if err := w.writeRow([]any{"% completate", summary.CompletedPercent}); err != nil {
		return err
	}

	return w.file.Write(out)
}
