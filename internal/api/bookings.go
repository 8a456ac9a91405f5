package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"perfprime/internal/booking"
	"perfprime/internal/bookingstore"
	"perfprime/internal/export"
	"perfprime/internal/metrics"
)

// BookingsResponse is the response for GET /api/v1/bookings.
type BookingsResponse struct {
	Today    string         `json:"today"`
	Bookings []booking.View `json:"bookings"`
}

// SummaryResponse is the response for GET /api/v1/bookings/summary.
type SummaryResponse struct {
	Today string `json:"today"`
	booking.Summary
}

func parseBookingQuery(r *http.Request) bookingstore.Query {
	q := r.URL.Query()
	return bookingstore.Query{
		ProfessionalID: q.Get("professional_id"),
		From:           q.Get("from"),
		To:             q.Get("to"),
	}
}

// loadBookings reads bookings for the request and writes the error response on failure.
func (s *Server) loadBookings(w http.ResponseWriter, r *http.Request) ([]booking.Record, time.Time, bool) {
	q := parseBookingQuery(r)
	if err := q.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, time.Time{}, false
	}

	records, err := s.bookings.ListBookings(r.Context(), q)
	if err != nil {
		if errors.Is(err, bookingstore.ErrInvalidQuery) {
			writeError(w, http.StatusBadRequest, err.Error())
			return nil, time.Time{}, false
		}
		s.logger.Error().Err(err).Str("professional_id", q.ProfessionalID).Msg("booking store read failed")
		writeError(w, http.StatusBadGateway, "booking store unavailable")
		return nil, time.Time{}, false
	}

	return records, s.now().In(s.loc), true
}

// handleListBookings returns bookings annotated with their display status.
// GET /api/v1/bookings?professional_id=&from=&to=&status=
func (s *Server) handleListBookings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings")

	var (
		filter    booking.DisplayStatus
		hasFilter bool
	)
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, ok := booking.ParseDisplayStatus(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", raw))
			return
		}
		filter, hasFilter = st, true
	}

	records, today, ok := s.loadBookings(w, r)
	if !ok {
		return
	}

	views := booking.Annotate(records, today)
	for _, st := range booking.AllDisplayStatuses() {
		metrics.AddDisplayStatus(string(st), len(booking.FilterByDisplayStatus(views, st)))
	}
	if hasFilter {
		views = booking.FilterByDisplayStatus(views, filter)
	}

	writeJSON(w, http.StatusOK, BookingsResponse{
		Today:    today.Format(booking.DateLayout),
		Bookings: views,
	})
}

// handleBookingSummary returns per-status counts for the period.
// GET /api/v1/bookings/summary?professional_id=&from=&to=
func (s *Server) handleBookingSummary(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings_summary")

	records, today, ok := s.loadBookings(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, SummaryResponse{
		Today:   today.Format(booking.DateLayout),
		Summary: booking.Summarize(records, today),
	})
}

// handleExportBookings streams the annotated bookings as an XLSX workbook.
// GET /api/v1/bookings/export.xlsx?professional_id=&from=&to=
func (s *Server) handleExportBookings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings_export")

	records, today, ok := s.loadBookings(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.Bookings(&buf, booking.Annotate(records, today), booking.Summarize(records, today)); err != nil {
		s.logger.Error().Err(err).Msg("export bookings")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	q := parseBookingQuery(r)
	name := "prenotazioni"
	if q.From != "" {
		name += "_" + q.From
	}
	if q.To != "" {
		name += "_" + q.To
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".xlsx"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
