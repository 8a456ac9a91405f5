package booking

// Record is a booking row as returned by the booking store.
type Record struct {
	ID             string   `json:"id"`
	ProfessionalID string   `json:"professional_id"`
	ClientID       string   `json:"client_id,omitempty"`
	ServiceID      string   `json:"service_id,omitempty"`
	Status         string   `json:"status"`       // completed, cancelled, no_show, pending, confirmed
	BookingDate    string   `json:"booking_date"` // YYYY-MM-DD
	BookingTime    string   `json:"booking_time"` // HH:MM[:SS]
	Duration       int      `json:"duration,omitempty"`
	Price          *float64 `json:"price,omitempty"`
	Notes          string   `json:"notes,omitempty"`
}

// Raw returns the parsed stored status.
func (r Record) Raw() RawStatus {
	return ParseRawStatus(r.Status)
}

// IsTerminal reports whether the stored status can no longer change its display state by date.
func (r Record) IsTerminal() bool {
	switch r.Raw() {
	case RawCompleted, RawCancelled, RawNoShow:
		return true
	}
	return false
}
