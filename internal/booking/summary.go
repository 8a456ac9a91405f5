package booking

import (
	"math"
	"time"
)

// Summary counts bookings per display status for a dashboard period.
type Summary struct {
	Total            int `json:"total"`
	Completed        int `json:"completed"`
	Cancelled        int `json:"cancelled"`
	Pending          int `json:"pending"`
	Incomplete       int `json:"incomplete"`
	NoShow           int `json:"no_show"`
	CompletedPercent int `json:"completed_percent"`
}

// Count returns the number of bookings with the given display status.
func (s Summary) Count(status DisplayStatus) int {
	switch status {
	case DisplayCompleted:
		return s.Completed
	case DisplayCancelled:
		return s.Cancelled
	case DisplayPending:
		return s.Pending
	case DisplayIncomplete:
		return s.Incomplete
	case DisplayNoShow:
		return s.NoShow
	}
	return 0
}

// View is a record annotated with its derived display status.
type View struct {
	Record
	DisplayStatus DisplayStatus `json:"display_status"`
	Descriptor    Descriptor    `json:"descriptor"`
}

// Annotate resolves the display status of every record as of today.
func Annotate(records []Record, today time.Time) []View {
	views := make([]View, 0, len(records))
	for _, rec := range records {
		st := ResolveDisplayStatus(rec, today)
		views = append(views, View{Record: rec, DisplayStatus: st, Descriptor: Describe(st)})
	}
	return views
}

// FilterByDisplayStatus keeps the views with the given status.
func FilterByDisplayStatus(views []View, status DisplayStatus) []View {
	out := make([]View, 0, len(views))
	for _, v := range views {
		if v.DisplayStatus == status {
			out = append(out, v)
		}
	}
	return out
}

// Summarize counts records per display status as of today.
func Summarize(records []Record, today time.Time) Summary {
	var s Summary
	for _, rec := range records {
		s.Total++
		switch ResolveDisplayStatus(rec, today) {
		case DisplayCompleted:
			s.Completed++
		case DisplayCancelled:
			s.Cancelled++
		case DisplayPending:
			s.Pending++
		case DisplayIncomplete:
			s.Incomplete++
		case DisplayNoShow:
			s.NoShow++
		}
	}
	if s.Total > 0 {
		s.CompletedPercent = int(math.Round(float64(s.Completed) / float64(s.Total) * 100))
	}
	return s
}
