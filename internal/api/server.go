package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"perfprime/internal/bookingstore"
	"perfprime/internal/rollout"
	"perfprime/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

const defaultCookieName = "pp_session"

// CheckFunc reports whether a dependency is ready.
type CheckFunc func(ctx context.Context) error

// ExposureCounter reports recorded exposures per variant.
type ExposureCounter interface {
	CountExposures(ctx context.Context) (map[rollout.Variant]int, error)
}

// Options wires the server dependencies. Bookings and Assigner are required.
type Options struct {
	Bookings   bookingstore.Reader
	Assigner   *rollout.Assigner
	Sessions   session.Store // shared backend; nil behaves as unavailable storage
	Exposures  ExposureCounter
	Checks     map[string]CheckFunc
	CookieName string
	SessionTTL time.Duration
	Location   *time.Location
}

// Server serves the booking and rollout HTTP API.
type Server struct {
	bookings   bookingstore.Reader
	assigner   *rollout.Assigner
	sessions   session.Store
	exposures  ExposureCounter
	checks     map[string]CheckFunc
	cookieName string
	sessionTTL time.Duration
	loc        *time.Location
	now        func() time.Time
	logger     *zerolog.Logger
}

// NewServer builds a Server from opts. A nil session store behaves as unavailable storage.
func NewServer(opts Options, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "api").Logger()
	s := &Server{
		bookings:   opts.Bookings,
		assigner:   opts.Assigner,
		sessions:   opts.Sessions,
		exposures:  opts.Exposures,
		checks:     opts.Checks,
		cookieName: opts.CookieName,
		sessionTTL: opts.SessionTTL,
		loc:        opts.Location,
		now:        time.Now,
		logger:     &l,
	}
	if s.sessions == nil {
		s.sessions = session.Unavailable{}
	}
	if s.cookieName == "" {
		s.cookieName = defaultCookieName
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	return s
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/bookings", func(r chi.Router) {
			r.Get("/", s.handleListBookings)
			r.Get("/summary", s.handleBookingSummary)
			r.Get("/export.xlsx", s.handleExportBookings)
		})
		r.Get("/variant", s.handleVariant)
		r.Get("/variant/exposures", s.handleExposures)
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
