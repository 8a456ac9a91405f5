package api

import (
	"net/http"
	"strings"
	"time"

	"perfprime/internal/metrics"
	"perfprime/internal/rollout"
	"perfprime/internal/session"

	"github.com/google/uuid"
)

// IdentityHeader carries the signed-in user's email, set by the auth proxy.
const IdentityHeader = "X-User-Email"

// VariantResponse is the response for GET /api/v1/variant.
type VariantResponse struct {
	Variant   rollout.Variant `json:"variant"`
	Reason    rollout.Reason  `json:"reason"`
	Persisted bool            `json:"persisted"`
	SessionID string          `json:"session_id"`
}

// sessionID returns the caller's session id, issuing a new cookie when it is
// missing or malformed.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(s.cookieName); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}

	id := uuid.NewString()
	cookie := &http.Cookie{
		Name:     s.cookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	}
	if s.sessionTTL > 0 {
		cookie.MaxAge = int(s.sessionTTL / time.Second)
	}
	http.SetCookie(w, cookie)
	return id
}

// handleVariant decides which landing variant the caller sees.
// GET /api/v1/variant?new_landing&old_landing
func (s *Server) handleVariant(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("variant")

	req := rollout.Request{
		SessionID: s.sessionID(w, r),
		Identity:  strings.TrimSpace(r.Header.Get(IdentityHeader)),
		Overrides: rollout.ParseOverrides(r.URL.Query()),
	}
	d := s.assigner.Decide(r.Context(), req, session.Scope(s.sessions, req.SessionID))

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, VariantResponse{
		Variant:   d.Variant,
		Reason:    d.Reason,
		Persisted: d.Persisted,
		SessionID: req.SessionID,
	})
}

// handleExposures returns the number of recorded exposures per variant.
// GET /api/v1/variant/exposures
func (s *Server) handleExposures(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("variant_exposures")

	if s.exposures == nil {
		writeError(w, http.StatusNotFound, "exposure log disabled")
		return
	}
	counts, err := s.exposures.CountExposures(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("count exposures")
		writeError(w, http.StatusInternalServerError, "count exposures failed")
		return
	}
	cfg := s.assigner.Config()
	writeJSON(w, http.StatusOK, map[string]any{
		"enabled":    cfg.Enabled,
		"percentage": cfg.Percentage,
		"exposures":  counts,
	})
}
