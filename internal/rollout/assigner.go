package rollout

import (
	"context"
	"sync/atomic"
	"time"

	"perfprime/internal/events"
	"perfprime/internal/metrics"
	"perfprime/internal/session"

	"github.com/rs/zerolog"
)

// Publisher receives exposure events.
type Publisher interface {
	Publish(event events.Event)
}

// Exposure is published the first time a session is drawn into a variant.
type Exposure struct {
	SessionID string    `json:"session_id"`
	Identity  string    `json:"identity,omitempty"`
	Variant   Variant   `json:"variant"`
	Persisted bool      `json:"persisted"`
	At        time.Time `json:"at"`
}

// Request identifies the caller of one evaluation.
type Request struct {
	SessionID string
	Identity  string
	Overrides Overrides
}

// Assigner evaluates rollout decisions against a hot-swappable config.
type Assigner struct {
	cfg       atomic.Pointer[Config]
	rnd       RandomSource
	publisher Publisher
	logger    *zerolog.Logger
	now       func() time.Time
}

// Option configures an Assigner.
type Option func(*Assigner)

// WithRandomSource replaces the default random source.
func WithRandomSource(rnd RandomSource) Option {
	return func(a *Assigner) { a.rnd = rnd }
}

// WithPublisher sends exposure events to p.
func WithPublisher(p Publisher) Option {
	return func(a *Assigner) { a.publisher = p }
}

// NewAssigner creates an assigner for cfg.
func NewAssigner(cfg Config, logger *zerolog.Logger, opts ...Option) *Assigner {
	l := logger.With().Str("component", "rollout").Logger()
	a := &Assigner{
		rnd:    DefaultRandomSource,
		logger: &l,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.SetConfig(cfg)
	return a
}

// Config returns the active config.
func (a *Assigner) Config() Config {
	return *a.cfg.Load()
}

// SetConfig replaces the active config.
func (a *Assigner) SetConfig(cfg Config) {
	cfg = cfg.Normalize()
	a.cfg.Store(&cfg)
	a.logger.Info().
		Bool("enabled", cfg.Enabled).
		Int("percentage", cfg.Percentage).
		Int("forced_users", len(cfg.ForcedUsers)).
		Msg("rollout config applied")
}

// Decide evaluates the variant for req using store as the session storage.
// Storage failures are logged and the freshly drawn variant is returned.
func (a *Assigner) Decide(ctx context.Context, req Request, store session.Store) Decision {
	d, err := Decide(ctx, a.Config(), req.Identity, req.Overrides, store, a.rnd)
	if err != nil {
		metrics.IncSessionStoreError("rollout")
		a.logger.Warn().
			Err(err).
			Str("session_id", req.SessionID).
			Str("variant", string(d.Variant)).
			Msg("session storage unavailable, decision not sticky")
	}
	metrics.IncVariantDecision(string(d.Variant), string(d.Reason))

	if d.Reason == ReasonDrawn {
		a.publishExposure(req, d)
	}
	return d
}

func (a *Assigner) publishExposure(req Request, d Decision) {
	if a.publisher == nil {
		return
	}
	ev, err := events.NewJSONEvent(events.TypeVariantExposed, Exposure{
		SessionID: req.SessionID,
		Identity:  req.Identity,
		Variant:   d.Variant,
		Persisted: d.Persisted,
		At:        a.now(),
	})
	if err != nil {
		a.logger.Error().Err(err).Msg("encode exposure event")
		return
	}
	a.publisher.Publish(ev)
}
