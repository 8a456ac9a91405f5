package rollout

import (
	"context"
	"math/rand"

	"perfprime/internal/session"
)

// RandomSource returns a uniform value in [0, 1).
type RandomSource func() float64

// DefaultRandomSource draws from the process-wide generator.
func DefaultRandomSource() float64 {
	return rand.Float64()
}

// Decide evaluates the variant for one request. Rules are checked in order and the
// first match wins:
//
//  1. new override
//  2. old override
//  3. forced identity
//  4. rollout disabled
//  5. 100% or 0% rollout
//  6. decision already stored in the session
//  7. fresh draw, persisted to the session
//
// Decide never fails to produce a variant. The returned error reports a session
// storage failure only; when it is non-nil the decision came from a fresh draw that
// may not have been persisted.
func Decide(ctx context.Context, cfg Config, identity string, ov Overrides, store session.Store, rnd RandomSource) (Decision, error) {
	switch {
	case ov.ForceNew:
		return Decision{Variant: VariantNew, Reason: ReasonOverrideNew}, nil
	case ov.ForceOld:
		return Decision{Variant: VariantOld, Reason: ReasonOverrideOld}, nil
	case cfg.IsForced(identity):
		return Decision{Variant: VariantNew, Reason: ReasonForcedUser}, nil
	case !cfg.Enabled:
		return Decision{Variant: VariantOld, Reason: ReasonDisabled}, nil
	case cfg.Percentage >= 100:
		return Decision{Variant: VariantNew, Reason: ReasonFullRollout}, nil
	case cfg.Percentage <= 0:
		return Decision{Variant: VariantOld, Reason: ReasonZeroRollout}, nil
	}

	if store == nil {
		store = session.Unavailable{}
	}

	corrupt := false
	stored, ok, err := store.Get(ctx, StorageKey)
	if err == nil && ok {
		if v, valid := ParseVariant(stored); valid {
			return Decision{Variant: v, Reason: ReasonSticky}, nil
		}
		corrupt = true
	}
	readErr := err

	drawn := draw(cfg.Percentage, rnd)

	var winner string
	if corrupt {
		// Replace only the value we read, so concurrent repairs agree on one draw.
		winner, err = session.CompareAndSwap(ctx, store, StorageKey, stored, string(drawn))
	} else {
		winner, err = session.SetIfAbsent(ctx, store, StorageKey, string(drawn))
	}
	if err != nil {
		return Decision{Variant: drawn, Reason: ReasonDrawn}, err
	}
	if v, valid := ParseVariant(winner); valid && v != drawn {
		// Another request of this session stored its draw first.
		return Decision{Variant: v, Reason: ReasonSticky}, readErr
	}
	return Decision{Variant: drawn, Reason: ReasonDrawn, Persisted: true}, readErr
}

func draw(percentage int, rnd RandomSource) Variant {
	if rnd == nil {
		rnd = DefaultRandomSource
	}
	if rnd()*100 < float64(percentage) {
		return VariantNew
	}
	return VariantOld
}
