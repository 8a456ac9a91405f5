// Package rollout assigns sessions to the new or old variant of a feature under a
// percentage rollout, with forced users, manual overrides and per-session stickiness.
package rollout

import (
	"net/url"
	"strconv"
)

// StorageKey is the session key holding the sticky variant decision.
const StorageKey = "feature-variant:new-landing"

// Query parameters that force a variant for manual QA.
const (
	ParamForceNew = "new_landing"
	ParamForceOld = "old_landing"
)

// Variant is the experiment arm a session sees.
type Variant string

const (
	VariantNew Variant = "new"
	VariantOld Variant = "old"
)

// ParseVariant validates a stored variant value.
func ParseVariant(s string) (Variant, bool) {
	switch Variant(s) {
	case VariantNew, VariantOld:
		return Variant(s), true
	}
	return "", false
}

// IsNew reports whether v is the new variant.
func (v Variant) IsNew() bool {
	return v == VariantNew
}

// Reason explains which rule produced a decision.
type Reason string

const (
	ReasonOverrideNew Reason = "override_new"
	ReasonOverrideOld Reason = "override_old"
	ReasonForcedUser  Reason = "forced_user"
	ReasonDisabled    Reason = "disabled"
	ReasonFullRollout Reason = "full_rollout"
	ReasonZeroRollout Reason = "zero_rollout"
	ReasonSticky      Reason = "sticky"
	ReasonDrawn       Reason = "drawn"
)

// Overrides are the manual variant switches read from the request.
type Overrides struct {
	ForceNew bool
	ForceOld bool
}

// ParseOverrides reads the force parameters. A parameter counts when present with an
// empty value or any value strconv.ParseBool accepts as true.
func ParseOverrides(q url.Values) Overrides {
	return Overrides{
		ForceNew: flagSet(q, ParamForceNew),
		ForceOld: flagSet(q, ParamForceOld),
	}
}

func flagSet(q url.Values, name string) bool {
	vals, ok := q[name]
	if !ok {
		return false
	}
	for _, v := range vals {
		if v == "" {
			return true
		}
		if b, err := strconv.ParseBool(v); err == nil && b {
			return true
		}
	}
	return false
}

// Decision is the outcome of a variant evaluation.
type Decision struct {
	Variant Variant `json:"variant"`
	Reason  Reason  `json:"reason"`
	// Persisted is true when this call wrote the decision to session storage.
	Persisted bool `json:"persisted"`
}
