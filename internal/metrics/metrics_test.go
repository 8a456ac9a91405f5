package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegisterIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Register()
		Register()
	})
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(variantDecisions.WithLabelValues("new", "drawn"))
	IncVariantDecision("new", "drawn")
	assert.Equal(t, before+1, testutil.ToFloat64(variantDecisions.WithLabelValues("new", "drawn")))

	before = testutil.ToFloat64(displayStatuses.WithLabelValues("pending"))
	AddDisplayStatus("pending", 3)
	AddDisplayStatus("pending", 0)
	assert.Equal(t, before+3, testutil.ToFloat64(displayStatuses.WithLabelValues("pending")))

	IncSessionStoreError("rollout")
	IncBookingStoreRequest("rest", "ok")
	IncHTTP("variant")
	assert.Equal(t, float64(1), testutil.ToFloat64(httpRequests.WithLabelValues("variant")))
}
