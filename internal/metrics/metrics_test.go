package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	Register()
	Register()

	assert.NotPanics(t, func() {
		IncHTTP("test_endpoint")
		IncTransition("Pending", "Confirmed")
		IncInventoryOp("reserve", "ok")
	})
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(overRelease)
	IncOverRelease()
	assert.Equal(t, before+1, testutil.ToFloat64(overRelease))

	IncGatewayCall("sandbox", "refund", errors.New("down"))
	assert.Equal(t, 1.0, testutil.ToFloat64(gatewayCalls.WithLabelValues("sandbox", "refund", "error")))

	IncTask("refund", nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(tasks.WithLabelValues("refund", "ok")))
}
