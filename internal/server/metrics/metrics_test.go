package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveDelivery(t *testing.T) {
	sent := testutil.ToFloat64(Deliveries.WithLabelValues(ResultSent))
	failed := testutil.ToFloat64(Deliveries.WithLabelValues(ResultFailed))

	ObserveDelivery(true)
	ObserveDelivery(false)
	ObserveDelivery(false)

	assert.Equal(t, sent+1, testutil.ToFloat64(Deliveries.WithLabelValues(ResultSent)))
	assert.Equal(t, failed+2, testutil.ToFloat64(Deliveries.WithLabelValues(ResultFailed)))
}

func TestCountersRegistered(t *testing.T) {
	before := testutil.ToFloat64(DecryptFallbacks)
	DecryptFallbacks.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(DecryptFallbacks))

	before = testutil.ToFloat64(RetentionPurged)
	RetentionPurged.Add(3)
	assert.Equal(t, before+3, testutil.ToFloat64(RetentionPurged))
}
