// Package metrics declares the server's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultSent   = "sent"
	ResultFailed = "failed"
)

var (
	DecryptFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "webmail",
		Name:      "decrypt_fallback_total",
		Help:      "Encrypted field values that failed authentication and were returned as stored.",
	})

	Deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "webmail",
		Name:      "deliveries_total",
		Help:      "Outbound delivery attempts by result.",
	}, []string{"result"})

	RetentionPurged = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "webmail",
		Name:      "retention_purged_total",
		Help:      "Messages permanently deleted by the retention sweep.",
	})
)

// ObserveDelivery counts one delivery attempt.
func ObserveDelivery(sent bool) {
	if sent {
		Deliveries.WithLabelValues(ResultSent).Inc()
		return
	}
	Deliveries.WithLabelValues(ResultFailed).Inc()
}
