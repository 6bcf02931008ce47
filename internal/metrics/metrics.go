// Package metrics exposes the Prometheus collectors of the settlement
// services. Services accept the Recorder interface and fall back to Noop.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Recorder interface {
	RecordOperationDuration(operation string, d time.Duration)
	RecordOperationResult(operation, result string)
	RecordProviderCall(provider, operation, outcome string, d time.Duration)
	RecordReconciliation(source, result string)
	RecordPublishError()
}

// Noop discards everything.
type Noop struct{}

func (Noop) RecordOperationDuration(string, time.Duration) {}
func (Noop) RecordOperationResult(string, string) {}
func (Noop) RecordProviderCall(string, string, string, time.Duration) {}
func (Noop) RecordReconciliation(string, string) {}
func (Noop) RecordPublishError() {}

type Prometheus struct {
	operationDuration *prometheus.HistogramVec
	operationResults  *prometheus.CounterVec
	providerLatency   *prometheus.HistogramVec
	reconciliations   *prometheus.CounterVec
	publishErrors     prometheus.Counter
}

// NewPrometheus registers the collectors on reg.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	factory := promauto.With(reg)
	return &Prometheus{
		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tekpay_operation_duration_seconds",
				Help:    "Duration of settlement operations",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2, 5, 10, 30},
			},
			[]string{"operation"},
		),
		operationResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tekpay_operations_total",
				Help: "Settlement operations by result",
			},
			[]string{"operation", "result"},
		),
		providerLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tekpay_provider_request_duration_seconds",
				Help:    "Latency of calls to external providers",
				Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30},
			},
			[]string{"provider", "operation", "outcome"},
		),
		reconciliations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tekpay_webhook_reconciliations_total",
				Help: "Webhook events by source and result",
			},
			[]string{"source", "result"},
		),
		publishErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tekpay_event_publish_errors_total",
				Help: "Total number of ledger event publish errors",
			},
		),
	}
}

func (p *Prometheus) RecordOperationDuration(operation string, d time.Duration) {
	p.operationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func (p *Prometheus) RecordOperationResult(operation, result string) {
	p.operationResults.WithLabelValues(operation, result).Inc()
}

func (p *Prometheus) RecordProviderCall(provider, operation, outcome string, d time.Duration) {
	p.providerLatency.WithLabelValues(provider, operation, outcome).Observe(d.Seconds())
}

func (p *Prometheus) RecordReconciliation(source, result string) {
	p.reconciliations.WithLabelValues(source, result).Inc()
}

func (p *Prometheus) RecordPublishError() {
	p.publishErrors.Inc()
}
