// Package metrics holds the Prometheus collectors of the portal.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for document exchange. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	// Node messages ingested, by outcome: created or duplicate.
	MessagesIngested *prometheus.CounterVec

	// Message status transitions by target status and result.
	Transitions *prometheus.CounterVec

	// Time spent inside the per-document critical section.
	ReconcileLatency prometheus.Histogram

	// Wrapped documents served to verifiers, by cache result.
	WrappedServed *prometheus.CounterVec

	// Outbound sends by result.
	Sends *prometheus.CounterVec
}

// New registers the collectors with the default registry. Call it once.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		MessagesIngested: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tradeportal_node_messages_ingested_total",
			Help: "Node messages ingested by outcome",
		}, []string{"outcome"}),

		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tradeportal_message_transitions_total",
			Help: "Message status transitions by target status and result",
		}, []string{"status", "result"}),

		ReconcileLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "tradeportal_reconcile_duration_seconds",
			Help:    "Duration of a reconciliation inside the document lock",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		WrappedServed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tradeportal_wrapped_documents_served_total",
			Help: "Wrapped OA documents served to verifiers by cache result",
		}, []string{"cache"}),

		Sends: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tradeportal_outbound_sends_total",
			Help: "Outbound node message sends by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) IncIngested(created bool) {
	if m == nil {
		return
	}
	outcome := "duplicate"
	if created {
		outcome = "created"
	}
	m.MessagesIngested.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncTransition(status, result string) {
	if m != nil {
		m.Transitions.WithLabelValues(status, result).Inc()
	}
}

func (m *Metrics) ObserveReconcile(d time.Duration) {
	if m != nil {
		m.ReconcileLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) IncWrappedServed(hit bool) {
	if m == nil {
		return
	}
	label := "miss"
	if hit {
		label = "hit"
	}
	m.WrappedServed.WithLabelValues(label).Inc()
}

func (m *Metrics) IncSend(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Sends.WithLabelValues(result).Inc()
}
