// Package metrics exposes application-level prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes counters for the engine's hot paths.
type Metrics struct {
	quotes               *prometheus.CounterVec
	rankings             prometheus.Counter
	policiesRanked       prometheus.Counter
	paymentTransitions   *prometheus.CounterVec
	dispatchFailures     prometheus.Counter
	renewalTransitions   *prometheus.CounterVec
	impressionWriteFails prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		quotes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bemasathi",
			Name:      "quotes_total",
			Help:      "Premium quote computations by result.",
		}, []string{"result"}),
		rankings: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "bemasathi",
			Name:      "rankings_total",
			Help:      "Recommendation ranking requests.",
		}),
		policiesRanked: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "bemasathi",
			Name:      "policies_ranked_total",
			Help:      "Policies returned across ranking responses.",
		}),
		paymentTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bemasathi",
			Name:      "payment_transitions_total",
			Help:      "Payment state machine transitions by outcome.",
		}, []string{"transition"}),
		dispatchFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "bemasathi",
			Name:      "notification_dispatch_failures_total",
			Help:      "Notification dispatches that failed and were swallowed.",
		}),
		renewalTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bemasathi",
			Name:      "renewal_transitions_total",
			Help:      "Renewal status transitions applied by the scheduler.",
		}, []string{"from", "to"}),
		impressionWriteFails: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "bemasathi",
			Name:      "impression_write_failures_total",
			Help:      "Recommendation impression writes that failed.",
		}),
	}
}

func (m *Metrics) QuoteComputed(result string) {
	m.quotes.WithLabelValues(result).Inc()
}

func (m *Metrics) RankingServed(policies int) {
	m.rankings.Inc()
	m.policiesRanked.Add(float64(policies))
}

func (m *Metrics) PaymentTransition(transition string) {
	m.paymentTransitions.WithLabelValues(transition).Inc()
}

func (m *Metrics) DispatchFailure() {
	m.dispatchFailures.Inc()
}

func (m *Metrics) RenewalTransition(from, to string) {
	m.renewalTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) ImpressionWriteFailed() {
	m.impressionWriteFails.Inc()
}
