package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Converge transaction metrics
	convergeTransactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "converge_transactions_total",
		Help: "Total number of Converge transactions",
	}, []string{
		"operation", // ccsale, ccauthonly, ccgettoken, txnquery, ...
		"outcome",   // approved, declined, held, error
	})

	convergeRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "converge_request_duration_seconds",
		Help: "Round-trip time of Converge endpoint calls",
		// Buckets: 100ms to 30s (observed gateway latencies)
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{
		"endpoint", // transaction, hosted_payments
		"operation",
	})

	sessionTokenFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "converge_session_token_failures_total",
		Help: "Session token requests rejected by the hosted payments endpoint",
	})

	checkoutAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_attempts_total",
		Help: "Checkout attempts by terminal state",
	}, []string{
		"operation",
		"state", // reconciled, failed
	})

	widgetResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_widget_results_total",
		Help: "Hosted widget callback outcomes",
	}, []string{
		"outcome", // approved, declined, errored, timeout
	})

	tokenOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_token_operations_total",
		Help: "Stored payment token lifecycle operations",
	}, []string{
		"operation", // create, refresh, delete, query
		"status",    // success, failed, already_absent
	})
)

// RecordTransaction records the outcome of a Converge transaction call.
func RecordTransaction(operation, outcome string) {
	convergeTransactionsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordRequestDuration records the round-trip duration of an endpoint call.
func RecordRequestDuration(endpoint, operation string, d time.Duration) {
	convergeRequestDuration.WithLabelValues(endpoint, operation).Observe(d.Seconds())
}

// RecordSessionTokenFailure counts a rejected session token request.
func RecordSessionTokenFailure() {
	sessionTokenFailuresTotal.Inc()
}

// RecordCheckoutAttempt records the terminal state of a checkout attempt.
func RecordCheckoutAttempt(operation, state string) {
	checkoutAttemptsTotal.WithLabelValues(operation, state).Inc()
}

// RecordWidgetResult counts a widget callback outcome.
func RecordWidgetResult(outcome string) {
	widgetResultsTotal.WithLabelValues(outcome).Inc()
}

// RecordTokenOperation records a stored token lifecycle operation.
func RecordTokenOperation(operation, status string) {
	tokenOperationsTotal.WithLabelValues(operation, status).Inc()
}
