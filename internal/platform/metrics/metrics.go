package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec

	TransactionsCreated   prometheus.Counter
	TransactionsCompleted prometheus.Counter
	TransactionsVoided    prometheus.Counter
	PaymentsRecorded      prometheus.Counter
	Logins                prometheus.Counter
	StockRejections       prometheus.Counter
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return newWith(prometheus.DefaultRegisterer)
}

// NewForTest registers metrics on a private registry so parallel test suites
// don't collide on duplicate registration.
func NewForTest() *Metrics {
	return newWith(prometheus.NewRegistry())
}

func newWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "till_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		TransactionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "till_transactions_created_total",
			Help: "Transactions drafted from carts.",
		}),
		TransactionsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "till_transactions_completed_total",
			Help: "Transactions that reached completed status.",
		}),
		TransactionsVoided: factory.NewCounter(prometheus.CounterOpts{
			Name: "till_transactions_voided_total",
			Help: "Transactions that were voided.",
		}),
		PaymentsRecorded: factory.NewCounter(prometheus.CounterOpts{
			Name: "till_payments_recorded_total",
			Help: "Payment entries appended to transactions.",
		}),
		Logins: factory.NewCounter(prometheus.CounterOpts{
			Name: "till_logins_total",
			Help: "Successful logins.",
		}),
		StockRejections: factory.NewCounter(prometheus.CounterOpts{
			Name: "till_stock_rejections_total",
			Help: "Completions rejected because the stock ledger refused the batch decrement.",
		}),
	}
}
