package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		SettlementCallbacks,
		SettlementDuration,
		settlementNotifyTotal,
		balanceCreditedTotal,
		refillsCreatedTotal,
	)
}

var (
	// result: ok|rejected|error
	// reason (rejected only): source|method|signature|not_paid|not_found|already_settled|amount|bad_request
	SettlementCallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_callbacks_total",
			Help: "Provider callbacks by result and bounded reason.",
		},
		[]string{"result", "reason"},
	)

	SettlementDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "settlement_duration_seconds",
			Help:    "Duration of the settlement callback handler in seconds.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"result"},
	)

	// status: sent|error
	settlementNotifyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_notify_total",
			Help: "Customer notifications after a settlement, by delivery status.",
		},
		[]string{"status"},
	)

	balanceCreditedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "balance_credited_total",
			Help: "Sum of base-currency amounts credited by settlements.",
		},
	)

	refillsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refills_created_total",
			Help: "Refill payments created, by platform.",
		},
		[]string{"platform"},
	)
)

func IncSettlement(result, reason string) {
	SettlementCallbacks.WithLabelValues(norm(result), norm(reason)).Inc()
}

func IncSettlementNotify(status string) {
	settlementNotifyTotal.WithLabelValues(norm(status)).Inc()
}

func AddBalanceCredited(amount int64) {
	balanceCreditedTotal.Add(float64(amount))
}

func IncRefillCreated(platform string) {
	refillsCreatedTotal.WithLabelValues(norm(platform)).Inc()
}
