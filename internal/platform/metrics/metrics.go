// Package metrics defines the Prometheus instruments exported by the settlement processes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LedgerCalls counts ledger API calls by method and result
	LedgerCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_ledger_calls_total",
			Help: "Total number of ledger API calls",
		},
		[]string{"method", "result"},
	)

	// LedgerLatency tracks ledger API latency
	LedgerLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "settlement_ledger_latency_seconds",
			Help:    "Ledger API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// DepositOutcomes counts settlement worker runs by outcome
	DepositOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_deposit_outcomes_total",
			Help: "Deposit settlement attempts by outcome",
		},
		[]string{"outcome"},
	)

	// TrustlineTicks counts reconciliation passes
	TrustlineTicks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "settlement_trustline_ticks_total",
			Help: "Trustline reconciliation passes",
		},
	)

	// TrustlineChecks counts per-deposit reconciliation decisions
	TrustlineChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_trustline_checks_total",
			Help: "Pending-trust deposits examined by result",
		},
		[]string{"result"},
	)

	// WithdrawalMatches counts incoming payments by match result
	WithdrawalMatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_withdrawal_matches_total",
			Help: "Incoming ledger payments by match result",
		},
		[]string{"result"},
	)

	// PaymentsForwarded counts ledger transactions handed to the payment topic
	PaymentsForwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_payments_forwarded_total",
			Help: "Observed ledger payments by publish result",
		},
		[]string{"result"},
	)

	// WorkerPoolRunning reports busy settlement workers
	WorkerPoolRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "settlement_worker_pool_running",
			Help: "Settlement workers currently running",
		},
	)

	// HTTPRequests counts API requests by route and status
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPLatency tracks API request latency
	HTTPLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "settlement_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)
