package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AuditEntriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_entries_total",
			Help: "Audit chain rows appended",
		},
		[]string{"category"},
	)
	AuditAppendFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_append_failures_total",
			Help: "Audit appends that failed to persist",
		},
	)

	VerifyRuns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_verify_runs_total",
			Help: "Chain verification passes executed",
		},
	)
	VerifyFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_verify_failures_total",
			Help: "Verification passes that found invalid rows",
		},
	)
	ChainLength = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "audit_chain_length",
			Help: "Rows in the audit chain at last verification",
		},
	)

	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)
)

var Handler = promhttp.Handler

func Init() {
	prometheus.MustRegister(AuditEntriesTotal)
	prometheus.MustRegister(AuditAppendFailures)
	prometheus.MustRegister(VerifyRuns)
	prometheus.MustRegister(VerifyFailures)
	prometheus.MustRegister(ChainLength)
	prometheus.MustRegister(WorkerQueueDepth)
}
