package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Domain counters for the audit pipeline and outbound mail. HTTP traffic is
// instrumented separately by middleware.Metrics.
var (
	// AuditsTotal counts finished pipeline runs by outcome
	// (complete, error).
	AuditsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitepilot_audits_total",
			Help: "Audit pipeline runs by terminal outcome.",
		},
		[]string{"outcome"},
	)

	// AuditDuration observes wall time from pipeline start to terminal write.
	AuditDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sitepilot_audit_duration_seconds",
			Help:    "Duration of audit pipeline runs in seconds.",
			Buckets: []float64{1, 2.5, 5, 10, 20, 30, 45, 60, 90, 120, 180},
		},
	)

	// FetchTotal counts live HTML fetches by outcome (ok, fallback).
	FetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitepilot_fetch_total",
			Help: "Homepage fetches by outcome.",
		},
		[]string{"outcome"},
	)

	// EmailsTotal counts send attempts by message kind and outcome
	// (sent, failed, suppressed).
	EmailsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitepilot_emails_total",
			Help: "Outbound emails by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(AuditsTotal, AuditDuration, FetchTotal, EmailsTotal)
}
