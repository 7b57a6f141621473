package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics records outcomes of the crediting cascade and cap checks.
type EngineMetrics struct {
	creditsApplied *prometheus.CounterVec
	creditsSkipped *prometheus.CounterVec
	capBlocks      *prometheus.CounterVec
	cascade        *prometheus.HistogramVec
}

// NewEngineMetrics registers the compensation engine metrics on the provided
// registerer. A nil registerer returns a collector whose methods are no-ops.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	if reg == nil {
		return &EngineMetrics{}
	}
	creditsApplied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_credits_applied",
		Help: "Upline credits applied during the cascade.",
	}, []string{"tier"})
	creditsSkipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_credits_skipped",
		Help: "Upline credits skipped because the receiving ledger balance was insufficient.",
	}, []string{"tier"})
	capBlocks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cap_blocks",
		Help: "Credits withheld by earning-cap enforcement.",
	}, []string{"threshold"})
	cascade := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cascade_duration_seconds",
		Help:    "Duration of the post-verification crediting cascade in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"tier"})
	reg.MustRegister(creditsApplied, creditsSkipped, capBlocks, cascade)
	return &EngineMetrics{
		creditsApplied: creditsApplied,
		creditsSkipped: creditsSkipped,
		capBlocks:      capBlocks,
		cascade:        cascade,
	}
}

// IncCreditApplied increments the applied-credit counter for the named tier.
func (e *EngineMetrics) IncCreditApplied(tier string) {
	if e == nil || e.creditsApplied == nil {
		return
	}
	e.creditsApplied.WithLabelValues(normalizeLabel(tier)).Inc()
}

// IncCreditSkipped increments the skipped-credit counter for the named tier.
func (e *EngineMetrics) IncCreditSkipped(tier string) {
	if e == nil || e.creditsSkipped == nil {
		return
	}
	e.creditsSkipped.WithLabelValues(normalizeLabel(tier)).Inc()
}

// IncCapBlock increments the cap-block counter for the named threshold.
func (e *EngineMetrics) IncCapBlock(threshold string) {
	if e == nil || e.capBlocks == nil {
		return
	}
	e.capBlocks.WithLabelValues(normalizeLabel(threshold)).Inc()
}

// ObserveCascade records the duration of one crediting cascade.
func (e *EngineMetrics) ObserveCascade(tier string, duration time.Duration) {
	if e == nil || e.cascade == nil {
		return
	}
	e.cascade.WithLabelValues(normalizeLabel(tier)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
