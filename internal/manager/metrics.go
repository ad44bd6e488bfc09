package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scored",
			Subsystem: "manager",
			Name:      "runs_total",
			Help:      "Scoring runs by outcome",
		},
		[]string{"outcome"},
	)

	generatedTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scored",
			Subsystem: "manager",
			Name:      "generated_tokens_total",
			Help:      "New tokens generated, by device",
		},
		[]string{"device"},
	)

	deviceFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "scored",
			Subsystem: "manager",
			Name:      "device_fallbacks_total",
			Help:      "GPU requests served on CPU because no GPU was available",
		},
	)

	loadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "scored",
			Subsystem: "manager",
			Name:      "load_duration_seconds",
			Help:      "Time to open a tokenizer/model session, by device",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"device"},
	)
)

func init() {
	prometheus.MustRegister(runsTotal, generatedTokensTotal, deviceFallbacksTotal, loadDuration)
}

// outcomeLabel maps a Run error to the runs_total label.
func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsUninitialized(err):
		return "uninitialized"
	case IsMalformedInput(err):
		return "malformed_input"
	default:
		return "generation_error"
	}
}
