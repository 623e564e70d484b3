package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the game API and monitor.
type Metrics struct {
	ShotsTotal      prometheus.Counter
	ModalsOpened    *prometheus.CounterVec
	Dismissals      prometheus.Counter
	Detections      *prometheus.CounterVec
	LLMCallDuration prometheus.Histogram
}

// New registers hoopwatch collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ShotsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "hoopwatch_shots_total",
			Help: "Completed shot events received, including shots dropped while a modal was open.",
		}),
		ModalsOpened: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hoopwatch_modals_opened_total",
			Help: "Harmful-content modals opened, by category.",
		}, []string{"category"}),
		Dismissals: factory.NewCounter(prometheus.CounterOpts{
			Name: "hoopwatch_modal_dismissals_total",
			Help: "Modal dismissals that closed an open modal.",
		}),
		Detections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hoopwatch_detections_total",
			Help: "Confirmed harmful-content detections, by category.",
		}, []string{"category"}),
		LLMCallDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "hoopwatch_llm_call_duration_seconds",
			Help:    "Duration of classifier and judge LLM calls.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// NewDefault registers on the default Prometheus registry.
func NewDefault() *Metrics {
	return New(prometheus.DefaultRegisterer)
}
