package inference

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Failure kinds used as the "kind" label of failures_total.
const (
	FailureUnavailable = "unavailable"
	FailureValidation  = "validation"
	FailureModel       = "model"
	FailurePanic       = "panic"
)

type serviceMetrics struct {
	predictions prometheus.Counter
	failures    *prometheus.CounterVec
	latency     prometheus.Histogram
	available   prometheus.Gauge
}

// newServiceMetrics registers the collectors on reg. A nil reg creates
// unregistered collectors.
func newServiceMetrics(reg prometheus.Registerer) *serviceMetrics {
	factory := promauto.With(reg)
	return &serviceMetrics{
		predictions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "bacpanel",
			Subsystem: "inference",
			Name:      "predictions_total",
			Help:      "Successful inhibition panel predictions",
		}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bacpanel",
			Subsystem: "inference",
			Name:      "failures_total",
			Help:      "Failed predictions by kind",
		}, []string{"kind"}),
		latency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "bacpanel",
			Subsystem: "inference",
			Name:      "latency_seconds",
			Help:      "Prediction latency in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
		available: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "bacpanel",
			Subsystem: "inference",
			Name:      "model_available",
			Help:      "1 when a validated artifact is loaded, 0 in degraded mode",
		}),
	}
}

func (m *serviceMetrics) setAvailable(ok bool) {
	if ok {
		m.available.Set(1)
	} else {
		m.available.Set(0)
	}
}
