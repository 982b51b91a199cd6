package loader

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the loader's Prometheus collectors.
type Metrics struct {
	records      prometheus.Counter
	batches      *prometheus.CounterVec
	batchSeconds *prometheus.HistogramVec
}

// NewMetrics creates the loader collectors and registers them on reg. A nil
// reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		// records counts samples read from the source.
		records: f.NewCounter(prometheus.CounterOpts{
			Namespace: "stgraph",
			Subsystem: "loader",
			Name:      "records_total",
			Help:      "Samples read from the dataset",
		}),
		// batches counts collated batches.
		// Labels: mode (stack, union)
		batches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stgraph",
			Subsystem: "loader",
			Name:      "batches_total",
			Help:      "Batches collated",
		}, []string{"mode"}),
		// batchSeconds measures the time to read and collate one batch.
		// Labels: mode (stack, union)
		batchSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stgraph",
			Subsystem: "loader",
			Name:      "batch_seconds",
			Help:      "Time to build one batch in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"mode"}),
	}
}
