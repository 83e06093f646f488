package export

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts export outcomes. A nil *Metrics records nothing.
type Metrics struct {
	exports  *prometheus.CounterVec
	files    prometheus.Counter
	bytes    prometheus.Counter
	duration *prometheus.HistogramVec
}

// NewMetrics registers the export collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		exports: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "specimen",
			Name:      "exports_total",
			Help:      "Exports attempted, by scope and status.",
		}, []string{"scope", "status"}),
		files: f.NewCounter(prometheus.CounterOpts{
			Namespace: "specimen",
			Name:      "export_files_written_total",
			Help:      "Files written by successful exports.",
		}),
		bytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: "specimen",
			Name:      "export_bytes_written_total",
			Help:      "Bytes written by successful exports.",
		}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "specimen",
			Name:      "export_duration_seconds",
			Help:      "Export wall time.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"scope"}),
	}
}

func (m *Metrics) observe(scope string, res Result, d time.Duration) {
	if m == nil {
		return
	}
	status := "failed"
	if res.Success {
		status = "succeeded"
		m.files.Add(float64(res.FileCount))
		m.bytes.Add(float64(res.TotalBytes))
	}
	m.exports.WithLabelValues(scope, status).Inc()
	m.duration.WithLabelValues(scope).Observe(d.Seconds())
}
