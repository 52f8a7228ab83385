package bench

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "shmbench"

// Metrics exports benchmark results to Prometheus.
type Metrics struct {
	bytes      prometheus.Counter
	transfers  *prometheus.CounterVec
	throughput prometheus.Gauge
	elapsed    prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transferred_bytes_total",
			Help:      "Total number of bytes received by consumers.",
		}),
		transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfers_total",
			Help:      "Finished transfers by consumer outcome.",
		}, []string{"state"}),
		throughput: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "throughput_mib_per_second",
			Help:      "Throughput of the last complete transfer.",
		}),
		elapsed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transfer_duration_seconds",
			Help:      "Consumer side duration of complete transfers.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}
	for _, c := range []prometheus.Collector{m.bytes, m.transfers, m.throughput, m.elapsed} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Observe records one report.
func (m *Metrics) Observe(r Report) {
	m.bytes.Add(float64(r.Bytes))
	m.transfers.WithLabelValues(r.State.String()).Inc()
	if r.Complete() {
		m.throughput.Set(r.MiBps())
		m.elapsed.Observe(r.Elapsed.Seconds())
	}
}
