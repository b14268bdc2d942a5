package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/srodi/procscore/pkg/types"
)

const namespace = "procscore"

// Metrics holds the Prometheus collectors describing scans. A nil *Metrics records nothing.
type Metrics struct {
	scans     *prometheus.CounterVec
	duration  prometheus.Histogram
	skipped   prometheus.Counter
	cacheSize prometheus.Gauge
	rows      *prometheus.GaugeVec
}

// NewMetrics creates the scan collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Process table scans by outcome.",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Time spent scanning the process table.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_processes_total",
			Help:      "Processes left out of a report because they exited or could not be read.",
		}),
		cacheSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "delta_cache_entries",
			Help:      "Processes holding a CPU baseline.",
		}),
		rows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "processes",
			Help:      "Processes per risk tier in the latest scan.",
		}, []string{"tier"}),
	}
	reg.MustRegister(m.scans, m.duration, m.skipped, m.cacheSize, m.rows)
	return m
}

func (m *Metrics) observeScan(snap *types.Snapshot, err error, elapsed time.Duration, cacheLen int) {
	if m == nil {
		return
	}
	m.duration.Observe(elapsed.Seconds())
	m.cacheSize.Set(float64(cacheLen))
	if err != nil {
		m.scans.WithLabelValues("error").Inc()
		return
	}
	m.scans.WithLabelValues("ok").Inc()
	m.skipped.Add(float64(snap.Skipped))

	counts := map[types.Tier]int{types.TierLow: 0, types.TierMedium: 0, types.TierHigh: 0}
	for _, s := range snap.Samples {
		counts[s.Tier]++
	}
	for tier, n := range counts {
		m.rows.WithLabelValues(tier.String()).Set(float64(n))
	}
}
