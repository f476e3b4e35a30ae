package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder exports scan and refresh metrics to Prometheus.
type Recorder struct {
	scansTotal      *prometheus.CounterVec
	scanDuration    prometheus.Histogram
	symbolsTotal    *prometheus.CounterVec
	recommendations *prometheus.CounterVec
	softErrors      *prometheus.CounterVec
	refreshSymbols  *prometheus.GaugeVec
	refreshDuration prometheus.Histogram
}

// New creates a recorder registered on reg.
// Pass prometheus.DefaultRegisterer in the binary and a fresh registry in tests.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		scansTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "thetascan_scans_total",
				Help: "Total number of finished scan runs by terminal status",
			},
			[]string{"status"},
		),
		scanDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "thetascan_scan_duration_seconds",
				Help:    "Wall time of a full scan run",
				Buckets: []float64{30, 60, 120, 300, 600, 1200, 1800, 3600},
			},
		),
		symbolsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "thetascan_symbols_processed_total",
				Help: "Symbols processed by the scan loop by outcome",
			},
			[]string{"outcome"},
		),
		recommendations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "thetascan_recommendations_total",
				Help: "Recommendations produced per strategy before selection",
			},
			[]string{"strategy"},
		),
		softErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "thetascan_soft_errors_total",
				Help: "Isolated failures that did not abort the scan",
			},
			[]string{"tier"},
		),
		refreshSymbols: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "thetascan_refresh_symbols",
				Help: "Symbol counts of the last bulk fundamentals refresh",
			},
			[]string{"class"},
		),
		refreshDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "thetascan_refresh_duration_seconds",
				Help:    "Wall time of a bulk fundamentals refresh",
				Buckets: []float64{60, 300, 600, 1800, 3600, 7200},
			},
		),
	}
}

// ScanFinished records a terminal scan status and its duration.
func (r *Recorder) ScanFinished(status string, d time.Duration) {
	r.scansTotal.WithLabelValues(status).Inc()
	r.scanDuration.Observe(d.Seconds())
}

// SymbolProcessed records one symbol leaving the scan loop.
func (r *Recorder) SymbolProcessed(outcome string) {
	r.symbolsTotal.WithLabelValues(outcome).Inc()
}

// RecommendationsProduced records raw strategy output.
func (r *Recorder) RecommendationsProduced(strategy string, n int) {
	r.recommendations.WithLabelValues(strategy).Add(float64(n))
}

// SoftError records an isolated failure at the given tier.
func (r *Recorder) SoftError(tier string) {
	r.softErrors.WithLabelValues(tier).Inc()
}

// RefreshFinished records the outcome of a bulk refresh.
func (r *Recorder) RefreshFinished(healthy, unhealthy, failed int, d time.Duration) {
	r.refreshSymbols.WithLabelValues("healthy").Set(float64(healthy))
	r.refreshSymbols.WithLabelValues("unhealthy").Set(float64(unhealthy))
	r.refreshSymbols.WithLabelValues("failed").Set(float64(failed))
	r.refreshDuration.Observe(d.Seconds())
}

// Nop discards every observation.
type Nop struct{}

func (Nop) ScanFinished(string, time.Duration)           {}
func (Nop) SymbolProcessed(string)                       {}
func (Nop) RecommendationsProduced(string, int)          {}
func (Nop) SoftError(string)                             {}
func (Nop) RefreshFinished(int, int, int, time.Duration) {}
