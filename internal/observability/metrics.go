package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for a climatology run.
type Metrics struct {
	FilesDiscovered prometheus.Counter
	FilesReduced    prometheus.Counter
	FilesFailed     prometheus.Counter
	RecordsRead     prometheus.Counter
	MissingMonths   prometheus.Counter
	CellsAggregated prometheus.Counter
	RunActive       prometheus.Gauge
	RegionArea      prometheus.Gauge

	StageDuration *prometheus.HistogramVec // labels: stage={reduce,aggregate,publish}
	FileDuration  prometheus.Histogram
}

func newMetrics() *Metrics {
	return &Metrics{
		FilesDiscovered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fluxclim",
			Name:      "files_discovered_total",
			Help:      "Flux files found in the input directory.",
		}),
		FilesReduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fluxclim",
			Name:      "files_reduced_total",
			Help:      "Flux files reduced to a cell climatology.",
		}),
		FilesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fluxclim",
			Name:      "files_failed_total",
			Help:      "Flux files rejected as malformed or unreadable.",
		}),
		RecordsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fluxclim",
			Name:      "records_read_total",
			Help:      "Daily records consumed across all flux files.",
		}),
		MissingMonths: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fluxclim",
			Name:      "missing_months_total",
			Help:      "Cell months with no data in any year.",
		}),
		CellsAggregated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fluxclim",
			Name:      "cells_aggregated_total",
			Help:      "Cell climatologies folded into the regional average.",
		}),
		RunActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fluxclim",
			Name:      "run_active",
			Help:      "1 while a run is in progress, 0 otherwise.",
		}),
		RegionArea: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fluxclim",
			Name:      "region_area_km2",
			Help:      "Total area of the aggregated cells in square kilometers.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fluxclim",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}, []string{"stage"}),
		FileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fluxclim",
			Name:      "file_reduce_duration_seconds",
			Help:      "Time to reduce one flux file.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.FilesDiscovered,
		m.FilesReduced,
		m.FilesFailed,
		m.RecordsRead,
		m.MissingMonths,
		m.CellsAggregated,
		m.RunActive,
		m.RegionArea,
		m.StageDuration,
		m.FileDuration,
	}
}

// NewMetricsWith registers all run metrics with reg.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics registered with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() (*Metrics, *prometheus.Registry) {
	m := newMetrics()
	reg := prometheus.NewRegistry()
	reg.MustRegister(m.collectors()...)
	return m, reg
}

// WriteTextfile writes the gatherer's metrics in text exposition format to path,
// for pickup by the node_exporter textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
