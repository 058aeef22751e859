// Package metrics exposes pipeline events as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"energy_harmonizer/internal/pipeline"
)

// Metrics bundles harmonization metrics. It implements pipeline.Observer.
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal      *prometheus.CounterVec
	RunDuration    prometheus.Histogram
	RunInProgress  prometheus.Gauge
	LastRunRows    prometheus.Gauge
	StageRowsTotal *prometheus.CounterVec
	StageDuration  *prometheus.HistogramVec
	CellsTotal     *prometheus.CounterVec
	RowsTotal      *prometheus.CounterVec
}

// New constructs metrics registered on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harmonize_runs_total",
				Help: "Total pipeline runs by status",
			},
			[]string{"status"},
		),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "harmonize_run_duration_seconds",
			Help:    "Pipeline run duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		RunInProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "harmonize_run_in_progress",
			Help: "1 while a pipeline run is executing",
		}),
		LastRunRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "harmonize_last_run_rows",
			Help: "Rows in the merged dataset of the last completed run",
		}),
		StageRowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harmonize_stage_rows_total",
				Help: "Rows entering and leaving each stage",
			},
			[]string{"stage", "direction"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harmonize_stage_duration_seconds",
				Help:    "Stage duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		CellsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harmonize_cells_total",
				Help: "Consumption cells masked or imputed by validation",
			},
			[]string{"action"},
		),
		RowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harmonize_validation_rows_total",
				Help: "Consumption rows dropped or left unresolved by validation",
			},
			[]string{"outcome"},
		),
	}
	m.registry.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.RunInProgress,
		m.LastRunRows,
		m.StageRowsTotal,
		m.StageDuration,
		m.CellsTotal,
		m.RowsTotal,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) OnRunStarted(pipeline.RunInfo) {
	m.RunInProgress.Set(1)
}

func (m *Metrics) OnStageCompleted(ev pipeline.StageEvent) {
	stage := string(ev.Stage)
	m.StageRowsTotal.WithLabelValues(stage, "in").Add(float64(ev.RowsIn))
	m.StageRowsTotal.WithLabelValues(stage, "out").Add(float64(ev.RowsOut))
	m.StageDuration.WithLabelValues(stage).Observe(ev.Duration.Seconds())
}

func (m *Metrics) OnRunCompleted(s pipeline.Summary) {
	m.RunInProgress.Set(0)
	m.RunsTotal.WithLabelValues("completed").Inc()
	m.RunDuration.Observe(s.Duration.Seconds())
	m.LastRunRows.Set(float64(s.Rows))
	m.CellsTotal.WithLabelValues("masked").Add(float64(s.CellsMasked))
	m.CellsTotal.WithLabelValues("imputed").Add(float64(s.CellsImputed))
	m.RowsTotal.WithLabelValues("dropped").Add(float64(s.RowsDropped))
	m.RowsTotal.WithLabelValues("unresolved").Add(float64(s.Unresolved))
}

func (m *Metrics) OnRunFailed(pipeline.RunInfo, error) {
	m.RunInProgress.Set(0)
	m.RunsTotal.WithLabelValues("failed").Inc()
}
