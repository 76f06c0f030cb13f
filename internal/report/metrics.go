package report

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes run outcomes as Prometheus series
type Metrics struct {
	Registry *prometheus.Registry

	scenarios   *prometheus.GaugeVec
	passed      *prometheus.GaugeVec
	duration    *prometheus.GaugeVec
	runs        *prometheus.CounterVec
	lastRun     prometheus.Gauge
	runDuration prometheus.Histogram
}

// NewMetrics registers the run series on a fresh registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		scenarios: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "uiflow_scenarios",
			Help: "Scenarios of the last run by status",
		}, []string{"profile", "status"}),
		passed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "uiflow_scenario_passed",
			Help: "1 when the scenario passed in the last run, 0 otherwise",
		}, []string{"profile", "scenario"}),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "uiflow_scenario_duration_seconds",
			Help: "Scenario duration in the last run",
		}, []string{"profile", "scenario"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uiflow_runs_total",
			Help: "Completed runs by outcome",
		}, []string{"profile", "outcome"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "uiflow_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "uiflow_run_duration_seconds",
			Help:    "Wall time of whole runs",
			Buckets: []float64{5, 10, 20, 30, 60, 120, 300},
		}),
	}
	reg.MustRegister(m.scenarios, m.passed, m.duration, m.runs, m.lastRun, m.runDuration)
	return m
}

// Observe records one finished run
func (m *Metrics) Observe(r *Report) {
	m.scenarios.WithLabelValues(r.Profile, string(StatusPassed)).Set(float64(r.Passed))
	m.scenarios.WithLabelValues(r.Profile, string(StatusFailed)).Set(float64(r.Failed))
	m.scenarios.WithLabelValues(r.Profile, string(StatusSkipped)).Set(float64(r.Skipped))
	for _, res := range r.Results {
		v := 0.0
		if res.Passed() {
			v = 1
		}
		m.passed.WithLabelValues(r.Profile, res.Name).Set(v)
		m.duration.WithLabelValues(r.Profile, res.Name).Set(res.Duration.Seconds())
	}
	outcome := "success"
	if !r.Succeeded() {
		outcome = "failure"
	}
	m.runs.WithLabelValues(r.Profile, outcome).Inc()
	m.lastRun.Set(float64(r.FinishedAt.Unix()))
	m.runDuration.Observe(r.Duration.Seconds())
}

// WriteTextfile saves the registry in the node_exporter textfile format
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
