package telemetry

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration *prom.HistogramVec
	runDuration   prom.Histogram
	runOutcomes   *prom.CounterVec
	filesWritten  *prom.CounterVec
	parseErrors   *prom.CounterVec
	lastRun       prom.Gauge
}

// NewPrometheusRecorder constructs and registers the metrics on reg. A
// nil registry gets a fresh one.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "metricgen",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual run stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		runDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "metricgen",
			Name:      "run_duration_seconds",
			Help:      "Total generation run duration",
			Buckets:   prom.DefBuckets,
		}),
		runOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "metricgen",
			Name:      "run_outcomes_total",
			Help:      "Generation runs by final outcome",
		}, []string{"outcome"}),
		filesWritten: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "metricgen",
			Name:      "files_written_total",
			Help:      "Generated files written, by output format",
		}, []string{"format"}),
		parseErrors: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "metricgen",
			Name:      "parse_errors_total",
			Help:      "Registry findings by error kind",
		}, []string{"kind"}),
		lastRun: prom.NewGauge(prom.GaugeOpts{
			Namespace: "metricgen",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the most recent run",
		}),
	}
	reg.MustRegister(pr.stageDuration, pr.runDuration, pr.runOutcomes,
		pr.filesWritten, pr.parseErrors, pr.lastRun)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil || p.runDuration == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRunOutcome(outcome ResultLabel) {
	if p == nil || p.runOutcomes == nil {
		return
	}
	p.runOutcomes.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) AddFilesWritten(format string, n int) {
	if p == nil || p.filesWritten == nil {
		return
	}
	p.filesWritten.WithLabelValues(format).Add(float64(n))
}

func (p *PrometheusRecorder) IncParseErrors(kind string) {
	if p == nil || p.parseErrors == nil {
		return
	}
	p.parseErrors.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) SetLastRun(t time.Time) {
	if p == nil || p.lastRun == nil {
		return
	}
	p.lastRun.Set(float64(t.Unix()))
}

// HTTPHandler returns an http.Handler serving the registry's metrics.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
