// Package metrics exposes Prometheus metrics for batches, jobs and form fills.
// A nil *Recorder is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "applypilot"

// Recorder holds the application metrics.
type Recorder struct {
	registry *prometheus.Registry

	batches        *prometheus.CounterVec
	batchDuration  prometheus.Histogram
	jobs           *prometheus.CounterVec
	jobDuration    prometheus.Histogram
	navigation     *prometheus.CounterVec
	fieldFills     *prometheus.CounterVec
	promptsPerForm prometheus.Histogram
	imports        *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
}

// New registers the metrics on a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		batches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Autopilot batches by result (ok, empty, error).",
		}, []string{"result"}),
		batchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Wall time of autopilot batches.",
			Buckets:   prometheus.ExponentialBuckets(5, 2, 10),
		}),
		jobs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Processed jobs by ATS family and outcome status.",
		}, []string{"ats", "status"}),
		jobDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Wall time of one job, including drafting and submission.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		navigation: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "form_navigation_total",
			Help:      "Form resolutions by winning strategy.",
		}, []string{"strategy"}),
		fieldFills: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "field_fills_total",
			Help:      "Field fill attempts by method (fill, typed, failed).",
		}, []string{"method"}),
		promptsPerForm: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "form_prompts",
			Help:      "Long-answer prompts discovered per form.",
			Buckets:   prometheus.LinearBuckets(0, 2, 8),
		}),
		imports: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imported_jobs_total",
			Help:      "Imported postings by source.",
		}, []string{"source"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "API requests by route and status code.",
		}, []string{"route", "code"}),
	}
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Batch records one finished batch.
func (r *Recorder) Batch(result string, d time.Duration) {
	if r == nil {
		return
	}
	r.batches.WithLabelValues(result).Inc()
	r.batchDuration.Observe(d.Seconds())
}

// Job records one finished job.
func (r *Recorder) Job(ats, status string, d time.Duration) {
	if r == nil {
		return
	}
	r.jobs.WithLabelValues(ats, status).Inc()
	r.jobDuration.Observe(d.Seconds())
}

// Navigation records the strategy that resolved a form.
func (r *Recorder) Navigation(strategy string) {
	if r == nil {
		return
	}
	r.navigation.WithLabelValues(strategy).Inc()
}

// Prompts records the number of prompts discovered on one form.
func (r *Recorder) Prompts(n int) {
	if r == nil {
		return
	}
	r.promptsPerForm.Observe(float64(n))
}

// FieldFill records one field fill by method.
func (r *Recorder) FieldFill(method string) {
	if r == nil {
		return
	}
	r.fieldFills.WithLabelValues(method).Inc()
}

// Imported records n postings saved from source.
func (r *Recorder) Imported(source string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.imports.WithLabelValues(source).Add(float64(n))
}

// HTTPRequest records one API request.
func (r *Recorder) HTTPRequest(route, code string) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(route, code).Inc()
}
