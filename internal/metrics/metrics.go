// Package metrics exports submission and resource telemetry to Prometheus.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pdfagent/internal/models"
)

const namespace = "pdfagent"

// Recorder observes flights and uploads. A nil Recorder is a no-op.
type Recorder struct {
	registry *prometheus.Registry

	submissions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	inFlight    prometheus.Gauge
	dropped     prometheus.Counter
	uploads     prometheus.Counter
	uploadBytes prometheus.Counter
}

func New() (*Recorder, error) {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Settled submissions by outcome and failure kind.",
		}, []string{"outcome", "kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "submission_duration_seconds",
			Help:      "Time from dispatch to settlement.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		}, []string{"outcome"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "submissions_in_flight",
			Help:      "Requests currently outstanding at the summarization service.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_dropped_total",
			Help:      "Results that arrived after their session was unmounted.",
		}),
		uploads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Files selected into an upload slot.",
		}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_bytes_total",
			Help:      "Cumulative size of selected files.",
		}),
	}
	for _, c := range []prometheus.Collector{
		r.submissions, r.duration, r.inFlight, r.dropped, r.uploads, r.uploadBytes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := r.registry.Register(c); err != nil {
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}
	return r, nil
}

// GaugeFunc exposes a value sampled at scrape time, such as live sessions.
func (r *Recorder) GaugeFunc(name, help string, fn func() float64) error {
	if r == nil {
		return nil
	}
	return r.registry.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn))
}

func (r *Recorder) FlightStarted(models.FlightReport) {
	if r == nil {
		return
	}
	r.inFlight.Inc()
}

func (r *Recorder) FlightSettled(report models.FlightReport) {
	if r == nil {
		return
	}
	r.inFlight.Dec()
	outcome := string(report.Outcome())
	kind := ""
	if report.Failure != nil {
		kind = string(report.Failure.Kind)
	}
	r.submissions.WithLabelValues(outcome, kind).Inc()
	r.duration.WithLabelValues(outcome).Observe(report.SettledAt.Sub(report.StartedAt).Seconds())
	if report.Dropped {
		r.dropped.Inc()
	}
}

// UploadSelected counts a file put in a slot.
func (r *Recorder) UploadSelected(size int64) {
	if r == nil {
		return
	}
	r.uploads.Inc()
	r.uploadBytes.Add(float64(size))
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
