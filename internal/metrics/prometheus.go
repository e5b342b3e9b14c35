// Package metrics exposes pipeline and queue activity to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joseph-ayodele/medscan/constants"
)

// Recorder owns the medscan collectors. It satisfies pipeline.Recorder.
type Recorder struct {
	ocrDuration  *prometheus.HistogramVec
	proposals    *prometheus.CounterVec
	failures     *prometheus.CounterVec
	jobsInFlight prometheus.Gauge
}

// NewRecorder registers the collectors with reg. A nil reg uses a private
// registry, which keeps tests independent of each other.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Recorder{
		ocrDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "medscan_ocr_duration_seconds",
				Help:    "Time spent transcribing a source document",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"method"},
		),
		proposals: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "medscan_proposals_total",
				Help: "Total number of extraction results proposed for review",
			},
			[]string{"kind", "confidence"},
		),
		failures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "medscan_failures_total",
				Help: "Total number of documents that failed, by pipeline stage",
			},
			[]string{"stage"},
		),
		jobsInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "medscan_jobs_in_flight",
				Help: "Number of documents currently being processed",
			},
		),
	}
}

func (r *Recorder) ObserveOCR(method string, d time.Duration) {
	r.ocrDuration.WithLabelValues(method).Observe(d.Seconds())
}

func (r *Recorder) ObserveProposal(kind constants.DocumentKind, tier constants.Tier) {
	r.proposals.WithLabelValues(string(kind), string(tier)).Inc()
}

func (r *Recorder) ObserveFailure(stage string) {
	r.failures.WithLabelValues(stage).Inc()
}

// JobStarted and JobFinished track queue workers.
func (r *Recorder) JobStarted()  { r.jobsInFlight.Inc() }
func (r *Recorder) JobFinished() { r.jobsInFlight.Dec() }

// Handler returns the Prometheus metrics HTTP handler for g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
