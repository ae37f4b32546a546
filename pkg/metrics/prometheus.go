package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"MarketLens/internal/domain/models"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	pollsTotal      *prometheus.CounterVec
	pollErrors      *prometheus.CounterVec
	recordsStored   *prometheus.CounterVec
	validationDrops *prometheus.CounterVec
	lastSuccess     *prometheus.GaugeVec
	bufferSize      *prometheus.GaugeVec
	latency         *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		pollsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketlens_polls_total",
				Help: "Total number of poll attempts per venue and kind",
			},
			[]string{"venue", "kind"},
		),
		pollErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketlens_poll_errors_total",
				Help: "Total number of failed polls per venue, kind and error class",
			},
			[]string{"venue", "kind", "error"},
		),
		recordsStored: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketlens_records_stored_total",
				Help: "Total number of records written to the store",
			},
			[]string{"venue", "kind"},
		),
		validationDrops: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketlens_validation_drops_total",
				Help: "Total number of records dropped by validation",
			},
			[]string{"venue", "kind", "reason"},
		),
		lastSuccess: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "marketlens_last_success_timestamp_seconds",
				Help: "Unix time of the last successful poll per venue and kind",
			},
			[]string{"venue", "kind"},
		),
		bufferSize: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "marketlens_analytics_buffer_size",
				Help: "Records currently held in the rolling analytics buffer",
			},
			[]string{"venue", "symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketlens_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordPoll(venue string, kind models.Kind) {
	r.pollsTotal.WithLabelValues(venue, string(kind)).Inc()
}

func (r *Recorder) RecordPollError(venue string, kind models.Kind, errKind string) {
	r.pollErrors.WithLabelValues(venue, string(kind), errKind).Inc()
}

func (r *Recorder) RecordRecordsStored(venue string, kind models.Kind, n int) {
	r.recordsStored.WithLabelValues(venue, string(kind)).Add(float64(n))
}

func (r *Recorder) RecordValidationDrop(venue string, kind models.Kind, reason string) {
	r.validationDrops.WithLabelValues(venue, string(kind), reason).Inc()
}

func (r *Recorder) RecordLastSuccess(venue string, kind models.Kind, ts time.Time) {
	r.lastSuccess.WithLabelValues(venue, string(kind)).Set(float64(ts.Unix()))
}

func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordBufferSize(venue, symbol string, n int) {
	r.bufferSize.WithLabelValues(venue, symbol).Set(float64(n))
}
