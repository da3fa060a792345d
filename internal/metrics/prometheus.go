// Package metrics exports forecast service activity to Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"cryptoForecast/internal/ports"
)

const namespace = "crypto_forecast"

// Recorder implements ports.Metrics using Prometheus.
type Recorder struct {
	forecasts      *prometheus.CounterVec
	forecastErrors *prometheus.CounterVec
	forecastTime   *prometheus.HistogramVec
	predictedPrice *prometheus.GaugeVec
	modelLoads     *prometheus.CounterVec
	syncRows       *prometheus.CounterVec
	syncErrors     *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

var _ ports.Metrics = (*Recorder)(nil)

// New registers the collectors with reg (the default registerer when nil).
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Recorder{
		forecasts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "forecasts_total",
				Help:      "Total number of forecasts requested",
			},
			[]string{"symbol", "horizon"},
		),
		forecastErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "forecast_errors_total",
				Help:      "Total number of failed forecasts",
			},
			[]string{"symbol"},
		),
		forecastTime: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "forecast_duration_seconds",
				Help:      "Duration of a full multi-day forecast in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"symbol"},
		),
		predictedPrice: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "predicted_next_close",
				Help:      "Most recent next-day adjusted close prediction",
			},
			[]string{"symbol"},
		),
		modelLoads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "model_lookups_total",
				Help:      "Model store lookups by result",
			},
			[]string{"symbol", "result"},
		),
		syncRows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_rows_total",
				Help:      "Price rows written by the history sync",
			},
			[]string{"symbol"},
		),
		syncErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_errors_total",
				Help:      "Failed history sync runs",
			},
			[]string{"symbol"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"route", "method"},
		),
	}
}

// RecordForecast records one forecast run.
func (r *Recorder) RecordForecast(symbol string, horizon int, elapsed time.Duration, err error) {
	r.forecasts.WithLabelValues(symbol, strconv.Itoa(horizon)).Inc()
	r.forecastTime.WithLabelValues(symbol).Observe(elapsed.Seconds())
	if err != nil {
		r.forecastErrors.WithLabelValues(symbol).Inc()
	}
}

// RecordPredictedPrice records the latest next-day prediction for a symbol.
func (r *Recorder) RecordPredictedPrice(symbol string, price float64) {
	r.predictedPrice.WithLabelValues(symbol).Set(price)
}

// RecordModelLoad records a model store lookup.
func (r *Recorder) RecordModelLoad(symbol string, cacheHit bool, err error) {
	result := "loaded"
	switch {
	case err != nil:
		result = "error"
	case cacheHit:
		result = "hit"
	}
	r.modelLoads.WithLabelValues(symbol, result).Inc()
}

// RecordSync records one symbol's history sync.
func (r *Recorder) RecordSync(symbol string, rows int, err error) {
	if err != nil {
		r.syncErrors.WithLabelValues(symbol).Inc()
		return
	}
	r.syncRows.WithLabelValues(symbol).Add(float64(rows))
}

// RecordHTTPRequest records one served request. route should be the templated path.
func (r *Recorder) RecordHTTPRequest(route, method string, status int, elapsed time.Duration) {
	r.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}
