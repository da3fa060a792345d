package ports

import "time"

// Metrics records forecast and model store activity.
type Metrics interface {
	RecordForecast(symbol string, horizon int, elapsed time.Duration, err error)
	RecordPredictedPrice(symbol string, price float64)
	RecordModelLoad(symbol string, cacheHit bool, err error)
	RecordSync(symbol string, rows int, err error)
}

// NoopMetrics discards everything.
type NoopMetrics struct{}

func (NoopMetrics) RecordForecast(string, int, time.Duration, error) {}
func (NoopMetrics) RecordPredictedPrice(string, float64)              {}
func (NoopMetrics) RecordModelLoad(string, bool, error)               {}
func (NoopMetrics) RecordSync(string, int, error)                     {}
