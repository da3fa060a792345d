// Package indicators computes chart overlays over price series.
package indicators

import (
	"fmt"
	"math"
)

// MovingAverageType defines the type of moving average
type MovingAverageType string

const (
	// SimpleMovingAverage represents a simple moving average
	SimpleMovingAverage MovingAverageType = "SMA"
	// ExponentialMovingAverage represents an exponential moving average
	ExponentialMovingAverage MovingAverageType = "EMA"
)

// MovingAverage computes SMA or EMA over a fixed period.
type MovingAverage struct {
	Period int
	Type   MovingAverageType
}

// NewSMA returns a simple moving average with the given period.
func NewSMA(period int) MovingAverage {
	return MovingAverage{Period: period, Type: SimpleMovingAverage}
}

// Name returns a label such as "MA7" or "EMA30".
func (m MovingAverage) Name() string {
	if m.Type == ExponentialMovingAverage {
		return fmt.Sprintf("EMA%d", m.Period)
	}
	return fmt.Sprintf("MA%d", m.Period)
}

func (m MovingAverage) validate() error {
	if m.Period < 1 {
		return fmt.Errorf("moving average period must be positive, got %d", m.Period)
	}
	switch m.Type {
	case SimpleMovingAverage, ExponentialMovingAverage:
		return nil
	default:
		return fmt.Errorf("unsupported moving average type: %s", m.Type)
	}
}

// Series returns one value per input. The first Period-1 entries are NaN,
// matching a rolling window that is not yet full.
func (m MovingAverage) Series(values []float64) ([]float64, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if len(values) < m.Period {
		return out, nil
	}

	total := 0.0
	for i := 0; i < m.Period; i++ {
		total += values[i]
	}
	out[m.Period-1] = total / float64(m.Period)

	switch m.Type {
	case SimpleMovingAverage:
		for i := m.Period; i < len(values); i++ {
			total += values[i] - values[i-m.Period]
			out[i] = total / float64(m.Period)
		}
	case ExponentialMovingAverage:
		multiplier := 2.0 / float64(m.Period+1)
		ema := out[m.Period-1]
		for i := m.Period; i < len(values); i++ {
			ema = (values[i]-ema)*multiplier + ema
			out[i] = ema
		}
	}
	return out, nil
}

// Calculate returns the latest moving average value.
func (m MovingAverage) Calculate(values []float64) (float64, error) {
	if err := m.validate(); err != nil {
		return 0, err
	}
	if len(values) < m.Period {
		return 0, fmt.Errorf("not enough data (%d) to calculate %s for period %d", len(values), m.Type, m.Period)
	}
	series, err := m.Series(values)
	if err != nil {
		return 0, err
	}
	return series[len(series)-1], nil
}
