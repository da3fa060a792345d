package domain

import "time"

// Field identifies one slot of a FeatureVector.
type Field int

// Fixed feature order the models were trained on.
const (
	FieldOpen Field = iota
	FieldHigh
	FieldLow
	FieldClose
	FieldAdjClose
	FieldVolume
)

// NumFeatures is the width of a FeatureVector.
const NumFeatures = 6

// String returns the dataset column name of the field.
func (f Field) String() string {
	switch f {
	case FieldOpen:
		return "open"
	case FieldHigh:
		return "high"
	case FieldLow:
		return "low"
	case FieldClose:
		return "close"
	case FieldAdjClose:
		return "adjclose"
	case FieldVolume:
		return "volume"
	default:
		return "unknown"
	}
}

// Valid reports whether f addresses a slot of a FeatureVector.
func (f Field) Valid() bool {
	return f >= FieldOpen && f <= FieldVolume
}

// FeatureVector holds [open, high, low, close, adjclose, volume] either in raw
// units or after scaling.
type FeatureVector [NumFeatures]float64

// PricePoint represents one daily row of historical market data.
type PricePoint struct {
	Timestamp time.Time // Row date
	Symbol    string    // Dataset symbol (e.g., "BTC-USD")
	Open      float64   // Opening price
	High      float64   // Highest price
	Low       float64   // Lowest price
	Close     float64   // Closing price
	AdjClose  float64   // Adjusted closing price, the forecast target
	Volume    float64   // Traded volume
}

// Features projects the row onto the fixed feature order.
func (p PricePoint) Features() FeatureVector {
	return FeatureVector{p.Open, p.High, p.Low, p.Close, p.AdjClose, p.Volume}
}
