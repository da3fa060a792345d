package ports

import (
	"context"

	"cryptoForecast/internal/domain"
)

// Predictor maps a scaled look-back window to the next scaled adjusted close.
// Implementations must not retain or modify the window slice.
type Predictor interface {
	Predict(window []domain.FeatureVector) (float64, error)
}

// Scaler is an invertible per-field transform fitted offline on the six features.
type Scaler interface {
	// Transform maps a raw vector into model space.
	Transform(v domain.FeatureVector) domain.FeatureVector
	// InverseTransform maps a scaled vector back to raw units.
	InverseTransform(v domain.FeatureVector) domain.FeatureVector
	// InvertField recovers the raw value of a single field from its scaled value.
	InvertField(field domain.Field, value float64) float64
}

// Model bundles everything needed to forecast one symbol.
type Model struct {
	Symbol    string
	Predictor Predictor
	Scaler    Scaler
	LookBack  int // Window length the predictor was trained with (0 = use engine default)
}

// ModelStore resolves trained models by symbol.
type ModelStore interface {
	// Get returns the model for symbol.
	// Fails with ErrScalerNotFound or ErrModelNotFound when files are missing.
	Get(ctx context.Context, symbol string) (*Model, error)
	// Symbols lists the symbols that have a trained model, sorted.
	Symbols(ctx context.Context) ([]string, error)
}
