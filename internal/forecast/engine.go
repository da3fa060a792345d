// Package forecast implements the autoregressive multi-day rollout around a
// pre-trained predictor.
package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"cryptoForecast/internal/domain"
	"cryptoForecast/internal/ports"
)

// DefaultLookBack is the window length the bundled models are trained with.
const DefaultLookBack = 60

// day is the spacing between forecast points.
const day = 24 * time.Hour

// Config holds parameters for the forecast engine.
type Config struct {
	LookBack int                // Window length used when the model does not declare one
	Policy   CarryForwardPolicy // Defaults to Frozen
}

// Engine runs the rollout. It keeps no state between calls and is safe for
// concurrent use as long as the predictors it is given are.
type Engine struct {
	cfg    Config
	logger ports.Logger
}

// New creates a new Engine instance.
func New(cfg Config, logger ports.Logger) (*Engine, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for forecast engine")
	}
	if cfg.LookBack == 0 {
		cfg.LookBack = DefaultLookBack
	}
	if cfg.LookBack < 1 {
		return nil, fmt.Errorf("look-back must be positive, got %d", cfg.LookBack)
	}
	if cfg.Policy == nil {
		cfg.Policy = Frozen{}
	}
	return &Engine{cfg: cfg, logger: logger}, nil
}

// LookBack returns the window length used for model, falling back to the engine default.
func (e *Engine) LookBack(model *ports.Model) int {
	if model != nil && model.LookBack > 0 {
		return model.LookBack
	}
	return e.cfg.LookBack
}

// Forecast predicts horizon days past the last row of history.
// Either exactly horizon points are returned or an error, never a partial result.
func (e *Engine) Forecast(ctx context.Context, history []domain.PricePoint, model *ports.Model, horizon int) ([]domain.ForecastPoint, error) {
	if model == nil || model.Predictor == nil || model.Scaler == nil {
		return nil, fmt.Errorf("forecast requires a predictor and a scaler: %w", ports.ErrInvalidRequest)
	}
	if horizon < 1 {
		return nil, fmt.Errorf("horizon %d: %w", horizon, ports.ErrInvalidHorizon)
	}
	lookBack := e.LookBack(model)
	if len(history) < lookBack {
		return nil, fmt.Errorf("have %d rows, need %d: %w", len(history), lookBack, ports.ErrInsufficientHistory)
	}

	window := e.initialWindow(history[len(history)-lookBack:], model.Scaler)
	lastDate := history[len(history)-1].Timestamp

	points := make([]domain.ForecastPoint, 0, horizon)
	for step := 1; step <= horizon; step++ {
		predScaled, err := model.Predictor.Predict(window.Rows())
		if err != nil {
			return nil, fmt.Errorf("day %d: %w: %w", step, ports.ErrPredictorInvocation, err)
		}
		if math.IsNaN(predScaled) || math.IsInf(predScaled, 0) {
			return nil, fmt.Errorf("day %d: non-finite output %v: %w", step, predScaled, ports.ErrPredictorInvocation)
		}

		price := model.Scaler.InvertField(domain.FieldAdjClose, predScaled)
		points = append(points, domain.ForecastPoint{
			Date:              lastDate.Add(time.Duration(step) * day),
			PredictedAdjClose: price,
		})

		e.logger.Debug(ctx, "Forecast step", map[string]interface{}{
			"symbol":     model.Symbol,
			"day":        step,
			"predScaled": predScaled,
			"price":      price,
		})

		window.Slide(e.cfg.Policy.Next(window.Rows(), predScaled))
	}

	return points, nil
}

// initialWindow scales the tail of history row by row.
func (e *Engine) initialWindow(tail []domain.PricePoint, scaler ports.Scaler) *Window {
	rows := make([]domain.FeatureVector, len(tail))
	for i, p := range tail {
		rows[i] = scaler.Transform(p.Features())
	}
	return &Window{rows: rows}
}
