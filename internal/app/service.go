// Package app wires datasets, trained models and the forecast engine into the
// operations the dashboard and CLI expose.
package app

import (
	"context"
	"fmt"
	"math"
	"time"

	"cryptoForecast/internal/domain"
	"cryptoForecast/internal/forecast"
	"cryptoForecast/internal/indicators"
	"cryptoForecast/internal/ports"
)

// Display window bounds in days.
const (
	MinDisplayDays     = 30
	MaxDisplayDays     = 180
	DefaultDisplayDays = 60
	DefaultMaxHorizon  = 5
)

var (
	ma7  = indicators.NewSMA(7)
	ma30 = indicators.NewSMA(30)
)

// Config holds service limits.
type Config struct {
	MaxHorizon         int
	DefaultDisplayDays int
}

// ForecastService answers dashboard, history and export requests for one symbol at a time.
type ForecastService struct {
	cfg     Config
	logger  ports.Logger
	data    ports.DatasetProvider
	models  ports.ModelStore
	engine  *forecast.Engine
	metrics ports.Metrics
}

// NewForecastService creates a new application service instance.
func NewForecastService(
	cfg Config,
	logger ports.Logger,
	data ports.DatasetProvider,
	models ports.ModelStore,
	engine *forecast.Engine,
	metrics ports.Metrics,
) (*ForecastService, error) {
	if logger == nil || data == nil || models == nil || engine == nil {
		return nil, fmt.Errorf("missing required dependencies for ForecastService")
	}
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	if cfg.MaxHorizon == 0 {
		cfg.MaxHorizon = DefaultMaxHorizon
	}
	if cfg.MaxHorizon < 1 {
		return nil, fmt.Errorf("configuration MaxHorizon must be positive")
	}
	if cfg.DefaultDisplayDays == 0 {
		cfg.DefaultDisplayDays = DefaultDisplayDays
	}
	if cfg.DefaultDisplayDays < MinDisplayDays || cfg.DefaultDisplayDays > MaxDisplayDays {
		return nil, fmt.Errorf("configuration DefaultDisplayDays must be between %d and %d", MinDisplayDays, MaxDisplayDays)
	}

	return &ForecastService{
		cfg:     cfg,
		logger:  logger,
		data:    data,
		models:  models,
		engine:  engine,
		metrics: metrics,
	}, nil
}

// MaxHorizon returns the largest accepted horizon.
func (s *ForecastService) MaxHorizon() int { return s.cfg.MaxHorizon }

// DefaultDisplayDays returns the display window used when none is requested.
func (s *ForecastService) DefaultDisplayDays() int { return s.cfg.DefaultDisplayDays }

// Symbols lists the symbols that have a trained model.
func (s *ForecastService) Symbols(ctx context.Context) ([]string, error) {
	return s.models.Symbols(ctx)
}

// History returns the last days rows of symbol with MA7 and MA30 computed over
// that display window. days == 0 selects the default window.
func (s *ForecastService) History(ctx context.Context, symbol string, days int) ([]domain.HistoryPoint, error) {
	days, err := s.displayDays(days)
	if err != nil {
		return nil, err
	}
	points, err := s.data.Load(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return buildHistory(tail(points, days))
}

// Dashboard produces the full report for symbol: headline metrics, the display
// window and a horizon-day forecast.
func (s *ForecastService) Dashboard(ctx context.Context, symbol string, days, horizon int) (*domain.Dashboard, error) {
	days, err := s.displayDays(days)
	if err != nil {
		return nil, err
	}
	points, latest, err := s.forecast(ctx, symbol, horizon)
	if err != nil {
		return nil, err
	}
	history, err := buildHistory(tail(latest.history, days))
	if err != nil {
		return nil, err
	}

	next := points[0].PredictedAdjClose
	return &domain.Dashboard{
		Symbol:                symbol,
		LatestAdjClose:        latest.adjClose,
		PredictedNextClose:    next,
		ExpectedChangePercent: domain.ExpectedChangePercent(latest.adjClose, next),
		DisplayDays:           days,
		Horizon:               horizon,
		History:               history,
		Forecast:              points,
	}, nil
}

// ForecastRows returns the downloadable table for a horizon-day forecast.
func (s *ForecastService) ForecastRows(ctx context.Context, symbol string, horizon int) ([]domain.ForecastRow, error) {
	points, latest, err := s.forecast(ctx, symbol, horizon)
	if err != nil {
		return nil, err
	}
	return domain.ForecastRows(symbol, latest.adjClose, points), nil
}

type latestState struct {
	history  []domain.PricePoint
	adjClose float64
}

func (s *ForecastService) forecast(ctx context.Context, symbol string, horizon int) (points []domain.ForecastPoint, latest latestState, err error) {
	if symbol == "" {
		return nil, latest, fmt.Errorf("%w: symbol is required", ports.ErrInvalidRequest)
	}
	if horizon < 1 || horizon > s.cfg.MaxHorizon {
		return nil, latest, fmt.Errorf("%w: horizon %d outside 1..%d", ports.ErrInvalidHorizon, horizon, s.cfg.MaxHorizon)
	}

	start := time.Now()
	defer func() {
		s.metrics.RecordForecast(symbol, horizon, time.Since(start), err)
	}()

	history, err := s.data.Load(ctx, symbol)
	if err != nil {
		return nil, latest, err
	}
	if len(history) > 0 && history[len(history)-1].AdjClose == 0 {
		// The expected change is relative to the latest close.
		return nil, latest, fmt.Errorf("%w: latest adjclose of %s is zero", ports.ErrInvalidDataset, symbol)
	}
	model, err := s.models.Get(ctx, symbol)
	if err != nil {
		return nil, latest, err
	}
	points, err = s.engine.Forecast(ctx, history, model, horizon)
	if err != nil {
		s.logger.Warn(ctx, "Forecast failed", map[string]interface{}{
			"symbol":  symbol,
			"horizon": horizon,
			"rows":    len(history),
			"error":   err.Error(),
		})
		return nil, latest, err
	}

	latest = latestState{history: history, adjClose: history[len(history)-1].AdjClose}
	s.metrics.RecordPredictedPrice(symbol, points[0].PredictedAdjClose)
	s.logger.Info(ctx, "Forecast generated", map[string]interface{}{
		"symbol":         symbol,
		"horizon":        horizon,
		"latestAdjClose": latest.adjClose,
		"predictedNext":  points[0].PredictedAdjClose,
	})
	return points, latest, nil
}

func (s *ForecastService) displayDays(days int) (int, error) {
	if days == 0 {
		return s.cfg.DefaultDisplayDays, nil
	}
	if days < MinDisplayDays || days > MaxDisplayDays {
		return 0, fmt.Errorf("%w: days %d outside %d..%d", ports.ErrInvalidRequest, days, MinDisplayDays, MaxDisplayDays)
	}
	return days, nil
}

func tail(points []domain.PricePoint, n int) []domain.PricePoint {
	if len(points) <= n {
		return points
	}
	return points[len(points)-n:]
}

func buildHistory(points []domain.PricePoint) ([]domain.HistoryPoint, error) {
	closes := make([]float64, len(points))
	for i, p := range points {
		closes[i] = p.AdjClose
	}
	short, err := ma7.Series(closes)
	if err != nil {
		return nil, err
	}
	long, err := ma30.Series(closes)
	if err != nil {
		return nil, err
	}

	out := make([]domain.HistoryPoint, len(points))
	for i, p := range points {
		out[i] = domain.HistoryPoint{
			Timestamp: p.Timestamp,
			Open:      p.Open,
			High:      p.High,
			Low:       p.Low,
			Close:     p.Close,
			AdjClose:  p.AdjClose,
			Volume:    p.Volume,
			MA7:       finite(short[i]),
			MA30:      finite(long[i]),
		}
	}
	return out, nil
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
