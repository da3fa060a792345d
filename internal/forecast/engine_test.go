package forecast

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoForecast/internal/domain"
	"cryptoForecast/internal/ports"
	"cryptoForecast/internal/scaler"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct {
	debugMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.debugMsgs = append(m.debugMsgs, msg)
}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// constPredictor always returns the same scaled value.
type constPredictor struct {
	value float64
	err   error
}

func (p *constPredictor) Predict(window []domain.FeatureVector) (float64, error) {
	return p.value, p.err
}

// recordingPredictor returns the scaled adjclose of the newest row plus step and
// keeps a copy of every window it was shown.
type recordingPredictor struct {
	step    float64
	windows [][]domain.FeatureVector
}

func (p *recordingPredictor) Predict(window []domain.FeatureVector) (float64, error) {
	seen := make([]domain.FeatureVector, len(window))
	copy(seen, window)
	p.windows = append(p.windows, seen)
	return window[len(window)-1][domain.FieldAdjClose] + p.step, nil
}

var historyStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// makeHistory creates n daily rows with adjclose spread evenly over [0,1].
func makeHistory(n int) []domain.PricePoint {
	points := make([]domain.PricePoint, n)
	for i := range points {
		v := float64(i) / float64(n-1)
		points[i] = domain.PricePoint{
			Timestamp: historyStart.AddDate(0, 0, i),
			Symbol:    "BTC-USD",
			Open:      v,
			High:      v + 0.01,
			Low:       v - 0.01,
			Close:     v,
			AdjClose:  v,
			Volume:    1000 + float64(i),
		}
	}
	return points
}

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	engine, err := New(cfg, &mockLogger{})
	require.NoError(t, err)
	return engine
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.Error(t, err)

	_, err = New(Config{LookBack: -1}, &mockLogger{})
	assert.Error(t, err)

	engine, err := New(Config{}, &mockLogger{})
	require.NoError(t, err)
	assert.Equal(t, DefaultLookBack, engine.LookBack(nil))
	assert.Equal(t, PolicyFrozen, engine.cfg.Policy.Name())
}

func TestForecast_IdentityScalerConstantPredictor(t *testing.T) {
	engine := newTestEngine(t, Config{LookBack: 60})
	history := makeHistory(60)
	model := &ports.Model{Symbol: "BTC-USD", Predictor: &constPredictor{value: 0.5}, Scaler: scaler.Identity{}}

	points, err := engine.Forecast(context.Background(), history, model, 3)
	require.NoError(t, err)
	require.Len(t, points, 3)

	last := history[len(history)-1].Timestamp
	for i, p := range points {
		assert.Equal(t, 0.5, p.PredictedAdjClose)
		assert.Equal(t, last.Add(time.Duration(i+1)*24*time.Hour), p.Date)
	}
}

func TestForecast_HorizonCardinalityAndDates(t *testing.T) {
	engine := newTestEngine(t, Config{LookBack: 60})
	history := makeHistory(90)
	model := &ports.Model{Predictor: &recordingPredictor{step: 0.01}, Scaler: scaler.Identity{}}
	last := history[len(history)-1].Timestamp

	for horizon := 1; horizon <= 7; horizon++ {
		points, err := engine.Forecast(context.Background(), history, model, horizon)
		require.NoError(t, err)
		require.Len(t, points, horizon)
		for i, p := range points {
			assert.True(t, p.Date.Equal(last.AddDate(0, 0, i+1)), "day %d dated %s", i+1, p.Date)
		}
	}
}

func TestForecast_Deterministic(t *testing.T) {
	engine := newTestEngine(t, Config{})
	history := makeHistory(120)
	mm, err := scaler.NewMinMax(
		domain.FeatureVector{-0.01, 0, -0.01, 0, 0, 1000},
		domain.FeatureVector{1, 1.01, 1, 1, 1, 1119},
		0, 1,
	)
	require.NoError(t, err)

	run := func() []domain.ForecastPoint {
		model := &ports.Model{Predictor: &recordingPredictor{step: 0.013}, Scaler: mm}
		points, err := engine.Forecast(context.Background(), history, model, 5)
		require.NoError(t, err)
		return points
	}

	assert.Equal(t, run(), run())
}

func TestForecast_WindowInvariantAndSlide(t *testing.T) {
	const lookBack = 10
	engine := newTestEngine(t, Config{LookBack: lookBack})
	history := makeHistory(25)
	predictor := &recordingPredictor{step: 0.1}
	model := &ports.Model{Predictor: predictor, Scaler: scaler.Identity{}}

	points, err := engine.Forecast(context.Background(), history, model, 4)
	require.NoError(t, err)
	require.Len(t, points, 4)
	require.Len(t, predictor.windows, 4)

	// Initial window is the tail of history
	first := predictor.windows[0]
	for i, row := range first {
		assert.Equal(t, history[len(history)-lookBack+i].Features(), row)
	}

	lastObserved := history[len(history)-1].Features()
	for step, window := range predictor.windows {
		assert.Len(t, window, lookBack, "step %d", step)
		if step == 0 {
			continue
		}
		prev := predictor.windows[step-1]
		// Oldest row dropped, everything else shifted by one
		assert.Equal(t, prev[1:], window[:lookBack-1])

		appended := window[lookBack-1]
		assert.InDelta(t, points[step-1].PredictedAdjClose, appended[domain.FieldAdjClose], 1e-12)
		// Non-target fields stay frozen at the last observed values
		for _, f := range []domain.Field{domain.FieldOpen, domain.FieldHigh, domain.FieldLow, domain.FieldClose, domain.FieldVolume} {
			assert.Equal(t, lastObserved[f], appended[f])
		}
	}
}

func TestForecast_FrozenFeatureProperty(t *testing.T) {
	engine := newTestEngine(t, Config{})
	history := makeHistory(80)
	mm, err := scaler.NewMinMax(
		domain.FeatureVector{0, 0, 0, 0, 20000, 0},
		domain.FeatureVector{1, 1, 1, 1, 70000, 5000},
		0, 1,
	)
	require.NoError(t, err)
	model := &ports.Model{Predictor: &constPredictor{value: 0.42}, Scaler: mm}

	points, err := engine.Forecast(context.Background(), history, model, 5)
	require.NoError(t, err)
	require.Len(t, points, 5)

	want := 20000 + 0.42*50000
	for _, p := range points {
		assert.InDelta(t, want, p.PredictedAdjClose, 1e-6)
		assert.Equal(t, points[0].PredictedAdjClose, p.PredictedAdjClose)
	}
}

func TestForecast_ModelLookBackOverridesDefault(t *testing.T) {
	engine := newTestEngine(t, Config{LookBack: 60})
	predictor := &recordingPredictor{}
	model := &ports.Model{Predictor: predictor, Scaler: scaler.Identity{}, LookBack: 30}

	_, err := engine.Forecast(context.Background(), makeHistory(30), model, 2)
	require.NoError(t, err)
	for _, w := range predictor.windows {
		assert.Len(t, w, 30)
	}
}

func TestForecast_Errors(t *testing.T) {
	engine := newTestEngine(t, Config{LookBack: 60})
	boom := errors.New("boom")

	tests := []struct {
		name    string
		history []domain.PricePoint
		model   *ports.Model
		horizon int
		wantErr error
	}{
		{
			name:    "history one row short",
			history: makeHistory(59),
			model:   &ports.Model{Predictor: &constPredictor{value: 0.5}, Scaler: scaler.Identity{}},
			horizon: 1,
			wantErr: ports.ErrInsufficientHistory,
		},
		{
			name:    "zero horizon",
			history: makeHistory(60),
			model:   &ports.Model{Predictor: &constPredictor{value: 0.5}, Scaler: scaler.Identity{}},
			horizon: 0,
			wantErr: ports.ErrInvalidHorizon,
		},
		{
			name:    "missing scaler",
			history: makeHistory(60),
			model:   &ports.Model{Predictor: &constPredictor{value: 0.5}},
			horizon: 1,
			wantErr: ports.ErrInvalidRequest,
		},
		{
			name:    "nil model",
			history: makeHistory(60),
			horizon: 1,
			wantErr: ports.ErrInvalidRequest,
		},
		{
			name:    "predictor fails",
			history: makeHistory(60),
			model:   &ports.Model{Predictor: &constPredictor{err: boom}, Scaler: scaler.Identity{}},
			horizon: 3,
			wantErr: ports.ErrPredictorInvocation,
		},
		{
			name:    "predictor returns NaN",
			history: makeHistory(60),
			model:   &ports.Model{Predictor: &constPredictor{value: math.NaN()}, Scaler: scaler.Identity{}},
			horizon: 3,
			wantErr: ports.ErrPredictorInvocation,
		},
		{
			name:    "predictor returns Inf",
			history: makeHistory(60),
			model:   &ports.Model{Predictor: &constPredictor{value: math.Inf(1)}, Scaler: scaler.Identity{}},
			horizon: 1,
			wantErr: ports.ErrPredictorInvocation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			points, err := engine.Forecast(context.Background(), tt.history, tt.model, tt.horizon)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, points)
		})
	}
}

func TestForecast_PredictorErrorIsWrapped(t *testing.T) {
	engine := newTestEngine(t, Config{LookBack: 60})
	boom := errors.New("tensor shape mismatch")
	model := &ports.Model{Predictor: &constPredictor{err: boom}, Scaler: scaler.Identity{}}

	_, err := engine.Forecast(context.Background(), makeHistory(60), model, 1)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, ports.ErrPredictorInvocation)
}

func TestForecast_LogsEachStep(t *testing.T) {
	logger := &mockLogger{}
	engine, err := New(Config{LookBack: 60}, logger)
	require.NoError(t, err)
	model := &ports.Model{Predictor: &constPredictor{value: 0.5}, Scaler: scaler.Identity{}}

	_, err = engine.Forecast(context.Background(), makeHistory(60), model, 4)
	require.NoError(t, err)
	assert.Len(t, logger.debugMsgs, 4)
}
