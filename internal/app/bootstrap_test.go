package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoForecast/config"
	"cryptoForecast/internal/adapters/csvdata"
	"cryptoForecast/internal/domain"
	"cryptoForecast/internal/ports"
)

// stepModel predicts the newest adjclose in the window plus step.
func stepModel(lookBack int, step float64) string {
	rows := make([]string, lookBack*domain.NumFeatures)
	for i := range rows {
		rows[i] = "[0]"
	}
	rows[(lookBack-1)*domain.NumFeatures+int(domain.FieldAdjClose)] = "[1]"
	return fmt.Sprintf(`{"look_back": %d, "layers": [{"type": "flatten"}, {"type": "dense", "kernel": [%s], "bias": [%v]}]}`,
		lookBack, strings.Join(rows, ","), step)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	modelDir := filepath.Join(dir, "save_models")
	require.NoError(t, os.MkdirAll(modelDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(modelDir, "lstm_BTC-USD.json"), []byte(stepModel(5, 2)), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(modelDir, "scaler_BTC-USD.json"), []byte(`{"kind": "identity"}`), 0o644))

	dataFile := filepath.Join(dir, "prices.csv")
	points := append(makeHistory("BTC-USD", 100), makeHistory("ETH-USD", 40)...)
	require.NoError(t, csvdata.WritePricePointsFile(dataFile, points))

	return &config.Config{
		ModelDir:           modelDir,
		DataFile:           dataFile,
		DatasetSource:      config.SourceCSV,
		LookBack:           60,
		MaxHorizon:         5,
		DefaultDisplayDays: 60,
		CarryPolicy:        "frozen",
	}
}

func TestBootstrap_CSVEndToEnd(t *testing.T) {
	ctx := context.Background()
	components, err := Bootstrap(ctx, testConfig(t), &mockLogger{}, ports.NoopMetrics{})
	require.NoError(t, err)
	defer components.Close()

	assert.Nil(t, components.Repo)
	assert.Nil(t, components.Exchange)

	symbols, err := components.Service.Symbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"BTC-USD"}, symbols)

	dash, err := components.Service.Dashboard(ctx, "BTC-USD", 0, 3)
	require.NoError(t, err)
	assert.Equal(t, 199.0, dash.LatestAdjClose)
	assert.InDelta(t, 201.0, dash.PredictedNextClose, 1e-9)
	assert.InDelta(t, 2.0/199.0*100, dash.ExpectedChangePercent, 1e-9)
	assert.Len(t, dash.History, 60)
	require.Len(t, dash.Forecast, 3)
	assert.InDelta(t, 205.0, dash.Forecast[2].PredictedAdjClose, 1e-9)
	assert.Equal(t, start.AddDate(0, 0, 102), dash.Forecast[2].Date)

	_, err = components.Service.Dashboard(ctx, "ETH-USD", 0, 1)
	assert.ErrorIs(t, err, ports.ErrScalerNotFound)
}

func TestBootstrap_Errors(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig(t)
	cfg.CarryPolicy = "linear"
	_, err := Bootstrap(ctx, cfg, &mockLogger{}, ports.NoopMetrics{})
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.ModelDir = ""
	_, err = Bootstrap(ctx, cfg, &mockLogger{}, ports.NoopMetrics{})
	assert.Error(t, err)
}

func TestBootstrap_SQLiteSource(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.DatasetSource = config.SourceSQLite
	cfg.DBPath = filepath.Join(t.TempDir(), "prices.db")

	components, err := Bootstrap(ctx, cfg, &mockLogger{}, ports.NoopMetrics{})
	require.NoError(t, err)
	defer components.Close()

	require.NotNil(t, components.Repo)
	require.NotNil(t, components.Exchange)

	_, err = components.Repo.SavePricePoints(ctx, "BTC-USD", makeHistory("BTC-USD", 10))
	require.NoError(t, err)

	rows, err := components.Service.ForecastRows(ctx, "BTC-USD", 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.InDelta(t, 111.0, rows[0].PredictedAdjClose, 1e-9)
	assert.Equal(t, 109.0, rows[0].LatestAdjClose)
}
