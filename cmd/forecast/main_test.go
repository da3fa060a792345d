package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoForecast/internal/adapters/csvdata"
	"cryptoForecast/internal/domain"
)

// setupEnv writes a 10-day BTC-USD dataset and a model that predicts the
// newest adjclose plus 2, and points the configuration at them.
func setupEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	modelDir := filepath.Join(dir, "save_models")
	require.NoError(t, os.MkdirAll(modelDir, 0o755))

	const lookBack = 5
	rows := make([]string, lookBack*domain.NumFeatures)
	for i := range rows {
		rows[i] = "[0]"
	}
	rows[(lookBack-1)*domain.NumFeatures+int(domain.FieldAdjClose)] = "[1]"
	model := fmt.Sprintf(`{"look_back": %d, "layers": [{"type": "flatten"}, {"type": "dense", "kernel": [%s], "bias": [2]}]}`,
		lookBack, strings.Join(rows, ","))
	require.NoError(t, os.WriteFile(filepath.Join(modelDir, "lstm_BTC-USD.json"), []byte(model), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(modelDir, "scaler_BTC-USD.json"), []byte(`{"kind": "identity"}`), 0o644))

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]domain.PricePoint, 10)
	for i := range points {
		v := 100 + float64(i)
		points[i] = domain.PricePoint{Timestamp: start.AddDate(0, 0, i), Symbol: "BTC-USD",
			Open: v, High: v, Low: v, Close: v, AdjClose: v, Volume: 1}
	}
	dataFile := filepath.Join(dir, "prices.csv")
	require.NoError(t, csvdata.WritePricePointsFile(dataFile, points))

	for _, k := range []string{
		"CONFIG_FILE", "SYNC_CRON", "LOOK_BACK", "MAX_HORIZON", "DEFAULT_DISPLAY_DAYS", "FORECAST_CARRY_POLICY",
		"FORECAST_DECAY_RATE", "API_PORT", "LOG_FORMAT", "BINANCE_HISTORY_DAYS", "BINANCE_REQUESTS_PER_SEC",
		"BINANCE_SYMBOL_MAP",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("DATASET_SOURCE", "csv")
	t.Setenv("MODEL_DIR", modelDir)
	t.Setenv("DATA_FILE", dataFile)
	t.Setenv("LOG_LEVEL", "error")
}

func TestRun_Stdout(t *testing.T) {
	setupEnv(t)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"--symbol", "BTC-USD", "--horizon", "2", "--out", "-"}, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "timestamp,coin,predicted_adjclose,latest_adjclose,expected_change_percent", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "2024-01-11,BTC-USD,111.0,109.0,"), lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "2024-01-12,BTC-USD,113.0,109.0,"), lines[2])
}

func TestRun_File(t *testing.T) {
	setupEnv(t)
	outDir := filepath.Join(t.TempDir(), "results")

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"--symbol", "BTC-USD", "--horizon", "3", "--out", outDir}, &out))

	path := filepath.Join(outDir, "BTC-USD_forecast_3_days.csv")
	assert.Equal(t, path, strings.TrimSpace(out.String()))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(string(data), "\n"))
}

func TestRun_List(t *testing.T) {
	setupEnv(t)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"--list"}, &out))
	assert.Equal(t, "BTC-USD\n", out.String())
}

func TestRun_Errors(t *testing.T) {
	setupEnv(t)
	ctx := context.Background()
	var out bytes.Buffer

	assert.ErrorIs(t, run(ctx, nil, &out), errUsage)
	assert.ErrorIs(t, run(ctx, []string{"--bogus"}, &out), errUsage)
	assert.Error(t, run(ctx, []string{"--symbol", "BTC-USD", "--horizon", "9"}, &out))
	assert.Error(t, run(ctx, []string{"--symbol", "ETH-USD"}, &out))
	assert.Empty(t, out.String())
}
