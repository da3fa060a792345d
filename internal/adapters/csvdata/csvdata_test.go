package csvdata

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoForecast/internal/domain"
	"cryptoForecast/internal/ports"
)

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func newProvider(t *testing.T, content string) *Provider {
	t.Helper()
	path := filepath.Join(t.TempDir(), "top5_crypto_data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	p, err := NewProvider(Config{Path: path}, &mockLogger{})
	require.NoError(t, err)
	return p
}

const dataset = `timestamp,open,high,low,close,adjclose,volume,symbol,ticker_name
2024-01-03,3,3,3,3,30,300,BTC-USD,Bitcoin
2024-01-01,1,1,1,1,10,100,BTC-USD,Bitcoin
2024-01-02,2,2,2,2,20,200,ETH-USD,Ethereum
2024-01-02,2,2,2,2,20,200,BTC-USD,Bitcoin
2024-01-02,9,9,9,9,90,900,BTC-USD,Bitcoin
`

func TestProvider_Load(t *testing.T) {
	p := newProvider(t, dataset)

	points, err := p.Load(context.Background(), "BTC-USD")
	require.NoError(t, err)
	require.Len(t, points, 4)

	var adj []float64
	for _, pt := range points {
		assert.Equal(t, "BTC-USD", pt.Symbol)
		adj = append(adj, pt.AdjClose)
	}
	// Sorted by date, duplicates keep file order.
	assert.Equal(t, []float64{10, 20, 90, 30}, adj)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), points[0].Timestamp)
	assert.Equal(t, domain.FeatureVector{1, 1, 1, 1, 10, 100}, points[0].Features())
}

func TestProvider_Errors(t *testing.T) {
	p := newProvider(t, dataset)
	_, err := p.Load(context.Background(), "DOGE-USD")
	assert.ErrorIs(t, err, ports.ErrNoDataForSymbol)

	missing, err := NewProvider(Config{Path: filepath.Join(t.TempDir(), "none.csv")}, &mockLogger{})
	require.NoError(t, err)
	_, err = missing.Load(context.Background(), "BTC-USD")
	assert.ErrorIs(t, err, ports.ErrDatasetNotFound)

	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{name: "empty", content: "", wantMsg: "empty"},
		{name: "missing column", content: "timestamp,symbol,open\n", wantMsg: "adjclose"},
		{
			name:    "bad number",
			content: "timestamp,symbol,open,high,low,close,adjclose,volume\n2024-01-01,BTC-USD,1,1,1,1,abc,1\n",
			wantMsg: "line 2",
		},
		{
			name:    "nan adjclose",
			content: "timestamp,symbol,open,high,low,close,adjclose,volume\n2024-01-01,BTC-USD,1,1,1,1,1,1\n2024-01-02,BTC-USD,1,1,1,1,NaN,1\n",
			wantMsg: "line 3",
		},
		{
			name:    "infinite volume",
			content: "timestamp,symbol,open,high,low,close,adjclose,volume\n2024-01-01,BTC-USD,1,1,1,1,1,+Inf\n",
			wantMsg: "non-finite volume",
		},
		{
			name:    "bad timestamp",
			content: "timestamp,symbol,open,high,low,close,adjclose,volume\n2024-01-01,BTC-USD,1,1,1,1,1,1\nyesterday,BTC-USD,1,1,1,1,1,1\n",
			wantMsg: "line 3",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newProvider(t, tt.content).Load(context.Background(), "BTC-USD")
			assert.ErrorIs(t, err, ports.ErrInvalidDataset)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}

	_, err = NewProvider(Config{}, &mockLogger{})
	assert.Error(t, err)
}

func TestProvider_Symbols(t *testing.T) {
	symbols, err := newProvider(t, dataset).Symbols(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"BTC-USD", "ETH-USD"}, symbols)
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"2024-03-01 12:30:00", time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)},
		{"2024-03-01 00:00:00+00:00", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"2024-03-01 02:00:00+02:00", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"2024-03-01T05:00:00Z", time.Date(2024, 3, 1, 5, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}

	_, err := ParseTimestamp("03/01/2024")
	assert.Error(t, err)
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0.5, "0.5"},
		{123, "123.0"},
		{-2.75, "-2.75"},
		{0, "0.0"},
		{0.0001, "0.0001"},
		{1.5e-05, "1.5e-05"},
		{1e16, "1e+16"},
		{1234567890123456, "1234567890123456.0"},
		{42000.123456789, "42000.123456789"},
		{0.1 + 0.2, "0.30000000000000004"},
		{math.NaN(), ""},
		{math.Inf(1), "inf"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatFloat(tt.in), "FormatFloat(%v)", tt.in)
	}
}

func TestWriteForecast(t *testing.T) {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	rows := domain.ForecastRows("BTC-USD", 100, []domain.ForecastPoint{
		{Date: day, PredictedAdjClose: 110},
		{Date: day.Add(24 * time.Hour), PredictedAdjClose: 99.5},
	})

	var buf bytes.Buffer
	require.NoError(t, WriteForecast(&buf, rows))
	assert.Equal(t, strings.Join([]string{
		"timestamp,coin,predicted_adjclose,latest_adjclose,expected_change_percent",
		"2024-01-02,BTC-USD,110.0,100.0,10.0",
		"2024-01-03,BTC-USD,99.5,100.0,-0.5",
		"",
	}, "\n"), buf.String())
}

func TestWriteForecast_IntradayTimestamps(t *testing.T) {
	rows := []domain.ForecastRow{
		{Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Coin: "ETH-USD", PredictedAdjClose: 1, LatestAdjClose: 1},
		{Timestamp: time.Date(2024, 1, 3, 6, 0, 0, 0, time.UTC), Coin: "ETH-USD", PredictedAdjClose: 1, LatestAdjClose: 1},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteForecast(&buf, rows))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "2024-01-02 00:00:00,"))
	assert.True(t, strings.HasPrefix(lines[2], "2024-01-03 06:00:00,"))
}

func TestWritePricePoints_RoundTrip(t *testing.T) {
	points := []domain.PricePoint{
		{Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Symbol: "SOL-USD", Open: 1, High: 2, Low: 0.5, Close: 1.5, AdjClose: 1.5, Volume: 1e6},
		{Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Symbol: "SOL-USD", Open: 1.5, High: 2.5, Low: 1, Close: 2, AdjClose: 2, Volume: 2e6},
	}
	path := filepath.Join(t.TempDir(), "history.csv")
	require.NoError(t, WritePricePointsFile(path, points))

	p, err := NewProvider(Config{Path: path}, &mockLogger{})
	require.NoError(t, err)
	loaded, err := p.Load(context.Background(), "SOL-USD")
	require.NoError(t, err)
	assert.Equal(t, points, loaded)
}

func TestForecastFileName(t *testing.T) {
	assert.Equal(t, "BTC-USD_forecast_5_days.csv", ForecastFileName("BTC-USD", 5))
}
