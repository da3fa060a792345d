package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordForecast("BTC-USD", 5, 20*time.Millisecond, nil)
	r.RecordForecast("BTC-USD", 5, 10*time.Millisecond, errors.New("boom"))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.forecasts.WithLabelValues("BTC-USD", "5")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.forecastErrors.WithLabelValues("BTC-USD")))

	r.RecordPredictedPrice("BTC-USD", 42000.5)
	assert.Equal(t, 42000.5, testutil.ToFloat64(r.predictedPrice.WithLabelValues("BTC-USD")))

	r.RecordModelLoad("BTC-USD", false, nil)
	r.RecordModelLoad("BTC-USD", true, nil)
	r.RecordModelLoad("BTC-USD", true, nil)
	r.RecordModelLoad("BTC-USD", false, errors.New("bad file"))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.modelLoads.WithLabelValues("BTC-USD", "loaded")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.modelLoads.WithLabelValues("BTC-USD", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.modelLoads.WithLabelValues("BTC-USD", "error")))

	r.RecordSync("ETH-USD", 12, nil)
	r.RecordSync("ETH-USD", 0, errors.New("exchange down"))
	assert.Equal(t, 12.0, testutil.ToFloat64(r.syncRows.WithLabelValues("ETH-USD")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.syncErrors.WithLabelValues("ETH-USD")))

	r.RecordHTTPRequest("/api/v1/forecast/:symbol", "GET", 200, time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(r.httpRequests.WithLabelValues("/api/v1/forecast/:symbol", "GET", "200")))
}

func TestNew_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
