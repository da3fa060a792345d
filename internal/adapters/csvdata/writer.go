package csvdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"cryptoForecast/internal/domain"
)

// ForecastHeader is the column order of the forecast export.
var ForecastHeader = []string{"timestamp", "coin", "predicted_adjclose", "latest_adjclose", "expected_change_percent"}

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

// ForecastFileName returns the download name for a forecast, e.g. BTC-USD_forecast_5_days.csv.
func ForecastFileName(symbol string, horizon int) string {
	return fmt.Sprintf("%s_forecast_%d_days.csv", symbol, horizon)
}

// WriteForecast writes the forecast table with a header row.
func WriteForecast(w io.Writer, rows []domain.ForecastRow) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(ForecastHeader); err != nil {
		return err
	}
	times := make([]time.Time, len(rows))
	for i, r := range rows {
		times[i] = r.Timestamp
	}
	layout := TimestampLayout(times)
	for _, r := range rows {
		err := writer.Write([]string{
			r.Timestamp.Format(layout),
			r.Coin,
			FormatFloat(r.PredictedAdjClose),
			FormatFloat(r.LatestAdjClose),
			FormatFloat(r.ExpectedChangePercent),
		})
		if err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteForecastFile writes the forecast table to path.
func WriteForecastFile(path string, rows []domain.ForecastRow) error {
	return writeFile(path, func(w io.Writer) error { return WriteForecast(w, rows) })
}

// WritePricePoints writes history in the layout Provider reads back.
func WritePricePoints(w io.Writer, points []domain.PricePoint) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(requiredColumns); err != nil {
		return err
	}
	times := make([]time.Time, len(points))
	for i, p := range points {
		times[i] = p.Timestamp
	}
	layout := TimestampLayout(times)
	for _, p := range points {
		err := writer.Write([]string{
			p.Timestamp.Format(layout),
			p.Symbol,
			FormatFloat(p.Open),
			FormatFloat(p.High),
			FormatFloat(p.Low),
			FormatFloat(p.Close),
			FormatFloat(p.AdjClose),
			FormatFloat(p.Volume),
		})
		if err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WritePricePointsFile writes history to path.
func WritePricePointsFile(path string, points []domain.PricePoint) error {
	return writeFile(path, func(w io.Writer) error { return WritePricePoints(w, points) })
}

func writeFile(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// TimestampLayout picks a date-only layout when every timestamp falls on midnight.
func TimestampLayout(times []time.Time) string {
	for _, t := range times {
		if t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0 {
			return dateTimeLayout
		}
	}
	return dateLayout
}

// FormatFloat renders v the way Python prints floats: shortest round-trip
// digits, fixed notation for exponents in [-4, 16), a trailing ".0" on
// integral values, scientific notation otherwise. NaN renders empty.
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return ""
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case v == 0:
		if math.Signbit(v) {
			return "-0.0"
		}
		return "0.0"
	}

	sci := strconv.FormatFloat(v, 'e', -1, 64)
	exp, err := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if err != nil || exp < -4 || exp >= 16 {
		return sci
	}
	fixed := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsRune(fixed, '.') {
		fixed += ".0"
	}
	return fixed
}
