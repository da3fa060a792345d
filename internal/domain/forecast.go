package domain

import "time"

// ForecastPoint is one predicted day produced by the rollout.
type ForecastPoint struct {
	Date              time.Time `json:"date"`
	PredictedAdjClose float64   `json:"predicted_adjclose"`
}

// ForecastRow is one line of the downloadable forecast table.
type ForecastRow struct {
	Timestamp             time.Time
	Coin                  string
	PredictedAdjClose     float64
	LatestAdjClose        float64
	ExpectedChangePercent float64
}

// ExpectedChangePercent returns the relative move from latest to predicted, in percent.
func ExpectedChangePercent(latest, predicted float64) float64 {
	return (predicted - latest) / latest * 100
}

// ForecastRows builds the export table for a finished forecast.
func ForecastRows(coin string, latest float64, points []ForecastPoint) []ForecastRow {
	rows := make([]ForecastRow, 0, len(points))
	for _, p := range points {
		rows = append(rows, ForecastRow{
			Timestamp:             p.Date,
			Coin:                  coin,
			PredictedAdjClose:     p.PredictedAdjClose,
			LatestAdjClose:        latest,
			ExpectedChangePercent: ExpectedChangePercent(latest, p.PredictedAdjClose),
		})
	}
	return rows
}
