package domain

import "time"

// HistoryPoint is a displayed historical row with its moving averages.
// MA7 and MA30 are nil until enough rows are available in the display window.
type HistoryPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	AdjClose  float64   `json:"adjclose"`
	Volume    float64   `json:"volume"`
	MA7       *float64  `json:"ma7"`
	MA30      *float64  `json:"ma30"`
}

// Dashboard is everything the presentation layer needs for one symbol.
type Dashboard struct {
	Symbol                string          `json:"symbol"`
	LatestAdjClose        float64         `json:"latest_adjclose"`
	PredictedNextClose    float64         `json:"predicted_next_close"`
	ExpectedChangePercent float64         `json:"expected_change_percent"`
	DisplayDays           int             `json:"display_days"`
	Horizon               int             `json:"horizon"`
	History               []HistoryPoint  `json:"history"`
	Forecast              []ForecastPoint `json:"forecast"`
}
