package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"cryptoForecast/internal/adapters/csvdata"
	"cryptoForecast/internal/domain"
)

// ForecastService is what the handlers need from the application layer.
type ForecastService interface {
	Symbols(ctx context.Context) ([]string, error)
	History(ctx context.Context, symbol string, days int) ([]domain.HistoryPoint, error)
	Dashboard(ctx context.Context, symbol string, days, horizon int) (*domain.Dashboard, error)
	ForecastRows(ctx context.Context, symbol string, horizon int) ([]domain.ForecastRow, error)
}

// HistoryQuery is the query string of GET /history/:symbol.
// Days is nil when absent so the service default applies; an explicit value must be in range.
type HistoryQuery struct {
	Days *int `form:"days" validate:"omitempty,min=30,max=180"`
}

// ForecastQuery is the query string of GET /forecast/:symbol.
type ForecastQuery struct {
	Days    *int `form:"days" validate:"omitempty,min=30,max=180"`
	Horizon int  `form:"horizon" default:"1" validate:"min=1"`
}

// ExportQuery is the query string of GET /forecast/:symbol/csv.
type ExportQuery struct {
	Horizon int `form:"horizon" default:"1" validate:"min=1"`
}

// ForecastHandler serves symbols, history, dashboards and CSV exports.
type ForecastHandler struct {
	svc ForecastService
}

// NewForecastHandler creates a new forecast handler
func NewForecastHandler(svc ForecastService) *ForecastHandler {
	return &ForecastHandler{svc: svc}
}

// ListSymbols handles GET /api/v1/symbols
func (h *ForecastHandler) ListSymbols(c *gin.Context) {
	symbols, err := h.svc.Symbols(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbols": symbols, "count": len(symbols)})
}

// GetHistory handles GET /api/v1/history/:symbol
func (h *ForecastHandler) GetHistory(c *gin.Context) {
	var q HistoryQuery
	if errs := bindQuery(c, &q); errs != nil {
		writeValidationErrors(c, errs)
		return
	}
	symbol := c.Param("symbol")
	history, err := h.svc.History(c.Request.Context(), symbol, valueOrZero(q.Days))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "history": history, "count": len(history)})
}

// GetForecast handles GET /api/v1/forecast/:symbol
func (h *ForecastHandler) GetForecast(c *gin.Context) {
	var q ForecastQuery
	if errs := bindQuery(c, &q); errs != nil {
		writeValidationErrors(c, errs)
		return
	}
	dashboard, err := h.svc.Dashboard(c.Request.Context(), c.Param("symbol"), valueOrZero(q.Days), q.Horizon)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

// DownloadForecast handles GET /api/v1/forecast/:symbol/csv
func (h *ForecastHandler) DownloadForecast(c *gin.Context) {
	var q ExportQuery
	if errs := bindQuery(c, &q); errs != nil {
		writeValidationErrors(c, errs)
		return
	}
	symbol := c.Param("symbol")
	rows, err := h.svc.ForecastRows(c.Request.Context(), symbol, q.Horizon)
	if err != nil {
		writeError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := csvdata.WriteForecast(&buf, rows); err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", csvdata.ForecastFileName(symbol, q.Horizon)))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func valueOrZero(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
