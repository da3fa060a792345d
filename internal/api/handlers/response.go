package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cryptoForecast/internal/ports"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

type errorMapping struct {
	target error
	status int
	code   string
}

// Most specific first; the first match wins.
var errorMappings = []errorMapping{
	{ports.ErrScalerNotFound, http.StatusNotFound, "SCALER_NOT_FOUND"},
	{ports.ErrModelNotFound, http.StatusNotFound, "MODEL_NOT_FOUND"},
	{ports.ErrDatasetNotFound, http.StatusNotFound, "DATASET_NOT_FOUND"},
	{ports.ErrNoDataForSymbol, http.StatusNotFound, "NO_DATA_FOR_SYMBOL"},
	{ports.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{ports.ErrInsufficientHistory, http.StatusUnprocessableEntity, "INSUFFICIENT_HISTORY"},
	{ports.ErrInvalidDataset, http.StatusUnprocessableEntity, "INVALID_DATASET"},
	{ports.ErrInvalidHorizon, http.StatusBadRequest, "INVALID_HORIZON"},
	{ports.ErrInvalidRequest, http.StatusBadRequest, "INVALID_REQUEST"},
	{ports.ErrPredictorInvocation, http.StatusBadGateway, "PREDICTOR_ERROR"},
	{ports.ErrExchangeUnavailable, http.StatusBadGateway, "EXCHANGE_UNAVAILABLE"},
	{ports.ErrConnectionFailed, http.StatusBadGateway, "EXCHANGE_UNAVAILABLE"},
	{ports.ErrRateLimited, http.StatusBadGateway, "EXCHANGE_RATE_LIMITED"},
	{ports.ErrInvalidModel, http.StatusInternalServerError, "INVALID_MODEL"},
}

// StatusFor maps a service error to an HTTP status and error code.
func StatusFor(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

func writeError(c *gin.Context, err error) {
	status, code := StatusFor(err)
	c.JSON(status, ErrorResponse{
		Error: ErrorDetail{Code: code, Message: err.Error()},
	})
}
