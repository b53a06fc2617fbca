package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"exchange-rate-viewer/internal/domain/model"
	"exchange-rate-viewer/internal/domain/ports"
	"exchange-rate-viewer/internal/metrics"
	"exchange-rate-viewer/internal/service"
	"exchange-rate-viewer/pkg/logger"
)

const (
	msgMissingCurrency = "Missing currency query parameter."
	msgRateLimited     = "Alpha Vantage API rate limit exceeded. Try later."
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type Handler struct {
	service ports.ExchangeService
	log     *logger.Logger
	metrics *metrics.Metrics
}

func NewHandler(service ports.ExchangeService, log *logger.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{
		service: service,
		log:     log,
		metrics: metrics,
	}
}

func (h *Handler) GetLatestRateHandler(w http.ResponseWriter, r *http.Request) {
	h.metrics.LatestRateRequestsTotal.Inc()

	currency := r.URL.Query().Get("currency")
	if currency == "" {
		h.sendErrorResponse(w, http.StatusBadRequest, msgMissingCurrency)
		return
	}

	rate, err := h.service.GetLatestRate(r.Context(), currency)
	if err != nil {
		h.handleServiceError(w, err, model.KindLatest, currency)
		return
	}

	h.sendJSON(w, http.StatusOK, rate)
}

func (h *Handler) GetHistoricalRateHandler(w http.ResponseWriter, r *http.Request) {
	h.metrics.HistoricalRateRequestsTotal.Inc()

	currency := r.URL.Query().Get("currency")
	if currency == "" {
		h.sendErrorResponse(w, http.StatusBadRequest, msgMissingCurrency)
		return
	}

	series, err := h.service.GetHistoricalRates(r.Context(), currency)
	if err != nil {
		h.handleServiceError(w, err, model.KindHistorical, currency)
		return
	}

	h.sendJSON(w, http.StatusOK, series)
}

func (h *Handler) sendJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error("Failed to encode response", "error", err)
	}
}

func (h *Handler) sendErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	h.sendJSON(w, statusCode, ErrorResponse{Error: message})
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error, kind model.Kind, currency string) {
	statusCode := http.StatusInternalServerError
	errorMessage := "Internal server error during data fetch."
	if kind == model.KindHistorical {
		errorMessage = "Internal server error during historical data fetch."
	}

	code := model.NormalizeCode(currency)
	var upstreamErr *ports.UpstreamError

	switch {
	case errors.Is(err, service.ErrMissingCurrency):
		statusCode = http.StatusBadRequest
		errorMessage = msgMissingCurrency
	case errors.Is(err, service.ErrRateLimited):
		statusCode = http.StatusTooManyRequests
		errorMessage = msgRateLimited
	case errors.Is(err, service.ErrRateNotFound):
		statusCode = http.StatusNotFound
		errorMessage = fmt.Sprintf("Currency code '%s' not found or invalid.", code)
		if kind == model.KindHistorical {
			errorMessage = fmt.Sprintf("Historical data for '%s' not found.", code)
		}
	case errors.As(err, &upstreamErr):
		statusCode = http.StatusBadRequest
		errorMessage = fmt.Sprintf("API request failed: %s", upstreamErr.Message)
	}

	h.log.Error("Service error", "error", err, "status_code", statusCode, "kind", kind)
	h.sendErrorResponse(w, statusCode, errorMessage)
}
