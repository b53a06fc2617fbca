package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"exchange-rate-viewer/internal/domain/model"
	"exchange-rate-viewer/internal/domain/ports"
	"exchange-rate-viewer/pkg/logger"

	"github.com/shopspring/decimal"
)

const (
	realtimeRateKey  = "Realtime Currency Exchange Rate"
	timeSeriesMarker = "Time Series FX"

	historicalRateDecimals = 6
)

// Alpha Vantage reports problems inside a 200 response under one of these keys.
var upstreamMessageKeys = []string{"Error Message", "Note", "Information"}

var rateLimitPhrases = []string{"API call frequency", "25 requests per day"}

type AlphaVantage struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *logger.Logger
}

type realtimeRate struct {
	FromCurrencyCode string `json:"1. From_Currency Code"`
	ExchangeRate     string `json:"5. Exchange Rate"`
	LastRefreshed    string `json:"6. Last Refreshed"`
}

type dailyBar struct {
	Close string `json:"4. close"`
}

func NewAlphaVantage(baseURL, apiKey string, timeout time.Duration, log *logger.Logger) *AlphaVantage {
	return &AlphaVantage{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

func (a *AlphaVantage) FetchLatestRate(ctx context.Context, code model.CurrencyCode) (*model.LatestRate, error) {
	params := url.Values{}
	params.Set("function", "CURRENCY_EXCHANGE_RATE")
	params.Set("from_currency", code.String())
	params.Set("to_currency", model.USD.String())

	payload, err := a.query(ctx, params)
	if err != nil {
		return nil, err
	}

	raw, ok := payload[realtimeRateKey]
	if !ok || isNull(raw) {
		return nil, fmt.Errorf("%w: %s", ports.ErrUpstreamNoData, code)
	}

	var rate realtimeRate
	if err := json.Unmarshal(raw, &rate); err != nil {
		return nil, fmt.Errorf("failed to decode exchange rate: %w", err)
	}

	return &model.LatestRate{
		CurrencyCode:  model.CurrencyCode(rate.FromCurrencyCode),
		USDRate:       rate.ExchangeRate,
		LastRefreshed: rate.LastRefreshed,
	}, nil
}

func (a *AlphaVantage) FetchHistoricalRates(ctx context.Context, code model.CurrencyCode) (*model.HistoricalSeries, error) {
	params := url.Values{}
	params.Set("function", "FX_DAILY")
	params.Set("from_symbol", code.String())
	params.Set("to_symbol", model.USD.String())
	params.Set("outputsize", "full")

	payload, err := a.query(ctx, params)
	if err != nil {
		return nil, err
	}

	raw, ok := findTimeSeries(payload)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ports.ErrUpstreamNoData, code)
	}

	rates, err := decodeTimeSeries(raw)
	if err != nil {
		return nil, err
	}

	return &model.HistoricalSeries{
		CurrencyCode: code,
		Rates:        rates,
	}, nil
}

func (a *AlphaVantage) query(ctx context.Context, params url.Values) (map[string]json.RawMessage, error) {
	function := params.Get("function")
	a.log.Debug("Querying upstream provider", "function", function, "query", params.Encode())

	params.Set("apikey", a.apiKey)
	endpoint := fmt.Sprintf("%s/query?%s", a.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned non-OK status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if err := upstreamError(payload); err != nil {
		a.log.Warn("Upstream provider reported an error", "function", function, "error", err)
		return nil, err
	}

	return payload, nil
}

// upstreamError looks at the first message key present. Rate-limit notices are
// recognised by phrase since the provider uses no error codes.
func upstreamError(payload map[string]json.RawMessage) error {
	for _, key := range upstreamMessageKeys {
		raw, ok := payload[key]
		if !ok {
			continue
		}

		var message string
		if err := json.Unmarshal(raw, &message); err != nil || message == "" {
			continue
		}

		if isRateLimit(message) {
			return fmt.Errorf("%w: %s", ports.ErrUpstreamRateLimited, message)
		}
		return &ports.UpstreamError{Message: message}
	}
	return nil
}

func isRateLimit(message string) bool {
	for _, phrase := range rateLimitPhrases {
		if strings.Contains(message, phrase) {
			return true
		}
	}
	return false
}

func findTimeSeries(payload map[string]json.RawMessage) (json.RawMessage, bool) {
	for key, raw := range payload {
		if strings.Contains(key, timeSeriesMarker) && !isNull(raw) {
			return raw, true
		}
	}
	return nil, false
}

// decodeTimeSeries walks the object token by token so the points keep the
// order the provider sent them in.
func decodeTimeSeries(raw json.RawMessage) ([]model.HistoricalRatePoint, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to decode time series: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("failed to decode time series: expected object, got %v", tok)
	}

	rates := make([]model.HistoricalRatePoint, 0)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to decode time series: %w", err)
		}
		date, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("failed to decode time series: unexpected key %v", tok)
		}

		var bar dailyBar
		if err := dec.Decode(&bar); err != nil {
			return nil, fmt.Errorf("failed to decode bar for %s: %w", date, err)
		}

		rate, err := formatRate(bar.Close)
		if err != nil {
			return nil, fmt.Errorf("invalid close for %s: %w", date, err)
		}

		rates = append(rates, model.HistoricalRatePoint{Date: date, Rate: rate})
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("failed to decode time series: %w", err)
	}

	return rates, nil
}

func formatRate(value string) (string, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return "", err
	}
	return d.StringFixed(historicalRateDecimals), nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
