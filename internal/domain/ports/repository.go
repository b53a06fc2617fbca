package ports

import (
	"context"
	"errors"
	"fmt"

	"exchange-rate-viewer/internal/domain/model"
)

var (
	ErrUpstreamRateLimited = errors.New("upstream rate limit exceeded")
	ErrUpstreamNoData      = errors.New("upstream returned no rate data")
)

// UpstreamError carries an error message reported by the provider itself.
type UpstreamError struct {
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error: %s", e.Message)
}

type RateRepository interface {
	FetchLatestRate(ctx context.Context, code model.CurrencyCode) (*model.LatestRate, error)
	FetchHistoricalRates(ctx context.Context, code model.CurrencyCode) (*model.HistoricalSeries, error)
}
