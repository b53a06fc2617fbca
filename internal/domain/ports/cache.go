package ports

import (
	"context"

	"exchange-rate-viewer/internal/domain/model"
)

// RateCache holds proxy-side copies of upstream answers, one store per Kind.
type RateCache interface {
	GetLatest(ctx context.Context, code model.CurrencyCode) (*model.LatestRate, bool)
	SetLatest(ctx context.Context, rate *model.LatestRate) error
	GetHistorical(ctx context.Context, code model.CurrencyCode) (*model.HistoricalSeries, bool)
	SetHistorical(ctx context.Context, series *model.HistoricalSeries) error
	ClearExpired(ctx context.Context) error
}
