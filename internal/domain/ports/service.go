package ports

import (
	"context"

	"exchange-rate-viewer/internal/domain/model"
)

type ExchangeService interface {
	GetLatestRate(ctx context.Context, currency string) (*model.LatestRate, error)
	GetHistoricalRates(ctx context.Context, currency string) (*model.HistoricalSeries, error)
	ClearExpired(ctx context.Context) error
}
