package service

import (
	"context"
	"errors"
	"fmt"

	"exchange-rate-viewer/internal/domain/model"
	"exchange-rate-viewer/internal/domain/ports"
	"exchange-rate-viewer/internal/metrics"
	"exchange-rate-viewer/pkg/logger"

	"golang.org/x/sync/singleflight"
)

var (
	ErrMissingCurrency    = errors.New("missing currency")
	ErrRateLimited        = errors.New("upstream rate limit exceeded")
	ErrRateNotFound       = errors.New("exchange rate not found")
	ErrUpstreamRejected   = errors.New("upstream rejected request")
	ErrExternalAPIFailure = errors.New("external API failure")
)

type ExchangeService struct {
	repository ports.RateRepository
	cache      ports.RateCache
	metrics    *metrics.Metrics
	log        *logger.Logger
	inflight   singleflight.Group
}

func NewExchangeService(repository ports.RateRepository, cache ports.RateCache, metrics *metrics.Metrics, log *logger.Logger) *ExchangeService {
	return &ExchangeService{
		repository: repository,
		cache:      cache,
		metrics:    metrics,
		log:        log,
	}
}

func (s *ExchangeService) GetLatestRate(ctx context.Context, currency string) (*model.LatestRate, error) {
	code := model.NormalizeCode(currency)
	if code == "" {
		return nil, ErrMissingCurrency
	}

	if rate, found := s.cache.GetLatest(ctx, code); found {
		s.recordLookup(model.KindLatest, "hit")
		s.log.Info("Exchange rate found in cache", "currency", code)
		return rate, nil
	}
	s.recordLookup(model.KindLatest, "miss")

	v, shared, err := s.await(ctx, flightKey(model.KindLatest, code), func(ctx context.Context) (interface{}, error) {
		s.log.Info("Fetching exchange rate from upstream", "currency", code)
		rate, err := s.repository.FetchLatestRate(ctx, code)
		s.recordUpstream(model.KindLatest, err)
		if err != nil {
			return nil, err
		}

		if err := s.cache.SetLatest(ctx, rate); err != nil {
			s.log.Error("Failed to cache exchange rate", "error", err, "currency", code)
		}
		return rate, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			s.log.Warn("Caller gave up waiting for exchange rate", "error", err, "currency", code)
			return nil, err
		}
		s.log.Error("Failed to fetch exchange rate", "error", err, "currency", code, "shared", shared)
		return nil, classify(err)
	}

	return v.(*model.LatestRate), nil
}

func (s *ExchangeService) GetHistoricalRates(ctx context.Context, currency string) (*model.HistoricalSeries, error) {
	code := model.NormalizeCode(currency)
	if code == "" {
		return nil, ErrMissingCurrency
	}

	if series, found := s.cache.GetHistorical(ctx, code); found {
		s.recordLookup(model.KindHistorical, "hit")
		s.log.Info("Historical rates found in cache", "currency", code, "points", len(series.Rates))
		return series, nil
	}
	s.recordLookup(model.KindHistorical, "miss")

	v, shared, err := s.await(ctx, flightKey(model.KindHistorical, code), func(ctx context.Context) (interface{}, error) {
		s.log.Info("Fetching historical rates from upstream", "currency", code)
		series, err := s.repository.FetchHistoricalRates(ctx, code)
		s.recordUpstream(model.KindHistorical, err)
		if err != nil {
			return nil, err
		}

		if err := s.cache.SetHistorical(ctx, series); err != nil {
			s.log.Error("Failed to cache historical rates", "error", err, "currency", code)
		}
		return series, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			s.log.Warn("Caller gave up waiting for historical rates", "error", err, "currency", code)
			return nil, err
		}
		s.log.Error("Failed to fetch historical rates", "error", err, "currency", code, "shared", shared)
		return nil, classify(err)
	}

	// Callers that shared the flight must not share the slice.
	series := v.(*model.HistoricalSeries).Clone()
	return &series, nil
}

func (s *ExchangeService) ClearExpired(ctx context.Context) error {
	if err := s.cache.ClearExpired(ctx); err != nil {
		s.log.Error("Failed to clear expired cache entries", "error", err)
		return err
	}
	return nil
}

// classify maps repository errors onto the service's sentinel errors.
// Provider messages stay reachable through errors.As on *ports.UpstreamError.
func classify(err error) error {
	var upstreamErr *ports.UpstreamError

	switch {
	case errors.Is(err, ports.ErrUpstreamRateLimited):
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	case errors.Is(err, ports.ErrUpstreamNoData):
		return fmt.Errorf("%w: %v", ErrRateNotFound, err)
	case errors.As(err, &upstreamErr):
		return fmt.Errorf("%w: %w", ErrUpstreamRejected, upstreamErr)
	default:
		return fmt.Errorf("%w: %v", ErrExternalAPIFailure, err)
	}
}

// await joins the shared upstream call for key. The call runs detached from
// any single caller, bounded by the repository client's timeout, while each
// caller stops waiting when its own ctx ends.
func (s *ExchangeService) await(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	flight := context.WithoutCancel(ctx)
	ch := s.inflight.DoChan(key, func() (interface{}, error) {
		return fn(flight)
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		return res.Val, res.Shared, res.Err
	}
}

func flightKey(kind model.Kind, code model.CurrencyCode) string {
	return kind.String() + ":" + code.String()
}

func (s *ExchangeService) recordLookup(kind model.Kind, result string) {
	if s.metrics == nil {
		return
	}
	s.metrics.CacheLookupsTotal.WithLabelValues(kind.String(), result).Inc()
}

func (s *ExchangeService) recordUpstream(kind model.Kind, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	s.metrics.UpstreamRequestsTotal.WithLabelValues(kind.String(), outcome).Inc()
}
