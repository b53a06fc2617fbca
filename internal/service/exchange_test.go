package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"exchange-rate-viewer/internal/domain/model"
	"exchange-rate-viewer/internal/domain/ports"
	"exchange-rate-viewer/internal/metrics"
	"exchange-rate-viewer/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

type MockRateCache struct {
	GetLatestFunc     func(ctx context.Context, code model.CurrencyCode) (*model.LatestRate, bool)
	SetLatestFunc     func(ctx context.Context, rate *model.LatestRate) error
	GetHistoricalFunc func(ctx context.Context, code model.CurrencyCode) (*model.HistoricalSeries, bool)
	SetHistoricalFunc func(ctx context.Context, series *model.HistoricalSeries) error
	ClearExpiredFunc  func(ctx context.Context) error
}

func (m *MockRateCache) GetLatest(ctx context.Context, code model.CurrencyCode) (*model.LatestRate, bool) {
	return m.GetLatestFunc(ctx, code)
}

func (m *MockRateCache) SetLatest(ctx context.Context, rate *model.LatestRate) error {
	return m.SetLatestFunc(ctx, rate)
}

func (m *MockRateCache) GetHistorical(ctx context.Context, code model.CurrencyCode) (*model.HistoricalSeries, bool) {
	return m.GetHistoricalFunc(ctx, code)
}

func (m *MockRateCache) SetHistorical(ctx context.Context, series *model.HistoricalSeries) error {
	return m.SetHistoricalFunc(ctx, series)
}

func (m *MockRateCache) ClearExpired(ctx context.Context) error {
	return m.ClearExpiredFunc(ctx)
}

type MockRateRepository struct {
	FetchLatestRateFunc      func(ctx context.Context, code model.CurrencyCode) (*model.LatestRate, error)
	FetchHistoricalRatesFunc func(ctx context.Context, code model.CurrencyCode) (*model.HistoricalSeries, error)
}

func (m *MockRateRepository) FetchLatestRate(ctx context.Context, code model.CurrencyCode) (*model.LatestRate, error) {
	return m.FetchLatestRateFunc(ctx, code)
}

func (m *MockRateRepository) FetchHistoricalRates(ctx context.Context, code model.CurrencyCode) (*model.HistoricalSeries, error) {
	return m.FetchHistoricalRatesFunc(ctx, code)
}

func missCache() MockRateCache {
	return MockRateCache{
		GetLatestFunc: func(ctx context.Context, code model.CurrencyCode) (*model.LatestRate, bool) {
			return nil, false
		},
		SetLatestFunc: func(ctx context.Context, rate *model.LatestRate) error {
			return nil
		},
		GetHistoricalFunc: func(ctx context.Context, code model.CurrencyCode) (*model.HistoricalSeries, bool) {
			return nil, false
		},
		SetHistoricalFunc: func(ctx context.Context, series *model.HistoricalSeries) error {
			return nil
		},
	}
}

var eurRate = &model.LatestRate{
	CurrencyCode:  "EUR",
	USDRate:       "1.0850",
	LastRefreshed: "2024-01-15 16:00:01",
}

func TestExchangeService_GetLatestRate(t *testing.T) {

	log := logger.NewLogger("debug")

	testCases := []struct {
		name           string
		currency       string
		mockCache      MockRateCache
		mockRepository MockRateRepository
		expectedRate   *model.LatestRate
		expectedError  error
	}{
		{
			name:     "Success - Cache Hit",
			currency: "eur",
			mockCache: MockRateCache{
				GetLatestFunc: func(ctx context.Context, code model.CurrencyCode) (*model.LatestRate, bool) {
					if code != "EUR" {
						t.Errorf("Expected normalized code EUR, got %s", code)
					}
					return eurRate, true
				},
			},
			mockRepository: MockRateRepository{},
			expectedRate:   eurRate,
		},
		{
			name:      "Success - Cache Miss, Repository Hit",
			currency:  "EUR",
			mockCache: missCache(),
			mockRepository: MockRateRepository{
				FetchLatestRateFunc: func(ctx context.Context, code model.CurrencyCode) (*model.LatestRate, error) {
					return eurRate, nil
				},
			},
			expectedRate: eurRate,
		},
		{
			name:           "Error - Missing Currency",
			currency:       "  ",
			mockCache:      MockRateCache{},
			mockRepository: MockRateRepository{},
			expectedError:  ErrMissingCurrency,
		},
		{
			name:      "Error - Rate Limited",
			currency:  "EUR",
			mockCache: missCache(),
			mockRepository: MockRateRepository{
				FetchLatestRateFunc: func(ctx context.Context, code model.CurrencyCode) (*model.LatestRate, error) {
					return nil, ports.ErrUpstreamRateLimited
				},
			},
			expectedError: ErrRateLimited,
		},
		{
			name:      "Error - Not Found",
			currency:  "XYZ",
			mockCache: missCache(),
			mockRepository: MockRateRepository{
				FetchLatestRateFunc: func(ctx context.Context, code model.CurrencyCode) (*model.LatestRate, error) {
					return nil, ports.ErrUpstreamNoData
				},
			},
			expectedError: ErrRateNotFound,
		},
		{
			name:      "Error - Upstream Rejected",
			currency:  "EUR",
			mockCache: missCache(),
			mockRepository: MockRateRepository{
				FetchLatestRateFunc: func(ctx context.Context, code model.CurrencyCode) (*model.LatestRate, error) {
					return nil, &ports.UpstreamError{Message: "Invalid API call."}
				},
			},
			expectedError: ErrUpstreamRejected,
		},
		{
			name:      "Error - Repository Error",
			currency:  "EUR",
			mockCache: missCache(),
			mockRepository: MockRateRepository{
				FetchLatestRateFunc: func(ctx context.Context, code model.CurrencyCode) (*model.LatestRate, error) {
					return nil, errors.New("connection refused")
				},
			},
			expectedError: ErrExternalAPIFailure,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {

			svc := NewExchangeService(&tc.mockRepository, &tc.mockCache, metrics.NewMetrics(prometheus.NewRegistry()), log)

			rate, err := svc.GetLatestRate(context.Background(), tc.currency)

			if (tc.expectedError != nil && err == nil) || (tc.expectedError == nil && err != nil) {
				t.Errorf("Expected error: %v, got: %v", tc.expectedError, err)
			}

			if tc.expectedError != nil && err != nil {
				if !errors.Is(err, tc.expectedError) {
					t.Errorf("Expected error to contain: %v, got: %v", tc.expectedError, err)
				}
			}

			if tc.expectedRate == nil && rate != nil {
				t.Errorf("Expected nil rate, got: %v", rate)
			}

			if tc.expectedRate != nil {
				if rate == nil {
					t.Fatal("Expected non-nil rate, got nil")
				}

				if *tc.expectedRate != *rate {
					t.Errorf("Expected rate: %+v, got: %+v", tc.expectedRate, rate)
				}
			}
		})
	}
}

func TestExchangeService_UpstreamMessagePreserved(t *testing.T) {
	cache := missCache()
	repo := MockRateRepository{
		FetchHistoricalRatesFunc: func(ctx context.Context, code model.CurrencyCode) (*model.HistoricalSeries, error) {
			return nil, &ports.UpstreamError{Message: "Invalid API call."}
		},
	}
	svc := NewExchangeService(&repo, &cache, nil, logger.Discard())

	_, err := svc.GetHistoricalRates(context.Background(), "EUR")

	var upstreamErr *ports.UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("Expected UpstreamError in chain, got %v", err)
	}
	if upstreamErr.Message != "Invalid API call." {
		t.Errorf("Expected provider message, got %q", upstreamErr.Message)
	}
}

func TestExchangeService_GetHistoricalRates_CachesResult(t *testing.T) {
	var stored *model.HistoricalSeries
	cache := MockRateCache{
		GetHistoricalFunc: func(ctx context.Context, code model.CurrencyCode) (*model.HistoricalSeries, bool) {
			if stored == nil {
				return nil, false
			}
			return stored, true
		},
		SetHistoricalFunc: func(ctx context.Context, series *model.HistoricalSeries) error {
			stored = series
			return nil
		},
	}

	calls := 0
	repo := MockRateRepository{
		FetchHistoricalRatesFunc: func(ctx context.Context, code model.CurrencyCode) (*model.HistoricalSeries, error) {
			calls++
			return &model.HistoricalSeries{
				CurrencyCode: code,
				Rates:        []model.HistoricalRatePoint{{Date: "2024-01-15", Rate: "1.085000"}},
			}, nil
		},
	}

	m := metrics.NewMetrics(prometheus.NewRegistry())
	svc := NewExchangeService(&repo, &cache, m, logger.Discard())

	for i := 0; i < 2; i++ {
		series, err := svc.GetHistoricalRates(context.Background(), "eur")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if series.CurrencyCode != "EUR" || len(series.Rates) != 1 {
			t.Errorf("Unexpected series %+v", series)
		}
	}

	if calls != 1 {
		t.Errorf("Expected 1 upstream call, got %d", calls)
	}
	if got := counterValue(t, m.CacheLookupsTotal.WithLabelValues("historical", "hit")); got != 1 {
		t.Errorf("Expected 1 cache hit recorded, got %v", got)
	}
	if got := counterValue(t, m.UpstreamRequestsTotal.WithLabelValues("historical", "success")); got != 1 {
		t.Errorf("Expected 1 upstream success recorded, got %v", got)
	}
}

func TestExchangeService_CoalescesConcurrentMisses(t *testing.T) {
	var mu sync.Mutex
	var stored *model.LatestRate
	cache := MockRateCache{
		GetLatestFunc: func(ctx context.Context, code model.CurrencyCode) (*model.LatestRate, bool) {
			mu.Lock()
			defer mu.Unlock()
			return stored, stored != nil
		},
		SetLatestFunc: func(ctx context.Context, rate *model.LatestRate) error {
			mu.Lock()
			defer mu.Unlock()
			stored = rate
			return nil
		},
	}

	var calls int32
	release := make(chan struct{})
	repo := MockRateRepository{
		FetchLatestRateFunc: func(ctx context.Context, code model.CurrencyCode) (*model.LatestRate, error) {
			atomic.AddInt32(&calls, 1)
			<-release
			return eurRate, nil
		},
	}

	svc := NewExchangeService(&repo, &cache, nil, logger.Discard())

	const callers = 5
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.GetLatestRate(context.Background(), "EUR")
			errs <- err
		}()
	}

	// Let every caller reach the flight before the upstream answers.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Expected no error, got %v", err)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("Expected concurrent misses to share 1 upstream call, got %d", got)
	}
}

func TestExchangeService_SharedCallSurvivesCallerCancellation(t *testing.T) {
	cache := missCache()

	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})
	repo := MockRateRepository{
		FetchLatestRateFunc: func(ctx context.Context, code model.CurrencyCode) (*model.LatestRate, error) {
			if atomic.AddInt32(&calls, 1) == 1 {
				close(started)
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-release:
				return eurRate, nil
			}
		},
	}

	svc := NewExchangeService(&repo, &cache, nil, logger.Discard())

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.GetLatestRate(firstCtx, "EUR")
		firstErr <- err
	}()
	<-started

	type result struct {
		rate *model.LatestRate
		err  error
	}
	second := make(chan result, 1)
	go func() {
		rate, err := svc.GetLatestRate(context.Background(), "EUR")
		second <- result{rate, err}
	}()

	// Let the second caller join the flight, then drop the first.
	time.Sleep(50 * time.Millisecond)
	cancelFirst()

	select {
	case err := <-firstErr:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected first caller to see context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("First caller did not return after cancellation")
	}

	close(release)

	select {
	case res := <-second:
		if res.err != nil {
			t.Fatalf("Expected second caller to succeed, got %v", res.err)
		}
		if *res.rate != *eurRate {
			t.Errorf("Expected %+v, got %+v", eurRate, res.rate)
		}
	case <-time.After(time.Second):
		t.Fatal("Second caller did not receive the shared result")
	}

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("Expected 1 upstream call, got %d", got)
	}
}

func TestExchangeService_CancelledCallerSkipsUpstream(t *testing.T) {
	cache := missCache()
	var calls int32
	repo := MockRateRepository{
		FetchHistoricalRatesFunc: func(ctx context.Context, code model.CurrencyCode) (*model.HistoricalSeries, error) {
			atomic.AddInt32(&calls, 1)
			return &model.HistoricalSeries{CurrencyCode: code, Rates: []model.HistoricalRatePoint{}}, nil
		},
	}
	svc := NewExchangeService(&repo, &cache, nil, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.GetHistoricalRates(ctx, "EUR"); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 0 {
		t.Errorf("Expected no upstream call, got %d", got)
	}
}

func TestExchangeService_ClearExpired(t *testing.T) {
	called := false
	cache := MockRateCache{
		ClearExpiredFunc: func(ctx context.Context) error {
			called = true
			return nil
		},
	}

	svc := NewExchangeService(&MockRateRepository{}, &cache, nil, logger.Discard())
	if err := svc.ClearExpired(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !called {
		t.Error("Expected cache sweep to run")
	}
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var pb dto.Metric
	if err := c.Write(&pb); err != nil {
		t.Fatalf("Failed to read counter: %v", err)
	}
	return pb.GetCounter().GetValue()
}
