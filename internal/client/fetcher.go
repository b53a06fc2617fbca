package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"exchange-rate-viewer/internal/domain/model"
	"exchange-rate-viewer/pkg/logger"
	"exchange-rate-viewer/pkg/ratecache"

	"golang.org/x/sync/singleflight"
)

const (
	latestPath     = "/api/latest-rate"
	historicalPath = "/api/historical-rate"

	latestFallback     = "Failed to fetch currency rate."
	historicalFallback = "Failed to fetch historical data."
)

var (
	ErrInvalidCode = errors.New("currency code must be 3 characters")
	ErrUnexpected  = errors.New("unexpected fetch failure")
)

// FetchError is a failure reported by the proxy, or a successful response
// that did not carry the expected fields.
type FetchError struct {
	StatusCode int
	Message    string
}

func (e *FetchError) Error() string {
	return e.Message
}

type Result[T any] struct {
	Data      T
	FromCache bool
}

type Fetcher struct {
	baseURL    string
	client     *http.Client
	log        *logger.Logger
	now        func() time.Time
	latest     *ratecache.Cache[model.LatestRate]
	historical *ratecache.Cache[model.HistoricalSeries]
	group      singleflight.Group
}

type Option func(*Fetcher)

func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithClock replaces the clock the session caches use for freshness.
func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) {
		f.now = now
	}
}

func NewFetcher(baseURL string, timeout time.Duration, log *logger.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		log:     log,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}

	f.latest = ratecache.New(model.LatestTTL,
		ratecache.WithClock[model.LatestRate](f.now))
	f.historical = ratecache.New(model.HistoricalTTL,
		ratecache.WithClock[model.HistoricalSeries](f.now),
		ratecache.WithClone(model.HistoricalSeries.Clone))

	return f
}

// endpoint describes one proxy route and the cache that fronts it.
type endpoint[T any] struct {
	kind     model.Kind
	path     string
	fallback string
	notFound string
	cache    *ratecache.Cache[T]
	complete func(T) bool
	clone    func(T) T
}

func (f *Fetcher) FetchLatest(ctx context.Context, code string) (Result[model.LatestRate], error) {
	return fetchWithCache(ctx, f, endpoint[model.LatestRate]{
		kind:     model.KindLatest,
		path:     latestPath,
		fallback: latestFallback,
		notFound: "Currency code '%s' not found or invalid.",
		cache:    f.latest,
		complete: model.LatestRate.IsComplete,
	}, code)
}

func (f *Fetcher) FetchHistorical(ctx context.Context, code string) (Result[model.HistoricalSeries], error) {
	return fetchWithCache(ctx, f, endpoint[model.HistoricalSeries]{
		kind:     model.KindHistorical,
		path:     historicalPath,
		fallback: historicalFallback,
		notFound: "Historical data for '%s' not found.",
		cache:    f.historical,
		complete: model.HistoricalSeries.IsComplete,
		clone:    model.HistoricalSeries.Clone,
	}, code)
}

func fetchWithCache[T any](ctx context.Context, f *Fetcher, ep endpoint[T], rawCode string) (Result[T], error) {
	var zero Result[T]

	code := model.NormalizeCode(rawCode)
	if !code.IsValid() {
		return zero, fmt.Errorf("%w: %q", ErrInvalidCode, rawCode)
	}

	if data, ok := ep.cache.Lookup(code.String()); ok {
		f.log.Debug("Session cache hit", "kind", ep.kind, "currency", code)
		return Result[T]{Data: data, FromCache: true}, nil
	}

	if err := ctx.Err(); err != nil {
		return zero, err
	}

	// Duplicate requests share one call. The call itself is detached from
	// the first caller's cancellation and bounded by the client timeout.
	flight := context.WithoutCancel(ctx)
	ch := f.group.DoChan(string(ep.kind)+":"+code.String(), func() (interface{}, error) {
		data, err := get(flight, f, ep, code)
		if err != nil {
			return nil, err
		}
		ep.cache.Store(code.String(), data)
		return data, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		data := res.Val.(T)
		if res.Shared && ep.clone != nil {
			data = ep.clone(data)
		}
		return Result[T]{Data: data}, nil
	}
}

func get[T any](ctx context.Context, f *Fetcher, ep endpoint[T], code model.CurrencyCode) (T, error) {
	var data T

	target := f.baseURL + ep.path + "?" + url.Values{"currency": {code.String()}}.Encode()
	f.log.Debug("Fetching from proxy", "kind", ep.kind, "url", target)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return data, fmt.Errorf("%w: %v", ErrUnexpected, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		f.log.Error("Proxy request failed", "kind", ep.kind, "currency", code, "error", err)
		return data, fmt.Errorf("%w: %v", ErrUnexpected, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return data, fmt.Errorf("%w: %v", ErrUnexpected, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return data, &FetchError{StatusCode: resp.StatusCode, Message: errorMessage(body, ep.fallback)}
	}

	if err := json.Unmarshal(body, &data); err != nil {
		return data, fmt.Errorf("%w: decode response: %v", ErrUnexpected, err)
	}

	if !ep.complete(data) {
		return data, &FetchError{StatusCode: http.StatusNotFound, Message: fmt.Sprintf(ep.notFound, code)}
	}

	return data, nil
}

// errorMessage prefers the proxy's own {"error": ...} text over fallback.
func errorMessage(body []byte, fallback string) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Error == "" {
		return fallback
	}
	return payload.Error
}
