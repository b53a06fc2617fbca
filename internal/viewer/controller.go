package viewer

import (
	"context"
	"sync"

	"exchange-rate-viewer/internal/client"
	"exchange-rate-viewer/internal/domain/model"
	"exchange-rate-viewer/pkg/logger"

	"github.com/google/uuid"
)

type RateFetcher interface {
	FetchLatest(ctx context.Context, code string) (client.Result[model.LatestRate], error)
	FetchHistorical(ctx context.Context, code string) (client.Result[model.HistoricalSeries], error)
}

type LatestView struct {
	Code      model.CurrencyCode
	Rate      *model.LatestRate
	FromCache bool
	Loading   bool
	Err       string
}

func (v LatestView) State() State {
	return DeriveState(v.Loading, v.Err, v.Rate != nil)
}

type HistoricalView struct {
	Query     HistoricalQuery
	Series    *model.HistoricalSeries
	FromCache bool
	Loading   bool
	Err       string
	Page      int
}

// Rates is the series narrowed to the searched range, newest first.
func (v HistoricalView) Rates() []model.HistoricalRatePoint {
	if v.Series == nil {
		return nil
	}
	return FilterRates(v.Series.Rates, v.Query.Start, v.Query.End)
}

func (v HistoricalView) CurrentPage() Page {
	return Paginate(v.Rates(), v.Page)
}

func (v HistoricalView) State() State {
	return DeriveState(v.Loading, v.Err, len(v.Rates()) > 0)
}

// search is one in-flight request. A newer search of the same kind
// replaces it, after which its result is dropped.
type search struct {
	token  uuid.UUID
	cancel context.CancelFunc
}

// Controller owns the latest and historical views for one session. It
// outlives individual renders so the fetcher's session cache is reused,
// and must be closed when the session ends.
type Controller struct {
	fetcher RateFetcher
	log     *logger.Logger

	mu         sync.Mutex
	latest     LatestView
	historical HistoricalView
	searches   map[model.Kind]search
	closed     bool
}

func NewController(fetcher RateFetcher, log *logger.Logger) *Controller {
	return &Controller{
		fetcher:    fetcher,
		log:        log,
		historical: HistoricalView{Page: 1},
		searches:   make(map[model.Kind]search),
	}
}

func (c *Controller) Latest() LatestView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest
}

func (c *Controller) Historical() HistoricalView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.historical
}

// SearchLatest looks up the latest rate for code. Invalid input is shown
// as an error without touching the network.
func (c *Controller) SearchLatest(ctx context.Context, code string) LatestView {
	q, err := ParseLatestQuery(code)
	if err != nil {
		c.mu.Lock()
		c.abort(model.KindLatest)
		c.latest = LatestView{Code: model.NormalizeCode(code), Err: Message(err)}
		c.mu.Unlock()
		return c.Latest()
	}

	ctx, token, ok := c.begin(ctx, model.KindLatest, func() {
		c.latest = LatestView{Code: q.Code, Loading: true}
	})
	if !ok {
		return c.Latest()
	}

	res, err := c.fetcher.FetchLatest(ctx, q.Code.String())

	c.complete(model.KindLatest, token, func() {
		if err != nil {
			c.latest.Err = Message(err)
			return
		}
		c.latest.Rate = &res.Data
		c.latest.FromCache = res.FromCache
	})

	return c.Latest()
}

// SearchHistorical fetches the full series for code and shows the part
// between start and end. Validation failures are returned and leave the
// current view as it was.
func (c *Controller) SearchHistorical(ctx context.Context, code, start, end string) (HistoricalView, error) {
	q, err := ParseHistoricalQuery(code, start, end)
	if err != nil {
		return c.Historical(), err
	}

	ctx, token, ok := c.begin(ctx, model.KindHistorical, func() {
		c.historical = HistoricalView{Query: q, Loading: true, Page: 1}
	})
	if !ok {
		return c.Historical(), nil
	}

	res, err := c.fetcher.FetchHistorical(ctx, q.Code.String())

	c.complete(model.KindHistorical, token, func() {
		if err != nil {
			c.historical.Err = Message(err)
			return
		}
		c.historical.Series = &res.Data
		c.historical.FromCache = res.FromCache
	})

	return c.Historical(), nil
}

// SetPage moves the historical view to page n, clamped to the pages available.
func (c *Controller) SetPage(n int) HistoricalView {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.historical.Page = clampPage(n, TotalPages(len(c.historical.Rates())))
	return c.historical
}

func (c *Controller) NextPage() HistoricalView {
	return c.SetPage(c.Historical().Page + 1)
}

func (c *Controller) PreviousPage() HistoricalView {
	return c.SetPage(c.Historical().Page - 1)
}

func (c *Controller) ClearLatest() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.abort(model.KindLatest)
	c.latest = LatestView{}
}

func (c *Controller) ClearHistorical() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.abort(model.KindHistorical)
	c.historical = HistoricalView{Page: 1}
}

// Close cancels every in-flight search. Results arriving afterwards are dropped.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	for kind := range c.searches {
		c.abort(kind)
	}
}

// begin registers a new search of kind, superseding any running one, and
// resets the view through reset. It reports false once the controller is closed.
func (c *Controller) begin(parent context.Context, kind model.Kind, reset func()) (context.Context, uuid.UUID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return parent, uuid.Nil, false
	}

	if prev, ok := c.searches[kind]; ok {
		c.log.Debug("Superseding search", "kind", kind, "token", prev.token)
		prev.cancel()
	}

	ctx, cancel := context.WithCancel(parent)
	token := uuid.New()
	c.searches[kind] = search{token: token, cancel: cancel}
	reset()

	return ctx, token, true
}

// complete applies a finished search if it is still the current one for
// kind. The loading flag is always cleared for the current search.
func (c *Controller) complete(kind model.Kind, token uuid.UUID, apply func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, ok := c.searches[kind]
	if !ok || current.token != token {
		c.log.Debug("Discarding superseded result", "kind", kind, "token", token)
		return
	}

	defer func() {
		current.cancel()
		delete(c.searches, kind)
		c.setLoading(kind, false)
	}()

	apply()
}

// abort cancels the running search of kind, if any. Callers hold c.mu.
func (c *Controller) abort(kind model.Kind) {
	if s, ok := c.searches[kind]; ok {
		s.cancel()
		delete(c.searches, kind)
		c.setLoading(kind, false)
	}
}

func (c *Controller) setLoading(kind model.Kind, loading bool) {
	if kind == model.KindHistorical {
		c.historical.Loading = loading
		return
	}
	c.latest.Loading = loading
}
