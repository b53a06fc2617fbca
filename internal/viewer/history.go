package viewer

import (
	"sort"

	"exchange-rate-viewer/internal/domain/model"
)

const RatesPerPage = 10

// FilterRates returns the points with start <= date <= end, newest first.
// Dates are YYYY-MM-DD, so string order is calendar order.
func FilterRates(rates []model.HistoricalRatePoint, start, end string) []model.HistoricalRatePoint {
	filtered := make([]model.HistoricalRatePoint, 0, len(rates))
	for _, r := range rates {
		if r.Date >= start && r.Date <= end {
			filtered = append(filtered, r)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Date > filtered[j].Date
	})

	return filtered
}

// Page is one window over a filtered series. StartIndex is inclusive and
// EndIndex exclusive, both into the filtered slice.
type Page struct {
	Items      []model.HistoricalRatePoint
	Number     int
	TotalPages int
	StartIndex int
	EndIndex   int
	Total      int
}

func (p Page) HasPrevious() bool {
	return p.Number > 1
}

func (p Page) HasNext() bool {
	return p.Number < p.TotalPages
}

func TotalPages(total int) int {
	return (total + RatesPerPage - 1) / RatesPerPage
}

// Paginate returns page n of rates, clamping n into the valid range.
func Paginate(rates []model.HistoricalRatePoint, n int) Page {
	total := len(rates)
	pages := TotalPages(total)

	n = clampPage(n, pages)

	start := (n - 1) * RatesPerPage
	end := start + RatesPerPage
	if end > total {
		end = total
	}
	if start > end {
		start = end
	}

	return Page{
		Items:      rates[start:end],
		Number:     n,
		TotalPages: pages,
		StartIndex: start,
		EndIndex:   end,
		Total:      total,
	}
}

func clampPage(n, pages int) int {
	if n > pages {
		n = pages
	}
	if n < 1 {
		n = 1
	}
	return n
}
