package viewer

import (
	"errors"
	"strings"

	"exchange-rate-viewer/internal/client"
	"exchange-rate-viewer/internal/domain/model"
	"exchange-rate-viewer/pkg/utils"
)

var (
	ErrInvalidCode      = errors.New("invalid currency code")
	ErrIncompleteSearch = errors.New("incomplete historical search")
	ErrStartAfterEnd    = errors.New("start date after end date")
	ErrInvalidDate      = errors.New("invalid date")
)

const unexpectedMessage = "An unexpected error occurred."

var messages = []struct {
	err     error
	message string
}{
	{ErrInvalidCode, "Please enter a valid 3-letter currency code."},
	{client.ErrInvalidCode, "Please enter a valid 3-letter currency code."},
	{ErrIncompleteSearch, "Please enter a 3-letter currency code, start date, and end date."},
	{ErrStartAfterEnd, "Error: Start date cannot be after the end date."},
	{ErrInvalidDate, "Please enter dates as YYYY-MM-DD."},
}

// Message turns any error surfaced by a search into the text shown to the user.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var fetchErr *client.FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Message
	}

	for _, m := range messages {
		if errors.Is(err, m.err) {
			return m.message
		}
	}

	return unexpectedMessage
}

type LatestQuery struct {
	Code model.CurrencyCode
}

func ParseLatestQuery(code string) (LatestQuery, error) {
	normalized := model.NormalizeCode(code)
	if !normalized.IsValid() {
		return LatestQuery{}, ErrInvalidCode
	}
	return LatestQuery{Code: normalized}, nil
}

// HistoricalQuery is a validated date-range search. Start and End are
// YYYY-MM-DD and Start <= End.
type HistoricalQuery struct {
	Code  model.CurrencyCode
	Start string
	End   string
}

func ParseHistoricalQuery(code, start, end string) (HistoricalQuery, error) {
	q := HistoricalQuery{
		Code:  model.NormalizeCode(code),
		Start: strings.TrimSpace(start),
		End:   strings.TrimSpace(end),
	}

	if !q.Code.IsValid() || q.Start == "" || q.End == "" {
		return HistoricalQuery{}, ErrIncompleteSearch
	}
	if !utils.IsISODate(q.Start) || !utils.IsISODate(q.End) {
		return HistoricalQuery{}, ErrInvalidDate
	}
	if q.Start > q.End {
		return HistoricalQuery{}, ErrStartAfterEnd
	}

	return q, nil
}
