package viewer

import (
	"fmt"
	"io"
	"text/tabwriter"

	"exchange-rate-viewer/pkg/utils"

	"github.com/shopspring/decimal"
)

// DisplayRate formats a provider rate to 4 decimal places, falling back to
// the raw text when it is not a number.
func DisplayRate(rate string) string {
	d, err := decimal.NewFromString(rate)
	if err != nil {
		return rate
	}
	return d.StringFixed(4)
}

// DisplayDate renders YYYY-MM-DD as e.g. "Jan 15, 2024".
func DisplayDate(date string) string {
	t, err := utils.ParseDate(date)
	if err != nil {
		return date
	}
	return t.Format("Jan 2, 2006")
}

func RenderLatest(w io.Writer, v LatestView) error {
	var err error
	switch v.State() {
	case StateError:
		_, err = fmt.Fprintf(w, "Error: %s\n", v.Err)
	case StateLoading:
		_, err = fmt.Fprintf(w, "Fetching %s...\n", v.Code)
	case StateResult:
		_, err = fmt.Fprintf(w, "1 %s = $%s USD\nLast Refreshed: %s\n",
			v.Rate.CurrencyCode, DisplayRate(v.Rate.USDRate), v.Rate.LastRefreshed)
		if err == nil && v.FromCache {
			_, err = fmt.Fprintln(w, "Loaded from cache")
		}
	default:
		_, err = fmt.Fprintln(w, "Enter a 3-letter currency code to get started (e.g. EUR, GBP, JPY, CAD)")
	}
	return err
}

func RenderHistorical(w io.Writer, v HistoricalView) error {
	switch v.State() {
	case StateError:
		_, err := fmt.Fprintf(w, "Error: %s\n", v.Err)
		return err
	case StateLoading:
		_, err := fmt.Fprintf(w, "Loading %s history...\n", v.Query.Code)
		return err
	case StateEmpty:
		msg := "Select a currency and date range to view historical rates"
		if v.Series != nil {
			msg = "No data available for this date range. Try selecting a different date range."
		}
		_, err := fmt.Fprintln(w, msg)
		return err
	}

	page := v.CurrentPage()
	code := v.Query.Code
	if v.Series.CurrencyCode != "" {
		code = v.Series.CurrencyCode
	}

	cached := ""
	if v.FromCache {
		cached = " [cached]"
	}
	if _, err := fmt.Fprintf(w, "%s Rates (%s to %s)%s, %d total rates\n",
		code, v.Query.Start, v.Query.End, cached, page.Total); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "DATE\tEXCHANGE RATE (1 %s = USD)\n", code)
	for _, r := range page.Items {
		fmt.Fprintf(tw, "%s\t$%s\n", DisplayDate(r.Date), r.Rate)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "Showing %d to %d of %d results (page %d of %d)\n",
		page.StartIndex+1, page.EndIndex, page.Total, page.Number, page.TotalPages)
	return err
}
