package model

// LatestRate reads as "1 CurrencyCode = USDRate USD" at LastRefreshed.
type LatestRate struct {
	CurrencyCode  CurrencyCode `json:"currencyCode"`
	USDRate       string       `json:"usdRate"`
	LastRefreshed string       `json:"lastRefreshed"`
}

func (r LatestRate) IsComplete() bool {
	return r.CurrencyCode != "" && r.USDRate != "" && r.LastRefreshed != ""
}

// HistoricalRatePoint is one daily close. Date is YYYY-MM-DD.
type HistoricalRatePoint struct {
	Date string `json:"date"`
	Rate string `json:"rate"`
}

// HistoricalSeries keeps the points in the order the provider sent them.
type HistoricalSeries struct {
	CurrencyCode CurrencyCode          `json:"currencyCode"`
	Rates        []HistoricalRatePoint `json:"rates"`
}

func (s HistoricalSeries) IsComplete() bool {
	return s.CurrencyCode != "" && s.Rates != nil
}

func (s HistoricalSeries) Clone() HistoricalSeries {
	if s.Rates != nil {
		s.Rates = append([]HistoricalRatePoint(nil), s.Rates...)
	}
	return s
}
