package model

import (
	"testing"
	"time"
)

func TestNormalizeCode(t *testing.T) {
	testCases := []struct {
		in    string
		want  CurrencyCode
		valid bool
	}{
		{in: "eur", want: "EUR", valid: true},
		{in: " jpy ", want: "JPY", valid: true},
		{in: "USD", want: "USD", valid: true},
		{in: "eu", want: "EU", valid: false},
		{in: "euro", want: "EURO", valid: false},
		{in: "", want: "", valid: false},
	}

	for _, tc := range testCases {
		got := NormalizeCode(tc.in)
		if got != tc.want {
			t.Errorf("NormalizeCode(%q) = %q, want %q", tc.in, got, tc.want)
		}
		if got.IsValid() != tc.valid {
			t.Errorf("NormalizeCode(%q).IsValid() = %v, want %v", tc.in, got.IsValid(), tc.valid)
		}
	}
}

func TestKind_TTL(t *testing.T) {
	if KindLatest.TTL() != time.Hour {
		t.Errorf("Expected latest TTL of 1h, got %s", KindLatest.TTL())
	}
	if KindHistorical.TTL() != 7*24*time.Hour {
		t.Errorf("Expected historical TTL of 7 days, got %s", KindHistorical.TTL())
	}
}

func TestHistoricalSeries_Clone(t *testing.T) {
	s := HistoricalSeries{
		CurrencyCode: "EUR",
		Rates:        []HistoricalRatePoint{{Date: "2024-01-15", Rate: "1.085000"}},
	}

	c := s.Clone()
	c.Rates[0].Rate = "0"

	if s.Rates[0].Rate != "1.085000" {
		t.Errorf("Expected clone to own its slice, original changed to %q", s.Rates[0].Rate)
	}
}
