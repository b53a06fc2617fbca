package model

import (
	"strings"
	"time"
	"unicode/utf8"
)

// CurrencyCode is a three letter currency token. Its canonical form is uppercase.
type CurrencyCode string

const USD CurrencyCode = "USD"

const codeLength = 3

func NormalizeCode(code string) CurrencyCode {
	return CurrencyCode(strings.ToUpper(strings.TrimSpace(code)))
}

// IsValid only checks the length; codes are not looked up in any registry.
func (c CurrencyCode) IsValid() bool {
	return utf8.RuneCountInString(string(c)) == codeLength
}

func (c CurrencyCode) String() string {
	return string(c)
}

// Kind tells the two cached payload shapes apart.
type Kind string

const (
	KindLatest     Kind = "latest"
	KindHistorical Kind = "historical"
)

const (
	LatestTTL     = time.Hour
	HistoricalTTL = 7 * 24 * time.Hour
)

func (k Kind) TTL() time.Duration {
	if k == KindHistorical {
		return HistoricalTTL
	}
	return LatestTTL
}

func (k Kind) String() string {
	return string(k)
}
