package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// BaseCurrency is the only source currency supported by the pricing pipeline
const BaseCurrency = "USD"

// RateSource tags where a snapshot came from
type RateSource string

const (
	RateSourceLive     RateSource = "live"
	RateSourceFallback RateSource = "fallback"
)

// RateSnapshot is a complete USD-based rate table. A snapshot is replaced
// wholesale and never merged with another one.
type RateSnapshot struct {
	Base      string
	Rates     map[string]decimal.Decimal
	FetchedAt time.Time
	Source    RateSource
}

// Rate returns the rate for a currency code
func (s RateSnapshot) Rate(currency string) (decimal.Decimal, bool) {
	r, ok := s.Rates[currency]
	if !ok || r.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, false
	}
	return r, true
}

// Age reports how old the snapshot is at the given instant
func (s RateSnapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.FetchedAt)
}

// Clone returns a deep copy so callers can never alias the cached map
func (s RateSnapshot) Clone() RateSnapshot {
	rates := make(map[string]decimal.Decimal, len(s.Rates))
	for k, v := range s.Rates {
		rates[k] = v
	}
	s.Rates = rates
	return s
}

// RateFetcher fetches a fresh USD-based rate table from an upstream source
type RateFetcher interface {
	FetchUSDRates(ctx context.Context) (map[string]decimal.Decimal, error)
}
