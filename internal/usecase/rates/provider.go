package rates

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/remitflow/remitflow-backend/internal/domain"
)

const (
	DefaultTTL            = time.Hour
	DefaultFetchTimeout   = 10 * time.Second
	DefaultFailureBackoff = 15 * time.Second
)

// FallbackRates covers every default corridor currency when no live table
// has ever been obtained.
var FallbackRates = map[string]string{
	"USD": "1",
	"MXN": "18.50",
	"COP": "4100",
	"GTQ": "7.75",
	"HNL": "25.90",
	"PEN": "3.70",
	"BRL": "5.50",
	"DOP": "60.50",
	"JMD": "157.00",
	"PHP": "57.50",
	"INR": "85.00",
	"VND": "25400",
	"NGN": "1550",
	"KES": "129.00",
	"GHS": "15.50",
	"EUR": "0.92",
	"GBP": "0.79",
}

// Options tunes the provider. Zero values fall back to the defaults.
type Options struct {
	TTL            time.Duration
	FetchTimeout   time.Duration
	FailureBackoff time.Duration
	Clock          domain.Clock
}

// Provider serves USD-based rate snapshots from a single cache slot.
// Logic:
//   - Fresh cache (age < TTL): returned without a network call
//   - Otherwise: one time-bounded fetch; success replaces the slot wholesale
//   - Fetch failure: last cached snapshot regardless of age, else the
//     fallback table stamped with the current time
//
// GetRates never returns an error.
type Provider struct {
	fetcher domain.RateFetcher
	opts    Options

	cache       atomic.Pointer[domain.RateSnapshot]
	refreshMu   sync.Mutex
	lastFailure atomic.Pointer[time.Time]
}

// NewProvider creates a new Provider instance
func NewProvider(fetcher domain.RateFetcher, opts Options) *Provider {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.FailureBackoff < 0 {
		opts.FailureBackoff = 0
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Provider{fetcher: fetcher, opts: opts}
}

// GetRates returns the current snapshot, refreshing it when stale
func (p *Provider) GetRates(ctx context.Context) domain.RateSnapshot {
	if snap, ok := p.fresh(); ok {
		return snap.Clone()
	}

	p.refreshMu.Lock()
	defer p.refreshMu.Unlock()

	// Another caller may have refreshed while we waited
	if snap, ok := p.fresh(); ok {
		return snap.Clone()
	}

	if p.inBackoff() {
		return p.degraded(nil)
	}

	snap, err := p.fetch(ctx)
	if err != nil {
		return p.degraded(err)
	}
	return snap.Clone()
}

// Refresh forces a fetch regardless of cache age. The cache is left
// untouched on failure.
func (p *Provider) Refresh(ctx context.Context) error {
	p.refreshMu.Lock()
	defer p.refreshMu.Unlock()

	_, err := p.fetch(ctx)
	return err
}

// Cached returns the cached snapshot without refreshing it
func (p *Provider) Cached() (domain.RateSnapshot, bool) {
	snap := p.cache.Load()
	if snap == nil {
		return domain.RateSnapshot{}, false
	}
	return snap.Clone(), true
}

func (p *Provider) fresh() (*domain.RateSnapshot, bool) {
	snap := p.cache.Load()
	if snap == nil {
		return nil, false
	}
	return snap, snap.Age(p.opts.Clock()) < p.opts.TTL
}

func (p *Provider) inBackoff() bool {
	failedAt := p.lastFailure.Load()
	if failedAt == nil || p.opts.FailureBackoff == 0 {
		return false
	}
	return p.opts.Clock().Sub(*failedAt) < p.opts.FailureBackoff
}

// fetch must be called with refreshMu held
func (p *Provider) fetch(ctx context.Context) (*domain.RateSnapshot, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.opts.FetchTimeout)
	defer cancel()

	raw, err := p.fetcher.FetchUSDRates(fetchCtx)
	if err == nil {
		err = validateRates(raw)
	}
	if err != nil {
		// A caller that gave up says nothing about the upstream
		if ctx.Err() == nil {
			now := p.opts.Clock()
			p.lastFailure.Store(&now)
		}
		return nil, fmt.Errorf("fetch usd rates: %w", err)
	}

	rates := make(map[string]decimal.Decimal, len(raw)+1)
	for code, rate := range raw {
		rates[code] = rate
	}
	if _, ok := rates[domain.BaseCurrency]; !ok {
		rates[domain.BaseCurrency] = decimal.NewFromInt(1)
	}

	snap := &domain.RateSnapshot{
		Base:      domain.BaseCurrency,
		Rates:     rates,
		FetchedAt: p.opts.Clock(),
		Source:    domain.RateSourceLive,
	}
	p.cache.Store(snap)
	p.lastFailure.Store(nil)
	log.Printf("level=info component=rates msg=\"rate table refreshed\" currencies=%d", len(rates))
	return snap, nil
}

func (p *Provider) degraded(err error) domain.RateSnapshot {
	if snap := p.cache.Load(); snap != nil {
		if err != nil {
			log.Printf("level=warn component=rates msg=\"rate fetch failed; serving cached table\" age=%s err=%v", snap.Age(p.opts.Clock()).Round(time.Second), err)
		}
		return snap.Clone()
	}
	if err != nil {
		log.Printf("level=warn component=rates msg=\"rate fetch failed; serving fallback table\" err=%v", err)
	}
	return Fallback(p.opts.Clock())
}

// Fallback builds the hardcoded rate table stamped with the given time
func Fallback(now time.Time) domain.RateSnapshot {
	rates := make(map[string]decimal.Decimal, len(FallbackRates))
	for code, rate := range FallbackRates {
		rates[code] = decimal.RequireFromString(rate)
	}
	return domain.RateSnapshot{
		Base:      domain.BaseCurrency,
		Rates:     rates,
		FetchedAt: now,
		Source:    domain.RateSourceFallback,
	}
}

func validateRates(raw map[string]decimal.Decimal) error {
	if len(raw) == 0 {
		return errors.New("upstream returned an empty rate table")
	}
	for code, rate := range raw {
		if len(code) != 3 {
			return fmt.Errorf("upstream returned malformed currency code %q", code)
		}
		if rate.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("upstream returned non-positive rate for %s", code)
		}
	}
	return nil
}
