package transfer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remitflow/remitflow-backend/internal/domain"
)

// scriptedRandom replays a fixed sequence of values, cycling at the end
type scriptedRandom struct {
	mu     sync.Mutex
	values []float64
	next   int
}

func (r *scriptedRandom) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.values[r.next%len(r.values)]
	r.next++
	return v
}

func always(v float64) *scriptedRandom { return &scriptedRandom{values: []float64{v}} }

var (
	mexico   = domain.Corridor{Country: "Mexico", Currency: "MXN", DeliveryTime: "35 minutes", DeliveryWindow: 35 * time.Minute, Region: domain.RegionLatinAmerica}
	colombia = domain.Corridor{Country: "Colombia", Currency: "COP", DeliveryTime: "1-3 hours", DeliveryWindow: 3 * time.Hour, Region: domain.RegionLatinAmerica}
	baseTime = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
)

func snapshot(pairs ...string) domain.RateSnapshot {
	rates := make(map[string]decimal.Decimal)
	for i := 0; i+1 < len(pairs); i += 2 {
		rates[pairs[i]] = decimal.RequireFromString(pairs[i+1])
	}
	return domain.RateSnapshot{Base: domain.BaseCurrency, Rates: rates, FetchedAt: baseTime, Source: domain.RateSourceLive}
}

func newTestLedger(t *testing.T, random domain.Randomness, advanceChance float64) *Ledger {
	t.Helper()
	clock := baseTime
	var mu sync.Mutex
	l, err := NewLedger(Options{
		InitialProcessingChance: 0.3,
		AdvanceChance:           advanceChance,
		Random:                  random,
		Clock: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			clock = clock.Add(time.Second)
			return clock
		},
	})
	require.NoError(t, err)
	return l
}

func createOne(t *testing.T, l *Ledger, amount string) domain.Transfer {
	t.Helper()
	pricing, err := l.Quote(decimal.RequireFromString(amount), mexico, snapshot("MXN", "17.5"))
	require.NoError(t, err)
	tr, err := l.Create(context.Background(), "Maria", mexico, pricing, CreateOptions{})
	require.NoError(t, err)
	return tr
}

func TestQuote_MexicoScenario(t *testing.T) {
	l := newTestLedger(t, always(0.9), 0.5)

	pricing, err := l.Quote(decimal.NewFromInt(100), mexico, snapshot("MXN", "17.5"))

	require.NoError(t, err)
	assert.Equal(t, "2.99", pricing.Fee.StringFixed(2))
	assert.Equal(t, "97.01", pricing.NetAmount.StringFixed(2))
	assert.Equal(t, "17.5", pricing.ExchangeRate.String())
	assert.Equal(t, "1697.68", pricing.AmountReceived.StringFixed(2))
	assert.Equal(t, "MXN", pricing.Currency)
	assert.Equal(t, baseTime, pricing.RateFetchedAt)
}

func TestQuote_Errors(t *testing.T) {
	l := newTestLedger(t, always(0.9), 0.5)
	snap := snapshot("MXN", "17.5")

	tests := []struct {
		name     string
		amount   string
		corridor domain.Corridor
		wantErr  error
	}{
		{name: "zero amount", amount: "0", corridor: mexico, wantErr: domain.ErrInvalidAmount},
		{name: "negative amount", amount: "-5", corridor: mexico, wantErr: domain.ErrInvalidAmount},
		{name: "fractional cents", amount: "100.001", corridor: mexico, wantErr: domain.ErrInvalidAmount},
		{name: "amount below the fee", amount: "2.50", corridor: mexico, wantErr: domain.ErrInvalidAmount},
		{name: "just above the ceiling", amount: "5000.01", corridor: mexico, wantErr: domain.ErrLimitExceeded},
		{name: "far above the ceiling", amount: "12000", corridor: mexico, wantErr: domain.ErrLimitExceeded},
		{name: "currency missing from snapshot", amount: "100", corridor: colombia, wantErr: domain.ErrRateUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Quote(decimal.RequireFromString(tt.amount), tt.corridor, snap)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestQuote_CeilingIsInclusive(t *testing.T) {
	l := newTestLedger(t, always(0.9), 0.5)

	pricing, err := l.Quote(decimal.NewFromInt(5000), mexico, snapshot("MXN", "17.5"))

	require.NoError(t, err)
	assert.Equal(t, "50.00", pricing.Fee.StringFixed(2))
	assert.Equal(t, "4950.00", pricing.NetAmount.StringFixed(2))
	assert.Equal(t, "86625.00", pricing.AmountReceived.StringFixed(2))
}

func TestCreate_InitialStatus(t *testing.T) {
	tests := []struct {
		name   string
		roll   float64
		status domain.TransferStatus
	}{
		{name: "low roll starts processing", roll: 0.1, status: domain.TransferStatusProcessing},
		{name: "high roll starts pending", roll: 0.9, status: domain.TransferStatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLedger(t, always(tt.roll), 0.5)
			tr := createOne(t, l, "100")
			assert.Equal(t, tt.status, tr.Status)
		})
	}
}

func TestCreate_RecordFields(t *testing.T) {
	l := newTestLedger(t, always(0.9), 0.5)

	pricing, err := l.Quote(decimal.NewFromInt(100), mexico, snapshot("MXN", "17.5"))
	require.NoError(t, err)
	tr, err := l.Create(context.Background(), "  Maria ", mexico, pricing, CreateOptions{RecipientReference: "acct_1a2b3c4d", RecipientAccount: "...8952"})
	require.NoError(t, err)

	assert.Regexp(t, `^tr_[0-9a-f]{12}$`, tr.ID)
	assert.Equal(t, "Maria", tr.RecipientName)
	assert.Equal(t, "USD", tr.SourceCurrency)
	assert.Equal(t, "Mexico", tr.DestinationCountry)
	assert.Equal(t, "MXN", tr.DestinationCurrency)
	assert.Equal(t, "acct_1a2b3c4d", tr.RecipientReference)
	assert.Equal(t, "...8952", tr.RecipientAccount)
	assert.Equal(t, tr.CreatedAt.Add(35*time.Minute), tr.EstimatedArrival)
	assert.Equal(t, 1, l.Len())
}

func TestCreate_RejectsBadInput(t *testing.T) {
	l := newTestLedger(t, always(0.9), 0.5)
	pricing, err := l.Quote(decimal.NewFromInt(100), mexico, snapshot("MXN", "17.5"))
	require.NoError(t, err)

	_, err = l.Create(context.Background(), "   ", mexico, pricing, CreateOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = l.Create(context.Background(), "Maria", colombia, pricing, CreateOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	assert.Equal(t, 0, l.Len())
}

func TestCreate_IDsAreUnique(t *testing.T) {
	l := newTestLedger(t, always(0.9), 0.5)
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		tr := createOne(t, l, "100")
		assert.False(t, seen[tr.ID], "duplicate id %s", tr.ID)
		seen[tr.ID] = true
	}
}

func TestAdvanceStatus_OneStepAtATime(t *testing.T) {
	// First value is consumed by Create (0.9 keeps it pending)
	random := &scriptedRandom{values: []float64{0.9, 0.1, 0.9, 0.1, 0.1}}
	l := newTestLedger(t, random, 0.5)
	tr := createOne(t, l, "100")
	require.Equal(t, domain.TransferStatusPending, tr.Status)

	ctx := context.Background()
	steps := []struct {
		want     domain.TransferStatus
		advanced bool
	}{
		{want: domain.TransferStatusProcessing, advanced: true},
		{want: domain.TransferStatusProcessing, advanced: false},
		{want: domain.TransferStatusCompleted, advanced: true},
		{want: domain.TransferStatusCompleted, advanced: false},
	}
	for i, step := range steps {
		got, advanced, err := l.AdvanceStatus(ctx, tr.ID)
		require.NoError(t, err)
		assert.Equal(t, step.want, got.Status, "step %d", i)
		assert.Equal(t, step.advanced, advanced, "step %d", i)
	}
}

func TestAdvanceStatus_KeepsPricingFixed(t *testing.T) {
	l := newTestLedger(t, always(0.1), 1)
	tr := createOne(t, l, "100")

	got, _, err := l.AdvanceStatus(context.Background(), tr.ID)
	require.NoError(t, err)

	assert.True(t, got.ExchangeRate.Equal(tr.ExchangeRate))
	assert.True(t, got.AmountReceived.Equal(tr.AmountReceived))
	assert.True(t, got.UpdatedAt.After(tr.UpdatedAt))
}

func TestAdvanceStatus_NotFound(t *testing.T) {
	l := newTestLedger(t, always(0.9), 0.5)

	_, _, err := l.AdvanceStatus(context.Background(), "tr_doesnotexist")

	assert.ErrorIs(t, err, domain.ErrTransferNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAdvanceStatus_ConcurrentChecksNeverSkip(t *testing.T) {
	l := newTestLedger(t, always(0.0), 1)
	l.opts.InitialProcessingChance = 0
	tr := createOne(t, l, "100")
	require.Equal(t, domain.TransferStatusPending, tr.Status)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		advances int
		observed []domain.TransferStatus
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, advanced, err := l.AdvanceStatus(context.Background(), tr.ID)
			assert.NoError(t, err)
			mu.Lock()
			defer mu.Unlock()
			observed = append(observed, got.Status)
			if advanced {
				advances++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, advances, "exactly two transitions from pending to completed")
	final, err := l.Get(context.Background(), tr.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusCompleted, final.Status)

	counts := make(map[domain.TransferStatus]int)
	for _, s := range observed {
		counts[s]++
	}
	assert.Equal(t, 0, counts[domain.TransferStatusPending])
	assert.Equal(t, 1, counts[domain.TransferStatusProcessing])
	assert.Equal(t, 49, counts[domain.TransferStatusCompleted])
}

func TestAdvanceStatus_CorruptedRecord(t *testing.T) {
	l := newTestLedger(t, always(0.9), 0.5)
	tr := createOne(t, l, "100")
	l.records[tr.ID].t.Status = domain.TransferStatus("failed")

	_, _, err := l.AdvanceStatus(context.Background(), tr.ID)
	assert.ErrorIs(t, err, domain.ErrLedgerCorrupted)
	assert.NotErrorIs(t, err, domain.ErrNotFound)

	_, err = l.Get(context.Background(), tr.ID)
	assert.ErrorIs(t, err, domain.ErrLedgerCorrupted)
}

func TestGet_DoesNotAdvance(t *testing.T) {
	l := newTestLedger(t, always(0.9), 1)
	l.opts.Random = always(0.0)
	l.opts.InitialProcessingChance = 0
	tr := createOne(t, l, "100")

	for i := 0; i < 3; i++ {
		got, err := l.Get(context.Background(), tr.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TransferStatusPending, got.Status)
	}
}

func TestList_NewestFirstWithDefaultLimit(t *testing.T) {
	l := newTestLedger(t, always(0.9), 0.5)
	var ids []string
	for i := 0; i < 12; i++ {
		ids = append(ids, createOne(t, l, "100").ID)
	}

	got := l.List(context.Background(), 0)

	require.Len(t, got, DefaultListLimit)
	assert.Equal(t, ids[11], got[0].ID)
	assert.Equal(t, ids[2], got[9].ID)
	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].CreatedAt.After(got[i-1].CreatedAt))
	}

	assert.Len(t, l.List(context.Background(), 3), 3)
	assert.Len(t, l.List(context.Background(), 50), 12)
}

func TestList_ReturnsCopies(t *testing.T) {
	l := newTestLedger(t, always(0.9), 0.5)
	tr := createOne(t, l, "100")

	got := l.List(context.Background(), 1)
	got[0].RecipientName = "Mallory"
	got[0].Status = domain.TransferStatusCompleted

	again, err := l.Get(context.Background(), tr.ID)
	require.NoError(t, err)
	assert.Equal(t, "Maria", again.RecipientName)
	assert.Equal(t, domain.TransferStatusPending, again.Status)
}

func TestDiscard_RemovesRecord(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t, always(0.0), 1)
	kept := createOne(t, l, "100")
	dropped := createOne(t, l, "200")

	assert.True(t, l.Discard(ctx, dropped.ID))
	assert.False(t, l.Discard(ctx, dropped.ID))

	assert.Equal(t, 1, l.Len())
	got := l.List(ctx, 0)
	require.Len(t, got, 1)
	assert.Equal(t, kept.ID, got[0].ID)

	_, _, err := l.AdvanceStatus(ctx, dropped.ID)
	assert.ErrorIs(t, err, domain.ErrTransferNotFound)
}

func TestNewLedger_RejectsBadOptions(t *testing.T) {
	_, err := NewLedger(Options{AdvanceChance: 1.5})
	assert.EqualError(t, err, "advance chance must be between 0 and 1")

	_, err = NewLedger(Options{InitialProcessingChance: -0.1})
	assert.EqualError(t, err, "initial processing chance must be between 0 and 1")
}
