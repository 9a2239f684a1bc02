package transfer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/remitflow/remitflow-backend/internal/domain"
	"github.com/remitflow/remitflow-backend/internal/usecase/fee"
)

const (
	DefaultListLimit = 10

	DefaultInitialProcessingChance = 0.3
	DefaultAdvanceChance           = 0.5
)

// DefaultMaxAmount is the per-transfer ceiling in USD
var DefaultMaxAmount = decimal.NewFromInt(5000)

// Options tunes the ledger. A zero Fees or MaxAmount falls back to the
// defaults; the chances are used as given.
type Options struct {
	Fees      fee.Schedule
	MaxAmount decimal.Decimal

	// InitialProcessingChance is the probability a new transfer starts in
	// processing instead of pending.
	InitialProcessingChance float64
	// AdvanceChance is the probability a status check moves a transfer one
	// step forward.
	AdvanceChance float64

	Random domain.Randomness
	Clock  domain.Clock
}

// CreateOptions carries the optional recipient reference of a transfer
// funded from stored recipient details.
type CreateOptions struct {
	RecipientReference string
	RecipientAccount   string // Masked
}

type record struct {
	mu sync.Mutex
	t  domain.Transfer
}

// Ledger owns transfer records for the lifetime of the process.
// Records are never handed out by reference; every read returns a copy.
type Ledger struct {
	opts Options

	mu      sync.RWMutex
	records map[string]*record
	seq     []string // ids in creation order
}

// NewLedger creates a new Ledger instance
func NewLedger(opts Options) (*Ledger, error) {
	if opts.Fees.Rate.IsZero() && opts.Fees.Floor.IsZero() && opts.Fees.Ceiling.IsZero() {
		opts.Fees = fee.DefaultSchedule
	}
	if err := opts.Fees.Validate(); err != nil {
		return nil, err
	}
	if opts.MaxAmount.LessThanOrEqual(decimal.Zero) {
		opts.MaxAmount = DefaultMaxAmount
	}
	if opts.InitialProcessingChance < 0 || opts.InitialProcessingChance > 1 {
		return nil, errors.New("initial processing chance must be between 0 and 1")
	}
	if opts.AdvanceChance < 0 || opts.AdvanceChance > 1 {
		return nil, errors.New("advance chance must be between 0 and 1")
	}
	if opts.Random == nil {
		opts.Random = globalRand{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Ledger{
		opts:    opts,
		records: make(map[string]*record),
	}, nil
}

// MaxAmount returns the per-transfer ceiling
func (l *Ledger) MaxAmount() decimal.Decimal { return l.opts.MaxAmount }

// Quote prices an amount for a corridor against a rate snapshot.
// Logic:
//  1. Reject non-positive amounts, fractional cents and amounts above MaxAmount
//  2. Fee from the schedule; net = amount - fee must stay positive
//  3. Received = net × rate, rounded to cents
//
// Quote has no side effects.
func (l *Ledger) Quote(amount decimal.Decimal, corridor domain.Corridor, snapshot domain.RateSnapshot) (domain.Pricing, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return domain.Pricing{}, domain.ErrInvalidAmount
	}
	if !amount.Equal(amount.Round(2)) {
		return domain.Pricing{}, fmt.Errorf("%w: amount %s has fractional cents", domain.ErrInvalidAmount, amount)
	}
	if amount.GreaterThan(l.opts.MaxAmount) {
		return domain.Pricing{}, fmt.Errorf("%w: %s > %s", domain.ErrLimitExceeded, amount, l.opts.MaxAmount)
	}

	rate, ok := snapshot.Rate(corridor.Currency)
	if !ok {
		return domain.Pricing{}, fmt.Errorf("%w: %s", domain.ErrRateUnavailable, corridor.Currency)
	}

	charge := l.opts.Fees.Calculate(amount)
	net := amount.Sub(charge)
	if net.LessThanOrEqual(decimal.Zero) {
		return domain.Pricing{}, fmt.Errorf("%w: amount %s does not cover the %s fee", domain.ErrInvalidAmount, amount, charge)
	}

	return domain.Pricing{
		AmountSent:     amount,
		Fee:            charge,
		NetAmount:      net,
		ExchangeRate:   rate,
		AmountReceived: net.Mul(rate).Round(2),
		Currency:       corridor.Currency,
		RateFetchedAt:  snapshot.FetchedAt,
	}, nil
}

// Create stores a new transfer for a priced corridor and returns a copy.
// The initial status is pending, or processing with InitialProcessingChance.
func (l *Ledger) Create(ctx context.Context, recipient string, corridor domain.Corridor, pricing domain.Pricing, opts CreateOptions) (domain.Transfer, error) {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return domain.Transfer{}, fmt.Errorf("%w: recipient name is required", domain.ErrInvalidRequest)
	}
	if pricing.Currency != corridor.Currency {
		return domain.Transfer{}, fmt.Errorf("%w: pricing currency %s does not match corridor %s", domain.ErrInvalidRequest, pricing.Currency, corridor.Currency)
	}

	status := domain.TransferStatusPending
	if l.opts.Random.Float64() < l.opts.InitialProcessingChance {
		status = domain.TransferStatusProcessing
	}

	now := l.opts.Clock()
	t := domain.Transfer{
		AmountSent:          pricing.AmountSent,
		SourceCurrency:      domain.BaseCurrency,
		Fee:                 pricing.Fee,
		NetAmount:           pricing.NetAmount,
		ExchangeRate:        pricing.ExchangeRate,
		AmountReceived:      pricing.AmountReceived,
		RecipientName:       recipient,
		DestinationCountry:  corridor.Country,
		DestinationCurrency: corridor.Currency,
		Status:              status,
		RecipientReference:  opts.RecipientReference,
		RecipientAccount:    opts.RecipientAccount,
		CreatedAt:           now,
		UpdatedAt:           now,
		EstimatedArrival:    now.Add(corridor.DeliveryWindow),
	}

	l.mu.Lock()
	t.ID = l.newID()
	if err := t.Validate(); err != nil {
		l.mu.Unlock()
		return domain.Transfer{}, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	l.records[t.ID] = &record{t: t}
	l.seq = append(l.seq, t.ID)
	l.mu.Unlock()

	log.Printf("level=info component=ledger msg=\"transfer created\" transfer_id=%s country=%q amount=%s status=%s", t.ID, t.DestinationCountry, t.AmountSent, t.Status)
	return t, nil
}

// AdvanceStatus applies a status check to a transfer: with AdvanceChance it
// moves exactly one step forward. advanced reports whether the status
// changed. Checks on the same id are serialized.
func (l *Ledger) AdvanceStatus(ctx context.Context, id string) (t domain.Transfer, advanced bool, err error) {
	rec, err := l.lookup(id)
	if err != nil {
		return domain.Transfer{}, false, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if err := rec.t.Validate(); err != nil {
		log.Printf("level=error component=ledger msg=\"corrupted transfer record\" transfer_id=%s err=%q", id, err)
		return domain.Transfer{}, false, fmt.Errorf("%w: %s: %v", domain.ErrLedgerCorrupted, id, err)
	}

	if next, ok := rec.t.Status.Next(); ok && l.opts.Random.Float64() < l.opts.AdvanceChance {
		from := rec.t.Status
		rec.t.Status = next
		rec.t.UpdatedAt = l.opts.Clock()
		advanced = true
		log.Printf("level=info component=ledger msg=\"transfer advanced\" transfer_id=%s from=%s to=%s", id, from, next)
	}
	return rec.t, advanced, nil
}

// Get returns a transfer without advancing it
func (l *Ledger) Get(ctx context.Context, id string) (domain.Transfer, error) {
	rec, err := l.lookup(id)
	if err != nil {
		return domain.Transfer{}, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if err := rec.t.Validate(); err != nil {
		return domain.Transfer{}, fmt.Errorf("%w: %s: %v", domain.ErrLedgerCorrupted, id, err)
	}
	return rec.t, nil
}

// List returns up to limit transfers, newest first. A non-positive limit
// means DefaultListLimit.
func (l *Ledger) List(ctx context.Context, limit int) []domain.Transfer {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	l.mu.RLock()
	recs := make([]*record, 0, min(limit, len(l.seq)))
	for i := len(l.seq) - 1; i >= 0 && len(recs) < limit; i-- {
		recs = append(recs, l.records[l.seq[i]])
	}
	l.mu.RUnlock()

	out := make([]domain.Transfer, 0, len(recs))
	for _, rec := range recs {
		rec.mu.Lock()
		out = append(out, rec.t)
		rec.mu.Unlock()
	}
	return out
}

// Discard removes a transfer that was never funded. It reports whether the
// transfer existed.
func (l *Ledger) Discard(ctx context.Context, id string) bool {
	id = strings.TrimSpace(id)

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.records[id]; !ok {
		return false
	}
	delete(l.records, id)
	for i := len(l.seq) - 1; i >= 0; i-- {
		if l.seq[i] == id {
			l.seq = append(l.seq[:i], l.seq[i+1:]...)
			break
		}
	}
	log.Printf("level=warn component=ledger msg=\"transfer discarded\" transfer_id=%s", id)
	return true
}

// Len returns the number of stored transfers
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

func (l *Ledger) lookup(id string) (*record, error) {
	l.mu.RLock()
	rec, ok := l.records[strings.TrimSpace(id)]
	l.mu.RUnlock()
	if !ok {
		return nil, domain.ErrTransferNotFound
	}
	return rec, nil
}

// newID must be called with mu held
func (l *Ledger) newID() string {
	for {
		raw := strings.ReplaceAll(uuid.NewString(), "-", "")
		id := "tr_" + raw[:12]
		if _, taken := l.records[id]; !taken {
			return id
		}
	}
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
