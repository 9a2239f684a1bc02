package remittance

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/remitflow/remitflow-backend/internal/domain"
	"github.com/remitflow/remitflow-backend/internal/usecase/corridor"
	"github.com/remitflow/remitflow-backend/internal/usecase/remittance/internal/vault"
	"github.com/remitflow/remitflow-backend/internal/usecase/transfer"
)

const (
	EventTransferCreated      = "transfer.created"
	EventTransferStatusPrefix = "transfer.status."
)

// RateProvider serves the current rate snapshot. It never fails.
type RateProvider interface {
	GetRates(ctx context.Context) domain.RateSnapshot
}

// QuoteInput represents the input for pricing a transfer without creating it
type QuoteInput struct {
	Amount  decimal.Decimal
	Country string
}

// CreateTransferInput represents the input for creating a transfer
type CreateTransferInput struct {
	Amount        decimal.Decimal
	Country       string
	RecipientName string
}

// FundTransferInput represents the input for creating a transfer funded
// from the recipient details stored for a session
type FundTransferInput struct {
	SessionID     string
	Amount        decimal.Decimal
	Country       string
	RecipientName string
}

// Quote is a price preview for a corridor
type Quote struct {
	Corridor   domain.Corridor
	Pricing    domain.Pricing
	RateSource domain.RateSource
}

// Options tunes the session vault owned by the service
type Options struct {
	// SessionTTL is how long stored recipient details survive without use
	SessionTTL time.Duration
	Clock      domain.Clock
}

// Service is the entry point used by every transport. Raw recipient details
// live in a vault only this package can open.
type Service struct {
	corridors *corridor.Catalog
	rates     RateProvider
	ledger    *transfer.Ledger
	vault     *vault.Vault
	events    domain.EventPublisher
	disburser domain.Disburser
	clock     domain.Clock
}

// NewService creates a new Service instance. A nil publisher drops events.
func NewService(
	corridors *corridor.Catalog,
	rates RateProvider,
	ledger *transfer.Ledger,
	events domain.EventPublisher,
	disburser domain.Disburser,
	opts Options,
) (*Service, error) {
	if events == nil {
		events = discardEvents{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	recipients, err := vault.New(vault.Options{SessionTTL: opts.SessionTTL, Clock: opts.Clock})
	if err != nil {
		return nil, err
	}
	return &Service{
		corridors: corridors,
		rates:     rates,
		ledger:    ledger,
		vault:     recipients,
		events:    events,
		disburser: disburser,
		clock:     opts.Clock,
	}, nil
}

// ParseAmount converts a transport amount into a decimal
func ParseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, fmt.Errorf("%w: amount is required", domain.ErrInvalidRequest)
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a number", domain.ErrInvalidAmount, raw)
	}
	return amount, nil
}

// ResolveCorridor looks a destination up by country name
func (s *Service) ResolveCorridor(country string) (domain.Corridor, bool) {
	return s.corridors.Find(country)
}

// ListCorridors returns corridors grouped by region. An empty region lists
// every corridor.
func (s *Service) ListCorridors(region string) []domain.Corridor {
	return s.corridors.Filter(region)
}

// GetRateSnapshot returns the current rate table
func (s *Service) GetRateSnapshot(ctx context.Context) domain.RateSnapshot {
	return s.rates.GetRates(ctx)
}

// QuoteTransfer prices an amount for a country without creating a record
func (s *Service) QuoteTransfer(ctx context.Context, input QuoteInput) (Quote, error) {
	cor, err := s.corridorFor(input.Country)
	if err != nil {
		return Quote{}, err
	}
	snap := s.rates.GetRates(ctx)
	pricing, err := s.ledger.Quote(input.Amount, cor, snap)
	if err != nil {
		return Quote{}, err
	}
	return Quote{Corridor: cor, Pricing: pricing, RateSource: snap.Source}, nil
}

// PriceAndCreateTransfer prices a transfer and records it
// Logic:
//  1. Validate the recipient and resolve the corridor
//  2. Quote against the current rate snapshot
//  3. Create the ledger record and publish transfer.created
//
// No record is created when any step fails.
func (s *Service) PriceAndCreateTransfer(ctx context.Context, input CreateTransferInput) (domain.Transfer, error) {
	recipient, err := requireRecipient(input.RecipientName)
	if err != nil {
		return domain.Transfer{}, err
	}
	quote, err := s.QuoteTransfer(ctx, QuoteInput{Amount: input.Amount, Country: input.Country})
	if err != nil {
		return domain.Transfer{}, err
	}

	t, err := s.ledger.Create(ctx, recipient, quote.Corridor, quote.Pricing, transfer.CreateOptions{})
	if err != nil {
		return domain.Transfer{}, err
	}
	s.publish(ctx, EventTransferCreated, t)
	return t, nil
}

// GetTransferStatus runs a status check on a transfer. The status moves at
// most one step forward per check.
func (s *Service) GetTransferStatus(ctx context.Context, id string) (domain.Transfer, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Transfer{}, fmt.Errorf("%w: transfer id is required", domain.ErrInvalidRequest)
	}
	t, advanced, err := s.ledger.AdvanceStatus(ctx, id)
	if err != nil {
		return domain.Transfer{}, err
	}
	if advanced {
		s.publish(ctx, EventTransferStatusPrefix+string(t.Status), t)
	}
	return t, nil
}

// ListTransfers returns recent transfers, newest first
func (s *Service) ListTransfers(ctx context.Context, limit int) []domain.Transfer {
	return s.ledger.List(ctx, limit)
}

// StoreRecipientDetails keeps raw bank details for a session and returns
// the masked receipt
func (s *Service) StoreRecipientDetails(sessionID string, raw domain.RecipientDetails) (domain.RecipientReceipt, error) {
	return s.vault.Store(sessionID, raw)
}

// FundTransferFromSession creates a transfer paid out to the recipient
// details stored for a session.
// Logic:
//  1. Validate the recipient and resolve the session entry (NotFound when absent);
//     receipt and raw details come from the same entry
//  2. Price the transfer
//  3. Record the transfer with the reference and masked account
//  4. Hand the raw details to the Disburser only; a failed payout discards the record
//
// The returned transfer never carries the raw account number.
func (s *Service) FundTransferFromSession(ctx context.Context, input FundTransferInput) (domain.Transfer, error) {
	recipient, err := requireRecipient(input.RecipientName)
	if err != nil {
		return domain.Transfer{}, err
	}
	receipt, raw, err := s.vault.Resolve(input.SessionID)
	if err != nil {
		return domain.Transfer{}, err
	}
	quote, err := s.QuoteTransfer(ctx, QuoteInput{Amount: input.Amount, Country: input.Country})
	if err != nil {
		return domain.Transfer{}, err
	}

	t, err := s.ledger.Create(ctx, recipient, quote.Corridor, quote.Pricing, transfer.CreateOptions{
		RecipientReference: receipt.Reference,
		RecipientAccount:   receipt.MaskedAccount,
	})
	if err != nil {
		return domain.Transfer{}, err
	}

	if s.disburser != nil {
		order := domain.DisbursementOrder{
			TransferID: t.ID,
			Amount:     t.AmountReceived,
			Currency:   t.DestinationCurrency,
			Recipient:  t.RecipientName,
			Details:    raw,
		}
		if err := s.disburser.Disburse(ctx, order); err != nil {
			log.Printf("level=error component=remittance msg=\"disbursement failed\" transfer_id=%s reference=%s err=%v", t.ID, receipt.Reference, err)
			s.ledger.Discard(ctx, t.ID)
			return domain.Transfer{}, fmt.Errorf("disburse transfer %s: %w", t.ID, err)
		}
	}

	s.publish(ctx, EventTransferCreated, t)
	return t, nil
}

// EndSession drops any recipient details stored for a session
func (s *Service) EndSession(sessionID string) bool {
	return s.vault.Forget(sessionID)
}

// SweepSessions drops recipient details idle for longer than the session
// TTL and returns how many were removed
func (s *Service) SweepSessions(now time.Time) int {
	return s.vault.Sweep(now)
}

func (s *Service) corridorFor(country string) (domain.Corridor, error) {
	country = strings.TrimSpace(country)
	if country == "" {
		return domain.Corridor{}, fmt.Errorf("%w: destination country is required", domain.ErrInvalidRequest)
	}
	cor, ok := s.corridors.Find(country)
	if !ok {
		return domain.Corridor{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedCorridor, country)
	}
	return cor, nil
}

func requireRecipient(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: recipient name is required", domain.ErrInvalidRequest)
	}
	return name, nil
}

// publish is best effort; a broker outage never fails a transfer
func (s *Service) publish(ctx context.Context, eventType string, t domain.Transfer) {
	event := domain.TransferEvent{
		EventID:             uuid.NewString(),
		EventType:           eventType,
		TransferID:          t.ID,
		Status:              string(t.Status),
		AmountSent:          t.AmountSent.StringFixed(2),
		SourceCurrency:      t.SourceCurrency,
		DestinationCountry:  t.DestinationCountry,
		DestinationCurrency: t.DestinationCurrency,
		OccurredAt:          s.clock().UTC(),
	}
	if err := s.events.PublishTransferEvent(ctx, event); err != nil {
		log.Printf("level=warn component=remittance msg=\"failed to publish transfer event\" event_type=%s transfer_id=%s err=%v", eventType, t.ID, err)
	}
}

type discardEvents struct{}

func (discardEvents) PublishTransferEvent(context.Context, domain.TransferEvent) error { return nil }
