package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// TransferStatus is the settlement state of a transfer
type TransferStatus string

const (
	TransferStatusPending    TransferStatus = "pending"
	TransferStatusProcessing TransferStatus = "processing"
	TransferStatusCompleted  TransferStatus = "completed"
)

// Valid reports whether the status is one of the known states
func (s TransferStatus) Valid() bool {
	switch s {
	case TransferStatusPending, TransferStatusProcessing, TransferStatusCompleted:
		return true
	}
	return false
}

// Next returns the single state that follows s. Terminal and unknown states
// return themselves with ok=false.
func (s TransferStatus) Next() (TransferStatus, bool) {
	switch s {
	case TransferStatusPending:
		return TransferStatusProcessing, true
	case TransferStatusProcessing:
		return TransferStatusCompleted, true
	default:
		return s, false
	}
}

// Terminal reports whether no further transition is possible
func (s TransferStatus) Terminal() bool {
	return s == TransferStatusCompleted
}

// Pricing is the result of quoting an amount for a corridor.
// It is a pure value and does not create a transfer.
type Pricing struct {
	AmountSent     decimal.Decimal
	Fee            decimal.Decimal
	NetAmount      decimal.Decimal
	ExchangeRate   decimal.Decimal
	AmountReceived decimal.Decimal
	Currency       string
	RateFetchedAt  time.Time
}

// Transfer is a ledger record. Values handed out by the ledger are copies.
type Transfer struct {
	ID                  string
	AmountSent          decimal.Decimal
	SourceCurrency      string
	Fee                 decimal.Decimal
	NetAmount           decimal.Decimal
	ExchangeRate        decimal.Decimal // Snapshot at creation, never re-derived
	AmountReceived      decimal.Decimal
	RecipientName       string
	DestinationCountry  string
	DestinationCurrency string
	Status              TransferStatus
	RecipientReference  string // Set for session-funded transfers
	RecipientAccount    string // Masked account, never the raw number
	CreatedAt           time.Time
	UpdatedAt           time.Time
	EstimatedArrival    time.Time
}

// Validate checks the record invariants. A failure here means the ledger
// holds a corrupted record.
func (t *Transfer) Validate() error {
	if t.ID == "" {
		return errors.New("transfer id cannot be empty")
	}
	if !t.Status.Valid() {
		return errors.New("transfer status " + string(t.Status) + " is not a known state")
	}
	if t.AmountSent.LessThanOrEqual(decimal.Zero) {
		return errors.New("transfer amount must be positive")
	}
	if !t.NetAmount.Equal(t.AmountSent.Sub(t.Fee)) {
		return errors.New("transfer net amount must equal amount sent minus fee")
	}
	if t.ExchangeRate.LessThanOrEqual(decimal.Zero) {
		return errors.New("transfer exchange rate must be positive")
	}
	return nil
}
