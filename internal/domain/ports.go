package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Randomness is the source of chance used by the settlement simulation.
// Float64 returns a value in [0, 1).
type Randomness interface {
	Float64() float64
}

// Clock returns the current time
type Clock func() time.Time

// TransferEvent is published on every transfer lifecycle change.
// It never carries recipient banking data.
type TransferEvent struct {
	EventID             string    `json:"event_id"`
	EventType           string    `json:"event_type"`
	TransferID          string    `json:"transfer_id"`
	Status              string    `json:"status"`
	AmountSent          string    `json:"amount_sent"`
	SourceCurrency      string    `json:"source_currency"`
	DestinationCountry  string    `json:"destination_country"`
	DestinationCurrency string    `json:"destination_currency"`
	OccurredAt          time.Time `json:"occurred_at"`
}

// EventPublisher publishes transfer lifecycle events
type EventPublisher interface {
	PublishTransferEvent(ctx context.Context, event TransferEvent) error
}

// DisbursementOrder is handed to the Disburser when a transfer is funded
// from stored recipient details. It is the only structure that carries the
// raw account number outside the vault.
type DisbursementOrder struct {
	TransferID string
	Amount     decimal.Decimal
	Currency   string
	Recipient  string
	Details    RecipientDetails
}

// Disburser funds a transfer with real recipient details
type Disburser interface {
	Disburse(ctx context.Context, order DisbursementOrder) error
}
