// Package dto holds the wire shapes shared by the HTTP and gRPC transports.
// Decimals travel as strings; timestamps as RFC 3339.
package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/remitflow/remitflow-backend/internal/domain"
	"github.com/remitflow/remitflow-backend/internal/usecase/remittance"
)

// CountryRequest represents a corridor lookup
type CountryRequest struct {
	Country string `json:"country"`
}

// RegionRequest represents a corridor listing, optionally filtered
type RegionRequest struct {
	Region string `json:"region"`
}

// QuoteRequest represents a price preview request
type QuoteRequest struct {
	Amount  json.Number `json:"amount"`
	Country string      `json:"country"`
}

// CreateTransferRequest represents a transfer creation request
type CreateTransferRequest struct {
	Amount        json.Number `json:"amount"`
	Country       string      `json:"country"`
	RecipientName string      `json:"recipient_name"`
}

// FundTransferRequest represents a session-funded transfer request
type FundTransferRequest struct {
	SessionID     string      `json:"session_id"`
	Amount        json.Number `json:"amount"`
	Country       string      `json:"country"`
	RecipientName string      `json:"recipient_name"`
}

// TransferIDRequest identifies a transfer
type TransferIDRequest struct {
	ID string `json:"id"`
}

// ListTransfersRequest represents a transfer listing
type ListTransfersRequest struct {
	Limit int `json:"limit"`
}

// StoreRecipientRequest carries raw recipient bank details into the vault
type StoreRecipientRequest struct {
	SessionID     string `json:"session_id"`
	AccountNumber string `json:"account_number"`
	DocumentID    string `json:"document_id"`
	Address       string `json:"address"`
	BankName      string `json:"bank_name"`
	AccountType   string `json:"account_type"`
}

// SessionRequest identifies a chat session
type SessionRequest struct {
	SessionID string `json:"session_id"`
}

// Input converts the request into a service input
func (r QuoteRequest) Input() (remittance.QuoteInput, error) {
	amount, err := remittance.ParseAmount(r.Amount.String())
	if err != nil {
		return remittance.QuoteInput{}, err
	}
	return remittance.QuoteInput{Amount: amount, Country: r.Country}, nil
}

// Input converts the request into a service input
func (r CreateTransferRequest) Input() (remittance.CreateTransferInput, error) {
	amount, err := remittance.ParseAmount(r.Amount.String())
	if err != nil {
		return remittance.CreateTransferInput{}, err
	}
	return remittance.CreateTransferInput{Amount: amount, Country: r.Country, RecipientName: r.RecipientName}, nil
}

// Input converts the request into a service input
func (r FundTransferRequest) Input() (remittance.FundTransferInput, error) {
	amount, err := remittance.ParseAmount(r.Amount.String())
	if err != nil {
		return remittance.FundTransferInput{}, err
	}
	return remittance.FundTransferInput{
		SessionID:     r.SessionID,
		Amount:        amount,
		Country:       r.Country,
		RecipientName: r.RecipientName,
	}, nil
}

// Details converts the request into vault input
func (r StoreRecipientRequest) Details() domain.RecipientDetails {
	return domain.RecipientDetails{
		AccountNumber: r.AccountNumber,
		DocumentID:    r.DocumentID,
		Address:       r.Address,
		BankName:      r.BankName,
		AccountType:   r.AccountType,
	}
}

// CorridorView is the wire form of a corridor
type CorridorView struct {
	Country      string `json:"country"`
	Currency     string `json:"currency"`
	DeliveryTime string `json:"delivery_time"`
	Region       string `json:"region"`
}

// CorridorLookupView answers a corridor lookup
type CorridorLookupView struct {
	Found    bool          `json:"found"`
	Corridor *CorridorView `json:"corridor,omitempty"`
}

// CorridorListView answers a corridor listing
type CorridorListView struct {
	Corridors []CorridorView `json:"corridors"`
}

// RatesView is the wire form of a rate snapshot
type RatesView struct {
	Base      string            `json:"base"`
	Source    string            `json:"source"`
	FetchedAt time.Time         `json:"fetched_at"`
	Rates     map[string]string `json:"rates"`
}

// QuoteView is the wire form of a price preview
type QuoteView struct {
	Country        string    `json:"country"`
	Currency       string    `json:"currency"`
	DeliveryTime   string    `json:"delivery_time"`
	AmountSent     string    `json:"amount_sent"`
	Fee            string    `json:"fee"`
	NetAmount      string    `json:"net_amount"`
	ExchangeRate   string    `json:"exchange_rate"`
	AmountReceived string    `json:"amount_received"`
	RateSource     string    `json:"rate_source"`
	RateFetchedAt  time.Time `json:"rate_fetched_at"`
}

// TransferView is the wire form of a transfer. It only ever carries the
// masked account.
type TransferView struct {
	ID                  string    `json:"id"`
	AmountSent          string    `json:"amount_sent"`
	SourceCurrency      string    `json:"source_currency"`
	Fee                 string    `json:"fee"`
	NetAmount           string    `json:"net_amount"`
	ExchangeRate        string    `json:"exchange_rate"`
	AmountReceived      string    `json:"amount_received"`
	RecipientName       string    `json:"recipient_name"`
	DestinationCountry  string    `json:"destination_country"`
	DestinationCurrency string    `json:"destination_currency"`
	Status              string    `json:"status"`
	RecipientReference  string    `json:"recipient_reference,omitempty"`
	RecipientAccount    string    `json:"recipient_account,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
	EstimatedArrival    time.Time `json:"estimated_arrival"`
}

// TransferListView answers a transfer listing
type TransferListView struct {
	Transfers []TransferView `json:"transfers"`
}

// ReceiptView is the masked result of storing recipient details
type ReceiptView struct {
	Reference     string `json:"reference"`
	MaskedAccount string `json:"masked_account"`
}

// EndSessionView answers a session end
type EndSessionView struct {
	Forgotten bool `json:"forgotten"`
}

// ErrorView is the body of every error response
type ErrorView struct {
	Error string `json:"error"`
}

// NewCorridorView converts a corridor
func NewCorridorView(c domain.Corridor) CorridorView {
	return CorridorView{
		Country:      c.Country,
		Currency:     c.Currency,
		DeliveryTime: c.DeliveryTime,
		Region:       string(c.Region),
	}
}

// NewCorridorListView converts a corridor listing
func NewCorridorListView(corridors []domain.Corridor) CorridorListView {
	out := CorridorListView{Corridors: make([]CorridorView, 0, len(corridors))}
	for _, c := range corridors {
		out.Corridors = append(out.Corridors, NewCorridorView(c))
	}
	return out
}

// NewCorridorLookupView converts a corridor lookup result
func NewCorridorLookupView(c domain.Corridor, found bool) CorridorLookupView {
	if !found {
		return CorridorLookupView{}
	}
	view := NewCorridorView(c)
	return CorridorLookupView{Found: true, Corridor: &view}
}

// NewRatesView converts a rate snapshot
func NewRatesView(s domain.RateSnapshot) RatesView {
	rates := make(map[string]string, len(s.Rates))
	for code, rate := range s.Rates {
		rates[code] = rate.String()
	}
	return RatesView{
		Base:      s.Base,
		Source:    string(s.Source),
		FetchedAt: s.FetchedAt.UTC(),
		Rates:     rates,
	}
}

// NewQuoteView converts a quote
func NewQuoteView(q remittance.Quote) QuoteView {
	return QuoteView{
		Country:        q.Corridor.Country,
		Currency:       q.Corridor.Currency,
		DeliveryTime:   q.Corridor.DeliveryTime,
		AmountSent:     money(q.Pricing.AmountSent),
		Fee:            money(q.Pricing.Fee),
		NetAmount:      money(q.Pricing.NetAmount),
		ExchangeRate:   q.Pricing.ExchangeRate.String(),
		AmountReceived: money(q.Pricing.AmountReceived),
		RateSource:     string(q.RateSource),
		RateFetchedAt:  q.Pricing.RateFetchedAt.UTC(),
	}
}

// NewTransferView converts a transfer
func NewTransferView(t domain.Transfer) TransferView {
	return TransferView{
		ID:                  t.ID,
		AmountSent:          money(t.AmountSent),
		SourceCurrency:      t.SourceCurrency,
		Fee:                 money(t.Fee),
		NetAmount:           money(t.NetAmount),
		ExchangeRate:        t.ExchangeRate.String(),
		AmountReceived:      money(t.AmountReceived),
		RecipientName:       t.RecipientName,
		DestinationCountry:  t.DestinationCountry,
		DestinationCurrency: t.DestinationCurrency,
		Status:              string(t.Status),
		RecipientReference:  t.RecipientReference,
		RecipientAccount:    t.RecipientAccount,
		CreatedAt:           t.CreatedAt.UTC(),
		UpdatedAt:           t.UpdatedAt.UTC(),
		EstimatedArrival:    t.EstimatedArrival.UTC(),
	}
}

// NewTransferListView converts a transfer listing
func NewTransferListView(transfers []domain.Transfer) TransferListView {
	out := TransferListView{Transfers: make([]TransferView, 0, len(transfers))}
	for _, t := range transfers {
		out.Transfers = append(out.Transfers, NewTransferView(t))
	}
	return out
}

// NewReceiptView converts a vault receipt
func NewReceiptView(r domain.RecipientReceipt) ReceiptView {
	return ReceiptView{Reference: r.Reference, MaskedAccount: r.MaskedAccount}
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
