package remittance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/remitflow/remitflow-backend/internal/domain"
	"github.com/remitflow/remitflow-backend/internal/usecase/corridor"
	"github.com/remitflow/remitflow-backend/internal/usecase/transfer"
)

// MockRateProvider is a mock implementation of RateProvider for testing
type MockRateProvider struct {
	mock.Mock
}

func (m *MockRateProvider) GetRates(ctx context.Context) domain.RateSnapshot {
	args := m.Called(ctx)
	return args.Get(0).(domain.RateSnapshot)
}

// MockEventPublisher is a mock implementation of domain.EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishTransferEvent(ctx context.Context, event domain.TransferEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockDisburser is a mock implementation of domain.Disburser for testing
type MockDisburser struct {
	mock.Mock
}

func (m *MockDisburser) Disburse(ctx context.Context, order domain.DisbursementOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

type fixedRandom float64

func (r fixedRandom) Float64() float64 { return float64(r) }

type fixture struct {
	service   *Service
	rates     *MockRateProvider
	events    *MockEventPublisher
	disburser *MockDisburser
	ledger    *transfer.Ledger
}

func newFixture(t *testing.T, roll float64) *fixture {
	t.Helper()

	rates := new(MockRateProvider)
	rates.On("GetRates", mock.Anything).Return(domain.RateSnapshot{
		Base: domain.BaseCurrency,
		Rates: map[string]decimal.Decimal{
			"USD": decimal.NewFromInt(1),
			"MXN": decimal.RequireFromString("17.5"),
			"COP": decimal.RequireFromString("3950"),
		},
		FetchedAt: time.Date(2026, 3, 14, 8, 30, 0, 0, time.UTC),
		Source:    domain.RateSourceLive,
	}).Maybe()

	ledger, err := transfer.NewLedger(transfer.Options{
		InitialProcessingChance: 0.3,
		AdvanceChance:           0.5,
		Random:                  fixedRandom(roll),
	})
	require.NoError(t, err)

	events := new(MockEventPublisher)
	disburser := new(MockDisburser)
	service, err := NewService(corridor.MustDefault(), rates, ledger, events, disburser, Options{})
	require.NoError(t, err)

	return &fixture{
		service:   service,
		rates:     rates,
		events:    events,
		disburser: disburser,
		ledger:    ledger,
	}
}

func eventOfType(eventType string) interface{} {
	return mock.MatchedBy(func(e domain.TransferEvent) bool { return e.EventType == eventType })
}

func TestPriceAndCreateTransfer_Mexico(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0.9)
	f.events.On("PublishTransferEvent", mock.Anything, eventOfType(EventTransferCreated)).Return(nil).Once()

	tr, err := f.service.PriceAndCreateTransfer(ctx, CreateTransferInput{
		Amount:        decimal.NewFromInt(100),
		Country:       "mexico",
		RecipientName: "Maria",
	})

	require.NoError(t, err)
	assert.Equal(t, "2.99", tr.Fee.StringFixed(2))
	assert.Equal(t, "97.01", tr.NetAmount.StringFixed(2))
	assert.Equal(t, "1697.68", tr.AmountReceived.StringFixed(2))
	assert.Equal(t, "Mexico", tr.DestinationCountry)
	assert.Equal(t, "MXN", tr.DestinationCurrency)
	assert.Equal(t, domain.TransferStatusPending, tr.Status)
	assert.Empty(t, tr.RecipientReference)

	f.events.AssertExpectations(t)
}

func TestPriceAndCreateTransfer_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   CreateTransferInput
		wantErr error
	}{
		{
			name:    "above the per-transfer limit",
			input:   CreateTransferInput{Amount: decimal.NewFromInt(5001), Country: "Mexico", RecipientName: "Maria"},
			wantErr: domain.ErrLimitExceeded,
		},
		{
			name:    "unsupported corridor",
			input:   CreateTransferInput{Amount: decimal.NewFromInt(100), Country: "Atlantis", RecipientName: "Maria"},
			wantErr: domain.ErrUnsupportedCorridor,
		},
		{
			name:    "no rate for the corridor currency",
			input:   CreateTransferInput{Amount: decimal.NewFromInt(100), Country: "Kenya", RecipientName: "Wanjiru"},
			wantErr: domain.ErrRateUnavailable,
		},
		{
			name:    "zero amount",
			input:   CreateTransferInput{Amount: decimal.Zero, Country: "Mexico", RecipientName: "Maria"},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "missing recipient",
			input:   CreateTransferInput{Amount: decimal.NewFromInt(100), Country: "Mexico", RecipientName: " "},
			wantErr: domain.ErrInvalidRequest,
		},
		{
			name:    "missing country",
			input:   CreateTransferInput{Amount: decimal.NewFromInt(100), RecipientName: "Maria"},
			wantErr: domain.ErrInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 0.9)

			_, err := f.service.PriceAndCreateTransfer(context.Background(), tt.input)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 0, f.ledger.Len(), "no record is created on failure")
			f.events.AssertNotCalled(t, "PublishTransferEvent", mock.Anything, mock.Anything)
		})
	}
}

func TestResolveCorridor(t *testing.T) {
	f := newFixture(t, 0.9)

	cor, ok := f.service.ResolveCorridor("  COLOMBIA ")
	require.True(t, ok)
	assert.Equal(t, "COP", cor.Currency)

	_, ok = f.service.ResolveCorridor("Atlantis")
	assert.False(t, ok)
}

func TestListCorridors(t *testing.T) {
	f := newFixture(t, 0.9)

	assert.Len(t, f.service.ListCorridors(""), len(corridor.DefaultCorridors))
	for _, cor := range f.service.ListCorridors("africa") {
		assert.Equal(t, domain.RegionAfrica, cor.Region)
	}
}

func TestQuoteTransfer_CreatesNothing(t *testing.T) {
	f := newFixture(t, 0.9)

	quote, err := f.service.QuoteTransfer(context.Background(), QuoteInput{Amount: decimal.NewFromInt(1000), Country: "Colombia"})

	require.NoError(t, err)
	assert.Equal(t, "15.00", quote.Pricing.Fee.StringFixed(2))
	assert.Equal(t, "3890750.00", quote.Pricing.AmountReceived.StringFixed(2))
	assert.Equal(t, domain.RateSourceLive, quote.RateSource)
	assert.Equal(t, 0, f.ledger.Len())
}

func TestGetTransferStatus_PublishesOnAdvance(t *testing.T) {
	ctx := context.Background()
	// 0.4 keeps new transfers pending and always advances a status check
	f := newFixture(t, 0.4)
	f.events.On("PublishTransferEvent", mock.Anything, eventOfType(EventTransferCreated)).Return(nil).Once()
	f.events.On("PublishTransferEvent", mock.Anything, eventOfType("transfer.status.processing")).Return(nil).Once()
	f.events.On("PublishTransferEvent", mock.Anything, eventOfType("transfer.status.completed")).Return(nil).Once()

	tr, err := f.service.PriceAndCreateTransfer(ctx, CreateTransferInput{Amount: decimal.NewFromInt(100), Country: "Mexico", RecipientName: "Maria"})
	require.NoError(t, err)
	require.Equal(t, domain.TransferStatusPending, tr.Status)

	first, err := f.service.GetTransferStatus(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusProcessing, first.Status)

	second, err := f.service.GetTransferStatus(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusCompleted, second.Status)

	third, err := f.service.GetTransferStatus(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusCompleted, third.Status)

	f.events.AssertExpectations(t)
}

func TestGetTransferStatus_NotFound(t *testing.T) {
	f := newFixture(t, 0.9)

	_, err := f.service.GetTransferStatus(context.Background(), "tr_000000000000")
	assert.ErrorIs(t, err, domain.ErrTransferNotFound)

	_, err = f.service.GetTransferStatus(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestPublishFailureDoesNotFailTransfer(t *testing.T) {
	f := newFixture(t, 0.9)
	f.events.On("PublishTransferEvent", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	_, err := f.service.PriceAndCreateTransfer(context.Background(), CreateTransferInput{Amount: decimal.NewFromInt(100), Country: "Mexico", RecipientName: "Maria"})

	assert.NoError(t, err)
	assert.Equal(t, 1, f.ledger.Len())
}

func TestFundTransferFromSession_Colombia(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0.9)
	f.events.On("PublishTransferEvent", mock.Anything, eventOfType(EventTransferCreated)).Return(nil).Once()

	receipt, err := f.service.StoreRecipientDetails("s1", domain.RecipientDetails{
		AccountNumber: "78800058952",
		DocumentID:    "CC 1020304050",
		BankName:      "Bancolombia",
	})
	require.NoError(t, err)
	assert.Equal(t, "...8952", receipt.MaskedAccount)
	assert.NotContains(t, receipt.Reference+receipt.MaskedAccount, "78800058952")

	f.disburser.On("Disburse", mock.Anything, mock.MatchedBy(func(order domain.DisbursementOrder) bool {
		return order.Details.AccountNumber == "78800058952" &&
			order.Details.DocumentID == "CC 1020304050" &&
			order.Currency == "COP" &&
			order.Recipient == "Edison"
	})).Return(nil).Once()

	tr, err := f.service.FundTransferFromSession(ctx, FundTransferInput{
		SessionID:     "s1",
		Amount:        decimal.NewFromInt(200),
		Country:       "Colombia",
		RecipientName: "Edison",
	})

	require.NoError(t, err)
	assert.Equal(t, "...8952", tr.RecipientAccount)
	assert.Equal(t, receipt.Reference, tr.RecipientReference)
	assert.Equal(t, "Colombia", tr.DestinationCountry)

	rendered := fmt.Sprintf("%+v", tr)
	assert.NotContains(t, rendered, "78800058952")
	encoded, err := json.Marshal(tr)
	require.NoError(t, err)
	assert.NotContains(t, string(encoded), "78800058952")

	f.disburser.AssertExpectations(t)
	f.events.AssertExpectations(t)
}

func TestFundTransferFromSession_UnknownSession(t *testing.T) {
	f := newFixture(t, 0.9)

	_, err := f.service.FundTransferFromSession(context.Background(), FundTransferInput{
		SessionID:     "missing",
		Amount:        decimal.NewFromInt(200),
		Country:       "Colombia",
		RecipientName: "Edison",
	})

	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.Equal(t, 0, f.ledger.Len())
	f.disburser.AssertNotCalled(t, "Disburse", mock.Anything, mock.Anything)
}

func TestFundTransferFromSession_PricingErrorSkipsDisbursement(t *testing.T) {
	f := newFixture(t, 0.9)
	_, err := f.service.StoreRecipientDetails("s1", domain.RecipientDetails{AccountNumber: "78800058952"})
	require.NoError(t, err)

	_, err = f.service.FundTransferFromSession(context.Background(), FundTransferInput{
		SessionID:     "s1",
		Amount:        decimal.NewFromInt(9000),
		Country:       "Colombia",
		RecipientName: "Edison",
	})

	assert.ErrorIs(t, err, domain.ErrLimitExceeded)
	assert.Equal(t, 0, f.ledger.Len())
	f.disburser.AssertNotCalled(t, "Disburse", mock.Anything, mock.Anything)
}

func TestFundTransferFromSession_DisbursementFailure(t *testing.T) {
	f := newFixture(t, 0.9)
	_, err := f.service.StoreRecipientDetails("s1", domain.RecipientDetails{AccountNumber: "78800058952"})
	require.NoError(t, err)
	f.disburser.On("Disburse", mock.Anything, mock.Anything).Return(errors.New("rail offline"))

	_, err = f.service.FundTransferFromSession(context.Background(), FundTransferInput{
		SessionID:     "s1",
		Amount:        decimal.NewFromInt(200),
		Country:       "Colombia",
		RecipientName: "Edison",
	})

	require.Error(t, err)
	assert.Equal(t, "Something went wrong on our side. Please try again later.", domain.PublicMessage(err))
	assert.NotContains(t, err.Error(), "78800058952")
	f.events.AssertNotCalled(t, "PublishTransferEvent", mock.Anything, mock.Anything)

	assert.Equal(t, 0, f.ledger.Len(), "an unpaid transfer is not kept")
	assert.Empty(t, f.service.ListTransfers(context.Background(), 0))
}

func TestFundTransferFromSession_PaysTheAccountItShows(t *testing.T) {
	f := newFixture(t, 0.9)
	f.events.On("PublishTransferEvent", mock.Anything, mock.Anything).Return(nil)

	var (
		mu        sync.Mutex
		disbursed = make(map[string]string)
	)
	f.disburser.On("Disburse", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			order := args.Get(1).(domain.DisbursementOrder)
			mu.Lock()
			disbursed[order.TransferID] = order.Details.AccountNumber
			mu.Unlock()
		}).
		Return(nil)

	accounts := []string{"1111111111", "2222222222"}
	_, err := f.service.StoreRecipientDetails("s1", domain.RecipientDetails{AccountNumber: accounts[0]})
	require.NoError(t, err)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			_, err := f.service.StoreRecipientDetails("s1", domain.RecipientDetails{AccountNumber: accounts[i%2]})
			assert.NoError(t, err)
		}
	}()

	var funded []domain.Transfer
	for i := 0; i < 500; i++ {
		tr, err := f.service.FundTransferFromSession(context.Background(), FundTransferInput{
			SessionID: "s1", Amount: decimal.NewFromInt(20), Country: "Mexico", RecipientName: "Ana",
		})
		require.NoError(t, err)
		funded = append(funded, tr)
	}
	close(stop)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	for _, tr := range funded {
		assert.Equal(t, tr.RecipientAccount, domain.MaskAccount(disbursed[tr.ID]), "transfer %s", tr.ID)
	}
}

func TestEndSession(t *testing.T) {
	f := newFixture(t, 0.9)
	_, err := f.service.StoreRecipientDetails("s1", domain.RecipientDetails{AccountNumber: "78800058952"})
	require.NoError(t, err)

	assert.True(t, f.service.EndSession("s1"))
	assert.False(t, f.service.EndSession("s1"))

	_, err = f.service.FundTransferFromSession(context.Background(), FundTransferInput{
		SessionID: "s1", Amount: decimal.NewFromInt(200), Country: "Colombia", RecipientName: "Edison",
	})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestListTransfers(t *testing.T) {
	f := newFixture(t, 0.9)
	f.events.On("PublishTransferEvent", mock.Anything, mock.Anything).Return(nil)

	for _, name := range []string{"Ana", "Luis", "Sofia"} {
		_, err := f.service.PriceAndCreateTransfer(context.Background(), CreateTransferInput{Amount: decimal.NewFromInt(50), Country: "Mexico", RecipientName: name})
		require.NoError(t, err)
	}

	got := f.service.ListTransfers(context.Background(), 2)
	require.Len(t, got, 2)
	assert.Equal(t, "Sofia", got[0].RecipientName)
	assert.Equal(t, "Luis", got[1].RecipientName)
}

func TestParseAmount(t *testing.T) {
	amount, err := ParseAmount(" 100.50 ")
	require.NoError(t, err)
	assert.Equal(t, "100.5", amount.String())

	_, err = ParseAmount("")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = ParseAmount("ten dollars")
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestSweepSessions(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	ledger, err := transfer.NewLedger(transfer.Options{Random: fixedRandom(0.9)})
	require.NoError(t, err)
	service, err := NewService(corridor.MustDefault(), new(MockRateProvider), ledger, nil, new(MockDisburser), Options{
		SessionTTL: time.Minute,
		Clock:      func() time.Time { return now },
	})
	require.NoError(t, err)

	_, err = service.StoreRecipientDetails("s1", domain.RecipientDetails{AccountNumber: "78800058952"})
	require.NoError(t, err)

	assert.Equal(t, 0, service.SweepSessions(now.Add(30*time.Second)))
	assert.Equal(t, 1, service.SweepSessions(now.Add(2*time.Minute)))

	_, err = service.FundTransferFromSession(context.Background(), FundTransferInput{
		SessionID: "s1", Amount: decimal.NewFromInt(200), Country: "Colombia", RecipientName: "Edison",
	})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
