// Package app assembles the remittance core from configuration. It is
// shared by the server and the remitctl CLI.
package app

import (
	"fmt"

	"github.com/remitflow/remitflow-backend/internal/adapter/disbursement"
	"github.com/remitflow/remitflow-backend/internal/adapter/ratesource"
	"github.com/remitflow/remitflow-backend/internal/config"
	"github.com/remitflow/remitflow-backend/internal/domain"
	"github.com/remitflow/remitflow-backend/internal/usecase/corridor"
	"github.com/remitflow/remitflow-backend/internal/usecase/fee"
	"github.com/remitflow/remitflow-backend/internal/usecase/rates"
	"github.com/remitflow/remitflow-backend/internal/usecase/remittance"
	"github.com/remitflow/remitflow-backend/internal/usecase/transfer"
)

// Core holds the assembled service and the rate provider the scheduler warms
type Core struct {
	Service *remittance.Service
	Rates   *rates.Provider
}

// NewCore builds the remittance core. A nil publisher drops events.
func NewCore(cfg *config.Config, events domain.EventPublisher) (*Core, error) {
	catalog := corridor.MustDefault()

	provider := rates.NewProvider(
		ratesource.NewClient(cfg.RatesURL, cfg.RatesFetchTimeout),
		rates.Options{
			TTL:            cfg.RatesTTL,
			FetchTimeout:   cfg.RatesFetchTimeout,
			FailureBackoff: cfg.RatesFailureBackoff,
		},
	)

	ledger, err := transfer.NewLedger(transfer.Options{
		Fees: fee.Schedule{
			Rate:    cfg.FeeRate(),
			Floor:   cfg.FeeMin,
			Ceiling: cfg.FeeMax,
		},
		MaxAmount:               cfg.MaxTransferAmount,
		InitialProcessingChance: cfg.InitialProcessingChance,
		AdvanceChance:           cfg.StatusAdvanceChance,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger: %w", err)
	}

	service, err := remittance.NewService(catalog, provider, ledger, events, disbursement.NewSimulated(), remittance.Options{
		SessionTTL: cfg.VaultSessionTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create remittance service: %w", err)
	}
	return &Core{Service: service, Rates: provider}, nil
}
