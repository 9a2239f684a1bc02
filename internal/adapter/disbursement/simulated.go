// Package disbursement pays transfers out to recipient accounts. Only a
// simulated rail exists; no money moves.
package disbursement

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/remitflow/remitflow-backend/internal/domain"
)

// Simulated accepts every well-formed order and logs it with the account
// masked.
type Simulated struct{}

// NewSimulated creates a new Simulated disburser
func NewSimulated() *Simulated {
	return &Simulated{}
}

// Disburse validates the order and records it in the log
func (s *Simulated) Disburse(ctx context.Context, order domain.DisbursementOrder) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(order.TransferID) == "" {
		return fmt.Errorf("%w: disbursement order has no transfer id", domain.ErrInvalidRequest)
	}
	if err := order.Details.Validate(); err != nil {
		return err
	}
	log.Printf("level=info component=disbursement mode=simulated msg=\"payout submitted\" transfer_id=%s amount=%s currency=%s account=%s",
		order.TransferID, order.Amount.StringFixed(2), order.Currency, order.Details.Masked())
	return nil
}
