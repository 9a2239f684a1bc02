package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/remitflow/remitflow-backend/internal/adapter/dto"
)

func quoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quote AMOUNT COUNTRY",
		Short: "Price a transfer without creating it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := be.Quote(cmd.Context(), dto.QuoteRequest{Amount: json.Number(args[0]), Country: args[1]})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Send:      %s USD\n", q.AmountSent)
			fmt.Fprintf(out, "Fee:       %s USD\n", q.Fee)
			fmt.Fprintf(out, "Net:       %s USD\n", q.NetAmount)
			fmt.Fprintf(out, "Rate:      1 USD = %s %s (%s)\n", q.ExchangeRate, q.Currency, q.RateSource)
			fmt.Fprintf(out, "Receives:  %s %s\n", q.AmountReceived, q.Currency)
			fmt.Fprintf(out, "Delivery:  %s to %s\n", q.DeliveryTime, q.Country)
			return nil
		},
	}
}
