package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/remitflow/remitflow-backend/internal/adapter/dto"
)

func transferCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Track transfers on a running server",
	}
	cmd.AddCommand(transferStatusCmd(), transferListCmd())
	return cmd
}

func transferStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status ID",
		Short: "Check (and possibly advance) a transfer's status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := be.TransferStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  %s\n", t.ID, t.Status)
			fmt.Fprintf(out, "%s %s -> %s %s to %s (%s)\n", t.AmountSent, t.SourceCurrency, t.AmountReceived, t.DestinationCurrency, t.RecipientName, t.DestinationCountry)
			if t.RecipientAccount != "" {
				fmt.Fprintf(out, "Account: %s\n", t.RecipientAccount)
			}
			fmt.Fprintf(out, "Estimated arrival: %s\n", t.EstimatedArrival.Format("2006-01-02 15:04 MST"))
			return nil
		},
	}
}

func transferListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent transfers, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := be.ListTransfers(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printTransfers(cmd.OutOrStdout(), view.Transfers)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of transfers to show")
	return cmd
}

func printTransfers(out io.Writer, transfers []dto.TransferView) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tSENT\tRECEIVED\tRECIPIENT")
	for _, t := range transfers {
		fmt.Fprintf(w, "%s\t%s\t%s %s\t%s %s\t%s\n", t.ID, t.Status, t.AmountSent, t.SourceCurrency, t.AmountReceived, t.DestinationCurrency, t.RecipientName)
	}
	return w.Flush()
}
