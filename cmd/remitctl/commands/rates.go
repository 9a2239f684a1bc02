package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func ratesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rates [CURRENCY...]",
		Short: "Print the current USD exchange rates",
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := be.Rates(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Base: %s  Source: %s  Fetched: %s\n", view.Base, view.Source, view.FetchedAt.Format("2006-01-02 15:04:05 MST"))

			codes := args
			if len(codes) == 0 {
				for code := range view.Rates {
					codes = append(codes, code)
				}
				sort.Strings(codes)
			}
			for _, code := range codes {
				rate, ok := view.Rates[code]
				if !ok {
					rate = "unavailable"
				}
				fmt.Fprintf(out, "%s %s\n", code, rate)
			}
			return nil
		},
	}
}
