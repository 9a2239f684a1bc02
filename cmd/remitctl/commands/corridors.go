package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func corridorsCmd() *cobra.Command {
	var region string
	cmd := &cobra.Command{
		Use:   "corridors",
		Short: "List supported destination countries",
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := be.ListCorridors(cmd.Context(), region)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "COUNTRY\tCURRENCY\tDELIVERY\tREGION")
			for _, c := range view.Corridors {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.Country, c.Currency, c.DeliveryTime, c.Region)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&region, "region", "", "only list corridors in this region")
	return cmd
}
