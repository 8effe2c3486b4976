package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var agingClientID int64

func init() {
	agingCmd.Flags().Int64Var(&agingClientID, "client-id", 0, "limit the report to one client (0 = all)")
}

var agingCmd = &cobra.Command{
	Use:   "aging",
	Short: "Print the accounts receivable aging report",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		report, err := a.services.Aging.GetAgingReport(ctx, agingClientID)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "BUCKET\tINVOICES\tOUTSTANDING")
		for _, b := range report.Buckets {
			fmt.Fprintf(w, "%s\t%d\t%.2f\n", b.Label, b.Count, b.TotalAmount)
		}
		fmt.Fprintf(w, "total\t\t%.2f\n", report.TotalOutstanding)
		return w.Flush()
	},
}
