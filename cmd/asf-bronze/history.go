package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nestauk/asf-mission-data-tool/pkg/ledger"
)

var errNoLedger = errors.New("no run ledger configured (set ASF_LEDGER_PATH or ledger_path)")

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent dataset runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.LedgerPath == "" {
				return errNoLedger
			}
			l, err := ledger.Open(a.cfg.LedgerPath)
			if err != nil {
				return err
			}
			defer func() { _ = l.Close() }()

			runs, err := l.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "STARTED\tDATASET\tFILTER\tRELEASE\tSTATE\tFILES\tOPERATOR")
			for _, r := range runs {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
					r.StartedAt.Local().Format(time.DateTime), r.Dataset, dash(r.Filter),
					dash(r.ReleaseDate), r.State, len(r.Locations), dash(r.Operator))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs to show")
	return cmd
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
