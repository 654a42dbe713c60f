package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newDatasetsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "List the datasets in the registry with their latest release",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.registryStore().Load(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "DATASET\tLATEST\tARCHIVED")
			for _, name := range reg.DatasetNames() {
				latest, archived := "-", "no"
				if rel, err := reg.Resolve(name, ""); err == nil {
					latest = rel.ReleaseDate
					if len(rel.FileBronze) > 0 {
						archived = "yes"
					}
				}
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", name, latest, archived)
			}
			return tw.Flush()
		},
	}
}
