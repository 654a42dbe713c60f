package main

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newLatestCmd(a *app) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "latest <dataset>",
		Short: "Print the latest release of a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.registryStore().Load(cmd.Context())
			if err != nil {
				return err
			}
			rel, err := reg.Resolve(args[0], filter)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(rel); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "only consider releases with a file URL containing this token")
	return cmd
}
