package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newEntitiesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "entities",
		Short: "List the entities the importer knows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tSOURCE\tOUTPUT\tCONST\tID\tSYNC")
			for _, def := range a.pipeline.Definitions() {
				info := def.Info
				sync := "-"
				if def.SupportsSync() {
					sync = info.Table
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					info.Key, info.Source, info.Output, info.ConstName, info.IDColumn, sync)
			}
			return tw.Flush()
		},
	}
}
