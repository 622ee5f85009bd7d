package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMergeCmd(a *app) *cobra.Command {
	var entity string

	cmd := &cobra.Command{
		Use:   "merge <file.json>",
		Short: "Append curated records to a generated data file",
		Long: `Reads a JSON object holding an array named after the entity's constant
(for venues, {"venues": [...]}) and appends every record whose id is not
already present in the generated file. Existing records are left untouched.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			res, err := a.pipeline.Merge(entity, path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: added=%d duplicates=%d skipped=%d\n",
				entity, res.Added, res.Duplicates, res.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVarP(&entity, "entity", "e", "venues", "entity whose generated file receives the records")
	return cmd
}
