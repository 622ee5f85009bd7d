package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lozio/venues/internal/importer"
	"github.com/lozio/venues/internal/store"
)

func newSyncCmd(a *app) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "sync <entity>...",
		Short: "Upsert mapped records into Postgres",
		Long: `Maps each entity's CSV source and upserts the records into its table.
Each record runs in its own savepoint: a record the database rejects is
reported and the rest still commit.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.RequireDatabase(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			pool, err := store.Connect(ctx, a.cfg.Database)
			if err != nil {
				return err
			}
			defer pool.Close()

			st := store.New(pool)
			if migrate {
				if err := st.Migrate(ctx); err != nil {
					return err
				}
			}

			var failed int
			for _, key := range args {
				res, err := a.pipeline.Sync(ctx, key, st, a.cfg.Import.SyncTimeout)
				if err != nil {
					return err
				}
				printSync(cmd, res)
				failed += res.Failed
			}
			if failed > 0 {
				return fmt.Errorf("%d records were rejected by the database", failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "create missing tables before syncing")
	return cmd
}

func printSync(cmd *cobra.Command, res importer.SyncResult) {
	out := cmd.OutOrStdout()
	if res.Unchanged {
		fmt.Fprintf(out, "%s: unchanged\n", res.Entity)
		return
	}
	fmt.Fprintf(out, "%s: rows=%d inserted=%d updated=%d skipped=%d invalid=%d failed=%d\n",
		res.Entity, res.Rows, res.Inserted, res.Updated, res.Skipped, res.Invalid, res.Failed)
	for _, e := range res.Errors {
		fmt.Fprintf(out, "  record %d (%s): %s\n", e.Index, e.ID, e.Error)
	}
}
