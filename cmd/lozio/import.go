package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lozio/venues/internal/importer"
)

func newImportCmd(a *app) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "import [entity...]",
		Short: "Regenerate data files from the CSV sources",
		Long: `Reads each entity's CSV source, maps the rows and replaces the generated
data file. Without arguments every known entity is imported. Sources whose
checksum matches the last recorded import are skipped unless --force is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sums, err := a.pipeline.RunAll(ctx, args...)
			printSummaries(cmd.OutOrStdout(), sums)
			if !watch {
				return err
			}
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
			}

			w := &importer.Watcher{
				Pipeline: watchPipeline(a.pipeline, args),
				Dir:      a.dataDir,
				Debounce: a.cfg.Import.WatchDebounce,
				OnImport: func(s importer.Summary, err error) {
					if err == nil {
						printSummaries(cmd.OutOrStdout(), []importer.Summary{s})
					}
				},
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "watching %s (ctrl-c to stop)\n", a.dataDir)
			return w.Watch(ctx)
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep running and re-import sources when they change")
	cmd.ValidArgsFunction = func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return entityKeys(a), cobra.ShellCompDirectiveNoFileComp
	}
	return cmd
}

// watchPipeline narrows the pipeline to the named entities. Watched
// re-imports always run, since a change event means the source differs.
func watchPipeline(p *importer.Pipeline, keys []string) *importer.Pipeline {
	w := *p
	w.Options.Force = true
	if len(keys) == 0 {
		return &w
	}
	w.Entities = nil
	for _, key := range keys {
		if def, err := p.Definition(key); err == nil {
			w.Entities = append(w.Entities, def)
		}
	}
	return &w
}

func printSummaries(out io.Writer, sums []importer.Summary) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, s := range sums {
		if s.Entity == "" {
			continue
		}
		if s.Unchanged {
			fmt.Fprintf(tw, "%s\t%s\tunchanged\n", s.Entity, s.Source)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s -> %s\trows=%d\twritten=%d\tskipped=%d\tfiltered=%d\tfailed=%d",
			s.Entity, s.Source, s.Output, s.Rows, s.Written, s.Skipped, s.Filtered, s.Failed)
		if s.Report != "" {
			fmt.Fprintf(tw, "\treport=%s", s.Report)
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()
}

func entityKeys(a *app) []string {
	if a.pipeline == nil {
		if err := a.setup(); err != nil {
			return nil
		}
	}
	var keys []string
	for _, def := range a.pipeline.Definitions() {
		keys = append(keys, def.Info.Key)
	}
	return keys
}
