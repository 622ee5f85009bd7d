package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lozio/venues/internal/config"
	"github.com/lozio/venues/internal/importer"
	"github.com/lozio/venues/internal/ledger"
	"github.com/lozio/venues/internal/logging"
)

// app is the state shared by the subcommands, built in PersistentPreRunE.
type app struct {
	cfg      *config.Config
	manifest *importer.Manifest
	ledger   *ledger.Ledger
	pipeline *importer.Pipeline
	dataDir  string

	// flags
	manifestPath string
	dataFlag     string
	outputFlag   string
	encoding     string
	strict       bool
	force        bool
	noLedger     bool
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "lozio",
		Short:         "Import, merge and sync the venue directory data",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.ledger != nil {
				return a.ledger.Close()
			}
			return nil
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.manifestPath, "manifest", "", "job manifest (default $IMPORT_MANIFEST or lozio.yaml)")
	f.StringVar(&a.dataFlag, "data-dir", "", "directory holding the CSV sources")
	f.StringVar(&a.outputFlag, "output-dir", "", "directory receiving the generated files")
	f.StringVar(&a.encoding, "encoding", "", "source encoding: utf-8, windows-1252, iso-8859-1, iso-8859-15")
	f.BoolVar(&a.strict, "strict", false, "fail on an unterminated quoted field instead of absorbing the rest of the file")
	f.BoolVar(&a.force, "force", false, "process sources even when the ledger says they are unchanged")
	f.BoolVar(&a.noLedger, "no-ledger", false, "do not read or write the run ledger")

	root.AddCommand(
		newImportCmd(a),
		newMergeCmd(a),
		newSyncCmd(a),
		newLedgerCmd(a),
		newEntitiesCmd(a),
	)
	return root
}

// setup loads configuration and the manifest and builds the pipeline.
// Flags win over the manifest, which wins over the environment.
func (a *app) setup() error {
	// Load keeps variables already set in the shell
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg
	// stdout is reserved for summaries
	logging.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	if envErr != nil {
		slog.Debug("no .env file loaded", "error", envErr)
	}

	manifestPath := firstNonEmpty(a.manifestPath, cfg.Import.Manifest)
	a.manifest, err = importer.LoadManifest(manifestPath)
	if err != nil {
		return err
	}

	a.dataDir = firstNonEmpty(a.dataFlag, a.manifest.DataDir, cfg.Import.DataDir)
	outputDir := firstNonEmpty(a.outputFlag, a.manifest.OutputDir, cfg.Import.OutputDir)
	encoding := firstNonEmpty(a.encoding, a.manifest.Encoding, cfg.Import.Encoding)

	if !a.noLedger {
		a.ledger, err = ledger.Open(cfg.Import.LedgerPath)
		if err != nil {
			return fmt.Errorf("open ledger %s: %w", cfg.Import.LedgerPath, err)
		}
	}

	a.pipeline = &importer.Pipeline{
		Source:  os.DirFS(a.dataDir),
		Output:  importer.DirOutput{Root: outputDir},
		Reports: importer.DirOutput{Root: filepath.Join(filepath.Dir(cfg.Import.LedgerPath), "reports")},
		Options: importer.Options{
			Strict:      a.strict || cfg.Import.StrictQuotes,
			Force:       a.force,
			Encoding:    encoding,
			MaxFileSize: cfg.Import.MaxFileSize,
			Concurrency: cfg.Import.Concurrency,
		},
		Entities: a.manifest.Definitions(),
	}
	if a.ledger != nil {
		a.pipeline.Ledger = a.ledger
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
