// Package importer turns the CSV files under the data directory into
// generated data files, merges hand-curated records into them and pushes
// mapped records to Postgres.
//
// A Pipeline is built once per command from configuration: it reads sources
// through an fs.FS, writes through an Output and consults an optional ledger
// so that unchanged inputs are not processed twice.
package importer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/lozio/venues/internal/core"
	"github.com/lozio/venues/internal/csvparse"
	"github.com/lozio/venues/internal/export"
	"github.com/lozio/venues/internal/ledger"
)

// Ledger modes.
const (
	ModeImport = "import"
	ModeSync   = "sync"
)

// ErrFileTooLarge is returned for sources above Options.MaxFileSize.
var ErrFileTooLarge = errors.New("file exceeds maximum size")

// Ledger remembers the checksum of the last successful run per entity.
// Satisfied by *ledger.Ledger.
type Ledger interface {
	Lookup(ctx context.Context, entity, file, mode string) (ledger.Entry, bool, error)
	Record(ctx context.Context, e ledger.Entry) (ledger.Entry, error)
}

// Options tune a Pipeline.
type Options struct {
	Strict      bool   // fail on an unterminated quoted field
	Force       bool   // ignore the ledger
	Encoding    string // source encoding, see core.DecodeText
	MaxFileSize int64  // 0 means unlimited
	Concurrency int    // RunAll parallelism, at least 1
}

// Pipeline imports entities. Source is rooted at the data directory and
// Output at the output directory. Reports and Ledger are optional.
type Pipeline struct {
	Source   fs.FS
	Output   Output
	Reports  Output
	Ledger   Ledger
	Options  Options
	Entities []core.EntityDefinition // nil means every registered entity
	Logger   *slog.Logger
}

// Summary is the outcome of importing one entity.
type Summary struct {
	Entity    string
	Source    string
	Output    string
	Checksum  string // SHA-256 of the source bytes
	Rows      int
	Written   int
	Skipped   int
	Filtered  int
	Failed    int
	Report    string // failed-rows report, if one was written
	Unchanged bool   // source matched the ledger; nothing was written
}

// Definitions returns the entities this pipeline knows.
func (p *Pipeline) Definitions() []core.EntityDefinition {
	if p.Entities != nil {
		return p.Entities
	}
	return core.All()
}

// Definition returns the entity registered under key.
func (p *Pipeline) Definition(key string) (core.EntityDefinition, error) {
	for _, def := range p.Definitions() {
		if def.Info.Key == key {
			return def, nil
		}
	}
	return core.EntityDefinition{}, fmt.Errorf("unknown entity %q", key)
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// Run imports one entity: the source is read, parsed and mapped, and the
// generated file is replaced as a whole. When the source and the settings
// that shape the output match the last recorded import and the output still
// exists, nothing is written unless Options.Force is set.
func (p *Pipeline) Run(ctx context.Context, key string) (Summary, error) {
	def, err := p.Definition(key)
	if err != nil {
		return Summary{}, err
	}
	info := def.Info
	sum := Summary{Entity: info.Key, Source: info.Source, Output: info.Output}
	log := p.logger().With("entity", info.Key, "file", info.Source)

	data, err := p.read(info.Source)
	if err != nil {
		return sum, err
	}
	sum.Checksum = checksum(data)
	fp := p.fingerprint(def, data, "")

	if p.unchanged(ctx, info, fp, ModeImport) {
		if _, err := p.Output.ReadFile(info.Output); err == nil {
			sum.Unchanged = true
			log.Info("source unchanged, skipping")
			return sum, nil
		}
	}

	res, rows, err := p.mapSource(def, data)
	if err != nil {
		return sum, err
	}
	sum.Rows = res.Total
	sum.Written = len(res.Records)
	sum.Skipped = res.Skipped
	sum.Filtered = res.Filtered
	sum.Failed = len(res.Failed)

	content, err := export.Render(info.ConstName, res.Records)
	if err != nil {
		return sum, err
	}
	if err := p.Output.WriteFile(info.Output, content); err != nil {
		return sum, fmt.Errorf("write %s: %w", info.Output, err)
	}

	if len(res.Failed) > 0 && p.Reports != nil {
		name := info.Key + ".failed.csv"
		if err := p.Reports.WriteFile(name, []byte(FailedReport(rows[0], res.Failed))); err != nil {
			log.Warn("failed to write report", "error", err)
		} else {
			sum.Report = name
		}
	}

	p.record(ctx, ledger.Entry{
		Entity:   info.Key,
		File:     info.Source,
		Checksum: fp,
		Mode:     ModeImport,
		Rows:     sum.Rows,
		Written:  sum.Written,
		Skipped:  sum.Skipped,
		Filtered: sum.Filtered,
		Failed:   sum.Failed,
	})

	log.Info("import finished",
		"output", info.Output,
		"rows", sum.Rows,
		"written", sum.Written,
		"skipped", sum.Skipped,
		"filtered", sum.Filtered,
		"failed", sum.Failed,
	)
	return sum, nil
}

// RunAll imports the given entities, or every known entity when keys is
// empty. Jobs run concurrently and independently: a failing job does not
// stop the others. Summaries follow the order of keys; the error joins every
// job error.
func (p *Pipeline) RunAll(ctx context.Context, keys ...string) ([]Summary, error) {
	if len(keys) == 0 {
		for _, def := range p.Definitions() {
			keys = append(keys, def.Info.Key)
		}
	}

	limit := p.Options.Concurrency
	if limit < 1 {
		limit = 1
	}

	summaries := make([]Summary, len(keys))
	var (
		mu   sync.Mutex
		errs []error
	)

	var g errgroup.Group
	g.SetLimit(limit)
	for i, key := range keys {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sum, err := p.Run(ctx, key)
			summaries[i] = sum
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summaries, err
	}
	return summaries, errors.Join(errs...)
}

// read returns the content of a source file, enforcing MaxFileSize.
func (p *Pipeline) read(name string) ([]byte, error) {
	if p.Options.MaxFileSize > 0 {
		st, err := fs.Stat(p.Source, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		if st.Size() > p.Options.MaxFileSize {
			return nil, fmt.Errorf("%s: %w (%d > %d bytes)", name, ErrFileTooLarge, st.Size(), p.Options.MaxFileSize)
		}
	}
	data, err := fs.ReadFile(p.Source, name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// mapSource decodes, parses and maps a source file. rows is the parsed
// input, header first.
func (p *Pipeline) mapSource(def core.EntityDefinition, data []byte) (core.MapResult, [][]string, error) {
	name := def.Info.Source

	text, err := core.DecodeText(data, p.Options.Encoding)
	if err != nil {
		return core.MapResult{}, nil, fmt.Errorf("%s: %w", name, err)
	}

	var rows [][]string
	if p.Options.Strict {
		rows, err = csvparse.ParseStrict(text)
		if err != nil {
			return core.MapResult{}, nil, fmt.Errorf("%s: %w", name, err)
		}
	} else {
		rows = csvparse.Parse(text)
	}

	res, err := core.MapRows(rows, def)
	if err != nil {
		return res, rows, fmt.Errorf("%s: %w", name, err)
	}
	return res, rows, nil
}

// fingerprint hashes the source bytes together with everything else that
// decides what a run produces: the encoding, the quote mode, the resolved
// entity info and field rules, and for syncs the target database. Changes to
// the Go code of a typed entity's Build are not covered; use Force.
func (p *Pipeline) fingerprint(def core.EntityDefinition, data []byte, target string) string {
	h := sha256.New()
	h.Write(data)
	fmt.Fprintf(h, "\x00encoding=%s\x00strict=%t\x00target=%s\x00",
		encodingName(p.Options.Encoding), p.Options.Strict, target)
	info := def.Info
	for _, v := range []string{info.Key, info.Source, info.Output, info.ConstName,
		info.IDColumn, info.IDKey, info.FilterColumn, info.Table} {
		fmt.Fprintf(h, "%q,", v)
	}
	for _, f := range def.FieldSpecs {
		fmt.Fprintf(h, "\x00%q,%q,%d,%t,%t", f.Name, f.Key, f.Type, f.Omit, f.Required)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// encodingName folds the spellings DecodeText treats as UTF-8.
func encodingName(enc string) string {
	switch name := strings.ToLower(strings.TrimSpace(enc)); name {
	case "", "utf8":
		return "utf-8"
	default:
		return name
	}
}

// unchanged reports whether the ledger's last run of mode for this entity
// and file has the fingerprint sum.
func (p *Pipeline) unchanged(ctx context.Context, info core.EntityInfo, sum, mode string) bool {
	if p.Ledger == nil || p.Options.Force {
		return false
	}
	last, ok, err := p.Ledger.Lookup(ctx, info.Key, info.Source, mode)
	if err != nil {
		p.logger().Warn("ledger lookup failed", "entity", info.Key, "error", err)
		return false
	}
	return ok && last.Checksum == sum
}

func (p *Pipeline) record(ctx context.Context, e ledger.Entry) {
	if p.Ledger == nil {
		return
	}
	if _, err := p.Ledger.Record(ctx, e); err != nil {
		p.logger().Warn("ledger record failed", "entity", e.Entity, "error", err)
	}
}

// FailedReport renders rejected rows as CSV: the original header followed by
// record number and error columns, then one row per rejected input row.
func FailedReport(header []string, failed []core.FailedRow) string {
	out := make([][]string, 0, len(failed)+1)
	out = append(out, append(append([]string(nil), header...), "_record", "_error"))
	for _, f := range failed {
		row := core.PadRow(append([]string(nil), f.Data...), len(header))
		out = append(out, append(row, strconv.Itoa(f.Record), f.Reason))
	}
	return csvparse.Format(out)
}

func checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
