package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/lozio/venues/internal/core"
	"github.com/lozio/venues/internal/ledger"
	"github.com/lozio/venues/internal/store"
)

// Upserter writes mapped records. Satisfied by *store.Store.
type Upserter interface {
	UpsertAll(ctx context.Context, def core.EntityDefinition, records []any) (store.UpsertResult, error)
	// Target names the database written to; a sync is only skipped when the
	// last clean run went to the same target.
	Target() string
}

// SyncResult is the outcome of Sync.
type SyncResult struct {
	Entity    string
	Rows      int
	Inserted  int
	Updated   int
	Skipped   int // rows without an id or excluded by the filter column
	Invalid   int // rows the mapper rejected
	Failed    int // records the database rejected
	Errors    []store.RecordError
	Unchanged bool
}

// Sync maps an entity's source file and upserts every record through up. A
// record the database rejects is counted and the rest are still written.
// The run is recorded in the ledger only when no record failed, so a later
// sync retries the same file. timeout bounds the database work; zero means
// no limit.
func (p *Pipeline) Sync(ctx context.Context, key string, up Upserter, timeout time.Duration) (SyncResult, error) {
	res := SyncResult{Entity: key}

	def, err := p.Definition(key)
	if err != nil {
		return res, err
	}
	if !def.SupportsSync() {
		return res, fmt.Errorf("entity %s cannot be synced to the database", key)
	}
	info := def.Info
	log := p.logger().With("entity", info.Key, "file", info.Source)

	data, err := p.read(info.Source)
	if err != nil {
		return res, err
	}
	sum := p.fingerprint(def, data, up.Target())
	if p.unchanged(ctx, info, sum, ModeSync) {
		res.Unchanged = true
		log.Info("source unchanged since last sync, skipping")
		return res, nil
	}

	mapped, _, err := p.mapSource(def, data)
	if err != nil {
		return res, err
	}
	res.Rows = mapped.Total
	res.Skipped = mapped.Skipped + mapped.Filtered
	res.Invalid = len(mapped.Failed)
	for _, f := range mapped.Failed {
		log.Warn("row rejected", "record", f.Record, "error", f.Reason)
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	out, err := up.UpsertAll(ctx, def, mapped.Records)
	res.Inserted = out.Inserted
	res.Updated = out.Updated
	res.Failed = len(out.Failed)
	res.Errors = out.Failed
	if err != nil {
		return res, fmt.Errorf("sync %s: %w", key, err)
	}

	if res.Failed == 0 {
		p.record(ctx, ledger.Entry{
			Entity:   info.Key,
			File:     info.Source,
			Checksum: sum,
			Mode:     ModeSync,
			Rows:     res.Rows,
			Written:  res.Inserted + res.Updated,
			Skipped:  mapped.Skipped,
			Filtered: mapped.Filtered,
			Failed:   res.Invalid,
		})
	}

	log.Info("sync finished",
		"rows", res.Rows,
		"inserted", res.Inserted,
		"updated", res.Updated,
		"skipped", res.Skipped,
		"invalid", res.Invalid,
		"failed", res.Failed,
	)
	return res, nil
}
