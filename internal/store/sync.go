package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/lozio/venues/internal/core"
)

// TxBeginner starts transactions. Satisfied by *pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// RecordError is one record the database rejected.
type RecordError struct {
	Index int    `json:"index"`
	ID    string `json:"id"`
	Error string `json:"error"`
}

// UpsertResult counts the outcome of UpsertAll.
type UpsertResult struct {
	Inserted int
	Updated  int
	Failed   []RecordError
}

// UpsertAll writes records with def.Upsert inside one transaction, isolating
// each record in its own savepoint. A record the database rejects is rolled
// back to its savepoint, logged and counted, and the loop continues. The
// transaction commits once every record has been attempted.
func (s *Store) UpsertAll(ctx context.Context, def core.EntityDefinition, records []any) (UpsertResult, error) {
	return UpsertAll(ctx, s.pool, def, records)
}

// UpsertAll is Store.UpsertAll over any TxBeginner.
func UpsertAll(ctx context.Context, db TxBeginner, def core.EntityDefinition, records []any) (UpsertResult, error) {
	var res UpsertResult
	if !def.SupportsSync() {
		return res, fmt.Errorf("entity %s does not support sync", def.Info.Key)
	}

	log := slog.Default().With("entity", def.Info.Key, "table", def.Info.Table)

	tx, err := db.Begin(ctx)
	if err != nil {
		return res, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // no-op after commit

	for i, rec := range records {
		// Check context before each record to allow prompt cancellation
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("sync cancelled at record %d: %w", i, err)
		}

		id := ""
		if def.ID != nil {
			id = def.ID(rec)
		}

		// PostgreSQL aborts the whole transaction on any error, so each
		// record gets its own savepoint
		savepoint := fmt.Sprintf("sp_%d", i)
		if _, err := tx.Exec(ctx, "SAVEPOINT "+savepoint); err != nil {
			return res, fmt.Errorf("create savepoint for %s: %w", id, err)
		}

		inserted, err := def.Upsert(ctx, tx, rec)
		if err != nil {
			if _, rbErr := tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+savepoint); rbErr != nil {
				return res, fmt.Errorf("rollback savepoint for %s: %w", id, rbErr)
			}
			log.Warn("record rejected", "id", id, "error", err)
			res.Failed = append(res.Failed, RecordError{Index: i, ID: id, Error: err.Error()})
			continue
		}

		if _, err := tx.Exec(ctx, "RELEASE SAVEPOINT "+savepoint); err != nil {
			return res, fmt.Errorf("release savepoint for %s: %w", id, err)
		}

		if inserted {
			res.Inserted++
		} else {
			res.Updated++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return res, fmt.Errorf("commit: %w", err)
	}
	return res, nil
}
