package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/JFreegman/toxstats/internal/core/aggregation"
	"github.com/JFreegman/toxstats/internal/core/storage"
)

type countKey struct {
	period  string
	country string
}

type entryKey struct {
	identifier string
	period     string
}

// unit buffers dedup records and count deltas in memory and writes them in
// its transaction at Commit. Purges and membership checks go to the
// transaction immediately so later checks in the unit see them.
type unit struct {
	tx   *sql.Tx
	done bool

	records    map[entryKey]struct{}
	counts     map[countKey]int64
	checkpoint int64
	advanced   bool
}

func newUnit(tx *sql.Tx) *unit {
	return &unit{
		tx:      tx,
		records: make(map[entryKey]struct{}),
		counts:  make(map[countKey]int64),
	}
}

func (u *unit) Contains(ctx context.Context, identifier string, p aggregation.Period) (bool, error) {
	if u.done {
		return false, storage.ErrUnitClosed
	}
	key := p.Key()
	if _, ok := u.records[entryKey{identifier, key}]; ok {
		return true, nil
	}
	var exists bool
	if err := u.tx.QueryRowContext(ctx, queryContainsEntry, identifier, key).Scan(&exists); err != nil {
		return false, fmt.Errorf("dedup contains: %w", err)
	}
	return exists, nil
}

func (u *unit) Record(_ context.Context, identifier string, p aggregation.Period) error {
	if u.done {
		return storage.ErrUnitClosed
	}
	u.records[entryKey{identifier, p.Key()}] = struct{}{}
	return nil
}

func (u *unit) Purge(ctx context.Context, p aggregation.Period) (int64, error) {
	if u.done {
		return 0, storage.ErrUnitClosed
	}
	key := p.Key()
	var buffered int64
	for k := range u.records {
		if k.period == key {
			delete(u.records, k)
			buffered++
		}
	}

	res, err := u.tx.ExecContext(ctx, queryPurgeEntries, key)
	if err != nil {
		return 0, fmt.Errorf("dedup purge %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("dedup purge %s: rows affected: %w", key, err)
	}
	return n + buffered, nil
}

func (u *unit) Increment(p aggregation.Period, country string) {
	u.counts[countKey{p.Key(), country}]++
}

func (u *unit) AdvanceCheckpoint(ts int64) {
	u.checkpoint = ts
	u.advanced = true
}

// Commit locks the checkpoint row, rejects a stale advance, then writes
// buffered records, count deltas and the checkpoint in the same transaction.
func (u *unit) Commit(ctx context.Context) error {
	if u.done {
		return storage.ErrUnitClosed
	}
	defer u.Rollback() //nolint:errcheck

	if u.advanced {
		durable, err := u.lockCheckpoint(ctx)
		if err != nil {
			return err
		}
		if u.checkpoint <= durable {
			slog.Warn("[Postgres] Rejecting stale checkpoint advance",
				"checkpoint", u.checkpoint,
				"durable_checkpoint", durable)
			return fmt.Errorf("unit commit: %w", storage.ErrStaleCheckpoint)
		}
	}

	if err := u.flushRecords(ctx); err != nil {
		return err
	}
	if err := u.flushCounts(ctx); err != nil {
		return err
	}

	if u.advanced {
		res, err := u.tx.ExecContext(ctx, queryUpdateCheckpoint, u.checkpoint, storage.CheckpointName)
		if err != nil {
			return fmt.Errorf("unit commit: write checkpoint: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("unit commit: check checkpoint write: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("unit commit: checkpoint row missing")
		}
	}

	if err := u.tx.Commit(); err != nil {
		return fmt.Errorf("unit commit: %w", err)
	}
	u.done = true

	slog.Debug("[Postgres] Unit committed",
		"records", len(u.records),
		"counts", len(u.counts),
		"checkpoint_advanced", u.advanced)
	return nil
}

func (u *unit) lockCheckpoint(ctx context.Context) (int64, error) {
	var durable int64
	err := u.tx.QueryRowContext(ctx, querySelectCheckpointForUpdate, storage.CheckpointName).Scan(&durable)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := u.tx.ExecContext(ctx, queryInitCheckpointRow, storage.CheckpointName); err != nil {
			return 0, fmt.Errorf("unit commit: init checkpoint row: %w", err)
		}
		err = u.tx.QueryRowContext(ctx, querySelectCheckpointForUpdate, storage.CheckpointName).Scan(&durable)
		if err != nil {
			return 0, fmt.Errorf("unit commit: read initialized checkpoint for update: %w", err)
		}
		return durable, nil
	}
	if err != nil {
		return 0, fmt.Errorf("unit commit: read checkpoint for update: %w", err)
	}
	return durable, nil
}

func (u *unit) flushRecords(ctx context.Context) error {
	if len(u.records) == 0 {
		return nil
	}
	keys := make([]entryKey, 0, len(u.records))
	for k := range u.records {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].period != keys[j].period {
			return keys[i].period < keys[j].period
		}
		return keys[i].identifier < keys[j].identifier
	})

	stmt, err := u.tx.PrepareContext(ctx, queryInsertEntry)
	if err != nil {
		return fmt.Errorf("unit commit: prepare dedup insert: %w", err)
	}
	defer stmt.Close()

	for _, k := range keys {
		if _, err := stmt.ExecContext(ctx, k.identifier, k.period); err != nil {
			return fmt.Errorf("unit commit: insert dedup %s@%s: %w", k.identifier, k.period, err)
		}
	}
	return nil
}

func (u *unit) flushCounts(ctx context.Context) error {
	if len(u.counts) == 0 {
		return nil
	}
	keys := make([]countKey, 0, len(u.counts))
	for k := range u.counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].period != keys[j].period {
			return keys[i].period < keys[j].period
		}
		return keys[i].country < keys[j].country
	})

	stmt, err := u.tx.PrepareContext(ctx, queryUpsertCount)
	if err != nil {
		return fmt.Errorf("unit commit: prepare count upsert: %w", err)
	}
	defer stmt.Close()

	for _, k := range keys {
		if _, err := stmt.ExecContext(ctx, k.period, k.country, u.counts[k]); err != nil {
			return fmt.Errorf("unit commit: upsert count %s/%s: %w", k.period, k.country, err)
		}
	}
	return nil
}

func (u *unit) Rollback() error {
	if u.done {
		return nil
	}
	u.done = true
	if err := u.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("unit rollback: %w", err)
	}
	return nil
}
