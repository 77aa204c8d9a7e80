package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"vgmdb/internal/catalog"
)

// Batch wraps the transaction scoping one import. All reads inside the
// batch observe rows written earlier in the same batch.
type Batch struct {
	tx   *sql.Tx
	done bool
}

// Commit makes every write of the batch durable.
func (b *Batch) Commit() error {
	b.done = true
	if err := b.tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Rollback discards the batch. Safe to call after Commit.
func (b *Batch) Rollback() error {
	if b.done {
		return nil
	}
	b.done = true
	if err := b.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback batch: %w", err)
	}
	return nil
}

// Get fetches one record by primary key through the batch transaction.
func (b *Batch) Get(ctx context.Context, schema *catalog.EntitySchema, pk int64) (*catalog.Record, error) {
	return getRecord(ctx, b.tx, schema, pk)
}

// Exists reports record existence through the batch transaction.
func (b *Batch) Exists(ctx context.Context, schema *catalog.EntitySchema, pk int64) (bool, error) {
	return recordExists(ctx, b.tx, schema, pk)
}

// FindByUnique resolves a natural key through the batch transaction.
func (b *Batch) FindByUnique(ctx context.Context, schema *catalog.EntitySchema, rec *catalog.Record) (int64, bool, error) {
	return findByUnique(ctx, b.tx, schema, rec)
}

// Upsert persists a record under its caller-supplied primary key:
// insert when the key is new, update-in-place when it already exists.
// Many-to-many sets are replaced wholesale. Reports whether a row was
// created.
func (b *Batch) Upsert(ctx context.Context, schema *catalog.EntitySchema, rec *catalog.Record) (bool, error) {
	exists, err := recordExists(ctx, b.tx, schema, rec.PK)
	if err != nil {
		return false, err
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	fields := scalarFields(schema)
	args := make([]any, 0, len(fields)+3)

	if exists {
		sets := make([]string, 0, len(fields)+1)
		for _, f := range fields {
			sets = append(sets, f.Column+" = ?")
			args = append(args, fieldArg(&f, rec.Fields[f.Name]))
		}
		sets = append(sets, "updated_at = ?")
		args = append(args, now, rec.PK)
		query := `UPDATE ` + schema.Table + ` SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
		if _, err := b.tx.ExecContext(ctx, query, args...); err != nil {
			return false, fmt.Errorf("update %s %d: %w", schema.Type, rec.PK, err)
		}
	} else {
		cols := []string{"id"}
		placeholders := []string{"?"}
		args = append(args, rec.PK)
		for _, f := range fields {
			cols = append(cols, f.Column)
			placeholders = append(placeholders, "?")
			args = append(args, fieldArg(&f, rec.Fields[f.Name]))
		}
		cols = append(cols, "created_at", "updated_at")
		placeholders = append(placeholders, "?", "?")
		args = append(args, now, now)
		query := `INSERT INTO ` + schema.Table + ` (` + strings.Join(cols, ", ") + `) VALUES (` + strings.Join(placeholders, ", ") + `)`
		if _, err := b.tx.ExecContext(ctx, query, args...); err != nil {
			return false, fmt.Errorf("insert %s %d: %w", schema.Type, rec.PK, err)
		}
	}

	for _, f := range schema.Fields {
		if f.Kind != catalog.KindManyToMany {
			continue
		}
		if _, err := b.tx.ExecContext(ctx,
			`DELETE FROM `+f.JoinTable+` WHERE `+f.OwnerColumn+` = ?`, rec.PK); err != nil {
			return false, fmt.Errorf("clear %s.%s: %w", schema.Type, f.Name, err)
		}
		for _, ref := range rec.Fields[f.Name].Sorted() {
			if _, err := b.tx.ExecContext(ctx,
				`INSERT INTO `+f.JoinTable+` (`+f.OwnerColumn+`, `+f.RefColumn+`) VALUES (?, ?)`,
				rec.PK, ref); err != nil {
				return false, fmt.Errorf("link %s.%s -> %d: %w", schema.Type, f.Name, ref, err)
			}
		}
	}

	return !exists, nil
}
