package testsupport

import (
	"context"
	"testing"

	"vgmdb/internal/catalog"
	"vgmdb/internal/config"
	"vgmdb/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// UpsertRecord writes one record through a single-record batch.
func UpsertRecord(t testing.TB, st *store.Store, schema *catalog.EntitySchema, rec *catalog.Record) {
	t.Helper()

	ctx := context.Background()
	batch, err := st.BeginBatch(ctx)
	if err != nil {
		t.Fatalf("BeginBatch: %v", err)
	}
	if _, err := batch.Upsert(ctx, schema, rec); err != nil {
		_ = batch.Rollback()
		t.Fatalf("Upsert %s %d: %v", schema.Type, rec.PK, err)
	}
	if err := batch.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
}

// Snapshot captures every stored record keyed by type and primary key,
// for observational store comparison.
func Snapshot(t testing.TB, st *store.Store, reg *catalog.Registry) map[catalog.EntityType]map[int64]*catalog.Record {
	t.Helper()

	ctx := context.Background()
	snapshot := make(map[catalog.EntityType]map[int64]*catalog.Record)
	for _, schema := range reg.Schemas() {
		records, err := st.List(ctx, &schema)
		if err != nil {
			t.Fatalf("List %s: %v", schema.Type, err)
		}
		byPK := make(map[int64]*catalog.Record, len(records))
		for _, rec := range records {
			byPK[rec.PK] = rec
		}
		snapshot[schema.Type] = byPK
	}
	return snapshot
}
