package fixture

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"vgmdb/internal/catalog"
	"vgmdb/internal/store"
)

// ExportOptions selects what the Exporter writes and where.
type ExportOptions struct {
	Dir    string
	App    string // empty exports every logical group
	Format Format
}

// ExportSummary reports what an export produced.
type ExportSummary struct {
	Files   []string
	Records int
	PerType map[catalog.EntityType]int
}

// Exporter serializes the catalog into fixture files.
type Exporter struct {
	Store    *store.Store
	Registry *catalog.Registry
	Log      *slog.Logger
}

// Export writes one fixture file per entity type into the target
// directory, in dependency order, overwriting prior contents. Entries
// within a file are ordered by ascending primary key.
func (e *Exporter) Export(ctx context.Context, opts ExportOptions) (*ExportSummary, error) {
	order, err := catalog.OrderAll(e.Registry)
	if err != nil {
		return nil, err
	}

	if opts.App != "" {
		if !e.knownApp(opts.App) {
			return nil, fmt.Errorf("unknown app %q", opts.App)
		}
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create fixture directory %q: %w", opts.Dir, err)
	}

	summary := &ExportSummary{PerType: make(map[catalog.EntityType]int)}
	for _, t := range order {
		schema, _ := e.Registry.Lookup(string(t))
		if opts.App != "" && schema.App != opts.App {
			continue
		}

		records, err := e.Store.List(ctx, schema)
		if err != nil {
			return nil, err
		}
		entries := make([]Entry, 0, len(records))
		for _, rec := range records {
			entries = append(entries, entryFromRecord(schema, rec))
		}

		path := filepath.Join(opts.Dir, FileName(schema, opts.Format))
		if err := writeFile(path, entries, schema, opts.Format); err != nil {
			return nil, err
		}
		// A prior export in the other encoding would shadow this file
		// during discovery, so it cannot survive.
		stale := filepath.Join(opts.Dir, FileName(schema, opts.Format.counterpart()))
		if err := os.Remove(stale); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("remove stale fixture %s: %w", stale, err)
		}

		summary.Files = append(summary.Files, path)
		summary.Records += len(entries)
		summary.PerType[t] = len(entries)
		e.Log.Info("exported fixture",
			slog.String("model", string(t)),
			slog.Int("records", len(entries)),
			slog.String("path", path))
	}
	return summary, nil
}

func (e *Exporter) knownApp(app string) bool {
	for _, known := range e.Registry.Apps() {
		if known == app {
			return true
		}
	}
	return false
}

func writeFile(path string, entries []Entry, schema *catalog.EntitySchema, format Format) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create fixture %s: %w", path, err)
	}
	if err := Encode(file, entries, schema, format); err != nil {
		_ = file.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close fixture %s: %w", path, err)
	}
	return nil
}
