package fixture

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"vgmdb/internal/catalog"
	"vgmdb/internal/store"
)

// Mode selects whether an import persists or only validates.
type Mode int

const (
	// DryRun performs every validation and reference-resolution step
	// without writing, aggregating all problems found.
	DryRun Mode = iota
	// Commit persists the batch inside one transaction; the first
	// unresolvable problem rolls the whole batch back.
	Commit
)

func (m Mode) String() string {
	if m == Commit {
		return "commit"
	}
	return "dry_run"
}

// Summary reports the outcome of one import pass.
type Summary struct {
	RunID   string
	Mode    Mode
	Total   int
	Created int
	Updated int
	PerType map[catalog.EntityType]int

	// Problems collects every error found in dry-run mode, or the
	// problems of the aborting entry in commit mode.
	Problems ProblemList
}

// Failed reports whether the pass found any problem.
func (s *Summary) Failed() bool { return len(s.Problems) > 0 }

// Importer loads fixture entries into the store.
type Importer struct {
	Store    *store.Store
	Registry *catalog.Registry
	Log      *slog.Logger
}

// Run processes a batch of entries. Groups are ordered by entity-type
// dependency; entries within a group keep file order so authors control
// natural-key disambiguation. Re-running the same batch in commit mode
// is idempotent: records land as update-in-place under their primary
// key.
//
// The returned error is non-nil for fatal conditions: schema
// mismatches, dependency cycles, storage failures, and, in commit mode,
// the aborting ProblemList. A dry run with problems returns a nil error
// and carries them in Summary.Problems.
func (im *Importer) Run(ctx context.Context, entries []Entry, mode Mode) (*Summary, error) {
	summary := &Summary{
		RunID:   uuid.NewString(),
		Mode:    mode,
		PerType: make(map[catalog.EntityType]int),
	}
	started := time.Now().UTC()

	groups := make(map[catalog.EntityType][]Entry)
	var types []catalog.EntityType
	for _, entry := range entries {
		schema, ok := im.Registry.Lookup(entry.Model)
		if !ok {
			return nil, &SchemaMismatchError{Model: entry.Model}
		}
		if _, seen := groups[schema.Type]; !seen {
			types = append(types, schema.Type)
		}
		groups[schema.Type] = append(groups[schema.Type], entry)
	}

	order, err := catalog.Order(im.Registry, types)
	if err != nil {
		return nil, err
	}

	var view store.Reader = im.Store
	var batch *store.Batch
	if mode == Commit {
		batch, err = im.Store.BeginBatch(ctx)
		if err != nil {
			return nil, err
		}
		defer func() { _ = batch.Rollback() }()
		view = batch
	}

	state := newBatchState()

	for _, t := range order {
		schema, _ := im.Registry.Lookup(string(t))
		for _, entry := range groups[t] {
			rec, problems, err := im.prepare(ctx, view, state, schema, entry)
			if err != nil {
				return nil, err
			}

			if len(problems) > 0 {
				summary.Problems = append(summary.Problems, problems...)
				if mode == Commit {
					im.Log.Error("import aborted",
						slog.String("model", string(t)),
						slog.Int64("pk", entry.PK),
						slog.Int("problems", len(problems)))
					return summary, summary.Problems
				}
				// Later entries may reference this one; count it as
				// present so a single broken record does not cascade
				// into spurious reference problems.
				state.add(schema, rec)
				summary.Total++
				summary.PerType[t]++
				continue
			}

			var created bool
			if mode == Commit {
				created, err = batch.Upsert(ctx, schema, rec)
				if err != nil {
					return nil, err
				}
			} else {
				exists, err := view.Exists(ctx, schema, rec.PK)
				if err != nil {
					return nil, err
				}
				created = !exists && !state.has(schema.Type, rec.PK)
			}

			state.add(schema, rec)
			summary.Total++
			summary.PerType[t]++
			if created {
				summary.Created++
			} else {
				summary.Updated++
			}
		}
	}

	if mode == Commit {
		if err := batch.Commit(); err != nil {
			return nil, err
		}
		run := &store.ImportRun{
			ID:         summary.RunID,
			Mode:       mode.String(),
			StartedAt:  started,
			FinishedAt: time.Now().UTC(),
			Total:      summary.Total,
			Created:    summary.Created,
			Updated:    summary.Updated,
		}
		if err := im.Store.RecordRun(ctx, run); err != nil {
			return nil, err
		}
	}

	im.Log.Info("import finished",
		slog.String("mode", mode.String()),
		slog.Int("total", summary.Total),
		slog.Int("created", summary.Created),
		slog.Int("updated", summary.Updated),
		slog.Int("problems", len(summary.Problems)))
	return summary, nil
}

// prepare validates one entry and resolves its references against the
// batch-so-far plus stored state. It returns the record ready to
// persist and the problems found; a schema mismatch is returned as a
// fatal error instead.
func (im *Importer) prepare(ctx context.Context, view store.Reader, state *batchState, schema *catalog.EntitySchema, entry Entry) (*catalog.Record, []Problem, error) {
	for name := range entry.Fields {
		field, ok := schema.Field(name)
		if !ok || field.Kind == catalog.KindAutoTime {
			return nil, nil, &SchemaMismatchError{Model: entry.Model, Field: name}
		}
	}

	rec := catalog.NewRecord(schema.Type, entry.PK)
	var problems []Problem

	report := func(kind ProblemKind, field string, value catalog.Value, message string) {
		display := ""
		if !value.IsNull() || kind == ProblemReference {
			display = value.Display()
		}
		problems = append(problems, Problem{
			Kind:    kind,
			Model:   entry.Model,
			PK:      entry.PK,
			Field:   field,
			Value:   display,
			Message: message,
		})
	}

	for i := range schema.Fields {
		f := &schema.Fields[i]
		if f.Kind == catalog.KindAutoTime {
			continue
		}
		value, present := entry.Fields[f.Name]

		switch f.Kind {
		case catalog.KindText:
			switch {
			case !present:
				rec.Fields[f.Name] = catalog.StringValue("")
			case value.Kind == catalog.ValueString:
				rec.Fields[f.Name] = value
			case value.IsNull() && f.Nullable:
				rec.Fields[f.Name] = catalog.NullValue()
			case value.IsNull():
				report(ProblemSemantic, f.Name, value, "field is not nullable; use an empty string")
			default:
				report(ProblemSemantic, f.Name, value, "expected a string")
			}

		case catalog.KindInt:
			switch {
			case !present || value.IsNull():
				if !f.Nullable {
					report(ProblemSemantic, f.Name, value, "field is required")
					continue
				}
				rec.Fields[f.Name] = catalog.NullValue()
			case value.Kind == catalog.ValueInt:
				rec.Fields[f.Name] = value
			default:
				report(ProblemSemantic, f.Name, value, "expected an integer")
			}

		case catalog.KindDate:
			switch {
			case !present || value.IsNull():
				rec.Fields[f.Name] = catalog.NullValue()
			case value.Kind == catalog.ValueString:
				if _, err := time.Parse("2006-01-02", value.Str); err != nil {
					report(ProblemSemantic, f.Name, value, "expected a YYYY-MM-DD date")
					continue
				}
				rec.Fields[f.Name] = value
			default:
				report(ProblemSemantic, f.Name, value, "expected a YYYY-MM-DD date")
			}

		case catalog.KindForeignKey:
			switch {
			case !present || value.IsNull():
				if f.Required {
					report(ProblemSemantic, f.Name, value, "required reference is missing")
					continue
				}
				rec.Fields[f.Name] = catalog.NullValue()
			case value.Kind == catalog.ValueInt:
				ok, err := im.resolve(ctx, view, state, f.Target, value.Int)
				if err != nil {
					return nil, nil, err
				}
				if !ok {
					report(ProblemReference, f.Name, value,
						fmt.Sprintf("no %s with pk %d", f.Target, value.Int))
					continue
				}
				rec.Fields[f.Name] = value
			default:
				report(ProblemSemantic, f.Name, value, "expected an integer reference")
			}

		case catalog.KindManyToMany:
			switch {
			case !present:
				rec.Fields[f.Name] = catalog.ListValue([]int64{})
			case value.Kind == catalog.ValueList:
				resolved := make([]int64, 0, len(value.List))
				for _, ref := range value.List {
					ok, err := im.resolve(ctx, view, state, f.Target, ref)
					if err != nil {
						return nil, nil, err
					}
					if !ok {
						report(ProblemReference, f.Name, catalog.IntValue(ref),
							fmt.Sprintf("no %s with pk %d", f.Target, ref))
						continue
					}
					resolved = append(resolved, ref)
				}
				rec.Fields[f.Name] = catalog.ListValue(resolved)
			default:
				report(ProblemSemantic, f.Name, value, "expected a list of integer references; an empty relationship is []")
			}
		}
	}

	if schema.Normalize != nil {
		schema.Normalize(rec)
	}

	if len(problems) == 0 && schema.Check != nil {
		if err := schema.Check(rec); err != nil {
			report(ProblemSemantic, "", catalog.NullValue(), err.Error())
		}
	}

	if key := schema.NaturalKey(rec); key != "" {
		if pk, ok := state.naturalPK(schema.Type, key); ok {
			if pk != rec.PK {
				report(ProblemUniqueness, "", catalog.NullValue(),
					fmt.Sprintf("unique key collides with pk %d earlier in this batch", pk))
			}
		} else {
			existing, found, err := view.FindByUnique(ctx, schema, rec)
			if err != nil {
				return nil, nil, err
			}
			// A stored pk already rewritten by this batch no longer
			// holds the key storage reports for it. Commit mode sees
			// the update inside the transaction; dry-run has to infer
			// it from the batch state.
			if found && existing != rec.PK && !state.has(schema.Type, existing) {
				report(ProblemUniqueness, "", catalog.NullValue(),
					fmt.Sprintf("unique key collides with stored pk %d", existing))
			}
		}
	}

	return rec, problems, nil
}

// resolve reports whether a reference points at a record committed
// earlier in this batch or already in storage.
func (im *Importer) resolve(ctx context.Context, view store.Reader, state *batchState, target catalog.EntityType, pk int64) (bool, error) {
	if state.has(target, pk) {
		return true, nil
	}
	schema, ok := im.Registry.Lookup(string(target))
	if !ok {
		return false, fmt.Errorf("schema registry has no target type %q", target)
	}
	return view.Exists(ctx, schema, pk)
}

// batchState tracks which records the current batch has accepted so
// later entries can reference them, and which natural keys they claim.
type batchState struct {
	present map[catalog.EntityType]map[int64]struct{}
	natural map[catalog.EntityType]map[string]int64
}

func newBatchState() *batchState {
	return &batchState{
		present: make(map[catalog.EntityType]map[int64]struct{}),
		natural: make(map[catalog.EntityType]map[string]int64),
	}
}

func (s *batchState) add(schema *catalog.EntitySchema, rec *catalog.Record) {
	if rec == nil {
		return
	}
	if s.present[schema.Type] == nil {
		s.present[schema.Type] = make(map[int64]struct{})
	}
	s.present[schema.Type][rec.PK] = struct{}{}

	if key := schema.NaturalKey(rec); key != "" {
		if s.natural[schema.Type] == nil {
			s.natural[schema.Type] = make(map[string]int64)
		}
		if _, claimed := s.natural[schema.Type][key]; !claimed {
			s.natural[schema.Type][key] = rec.PK
		}
	}
}

func (s *batchState) has(t catalog.EntityType, pk int64) bool {
	_, ok := s.present[t][pk]
	return ok
}

func (s *batchState) naturalPK(t catalog.EntityType, key string) (int64, bool) {
	pk, ok := s.natural[t][key]
	return pk, ok
}
