package fixture_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"vgmdb/internal/catalog"
	"vgmdb/internal/fixture"
	"vgmdb/internal/logging"
	"vgmdb/internal/store"
	"vgmdb/internal/testsupport"
)

func newImporter(st *store.Store) *fixture.Importer {
	return &fixture.Importer{
		Store:    st,
		Registry: catalog.NewRegistry(),
		Log:      logging.NewNop(),
	}
}

// catalogEntries builds a small but fully connected catalog: one record
// per entity type, every reference kind exercised. Entries are listed
// out of dependency order on purpose.
func catalogEntries() []fixture.Entry {
	return []fixture.Entry{
		entry("sources.soundsource", 1, map[string]catalog.Value{
			"name":        catalog.StringValue("Piano 1"),
			"bank":        catalog.IntValue(1),
			"product":     catalog.NullValue(),
			"discoverers": catalog.ListValue([]int64{1}),
			"games":       catalog.ListValue([]int64{1}),
			"songs":       catalog.ListValue([]int64{1}),
			"notes":       catalog.StringValue("GM patch 0"),
		}),
		entry("songs.song", 1, map[string]catalog.Value{
			"title":        catalog.StringValue("Fillmore"),
			"game":         catalog.IntValue(1),
			"composers":    catalog.ListValue([]int64{1}),
			"arrangers":    catalog.ListValue([]int64{}),
			"track_number": catalog.IntValue(2),
		}),
		entry("games.game", 1, map[string]catalog.Value{
			"title":         catalog.StringValue("ActRaiser"),
			"release_date":  catalog.StringValue("1990-12-16"),
			"release_year":  catalog.IntValue(1990),
			"album_artists": catalog.ListValue([]int64{1}),
			"tags":          catalog.ListValue([]int64{1}),
		}),
		entry("songs.person", 1, map[string]catalog.Value{
			"name":     catalog.StringValue("Yuzo Koshiro"),
			"products": catalog.ListValue([]int64{1}),
		}),
		entry("sources.bank", 1, map[string]catalog.Value{
			"name":    catalog.StringValue("Capital Tone"),
			"product": catalog.IntValue(1),
		}),
		entry("sources.product", 1, map[string]catalog.Value{
			"name":    catalog.StringValue("SC-55"),
			"company": catalog.IntValue(1),
		}),
		entry("sources.company", 1, map[string]catalog.Value{
			"name": catalog.StringValue("Roland"),
		}),
		entry("games.gametag", 1, map[string]catalog.Value{
			"name": catalog.StringValue("Chiptune"),
			"slug": catalog.StringValue(""),
		}),
		entry("accounts.user", 1, map[string]catalog.Value{
			"username": catalog.StringValue("archivist"),
		}),
	}
}

func compareSnapshots(t *testing.T, want, got map[catalog.EntityType]map[int64]*catalog.Record) {
	t.Helper()
	for entityType, records := range want {
		if len(records) != len(got[entityType]) {
			t.Fatalf("%s: expected %d records, got %d", entityType, len(records), len(got[entityType]))
		}
		for pk, rec := range records {
			other, ok := got[entityType][pk]
			if !ok {
				t.Fatalf("%s pk=%d missing", entityType, pk)
			}
			for name, value := range rec.Fields {
				if !other.Fields[name].Equal(value) {
					t.Errorf("%s pk=%d field %s: %s != %s",
						entityType, pk, name, value.Display(), other.Fields[name].Display())
				}
			}
		}
	}
}

func TestCommitResolvesReferencesWithinBatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	defer st.Close()

	summary, err := newImporter(st).Run(context.Background(), catalogEntries(), fixture.Commit)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Failed() {
		t.Fatalf("unexpected problems:\n%s", summary.Problems.Report())
	}
	if summary.Total != 9 || summary.Created != 9 || summary.Updated != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	reg := catalog.NewRegistry()
	schema, _ := reg.Lookup("games.gametag")
	tag, err := st.Get(context.Background(), schema, 1)
	if err != nil {
		t.Fatalf("get tag: %v", err)
	}
	// Blank slugs are derived from the name before persisting.
	if tag.Fields["slug"].Str != "chiptune" {
		t.Fatalf("expected derived slug, got %q", tag.Fields["slug"].Str)
	}

	runs, err := st.RecentRuns(context.Background(), 0)
	if err != nil {
		t.Fatalf("recent runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != summary.RunID || runs[0].Mode != "commit" {
		t.Fatalf("expected one recorded run for %s, got %+v", summary.RunID, runs)
	}
}

func TestCommitIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	defer st.Close()

	importer := newImporter(st)
	ctx := context.Background()
	if _, err := importer.Run(ctx, catalogEntries(), fixture.Commit); err != nil {
		t.Fatalf("first run: %v", err)
	}
	before := testsupport.Snapshot(t, st, importer.Registry)

	summary, err := importer.Run(ctx, catalogEntries(), fixture.Commit)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if summary.Created != 0 || summary.Updated != 9 {
		t.Fatalf("expected pure update pass, got %+v", summary)
	}

	after := testsupport.Snapshot(t, st, importer.Registry)
	compareSnapshots(t, before, after)
}

func TestExportImportRoundTrip(t *testing.T) {
	srcCfg := testsupport.NewConfig(t)
	src := testsupport.MustOpenStore(t, srcCfg)
	defer src.Close()

	ctx := context.Background()
	if _, err := newImporter(src).Run(ctx, catalogEntries(), fixture.Commit); err != nil {
		t.Fatalf("seed: %v", err)
	}

	reg := catalog.NewRegistry()
	exporter := &fixture.Exporter{Store: src, Registry: reg, Log: logging.NewNop()}
	dir := filepath.Join(t.TempDir(), "fixtures")
	exportSummary, err := exporter.Export(ctx, fixture.ExportOptions{Dir: dir, Format: fixture.FormatYAML})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	// One file per entity type, populated or not.
	if len(exportSummary.Files) != len(reg.Schemas()) {
		t.Fatalf("expected %d files, got %d", len(reg.Schemas()), len(exportSummary.Files))
	}
	if exportSummary.Records != 9 {
		t.Fatalf("expected 9 exported records, got %d", exportSummary.Records)
	}

	entries, err := fixture.ReadDir(dir, reg)
	if err != nil {
		t.Fatalf("read exported fixtures: %v", err)
	}

	dstCfg := testsupport.NewConfig(t)
	dst := testsupport.MustOpenStore(t, dstCfg)
	defer dst.Close()

	summary, err := newImporter(dst).Run(ctx, entries, fixture.Commit)
	if err != nil {
		t.Fatalf("import into fresh store: %v", err)
	}
	if summary.Failed() {
		t.Fatalf("unexpected problems:\n%s", summary.Problems.Report())
	}

	compareSnapshots(t,
		testsupport.Snapshot(t, src, reg),
		testsupport.Snapshot(t, dst, reg))
}

func TestExportFormatSwitchClearsStaleSiblings(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	defer st.Close()

	importer := newImporter(st)
	ctx := context.Background()
	seed := []fixture.Entry{
		entry("sources.company", 1, map[string]catalog.Value{
			"name": catalog.StringValue("Roland"),
		}),
	}
	if _, err := importer.Run(ctx, seed, fixture.Commit); err != nil {
		t.Fatalf("seed: %v", err)
	}

	reg := catalog.NewRegistry()
	exporter := &fixture.Exporter{Store: st, Registry: reg, Log: logging.NewNop()}
	dir := t.TempDir()
	if _, err := exporter.Export(ctx, fixture.ExportOptions{Dir: dir, Format: fixture.FormatYAML}); err != nil {
		t.Fatalf("yaml export: %v", err)
	}

	rename := []fixture.Entry{
		entry("sources.company", 1, map[string]catalog.Value{
			"name": catalog.StringValue("Roland Corporation"),
		}),
	}
	if _, err := importer.Run(ctx, rename, fixture.Commit); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if _, err := exporter.Export(ctx, fixture.ExportOptions{Dir: dir, Format: fixture.FormatJSON}); err != nil {
		t.Fatalf("json export: %v", err)
	}

	// The earlier YAML snapshot must be gone; otherwise discovery would
	// prefer it and re-import the outdated name.
	if _, err := os.Stat(filepath.Join(dir, "sources_companies.yaml")); !os.IsNotExist(err) {
		t.Fatalf("stale yaml fixture survived the json export: %v", err)
	}

	entries, err := fixture.ReadDir(dir, reg)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	var name string
	for _, e := range entries {
		if e.Model == "sources.company" && e.PK == 1 {
			name = e.Fields["name"].Str
		}
	}
	if name != "Roland Corporation" {
		t.Fatalf("import picked stale data: got name %q", name)
	}
}

func TestDryRunCollectsEveryProblem(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	defer st.Close()

	entries := []fixture.Entry{
		// Non-nullable text set to null.
		entry("games.gametag", 1, map[string]catalog.Value{
			"name": catalog.NullValue(),
		}),
		// Malformed date.
		entry("games.game", 1, map[string]catalog.Value{
			"title":        catalog.StringValue("ActRaiser"),
			"release_date": catalog.StringValue("December 1990"),
		}),
		// Dangling reference.
		entry("sources.product", 1, map[string]catalog.Value{
			"name":    catalog.StringValue("SC-55"),
			"company": catalog.IntValue(99),
		}),
		entry("sources.company", 1, map[string]catalog.Value{
			"name": catalog.StringValue("Roland"),
		}),
		// Natural key collides with pk 1 above.
		entry("sources.company", 2, map[string]catalog.Value{
			"name": catalog.StringValue("Roland"),
		}),
	}

	summary, err := newImporter(st).Run(context.Background(), entries, fixture.DryRun)
	if err != nil {
		t.Fatalf("dry run must not fail fatally: %v", err)
	}
	if len(summary.Problems) != 4 {
		t.Fatalf("expected 4 problems, got %d:\n%s", len(summary.Problems), summary.Problems.Report())
	}

	kinds := make(map[fixture.ProblemKind]int)
	for _, p := range summary.Problems {
		kinds[p.Kind]++
	}
	if kinds[fixture.ProblemSemantic] != 2 || kinds[fixture.ProblemReference] != 1 || kinds[fixture.ProblemUniqueness] != 1 {
		t.Fatalf("unexpected problem kinds: %v\n%s", kinds, summary.Problems.Report())
	}

	// Nothing was written and no run was recorded.
	counts, err := st.Counts(context.Background(), catalog.NewRegistry())
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	for entityType, n := range counts {
		if n != 0 {
			t.Fatalf("dry run wrote %d %s records", n, entityType)
		}
	}
	runs, err := st.RecentRuns(context.Background(), 0)
	if err != nil {
		t.Fatalf("recent runs: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("dry run must not record a run, got %+v", runs)
	}
}

func TestCommitAbortsAtomically(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	defer st.Close()

	importer := newImporter(st)
	ctx := context.Background()
	if _, err := importer.Run(ctx, catalogEntries(), fixture.Commit); err != nil {
		t.Fatalf("seed: %v", err)
	}
	before := testsupport.Snapshot(t, st, importer.Registry)

	broken := []fixture.Entry{
		// Valid on its own, but the batch as a whole must not land.
		entry("games.gametag", 2, map[string]catalog.Value{
			"name": catalog.StringValue("Orchestral"),
		}),
		entry("sources.product", 2, map[string]catalog.Value{
			"name":    catalog.StringValue("SC-88"),
			"company": catalog.IntValue(99),
		}),
	}

	summary, err := importer.Run(ctx, broken, fixture.Commit)
	if err == nil {
		t.Fatal("expected commit to abort")
	}
	var problems fixture.ProblemList
	if !errors.As(err, &problems) {
		t.Fatalf("expected a problem list, got %v", err)
	}
	if len(problems) != 1 || problems[0].Kind != fixture.ProblemReference {
		t.Fatalf("unexpected problems: %+v", problems)
	}
	if summary == nil || !summary.Failed() {
		t.Fatal("aborting summary must carry the problems")
	}

	after := testsupport.Snapshot(t, st, importer.Registry)
	compareSnapshots(t, before, after)
	if len(after[catalog.TypeGameTag]) != 1 {
		t.Fatalf("partial batch leaked into the store: %d tags", len(after[catalog.TypeGameTag]))
	}

	runs, err := st.RecentRuns(ctx, 0)
	if err != nil {
		t.Fatalf("recent runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("aborted run must not be recorded, got %d runs", len(runs))
	}
}

func TestCommitUpdatesUnderMatchingNaturalKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	defer st.Close()

	importer := newImporter(st)
	ctx := context.Background()

	seed := []fixture.Entry{
		entry("sources.company", 1, map[string]catalog.Value{
			"name": catalog.StringValue("Roland"),
		}),
	}
	if _, err := importer.Run(ctx, seed, fixture.Commit); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Same pk and same natural key: a plain update.
	update := []fixture.Entry{
		entry("sources.company", 1, map[string]catalog.Value{
			"name":  catalog.StringValue("Roland"),
			"notes": catalog.StringValue("synth maker"),
		}),
	}
	summary, err := importer.Run(ctx, update, fixture.Commit)
	if err != nil {
		t.Fatalf("update run: %v", err)
	}
	if summary.Created != 0 || summary.Updated != 1 {
		t.Fatalf("expected update in place, got %+v", summary)
	}

	// Different pk claiming the same natural key is rejected.
	collision := []fixture.Entry{
		entry("sources.company", 2, map[string]catalog.Value{
			"name": catalog.StringValue("Roland"),
		}),
	}
	if _, err := importer.Run(ctx, collision, fixture.Commit); err == nil {
		t.Fatal("expected uniqueness problem to abort the commit")
	}
}

func TestRekeyedRecordFreesItsNaturalKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	defer st.Close()

	importer := newImporter(st)
	ctx := context.Background()

	seed := []fixture.Entry{
		entry("sources.company", 1, map[string]catalog.Value{
			"name": catalog.StringValue("Roland"),
		}),
	}
	if _, err := importer.Run(ctx, seed, fixture.Commit); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// pk 1 moves to a new name and pk 2 takes over the old one. Both
	// modes must agree this is legal.
	rekey := []fixture.Entry{
		entry("sources.company", 1, map[string]catalog.Value{
			"name": catalog.StringValue("Roland Corporation"),
		}),
		entry("sources.company", 2, map[string]catalog.Value{
			"name": catalog.StringValue("Roland"),
		}),
	}

	summary, err := importer.Run(ctx, rekey, fixture.DryRun)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if summary.Failed() {
		t.Fatalf("dry run reported problems for a legal rekey:\n%s", summary.Problems.Report())
	}

	summary, err = importer.Run(ctx, rekey, fixture.Commit)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if summary.Created != 1 || summary.Updated != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	reg := catalog.NewRegistry()
	schema, _ := reg.Lookup("sources.company")
	renamed, err := st.Get(ctx, schema, 1)
	if err != nil {
		t.Fatalf("get pk 1: %v", err)
	}
	if renamed.Fields["name"].Str != "Roland Corporation" {
		t.Fatalf("pk 1 kept its old name: %q", renamed.Fields["name"].Str)
	}
	taken, err := st.Get(ctx, schema, 2)
	if err != nil {
		t.Fatalf("get pk 2: %v", err)
	}
	if taken.Fields["name"].Str != "Roland" {
		t.Fatalf("pk 2 did not take the freed name: %q", taken.Fields["name"].Str)
	}
}

func TestUnknownModelAndFieldAreFatal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	defer st.Close()

	importer := newImporter(st)
	ctx := context.Background()

	_, err := importer.Run(ctx, []fixture.Entry{
		entry("games.widget", 1, map[string]catalog.Value{}),
	}, fixture.DryRun)
	var mismatch *fixture.SchemaMismatchError
	if !errors.As(err, &mismatch) || mismatch.Model != "games.widget" {
		t.Fatalf("expected schema mismatch for unknown model, got %v", err)
	}

	// Sound sources reference products and banks; a fixture written
	// against an older schema that had a direct company link must fail
	// loudly rather than dropping the field.
	_, err = importer.Run(ctx, []fixture.Entry{
		entry("sources.soundsource", 1, map[string]catalog.Value{
			"name":    catalog.StringValue("Piano 1"),
			"bank":    catalog.IntValue(1),
			"company": catalog.IntValue(1),
		}),
	}, fixture.DryRun)
	if !errors.As(err, &mismatch) || mismatch.Field != "company" {
		t.Fatalf("expected schema mismatch for unknown field, got %v", err)
	}
}
