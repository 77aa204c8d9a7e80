package fixture_test

import (
	"bytes"
	"strings"
	"testing"

	"vgmdb/internal/catalog"
	"vgmdb/internal/fixture"
)

func entry(model string, pk int64, fields map[string]catalog.Value) fixture.Entry {
	return fixture.Entry{Model: model, PK: pk, Fields: fields}
}

func TestParseFormat(t *testing.T) {
	if f, err := fixture.ParseFormat("yaml"); err != nil || f != fixture.FormatYAML {
		t.Fatalf("parse yaml: %v %v", f, err)
	}
	if f, err := fixture.ParseFormat("json"); err != nil || f != fixture.FormatJSON {
		t.Fatalf("parse json: %v %v", f, err)
	}
	if _, err := fixture.ParseFormat("xml"); err == nil {
		t.Fatal("expected error for unknown format")
	}

	if f, err := fixture.FormatForPath("games_gametags.yaml"); err != nil || f != fixture.FormatYAML {
		t.Fatalf("format for yaml path: %v %v", f, err)
	}
	if f, err := fixture.FormatForPath("/tmp/x/sources_banks.json"); err != nil || f != fixture.FormatJSON {
		t.Fatalf("format for json path: %v %v", f, err)
	}
	if _, err := fixture.FormatForPath("notes.txt"); err == nil {
		t.Fatal("expected error for unknown extension")
	}
}

func TestEncodeYAMLKeepsSchemaFieldOrder(t *testing.T) {
	reg := catalog.NewRegistry()
	schema, _ := reg.Lookup("games.gametag")

	entries := []fixture.Entry{
		entry("games.gametag", 1, map[string]catalog.Value{
			"description": catalog.StringValue("First line\nSecond line"),
			"name":        catalog.StringValue("Chiptune"),
			"slug":        catalog.StringValue("chiptune"),
		}),
	}

	var buf bytes.Buffer
	if err := fixture.Encode(&buf, entries, schema, fixture.FormatYAML); err != nil {
		t.Fatalf("encode: %v", err)
	}
	out := buf.String()

	namePos := strings.Index(out, "name:")
	slugPos := strings.Index(out, "slug:")
	descPos := strings.Index(out, "description:")
	if namePos < 0 || slugPos < 0 || descPos < 0 {
		t.Fatalf("missing fields in output:\n%s", out)
	}
	if !(namePos < slugPos && slugPos < descPos) {
		t.Fatalf("fields out of schema order:\n%s", out)
	}
	if !strings.Contains(out, "description: |-") {
		t.Fatalf("multi-line string must render as a block scalar:\n%s", out)
	}

	decoded, err := fixture.Decode(strings.NewReader(out), fixture.FormatYAML)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != 1 || decoded[0].Model != "games.gametag" || decoded[0].PK != 1 {
		t.Fatalf("unexpected decoded entries: %+v", decoded)
	}
	if got := decoded[0].Fields["description"]; got.Str != "First line\nSecond line" {
		t.Fatalf("block scalar did not round-trip: %q", got.Str)
	}
}

func TestEncodeYAMLNullsAndLists(t *testing.T) {
	reg := catalog.NewRegistry()
	schema, _ := reg.Lookup("games.game")

	entries := []fixture.Entry{
		entry("games.game", 7, map[string]catalog.Value{
			"title":         catalog.StringValue("Streets of Rage"),
			"release_date":  catalog.NullValue(),
			"release_year":  catalog.IntValue(1991),
			"album_artists": catalog.ListValue([]int64{1, 2}),
			"tags":          catalog.ListValue([]int64{}),
			"notes":         catalog.StringValue(""),
		}),
	}

	var buf bytes.Buffer
	if err := fixture.Encode(&buf, entries, schema, fixture.FormatYAML); err != nil {
		t.Fatalf("encode: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "release_date: null") {
		t.Fatalf("expected explicit null:\n%s", out)
	}
	if !strings.Contains(out, "album_artists: [1, 2]") {
		t.Fatalf("expected flow-style reference list:\n%s", out)
	}
	if !strings.Contains(out, "tags: []") {
		t.Fatalf("expected empty flow list:\n%s", out)
	}

	decoded, err := fixture.Decode(strings.NewReader(out), fixture.FormatYAML)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	fields := decoded[0].Fields
	if !fields["release_date"].IsNull() {
		t.Fatalf("null did not round-trip: %+v", fields["release_date"])
	}
	if fields["release_year"].Int != 1991 {
		t.Fatalf("int did not round-trip: %+v", fields["release_year"])
	}
	if got := fields["album_artists"]; got.Kind != catalog.ValueList || len(got.List) != 2 {
		t.Fatalf("list did not round-trip: %+v", got)
	}
}

func TestDecodeYAMLDates(t *testing.T) {
	doc := `- model: games.game
  pk: 1
  fields:
    title: ActRaiser
    release_date: 1990-12-16
    release_year: 1990
`
	decoded, err := fixture.Decode(strings.NewReader(doc), fixture.FormatYAML)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	// Unquoted dates arrive as strings, not timestamps.
	if got := decoded[0].Fields["release_date"]; got.Kind != catalog.ValueString || got.Str != "1990-12-16" {
		t.Fatalf("expected date string, got %+v", got)
	}
}

func TestDecodeRejectsIncompleteEntries(t *testing.T) {
	missingModel := `- pk: 1
  fields:
    name: Chiptune
`
	if _, err := fixture.Decode(strings.NewReader(missingModel), fixture.FormatYAML); err == nil {
		t.Fatal("expected error for missing model")
	}

	missingPK := `- model: games.gametag
  fields:
    name: Chiptune
`
	if _, err := fixture.Decode(strings.NewReader(missingPK), fixture.FormatYAML); err == nil {
		t.Fatal("expected error for missing pk")
	}
}

func TestDecodeEmptyInput(t *testing.T) {
	entries, err := fixture.Decode(strings.NewReader(""), fixture.FormatYAML)
	if err != nil {
		t.Fatalf("decode empty yaml: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
}

func TestJSONRoundTrip(t *testing.T) {
	reg := catalog.NewRegistry()
	schema, _ := reg.Lookup("sources.soundsource")

	entries := []fixture.Entry{
		entry("sources.soundsource", 3, map[string]catalog.Value{
			"name":        catalog.StringValue("Piano 1"),
			"bank":        catalog.IntValue(2),
			"product":     catalog.NullValue(),
			"discoverers": catalog.ListValue([]int64{1}),
			"games":       catalog.ListValue([]int64{}),
			"songs":       catalog.ListValue([]int64{}),
			"notes":       catalog.StringValue("GM patch 0"),
		}),
	}

	var buf bytes.Buffer
	if err := fixture.Encode(&buf, entries, schema, fixture.FormatJSON); err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := fixture.Decode(&buf, fixture.FormatJSON)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != 1 {
		t.Fatalf("expected one entry, got %d", len(decoded))
	}
	got := decoded[0]
	if got.Model != "sources.soundsource" || got.PK != 3 {
		t.Fatalf("unexpected entry header: %+v", got)
	}
	for name, want := range entries[0].Fields {
		if !got.Fields[name].Equal(want) {
			t.Errorf("field %s: got %s, want %s", name, got.Fields[name].Display(), want.Display())
		}
	}
}
