package fixture

import "vgmdb/internal/catalog"

// Entry is one serialized record: the dotted model identifier, the
// caller-supplied primary key, and the field map. Auto timestamps never
// appear in the field map.
type Entry struct {
	Model  string
	PK     int64
	Fields map[string]catalog.Value

	// Index is the 1-based position within the source file, carried
	// for error context. Zero for entries built in memory.
	Index int
}

// entryFromRecord projects a stored record into its fixture entry.
// Many-to-many sets are emitted in ascending key order for diffability.
func entryFromRecord(schema *catalog.EntitySchema, rec *catalog.Record) Entry {
	fields := make(map[string]catalog.Value, len(schema.Fields))
	for _, f := range schema.Fields {
		switch f.Kind {
		case catalog.KindAutoTime:
			continue
		case catalog.KindManyToMany:
			fields[f.Name] = catalog.ListValue(rec.Fields[f.Name].Sorted())
		case catalog.KindText:
			// Blank-but-not-nullable text always serializes as "".
			v := rec.Fields[f.Name]
			if v.Kind != catalog.ValueString {
				v = catalog.StringValue("")
			}
			fields[f.Name] = v
		default:
			fields[f.Name] = rec.Fields[f.Name]
		}
	}
	return Entry{Model: string(schema.Type), PK: rec.PK, Fields: fields}
}
