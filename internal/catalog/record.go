package catalog

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ValueKind discriminates the shapes a fixture field value can take.
type ValueKind int

const (
	ValueNull ValueKind = iota
	ValueString
	ValueInt
	ValueList
)

// Value is a field value as carried by fixtures and records: a scalar
// string, an integer (also used for resolved foreign keys), a list of
// integers (many-to-many reference sets), or null.
type Value struct {
	Kind ValueKind
	Str  string
	Int  int64
	List []int64
}

// NullValue returns the absence marker.
func NullValue() Value { return Value{Kind: ValueNull} }

// StringValue wraps a scalar string.
func StringValue(s string) Value { return Value{Kind: ValueString, Str: s} }

// IntValue wraps an integer scalar or reference.
func IntValue(i int64) Value { return Value{Kind: ValueInt, Int: i} }

// ListValue wraps a reference list. The slice is used as-is.
func ListValue(ids []int64) Value { return Value{Kind: ValueList, List: ids} }

// IsNull reports whether the value is the absence marker.
func (v Value) IsNull() bool { return v.Kind == ValueNull }

// Sorted returns the list contents in ascending order without
// mutating the receiver. Only meaningful for ValueList.
func (v Value) Sorted() []int64 {
	out := make([]int64, len(v.List))
	copy(out, v.List)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Display renders the value for error reports.
func (v Value) Display() string {
	switch v.Kind {
	case ValueNull:
		return "null"
	case ValueString:
		return strconv.Quote(v.Str)
	case ValueInt:
		return strconv.FormatInt(v.Int, 10)
	case ValueList:
		parts := make([]string, len(v.List))
		for i, id := range v.List {
			parts[i] = strconv.FormatInt(id, 10)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprintf("value(%d)", int(v.Kind))
	}
}

// Equal reports deep equality, with lists compared as sets.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case ValueString:
		return v.Str == other.Str
	case ValueInt:
		return v.Int == other.Int
	case ValueList:
		a, b := v.Sorted(), other.Sorted()
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// Record is one entity instance: a caller-supplied primary key plus a
// field map keyed by fixture field name. Auto-timestamp fields never
// appear in the map.
type Record struct {
	Type   EntityType
	PK     int64
	Fields map[string]Value
}

// NewRecord allocates an empty record of the given type.
func NewRecord(entityType EntityType, pk int64) *Record {
	return &Record{Type: entityType, PK: pk, Fields: make(map[string]Value)}
}

// NaturalKey renders the record's unique-field tuple as a single
// comparable string, or "" when the schema declares no uniqueness
// constraint. Foreign keys participate by referenced primary key.
func (s *EntitySchema) NaturalKey(rec *Record) string {
	if len(s.Unique) == 0 {
		return ""
	}
	parts := make([]string, 0, len(s.Unique))
	for _, name := range s.Unique {
		v := rec.Fields[name]
		switch v.Kind {
		case ValueInt:
			parts = append(parts, strconv.FormatInt(v.Int, 10))
		case ValueString:
			parts = append(parts, v.Str)
		default:
			parts = append(parts, "\x00")
		}
	}
	return strings.Join(parts, "\x1f")
}
