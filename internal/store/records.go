package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"vgmdb/internal/catalog"
)

// Reader is the read view reference resolution runs against. Both Store
// (committed state) and Batch (in-flight transaction) implement it.
type Reader interface {
	Exists(ctx context.Context, schema *catalog.EntitySchema, pk int64) (bool, error)
	Get(ctx context.Context, schema *catalog.EntitySchema, pk int64) (*catalog.Record, error)
	FindByUnique(ctx context.Context, schema *catalog.EntitySchema, rec *catalog.Record) (int64, bool, error)
}

// List returns every record of the given type ordered by ascending
// primary key, with many-to-many sets loaded.
func (s *Store) List(ctx context.Context, schema *catalog.EntitySchema) ([]*catalog.Record, error) {
	return listRecords(ctx, s.db, schema)
}

// Get fetches one record by primary key, or nil when absent.
func (s *Store) Get(ctx context.Context, schema *catalog.EntitySchema, pk int64) (*catalog.Record, error) {
	return getRecord(ctx, s.db, schema, pk)
}

// Exists reports whether a record with the given primary key is stored.
func (s *Store) Exists(ctx context.Context, schema *catalog.EntitySchema, pk int64) (bool, error) {
	return recordExists(ctx, s.db, schema, pk)
}

// FindByUnique resolves the record matching rec's natural key, if the
// schema declares one and a match exists.
func (s *Store) FindByUnique(ctx context.Context, schema *catalog.EntitySchema, rec *catalog.Record) (int64, bool, error) {
	return findByUnique(ctx, s.db, schema, rec)
}

// Counts returns the number of stored records per entity type.
func (s *Store) Counts(ctx context.Context, reg *catalog.Registry) (map[catalog.EntityType]int, error) {
	counts := make(map[catalog.EntityType]int)
	for _, schema := range reg.Schemas() {
		var n int
		row := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM `+schema.Table)
		if err := row.Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", schema.Type, err)
		}
		counts[schema.Type] = n
	}
	return counts, nil
}

// scalarFields returns the fields stored as columns of the entity
// table, excluding auto timestamps.
func scalarFields(schema *catalog.EntitySchema) []catalog.Field {
	fields := make([]catalog.Field, 0, len(schema.Fields))
	for _, f := range schema.Fields {
		switch f.Kind {
		case catalog.KindManyToMany, catalog.KindAutoTime:
			continue
		default:
			fields = append(fields, f)
		}
	}
	return fields
}

func selectClause(schema *catalog.EntitySchema) string {
	cols := []string{"id"}
	for _, f := range scalarFields(schema) {
		cols = append(cols, f.Column)
	}
	return strings.Join(cols, ", ")
}

func listRecords(ctx context.Context, q querier, schema *catalog.EntitySchema) ([]*catalog.Record, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+selectClause(schema)+` FROM `+schema.Table+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", schema.Type, err)
	}
	defer rows.Close()

	var records []*catalog.Record
	for rows.Next() {
		rec, err := scanRecord(schema, rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for _, rec := range records {
		if err := loadRelations(ctx, q, schema, rec); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func getRecord(ctx context.Context, q querier, schema *catalog.EntitySchema, pk int64) (*catalog.Record, error) {
	row := q.QueryRowContext(ctx, `SELECT `+selectClause(schema)+` FROM `+schema.Table+` WHERE id = ?`, pk)
	rec, err := scanRecord(schema, row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %d: %w", schema.Type, pk, err)
	}
	if err := loadRelations(ctx, q, schema, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func recordExists(ctx context.Context, q querier, schema *catalog.EntitySchema, pk int64) (bool, error) {
	var one int
	row := q.QueryRowContext(ctx, `SELECT 1 FROM `+schema.Table+` WHERE id = ?`, pk)
	if err := row.Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check %s %d: %w", schema.Type, pk, err)
	}
	return true, nil
}

func findByUnique(ctx context.Context, q querier, schema *catalog.EntitySchema, rec *catalog.Record) (int64, bool, error) {
	if len(schema.Unique) == 0 {
		return 0, false, nil
	}
	clauses := make([]string, 0, len(schema.Unique))
	args := make([]any, 0, len(schema.Unique))
	for _, name := range schema.Unique {
		field, ok := schema.Field(name)
		if !ok {
			return 0, false, fmt.Errorf("unique field %q not in %s schema", name, schema.Type)
		}
		clauses = append(clauses, field.Column+" = ?")
		args = append(args, fieldArg(field, rec.Fields[name]))
	}

	query := `SELECT id FROM ` + schema.Table + ` WHERE ` + strings.Join(clauses, " AND ") + ` LIMIT 1`
	var pk int64
	if err := q.QueryRowContext(ctx, query, args...).Scan(&pk); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("find %s by unique key: %w", schema.Type, err)
	}
	return pk, true, nil
}

func scanRecord(schema *catalog.EntitySchema, scanner interface{ Scan(dest ...any) error }) (*catalog.Record, error) {
	fields := scalarFields(schema)

	var id int64
	dest := make([]any, 0, len(fields)+1)
	dest = append(dest, &id)

	strs := make([]sql.NullString, len(fields))
	ints := make([]sql.NullInt64, len(fields))
	for i, f := range fields {
		switch f.Kind {
		case catalog.KindInt, catalog.KindForeignKey:
			dest = append(dest, &ints[i])
		default:
			dest = append(dest, &strs[i])
		}
	}

	if err := scanner.Scan(dest...); err != nil {
		return nil, err
	}

	rec := catalog.NewRecord(schema.Type, id)
	for i, f := range fields {
		switch f.Kind {
		case catalog.KindText:
			// Blank-allowed text is never null in fixtures; a stray
			// NULL in storage becomes the empty string.
			rec.Fields[f.Name] = catalog.StringValue(strs[i].String)
		case catalog.KindInt, catalog.KindForeignKey:
			if ints[i].Valid {
				rec.Fields[f.Name] = catalog.IntValue(ints[i].Int64)
			} else {
				rec.Fields[f.Name] = catalog.NullValue()
			}
		case catalog.KindDate:
			if strs[i].Valid && strs[i].String != "" {
				rec.Fields[f.Name] = catalog.StringValue(strs[i].String)
			} else {
				rec.Fields[f.Name] = catalog.NullValue()
			}
		}
	}
	return rec, nil
}

func loadRelations(ctx context.Context, q querier, schema *catalog.EntitySchema, rec *catalog.Record) error {
	for _, f := range schema.Fields {
		if f.Kind != catalog.KindManyToMany {
			continue
		}
		query := `SELECT ` + f.RefColumn + ` FROM ` + f.JoinTable +
			` WHERE ` + f.OwnerColumn + ` = ? ORDER BY ` + f.RefColumn
		rows, err := q.QueryContext(ctx, query, rec.PK)
		if err != nil {
			return fmt.Errorf("load %s.%s: %w", schema.Type, f.Name, err)
		}
		refs := []int64{}
		for rows.Next() {
			var ref int64
			if err := rows.Scan(&ref); err != nil {
				rows.Close()
				return err
			}
			refs = append(refs, ref)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()
		rec.Fields[f.Name] = catalog.ListValue(refs)
	}
	return nil
}

func fieldArg(f *catalog.Field, v catalog.Value) any {
	switch f.Kind {
	case catalog.KindText:
		return v.Str
	case catalog.KindInt, catalog.KindForeignKey:
		if v.Kind == catalog.ValueInt {
			return v.Int
		}
		return nil
	case catalog.KindDate:
		if v.Kind == catalog.ValueString && v.Str != "" {
			return v.Str
		}
		return nil
	default:
		return nil
	}
}
