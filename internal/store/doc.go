// Package store persists the VGM catalog in SQLite. CRUD is generic:
// SQL statements are derived from the entity schemas in
// internal/catalog, so the store knows table shapes but no
// entity-specific behavior. Imports write through a Batch, a thin wrap
// over one transaction giving the importer all-or-nothing semantics.
package store
