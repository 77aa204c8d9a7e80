// Package catalog declares the entity schemas for the VGM source
// database: field layouts, uniqueness constraints, and the dependency
// edges between entity types. The registry is static and mirrors the
// SQL schema in internal/store; the two changing out of step is a
// deployment defect, not a runtime condition.
package catalog
