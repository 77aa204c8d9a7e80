// Package fixture converts between the relational catalog and its
// text serialization: one entry per record, one file per entity type,
// files laid out in dependency order so every reference points at a
// record that loads earlier.
//
// The Exporter walks storage and writes fixture files; the Importer
// parses them back, resolves references, and commits the whole batch in
// one transaction. A dry-run import performs every check without
// writing, aggregating all problems found so a single pass reports the
// complete defect list.
package fixture
