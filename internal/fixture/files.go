package fixture

import (
	"fmt"
	"os"
	"path/filepath"

	"vgmdb/internal/catalog"
)

// FileName returns the fixture file name for an entity type, e.g.
// "sources_soundsources.yaml".
func FileName(schema *catalog.EntitySchema, format Format) string {
	return schema.FileStem() + "." + format.Ext()
}

// DiscoverFiles returns the fixture files present in dir, in dependency
// order. Either encoding is accepted per entity type; when both exist
// for one type the YAML file wins. Missing files are skipped: a
// directory may hold a partial export.
func DiscoverFiles(dir string, reg *catalog.Registry) ([]string, error) {
	order, err := catalog.OrderAll(reg)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, t := range order {
		schema, _ := reg.Lookup(string(t))
		for _, format := range []Format{FormatYAML, FormatJSON} {
			path := filepath.Join(dir, FileName(schema, format))
			info, err := os.Stat(path)
			if err != nil {
				if os.IsNotExist(err) {
					continue
				}
				return nil, fmt.Errorf("stat fixture %s: %w", path, err)
			}
			if info.IsDir() {
				continue
			}
			paths = append(paths, path)
			break
		}
	}
	return paths, nil
}

// ReadFile decodes one fixture file, deriving the encoding from its
// extension.
func ReadFile(path string) ([]Entry, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixture %s: %w", path, err)
	}
	defer file.Close()

	entries, err := Decode(file, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// ReadDir decodes every fixture file DiscoverFiles finds, concatenated
// in dependency order.
func ReadDir(dir string, reg *catalog.Registry) ([]Entry, error) {
	paths, err := DiscoverFiles(dir, reg)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for _, path := range paths {
		fileEntries, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		entries = append(entries, fileEntries...)
	}
	return entries, nil
}
