package fixture

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format selects a fixture encoding. Both encodings carry the same
// entry shape; the choice is cosmetic.
type Format int

const (
	FormatYAML Format = iota
	FormatJSON
)

// ParseFormat accepts the CLI/config spelling of an encoding.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	default:
		return FormatYAML, fmt.Errorf("unsupported fixture format %q", s)
	}
}

// Ext returns the file extension without the dot.
func (f Format) Ext() string {
	if f == FormatJSON {
		return "json"
	}
	return "yaml"
}

func (f Format) String() string { return f.Ext() }

// counterpart returns the other encoding. Exports use it to clear the
// stale sibling file a format switch would otherwise leave behind.
func (f Format) counterpart() Format {
	if f == FormatJSON {
		return FormatYAML
	}
	return FormatJSON
}

// FormatForPath derives the encoding from a fixture file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return FormatYAML, fmt.Errorf("unrecognized fixture extension on %q", filepath.Base(path))
	}
}
