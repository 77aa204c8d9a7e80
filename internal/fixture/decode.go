package fixture

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"

	"vgmdb/internal/catalog"
)

// Decode parses a fixture stream into entries. Field values are shape-
// checked only as far as the encoding allows; kind validation against
// the schema happens during import.
func Decode(r io.Reader, format Format) ([]Entry, error) {
	if format == FormatJSON {
		return decodeJSON(r)
	}
	return decodeYAML(r)
}

type rawYAMLEntry struct {
	Model  string               `yaml:"model"`
	PK     *int64               `yaml:"pk"`
	Fields map[string]yaml.Node `yaml:"fields"`
}

func decodeYAML(r io.Reader) ([]Entry, error) {
	var raw []rawYAMLEntry
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("parse yaml fixture: %w", err)
	}

	entries := make([]Entry, 0, len(raw))
	for i, item := range raw {
		if item.Model == "" {
			return nil, fmt.Errorf("fixture entry %d: missing model", i+1)
		}
		if item.PK == nil {
			return nil, fmt.Errorf("fixture entry %d (%s): missing pk", i+1, item.Model)
		}
		fields := make(map[string]catalog.Value, len(item.Fields))
		for name, node := range item.Fields {
			value, err := valueFromNode(&node)
			if err != nil {
				return nil, fmt.Errorf("fixture entry %d (%s pk=%d) field %q: %w", i+1, item.Model, *item.PK, name, err)
			}
			fields[name] = value
		}
		entries = append(entries, Entry{Model: item.Model, PK: *item.PK, Fields: fields, Index: i + 1})
	}
	return entries, nil
}

func valueFromNode(node *yaml.Node) (catalog.Value, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		switch node.Tag {
		case "!!null":
			return catalog.NullValue(), nil
		case "!!int":
			n, err := strconv.ParseInt(node.Value, 10, 64)
			if err != nil {
				return catalog.Value{}, fmt.Errorf("parse integer %q: %w", node.Value, err)
			}
			return catalog.IntValue(n), nil
		default:
			return catalog.StringValue(node.Value), nil
		}
	case yaml.SequenceNode:
		ids := make([]int64, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!int" {
				return catalog.Value{}, fmt.Errorf("list items must be integer references, got %q", item.Value)
			}
			n, err := strconv.ParseInt(item.Value, 10, 64)
			if err != nil {
				return catalog.Value{}, fmt.Errorf("parse reference %q: %w", item.Value, err)
			}
			ids = append(ids, n)
		}
		return catalog.ListValue(ids), nil
	default:
		return catalog.Value{}, errors.New("unsupported value shape")
	}
}

type rawJSONEntry struct {
	Model  string         `json:"model"`
	PK     *int64         `json:"pk"`
	Fields map[string]any `json:"fields"`
}

func decodeJSON(r io.Reader) ([]Entry, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw []rawJSONEntry
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("parse json fixture: %w", err)
	}

	entries := make([]Entry, 0, len(raw))
	for i, item := range raw {
		if item.Model == "" {
			return nil, fmt.Errorf("fixture entry %d: missing model", i+1)
		}
		if item.PK == nil {
			return nil, fmt.Errorf("fixture entry %d (%s): missing pk", i+1, item.Model)
		}
		fields := make(map[string]catalog.Value, len(item.Fields))
		for name, value := range item.Fields {
			converted, err := valueFromJSON(value)
			if err != nil {
				return nil, fmt.Errorf("fixture entry %d (%s pk=%d) field %q: %w", i+1, item.Model, *item.PK, name, err)
			}
			fields[name] = converted
		}
		entries = append(entries, Entry{Model: item.Model, PK: *item.PK, Fields: fields, Index: i + 1})
	}
	return entries, nil
}

func valueFromJSON(value any) (catalog.Value, error) {
	switch v := value.(type) {
	case nil:
		return catalog.NullValue(), nil
	case string:
		return catalog.StringValue(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return catalog.Value{}, fmt.Errorf("non-integer number %q", v.String())
		}
		return catalog.IntValue(n), nil
	case []any:
		ids := make([]int64, 0, len(v))
		for _, item := range v {
			num, ok := item.(json.Number)
			if !ok {
				return catalog.Value{}, fmt.Errorf("list items must be integer references, got %v", item)
			}
			n, err := num.Int64()
			if err != nil {
				return catalog.Value{}, fmt.Errorf("non-integer reference %q", num.String())
			}
			ids = append(ids, n)
		}
		return catalog.ListValue(ids), nil
	default:
		return catalog.Value{}, fmt.Errorf("unsupported value %v", value)
	}
}
