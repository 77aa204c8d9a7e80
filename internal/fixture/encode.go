package fixture

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"vgmdb/internal/catalog"
)

// Encode writes entries in the requested encoding. YAML output keeps
// the schema's field order and renders multi-line strings as block
// scalars; JSON output is an indented array of objects.
func Encode(w io.Writer, entries []Entry, schema *catalog.EntitySchema, format Format) error {
	if format == FormatJSON {
		return encodeJSON(w, entries)
	}
	return encodeYAML(w, entries, schema)
}

func encodeYAML(w io.Writer, entries []Entry, schema *catalog.EntitySchema) error {
	root := &yaml.Node{Kind: yaml.SequenceNode}
	for _, entry := range entries {
		fieldsNode := &yaml.Node{Kind: yaml.MappingNode}
		for _, f := range schema.Fields {
			if f.Kind == catalog.KindAutoTime {
				continue
			}
			value, ok := entry.Fields[f.Name]
			if !ok {
				continue
			}
			fieldsNode.Content = append(fieldsNode.Content, keyNode(f.Name), valueNode(value))
		}

		entryNode := &yaml.Node{Kind: yaml.MappingNode}
		entryNode.Content = append(entryNode.Content,
			keyNode("model"), strNode(entry.Model),
			keyNode("pk"), intNode(entry.PK),
			keyNode("fields"), fieldsNode,
		)
		root.Content = append(root.Content, entryNode)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return fmt.Errorf("encode yaml fixture: %w", err)
	}
	return enc.Close()
}

func keyNode(name string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name}
}

func strNode(s string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
	if strings.Contains(s, "\n") {
		n.Style = yaml.LiteralStyle
	}
	return n
}

func intNode(i int64) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(i, 10)}
}

func valueNode(v catalog.Value) *yaml.Node {
	switch v.Kind {
	case catalog.ValueNull:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	case catalog.ValueInt:
		return intNode(v.Int)
	case catalog.ValueList:
		n := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
		for _, id := range v.List {
			n.Content = append(n.Content, intNode(id))
		}
		return n
	default:
		return strNode(v.Str)
	}
}

func encodeJSON(w io.Writer, entries []Entry) error {
	out := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		fields := make(map[string]any, len(entry.Fields))
		for name, value := range entry.Fields {
			fields[name] = jsonValue(value)
		}
		out = append(out, map[string]any{
			"model":  entry.Model,
			"pk":     entry.PK,
			"fields": fields,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode json fixture: %w", err)
	}
	return nil
}

func jsonValue(v catalog.Value) any {
	switch v.Kind {
	case catalog.ValueNull:
		return nil
	case catalog.ValueInt:
		return v.Int
	case catalog.ValueList:
		ids := v.List
		if ids == nil {
			ids = []int64{}
		}
		return ids
	default:
		return v.Str
	}
}
