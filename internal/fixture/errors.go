package fixture

import (
	"fmt"
	"sort"
	"strings"
)

// SchemaMismatchError reports a fixture referencing an entity type or
// field the registry does not accept. It indicates a stale fixture or a
// stale schema, so it aborts the whole batch immediately instead of
// being collected.
type SchemaMismatchError struct {
	Model string
	Field string
}

func (e *SchemaMismatchError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("schema mismatch: model %s does not accept field %q", e.Model, e.Field)
	}
	return fmt.Sprintf("schema mismatch: unknown model %q", e.Model)
}

// ProblemKind classifies a collected import problem.
type ProblemKind int

const (
	// ProblemReference marks a foreign-key or many-to-many value that
	// resolves to no record.
	ProblemReference ProblemKind = iota
	// ProblemSemantic marks an entity-specific invariant violation or a
	// field value of the wrong shape.
	ProblemSemantic
	// ProblemUniqueness marks a natural-key collision with a different
	// primary key.
	ProblemUniqueness
)

func (k ProblemKind) String() string {
	switch k {
	case ProblemReference:
		return "reference"
	case ProblemSemantic:
		return "semantic"
	case ProblemUniqueness:
		return "uniqueness"
	default:
		return fmt.Sprintf("problem(%d)", int(k))
	}
}

// Problem is one collected import error, with enough context to locate
// the offending fixture entry.
type Problem struct {
	Kind    ProblemKind
	Model   string
	PK      int64
	Field   string
	Value   string
	Message string
}

func (p Problem) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s pk=%d", p.Model, p.PK)
	if p.Field != "" {
		fmt.Fprintf(&b, " field=%s", p.Field)
	}
	fmt.Fprintf(&b, ": %s: %s", p.Kind, p.Message)
	if p.Value != "" {
		fmt.Fprintf(&b, " (value %s)", p.Value)
	}
	return b.String()
}

// ProblemList aggregates every problem found in one import pass.
type ProblemList []Problem

func (l ProblemList) Error() string {
	switch len(l) {
	case 0:
		return "no import problems"
	case 1:
		return l[0].String()
	default:
		return fmt.Sprintf("%s (and %d more problems)", l[0].String(), len(l)-1)
	}
}

// Report renders the list grouped by entity type and primary key, one
// problem per line.
func (l ProblemList) Report() string {
	grouped := make(map[string][]Problem)
	var models []string
	for _, p := range l {
		if _, ok := grouped[p.Model]; !ok {
			models = append(models, p.Model)
		}
		grouped[p.Model] = append(grouped[p.Model], p)
	}
	sort.Strings(models)

	var b strings.Builder
	for _, model := range models {
		problems := grouped[model]
		sort.SliceStable(problems, func(i, j int) bool { return problems[i].PK < problems[j].PK })
		fmt.Fprintf(&b, "%s (%d):\n", model, len(problems))
		for _, p := range problems {
			b.WriteString("  ")
			b.WriteString(p.String())
			b.WriteByte('\n')
		}
	}
	return b.String()
}
