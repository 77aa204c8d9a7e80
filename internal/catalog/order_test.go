package catalog

import (
	"errors"
	"testing"
)

func indexOf(order []EntityType, t EntityType) int {
	for i, candidate := range order {
		if candidate == t {
			return i
		}
	}
	return -1
}

func TestOrderAllPlacesDependenciesFirst(t *testing.T) {
	reg := NewRegistry()
	order, err := OrderAll(reg)
	if err != nil {
		t.Fatalf("OrderAll: %v", err)
	}
	if len(order) != len(reg.Schemas()) {
		t.Fatalf("expected %d types, got %d", len(reg.Schemas()), len(order))
	}
	for _, schema := range reg.Schemas() {
		pos := indexOf(order, schema.Type)
		for _, dep := range schema.DependsOn() {
			if depPos := indexOf(order, dep); depPos > pos {
				t.Errorf("%s at %d precedes its dependency %s at %d", schema.Type, pos, dep, depPos)
			}
		}
	}
}

func TestOrderAllIsDeterministic(t *testing.T) {
	reg := NewRegistry()
	first, err := OrderAll(reg)
	if err != nil {
		t.Fatalf("OrderAll: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := OrderAll(reg)
		if err != nil {
			t.Fatalf("OrderAll: %v", err)
		}
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("order changed between runs: %v vs %v", first, again)
			}
		}
	}
}

func TestOrderSubsetIgnoresExternalDependencies(t *testing.T) {
	reg := NewRegistry()

	order, err := Order(reg, []EntityType{TypeSong, TypeGame})
	if err != nil {
		t.Fatalf("Order: %v", err)
	}
	if len(order) != 2 || order[0] != TypeGame || order[1] != TypeSong {
		t.Fatalf("expected [game song], got %v", order)
	}

	// Bank depends on product, but a bank-only batch assumes products
	// already exist in storage.
	order, err = Order(reg, []EntityType{TypeBank})
	if err != nil {
		t.Fatalf("Order: %v", err)
	}
	if len(order) != 1 || order[0] != TypeBank {
		t.Fatalf("expected [bank], got %v", order)
	}
}

func TestOrderReportsCycle(t *testing.T) {
	a := EntitySchema{
		Type: "test.a",
		Fields: []Field{
			{Name: "b", Kind: KindForeignKey, Target: "test.b"},
		},
	}
	b := EntitySchema{
		Type: "test.b",
		Fields: []Field{
			{Name: "a", Kind: KindForeignKey, Target: "test.a"},
		},
	}
	reg := &Registry{schemas: []EntitySchema{a, b}}
	reg.byType = map[EntityType]*EntitySchema{
		a.Type: &reg.schemas[0],
		b.Type: &reg.schemas[1],
	}

	_, err := Order(reg, []EntityType{"test.a", "test.b"})
	var cycle *CycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("expected CycleError, got %v", err)
	}
	if len(cycle.Types) != 2 {
		t.Fatalf("expected both types in the cycle, got %v", cycle.Types)
	}
}
