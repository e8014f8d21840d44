package dependency

import (
	"errors"
	"reflect"
	"testing"
)

func TestNew(t *testing.T) {
	g := New()
	if g == nil {
		t.Fatal("New() returned nil")
	}
	if g.Len() != 0 {
		t.Fatalf("expected empty graph, got %d nodes", g.Len())
	}
}

func TestAddNode(t *testing.T) {
	tests := []struct {
		name     string
		nodes    []Node
		expected int
	}{
		{
			name:     "add single node",
			nodes:    []Node{{ID: "db", Kind: KindContainer}},
			expected: 1,
		},
		{
			name: "add multiple nodes",
			nodes: []Node{
				{ID: "db", Kind: KindContainer},
				{ID: "pooler", Kind: KindContainer, DependsOn: []NodeID{"db"}},
				{ID: "storage", Kind: KindContainer, DependsOn: []NodeID{"pooler"}},
			},
			expected: 3,
		},
		{
			name: "replace existing node",
			nodes: []Node{
				{ID: "db", FriendlyName: "Database"},
				{ID: "db", FriendlyName: "Database Updated"},
			},
			expected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New()
			for _, n := range tt.nodes {
				g.AddNode(n)
			}
			if g.Len() != tt.expected {
				t.Errorf("expected %d nodes, got %d", tt.expected, g.Len())
			}
		})
	}
}

func TestAddNode_CopiesInput(t *testing.T) {
	deps := []NodeID{"db"}
	g := New()
	g.AddNode(Node{ID: "pooler", DependsOn: deps})
	deps[0] = "changed"

	if got := g.Dependencies("pooler"); !reflect.DeepEqual(got, []NodeID{"db"}) {
		t.Errorf("graph was mutated through caller slice: %v", got)
	}
}

func TestDependents(t *testing.T) {
	g := New()
	g.AddNode(Node{ID: "db"})
	g.AddNode(Node{ID: "pooler", DependsOn: []NodeID{"db"}})
	g.AddNode(Node{ID: "meta", DependsOn: []NodeID{"db"}})

	got := g.Dependents("db")
	want := []NodeID{"meta", "pooler"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Dependents(db) = %v, want %v", got, want)
	}
	if got := g.Dependents("meta"); len(got) != 0 {
		t.Errorf("expected no dependents of meta, got %v", got)
	}
	if got := g.Dependencies("missing"); got != nil {
		t.Errorf("expected nil for unknown node, got %v", got)
	}
}

func TestTopologicalOrder(t *testing.T) {
	tests := []struct {
		name  string
		nodes []Node
		want  []NodeID
	}{
		{
			name: "empty graph",
			want: []NodeID{},
		},
		{
			name: "independent nodes sorted by id",
			nodes: []Node{
				{ID: "imgproxy"},
				{ID: "db"},
			},
			want: []NodeID{"db", "imgproxy"},
		},
		{
			name: "chain",
			nodes: []Node{
				{ID: "storage", DependsOn: []NodeID{"pooler", "imgproxy"}},
				{ID: "pooler", DependsOn: []NodeID{"db"}},
				{ID: "db"},
				{ID: "imgproxy"},
				{ID: "meta", DependsOn: []NodeID{"db"}},
			},
			want: []NodeID{"db", "imgproxy", "meta", "pooler", "storage"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New()
			for _, n := range tt.nodes {
				g.AddNode(n)
			}
			got, err := g.TopologicalOrder()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("TopologicalOrder() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTopologicalOrder_Cycle(t *testing.T) {
	g := New()
	g.AddNode(Node{ID: "a", DependsOn: []NodeID{"b"}})
	g.AddNode(Node{ID: "b", DependsOn: []NodeID{"c"}})
	g.AddNode(Node{ID: "c", DependsOn: []NodeID{"a"}})

	_, err := g.TopologicalOrder()
	var cycle *CycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("expected CycleError, got %v", err)
	}
	want := []NodeID{"a", "b", "c", "a"}
	if !reflect.DeepEqual(cycle.Path, want) {
		t.Errorf("cycle path = %v, want %v", cycle.Path, want)
	}
	if cycle.Error() != "dependency cycle: a -> b -> c -> a" {
		t.Errorf("unexpected message %q", cycle.Error())
	}
}

func TestTopologicalOrder_SelfLoop(t *testing.T) {
	g := New()
	g.AddNode(Node{ID: "db", DependsOn: []NodeID{"db"}})

	_, err := g.TopologicalOrder()
	var cycle *CycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("expected CycleError, got %v", err)
	}
	if !reflect.DeepEqual(cycle.Path, []NodeID{"db", "db"}) {
		t.Errorf("unexpected path %v", cycle.Path)
	}
}

func TestTopologicalOrder_MissingDependency(t *testing.T) {
	g := New()
	g.AddNode(Node{ID: "pooler", DependsOn: []NodeID{"db"}})

	_, err := g.TopologicalOrder()
	var missing *MissingDependencyError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingDependencyError, got %v", err)
	}
	if missing.Node != "pooler" || missing.Dependency != "db" {
		t.Errorf("unexpected error fields %+v", missing)
	}
}
