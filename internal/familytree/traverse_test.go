package familytree

import (
	"errors"
	"testing"

	"github.com/mfalkner/kinfolk/internal/model"
)

// threeGenerations builds Alice -> Bob -> Carol with an extra parent Eve
// for Carol.
func threeGenerations(t *testing.T) *Graph {
	t.Helper()
	members := []model.Member{mem(1, "Alice"), mem(2, "Bob"), mem(3, "Carol"), mem(4, "Eve")}
	edges := []model.Relationship{
		edge(1, 1, 2, model.KindParent), // Alice parent of Bob
		edge(2, 2, 3, model.KindParent), // Bob parent of Carol
		edge(3, 4, 3, model.KindParent), // Eve parent of Carol
	}
	g, err := Build(members, edges)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return g
}

func TestAncestorsOf(t *testing.T) {
	g := threeGenerations(t)

	got, err := g.AncestorsOf(3, 0)
	if err != nil {
		t.Fatalf("ancestors: %v", err)
	}
	want := []Relative{{ID: 2, Depth: 1}, {ID: 4, Depth: 1}, {ID: 1, Depth: 2}}
	if len(got) != len(want) {
		t.Fatalf("ancestors = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ancestors[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestAncestorsOfDepthOne(t *testing.T) {
	g := threeGenerations(t)

	got, err := g.AncestorsOf(3, 1)
	if err != nil {
		t.Fatalf("ancestors: %v", err)
	}
	if len(got) != 2 || got[0].ID != 2 || got[1].ID != 4 {
		t.Errorf("depth-1 ancestors = %v, want exactly parents [2 4] in insertion order", got)
	}
}

func TestDescendantsOf(t *testing.T) {
	g := threeGenerations(t)

	got, err := g.DescendantsOf(1, 0)
	if err != nil {
		t.Fatalf("descendants: %v", err)
	}
	want := []Relative{{ID: 2, Depth: 1}, {ID: 3, Depth: 2}}
	if len(got) != len(want) {
		t.Fatalf("descendants = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("descendants[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestWalkUnknownMember(t *testing.T) {
	g := threeGenerations(t)

	if _, err := g.AncestorsOf(42, 0); !errors.Is(err, ErrUnknownMember) {
		t.Errorf("ancestors of missing member: err = %v, want ErrUnknownMember", err)
	}
	if _, err := g.RelativesWithinDegree(42, 1); !errors.Is(err, ErrUnknownMember) {
		t.Errorf("relatives of missing member: err = %v, want ErrUnknownMember", err)
	}
}

func TestAncestorsOfCorruptGraph(t *testing.T) {
	// Build bypasses the validator, so a parent cycle can exist in stored
	// data. Traversal must report it rather than loop or return quietly.
	members := []model.Member{mem(1, "A"), mem(2, "B"), mem(3, "C")}
	edges := []model.Relationship{
		edge(1, 1, 2, model.KindParent),
		edge(2, 2, 3, model.KindParent),
		edge(3, 3, 1, model.KindParent),
	}
	g, err := Build(members, edges)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	_, err = g.AncestorsOf(1, 0)
	var cycle *CycleDetectedError
	if !errors.As(err, &cycle) {
		t.Fatalf("err = %v, want *CycleDetectedError", err)
	}
}

func TestRelativesWithinDegree(t *testing.T) {
	members := []model.Member{mem(1, "Alice"), mem(2, "Bob"), mem(3, "Carol"), mem(4, "Dan"), mem(5, "Far")}
	edges := []model.Relationship{
		edge(1, 1, 2, model.KindParent), // Alice parent of Bob
		edge(2, 1, 4, model.KindSpouse), // Alice married to Dan
		edge(3, 2, 3, model.KindParent), // Bob parent of Carol
		edge(4, 3, 5, model.KindParent), // Carol parent of Far
	}
	g, err := Build(members, edges)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	got, err := g.RelativesWithinDegree(1, 0)
	if err != nil {
		t.Fatalf("degree 0: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("degree 0 = %v, want empty", got)
	}

	got, err = g.RelativesWithinDegree(1, 1)
	if err != nil {
		t.Fatalf("degree 1: %v", err)
	}
	if len(got) != 2 || got[0].ID != 2 || got[1].ID != 4 {
		t.Errorf("degree 1 = %v, want child Bob then spouse Dan", got)
	}

	got, err = g.RelativesWithinDegree(1, 2)
	if err != nil {
		t.Fatalf("degree 2: %v", err)
	}
	if len(got) != 3 || got[2] != (Relative{ID: 3, Depth: 2}) {
		t.Errorf("degree 2 = %v, want grandchild Carol at depth 2", got)
	}
}

func TestRelativesDegreeOneIncludesRecordedSiblings(t *testing.T) {
	// A recorded sibling edge is a first-degree hop, same as parents,
	// children, and spouses.
	members := []model.Member{mem(1, "Alice"), mem(2, "Bob")}
	edges := []model.Relationship{edge(1, 1, 2, model.KindSibling)}
	g, err := Build(members, edges)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	got, err := g.RelativesWithinDegree(1, 1)
	if err != nil {
		t.Fatalf("degree 1: %v", err)
	}
	if len(got) != 1 || got[0] != (Relative{ID: 2, Depth: 1}) {
		t.Errorf("degree 1 = %v, want sibling Bob at depth 1", got)
	}
}

func TestCommonAncestor(t *testing.T) {
	// Grandparent 1 has children 2 and 3; 2 has child 4, 3 has child 5.
	members := []model.Member{mem(1, "G"), mem(2, "P1"), mem(3, "P2"), mem(4, "C1"), mem(5, "C2")}
	edges := []model.Relationship{
		edge(1, 1, 2, model.KindParent),
		edge(2, 1, 3, model.KindParent),
		edge(3, 2, 4, model.KindParent),
		edge(4, 3, 5, model.KindParent),
	}
	g, err := Build(members, edges)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	got, err := g.CommonAncestor(4, 5)
	if err != nil {
		t.Fatalf("common ancestor: %v", err)
	}
	if got == nil || got.ID != 1 || got.DepthA != 2 || got.DepthB != 2 {
		t.Errorf("common ancestor of cousins = %+v, want G at depth 2/2", got)
	}
}

func TestCommonAncestorSelfIsAncestor(t *testing.T) {
	g := threeGenerations(t)

	// Alice is an ancestor of Carol; the nearest common ancestor is Alice
	// herself at depth 0.
	got, err := g.CommonAncestor(1, 3)
	if err != nil {
		t.Fatalf("common ancestor: %v", err)
	}
	if got == nil || got.ID != 1 || got.DepthA != 0 || got.DepthB != 2 {
		t.Errorf("common ancestor = %+v, want Alice at depth 0/2", got)
	}
}

func TestCommonAncestorDisjoint(t *testing.T) {
	members := []model.Member{mem(1, "A"), mem(2, "B")}
	g, err := Build(members, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	got, err := g.CommonAncestor(1, 2)
	if err != nil {
		t.Fatalf("common ancestor: %v", err)
	}
	if got != nil {
		t.Errorf("common ancestor of disjoint members = %+v, want nil", got)
	}
}
