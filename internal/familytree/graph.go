// Package familytree builds in-memory family graphs from member and
// relationship records and answers structural queries over them: ancestor
// and descendant chains, generational distance, nearest common ancestors,
// and bounded-depth subgraphs for visualization.
//
// A Graph is an immutable snapshot. It is rebuilt from store contents at
// query time and discarded afterwards; concurrent queries may each hold
// their own snapshot. Mutations never touch a Graph; they go through the
// Validator and the stores, and the next query sees the new state.
package familytree

import (
	"github.com/mfalkner/kinfolk/internal/model"
)

type node struct {
	parents  []int64
	children []int64
	spouses  []int64
	siblings []int64
}

// Graph is a derived, ephemeral view of one family's members and edges.
// Adjacency lists preserve edge insertion order, which traversal queries
// use as their tie-break.
type Graph struct {
	nodes   map[int64]*node
	members map[int64]model.Member
	order   []int64 // member ids in input order, for deterministic iteration
}

// Build constructs a Graph from a member set and an edge set. Identical
// inputs always produce an identical graph. An edge referencing a member id
// not present in members fails the whole build with *DataIntegrityError.
func Build(members []model.Member, edges []model.Relationship) (*Graph, error) {
	g := &Graph{
		nodes:   make(map[int64]*node, len(members)),
		members: make(map[int64]model.Member, len(members)),
		order:   make([]int64, 0, len(members)),
	}

	for _, m := range members {
		if _, ok := g.nodes[m.ID]; ok {
			continue
		}
		g.nodes[m.ID] = &node{}
		g.members[m.ID] = m
		g.order = append(g.order, m.ID)
	}

	for _, e := range edges {
		a, okA := g.nodes[e.MemberA]
		if !okA {
			return nil, &DataIntegrityError{EdgeID: e.ID, MemberID: e.MemberA}
		}
		b, okB := g.nodes[e.MemberB]
		if !okB {
			return nil, &DataIntegrityError{EdgeID: e.ID, MemberID: e.MemberB}
		}

		switch e.Kind {
		case model.KindParent:
			b.parents = append(b.parents, e.MemberA)
			a.children = append(a.children, e.MemberB)
		case model.KindSpouse:
			a.spouses = append(a.spouses, e.MemberB)
			b.spouses = append(b.spouses, e.MemberA)
		case model.KindSibling:
			a.siblings = append(a.siblings, e.MemberB)
			b.siblings = append(b.siblings, e.MemberA)
		}
	}

	return g, nil
}

// Len returns the number of members in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Contains reports whether the member id is present in the graph.
func (g *Graph) Contains(id int64) bool {
	_, ok := g.nodes[id]
	return ok
}

// Member returns the member record for an id.
func (g *Graph) Member(id int64) (model.Member, bool) {
	m, ok := g.members[id]
	return m, ok
}

// ParentsOf returns the member's parent ids in edge insertion order.
func (g *Graph) ParentsOf(id int64) []int64 {
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	return n.parents
}

// ChildrenOf returns the member's child ids in edge insertion order.
func (g *Graph) ChildrenOf(id int64) []int64 {
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	return n.children
}

// SpousesOf returns the member's spouse ids in edge insertion order.
func (g *Graph) SpousesOf(id int64) []int64 {
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	return n.spouses
}

// SiblingsOf returns recorded sibling edges followed by siblings derived
// from a shared parent, without duplicates, excluding the member itself.
func (g *Graph) SiblingsOf(id int64) []int64 {
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}

	seen := map[int64]bool{id: true}
	var out []int64
	for _, s := range n.siblings {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, p := range n.parents {
		for _, c := range g.nodes[p].children {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}
