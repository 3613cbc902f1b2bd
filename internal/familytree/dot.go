package familytree

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// WriteDOT renders the subgraph within depth undirected hops of rootID as
// Graphviz DOT: parent edges as solid arcs parent-to-child, spouse edges in
// red without rank constraint, recorded sibling edges dashed. The root is
// drawn as a filled double octagon. Output is deterministic for a given
// graph and root.
func WriteDOT(w io.Writer, g *Graph, rootID int64, depth int) error {
	if !g.Contains(rootID) {
		return ErrUnknownMember
	}

	include := map[int64]bool{rootID: true}
	if depth > 0 {
		rels, err := g.RelativesWithinDegree(rootID, depth)
		if err != nil {
			return err
		}
		for _, r := range rels {
			include[r.ID] = true
		}
	} else {
		for id := range g.nodes {
			include[id] = true
		}
	}

	ids := make([]int64, 0, len(include))
	for id := range include {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var b strings.Builder
	b.WriteString("digraph family {\n")
	b.WriteString("\toverlap=false;\n")
	b.WriteString("\tnode [shape=box, fontname=\"Arial\"];\n")

	for _, id := range ids {
		m, _ := g.Member(id)
		label := escapeDOT(m.Name)
		if m.Born != "" || m.Died != "" {
			label = fmt.Sprintf(`%s\n%s-%s`, label, escapeDOT(m.Born), escapeDOT(m.Died))
		}
		if id == rootID {
			fmt.Fprintf(&b, "\tm%d [label=\"%s\", shape=doubleoctagon, style=filled];\n", id, label)
		} else {
			fmt.Fprintf(&b, "\tm%d [label=\"%s\"];\n", id, label)
		}
	}

	for _, id := range ids {
		n := g.nodes[id]
		for _, c := range n.children {
			if include[c] {
				fmt.Fprintf(&b, "\tm%d -> m%d;\n", id, c)
			}
		}
		for _, s := range n.spouses {
			// Each spouse edge appears in both adjacency lists; emit once.
			if include[s] && id < s {
				fmt.Fprintf(&b, "\tm%d -> m%d [dir=none, color=red, constraint=false];\n", id, s)
			}
		}
		for _, s := range n.siblings {
			if include[s] && id < s {
				fmt.Fprintf(&b, "\tm%d -> m%d [dir=none, style=dashed, constraint=false];\n", id, s)
			}
		}
	}

	b.WriteString("}\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func escapeDOT(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}
