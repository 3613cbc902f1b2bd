package familytree

// Relative is a query result: a member id and its distance from the query
// subject. For ancestor/descendant queries the depth is the generation gap
// (1 = parent/child); for relativesWithinDegree it is the hop count.
type Relative struct {
	ID    int64 `json:"id"`
	Depth int   `json:"depth"`
}

// CommonAncestorResult identifies the nearest common ancestor of two
// members and the generation gap to each. A member counts as its own
// ancestor at depth 0, so when a is an ancestor of b the result is a
// itself with DepthA == 0.
type CommonAncestorResult struct {
	ID     int64 `json:"id"`
	DepthA int   `json:"depth_a"`
	DepthB int   `json:"depth_b"`
}

// AncestorsOf returns the member's ancestors in breadth-first order: all
// parents (depth 1) before grandparents (depth 2), ties broken by edge
// insertion order. maxDepth <= 0 means unbounded. Each call recomputes
// from scratch; the graph is never mutated.
//
// If the parent layer reachable from id contains a cycle the call fails
// with *CycleDetectedError instead of looping.
func (g *Graph) AncestorsOf(id int64, maxDepth int) ([]Relative, error) {
	return g.walk(id, maxDepth, g.ParentsOf)
}

// DescendantsOf is the mirror of AncestorsOf, following child edges.
func (g *Graph) DescendantsOf(id int64, maxDepth int) ([]Relative, error) {
	return g.walk(id, maxDepth, g.ChildrenOf)
}

func (g *Graph) walk(id int64, maxDepth int, next func(int64) []int64) ([]Relative, error) {
	if !g.Contains(id) {
		return nil, ErrUnknownMember
	}
	if at, ok := g.findCycle(id, next); ok {
		return nil, &CycleDetectedError{MemberID: at}
	}

	visited := map[int64]bool{id: true}
	frontier := []int64{id}
	depth := 0
	var out []Relative

	for len(frontier) > 0 && (maxDepth <= 0 || depth < maxDepth) {
		depth++
		var nextFrontier []int64
		for _, cur := range frontier {
			for _, nb := range next(cur) {
				if visited[nb] {
					continue
				}
				visited[nb] = true
				out = append(out, Relative{ID: nb, Depth: depth})
				nextFrontier = append(nextFrontier, nb)
			}
		}
		frontier = nextFrontier
	}
	return out, nil
}

// findCycle runs an iterative depth-first search with on-path marking over
// the subgraph reachable from id. A visited set alone would keep a cyclic
// walk finite but hide the broken invariant; the on-path check surfaces it.
func (g *Graph) findCycle(id int64, next func(int64) []int64) (int64, bool) {
	const (
		white = 0 // unvisited
		grey  = 1 // on the current path
		black = 2 // fully explored
	)
	color := make(map[int64]int)

	type frame struct {
		id int64
		i  int
	}
	stack := []frame{{id: id}}
	color[id] = grey

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		nbs := next(top.id)
		if top.i < len(nbs) {
			nb := nbs[top.i]
			top.i++
			switch color[nb] {
			case grey:
				return nb, true
			case white:
				color[nb] = grey
				stack = append(stack, frame{id: nb})
			}
			continue
		}
		color[top.id] = black
		stack = stack[:len(stack)-1]
	}
	return 0, false
}

// RelativesWithinDegree returns every member reachable from id within
// degree hops, treating parent, child, spouse, and sibling edges as
// undirected. Degree 0 yields an empty result; degree 1 yields exactly the
// member's parents, children, spouses, and recorded siblings. Results are
// in breadth-first order with the hop count as depth.
func (g *Graph) RelativesWithinDegree(id int64, degree int) ([]Relative, error) {
	if !g.Contains(id) {
		return nil, ErrUnknownMember
	}

	visited := map[int64]bool{id: true}
	frontier := []int64{id}
	out := []Relative{}

	for depth := 1; depth <= degree && len(frontier) > 0; depth++ {
		var nextFrontier []int64
		for _, cur := range frontier {
			n := g.nodes[cur]
			for _, group := range [][]int64{n.parents, n.children, n.spouses, n.siblings} {
				for _, nb := range group {
					if visited[nb] {
						continue
					}
					visited[nb] = true
					out = append(out, Relative{ID: nb, Depth: depth})
					nextFrontier = append(nextFrontier, nb)
				}
			}
		}
		frontier = nextFrontier
	}
	return out, nil
}

// CommonAncestor returns the nearest common ancestor of a and b: the shared
// ancestor minimizing the combined generation gap, ties broken by a's
// breadth-first discovery order. Returns nil when the two are in disjoint
// components.
func (g *Graph) CommonAncestor(a, b int64) (*CommonAncestorResult, error) {
	ancA, err := g.AncestorsOf(a, 0)
	if err != nil {
		return nil, err
	}
	ancB, err := g.AncestorsOf(b, 0)
	if err != nil {
		return nil, err
	}

	// Each member is its own depth-0 ancestor.
	ancA = append([]Relative{{ID: a, Depth: 0}}, ancA...)
	depthB := map[int64]int{b: 0}
	for _, r := range ancB {
		if _, ok := depthB[r.ID]; !ok {
			depthB[r.ID] = r.Depth
		}
	}

	var best *CommonAncestorResult
	for _, r := range ancA {
		db, ok := depthB[r.ID]
		if !ok {
			continue
		}
		if best == nil || r.Depth+db < best.DepthA+best.DepthB {
			best = &CommonAncestorResult{ID: r.ID, DepthA: r.Depth, DepthB: db}
		}
	}
	return best, nil
}
