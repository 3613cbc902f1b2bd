package familytree

import (
	"fmt"

	"github.com/mfalkner/kinfolk/internal/model"
)

// Operation is a proposed mutation of the relationship store.
type Operation string

const (
	OpInsert Operation = "insert"
	OpDelete Operation = "delete"
)

// Result is the outcome of a validation check. A rejected mutation must not
// be persisted; the reason is safe to surface to the user.
type Result struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

func accept() Result              { return Result{OK: true} }
func reject(reason string) Result { return Result{Reason: reason} }

// Validator checks proposed edge mutations against the current edge set
// before they are committed. It is a pure check: persisting an accepted
// mutation is the caller's job.
type Validator struct {
	maxParents int
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithMaxParents caps how many parent edges a member may have. The default
// is 2; 0 disables the cap. This is policy, not a structural invariant:
// adoptive and step parents can push past two where the family wants them
// recorded.
func WithMaxParents(n int) ValidatorOption {
	return func(v *Validator) {
		v.maxParents = n
	}
}

// NewValidator creates a Validator with the default two-parent policy.
func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{maxParents: 2}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateMutation checks a proposed insert or delete of edge against the
// existing edges and returns Accept or Reject(reason).
func (v *Validator) ValidateMutation(edge model.Relationship, op Operation, existing []model.Relationship) Result {
	switch op {
	case OpInsert:
		return v.validateInsert(edge, existing)
	case OpDelete:
		return v.validateDelete(edge, existing)
	}
	return reject(fmt.Sprintf("unknown operation %q", op))
}

func (v *Validator) validateInsert(edge model.Relationship, existing []model.Relationship) Result {
	if !model.ValidKind(edge.Kind) {
		return reject(fmt.Sprintf("unknown relationship kind %q", edge.Kind))
	}
	if edge.MemberA == edge.MemberB {
		return reject("a member cannot be related to itself")
	}
	if findEdge(edge, existing) != nil {
		return reject(fmt.Sprintf("a %s relationship between these members already exists", edge.Kind))
	}

	if edge.Kind == model.KindParent {
		if v.maxParents > 0 && countParents(edge.MemberB, existing) >= v.maxParents {
			return reject(fmt.Sprintf("member already has %d recorded parents", v.maxParents))
		}
		// Inserting parent(A,B) closes a cycle exactly when A is already
		// a descendant of B. Reachability search from B through child
		// edges, bounded by the visited set.
		if reachesThroughChildren(edge.MemberB, edge.MemberA, existing) {
			return reject("relationship would make a member its own ancestor")
		}
	}

	return accept()
}

func (v *Validator) validateDelete(edge model.Relationship, existing []model.Relationship) Result {
	if findEdge(edge, existing) == nil {
		return reject("relationship does not exist")
	}
	return accept()
}

// findEdge locates an existing edge of the same kind between the pair:
// ordered match for parent edges, unordered for spouse and sibling.
func findEdge(edge model.Relationship, existing []model.Relationship) *model.Relationship {
	for i := range existing {
		e := &existing[i]
		if e.Kind != edge.Kind {
			continue
		}
		if e.MemberA == edge.MemberA && e.MemberB == edge.MemberB {
			return e
		}
		if edge.Symmetric() && e.MemberA == edge.MemberB && e.MemberB == edge.MemberA {
			return e
		}
	}
	return nil
}

func countParents(memberID int64, existing []model.Relationship) int {
	count := 0
	for _, e := range existing {
		if e.Kind == model.KindParent && e.MemberB == memberID {
			count++
		}
	}
	return count
}

// reachesThroughChildren reports whether target is reachable from start by
// following parent edges downward (parent to child). Depth-first with a
// visited set; O(V+E) on the existing parent subgraph.
func reachesThroughChildren(start, target int64, existing []model.Relationship) bool {
	children := make(map[int64][]int64)
	for _, e := range existing {
		if e.Kind == model.KindParent {
			children[e.MemberA] = append(children[e.MemberA], e.MemberB)
		}
	}

	visited := map[int64]bool{start: true}
	stack := []int64{start}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, c := range children[cur] {
			if c == target {
				return true
			}
			if !visited[c] {
				visited[c] = true
				stack = append(stack, c)
			}
		}
	}
	return false
}
