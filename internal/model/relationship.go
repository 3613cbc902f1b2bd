package model

import "time"

// Relationship kinds. Parent edges are directed (A is parent of B); spouse
// and sibling edges are symmetric and stored once per unordered pair.
const (
	KindParent  = "parent"
	KindSpouse  = "spouse"
	KindSibling = "sibling"
)

// ValidKind reports whether kind is one of the supported relationship kinds.
func ValidKind(kind string) bool {
	switch kind {
	case KindParent, KindSpouse, KindSibling:
		return true
	}
	return false
}

// Relationship is a typed edge between two members of the same family.
type Relationship struct {
	ID        int64     `json:"id"`
	FamilyID  int64     `json:"family_id"`
	MemberA   int64     `json:"member_a"`
	MemberB   int64     `json:"member_b"`
	Kind      string    `json:"kind"`
	Since     string    `json:"since,omitempty"`
	Until     string    `json:"until,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Symmetric reports whether the edge kind is undirected.
func (r *Relationship) Symmetric() bool {
	return r.Kind == KindSpouse || r.Kind == KindSibling
}
