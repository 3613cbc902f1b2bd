package familytree

import (
	"errors"
	"fmt"
)

// ErrUnknownMember is returned by traversal queries for a member id that is
// not present in the graph.
var ErrUnknownMember = errors.New("member not in graph")

// DataIntegrityError reports a relationship edge referencing a member id
// that is absent from the member set. Graph construction aborts rather than
// dropping the edge silently.
type DataIntegrityError struct {
	EdgeID   int64
	MemberID int64
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("relationship %d references unknown member %d", e.EdgeID, e.MemberID)
}

// CycleDetectedError reports a cycle in the parent layer of a graph. The
// validator prevents these from being committed, so hitting one means the
// store was written outside the validator; the request fails instead of
// looping.
type CycleDetectedError struct {
	MemberID int64
}

func (e *CycleDetectedError) Error() string {
	return fmt.Sprintf("ancestry cycle detected at member %d", e.MemberID)
}
