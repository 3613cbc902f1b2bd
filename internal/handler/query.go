package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mfalkner/kinfolk/internal/auth"
	"github.com/mfalkner/kinfolk/internal/familytree"
	"github.com/mfalkner/kinfolk/internal/store"
)

// QueryHandler answers the tree questions: ancestors, descendants,
// relatives within a degree, nearest common ancestor, and the DOT rendering
// of a member's neighborhood. Each query rebuilds the graph from the stores,
// so it always reflects the latest committed mutation.
type QueryHandler struct {
	members       *store.MemberStore
	relationships *store.RelationshipStore
	logger        *slog.Logger
}

func NewQueryHandler(ms *store.MemberStore, rs *store.RelationshipStore, logger *slog.Logger) *QueryHandler {
	return &QueryHandler{members: ms, relationships: rs, logger: logger}
}

// relativeView is a query result hydrated with the member's name.
type relativeView struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Depth int    `json:"depth"`
}

func (h *QueryHandler) buildGraph(familyID int64) (*familytree.Graph, error) {
	members, err := h.members.List(familyID)
	if err != nil {
		return nil, err
	}
	edges, err := h.relationships.List(familyID)
	if err != nil {
		return nil, err
	}
	return familytree.Build(members, edges)
}

// writeGraphError maps traversal failures onto HTTP statuses: unknown
// member is the caller's fault, broken stored data is ours.
func (h *QueryHandler) writeGraphError(w http.ResponseWriter, err error) {
	var integrity *familytree.DataIntegrityError
	var cycle *familytree.CycleDetectedError
	switch {
	case errors.Is(err, familytree.ErrUnknownMember):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "member not found"})
	case errors.As(err, &integrity):
		h.logger.Error("data integrity", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	case errors.As(err, &cycle):
		h.logger.Error("cycle detected", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	default:
		h.logger.Error("tree query", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to query tree"})
	}
}

func depthParam(r *http.Request, name string, def int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func (h *QueryHandler) hydrate(g *familytree.Graph, rels []familytree.Relative) []relativeView {
	out := make([]relativeView, 0, len(rels))
	for _, rel := range rels {
		m, _ := g.Member(rel.ID)
		out = append(out, relativeView{ID: rel.ID, Name: m.Name, Depth: rel.Depth})
	}
	return out
}

func (h *QueryHandler) walkHandler(w http.ResponseWriter, r *http.Request, up bool) {
	familyID := auth.FamilyID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	g, err := h.buildGraph(familyID)
	if err != nil {
		h.writeGraphError(w, err)
		return
	}

	depth := depthParam(r, "depth", 0)
	var rels []familytree.Relative
	if up {
		rels, err = g.AncestorsOf(id, depth)
	} else {
		rels, err = g.DescendantsOf(id, depth)
	}
	if err != nil {
		h.writeGraphError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.hydrate(g, rels))
}

func (h *QueryHandler) Ancestors(w http.ResponseWriter, r *http.Request) {
	h.walkHandler(w, r, true)
}

func (h *QueryHandler) Descendants(w http.ResponseWriter, r *http.Request) {
	h.walkHandler(w, r, false)
}

func (h *QueryHandler) Relatives(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	g, err := h.buildGraph(familyID)
	if err != nil {
		h.writeGraphError(w, err)
		return
	}

	rels, err := g.RelativesWithinDegree(id, depthParam(r, "degree", 1))
	if err != nil {
		h.writeGraphError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.hydrate(g, rels))
}

func (h *QueryHandler) CommonAncestor(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	a, errA := strconv.ParseInt(r.URL.Query().Get("a"), 10, 64)
	b, errB := strconv.ParseInt(r.URL.Query().Get("b"), 10, 64)
	if errA != nil || errB != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "a and b member ids are required"})
		return
	}

	g, err := h.buildGraph(familyID)
	if err != nil {
		h.writeGraphError(w, err)
		return
	}

	res, err := g.CommonAncestor(a, b)
	if err != nil {
		h.writeGraphError(w, err)
		return
	}
	if res == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no common ancestor"})
		return
	}

	m, _ := g.Member(res.ID)
	writeJSON(w, http.StatusOK, map[string]any{
		"id":      res.ID,
		"name":    m.Name,
		"depth_a": res.DepthA,
		"depth_b": res.DepthB,
	})
}

// Dot streams the Graphviz rendering of the subgraph around a member.
func (h *QueryHandler) Dot(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	g, err := h.buildGraph(familyID)
	if err != nil {
		h.writeGraphError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/vnd.graphviz")
	if err := familytree.WriteDOT(w, g, id, depthParam(r, "depth", 0)); err != nil {
		if errors.Is(err, familytree.ErrUnknownMember) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "member not found"})
			return
		}
		h.logger.Error("render dot", "error", err)
	}
}
