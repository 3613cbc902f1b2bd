package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mfalkner/kinfolk/internal/auth"
	"github.com/mfalkner/kinfolk/internal/familytree"
	"github.com/mfalkner/kinfolk/internal/model"
	"github.com/mfalkner/kinfolk/internal/store"
	ws "github.com/mfalkner/kinfolk/internal/websocket"
)

// maxParentsKey is the per-family setting overriding the default parent cap.
const maxParentsKey = "max_parents"

type RelationshipHandler struct {
	members       *store.MemberStore
	relationships *store.RelationshipStore
	settings      *store.SettingsStore
	hub           *ws.Hub
	logger        *slog.Logger
}

func NewRelationshipHandler(ms *store.MemberStore, rs *store.RelationshipStore, ss *store.SettingsStore, hub *ws.Hub, logger *slog.Logger) *RelationshipHandler {
	return &RelationshipHandler{
		members:       ms,
		relationships: rs,
		settings:      ss,
		hub:           hub,
		logger:        logger,
	}
}

// validator builds a Validator honoring the family's parent-cap setting.
func (h *RelationshipHandler) validator(familyID int64) (*familytree.Validator, error) {
	maxParents, err := h.settings.GetInt(familyID, maxParentsKey, 2)
	if err != nil {
		return nil, err
	}
	return familytree.NewValidator(familytree.WithMaxParents(maxParents)), nil
}

func (h *RelationshipHandler) List(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	edges, err := h.relationships.List(familyID)
	if err != nil {
		h.logger.Error("list relationships", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list relationships"})
		return
	}
	if edges == nil {
		edges = []model.Relationship{}
	}
	writeJSON(w, http.StatusOK, edges)
}

func (h *RelationshipHandler) Create(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	var req struct {
		MemberA int64  `json:"member_a"`
		MemberB int64  `json:"member_b"`
		Kind    string `json:"kind"`
		Since   string `json:"since"`
		Until   string `json:"until"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	// Both endpoints must be live members of this family.
	for _, id := range []int64{req.MemberA, req.MemberB} {
		m, err := h.members.GetByID(familyID, id)
		if err != nil {
			h.logger.Error("get member", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to check member"})
			return
		}
		if m == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "member not found"})
			return
		}
	}

	edge := model.Relationship{
		MemberA: req.MemberA,
		MemberB: req.MemberB,
		Kind:    req.Kind,
		Since:   req.Since,
		Until:   req.Until,
	}

	existing, err := h.relationships.List(familyID)
	if err != nil {
		h.logger.Error("list relationships", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to validate relationship"})
		return
	}
	v, err := h.validator(familyID)
	if err != nil {
		h.logger.Error("read validator settings", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to validate relationship"})
		return
	}
	if check := v.ValidateMutation(edge, familytree.OpInsert, existing); !check.OK {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": check.Reason})
		return
	}

	created, err := h.relationships.Create(familyID, edge)
	if err != nil {
		h.logger.Error("create relationship", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create relationship"})
		return
	}

	h.hub.Broadcast(familyID, ws.NewMessage("relationship", "created", created.ID, nil))
	writeJSON(w, http.StatusCreated, created)
}

func (h *RelationshipHandler) Delete(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.relationships.GetByID(familyID, id)
	if err != nil {
		h.logger.Error("get relationship", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get relationship"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "relationship does not exist"})
		return
	}

	if err := h.relationships.Delete(familyID, id); err != nil {
		h.logger.Error("delete relationship", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete relationship"})
		return
	}

	h.hub.Broadcast(familyID, ws.NewMessage("relationship", "deleted", id, nil))
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
