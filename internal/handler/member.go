package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/mfalkner/kinfolk/internal/auth"
	"github.com/mfalkner/kinfolk/internal/model"
	"github.com/mfalkner/kinfolk/internal/store"
	ws "github.com/mfalkner/kinfolk/internal/websocket"
)

type MemberHandler struct {
	store  *store.MemberStore
	hub    *ws.Hub
	logger *slog.Logger
}

func NewMemberHandler(s *store.MemberStore, hub *ws.Hub, logger *slog.Logger) *MemberHandler {
	return &MemberHandler{store: s, hub: hub, logger: logger}
}

type memberRequest struct {
	Name     string `json:"name"`
	Alias    string `json:"alias"`
	Sex      string `json:"sex"`
	Born     string `json:"born"`
	Died     string `json:"died"`
	Email    string `json:"email"`
	Notes    string `json:"notes"`
	PhotoURL string `json:"photo_url"`
}

func (req *memberRequest) toModel() model.Member {
	return model.Member{
		Name:     strings.TrimSpace(req.Name),
		Alias:    strings.TrimSpace(req.Alias),
		Sex:      req.Sex,
		Born:     strings.TrimSpace(req.Born),
		Died:     strings.TrimSpace(req.Died),
		Email:    strings.TrimSpace(req.Email),
		Notes:    req.Notes,
		PhotoURL: strings.TrimSpace(req.PhotoURL),
	}
}

func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	if q := r.URL.Query().Get("q"); q != "" {
		members, err := h.store.Search(familyID, q)
		if err != nil {
			h.logger.Error("search members", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to search members"})
			return
		}
		if members == nil {
			members = []model.Member{}
		}
		writeJSON(w, http.StatusOK, members)
		return
	}

	members, err := h.store.List(familyID)
	if err != nil {
		h.logger.Error("list members", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list members"})
		return
	}
	if members == nil {
		members = []model.Member{}
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *MemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	m := req.toModel()
	if m.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	created, err := h.store.Create(familyID, m)
	if err != nil {
		h.logger.Error("create member", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create member"})
		return
	}

	h.hub.Broadcast(familyID, ws.NewMessage("member", "created", created.ID, nil))
	writeJSON(w, http.StatusCreated, created)
}

func (h *MemberHandler) Get(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	m, err := h.store.GetByID(familyID, id)
	if err != nil {
		h.logger.Error("get member", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get member"})
		return
	}
	if m == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "member not found"})
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *MemberHandler) Update(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.store.GetByID(familyID, id)
	if err != nil {
		h.logger.Error("get member", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get member"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "member not found"})
		return
	}

	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	m := req.toModel()
	if m.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	updated, err := h.store.Update(familyID, id, m)
	if err != nil {
		h.logger.Error("update member", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update member"})
		return
	}

	h.hub.Broadcast(familyID, ws.NewMessage("member", "updated", id, nil))
	writeJSON(w, http.StatusOK, updated)
}

func (h *MemberHandler) Delete(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.store.GetByID(familyID, id)
	if err != nil {
		h.logger.Error("get member", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get member"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "member not found"})
		return
	}

	if err := h.store.Delete(familyID, id); err != nil {
		h.logger.Error("delete member", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete member"})
		return
	}

	h.hub.Broadcast(familyID, ws.NewMessage("member", "deleted", id, nil))
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
