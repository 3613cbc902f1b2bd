package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.uber.org/multierr"

	"github.com/mfalkner/kinfolk/internal/auth"
	"github.com/mfalkner/kinfolk/internal/familytree"
	"github.com/mfalkner/kinfolk/internal/store"
	"github.com/mfalkner/kinfolk/internal/transfer"
	ws "github.com/mfalkner/kinfolk/internal/websocket"
)

type TransferHandler struct {
	members       *store.MemberStore
	relationships *store.RelationshipStore
	settings      *store.SettingsStore
	hub           *ws.Hub
	logger        *slog.Logger
}

func NewTransferHandler(ms *store.MemberStore, rs *store.RelationshipStore, ss *store.SettingsStore, hub *ws.Hub, logger *slog.Logger) *TransferHandler {
	return &TransferHandler{
		members:       ms,
		relationships: rs,
		settings:      ss,
		hub:           hub,
		logger:        logger,
	}
}

// importer builds an Importer whose validator honors the family's
// parent-cap setting, the same policy the relationship API enforces.
func (h *TransferHandler) importer(familyID int64) (*transfer.Importer, error) {
	maxParents, err := h.settings.GetInt(familyID, maxParentsKey, 2)
	if err != nil {
		return nil, err
	}
	v := familytree.NewValidator(familytree.WithMaxParents(maxParents))
	return transfer.NewImporter(h.members, h.relationships, v), nil
}

func importPolicy(r *http.Request) transfer.Policy {
	if r.URL.Query().Get("policy") == "abort" {
		return transfer.AbortOnInvalid
	}
	return transfer.SkipInvalid
}

type importResponse struct {
	BatchID  string   `json:"batch_id"`
	Members  int      `json:"members"`
	Edges    int      `json:"edges"`
	Skipped  int      `json:"skipped"`
	Problems []string `json:"problems,omitempty"`
}

func (h *TransferHandler) respond(w http.ResponseWriter, familyID int64, res *transfer.Result) {
	out := importResponse{
		BatchID: res.BatchID,
		Members: res.Members,
		Edges:   res.Edges,
		Skipped: res.Skipped,
	}
	for _, err := range multierr.Errors(res.Problems) {
		out.Problems = append(out.Problems, err.Error())
	}

	h.logger.Info("import complete",
		"batch", res.BatchID, "members", res.Members, "edges", res.Edges, "skipped", res.Skipped)
	h.hub.Broadcast(familyID, ws.NewMessage("tree", "imported", 0, map[string]any{"batch_id": res.BatchID}))
	writeJSON(w, http.StatusOK, out)
}

func (h *TransferHandler) ImportCSV(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	im, err := h.importer(familyID)
	if err != nil {
		h.logger.Error("read import settings", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to import"})
		return
	}
	res, err := im.ImportCSV(familyID, r.Body, importPolicy(r))
	if err != nil {
		h.logger.Error("import csv", "error", err)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}
	h.respond(w, familyID, res)
}

func (h *TransferHandler) ImportJSON(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	im, err := h.importer(familyID)
	if err != nil {
		h.logger.Error("read import settings", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to import"})
		return
	}
	res, err := im.ImportJSON(familyID, r.Body, importPolicy(r))
	if err != nil {
		h.logger.Error("import json", "error", err)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}
	h.respond(w, familyID, res)
}

func (h *TransferHandler) export(w http.ResponseWriter, r *http.Request, asJSON bool) {
	familyID := auth.FamilyID(r.Context())

	members, err := h.members.List(familyID)
	if err != nil {
		h.logger.Error("list members", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to export"})
		return
	}
	edges, err := h.relationships.List(familyID)
	if err != nil {
		h.logger.Error("list relationships", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to export"})
		return
	}

	stamp := time.Now().UTC().Format("20060102")
	if asJSON {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=kinfolk-%s.json", stamp))
		err = transfer.ExportJSON(w, members, edges)
	} else {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=kinfolk-%s.csv", stamp))
		err = transfer.ExportCSV(w, members, edges)
	}
	if err != nil {
		h.logger.Error("export", "error", err)
	}
}

func (h *TransferHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, false)
}

func (h *TransferHandler) ExportJSON(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, true)
}
