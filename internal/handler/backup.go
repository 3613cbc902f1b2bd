package handler

import (
	"log/slog"
	"net/http"

	"github.com/mfalkner/kinfolk/internal/backup"
	"github.com/mfalkner/kinfolk/internal/store"
)

type BackupHandler struct {
	service *backup.Service
	backups *store.BackupStore
	logger  *slog.Logger
}

func NewBackupHandler(svc *backup.Service, bs *store.BackupStore, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{service: svc, backups: bs, logger: logger}
}

// Run triggers a snapshot. Admin only; the whole database is one file, so
// this is not per-family.
func (h *BackupHandler) Run(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Run(r.Context())
	if err != nil {
		h.logger.Error("backup", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "backup failed"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	backups, err := h.backups.List(20)
	if err != nil {
		h.logger.Error("list backups", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list backups"})
		return
	}
	writeJSON(w, http.StatusOK, backups)
}
