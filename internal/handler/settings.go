package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"github.com/mfalkner/kinfolk/internal/auth"
	"github.com/mfalkner/kinfolk/internal/l10n"
	"github.com/mfalkner/kinfolk/internal/store"
)

// editPINKey stores the bcrypt hash of the family's optional edit PIN.
// When set, destructive operations ask for the PIN before proceeding.
const editPINKey = "edit_pin"

type SettingsHandler struct {
	settings *store.SettingsStore
	users    *store.UserStore
	catalog  *l10n.Catalog
	logger   *slog.Logger
}

func NewSettingsHandler(ss *store.SettingsStore, us *store.UserStore, catalog *l10n.Catalog, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{settings: ss, users: us, catalog: catalog, logger: logger}
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	reminderEmail, err := h.settings.Get(familyID, "reminder_email")
	if err != nil {
		h.logger.Error("get settings", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load settings"})
		return
	}
	maxParents, err := h.settings.GetInt(familyID, maxParentsKey, 2)
	if err != nil {
		h.logger.Error("get settings", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load settings"})
		return
	}
	pinHash, err := h.settings.Get(familyID, editPINKey)
	if err != nil {
		h.logger.Error("get settings", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load settings"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"reminder_email": reminderEmail,
		"max_parents":    maxParents,
		"has_pin":        pinHash != "",
		"locales":        h.catalog.Locales(),
	})
}

func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())
	if !auth.IsAdmin(r.Context()) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "only admins can change settings"})
		return
	}

	var req struct {
		ReminderEmail *string `json:"reminder_email"`
		MaxParents    *int    `json:"max_parents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if req.ReminderEmail != nil {
		if err := h.settings.Set(familyID, "reminder_email", *req.ReminderEmail); err != nil {
			h.logger.Error("set reminder email", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save settings"})
			return
		}
	}
	if req.MaxParents != nil {
		if *req.MaxParents < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "max_parents cannot be negative"})
			return
		}
		if err := h.settings.Set(familyID, maxParentsKey, strconv.Itoa(*req.MaxParents)); err != nil {
			h.logger.Error("set max parents", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save settings"})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// UpdateLocale changes the calling user's UI language.
func (h *SettingsHandler) UpdateLocale(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req struct {
		Locale string `json:"locale"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if !h.catalog.Has(req.Locale) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown locale"})
		return
	}

	user, err := h.users.GetByID(ac.UserID)
	if err != nil || user == nil {
		h.logger.Error("get user", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save locale"})
		return
	}
	if _, err := h.users.Update(user.ID, user.Name, req.Locale); err != nil {
		h.logger.Error("update locale", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save locale"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (h *SettingsHandler) SetPIN(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())
	if !auth.IsAdmin(r.Context()) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "only admins can set the PIN"})
		return
	}

	var req struct {
		PIN string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if len(req.PIN) < 4 || len(req.PIN) > 8 || !isDigits(req.PIN) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "PIN must be 4-8 digits"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.PIN), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hash pin", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to set PIN"})
		return
	}
	if err := h.settings.Set(familyID, editPINKey, string(hash)); err != nil {
		h.logger.Error("save pin", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to set PIN"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "set"})
}

func (h *SettingsHandler) ClearPIN(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())
	if !auth.IsAdmin(r.Context()) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "only admins can clear the PIN"})
		return
	}

	if err := h.settings.Delete(familyID, editPINKey); err != nil {
		h.logger.Error("clear pin", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to clear PIN"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (h *SettingsHandler) VerifyPIN(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	var req struct {
		PIN string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	hash, err := h.settings.Get(familyID, editPINKey)
	if err != nil {
		h.logger.Error("get pin", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to verify PIN"})
		return
	}
	if hash == "" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "verified"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.PIN)); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "incorrect PIN"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
