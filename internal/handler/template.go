package handler

import (
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/mfalkner/kinfolk/internal/auth"
	"github.com/mfalkner/kinfolk/internal/l10n"
	"github.com/mfalkner/kinfolk/internal/model"
	"github.com/mfalkner/kinfolk/internal/store"
)

// TemplateHandler renders the HTML pages. Data endpoints live on the API
// handlers; pages carry the initial state and HTMX does the rest.
type TemplateHandler struct {
	members   *store.MemberStore
	families  *store.FamilyStore
	users     *store.UserStore
	settings  *store.SettingsStore
	catalog   *l10n.Catalog
	templates *template.Template
	logger    *slog.Logger
}

func NewTemplateHandler(ms *store.MemberStore, fs *store.FamilyStore, us *store.UserStore, ss *store.SettingsStore, catalog *l10n.Catalog, logger *slog.Logger) *TemplateHandler {
	tmpl := template.Must(template.ParseGlob("web/templates/page_*.html"))
	return &TemplateHandler{
		members:   ms,
		families:  fs,
		users:     us,
		settings:  ss,
		catalog:   catalog,
		templates: tmpl,
		logger:    logger,
	}
}

// translator picks the calling user's locale, defaulting to English.
func (h *TemplateHandler) translator(r *http.Request) func(string) string {
	locale := "en"
	if ac, ok := auth.FromContext(r.Context()); ok {
		if user, err := h.users.GetByID(ac.UserID); err == nil && user != nil && user.Locale != "" {
			locale = user.Locale
		}
	}
	return h.catalog.Func(locale)
}

func (h *TemplateHandler) Index(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	family, err := h.families.GetByID(familyID)
	if err != nil || family == nil {
		h.logger.Error("get family", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	members, err := h.members.List(familyID)
	if err != nil {
		h.logger.Error("list members", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	if members == nil {
		members = []model.Member{}
	}

	data := map[string]any{
		"Family":  family,
		"Members": members,
		"IsAdmin": auth.IsAdmin(r.Context()),
		"T":       h.translator(r),
	}
	if err := h.templates.ExecuteTemplate(w, "page_index.html", data); err != nil {
		h.logger.Error("render index", "error", err)
	}
}

// TreePage renders the family tree view. The page fetches the DOT output
// of the query API for the chosen member and draws it client-side.
func (h *TemplateHandler) TreePage(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	members, err := h.members.List(familyID)
	if err != nil {
		h.logger.Error("list members", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	data := map[string]any{
		"Members": members,
		"Root":    r.URL.Query().Get("root"),
		"T":       h.translator(r),
	}
	if err := h.templates.ExecuteTemplate(w, "page_tree.html", data); err != nil {
		h.logger.Error("render tree", "error", err)
	}
}

// BirthdaysPage lists this month's birthdays.
func (h *TemplateHandler) BirthdaysPage(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	now := time.Now()
	members, err := h.members.BornInMonth(familyID, int(now.Month()))
	if err != nil {
		h.logger.Error("list birthdays", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	data := map[string]any{
		"Month":   now.Month().String(),
		"Today":   now.Day(),
		"Members": members,
		"T":       h.translator(r),
	}
	if err := h.templates.ExecuteTemplate(w, "page_birthdays.html", data); err != nil {
		h.logger.Error("render birthdays", "error", err)
	}
}

// SettingsPage shows the family settings form. Saves go through the
// settings API.
func (h *TemplateHandler) SettingsPage(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	reminderEmail, err := h.settings.Get(familyID, "reminder_email")
	if err != nil {
		h.logger.Error("get settings", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	maxParents, err := h.settings.GetInt(familyID, maxParentsKey, 2)
	if err != nil {
		h.logger.Error("get settings", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	pinHash, err := h.settings.Get(familyID, editPINKey)
	if err != nil {
		h.logger.Error("get settings", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	locale := "en"
	if ac, ok := auth.FromContext(r.Context()); ok {
		if user, err := h.users.GetByID(ac.UserID); err == nil && user != nil && user.Locale != "" {
			locale = user.Locale
		}
	}

	data := map[string]any{
		"ReminderEmail": reminderEmail,
		"MaxParents":    maxParents,
		"HasPIN":        pinHash != "",
		"Locales":       h.catalog.Locales(),
		"Locale":        locale,
		"IsAdmin":       auth.IsAdmin(r.Context()),
		"T":             h.catalog.Func(locale),
	}
	if err := h.templates.ExecuteTemplate(w, "page_settings.html", data); err != nil {
		h.logger.Error("render settings", "error", err)
	}
}

// ImportPage shows the import/export forms.
func (h *TemplateHandler) ImportPage(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{
		"T": h.translator(r),
	}
	if err := h.templates.ExecuteTemplate(w, "page_import.html", data); err != nil {
		h.logger.Error("render import", "error", err)
	}
}

// FamiliesPage lists the user's families for switching.
func (h *TemplateHandler) FamiliesPage(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	families, err := h.families.ListForUser(ac.UserID)
	if err != nil {
		h.logger.Error("list families", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	data := map[string]any{
		"Families": families,
		"Current":  ac.FamilyID,
		"T":        h.translator(r),
	}
	if err := h.templates.ExecuteTemplate(w, "page_families.html", data); err != nil {
		h.logger.Error("render families", "error", err)
	}
}
