package handler

import (
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mfalkner/kinfolk/internal/auth"
	"github.com/mfalkner/kinfolk/internal/email"
	"github.com/mfalkner/kinfolk/internal/model"
	"github.com/mfalkner/kinfolk/internal/store"
)

const (
	sessionCookieName = "kinfolk_session"
	sessionTTL        = 90 * 24 * time.Hour
	maxCodeAttempts   = 5
)

type AuthHandler struct {
	userStore      *store.UserStore
	familyStore    *store.FamilyStore
	sessionStore   *store.SessionStore
	magicLinkStore *store.MagicLinkStore
	emailClient    *email.Client
	templates      *template.Template
	logger         *slog.Logger
}

func NewAuthHandler(
	us *store.UserStore,
	fs *store.FamilyStore,
	ss *store.SessionStore,
	mls *store.MagicLinkStore,
	ec *email.Client,
	logger *slog.Logger,
) *AuthHandler {
	tmpl := template.Must(template.ParseGlob("web/templates/auth_*.html"))
	return &AuthHandler{
		userStore:      us,
		familyStore:    fs,
		sessionStore:   ss,
		magicLinkStore: mls,
		emailClient:    ec,
		templates:      tmpl,
		logger:         logger,
	}
}

func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.templates.ExecuteTemplate(w, "auth_login.html", nil)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	emailAddr := strings.TrimSpace(r.FormValue("email"))
	if emailAddr == "" {
		http.Error(w, "Email is required", http.StatusBadRequest)
		return
	}

	// Always show "check your email" to prevent user enumeration
	defer func() {
		h.templates.ExecuteTemplate(w, "auth_check_email.html", map[string]any{
			"Email":  emailAddr,
			"Invite": false,
		})
	}()

	user, err := h.userStore.GetByEmail(emailAddr)
	if err != nil {
		h.logger.Error("login lookup", "error", err)
		return
	}
	if user == nil {
		return // user doesn't exist, but we still show "check email"
	}

	families, err := h.familyStore.ListForUser(user.ID)
	if err != nil || len(families) == 0 {
		h.logger.Error("login families", "error", err)
		return
	}

	ml, err := h.magicLinkStore.Create(emailAddr, "login", nil)
	if err != nil {
		h.logger.Error("create auth code", "error", err)
		return
	}

	if err := h.emailClient.SendAuthCode(r.Context(), emailAddr, ml.Token, "login", ""); err != nil {
		h.logger.Error("send auth code", "error", err)
	}
}

func (h *AuthHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.templates.ExecuteTemplate(w, "auth_register.html", nil)
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	emailAddr := strings.TrimSpace(r.FormValue("email"))
	familyName := strings.TrimSpace(r.FormValue("family_name"))
	name := strings.TrimSpace(r.FormValue("name"))

	if emailAddr == "" || familyName == "" {
		http.Error(w, "Email and family name are required", http.StatusBadRequest)
		return
	}

	existing, err := h.userStore.GetByEmail(emailAddr)
	if err != nil {
		h.logger.Error("register lookup", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	if existing != nil {
		// Show check email page even if user exists (prevent enumeration)
		h.templates.ExecuteTemplate(w, "auth_check_email.html", map[string]any{
			"Email":  emailAddr,
			"Invite": false,
		})
		return
	}

	family, err := h.familyStore.Create(familyName)
	if err != nil {
		h.logger.Error("create family", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	user, err := h.userStore.Create(emailAddr, name)
	if err != nil {
		h.logger.Error("create user", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	if _, err := h.familyStore.AddUser(family.ID, user.ID, "admin"); err != nil {
		h.logger.Error("add family user", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	ml, err := h.magicLinkStore.Create(emailAddr, "register", &family.ID)
	if err != nil {
		h.logger.Error("create auth code", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	if err := h.emailClient.SendAuthCode(r.Context(), emailAddr, ml.Token, "register", familyName); err != nil {
		h.logger.Error("send auth code", "error", err)
	}

	h.templates.ExecuteTemplate(w, "auth_check_email.html", map[string]any{
		"Email":  emailAddr,
		"Invite": false,
	})
}

// validateCode checks the code for the given email, handling attempts and expiry.
// Returns the magic link on success, or an error message string on failure.
func (h *AuthHandler) validateCode(emailAddr, code string) (*model.MagicLink, string) {
	if emailAddr == "" || code == "" {
		return nil, "Email and code are required"
	}

	latest, err := h.magicLinkStore.GetLatestByEmail(emailAddr)
	if err != nil {
		h.logger.Error("validate code lookup", "error", err)
		return nil, "Internal error"
	}
	if latest == nil {
		return nil, "Code has expired or already been used. Please request a new one."
	}

	if latest.Attempts >= maxCodeAttempts {
		h.magicLinkStore.MarkUsed(latest.ID)
		return nil, "Too many incorrect attempts. Please request a new code."
	}

	if latest.Token != code {
		newAttempts, err := h.magicLinkStore.IncrementAttempts(latest.ID)
		if err != nil {
			h.logger.Error("increment attempts", "error", err)
		}
		if newAttempts >= maxCodeAttempts {
			h.magicLinkStore.MarkUsed(latest.ID)
			return nil, "Too many incorrect attempts. Please request a new code."
		}
		return nil, "Incorrect code. Please try again."
	}

	if err := h.magicLinkStore.MarkUsed(latest.ID); err != nil {
		h.logger.Error("mark used", "error", err)
		return nil, "Internal error"
	}

	return latest, ""
}

func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	emailAddr := strings.TrimSpace(r.FormValue("email"))
	code := strings.TrimSpace(r.FormValue("code"))

	ml, errMsg := h.validateCode(emailAddr, code)
	if errMsg != "" {
		h.templates.ExecuteTemplate(w, "auth_check_email.html", map[string]any{
			"Email":  emailAddr,
			"Invite": false,
			"Error":  errMsg,
		})
		return
	}

	user, err := h.userStore.GetByEmail(ml.Email)
	if err != nil || user == nil {
		h.logger.Error("verify user lookup", "error", err)
		http.Error(w, "User not found", http.StatusBadRequest)
		return
	}

	families, err := h.familyStore.ListForUser(user.ID)
	if err != nil || len(families) == 0 {
		h.logger.Error("verify families", "error", err)
		http.Error(w, "No family found", http.StatusBadRequest)
		return
	}

	// Use the magic link's family if specified, otherwise the first one
	familyID := families[0].ID
	if ml.FamilyID != nil {
		familyID = *ml.FamilyID
	}

	sess, err := h.sessionStore.Create(user.ID, familyID, sessionTTL)
	if err != nil {
		h.logger.Error("create session", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	h.setSessionCookie(w, r, sess.Token)

	if len(families) > 1 {
		http.Redirect(w, r, "/families", http.StatusSeeOther)
	} else {
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(sessionTTL / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
}

// Invite emails a code that adds someone to the caller's family.
func (h *AuthHandler) Invite(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())
	if !auth.IsAdmin(r.Context()) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "only admins can invite"})
		return
	}

	emailAddr := strings.TrimSpace(r.FormValue("email"))
	if emailAddr == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email is required"})
		return
	}

	family, err := h.familyStore.GetByID(familyID)
	if err != nil || family == nil {
		h.logger.Error("invite family lookup", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	ml, err := h.magicLinkStore.Create(emailAddr, "invite", &familyID)
	if err != nil {
		h.logger.Error("create invite code", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	if err := h.emailClient.SendAuthCode(r.Context(), emailAddr, ml.Token, "invite", family.Name); err != nil {
		h.logger.Error("send invite code", "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "invited"})
}

func (h *AuthHandler) InviteAcceptPage(w http.ResponseWriter, r *http.Request) {
	emailAddr := r.URL.Query().Get("email")
	h.templates.ExecuteTemplate(w, "auth_check_email.html", map[string]any{
		"Email":  emailAddr,
		"Invite": true,
	})
}

func (h *AuthHandler) InviteAccept(w http.ResponseWriter, r *http.Request) {
	emailAddr := strings.TrimSpace(r.FormValue("email"))
	code := strings.TrimSpace(r.FormValue("code"))

	ml, errMsg := h.validateCode(emailAddr, code)
	if errMsg != "" {
		h.templates.ExecuteTemplate(w, "auth_check_email.html", map[string]any{
			"Email":  emailAddr,
			"Invite": true,
			"Error":  errMsg,
		})
		return
	}

	if ml.Purpose != "invite" || ml.FamilyID == nil {
		h.templates.ExecuteTemplate(w, "auth_check_email.html", map[string]any{
			"Email":  emailAddr,
			"Invite": true,
			"Error":  "This code is not a valid invitation.",
		})
		return
	}

	user, err := h.userStore.GetByEmail(ml.Email)
	if err != nil {
		h.logger.Error("invite user lookup", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	if user == nil {
		user, err = h.userStore.Create(ml.Email, "")
		if err != nil {
			h.logger.Error("create invite user", "error", err)
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}
	}

	// Add to family (tolerate an existing membership)
	if _, err := h.familyStore.AddUser(*ml.FamilyID, user.ID, "member"); err != nil {
		existing, _ := h.familyStore.GetUser(*ml.FamilyID, user.ID)
		if existing == nil {
			h.logger.Error("add invited user", "error", err)
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}
	}

	sess, err := h.sessionStore.Create(user.ID, *ml.FamilyID, sessionTTL)
	if err != nil {
		h.logger.Error("create session", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	h.setSessionCookie(w, r, sess.Token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		if err := h.sessionStore.Delete(cookie.Value); err != nil {
			h.logger.Error("delete session", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func parseFormID(r *http.Request, field string) (int64, error) {
	return strconv.ParseInt(r.FormValue(field), 10, 64)
}

// SwitchFamily reissues the session against another family the user
// belongs to.
func (h *AuthHandler) SwitchFamily(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	familyID, err := parseFormID(r, "family_id")
	if err != nil {
		http.Error(w, "Invalid family", http.StatusBadRequest)
		return
	}

	fu, err := h.familyStore.GetUser(familyID, ac.UserID)
	if err != nil || fu == nil {
		http.Error(w, "Not a member of that family", http.StatusForbidden)
		return
	}

	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		h.sessionStore.Delete(cookie.Value)
	}
	sess, err := h.sessionStore.Create(ac.UserID, familyID, sessionTTL)
	if err != nil {
		h.logger.Error("create session", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	h.setSessionCookie(w, r, sess.Token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
