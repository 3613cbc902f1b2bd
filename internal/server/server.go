package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/mfalkner/kinfolk/internal/backup"
	"github.com/mfalkner/kinfolk/internal/email"
	"github.com/mfalkner/kinfolk/internal/handler"
	"github.com/mfalkner/kinfolk/internal/l10n"
	"github.com/mfalkner/kinfolk/internal/middleware"
	"github.com/mfalkner/kinfolk/internal/reminder"
	"github.com/mfalkner/kinfolk/internal/store"
	ws "github.com/mfalkner/kinfolk/internal/websocket"
)

type Server struct {
	db             *sql.DB
	hub            *ws.Hub
	memberH        *handler.MemberHandler
	relationshipH  *handler.RelationshipHandler
	queryH         *handler.QueryHandler
	transferH      *handler.TransferHandler
	settingsH      *handler.SettingsHandler
	backupH        *handler.BackupHandler
	templateH      *handler.TemplateHandler
	authH          *handler.AuthHandler
	sessionStore   *store.SessionStore
	familyStore    *store.FamilyStore
	magicLinkStore *store.MagicLinkStore
	rateLimiter    *middleware.RateLimiter
	scheduler      *reminder.Scheduler
	backupService  *backup.Service
	logger         *slog.Logger
}

func New(db *sql.DB, emailClient *email.Client, backupSvc *backup.Service, catalog *l10n.Catalog, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	memberStore := store.NewMemberStore(db)
	relationshipStore := store.NewRelationshipStore(db)
	settingsStore := store.NewSettingsStore(db)
	reminderStore := store.NewReminderStore(db)
	backupStore := store.NewBackupStore(db)

	// Auth stores
	userStore := store.NewUserStore(db)
	familyStore := store.NewFamilyStore(db)
	sessionStore := store.NewSessionStore(db)
	magicLinkStore := store.NewMagicLinkStore(db)

	scheduler := reminder.NewScheduler(emailClient, familyStore, memberStore, reminderStore, settingsStore, logger)

	return &Server{
		db:             db,
		hub:            hub,
		memberH:        handler.NewMemberHandler(memberStore, hub, logger.With("component", "member")),
		relationshipH:  handler.NewRelationshipHandler(memberStore, relationshipStore, settingsStore, hub, logger.With("component", "relationship")),
		queryH:         handler.NewQueryHandler(memberStore, relationshipStore, logger.With("component", "query")),
		transferH:      handler.NewTransferHandler(memberStore, relationshipStore, settingsStore, hub, logger.With("component", "transfer")),
		settingsH:      handler.NewSettingsHandler(settingsStore, userStore, catalog, logger.With("component", "settings")),
		backupH:        handler.NewBackupHandler(backupSvc, backupStore, logger.With("component", "backup")),
		templateH:      handler.NewTemplateHandler(memberStore, familyStore, userStore, settingsStore, catalog, logger.With("component", "template")),
		authH:          handler.NewAuthHandler(userStore, familyStore, sessionStore, magicLinkStore, emailClient, logger.With("component", "auth")),
		sessionStore:   sessionStore,
		familyStore:    familyStore,
		magicLinkStore: magicLinkStore,
		rateLimiter:    middleware.NewRateLimiter(),
		scheduler:      scheduler,
		backupService:  backupSvc,
		logger:         logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// MagicLinkStore returns the magic link store for cleanup tasks.
func (s *Server) MagicLinkStore() *store.MagicLinkStore {
	return s.magicLinkStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Scheduler returns the birthday reminder scheduler.
func (s *Server) Scheduler() *reminder.Scheduler {
	return s.scheduler
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("GET /login", s.authH.LoginPage)
	outerMux.HandleFunc("POST /login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /register", s.authH.RegisterPage)
	outerMux.HandleFunc("POST /register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /auth/verify", s.rateLimitedHandler(s.authH.Verify))
	outerMux.HandleFunc("GET /invite/accept", s.authH.InviteAcceptPage)
	outerMux.HandleFunc("POST /invite/accept", s.rateLimitedHandler(s.authH.InviteAccept))
	outerMux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir("web/static"))))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes, wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.familyStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Pages
	mux.HandleFunc("GET /{$}", s.templateH.Index)
	mux.HandleFunc("GET /tree", s.templateH.TreePage)
	mux.HandleFunc("GET /birthdays", s.templateH.BirthdaysPage)
	mux.HandleFunc("GET /settings", s.templateH.SettingsPage)
	mux.HandleFunc("GET /import", s.templateH.ImportPage)
	mux.HandleFunc("GET /families", s.templateH.FamiliesPage)
	mux.HandleFunc("POST /families/switch", s.authH.SwitchFamily)
	mux.HandleFunc("POST /logout", s.authH.Logout)
	mux.HandleFunc("POST /invite", s.authH.Invite)

	// Member API routes
	mux.HandleFunc("GET /api/members", s.memberH.List)
	mux.HandleFunc("POST /api/members", s.memberH.Create)
	mux.HandleFunc("GET /api/members/{id}", s.memberH.Get)
	mux.HandleFunc("PUT /api/members/{id}", s.memberH.Update)
	mux.HandleFunc("DELETE /api/members/{id}", s.memberH.Delete)

	// Relationship API routes
	mux.HandleFunc("GET /api/relationships", s.relationshipH.List)
	mux.HandleFunc("POST /api/relationships", s.relationshipH.Create)
	mux.HandleFunc("DELETE /api/relationships/{id}", s.relationshipH.Delete)

	// Tree query API routes
	mux.HandleFunc("GET /api/members/{id}/ancestors", s.queryH.Ancestors)
	mux.HandleFunc("GET /api/members/{id}/descendants", s.queryH.Descendants)
	mux.HandleFunc("GET /api/members/{id}/relatives", s.queryH.Relatives)
	mux.HandleFunc("GET /api/members/{id}/tree.dot", s.queryH.Dot)
	mux.HandleFunc("GET /api/common-ancestor", s.queryH.CommonAncestor)

	// Import/export API routes
	mux.HandleFunc("POST /api/import/csv", s.transferH.ImportCSV)
	mux.HandleFunc("POST /api/import/json", s.transferH.ImportJSON)
	mux.HandleFunc("GET /api/export/csv", s.transferH.ExportCSV)
	mux.HandleFunc("GET /api/export/json", s.transferH.ExportJSON)

	// Settings API routes
	mux.HandleFunc("GET /api/settings", s.settingsH.Get)
	mux.HandleFunc("PUT /api/settings", s.settingsH.Update)
	mux.HandleFunc("PUT /api/settings/locale", s.settingsH.UpdateLocale)
	mux.HandleFunc("POST /api/settings/pin", s.settingsH.SetPIN)
	mux.HandleFunc("DELETE /api/settings/pin", s.settingsH.ClearPIN)
	mux.HandleFunc("POST /api/settings/pin/verify", s.settingsH.VerifyPIN)

	// Backup API routes (admin only)
	mux.Handle("POST /api/backup", middleware.RequireAdmin(http.HandlerFunc(s.backupH.Run)))
	mux.Handle("GET /api/backups", middleware.RequireAdmin(http.HandlerFunc(s.backupH.List)))

	// WebSocket for live tree updates
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))
}
