package server

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/hearth/internal/blob"
	"github.com/dukerupert/hearth/internal/consent"
	"github.com/dukerupert/hearth/internal/guard"
	"github.com/dukerupert/hearth/internal/handler"
	"github.com/dukerupert/hearth/internal/ledger"
	"github.com/dukerupert/hearth/internal/middleware"
	"github.com/dukerupert/hearth/internal/policy"
	"github.com/dukerupert/hearth/internal/store"
	ws "github.com/dukerupert/hearth/internal/websocket"
)

// Config holds the server's tunables.
type Config struct {
	Blob         blob.Config
	FeedInterval time.Duration
}

type Server struct {
	hub          *ws.Hub
	guard        *guard.Guard
	consumer     *ledger.Consumer
	sessionStore *store.SessionStore
	userStore    *store.UserStore
	familyH      *handler.FamilyHandler
	userH        *handler.UserHandler
	taskH        *handler.TaskHandler
	consentH     *handler.ConsentHandler
	authH        *handler.AuthHandler
	uploadH      *handler.UploadHandler
	rateLimiter  *middleware.RateLimiter
	logger       *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	families := store.NewFamilyStore(db)
	users := store.NewUserStore(db)
	tasks := store.NewTaskStore(db)
	ledgers := store.NewLedgerStore(db)
	consents := store.NewConsentStore(db)
	outbox := store.NewOutboxStore(db)
	sessions := store.NewSessionStore(db)

	engine := policy.NewEngine()
	g := guard.New(engine, families, users, tasks, ledgers, consents,
		logger.With("component", "guard"))
	gate := consent.NewGate(consents)
	blobs := blob.NewStore(cfg.Blob, g.Snapshot(), logger.With("component", "blob"))

	// Award events reach clients through the same per-family feed as
	// document changes.
	trigger := ledger.NewTrigger(ledgers, func(familyID, taskID, userID string, points int) {
		hub.Broadcast(ws.NewMessage(familyID, "award", "committed", taskID, map[string]any{
			"user_id": userID,
			"points":  points,
		}))
	}, logger.With("component", "ledger"))

	interval := cfg.FeedInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	consumer := ledger.NewConsumer(trigger, outbox, interval, logger.With("component", "feed"))

	return &Server{
		hub:          hub,
		guard:        g,
		consumer:     consumer,
		sessionStore: sessions,
		userStore:    users,
		familyH:      handler.NewFamilyHandler(g),
		userH:        handler.NewUserHandler(g),
		taskH:        handler.NewTaskHandler(g, hub),
		consentH:     handler.NewConsentHandler(gate, g),
		authH:        handler.NewAuthHandler(users, sessions),
		uploadH:      handler.NewUploadHandler(blobs, g),
		rateLimiter:  middleware.NewRateLimiter(),
		logger:       logger,
	}
}

// Start launches the change-feed consumer.
func (s *Server) Start(ctx context.Context) {
	s.consumer.Start(ctx)
}

// Stop drains the consumer.
func (s *Server) Stop() {
	s.consumer.Stop()
}

func (s *Server) Router() http.Handler {
	outer := http.NewServeMux()

	outer.HandleFunc("POST /api/login", s.rateLimited(s.authH.Login))
	outer.HandleFunc("POST /api/logout", s.authH.Logout)
	outer.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	protected := http.NewServeMux()
	protected.HandleFunc("GET /api/family", s.familyH.Get)
	protected.HandleFunc("PATCH /api/family", s.familyH.Update)
	protected.HandleFunc("GET /api/family/ledgers", s.familyH.Ledgers)
	protected.HandleFunc("GET /api/family/ledgers/{userID}", s.familyH.Ledger)

	protected.HandleFunc("GET /api/users/{userID}", s.userH.Get)
	protected.HandleFunc("PATCH /api/users/{userID}", s.userH.Update)

	protected.HandleFunc("GET /api/tasks", s.taskH.List)
	protected.HandleFunc("POST /api/tasks", s.taskH.Create)
	protected.HandleFunc("GET /api/tasks/{taskID}", s.taskH.Get)
	protected.HandleFunc("PATCH /api/tasks/{taskID}", s.taskH.Update)
	protected.HandleFunc("POST /api/tasks/{taskID}/photo", s.uploadH.Photo)

	protected.Handle("POST /api/consents", middleware.RequireParent(http.HandlerFunc(s.consentH.Request)))
	protected.Handle("POST /api/consents/resolve", middleware.RequireParent(http.HandlerFunc(s.consentH.Resolve)))
	protected.HandleFunc("GET /api/consents/{parentID}/{childID}", s.consentH.Status)

	protected.HandleFunc("GET /ws", ws.Handle(s.hub, s.logger.With("component", "websocket")))

	authMW := middleware.RequireAuth(s.sessionStore, s.userStore)
	outer.Handle("/", authMW(protected))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outer)
}

func (s *Server) rateLimited(h http.HandlerFunc) http.HandlerFunc {
	limited := middleware.RateLimit(s.rateLimiter, middleware.RealIP, 10, time.Minute)(h)
	return limited.ServeHTTP
}
