package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"levelquiz-service/internal/app"
	"levelquiz-service/internal/metrics"
)

// RouterDeps carries everything the router needs wired.
type RouterDeps struct {
	Auth           AuthService
	Resolver       TokenResolver
	Questions      *app.QuestionService
	Results        *app.ResultService
	Admin          *app.AdminService
	ProviderClient map[string]string

	Collector *metrics.Collector // nil disables /metrics and counters
	Gatherer  prometheus.Gatherer
	Logger    *slog.Logger
}

// NewRouter builds the full route table. Credential endpoints are
// rate-limited per client IP; ownership-sensitive routes require a resolved
// actor; /api/admin requires the admin flag.
func NewRouter(deps RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Assign the collector into the observer interfaces only when non-nil
	// so a nil *metrics.Collector stays a nil interface downstream.
	var authObserver AuthFailureObserver
	var resultObserver ResultObserver
	var observer StatusObserver
	if deps.Collector != nil {
		authObserver = deps.Collector
		resultObserver = deps.Collector
		observer = deps.Collector
	}

	authHandler := NewAuthHandler(deps.Auth, authObserver, deps.ProviderClient)
	questionHandler := NewQuestionHandler(deps.Questions)
	resultHandler := NewResultHandler(deps.Results, resultObserver)
	adminHandler := NewAdminHandler(deps.Admin)
	wsHandler := NewWSHandler(deps.Results, logger)

	// 10 attempts per minute per IP on credential endpoints.
	credentials := newIPLimiter(rate.Limit(10.0/60.0), 10)

	r := chi.NewRouter()
	r.Use(requestLogger(logger, observer))
	r.Use(authMiddleware(deps.Resolver, logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if deps.Collector != nil && deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", credentials.middleware(authHandler.Register))
			r.Post("/login", credentials.middleware(authHandler.Login))
			r.Post("/external", credentials.middleware(authHandler.External))
		})
		r.Get("/config/provider", authHandler.ProviderConfig)

		// The /questions/{key} segment is a category name on GET and a
		// question id on PUT/DELETE; chi requires one wildcard name per
		// position.
		r.Route("/questions", func(r chi.Router) {
			r.Get("/", requireActor(questionHandler.ListMine))
			r.Post("/", requireActor(questionHandler.Create))
			r.Get("/{key}", questionHandler.ByCategory)
			r.Put("/{key}", requireActor(questionHandler.Update))
			r.Delete("/{key}", requireActor(questionHandler.Delete))
		})

		r.Route("/results", func(r chi.Router) {
			r.Post("/", requireActor(resultHandler.Record))
			r.Get("/", requireActor(resultHandler.ListMine))
			r.Delete("/", requireActor(resultHandler.DeleteMine))
			r.Delete("/{id}", requireActor(resultHandler.Delete))
		})

		r.Get("/user/progress", requireActor(resultHandler.Progress))
		r.Get("/leaderboard", resultHandler.Leaderboard)
		r.Get("/leaderboard/live", wsHandler.ServeLive)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/overview", requireAdmin(adminHandler.Overview))
			r.Delete("/actors/{ref}", requireAdmin(adminHandler.PurgeActor))
			r.Delete("/data", requireAdmin(adminHandler.PurgeAll))
		})
	})

	return r
}
