// Package api assembles the chi router and its middleware chain.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"legal-rag-service/internal/api/handlers"
	"legal-rag-service/internal/api/middleware"
	"legal-rag-service/internal/logging"
	"legal-rag-service/internal/ratelimit"
)

// NewRouter builds the full /api/v1 surface. Admin routes (except the index
// status read) and the vector-db monitor require the configured API key.
func NewRouter(deps *handlers.Deps, limiter *ratelimit.SlidingWindowLimiter) http.Handler {
	logger := logging.WithComponent("api")

	search := handlers.NewSearchHandler(deps)
	ask := handlers.NewAskHandler(deps)
	generate := handlers.NewGenerateHandler(deps)
	health := handlers.NewHealthHandler(deps)
	admin := handlers.NewAdminHandler(deps)
	monitor := handlers.NewMonitoringHandler(deps)

	apiKey := ""
	corsOrigins := "*"
	if deps.Config != nil {
		apiKey = deps.Config.Server.APIKey
		corsOrigins = deps.Config.Server.CORSOrigins
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer(logger, deps.ErrorLog))
	router.Use(middleware.CORS(corsOrigins))
	router.Use(middleware.Observer(deps.APIMonitor, logger))

	router.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(limiter))

			r.Post("/search", search.Post)
			r.Get("/search", search.Get)
			r.Post("/ask", ask.Ask)
			r.Post("/ask/stream", ask.AskStream)
			r.Get("/ask/ws", ask.AskWS)
			r.Post("/generate", generate.Generate)
		})

		r.Get("/health", health.Health)
		r.Get("/health/detailed", health.HealthDetailed)
		r.Get("/openapi.json", ServeOpenAPI)

		r.Get("/admin/index/status", admin.IndexStatus)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(limiter))
			r.Use(middleware.RequireAPIKey(apiKey))

			r.Post("/admin/index", admin.Index)
			r.Post("/admin/index/incremental", admin.IndexIncremental)
			r.Post("/admin/index/reset", admin.IndexReset)
			r.Post("/admin/upload", admin.Upload)
			r.Get("/monitoring/vector-db", monitor.VectorDB)
		})
		r.Get("/monitoring/stats", monitor.Stats)
	})
	return router
}
