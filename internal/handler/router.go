package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/empathai/backend/internal/handler/analyze"
	"github.com/zhouzirui/empathai/backend/internal/handler/live"
	"github.com/zhouzirui/empathai/backend/internal/handler/session"
	"github.com/zhouzirui/empathai/backend/internal/handler/stream"
	"github.com/zhouzirui/empathai/backend/internal/health"
	middlewarePkg "github.com/zhouzirui/empathai/backend/internal/middleware"
	"github.com/zhouzirui/empathai/backend/internal/observe"
	companionService "github.com/zhouzirui/empathai/backend/internal/service/companion"
)

// Dependencies 路由所需的服务。Metrics 与 MetricsHandler 可为空。
type Dependencies struct {
	Companion      *companionService.Service
	Health         *health.Handler
	Metrics        *observe.Metrics
	MetricsHandler http.Handler
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)
	if deps.Metrics != nil {
		r.Use(observe.Middleware(deps.Metrics))
	}

	if deps.Health != nil {
		deps.Health.RegisterRoutes(r)
	}
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	analyzeHandler := analyze.New(deps.Companion)

	r.Route("/api", func(api chi.Router) {
		analyzeHandler.RegisterRoutes(api)
		session.New(deps.Companion).RegisterRoutes(api)
		stream.New(deps.Companion).RegisterRoutes(api)
		live.NewWebSocketHandler(deps.Companion).RegisterRoutes(api)
	})

	// Path used by existing browser clients of the hosted function.
	r.Route("/functions/v1", func(fn chi.Router) {
		analyzeHandler.RegisterRoutes(fn)
	})

	return r
}
