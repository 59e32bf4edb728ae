package catalog

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"MiniCatalog/pkg/kit"
)

const (
	RoleAdmin = "admin"

	writeLimitWindow = 60 * time.Second
)

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry

	MetricsEnabled bool
	MetricsToken   string

	// JWT guards the write routes when set.
	JWT              *kit.TokenMaker
	WriteLimitPerMin int
}

func NewHandler(s *Server, deps HTTPDeps) http.Handler {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if s.Log == nil {
		s.Log = deps.Log
	}

	r := chi.NewRouter()

	metricsOn := deps.MetricsEnabled && deps.Registry != nil
	if deps.MetricsEnabled && deps.Registry == nil {
		deps.Log.Warn("metrics enabled but Registry is nil")
	}

	setupMiddleware(r, deps)
	setupRoutes(r, s, deps, metricsOn)

	return r
}

func setupMiddleware(r *chi.Mux, deps HTTPDeps) {
	r.Use(chimw.RequestID)
	r.Use(kit.Recoverer(deps.Log))
	r.Use(kit.Logging(deps.Log))

	if deps.Registry != nil {
		metrics := kit.NewMetrics(deps.Registry)
		r.Use(metrics.Middleware(deps.Service, kit.ChiRoutePatternOrPath))
	}
}

func setupRoutes(r *chi.Mux, s *Server, deps HTTPDeps, metricsOn bool) {
	r.Get("/healthz", healthz)
	r.Get("/readyz", s.handleReady)

	r.Get("/products", s.handleList)
	r.Get("/products/{id}", s.handleGet)

	r.Group(func(wr chi.Router) {
		if deps.WriteLimitPerMin > 0 {
			wr.Use(kit.NewIPRateLimiter(deps.WriteLimitPerMin, writeLimitWindow).Middleware)
		}
		if deps.JWT != nil {
			wr.Use(kit.RequireRole(deps.JWT, RoleAdmin))
		}

		wr.Post("/products", s.handleCreate)
		wr.Patch("/products/{id}", s.handleUpdate)
		wr.Delete("/products/{id}", s.handleDelete)
	})

	if metricsOn {
		r.With(kit.RequireStaticToken(deps.MetricsToken)).Handle(
			"/metrics",
			promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}),
		)
	}
}
