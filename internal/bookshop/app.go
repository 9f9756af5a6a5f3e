// Package bookshop wires the public and customer routers into one handler.
package bookshop

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"BookShop/internal/catalog"
	"BookShop/internal/customer"
	"BookShop/internal/general"
	"BookShop/internal/session"
	"BookShop/internal/users"
	"BookShop/pkg/kit"
)

const readyTimeout = 1 * time.Second

type Deps struct {
	Catalog  catalog.Store
	Users    users.Store
	Sessions *session.Manager
}

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry

	MetricsEnabled bool
	MetricsToken   string
}

func NewHandler(deps Deps, httpDeps HTTPDeps) http.Handler {
	if httpDeps.Log == nil {
		httpDeps.Log = zap.NewNop()
	}

	r := kit.NewRouter()
	setupMiddleware(r, httpDeps)
	metrics := setupMetrics(r, httpDeps)

	r.Get("/healthz", healthz)
	r.Get("/readyz", readyz(deps, httpDeps.Log))

	cs := &customer.Server{
		Catalog:  deps.Catalog,
		Users:    deps.Users,
		Sessions: deps.Sessions,
		Log:      httpDeps.Log,
		Metrics:  metrics,
	}
	r.Route("/customer", func(cr chi.Router) {
		cr.Use(deps.Sessions.Middleware)
		cr.Mount("/", cs.Routes())
	})

	gs := &general.Server{
		Catalog: deps.Catalog,
		Users:   deps.Users,
		Log:     httpDeps.Log,
		Metrics: metrics,
	}
	r.Mount("/", gs.Routes())

	return r
}

func setupMiddleware(r *chi.Mux, deps HTTPDeps) {
	r.Use(chimw.RequestID)
	r.Use(kit.Recoverer(deps.Log))
	r.Use(kit.Logging(deps.Log))
}

// setupMetrics returns nil when no registry is configured.
func setupMetrics(r *chi.Mux, deps HTTPDeps) *kit.Metrics {
	if deps.Registry == nil {
		return nil
	}

	metrics := kit.NewMetrics(deps.Registry)
	r.Use(metrics.Middleware(deps.Service, kit.ChiRoutePattern))

	if deps.MetricsEnabled {
		r.With(kit.MetricsAuth(deps.MetricsToken)).
			Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}
	return metrics
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func readyz(deps Deps, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		if err := deps.Catalog.Ping(ctx); err != nil {
			log.Warn("readyz failed: catalog", zap.Error(err))
			kit.WriteError(w, r, http.StatusServiceUnavailable, "catalog not ready")
			return
		}
		if err := deps.Users.Ping(ctx); err != nil {
			log.Warn("readyz failed: users", zap.Error(err))
			kit.WriteError(w, r, http.StatusServiceUnavailable, "users not ready")
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
