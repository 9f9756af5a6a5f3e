package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alexedwards/scs/v2/memstore"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"BookShop/internal/bookshop"
	"BookShop/internal/catalog"
	"BookShop/internal/config"
	"BookShop/internal/session"
	"BookShop/internal/users"
	"BookShop/pkg/kit"
)

const (
	service                = "bookshop"
	startupTimeout         = 15 * time.Second
	sessionCleanupInterval = time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		kit.NewLogger(service, "info").Fatal("load config failed", zap.Error(err))
	}

	log := kit.NewLogger(service, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	seed, err := catalog.LoadSeed(cfg.CatalogSeed)
	if err != nil {
		log.Fatal("load catalog seed failed", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps, closeStores, err := openStores(ctx, cfg, seed, log)
	if err != nil {
		log.Fatal("open stores failed", zap.Error(err))
	}
	defer closeStores()

	deps.Sessions = session.NewManager(
		memstore.NewWithCleanupInterval(sessionCleanupInterval),
		session.NewTokenMaker(cfg.SessionSecret),
		session.Options{
			CookiePath: "/customer",
			TTL:        cfg.SessionTTL,
			Secure:     cfg.CookieSecure,
		},
		log,
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	h := bookshop.NewHandler(deps, bookshop.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: cfg.MetricsEnabled,
		MetricsToken:   cfg.MetricsToken,
	})

	if err := kit.RunHTTPServer(cfg.Addr(), h, log); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

// openStores picks Postgres when DATABASE_URL is set and in-memory stores
// otherwise.
func openStores(ctx context.Context, cfg config.Config, seed []catalog.Book, log *zap.Logger) (bookshop.Deps, func(), error) {
	if cfg.DatabaseURL == "" {
		cat, err := catalog.NewMemStore(seed)
		if err != nil {
			return bookshop.Deps{}, nil, err
		}
		log.Info("using in-memory stores", zap.Int("books", len(seed)))
		return bookshop.Deps{Catalog: cat, Users: users.NewMemStore()}, func() {}, nil
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return bookshop.Deps{}, nil, fmt.Errorf("open db: %w", err)
	}

	sctx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	if err := db.PingContext(sctx); err != nil {
		_ = db.Close()
		return bookshop.Deps{}, nil, fmt.Errorf("ping db: %w", err)
	}

	cat := catalog.NewPostgresStore(db)
	us := users.NewPostgresStore(db)

	if err := cat.EnsureSchema(sctx); err != nil {
		_ = db.Close()
		return bookshop.Deps{}, nil, fmt.Errorf("catalog schema: %w", err)
	}
	if err := us.EnsureSchema(sctx); err != nil {
		_ = db.Close()
		return bookshop.Deps{}, nil, fmt.Errorf("users schema: %w", err)
	}
	if err := cat.Seed(sctx, seed); err != nil {
		_ = db.Close()
		return bookshop.Deps{}, nil, fmt.Errorf("seed catalog: %w", err)
	}

	log.Info("using postgres stores", zap.Int("seed_books", len(seed)))
	return bookshop.Deps{Catalog: cat, Users: us}, func() { _ = db.Close() }, nil
}
