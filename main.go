package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"lottery-insight-server/api"
	"lottery-insight-server/auth"
	"lottery-insight-server/config"
	"lottery-insight-server/generator"
	"lottery-insight-server/importer"
	"lottery-insight-server/insight"
	"lottery-insight-server/loghandler"
	"lottery-insight-server/metrics"
	"lottery-insight-server/picker"
	"lottery-insight-server/storage"
	"lottery-insight-server/ws"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	slog.SetDefault(slog.New(loghandler.NewCompactHandler(os.Stdout, cfg.SlogLevel())))
	if envErr != nil {
		slog.Info("no .env file found; using environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := openRepository(ctx, cfg)
	if err != nil {
		slog.Error("storage unavailable", "tag", "storage", "err", err)
		os.Exit(1)
	}
	defer repo.Close()

	tokens := openTokenValidator(ctx, cfg)
	a := newApp(cfg, repo, tokens)

	go a.hub.Run(ctx)
	a.scheduler.Start()
	defer a.scheduler.Stop()

	slog.Info("configuration", "name", cfg.AppName, "environment", cfg.Environment, "port", cfg.Port,
		"window", cfg.Analytics.DefaultWindow, "max_lines", cfg.Generator.MaxLines,
		"smoothing", cfg.Generator.BalancedSmoothing, "admin_import", a.admin.Enabled())

	errCh := make(chan error, 1)
	go func() { errCh <- a.server.Start() }()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server stopped", "tag", "api", "err", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown", "tag", "api", "err", err)
		}
	}
}

// app is the wired server with the goroutines main has to start.
type app struct {
	server    *api.Server
	hub       *ws.Hub
	scheduler *importer.Scheduler
	admin     *auth.Admin
	metrics   *metrics.Metrics
}

func newApp(cfg *config.Config, repo storage.Repository, tokens *auth.TokenValidator) *app {
	m := metrics.New()
	gen := generator.New(generator.Options{
		Registry:    picker.DefaultRegistry(cfg.Generator.BalancedSmoothing),
		TopN:        cfg.Analytics.TopN,
		Window:      cfg.Analytics.DefaultWindow,
		MaxLines:    cfg.Generator.MaxLines,
		MaxAttempts: cfg.Generator.MaxAttempts,
		Workers:     cfg.Generator.Workers,
		Observer:    m,
	})
	svc := insight.New(repo, gen, cfg)
	hub := ws.NewHub(svc, m, cfg.AllowedOrigins())
	imp := importer.New(repo, time.Duration(cfg.Import.TimeoutSec)*time.Second, m, hub)

	sched, err := importer.NewScheduler(cfg.Import.Schedule, imp, repo)
	if err != nil {
		slog.Warn("invalid IMPORT_SCHEDULE; scheduled imports disabled", "tag", "scheduler", "schedule", cfg.Import.Schedule, "err", err)
		sched = nil
	}

	admin := auth.NewAdmin(cfg.Import.AdminKey, tokens)
	server := api.New(api.Deps{
		Config:   cfg,
		Service:  svc,
		Importer: imp,
		Admin:    admin,
		Metrics:  m,
		LiveFeed: hub.ServeWS,
	})
	return &app{server: server, hub: hub, scheduler: sched, admin: admin, metrics: m}
}

// openRepository connects to Postgres when DATABASE_URL is set, otherwise
// it runs on an in-memory store. Either is seeded from the catalog file.
func openRepository(ctx context.Context, cfg *config.Config) (storage.Repository, error) {
	catalog, err := storage.LoadCatalogFile(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if store != nil {
		if err := catalog.SeedPostgres(ctx, store); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	}

	slog.Info("DATABASE_URL not set; using in-memory store", "tag", "storage", "catalog", cfg.CatalogPath, "games", len(catalog.Games))
	mem := storage.NewMemoryStore()
	if err := catalog.SeedMemory(ctx, mem); err != nil {
		return nil, err
	}
	return mem, nil
}

func openTokenValidator(ctx context.Context, cfg *config.Config) *auth.TokenValidator {
	if cfg.AuthBaseURL == "" {
		slog.Info("AUTH_BASE_URL not set; admin bearer tokens disabled", "tag", "auth")
		return nil
	}
	v, err := auth.NewTokenValidator(ctx, cfg.AuthBaseURL)
	if err != nil {
		slog.Warn("JWKS unavailable; admin bearer tokens disabled", "tag", "auth", "err", err)
		return nil
	}
	slog.Info("admin bearer tokens enabled", "tag", "auth", "base_url", cfg.AuthBaseURL)
	return v
}
