package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"convorec/internal/cart"
	"convorec/internal/config"
	"convorec/internal/diversify"
	"convorec/internal/domain"
	"convorec/internal/httpapi"
	"convorec/internal/llmproto"
	"convorec/internal/orchestrator"
	"convorec/internal/pipeline"
	"convorec/internal/refine"
	"convorec/internal/research"
	"convorec/internal/search"
	"convorec/internal/session"
	"convorec/internal/transport"
	"convorec/internal/validate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.LogLevel)
	httpClient := transport.NewHTTPClient(cfg.RequestTimeout)

	registry := domain.NewRegistry()
	backends, backendHealth := buildSearchBackends(context.Background(), cfg, logger)
	dispatcher := search.NewDispatcher(registry, backends, cfg.SearchMinResults, int64(cfg.BackendConcurrency))
	diversifier := diversify.New()

	var completer llmproto.Completer
	if cfg.LLM.APIKey != "" {
		completer = llmproto.NewOpenRouterCompleter(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model, httpClient, logger)
	}

	pipe := pipeline.New(completer, cfg.LLM.Model, registry, dispatcher, diversifier)

	var cartClient cart.Client
	if cfg.CartServiceURL != "" {
		cartClient = cart.NewHTTPClient(cfg.CartServiceURL, httpClient)
	}
	var researchClient research.Client
	if cfg.ResearchServiceURL != "" {
		researchClient = research.NewHTTPClient(cfg.ResearchServiceURL, httpClient)
	}
	refiner := refine.New(completer, cfg.LLM.Model, registry, cartClient, researchClient)

	validator := validate.New(completer, cfg.LLM.Model)

	var mirror session.Mirror
	if cfg.SessionStoreURL != "" {
		redisMirror, err := session.NewRedisMirror(cfg.SessionStoreURL)
		if err != nil {
			log.Fatalf("failed to init session mirror: %v", err)
		}
		mirror = redisMirror
	}
	store := session.NewMemoryStore(cfg.SessionTTL, mirror, func(err error) {
		logger.Error("session mirror unavailable, degrading to in-memory only", slog.String("error", err.Error()))
	})

	orch := orchestrator.New(store, validator, pipe, refiner, cfg.TurnBudget, cfg.DefaultKLimit)

	handler := httpapi.New(orch, store, cartClient, researchClient, backendHealth)
	router := httpapi.NewRouter(httpapi.RouterDeps{Logger: logger, Handler: handler})

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server starting", slog.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}

// buildSearchBackends wires a SQLBackend per catalog domain configured with
// a connection string, plus the vehicle embedding backend. A domain left
// unconfigured is simply absent from the registry; the dispatcher reports
// "no search backend registered" for it rather than the process refusing
// to start, so a partial deployment (e.g. laptops only) still serves.
func buildSearchBackends(ctx context.Context, cfg config.Config, logger *slog.Logger) (search.Registry, map[string]bool) {
	backends := search.Registry{}
	health := map[string]bool{}

	if cfg.LaptopsDBURL != "" {
		pool, err := pgxpool.New(ctx, cfg.LaptopsDBURL)
		if err != nil {
			logger.Error("failed to connect laptops db", slog.String("error", err.Error()))
		} else {
			backends[domain.Laptops] = search.NewSQLBackend(pool, "laptops", domain.Laptops, search.ColumnMap{
				Equals:   map[string]string{"use_case": "use_case", "gpu_vendor": "gpu_vendor"},
				MaxPrice: "price_minor",
				Brand:    "brand",
			})
			health["laptops"] = true
		}
	}

	if cfg.BooksDBURL != "" {
		pool, err := pgxpool.New(ctx, cfg.BooksDBURL)
		if err != nil {
			logger.Error("failed to connect books db", slog.String("error", err.Error()))
		} else {
			backends[domain.Books] = search.NewSQLBackend(pool, "books", domain.Books, search.ColumnMap{
				Equals:   map[string]string{"genre": "genre"},
				MaxPrice: "price_minor",
				Brand:    "publisher",
			})
			health["books"] = true
		}
	}

	if cfg.VehiclesDBURL != "" {
		pool, err := pgxpool.New(ctx, cfg.VehiclesDBURL)
		if err != nil {
			logger.Error("failed to connect vehicles db", slog.String("error", err.Error()))
		} else {
			backends[domain.Vehicles] = search.NewVehicleBackend(pool, nil, search.ColumnMap{
				Equals:   map[string]string{"body_style": "body_style"},
				MaxPrice: "price_minor",
				Brand:    "brand",
			})
			health["vehicles"] = true
		}
	}

	return backends, health
}

func newLogger(level string) *slog.Logger {
	slogLevel := slog.LevelInfo
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slogLevel}))
}
