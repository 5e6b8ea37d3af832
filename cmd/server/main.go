package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/go-chi/chi/v5"

	"github.com/KhamariThompson/100rebuild/internal/auth"
	"github.com/KhamariThompson/100rebuild/internal/config"
	"github.com/KhamariThompson/100rebuild/internal/httpapi"
	"github.com/KhamariThompson/100rebuild/internal/jobs"
	"github.com/KhamariThompson/100rebuild/internal/logging"
	"github.com/KhamariThompson/100rebuild/internal/progress"
	"github.com/KhamariThompson/100rebuild/internal/server"
)

const serviceName = "progress-service"

func main() {
	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Errorf("config error: %w", err))
	}

	logger := logging.NewLogger(serviceName, cfg.LogLevel)
	loc := cfg.Location()
	clock := progress.NewSystemClock()

	store, cleanup, err := newStore(ctx, cfg, logger)
	if err != nil {
		panic(fmt.Errorf("store init error: %w", err))
	}
	defer cleanup()

	registry, err := progress.NewRegistry(store,
		progress.WithClock(clock),
		progress.WithLocation(loc),
		progress.WithLoadTimeout(cfg.LoadTimeout),
		progress.WithLogger(logger.With(slog.String("component", "engine"))),
	)
	if err != nil {
		panic(fmt.Errorf("registry init error: %w", err))
	}

	verifier, err := auth.NewVerifier(auth.Config{
		Mode:     cfg.Auth.Mode,
		JWKSURL:  cfg.Auth.JWKSURL,
		Audience: cfg.Auth.Audience,
		Issuer:   cfg.Auth.Issuer,
	})
	if err != nil {
		panic(fmt.Errorf("auth verifier error: %w", err))
	}

	scheduler := jobs.NewScheduler(registry, loc, cfg.Refresh.IdleTTL, logger.With(slog.String("component", "scheduler")))
	if err := scheduler.Start(ctx, cfg.Refresh.Schedule); err != nil {
		panic(fmt.Errorf("scheduler error: %w", err))
	}

	handler := httpapi.NewHandler(registry, clock, loc, logger)
	router := server.NewRouter(serviceName, func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(verifier))

			httpapi.RegisterRoutes(r, handler)
		})
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	if err := server.Run(ctx, srv, logger, scheduler.Stop); err != nil && !errors.Is(err, http.ErrServerClosed) {
		panic(err)
	}
}

func newStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (progress.DocumentStore, func(), error) {
	switch cfg.DataStore {
	case config.DataStoreFirestore:
		if cfg.Firestore.EmulatorHost != "" {
			if err := os.Setenv("FIRESTORE_EMULATOR_HOST", cfg.Firestore.EmulatorHost); err != nil {
				return nil, nil, fmt.Errorf("set FIRESTORE_EMULATOR_HOST: %w", err)
			}
		}

		client, err := firestore.NewClientWithDatabase(ctx, cfg.GCPProjectID, cfg.Firestore.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("firestore client: %w", err)
		}

		store := progress.NewFirestoreStore(client, logger.With(slog.String("component", "firestore")))
		cleanup := func() {
			_ = client.Close()
		}
		return store, cleanup, nil
	default:
		logger.Warn("using in-memory datastore; data is not persisted")
		return progress.NewMemoryStore(), func() {}, nil
	}
}
