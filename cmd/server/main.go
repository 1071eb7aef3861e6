package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/camelgame/backend/internal/config"
	"github.com/camelgame/backend/internal/game"
	"github.com/camelgame/backend/internal/httpapi"
	"github.com/camelgame/backend/internal/store"
	"github.com/camelgame/backend/internal/ws"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	var logger *zap.Logger
	var err error
	if cfg.Env == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var players store.PlayerStore
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("database init failed", zap.Error(err))
		}
		players = pg
		logger.Info("database initialized")
	} else {
		players = store.NewMemoryStore()
		logger.Warn("DATABASE_URL not set, player progress lives in memory only")
	}

	hub := ws.NewHub(logger, cfg.AllowedOrigins)
	coordinator := game.New(ctx, hub, players, logger, game.Options{
		SpawnInterval: cfg.SpawnInterval,
	})
	go coordinator.Run()

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: httpapi.SetupRoutes(hub, coordinator),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("game server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
