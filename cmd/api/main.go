package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/community-directory/backend/internal/approval"
	"github.com/emilythestrangee/community-directory/backend/internal/cache"
	"github.com/emilythestrangee/community-directory/backend/internal/config"
	"github.com/emilythestrangee/community-directory/backend/internal/content"
	"github.com/emilythestrangee/community-directory/backend/internal/contribution"
	"github.com/emilythestrangee/community-directory/backend/internal/database"
	"github.com/emilythestrangee/community-directory/backend/internal/handlers"
	"github.com/emilythestrangee/community-directory/backend/internal/logging"
	"github.com/emilythestrangee/community-directory/backend/internal/server"
	"github.com/emilythestrangee/community-directory/backend/internal/signal"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	gin.SetMode(cfg.GinMode)

	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET must be set")
	}

	policies, err := buildPolicies(cfg.Approval)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid approval policy configuration")
	}

	ctx := context.Background()
	db, err := database.New(ctx, cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	var tallies signal.Cache
	if cfg.RedisURL != "" {
		c, err := cache.NewTallyCache(cfg.RedisURL, cfg.LikeCacheTTL)
		if err != nil {
			log.Fatal().Err(err).Msg("redis connection failed")
		}
		defer c.Close()
		tallies = c
		log.Info().Dur("ttl", cfg.LikeCacheTTL).Msg("caching like counts in redis")
	}

	gormDB := db.GetDB()
	handler := handlers.NewHandler(
		signal.NewService(gormDB, tallies, log),
		contribution.NewService(gormDB, policies, log),
		content.NewService(gormDB),
		cfg.IsAdmin,
	)
	srv := server.New(cfg, db, handler, log).HTTPServer()

	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("approval_policy", policies.Active().Name()).
			Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	ossignal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}

func buildPolicies(cfg config.ApprovalConfig) (*approval.Registry, error) {
	dual, err := approval.NewDualThreshold(cfg.MinVotes, cfg.RatioThreshold)
	if err != nil {
		return nil, err
	}
	legacy, err := approval.NewThresholdOrPercentage(cfg.Threshold, cfg.PercentageThreshold)
	if err != nil {
		return nil, err
	}
	return approval.NewRegistry(cfg.Active, dual, legacy)
}
