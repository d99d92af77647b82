package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/roundupgames/audit-backend/internal/api"
	"github.com/roundupgames/audit-backend/internal/auth"
	"github.com/roundupgames/audit-backend/internal/cache"
	"github.com/roundupgames/audit-backend/internal/config"
	"github.com/roundupgames/audit-backend/internal/db"
	"github.com/roundupgames/audit-backend/internal/logger"
	"github.com/roundupgames/audit-backend/internal/metrics"
	"github.com/roundupgames/audit-backend/internal/middleware"
	"github.com/roundupgames/audit-backend/internal/repository/postgres"
	"github.com/roundupgames/audit-backend/internal/services"
	"github.com/roundupgames/audit-backend/internal/worker"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, 10)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if os.Getenv("APP_MIGRATE") == "true" {
		if err := db.RunMigrations(ctx, pool); err != nil {
			log.Error("migrations", "err", err)
			os.Exit(1)
		}
	}

	var accessCache *cache.Cache
	if cfg.RedisAddr != "" {
		accessCache, err = cache.New(ctx, cfg.RedisAddr, cfg.CacheTTL)
		if err != nil {
			log.Error("redis connect", "err", err)
			os.Exit(1)
		}
		defer accessCache.Close()
	}

	metrics.Init()

	repos := postgres.NewRepositories(pool)
	wp := worker.NewPool(4)
	defer wp.Stop()

	tm := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTTL, cfg.RefreshTTL)
	auditSvc := services.NewAuditService(repos.AuditLogs, wp)
	orgSvc := services.NewOrgService(repos.Organizations, repos.Users, accessCache)
	userSvc := services.NewUserService(repos.Users, tm, auditSvc)

	// Periodic chain verification; a broken chain is a security incident,
	// not just a log line.
	if cfg.VerifyCron != "" {
		c := cron.New()
		if _, err := c.AddFunc(cfg.VerifyCron, func() {
			verifyCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			result, err := auditSvc.Verify(verifyCtx)
			if err != nil {
				log.Error("scheduled chain verify", "err", err)
				return
			}
			if !result.Valid {
				log.Error("audit chain verification failed", "invalid_ids", result.InvalidIDs)
				return
			}
			log.Info("audit chain verified")
		}); err != nil {
			log.Error("verify cron", "spec", cfg.VerifyCron, "err", err)
			os.Exit(1)
		}
		c.Start()
		defer c.Stop()
	}

	r := api.NewRouter(api.RouterDeps{
		Cfg:      cfg,
		UserSvc:  userSvc,
		OrgSvc:   orgSvc,
		AuditSvc: auditSvc,
		AuthMW:   middleware.NewAuthMiddleware(tm),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server", "err", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
