package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/supportdesk/supportgate/internal/config"
	"github.com/supportdesk/supportgate/internal/handler"
	"github.com/supportdesk/supportgate/internal/middleware"
	"github.com/supportdesk/supportgate/internal/pkg/logger"
	"github.com/supportdesk/supportgate/internal/pkg/redact"
	"github.com/supportdesk/supportgate/internal/repository"
	"github.com/supportdesk/supportgate/internal/service"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level)
	gin.SetMode(cfg.Server.Mode)

	// 2. Initialize Persistence
	// Domain data (Postgres > Memory)
	var (
		userRepo    service.UserRepo
		profileRepo service.ProfileRepo
		orderRepo   service.OrderRepo
		roleRepo    service.RoleRepo
		auditRepos  []service.AuditRepo
	)
	if cfg.Database.DSN != "" {
		db, err := repository.NewDB(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to DB: %v", err)
		}
		if err := repository.AutoMigrate(db); err != nil {
			log.Fatalf("Failed to migrate schema: %v", err)
		}
		logger.Info("Connected to PostgreSQL")
		userRepo = repository.NewPostgresUserRepo(db)
		profileRepo = repository.NewPostgresProfileRepo(db)
		orderRepo = repository.NewPostgresOrderRepo(db)
		roleRepo = repository.NewPostgresRoleRepo(db)
		auditRepos = append(auditRepos, repository.NewPostgresAuditRepo(db))
	} else {
		logger.Warn("No database DSN configured, using in-memory storage")
		store := repository.NewMemoryStore()
		userRepo = store.Users()
		profileRepo = store.Profiles()
		orderRepo = store.Orders()
		roleRepo = store.Roles()
	}

	// Idempotency and request log mirror (Redis > Memory)
	idemTTL := time.Duration(cfg.Redis.IdempotencyTTLSeconds) * time.Second
	var idempotencyStore middleware.IdempotencyStore = middleware.NewInMemIdempotencyStore(idemTTL)
	if cfg.Redis.Addr != "" {
		rdb, err := repository.NewRedisClient(cfg)
		if err == nil {
			logger.Info("Connected to Redis", "addr", cfg.Redis.Addr)
			defer rdb.Close()
			idempotencyStore = repository.NewRedisIdempotencyStore(rdb, idemTTL)
			// redis answers listings first, it is the cheapest source
			auditRepos = append([]service.AuditRepo{
				repository.NewRedisAuditRepo(rdb, cfg.Redis.AuditListKey, cfg.Redis.AuditListMax),
			}, auditRepos...)
		} else {
			logger.Error("Failed to connect to Redis, falling back to memory", "error", err)
		}
	}

	// 3. Initialize Core Services
	auditSvc := service.NewAuditService(service.AuditOptions{
		File:       cfg.Audit.File,
		MaxSizeMB:  cfg.Audit.MaxSizeMB,
		MaxBackups: cfg.Audit.MaxBackups,
		MaxAgeDays: cfg.Audit.MaxAgeDays,
		Compress:   cfg.Audit.Compress,
		Console:    cfg.Audit.Console,
		BufferSize: cfg.Audit.BufferSize,
	}, auditRepos...)

	tokenSvc := service.NewTokenService(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute)
	if cfg.Auth.JWTSecret == "change-me" {
		logger.Warn("auth.jwt_secret is the built-in default, set SUPPORTGATE_AUTH_JWT_SECRET")
	}

	// 4. Setup Router
	r := handler.NewRouter(handler.RouterDeps{
		Audit:          auditSvc,
		Policy:         redact.NewPolicy(cfg.Audit.Mask, cfg.Audit.SensitiveKeys...),
		Tokens:         tokenSvc,
		Auth:           service.NewAuthService(cfg.Auth.Operators, userRepo, tokenSvc),
		Users:          service.NewUserService(userRepo, roleRepo),
		Profiles:       service.NewProfileService(userRepo, profileRepo),
		Orders:         service.NewOrderService(userRepo, orderRepo),
		Roles:          service.NewRoleService(roleRepo),
		Limiters:       service.NewLimiterRegistry(cfg.Auth.RateQPS, cfg.Auth.RateBurst),
		Idempotency:    idempotencyStore,
		AdminUsers:     cfg.Auth.AdminUsers,
		ReadOnly:       cfg.Server.ReadOnly,
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsPath:    cfg.Metrics.Path,
	})

	// 5. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("SupportGate started", "port", cfg.Server.Port, "read_only", cfg.Server.ReadOnly)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	// in-flight requests have emitted by now
	auditSvc.Close()

	logger.Info("Server exiting")
}
