package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/saitoboy/merenda-back-sub000/internal/app"
	"github.com/saitoboy/merenda-back-sub000/internal/auth"
	"github.com/saitoboy/merenda-back-sub000/internal/mail"
	"github.com/saitoboy/merenda-back-sub000/internal/masterdata/items"
	"github.com/saitoboy/merenda-back-sub000/internal/masterdata/periods"
	"github.com/saitoboy/merenda-back-sub000/internal/masterdata/schools"
	"github.com/saitoboy/merenda-back-sub000/internal/masterdata/segments"
	"github.com/saitoboy/merenda-back-sub000/internal/masterdata/suppliers"
	"github.com/saitoboy/merenda-back-sub000/internal/observability"
	"github.com/saitoboy/merenda-back-sub000/internal/otp"
	"github.com/saitoboy/merenda-back-sub000/internal/platform/cache"
	"github.com/saitoboy/merenda-back-sub000/internal/platform/db"
	"github.com/saitoboy/merenda-back-sub000/internal/shared"
	"github.com/saitoboy/merenda-back-sub000/internal/stock"
	"github.com/saitoboy/merenda-back-sub000/internal/users"
	"github.com/saitoboy/merenda-back-sub000/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Warn("redis unavailable, metrics cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(pool)
	mailer := mail.NewSMTPMailer(mail.SMTPConfig{
		Host: cfg.SMTPHost,
		Port: cfg.SMTPPort,
		From: cfg.SMTPFrom,
	})

	userRepo := users.NewRepository(pool)
	userService := users.NewService(userRepo)
	userHandler := users.NewHandler(logger, userService)

	authService := auth.NewService(auth.NewRepository(pool), userRepo, cfg.SessionTTL)
	authHandler := auth.NewHandler(logger, authService)
	authMW := auth.Middleware{Service: authService}

	stockCache := stock.NewMetricsCache(redisClient, cfg.MetricsCacheTTL)
	stockService := stock.NewService(stock.NewRepository(pool), auditLogger, stockCache, logger)
	stockHandler := stock.NewHandler(logger, stockService, metrics)

	otpService := otp.NewService(otp.NewRepository(pool), userRepo, mailer, cfg.OTPAllowedDomains, logger)
	otpHandler := otp.NewHandler(logger, otpService, metrics)

	manageRoles := authMW.RequireRoles(users.RoleAdmin, users.RoleNutricionista)
	schoolHandler := schools.NewHandler(logger, schools.NewService(schools.NewRepository(pool)), manageRoles)
	itemHandler := items.NewHandler(logger, items.NewService(items.NewRepository(pool)), manageRoles)
	segmentHandler := segments.NewHandler(logger, segments.NewService(segments.NewRepository(pool)), manageRoles)
	periodHandler := periods.NewHandler(logger, periods.NewService(periods.NewRepository(pool)), manageRoles)
	supplierHandler := suppliers.NewHandler(logger, suppliers.NewService(suppliers.NewRepository(pool)), manageRoles)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Middleware: app.MiddlewareConfig{Logger: logger, Config: cfg, Metrics: metrics},
		Auth:       authHandler,
		AuthMW:     authMW,
		Users:      userHandler,
		OTP:        otpHandler,
		Stock:      stockHandler,
		Schools:    schoolHandler,
		Items:      itemHandler,
		Segments:   segmentHandler,
		Periods:    periodHandler,
		Suppliers:  supplierHandler,
		Jobs:       jobHandler,
		Metrics:    metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
