package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/saitoboy/merenda-back-sub000/internal/app"
	jobmetrics "github.com/saitoboy/merenda-back-sub000/internal/jobs"
	"github.com/saitoboy/merenda-back-sub000/internal/mail"
	"github.com/saitoboy/merenda-back-sub000/internal/otp"
	"github.com/saitoboy/merenda-back-sub000/internal/platform/db"
	"github.com/saitoboy/merenda-back-sub000/internal/users"
	"github.com/saitoboy/merenda-back-sub000/jobs"
)

const resetCodeRetention = 24 * time.Hour

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	mailer := mail.NewSMTPMailer(mail.SMTPConfig{
		Host: cfg.SMTPHost,
		Port: cfg.SMTPPort,
		From: cfg.SMTPFrom,
	})
	metrics := jobmetrics.NewMetrics(nil)

	otpService := otp.NewService(otp.NewRepository(pool), users.NewRepository(pool), mailer, cfg.OTPAllowedDomains, logger)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   redisOpts,
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeSendEmail, Handler: jobs.SendEmailHandler(mailer, metrics, logger)},
			{Type: jobs.TaskTypeOTPPurge, Handler: jobs.OTPPurgeHandler(otpService, resetCodeRetention, metrics, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 3 * * *", Task: jobs.NewOTPPurgeTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
