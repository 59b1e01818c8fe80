// Package jobs holds the Asynq task definitions and the worker that
// processes them.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/saitoboy/merenda-back-sub000/internal/jobs"
	"github.com/saitoboy/merenda-back-sub000/internal/mail"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeOTPPurge is the task type for sweeping spent reset codes.
	TaskTypeOTPPurge = "otp:purge_expired"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// NewOTPPurgeTask constructs the periodic purge task. It carries no payload.
func NewOTPPurgeTask() *asynq.Task {
	return asynq.NewTask(TaskTypeOTPPurge, nil)
}

// SendEmailHandler processes TaskTypeSendEmail tasks through the configured
// mailer.
func SendEmailHandler(mailer mail.Mailer, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track(TaskTypeSendEmail)
		var payload SendEmailPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			_ = tracker.End(err)
			return asynq.SkipRetry
		}
		if err := mailer.Send(ctx, payload.To, payload.Subject, payload.Body); err != nil {
			logger.Error("send email task failed", slog.String("to", payload.To), slog.Any("error", err))
			return tracker.End(err)
		}
		return tracker.End(nil)
	}
}

// OTPPurger is the slice of the reset-code service the purge task needs.
type OTPPurger interface {
	PurgeExpired(ctx context.Context, retention time.Duration) (int64, error)
}

// OTPPurgeHandler processes TaskTypeOTPPurge tasks.
func OTPPurgeHandler(purger OTPPurger, retention time.Duration, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		tracker := metrics.Track(TaskTypeOTPPurge)
		purged, err := purger.PurgeExpired(ctx, retention)
		if err != nil {
			logger.Error("otp purge task failed", slog.Any("error", err))
			return tracker.End(err)
		}
		if purged > 0 {
			metrics.AddPurged("reset_codes", purged)
			logger.Info("purged reset codes", slog.Int64("count", purged))
		}
		return tracker.End(nil)
	}
}
