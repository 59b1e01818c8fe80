package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/saitoboy/merenda-back-sub000/internal/shared"
	"github.com/saitoboy/merenda-back-sub000/internal/users"
)

// RepositoryPort abstracts code persistence for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Insert(ctx context.Context, c OneTimeCode) error
	CountIssuedSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)
	InvalidateActive(ctx context.Context, userID uuid.UUID) error
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// UserPort exposes the account lookup the flow needs.
type UserPort interface {
	FindByEmail(ctx context.Context, email string) (users.User, error)
}

// MailerPort delivers the issued code.
type MailerPort interface {
	SendOTP(ctx context.Context, to, code string) error
}

// Service drives the one-time-code lifecycle.
type Service struct {
	repo           RepositoryPort
	users          UserPort
	mailer         MailerPort
	allowedDomains []string
	logger         *slog.Logger
	now            func() time.Time
}

// NewService builds Service. allowedDomains is the institutional allow-list
// for reset requests.
func NewService(repo RepositoryPort, userPort UserPort, mailer MailerPort, allowedDomains []string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	normalized := make([]string, 0, len(allowedDomains))
	for _, d := range allowedDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			normalized = append(normalized, d)
		}
	}
	return &Service{
		repo:           repo,
		users:          userPort,
		mailer:         mailer,
		allowedDomains: normalized,
		logger:         logger,
		now:            time.Now,
	}
}

// RequestCode issues a fresh six-digit code for the account behind email and
// delivers it by mail. A delivery failure is surfaced to the caller but does
// not revoke the stored code: it stays valid for its window.
func (s *Service) RequestCode(ctx context.Context, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.validateEmailDomain(email); err != nil {
		return "", err
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	now := s.now()
	issued, err := s.repo.CountIssuedSince(ctx, user.ID, now.Add(-RateWindow))
	if err != nil {
		return "", err
	}
	if issued >= MaxCodesPerWindow {
		return "", shared.RateLimitedError("limite de códigos atingido, tente novamente em uma hora")
	}

	if err := s.repo.InvalidateActive(ctx, user.ID); err != nil {
		return "", err
	}

	code, err := generateCode()
	if err != nil {
		return "", err
	}
	record := OneTimeCode{
		ID:        uuid.New(),
		UserID:    user.ID,
		Email:     email,
		Code:      code,
		Attempts:  0,
		Used:      false,
		CreatedAt: now,
		ExpiresAt: now.Add(CodeTTL),
	}
	if err := s.repo.Insert(ctx, record); err != nil {
		return "", err
	}

	if err := s.mailer.SendOTP(ctx, email, code); err != nil {
		s.logger.Error("otp delivery failed", slog.String("email", email), slog.Any("error", err))
		return "", fmt.Errorf("otp: send code: %w", err)
	}

	return "código enviado para o e-mail informado", nil
}

// VerifyCodeAndResetPassword checks the code and, on success, changes the
// user's password. Code bookkeeping and the password write commit in one
// transaction. A wrong and an expired code are indistinguishable to the
// caller; an unregistered email is not hidden.
func (s *Service) VerifyCodeAndResetPassword(ctx context.Context, email, code, newPassword string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if len(code) != 6 {
		return "", shared.ValidationError("o código deve ter 6 dígitos")
	}
	if len(newPassword) < 6 {
		return "", shared.ValidationError("a nova senha deve ter no mínimo 6 caracteres")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	// Failures that must persist a mutation (attempt increments, burning an
	// exhausted code) commit the transaction and carry the error out here.
	var failErr error
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		active, err := tx.FindActiveByUser(ctx, user.ID, s.now())
		if err != nil {
			if errors.Is(err, ErrNoActiveCode) {
				failErr = shared.ValidationError("código inválido ou expirado")
				return nil
			}
			return err
		}

		if active.Attempts >= MaxAttempts {
			if err := tx.MarkUsed(ctx, active.ID); err != nil {
				return err
			}
			failErr = shared.AttemptsExhaustedError("número de tentativas excedido, solicite um novo código")
			return nil
		}

		if err := tx.IncrementAttempts(ctx, active.ID); err != nil {
			return err
		}

		if active.Code != code {
			failErr = shared.ValidationError("código inválido ou expirado")
			return nil
		}

		// The user may have been removed between the lookup above and this
		// point; re-check before writing the password.
		exists, err := tx.UserExists(ctx, user.ID)
		if err != nil {
			return err
		}
		if !exists {
			return shared.NotFoundError("user")
		}

		if err := tx.UpdateUserPassword(ctx, user.ID, string(hash)); err != nil {
			return err
		}
		if err := tx.MarkUsed(ctx, active.ID); err != nil {
			return err
		}
		return tx.InvalidateActive(ctx, user.ID)
	})
	if err != nil {
		return "", err
	}
	if failErr != nil {
		return "", failErr
	}

	return "senha alterada com sucesso", nil
}

// PurgeExpired removes terminal and expired codes older than retention.
// It backs the periodic sweep job.
func (s *Service) PurgeExpired(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return s.repo.PurgeExpired(ctx, s.now().Add(-retention))
}

func (s *Service) validateEmailDomain(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return shared.ValidationError("e-mail inválido")
	}
	domain := email[strings.LastIndex(email, "@")+1:]
	for _, allowed := range s.allowedDomains {
		if domain == allowed {
			return nil
		}
	}
	return shared.ValidationError("o e-mail deve pertencer a um domínio institucional")
}

// generateCode draws a uniform six-digit code from crypto/rand.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("otp: generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
