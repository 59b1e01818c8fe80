package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/saitoboy/merenda-back-sub000/internal/shared"
	"github.com/saitoboy/merenda-back-sub000/internal/users"
)

// UserPort exposes the account lookups the auth flow needs.
type UserPort interface {
	FindByEmail(ctx context.Context, email string) (users.User, error)
}

// Service wraps authentication business rules.
type Service struct {
	repo       Repository
	users      UserPort
	sessionTTL time.Duration
}

// NewService constructs a new Service.
func NewService(repo Repository, userPort UserPort, sessionTTL time.Duration) *Service {
	return &Service{repo: repo, users: userPort, sessionTTL: sessionTTL}
}

// Login validates credentials and opens a session. All credential failures
// collapse into ErrInvalidCredentials so callers cannot probe for accounts.
func (s *Service) Login(ctx context.Context, email, password, ip, userAgent string) (Session, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return Session{}, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return Session{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Session{}, shared.ErrInvalidCredentials
	}

	token, err := newToken()
	if err != nil {
		return Session{}, err
	}
	now := time.Now()
	sess := Session{
		Token:     token,
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
		IP:        ip,
		UserAgent: userAgent,
	}
	if err := s.repo.CreateSession(ctx, sess); err != nil {
		return Session{}, fmt.Errorf("auth: create session: %w", err)
	}
	return sess, nil
}

// Resolve maps a bearer token to its session, rejecting expired ones.
func (s *Service) Resolve(ctx context.Context, token string) (Session, error) {
	sess, err := s.repo.GetSession(ctx, token)
	if err != nil {
		return Session{}, err
	}
	if !sess.Active(time.Now()) {
		_ = s.repo.DeleteSession(ctx, token)
		return Session{}, shared.ErrNotFound
	}
	return sess, nil
}

// Logout removes the session for the given token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.repo.DeleteSession(ctx, token)
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("auth: token entropy: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
