package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/saitoboy/merenda-back-sub000/internal/shared"
	"github.com/saitoboy/merenda-back-sub000/internal/users"
)

type memoryRepo struct {
	sessions map[string]Session
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{sessions: map[string]Session{}}
}

func (m *memoryRepo) CreateSession(_ context.Context, s Session) error {
	m.sessions[s.Token] = s
	return nil
}

func (m *memoryRepo) GetSession(_ context.Context, token string) (Session, error) {
	s, ok := m.sessions[token]
	if !ok {
		return Session{}, shared.ErrNotFound
	}
	return s, nil
}

func (m *memoryRepo) DeleteSession(_ context.Context, token string) error {
	delete(m.sessions, token)
	return nil
}

func (m *memoryRepo) DeleteExpiredSessions(context.Context) (int64, error) {
	return 0, nil
}

type stubUsers struct {
	user users.User
}

func (s *stubUsers) FindByEmail(_ context.Context, email string) (users.User, error) {
	if email != s.user.Email {
		return users.User{}, shared.NotFoundErrorMsg("user", "email not registered")
	}
	return s.user, nil
}

func testUser(t *testing.T, password string, active bool) users.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return users.User{
		ID:           uuid.New(),
		Email:        "nutri@edu.muriae.mg.gov.br",
		Role:         users.RoleNutricionista,
		PasswordHash: string(hash),
		IsActive:     active,
	}
}

func TestLoginIssuesSession(t *testing.T) {
	repo := newMemoryRepo()
	user := testUser(t, "senha123", true)
	svc := NewService(repo, &stubUsers{user: user}, time.Hour)

	sess, err := svc.Login(context.Background(), user.Email, "senha123", "10.0.0.1", "curl")
	require.NoError(t, err)
	require.Len(t, sess.Token, 64)
	require.Equal(t, user.ID, sess.UserID)
	require.Equal(t, users.RoleNutricionista, sess.Role)

	resolved, err := svc.Resolve(context.Background(), sess.Token)
	require.NoError(t, err)
	require.Equal(t, sess.UserID, resolved.UserID)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	repo := newMemoryRepo()
	user := testUser(t, "senha123", true)
	svc := NewService(repo, &stubUsers{user: user}, time.Hour)

	_, err := svc.Login(context.Background(), "desconhecida@edu.muriae.mg.gov.br", "senha123", "", "")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), user.Email, "errada", "", "")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	repo := newMemoryRepo()
	user := testUser(t, "senha123", false)
	svc := NewService(repo, &stubUsers{user: user}, time.Hour)

	_, err := svc.Login(context.Background(), user.Email, "senha123", "", "")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestResolveExpiredSession(t *testing.T) {
	repo := newMemoryRepo()
	user := testUser(t, "senha123", true)
	svc := NewService(repo, &stubUsers{user: user}, -time.Minute)

	sess, err := svc.Login(context.Background(), user.Email, "senha123", "", "")
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), sess.Token)
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Empty(t, repo.sessions, "expired session is removed on resolve")
}

func TestLogoutRemovesSession(t *testing.T) {
	repo := newMemoryRepo()
	user := testUser(t, "senha123", true)
	svc := NewService(repo, &stubUsers{user: user}, time.Hour)

	sess, err := svc.Login(context.Background(), user.Email, "senha123", "", "")
	require.NoError(t, err)
	require.NoError(t, svc.Logout(context.Background(), sess.Token))

	_, err = svc.Resolve(context.Background(), sess.Token)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
