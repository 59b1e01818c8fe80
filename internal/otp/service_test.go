package otp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/saitoboy/merenda-back-sub000/internal/shared"
	"github.com/saitoboy/merenda-back-sub000/internal/users"
)

type memoryRepo struct {
	codes     map[uuid.UUID]OneTimeCode
	users     map[uuid.UUID]bool
	passwords map[uuid.UUID]string
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		codes:     map[uuid.UUID]OneTimeCode{},
		users:     map[uuid.UUID]bool{},
		passwords: map[uuid.UUID]string{},
	}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapshot := &memoryRepo{
		codes:     map[uuid.UUID]OneTimeCode{},
		users:     map[uuid.UUID]bool{},
		passwords: map[uuid.UUID]string{},
	}
	for k, v := range m.codes {
		snapshot.codes[k] = v
	}
	for k, v := range m.users {
		snapshot.users[k] = v
	}
	for k, v := range m.passwords {
		snapshot.passwords[k] = v
	}
	if err := fn(ctx, snapshot); err != nil {
		return err
	}
	m.codes = snapshot.codes
	m.users = snapshot.users
	m.passwords = snapshot.passwords
	return nil
}

func (m *memoryRepo) Insert(_ context.Context, c OneTimeCode) error {
	m.codes[c.ID] = c
	return nil
}

func (m *memoryRepo) CountIssuedSince(_ context.Context, userID uuid.UUID, since time.Time) (int, error) {
	n := 0
	for _, c := range m.codes {
		if c.UserID == userID && !c.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *memoryRepo) InvalidateActive(_ context.Context, userID uuid.UUID) error {
	for id, c := range m.codes {
		if c.UserID == userID && !c.Used {
			c.Used = true
			m.codes[id] = c
		}
	}
	return nil
}

func (m *memoryRepo) PurgeExpired(_ context.Context, cutoff time.Time) (int64, error) {
	var purged int64
	for id, c := range m.codes {
		if c.CreatedAt.Before(cutoff) && (c.Used || !c.ExpiresAt.After(cutoff)) {
			delete(m.codes, id)
			purged++
		}
	}
	return purged, nil
}

func (m *memoryRepo) FindActiveByUser(_ context.Context, userID uuid.UUID, now time.Time) (OneTimeCode, error) {
	var found OneTimeCode
	ok := false
	for _, c := range m.codes {
		if c.UserID == userID && c.Active(now) {
			if !ok || c.CreatedAt.After(found.CreatedAt) {
				found = c
				ok = true
			}
		}
	}
	if !ok {
		return OneTimeCode{}, ErrNoActiveCode
	}
	return found, nil
}

func (m *memoryRepo) IncrementAttempts(_ context.Context, id uuid.UUID) error {
	c, ok := m.codes[id]
	if !ok {
		return ErrNoActiveCode
	}
	c.Attempts++
	m.codes[id] = c
	return nil
}

func (m *memoryRepo) MarkUsed(_ context.Context, id uuid.UUID) error {
	c, ok := m.codes[id]
	if !ok {
		return ErrNoActiveCode
	}
	c.Used = true
	m.codes[id] = c
	return nil
}

func (m *memoryRepo) UserExists(_ context.Context, userID uuid.UUID) (bool, error) {
	return m.users[userID], nil
}

func (m *memoryRepo) UpdateUserPassword(_ context.Context, userID uuid.UUID, hash string) error {
	m.passwords[userID] = hash
	return nil
}

func (m *memoryRepo) activeCodes(userID uuid.UUID, now time.Time) []OneTimeCode {
	var out []OneTimeCode
	for _, c := range m.codes {
		if c.UserID == userID && c.Active(now) {
			out = append(out, c)
		}
	}
	return out
}

type stubUsers struct {
	byEmail map[string]users.User
}

func (s *stubUsers) FindByEmail(_ context.Context, email string) (users.User, error) {
	u, ok := s.byEmail[email]
	if !ok {
		return users.User{}, shared.NotFoundErrorMsg("user", "email not registered")
	}
	return u, nil
}

type stubMailer struct {
	sent []string
	fail error
}

func (s *stubMailer) SendOTP(_ context.Context, to, code string) error {
	if s.fail != nil {
		return s.fail
	}
	s.sent = append(s.sent, code)
	return nil
}

const testEmail = "diretora@edu.muriae.mg.gov.br"

func newTestService(t *testing.T) (*Service, *memoryRepo, *stubMailer, uuid.UUID) {
	t.Helper()
	repo := newMemoryRepo()
	userID := uuid.New()
	repo.users[userID] = true
	port := &stubUsers{byEmail: map[string]users.User{
		testEmail: {ID: userID, Email: testEmail, Role: "escola", IsActive: true},
	}}
	mailer := &stubMailer{}
	svc := NewService(repo, port, mailer, []string{"edu.muriae.mg.gov.br", "muriae.mg.gov.br"}, slog.Default())
	return svc, repo, mailer, userID
}

func TestRequestCodeIssuesAndDelivers(t *testing.T) {
	svc, repo, mailer, userID := newTestService(t)
	now := time.Now()
	svc.now = func() time.Time { return now }

	_, err := svc.RequestCode(context.Background(), testEmail)
	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)
	require.Len(t, mailer.sent[0], 6)

	active := repo.activeCodes(userID, now)
	require.Len(t, active, 1)
	require.Equal(t, mailer.sent[0], active[0].Code)
	require.Equal(t, now.Add(CodeTTL), active[0].ExpiresAt)
}

func TestRequestCodeSupersedesPreviousCode(t *testing.T) {
	svc, repo, mailer, userID := newTestService(t)
	now := time.Now()
	svc.now = func() time.Time { return now }

	_, err := svc.RequestCode(context.Background(), testEmail)
	require.NoError(t, err)
	_, err = svc.RequestCode(context.Background(), testEmail)
	require.NoError(t, err)

	active := repo.activeCodes(userID, now)
	require.Len(t, active, 1, "only the latest code may stay active")
	require.Equal(t, mailer.sent[1], active[0].Code)
}

func TestRequestCodeRateLimited(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	now := time.Now()
	svc.now = func() time.Time { return now }

	for i := 0; i < MaxCodesPerWindow; i++ {
		_, err := svc.RequestCode(context.Background(), testEmail)
		require.NoError(t, err)
	}

	_, err := svc.RequestCode(context.Background(), testEmail)
	require.True(t, shared.IsKind(err, shared.KindRateLimited))

	// Outside the window the quota resets.
	svc.now = func() time.Time { return now.Add(RateWindow + time.Minute) }
	_, err = svc.RequestCode(context.Background(), testEmail)
	require.NoError(t, err)
}

func TestRequestCodeRejectsUnknownEmail(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	_, err := svc.RequestCode(context.Background(), "alguem@edu.muriae.mg.gov.br")
	require.True(t, shared.IsKind(err, shared.KindNotFound))
}

func TestRequestCodeRejectsForeignDomain(t *testing.T) {
	svc, repo, _, userID := newTestService(t)
	_, err := svc.RequestCode(context.Background(), "diretora@gmail.com")
	require.True(t, shared.IsKind(err, shared.KindValidation))
	require.Empty(t, repo.activeCodes(userID, time.Now()))
}

func TestRequestCodeRejectsMalformedAddress(t *testing.T) {
	svc, repo, _, userID := newTestService(t)
	for _, email := range []string{
		"user name@edu.muriae.mg.gov.br",
		"diretora@",
		"@edu.muriae.mg.gov.br",
		"diretora",
	} {
		_, err := svc.RequestCode(context.Background(), email)
		require.True(t, shared.IsKind(err, shared.KindValidation), email)
	}
	require.Empty(t, repo.activeCodes(userID, time.Now()))
}

func TestRequestCodeDeliveryFailureKeepsCode(t *testing.T) {
	svc, repo, mailer, userID := newTestService(t)
	now := time.Now()
	svc.now = func() time.Time { return now }
	mailer.fail = errors.New("smtp: connection refused")

	_, err := svc.RequestCode(context.Background(), testEmail)
	require.Error(t, err)
	require.Len(t, repo.activeCodes(userID, now), 1, "code stays valid after a delivery failure")
}

func issueCode(t *testing.T, svc *Service, mailer *stubMailer) string {
	t.Helper()
	_, err := svc.RequestCode(context.Background(), testEmail)
	require.NoError(t, err)
	return mailer.sent[len(mailer.sent)-1]
}

func TestVerifyResetsPassword(t *testing.T) {
	svc, repo, mailer, userID := newTestService(t)
	now := time.Now()
	svc.now = func() time.Time { return now }
	code := issueCode(t, svc, mailer)

	_, err := svc.VerifyCodeAndResetPassword(context.Background(), testEmail, code, "novasenha")
	require.NoError(t, err)

	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.passwords[userID]), []byte("novasenha")))
	require.Empty(t, repo.activeCodes(userID, now), "code is consumed on success")
}

func TestVerifyWrongCodeIncrementsAttempts(t *testing.T) {
	svc, repo, mailer, userID := newTestService(t)
	now := time.Now()
	svc.now = func() time.Time { return now }
	issueCode(t, svc, mailer)

	_, err := svc.VerifyCodeAndResetPassword(context.Background(), testEmail, "000000", "novasenha")
	require.True(t, shared.IsKind(err, shared.KindValidation))

	active := repo.activeCodes(userID, now)
	require.Len(t, active, 1)
	require.Equal(t, 1, active[0].Attempts, "the failed attempt must be persisted")
}

func TestVerifyAttemptsExhausted(t *testing.T) {
	svc, repo, mailer, userID := newTestService(t)
	now := time.Now()
	svc.now = func() time.Time { return now }
	code := issueCode(t, svc, mailer)

	for i := 0; i < MaxAttempts; i++ {
		_, err := svc.VerifyCodeAndResetPassword(context.Background(), testEmail, "000000", "novasenha")
		require.True(t, shared.IsKind(err, shared.KindValidation))
	}

	// The correct code no longer works once attempts are spent.
	_, err := svc.VerifyCodeAndResetPassword(context.Background(), testEmail, code, "novasenha")
	require.True(t, shared.IsKind(err, shared.KindAttemptsExhausted))
	require.Empty(t, repo.activeCodes(userID, now), "exhausted code is burned")
	require.Empty(t, repo.passwords[userID])
}

func TestVerifyExpiredCode(t *testing.T) {
	svc, _, mailer, _ := newTestService(t)
	now := time.Now()
	svc.now = func() time.Time { return now }
	code := issueCode(t, svc, mailer)

	svc.now = func() time.Time { return now.Add(CodeTTL + time.Second) }
	_, err := svc.VerifyCodeAndResetPassword(context.Background(), testEmail, code, "novasenha")
	require.True(t, shared.IsKind(err, shared.KindValidation))
}

func TestVerifyStructuralValidation(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.VerifyCodeAndResetPassword(context.Background(), testEmail, "123", "novasenha")
	require.True(t, shared.IsKind(err, shared.KindValidation))

	_, err = svc.VerifyCodeAndResetPassword(context.Background(), testEmail, "123456", "curta")
	require.True(t, shared.IsKind(err, shared.KindValidation))
}

func TestPurgeExpired(t *testing.T) {
	svc, repo, mailer, _ := newTestService(t)
	now := time.Now()
	svc.now = func() time.Time { return now }
	issueCode(t, svc, mailer)
	issueCode(t, svc, mailer) // supersedes the first, which becomes purgeable

	svc.now = func() time.Time { return now.Add(48 * time.Hour) }
	purged, err := svc.PurgeExpired(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, int64(2), purged)
}

func TestGenerateCodeShape(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := generateCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		require.NotEqual(t, "0", code[:1], fmt.Sprintf("code %s must not lead with zero", code))
	}
}
