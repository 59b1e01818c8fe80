package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saitoboy/merenda-back-sub000/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	CreateSession(ctx context.Context, s Session) error
	GetSession(ctx context.Context, token string) (Session, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// CreateSession persists a new login session.
func (r *PGRepository) CreateSession(ctx context.Context, s Session) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sessions (token, user_id, created_at, expires_at, ip, ua)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		s.Token, s.UserID, s.CreatedAt.UTC(), s.ExpiresAt.UTC(), s.IP, s.UserAgent)
	return err
}

// GetSession resolves a token to its session and account data.
func (r *PGRepository) GetSession(ctx context.Context, token string) (Session, error) {
	var s Session
	var userID uuid.UUID
	err := r.pool.QueryRow(ctx,
		`SELECT s.token, s.user_id, s.created_at, s.expires_at, u.email, u.role
		 FROM sessions s
		 JOIN users u ON u.id = s.user_id
		 WHERE s.token = $1 AND u.is_active`,
		token).Scan(&s.Token, &userID, &s.CreatedAt, &s.ExpiresAt, &s.Email, &s.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, shared.ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}
	s.UserID = userID
	return s, nil
}

// DeleteSession removes a session record.
func (r *PGRepository) DeleteSession(ctx context.Context, token string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	return err
}

// DeleteExpiredSessions removes sessions past their expiry.
func (r *PGRepository) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var _ Repository = (*PGRepository)(nil)
