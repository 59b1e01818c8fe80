package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoActiveCode indicates the user has no unused, unexpired code.
var ErrNoActiveCode = errors.New("no active code")

// TxRepository exposes the operations the verification flow runs inside one
// transaction. It reaches into the users table as well: the password change
// and the code bookkeeping must commit together.
type TxRepository interface {
	FindActiveByUser(ctx context.Context, userID uuid.UUID, now time.Time) (OneTimeCode, error)
	IncrementAttempts(ctx context.Context, id uuid.UUID) error
	MarkUsed(ctx context.Context, id uuid.UUID) error
	InvalidateActive(ctx context.Context, userID uuid.UUID) error
	UserExists(ctx context.Context, userID uuid.UUID) (bool, error)
	UpdateUserPassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
}

// Repository persists one-time codes in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("otp: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &txRepo{tx: tx}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

const codeColumns = `id, user_id, email, code, attempts, used, created_at, expires_at`

func scanCode(row pgx.Row) (OneTimeCode, error) {
	var c OneTimeCode
	err := row.Scan(&c.ID, &c.UserID, &c.Email, &c.Code, &c.Attempts, &c.Used, &c.CreatedAt, &c.ExpiresAt)
	return c, err
}

// Insert stores a freshly issued code.
func (r *Repository) Insert(ctx context.Context, c OneTimeCode) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO one_time_codes (id, user_id, email, code, attempts, used, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.UserID, c.Email, c.Code, c.Attempts, c.Used, c.CreatedAt, c.ExpiresAt)
	return err
}

// CountIssuedSince counts codes issued to the user after since.
func (r *Repository) CountIssuedSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM one_time_codes WHERE user_id = $1 AND created_at >= $2`,
		userID, since).Scan(&n)
	return n, err
}

// InvalidateActive marks every active code of the user as used, enforcing
// the single-active-code invariant before a new issuance.
func (r *Repository) InvalidateActive(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE one_time_codes SET used = TRUE WHERE user_id = $1 AND NOT used AND expires_at > NOW()`,
		userID)
	return err
}

// PurgeExpired removes terminal and expired codes created before cutoff.
func (r *Repository) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM one_time_codes WHERE created_at < $1 AND (used OR expires_at < NOW())`,
		cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t *txRepo) FindActiveByUser(ctx context.Context, userID uuid.UUID, now time.Time) (OneTimeCode, error) {
	c, err := scanCode(t.tx.QueryRow(ctx,
		`SELECT `+codeColumns+` FROM one_time_codes
		 WHERE user_id = $1 AND NOT used AND expires_at > $2
		 ORDER BY created_at DESC LIMIT 1`,
		userID, now))
	if errors.Is(err, pgx.ErrNoRows) {
		return OneTimeCode{}, ErrNoActiveCode
	}
	return c, err
}

func (t *txRepo) IncrementAttempts(ctx context.Context, id uuid.UUID) error {
	_, err := t.tx.Exec(ctx, `UPDATE one_time_codes SET attempts = attempts + 1 WHERE id = $1`, id)
	return err
}

func (t *txRepo) MarkUsed(ctx context.Context, id uuid.UUID) error {
	_, err := t.tx.Exec(ctx, `UPDATE one_time_codes SET used = TRUE WHERE id = $1`, id)
	return err
}

func (t *txRepo) InvalidateActive(ctx context.Context, userID uuid.UUID) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE one_time_codes SET used = TRUE WHERE user_id = $1 AND NOT used`, userID)
	return err
}

func (t *txRepo) UserExists(ctx context.Context, userID uuid.UUID) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists)
	return exists, err
}

func (t *txRepo) UpdateUserPassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, userID, passwordHash)
	return err
}
