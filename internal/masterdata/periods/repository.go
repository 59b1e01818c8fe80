package periods

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saitoboy/merenda-back-sub000/internal/platform/db"
	"github.com/saitoboy/merenda-back-sub000/internal/shared"
)

// TxRepository is the slice of the repository available inside a status
// transition transaction.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id uuid.UUID) (Period, error)
	FindActive(ctx context.Context) (Period, bool, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
}

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context) ([]Period, error)
	Get(ctx context.Context, id uuid.UUID) (Period, error)
	Create(ctx context.Context, p Period) (Period, error)
	Update(ctx context.Context, id uuid.UUID, p Period) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountStockRecords(ctx context.Context, id uuid.UUID) (int, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const columns = `id, name, starts_at, ends_at, status, created_at, updated_at`

func scanPeriod(row pgx.Row) (Period, error) {
	var p Period
	err := row.Scan(&p.ID, &p.Name, &p.StartsAt, &p.EndsAt, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *repository) List(ctx context.Context) ([]Period, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM periods ORDER BY starts_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("periods: list: %w", err)
	}
	defer rows.Close()

	var out []Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (Period, error) {
	p, err := scanPeriod(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM periods WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Period{}, shared.NotFoundError("period")
	}
	if err != nil {
		return Period{}, fmt.Errorf("periods: get: %w", err)
	}
	return p, nil
}

func (r *repository) Create(ctx context.Context, p Period) (Period, error) {
	now := time.Now()
	p.ID = uuid.New()
	p.Status = StatusDraft
	p.CreatedAt = now
	p.UpdatedAt = now
	_, err := r.pool.Exec(ctx,
		`INSERT INTO periods (id, name, starts_at, ends_at, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.Name, p.StartsAt, p.EndsAt, p.Status, now, now)
	if err != nil {
		return Period{}, fmt.Errorf("periods: create: %w", err)
	}
	return p, nil
}

// Update changes name and dates only; status moves through Activate/Close.
func (r *repository) Update(ctx context.Context, id uuid.UUID, p Period) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE periods SET name = $1, starts_at = $2, ends_at = $3, updated_at = NOW() WHERE id = $4`,
		p.Name, p.StartsAt, p.EndsAt, id)
	if err != nil {
		return fmt.Errorf("periods: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundError("period")
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM periods WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("periods: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundError("period")
	}
	return nil
}

func (r *repository) CountStockRecords(ctx context.Context, id uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM stock_records WHERE period_id = $1`, id).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("periods: count stock records: %w", err)
	}
	return n, nil
}

func (t *txRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (Period, error) {
	p, err := scanPeriod(t.tx.QueryRow(ctx, `SELECT `+columns+` FROM periods WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Period{}, shared.NotFoundError("period")
	}
	if err != nil {
		return Period{}, fmt.Errorf("periods: get for update: %w", err)
	}
	return p, nil
}

func (t *txRepo) FindActive(ctx context.Context) (Period, bool, error) {
	p, err := scanPeriod(t.tx.QueryRow(ctx, `SELECT `+columns+` FROM periods WHERE status = $1 FOR UPDATE`, StatusActive))
	if errors.Is(err, pgx.ErrNoRows) {
		return Period{}, false, nil
	}
	if err != nil {
		return Period{}, false, fmt.Errorf("periods: find active: %w", err)
	}
	return p, true, nil
}

func (t *txRepo) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := t.tx.Exec(ctx, `UPDATE periods SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("periods: set status: %w", err)
	}
	return nil
}
