// Package segments manages the student segments (creche, pré-escola,
// fundamental, EJA) that stock records are partitioned by.
package segments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	mdshared "github.com/saitoboy/merenda-back-sub000/internal/masterdata/shared"
	"github.com/saitoboy/merenda-back-sub000/internal/shared"
)

// Segment represents one student segment
type Segment struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Repository interface {
	List(ctx context.Context) ([]Segment, error)
	Get(ctx context.Context, id uuid.UUID) (Segment, error)
	Create(ctx context.Context, seg Segment) (Segment, error)
	Update(ctx context.Context, id uuid.UUID, seg Segment) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountStockRecords(ctx context.Context, id uuid.UUID) (int, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) List(ctx context.Context) ([]Segment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, description, created_at, updated_at FROM segments ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("segments: list: %w", err)
	}
	defer rows.Close()

	var out []Segment
	for rows.Next() {
		var s Segment
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (Segment, error) {
	var s Segment
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, description, created_at, updated_at FROM segments WHERE id = $1`, id).
		Scan(&s.ID, &s.Name, &s.Description, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Segment{}, shared.NotFoundError("segment")
	}
	if err != nil {
		return Segment{}, fmt.Errorf("segments: get: %w", err)
	}
	return s, nil
}

func (r *repository) Create(ctx context.Context, seg Segment) (Segment, error) {
	now := time.Now()
	seg.ID = uuid.New()
	seg.CreatedAt = now
	seg.UpdatedAt = now
	_, err := r.pool.Exec(ctx,
		`INSERT INTO segments (id, name, name_folded, description, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		seg.ID, seg.Name, mdshared.Fold(seg.Name), seg.Description, now, now)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return Segment{}, shared.ValidationError("já existe um segmento com este nome")
	}
	if err != nil {
		return Segment{}, fmt.Errorf("segments: create: %w", err)
	}
	return seg, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, seg Segment) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE segments SET name = $1, name_folded = $2, description = $3, updated_at = NOW() WHERE id = $4`,
		seg.Name, mdshared.Fold(seg.Name), seg.Description, id)
	if err != nil {
		return fmt.Errorf("segments: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundError("segment")
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM segments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("segments: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundError("segment")
	}
	return nil
}

func (r *repository) CountStockRecords(ctx context.Context, id uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM stock_records WHERE segment_id = $1`, id).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("segments: count stock records: %w", err)
	}
	return n, nil
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context) ([]Segment, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Segment, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, seg Segment) (Segment, error) {
	if strings.TrimSpace(seg.Name) == "" {
		return Segment{}, shared.ValidationError("o nome do segmento é obrigatório")
	}
	return s.repo.Create(ctx, seg)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, seg Segment) error {
	if strings.TrimSpace(seg.Name) == "" {
		return shared.ValidationError("o nome do segmento é obrigatório")
	}
	return s.repo.Update(ctx, id, seg)
}

// Delete refuses to remove a segment still referenced by stock records.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := s.repo.CountStockRecords(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return shared.ConstraintViolationError("segment", map[string]int{"stock_records": n})
	}
	return s.repo.Delete(ctx, id)
}
