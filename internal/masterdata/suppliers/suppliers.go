// Package suppliers manages the registered food suppliers.
package suppliers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	mdshared "github.com/saitoboy/merenda-back-sub000/internal/masterdata/shared"
	"github.com/saitoboy/merenda-back-sub000/internal/shared"
)

// Supplier represents a registered food supplier
type Supplier struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CNPJ      string    `json:"cnpj"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Repository interface {
	List(ctx context.Context, filters mdshared.ListFilters) ([]Supplier, int, error)
	Get(ctx context.Context, id uuid.UUID) (Supplier, error)
	Create(ctx context.Context, sup Supplier) (Supplier, error)
	Update(ctx context.Context, id uuid.UUID, sup Supplier) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const columns = `id, name, cnpj, email, phone, is_active, created_at, updated_at`

func (r *repository) List(ctx context.Context, filters mdshared.ListFilters) ([]Supplier, int, error) {
	query := `SELECT ` + columns + ` FROM suppliers WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM suppliers WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		clause := ` AND (name_folded LIKE $` + strconv.Itoa(argCount) + ` OR cnpj LIKE $` + strconv.Itoa(argCount) + `)`
		query += clause
		countQuery += clause
		args = append(args, "%"+mdshared.Fold(filters.Search)+"%")
	}
	if filters.IsActive != nil {
		argCount++
		clause := ` AND is_active = $` + strconv.Itoa(argCount)
		query += clause
		countQuery += clause
		args = append(args, *filters.IsActive)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("suppliers: count: %w", err)
	}

	query += ` ORDER BY name ASC`
	if filters.Limit > 0 {
		query += ` LIMIT $` + strconv.Itoa(argCount+1) + ` OFFSET $` + strconv.Itoa(argCount+2)
		args = append(args, filters.Limit, filters.Offset())
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("suppliers: list: %w", err)
	}
	defer rows.Close()

	var out []Supplier
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.ID, &s.Name, &s.CNPJ, &s.Email, &s.Phone, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (Supplier, error) {
	var s Supplier
	err := r.pool.QueryRow(ctx, `SELECT `+columns+` FROM suppliers WHERE id = $1`, id).
		Scan(&s.ID, &s.Name, &s.CNPJ, &s.Email, &s.Phone, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, shared.NotFoundError("supplier")
	}
	if err != nil {
		return Supplier{}, fmt.Errorf("suppliers: get: %w", err)
	}
	return s, nil
}

func (r *repository) Create(ctx context.Context, sup Supplier) (Supplier, error) {
	now := time.Now()
	sup.ID = uuid.New()
	sup.CreatedAt = now
	sup.UpdatedAt = now
	_, err := r.pool.Exec(ctx,
		`INSERT INTO suppliers (id, name, name_folded, cnpj, email, phone, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		sup.ID, sup.Name, mdshared.Fold(sup.Name), sup.CNPJ, sup.Email, sup.Phone, sup.IsActive, now, now)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return Supplier{}, shared.ValidationError("já existe um fornecedor com este CNPJ")
	}
	if err != nil {
		return Supplier{}, fmt.Errorf("suppliers: create: %w", err)
	}
	return sup, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, sup Supplier) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE suppliers SET name = $1, name_folded = $2, cnpj = $3, email = $4, phone = $5, is_active = $6, updated_at = NOW()
		 WHERE id = $7`,
		sup.Name, mdshared.Fold(sup.Name), sup.CNPJ, sup.Email, sup.Phone, sup.IsActive, id)
	if err != nil {
		return fmt.Errorf("suppliers: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundError("supplier")
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM suppliers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("suppliers: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundError("supplier")
	}
	return nil
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters mdshared.ListFilters) ([]Supplier, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Supplier, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, sup Supplier) (Supplier, error) {
	if err := validate(sup); err != nil {
		return Supplier{}, err
	}
	sup.CNPJ = digitsOnly(sup.CNPJ)
	return s.repo.Create(ctx, sup)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, sup Supplier) error {
	if err := validate(sup); err != nil {
		return err
	}
	sup.CNPJ = digitsOnly(sup.CNPJ)
	return s.repo.Update(ctx, id, sup)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func validate(sup Supplier) error {
	if strings.TrimSpace(sup.Name) == "" {
		return shared.ValidationError("o nome do fornecedor é obrigatório")
	}
	if len(digitsOnly(sup.CNPJ)) != 14 {
		return shared.ValidationError("CNPJ inválido")
	}
	return nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
