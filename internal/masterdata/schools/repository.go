package schools

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	mdshared "github.com/saitoboy/merenda-back-sub000/internal/masterdata/shared"
	"github.com/saitoboy/merenda-back-sub000/internal/shared"
)

type Repository interface {
	List(ctx context.Context, filters mdshared.ListFilters) ([]School, int, error)
	Get(ctx context.Context, id uuid.UUID) (School, error)
	Create(ctx context.Context, school School) (School, error)
	Update(ctx context.Context, id uuid.UUID, school School) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountStockRecords(ctx context.Context, id uuid.UUID) (int, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const columns = `id, name, address, phone, email, is_active, created_at, updated_at`

// List uses a dynamic query due to filter complexity.
func (r *repository) List(ctx context.Context, filters mdshared.ListFilters) ([]School, int, error) {
	query := `SELECT ` + columns + ` FROM schools WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM schools WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		clause := ` AND name_folded LIKE $` + strconv.Itoa(argCount)
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
		return nil, 0, fmt.Errorf("schools: count: %w", err)
	}

	query += " ORDER BY " + sortOrder(filters.SortBy, filters.SortDir)
	if filters.Limit > 0 {
		query += ` LIMIT $` + strconv.Itoa(argCount+1) + ` OFFSET $` + strconv.Itoa(argCount+2)
		args = append(args, filters.Limit, filters.Offset())
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("schools: list: %w", err)
	}
	defer rows.Close()

	var out []School
	for rows.Next() {
		var s School
		if err := rows.Scan(&s.ID, &s.Name, &s.Address, &s.Phone, &s.Email, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (School, error) {
	var s School
	err := r.pool.QueryRow(ctx, `SELECT `+columns+` FROM schools WHERE id = $1`, id).
		Scan(&s.ID, &s.Name, &s.Address, &s.Phone, &s.Email, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return School{}, shared.NotFoundError("school")
	}
	if err != nil {
		return School{}, fmt.Errorf("schools: get: %w", err)
	}
	return s, nil
}

func (r *repository) Create(ctx context.Context, school School) (School, error) {
	now := time.Now()
	school.ID = uuid.New()
	school.CreatedAt = now
	school.UpdatedAt = now
	_, err := r.pool.Exec(ctx,
		`INSERT INTO schools (id, name, name_folded, address, phone, email, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		school.ID, school.Name, mdshared.Fold(school.Name), school.Address, school.Phone, school.Email, school.IsActive, now, now)
	if isUniqueViolation(err) {
		return School{}, shared.ValidationError("já existe uma escola com este nome")
	}
	if err != nil {
		return School{}, fmt.Errorf("schools: create: %w", err)
	}
	return school, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, school School) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE schools SET name = $1, name_folded = $2, address = $3, phone = $4, email = $5, is_active = $6, updated_at = NOW()
		 WHERE id = $7`,
		school.Name, mdshared.Fold(school.Name), school.Address, school.Phone, school.Email, school.IsActive, id)
	if isUniqueViolation(err) {
		return shared.ValidationError("já existe uma escola com este nome")
	}
	if err != nil {
		return fmt.Errorf("schools: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundError("school")
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM schools WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("schools: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundError("school")
	}
	return nil
}

func (r *repository) CountStockRecords(ctx context.Context, id uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM stock_records WHERE school_id = $1`, id).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("schools: count stock records: %w", err)
	}
	return n, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == mdshared.SortDesc {
		dir = "DESC"
	}
	switch sortBy {
	case "created_at":
		return "created_at " + dir
	default:
		return "name " + dir
	}
}
