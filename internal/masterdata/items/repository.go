package items

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
	List(ctx context.Context, filters mdshared.ListFilters) ([]Item, int, error)
	Get(ctx context.Context, id uuid.UUID) (Item, error)
	Create(ctx context.Context, item Item) (Item, error)
	Update(ctx context.Context, id uuid.UUID, item Item) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountStockRecords(ctx context.Context, id uuid.UUID) (int, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const columns = `id, name, unit, description, is_active, created_at, updated_at`

func (r *repository) List(ctx context.Context, filters mdshared.ListFilters) ([]Item, int, error) {
	query := `SELECT ` + columns + ` FROM items WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM items WHERE 1=1`
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
		return nil, 0, fmt.Errorf("items: count: %w", err)
	}

	query += ` ORDER BY name ASC`
	if filters.Limit > 0 {
		query += ` LIMIT $` + strconv.Itoa(argCount+1) + ` OFFSET $` + strconv.Itoa(argCount+2)
		args = append(args, filters.Limit, filters.Offset())
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("items: list: %w", err)
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Name, &it.Unit, &it.Description, &it.IsActive, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, it)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (Item, error) {
	var it Item
	err := r.pool.QueryRow(ctx, `SELECT `+columns+` FROM items WHERE id = $1`, id).
		Scan(&it.ID, &it.Name, &it.Unit, &it.Description, &it.IsActive, &it.CreatedAt, &it.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, shared.NotFoundError("item")
	}
	if err != nil {
		return Item{}, fmt.Errorf("items: get: %w", err)
	}
	return it, nil
}

func (r *repository) Create(ctx context.Context, item Item) (Item, error) {
	now := time.Now()
	item.ID = uuid.New()
	item.CreatedAt = now
	item.UpdatedAt = now
	_, err := r.pool.Exec(ctx,
		`INSERT INTO items (id, name, name_folded, unit, description, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		item.ID, item.Name, mdshared.Fold(item.Name), item.Unit, item.Description, item.IsActive, now, now)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return Item{}, shared.ValidationError("já existe um alimento com este nome")
	}
	if err != nil {
		return Item{}, fmt.Errorf("items: create: %w", err)
	}
	return item, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, item Item) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE items SET name = $1, name_folded = $2, unit = $3, description = $4, is_active = $5, updated_at = NOW()
		 WHERE id = $6`,
		item.Name, mdshared.Fold(item.Name), item.Unit, item.Description, item.IsActive, id)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return shared.ValidationError("já existe um alimento com este nome")
	}
	if err != nil {
		return fmt.Errorf("items: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundError("item")
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("items: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundError("item")
	}
	return nil
}

func (r *repository) CountStockRecords(ctx context.Context, id uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM stock_records WHERE item_id = $1`, id).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("items: count stock records: %w", err)
	}
	return n, nil
}
