package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saitoboy/merenda-back-sub000/internal/shared"
)

// ErrRecordNotFound indicates no stock row exists for a key or id.
var ErrRecordNotFound = errors.New("stock record not found")

// TxRepository exposes the operations the reconciliation engine runs inside
// one transaction.
type TxRepository interface {
	EnsureRefs(ctx context.Context, key RecordKey) error
	FindByKey(ctx context.Context, key RecordKey) (StockRecord, error)
	InsertRecord(ctx context.Context, rec StockRecord) (uuid.UUID, error)
	UpdateIdealQuantity(ctx context.Context, id uuid.UUID, ideal int) error
}

// Repository persists stock data in PostgreSQL.
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

// WithTx executes the callback inside a repeatable-read transaction; any
// error rolls the whole batch back.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("stock: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &txRepo{tx: tx}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// EnsureRefs verifies that every parent of the composite key exists. The
// first missing parent aborts with a NotFound naming it.
func (t *txRepo) EnsureRefs(ctx context.Context, key RecordKey) error {
	checks := []struct {
		entity string
		table  string
		id     uuid.UUID
	}{
		{"school", "schools", key.SchoolID},
		{"item", "items", key.ItemID},
		{"segment", "segments", key.SegmentID},
		{"period", "periods", key.PeriodID},
	}
	for _, c := range checks {
		var exists bool
		if err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+c.table+` WHERE id = $1)`, c.id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return shared.NotFoundError(c.entity)
		}
	}
	return nil
}

const recordColumns = `id, school_id, item_id, segment_id, period_id, quantity_on_hand, ideal_quantity, expiry_date, note, created_at, updated_at`

func scanRecord(row pgx.Row) (StockRecord, error) {
	var rec StockRecord
	err := row.Scan(&rec.ID, &rec.SchoolID, &rec.ItemID, &rec.SegmentID, &rec.PeriodID,
		&rec.QuantityOnHand, &rec.IdealQuantity, &rec.ExpiryDate, &rec.Note, &rec.CreatedAt, &rec.UpdatedAt)
	return rec, err
}

// FindByKey looks up a stock row by its exact four-part key.
func (t *txRepo) FindByKey(ctx context.Context, key RecordKey) (StockRecord, error) {
	rec, err := scanRecord(t.tx.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM stock_records
		 WHERE school_id = $1 AND item_id = $2 AND segment_id = $3 AND period_id = $4`,
		key.SchoolID, key.ItemID, key.SegmentID, key.PeriodID))
	if errors.Is(err, pgx.ErrNoRows) {
		return StockRecord{}, ErrRecordNotFound
	}
	return rec, err
}

// InsertRecord creates a stock row and returns its id.
func (t *txRepo) InsertRecord(ctx context.Context, rec StockRecord) (uuid.UUID, error) {
	id := uuid.New()
	now := time.Now()
	_, err := t.tx.Exec(ctx,
		`INSERT INTO stock_records (id, school_id, item_id, segment_id, period_id, quantity_on_hand, ideal_quantity, expiry_date, note, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`,
		id, rec.SchoolID, rec.ItemID, rec.SegmentID, rec.PeriodID,
		rec.QuantityOnHand, rec.IdealQuantity, rec.ExpiryDate, rec.Note, now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return uuid.Nil, shared.ConstraintViolationError("stock record", nil)
		}
		return uuid.Nil, err
	}
	return id, nil
}

// UpdateIdealQuantity changes only the ideal quantity of an existing row.
func (t *txRepo) UpdateIdealQuantity(ctx context.Context, id uuid.UUID, ideal int) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE stock_records SET ideal_quantity = $2, updated_at = NOW() WHERE id = $1`, id, ideal)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

const viewSelect = `
	SELECT r.id, r.school_id, r.item_id, r.segment_id, r.period_id,
	       r.quantity_on_hand, r.ideal_quantity, r.expiry_date, r.note,
	       r.created_at, r.updated_at,
	       i.name AS item_name, i.unit AS item_unit,
	       g.name AS segment_name, p.name AS period_name
	FROM stock_records r
	JOIN items i ON i.id = r.item_id
	JOIN segments g ON g.id = r.segment_id
	JOIN periods p ON p.id = r.period_id`

func scanView(rows pgx.Rows) (RecordView, error) {
	var v RecordView
	err := rows.Scan(&v.ID, &v.SchoolID, &v.ItemID, &v.SegmentID, &v.PeriodID,
		&v.QuantityOnHand, &v.IdealQuantity, &v.ExpiryDate, &v.Note, &v.CreatedAt, &v.UpdatedAt,
		&v.ItemName, &v.ItemUnit, &v.SegmentName, &v.PeriodName)
	return v, err
}

func collectViews(rows pgx.Rows) ([]RecordView, error) {
	defer rows.Close()
	var views []RecordView
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

// ListBySchool returns every stock row of the school with descriptive fields.
func (r *Repository) ListBySchool(ctx context.Context, schoolID uuid.UUID) ([]RecordView, error) {
	rows, err := r.pool.Query(ctx, viewSelect+` WHERE r.school_id = $1 ORDER BY i.name, g.name`, schoolID)
	if err != nil {
		return nil, err
	}
	return collectViews(rows)
}

// FindBelowIdeal returns rows where quantity on hand is under the ideal.
func (r *Repository) FindBelowIdeal(ctx context.Context, schoolID uuid.UUID) ([]RecordView, error) {
	rows, err := r.pool.Query(ctx,
		viewSelect+` WHERE r.school_id = $1 AND r.quantity_on_hand < r.ideal_quantity ORDER BY i.name, g.name`,
		schoolID)
	if err != nil {
		return nil, err
	}
	return collectViews(rows)
}

// FindNearExpiry returns rows expiring inside the horizon, soonest first.
// The ascending order is load-bearing: consumers render a prioritised list.
func (r *Repository) FindNearExpiry(ctx context.Context, schoolID uuid.UUID, horizonDays int) ([]RecordView, error) {
	rows, err := r.pool.Query(ctx,
		viewSelect+` WHERE r.school_id = $1
		 AND r.expiry_date IS NOT NULL
		 AND r.expiry_date >= CURRENT_DATE
		 AND r.expiry_date <= CURRENT_DATE + $2::int
		 ORDER BY r.expiry_date ASC`,
		schoolID, horizonDays)
	if err != nil {
		return nil, err
	}
	return collectViews(rows)
}

// CountAll returns the number of stock rows for the school.
func (r *Repository) CountAll(ctx context.Context, schoolID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM stock_records WHERE school_id = $1`, schoolID).Scan(&n)
	return n, err
}

// CountBelowIdeal returns the number of rows under their ideal quantity.
func (r *Repository) CountBelowIdeal(ctx context.Context, schoolID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM stock_records WHERE school_id = $1 AND quantity_on_hand < ideal_quantity`,
		schoolID).Scan(&n)
	return n, err
}

// CountNearExpiry returns the number of rows expiring inside horizonDays.
func (r *Repository) CountNearExpiry(ctx context.Context, schoolID uuid.UUID, horizonDays int) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM stock_records
		 WHERE school_id = $1 AND expiry_date IS NOT NULL
		 AND expiry_date >= CURRENT_DATE AND expiry_date <= CURRENT_DATE + $2::int`,
		schoolID, horizonDays).Scan(&n)
	return n, err
}

// Get returns a single stock row by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (StockRecord, error) {
	rec, err := scanRecord(r.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM stock_records WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return StockRecord{}, ErrRecordNotFound
	}
	return rec, err
}

// UpdateRecord applies a field patch to a stock row.
func (r *Repository) UpdateRecord(ctx context.Context, id uuid.UUID, patch RecordPatch) error {
	sets := []string{"updated_at = NOW()"}
	args := []any{id}
	arg := 1

	add := func(col string, val any) {
		arg++
		sets = append(sets, fmt.Sprintf("%s = $%d", col, arg))
		args = append(args, val)
	}
	if patch.QuantityOnHand != nil {
		add("quantity_on_hand", *patch.QuantityOnHand)
	}
	if patch.IdealQuantity != nil {
		add("ideal_quantity", *patch.IdealQuantity)
	}
	if patch.ClearExpiry {
		sets = append(sets, "expiry_date = NULL")
	} else if patch.ExpiryDate != nil {
		add("expiry_date", *patch.ExpiryDate)
	}
	if patch.Note != nil {
		add("note", *patch.Note)
	}

	query := "UPDATE stock_records SET "
	for i, s := range sets {
		if i > 0 {
			query += ", "
		}
		query += s
	}
	query += " WHERE id = $1"

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// Delete removes a stock row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM stock_records WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// DeleteBySchoolAndPeriod bulk-removes a school's rows for one period and
// returns how many were deleted.
func (r *Repository) DeleteBySchoolAndPeriod(ctx context.Context, schoolID, periodID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM stock_records WHERE school_id = $1 AND period_id = $2`, schoolID, periodID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
