package stock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/saitoboy/merenda-back-sub000/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListBySchool(ctx context.Context, schoolID uuid.UUID) ([]RecordView, error)
	FindBelowIdeal(ctx context.Context, schoolID uuid.UUID) ([]RecordView, error)
	FindNearExpiry(ctx context.Context, schoolID uuid.UUID, horizonDays int) ([]RecordView, error)
	CountAll(ctx context.Context, schoolID uuid.UUID) (int, error)
	CountBelowIdeal(ctx context.Context, schoolID uuid.UUID) (int, error)
	CountNearExpiry(ctx context.Context, schoolID uuid.UUID, horizonDays int) (int, error)
	Get(ctx context.Context, id uuid.UUID) (StockRecord, error)
	UpdateRecord(ctx context.Context, id uuid.UUID, patch RecordPatch) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteBySchoolAndPeriod(ctx context.Context, schoolID, periodID uuid.UUID) (int64, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates stock operations.
type Service struct {
	repo    RepositoryPort
	audit   AuditPort
	cache   *MetricsCache
	logger  *slog.Logger
	metrics singleflight.Group
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, cache *MetricsCache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, cache: cache, logger: logger}
}

// ReconcileIdealQuantities applies a batch of ideal-quantity targets inside
// one transaction. Each target either updates the ideal quantity of the
// existing row for its four-part key or creates a new row with quantity
// zero. Results keep input order. Any failure rolls back the whole batch.
//
// Two concurrent batches touching the same key may still race: no row lock
// or version token is taken. That matches the reference behaviour and is
// recorded as an open question in DESIGN.md.
func (s *Service) ReconcileIdealQuantities(ctx context.Context, targets []IdealTarget) ([]ReconciliationResult, error) {
	if len(targets) == 0 {
		return nil, shared.ValidationError("at least one target is required")
	}
	for i, t := range targets {
		if t.IdealQuantity < 0 {
			return nil, shared.ValidationError(fmt.Sprintf("target %d: ideal quantity must not be negative", i))
		}
		if t.SchoolID == uuid.Nil || t.ItemID == uuid.Nil || t.SegmentID == uuid.Nil || t.PeriodID == uuid.Nil {
			return nil, shared.ValidationError(fmt.Sprintf("target %d: school, item, segment and period are required", i))
		}
	}

	results := make([]ReconciliationResult, 0, len(targets))
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, t := range targets {
			if err := tx.EnsureRefs(ctx, t.Key()); err != nil {
				return err
			}

			rec, err := tx.FindByKey(ctx, t.Key())
			switch {
			case err == nil:
				if err := tx.UpdateIdealQuantity(ctx, rec.ID, t.IdealQuantity); err != nil {
					return err
				}
				results = append(results, ReconciliationResult{RecordID: rec.ID, Action: ActionUpdated})
			case errors.Is(err, ErrRecordNotFound):
				id, err := tx.InsertRecord(ctx, StockRecord{
					SchoolID:       t.SchoolID,
					ItemID:         t.ItemID,
					SegmentID:      t.SegmentID,
					PeriodID:       t.PeriodID,
					QuantityOnHand: 0,
					IdealQuantity:  t.IdealQuantity,
				})
				if err != nil {
					return err
				}
				results = append(results, ReconciliationResult{RecordID: id, Action: ActionCreated})
			default:
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Bump(ctx)
	s.recordAudit(ctx, "stock.reconcile", targets[0].SchoolID.String(), map[string]any{"targets": len(targets)})
	return results, nil
}

// ListBySchool returns every stock row of the school.
func (s *Service) ListBySchool(ctx context.Context, schoolID uuid.UUID) ([]RecordView, error) {
	if schoolID == uuid.Nil {
		return nil, shared.ValidationError("school id is required")
	}
	return s.repo.ListBySchool(ctx, schoolID)
}

// FindBelowIdeal returns the school's rows under their ideal quantity.
func (s *Service) FindBelowIdeal(ctx context.Context, schoolID uuid.UUID) ([]RecordView, error) {
	if schoolID == uuid.Nil {
		return nil, shared.ValidationError("school id is required")
	}
	return s.repo.FindBelowIdeal(ctx, schoolID)
}

// FindNearExpiry returns the school's rows expiring within horizonDays,
// soonest-expiring first.
func (s *Service) FindNearExpiry(ctx context.Context, schoolID uuid.UUID, horizonDays int) ([]RecordView, error) {
	if schoolID == uuid.Nil {
		return nil, shared.ValidationError("school id is required")
	}
	if horizonDays < 1 || horizonDays > 365 {
		return nil, shared.ValidationError("horizon must be between 1 and 365 days")
	}
	return s.repo.FindNearExpiry(ctx, schoolID, horizonDays)
}

// Metrics computes the school's stock summary. Results are cached and
// concurrent recomputation for the same school is collapsed. The near-expiry
// count always uses the fixed seven-day window.
func (s *Service) Metrics(ctx context.Context, schoolID uuid.UUID) (Metrics, error) {
	if schoolID == uuid.Nil {
		return Metrics{}, shared.ValidationError("school id is required")
	}
	if m, ok := s.cache.Get(ctx, schoolID); ok {
		return m, nil
	}

	val, err, _ := s.metrics.Do(schoolID.String(), func() (any, error) {
		var m Metrics
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			m.TotalItems, err = s.repo.CountAll(gctx, schoolID)
			return
		})
		g.Go(func() (err error) {
			m.BelowIdealCount, err = s.repo.CountBelowIdeal(gctx, schoolID)
			return
		})
		g.Go(func() (err error) {
			m.NearExpiryCount, err = s.repo.CountNearExpiry(gctx, schoolID, metricsExpiryHorizonDays)
			return
		})
		if err := g.Wait(); err != nil {
			return Metrics{}, err
		}
		s.cache.Set(ctx, schoolID, m)
		return m, nil
	})
	if err != nil {
		return Metrics{}, err
	}
	return val.(Metrics), nil
}

// UpdateRecord applies a validated field patch to a stock row.
func (s *Service) UpdateRecord(ctx context.Context, id uuid.UUID, patch RecordPatch) (StockRecord, error) {
	if patch.Empty() {
		return StockRecord{}, shared.ValidationError("patch must change at least one field")
	}
	if patch.QuantityOnHand != nil && *patch.QuantityOnHand < 0 {
		return StockRecord{}, shared.ValidationError("quantity on hand must not be negative")
	}
	if patch.IdealQuantity != nil && *patch.IdealQuantity < 0 {
		return StockRecord{}, shared.ValidationError("ideal quantity must not be negative")
	}
	if patch.ClearExpiry && patch.ExpiryDate != nil {
		return StockRecord{}, shared.ValidationError("cannot set and clear the expiry date at once")
	}

	if err := s.repo.UpdateRecord(ctx, id, patch); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return StockRecord{}, shared.NotFoundError("stock record")
		}
		return StockRecord{}, err
	}

	s.cache.Bump(ctx)
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return StockRecord{}, err
	}
	s.recordAudit(ctx, "stock.update", id.String(), nil)
	return rec, nil
}

// Delete removes a single stock row.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return shared.NotFoundError("stock record")
		}
		return err
	}
	s.cache.Bump(ctx)
	s.recordAudit(ctx, "stock.delete", id.String(), nil)
	return nil
}

// DeleteBySchoolAndPeriod removes all of a school's rows for one period.
func (s *Service) DeleteBySchoolAndPeriod(ctx context.Context, schoolID, periodID uuid.UUID) (int64, error) {
	if schoolID == uuid.Nil || periodID == uuid.Nil {
		return 0, shared.ValidationError("school id and period id are required")
	}
	n, err := s.repo.DeleteBySchoolAndPeriod(ctx, schoolID, periodID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.cache.Bump(ctx)
	}
	s.recordAudit(ctx, "stock.delete_by_period", schoolID.String(), map[string]any{"period_id": periodID.String(), "deleted": n})
	return n, nil
}

func (s *Service) recordAudit(ctx context.Context, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	log := shared.AuditLog{Action: action, Entity: "stock_record", EntityID: entityID, Meta: meta}
	if actor := shared.ActorFromContext(ctx); actor != nil {
		log.ActorID = actor.UserID
	}
	if err := s.audit.Record(ctx, log); err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
