package periods

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/saitoboy/merenda-back-sub000/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context) ([]Period, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Period, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, p Period) (Period, error) {
	if err := s.validate(p); err != nil {
		return Period{}, err
	}
	return s.repo.Create(ctx, p)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, p Period) error {
	if err := s.validate(p); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, p)
}

// Activate promotes a draft period to active. The previously active period,
// if any, is closed in the same transaction, so at most one period is active
// at any moment. A closed period cannot be reactivated.
func (s *Service) Activate(ctx context.Context, id uuid.UUID) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		target, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		switch target.Status {
		case StatusActive:
			return nil
		case StatusClosed:
			return shared.InvalidStateError(StatusClosed, StatusDraft)
		}

		current, found, err := tx.FindActive(ctx)
		if err != nil {
			return err
		}
		if found {
			if err := tx.SetStatus(ctx, current.ID, StatusClosed); err != nil {
				return err
			}
		}
		return tx.SetStatus(ctx, id, StatusActive)
	})
}

// Close ends the active period. Only an active period can be closed.
func (s *Service) Close(ctx context.Context, id uuid.UUID) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		target, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if target.Status != StatusActive {
			return shared.InvalidStateError(target.Status, StatusActive)
		}
		return tx.SetStatus(ctx, id, StatusClosed)
	})
}

// Delete refuses to remove a period still referenced by stock records.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := s.repo.CountStockRecords(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return shared.ConstraintViolationError("period", map[string]int{"stock_records": n})
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) validate(p Period) error {
	if strings.TrimSpace(p.Name) == "" {
		return shared.ValidationError("o nome do período é obrigatório")
	}
	if p.StartsAt.IsZero() || p.EndsAt.IsZero() {
		return shared.ValidationError("as datas de início e fim são obrigatórias")
	}
	if !p.EndsAt.After(p.StartsAt) {
		return shared.ValidationError("a data de fim deve ser posterior à de início")
	}
	return nil
}
