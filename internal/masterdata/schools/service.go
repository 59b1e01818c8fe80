package schools

import (
	"context"

	"github.com/google/uuid"

	mdshared "github.com/saitoboy/merenda-back-sub000/internal/masterdata/shared"
	"github.com/saitoboy/merenda-back-sub000/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters mdshared.ListFilters) ([]School, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (School, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, school School) (School, error) {
	if err := s.validate(school); err != nil {
		return School{}, err
	}
	return s.repo.Create(ctx, school)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, school School) error {
	if err := s.validate(school); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, school)
}

// Delete refuses to remove a school that still owns stock records.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := s.repo.CountStockRecords(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return shared.ConstraintViolationError("school", map[string]int{"stock_records": n})
	}
	return s.repo.Delete(ctx, id)
}
