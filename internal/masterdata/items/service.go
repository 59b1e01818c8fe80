package items

import (
	"context"
	"strings"

	"github.com/google/uuid"

	mdshared "github.com/saitoboy/merenda-back-sub000/internal/masterdata/shared"
	"github.com/saitoboy/merenda-back-sub000/internal/shared"
)

// validUnits are the measurement units accepted for a food item.
var validUnits = map[string]bool{
	"kg": true, "g": true, "l": true, "ml": true, "un": true, "pct": true, "cx": true,
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters mdshared.ListFilters) ([]Item, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Item, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, item Item) (Item, error) {
	if err := s.validate(item); err != nil {
		return Item{}, err
	}
	return s.repo.Create(ctx, item)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, item Item) error {
	if err := s.validate(item); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, item)
}

// Delete refuses to remove an item still referenced by stock records.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := s.repo.CountStockRecords(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return shared.ConstraintViolationError("item", map[string]int{"stock_records": n})
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) validate(item Item) error {
	if strings.TrimSpace(item.Name) == "" {
		return shared.ValidationError("o nome do alimento é obrigatório")
	}
	if !validUnits[strings.ToLower(item.Unit)] {
		return shared.ValidationError("unidade de medida inválida")
	}
	return nil
}
