package periods

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/saitoboy/merenda-back-sub000/internal/shared"
)

type memoryRepo struct {
	periods map[uuid.UUID]Period
	stock   map[uuid.UUID]int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{periods: map[uuid.UUID]Period{}, stock: map[uuid.UUID]int{}}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapshot := map[uuid.UUID]Period{}
	for k, v := range m.periods {
		snapshot[k] = v
	}
	scoped := &memoryRepo{periods: snapshot, stock: m.stock}
	if err := fn(ctx, scoped); err != nil {
		return err
	}
	m.periods = scoped.periods
	return nil
}

func (m *memoryRepo) List(context.Context) ([]Period, error) {
	var out []Period
	for _, p := range m.periods {
		out = append(out, p)
	}
	return out, nil
}

func (m *memoryRepo) Get(_ context.Context, id uuid.UUID) (Period, error) {
	p, ok := m.periods[id]
	if !ok {
		return Period{}, shared.NotFoundError("period")
	}
	return p, nil
}

func (m *memoryRepo) Create(_ context.Context, p Period) (Period, error) {
	p.ID = uuid.New()
	p.Status = StatusDraft
	m.periods[p.ID] = p
	return p, nil
}

func (m *memoryRepo) Update(_ context.Context, id uuid.UUID, p Period) error {
	cur, ok := m.periods[id]
	if !ok {
		return shared.NotFoundError("period")
	}
	cur.Name, cur.StartsAt, cur.EndsAt = p.Name, p.StartsAt, p.EndsAt
	m.periods[id] = cur
	return nil
}

func (m *memoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.periods[id]; !ok {
		return shared.NotFoundError("period")
	}
	delete(m.periods, id)
	return nil
}

func (m *memoryRepo) CountStockRecords(_ context.Context, id uuid.UUID) (int, error) {
	return m.stock[id], nil
}

func (m *memoryRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (Period, error) {
	return m.Get(ctx, id)
}

func (m *memoryRepo) FindActive(context.Context) (Period, bool, error) {
	for _, p := range m.periods {
		if p.Status == StatusActive {
			return p, true, nil
		}
	}
	return Period{}, false, nil
}

func (m *memoryRepo) SetStatus(_ context.Context, id uuid.UUID, status string) error {
	p, ok := m.periods[id]
	if !ok {
		return shared.NotFoundError("period")
	}
	p.Status = status
	m.periods[id] = p
	return nil
}

func draft(t *testing.T, svc *Service, name string) Period {
	t.Helper()
	p, err := svc.Create(context.Background(), Period{
		Name:     name,
		StartsAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return p
}

func TestActivateClosesPreviousActive(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	first := draft(t, svc, "1º bimestre")
	second := draft(t, svc, "2º bimestre")

	require.NoError(t, svc.Activate(context.Background(), first.ID))
	require.NoError(t, svc.Activate(context.Background(), second.ID))

	got, _ := repo.Get(context.Background(), first.ID)
	require.Equal(t, StatusClosed, got.Status)
	got, _ = repo.Get(context.Background(), second.ID)
	require.Equal(t, StatusActive, got.Status)
}

func TestActivateClosedPeriodRejected(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	p := draft(t, svc, "1º bimestre")

	require.NoError(t, svc.Activate(context.Background(), p.ID))
	require.NoError(t, svc.Close(context.Background(), p.ID))

	err := svc.Activate(context.Background(), p.ID)
	require.True(t, shared.IsKind(err, shared.KindInvalidState))
}

func TestActivateIsIdempotentForActivePeriod(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	p := draft(t, svc, "1º bimestre")

	require.NoError(t, svc.Activate(context.Background(), p.ID))
	require.NoError(t, svc.Activate(context.Background(), p.ID))

	got, _ := repo.Get(context.Background(), p.ID)
	require.Equal(t, StatusActive, got.Status)
}

func TestCloseRequiresActive(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	p := draft(t, svc, "1º bimestre")

	err := svc.Close(context.Background(), p.ID)
	require.True(t, shared.IsKind(err, shared.KindInvalidState))
}

func TestDeleteGuardedByStockRecords(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	p := draft(t, svc, "1º bimestre")
	repo.stock[p.ID] = 12

	err := svc.Delete(context.Background(), p.ID)
	require.True(t, shared.IsKind(err, shared.KindConstraintViolation))

	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	require.Equal(t, 12, de.Dependents["stock_records"])

	repo.stock[p.ID] = 0
	require.NoError(t, svc.Delete(context.Background(), p.ID))
}

func TestCreateValidatesDates(t *testing.T) {
	svc := NewService(newMemoryRepo())

	_, err := svc.Create(context.Background(), Period{Name: "x"})
	require.True(t, shared.IsKind(err, shared.KindValidation))

	_, err = svc.Create(context.Background(), Period{
		Name:     "invertido",
		StartsAt: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	require.True(t, shared.IsKind(err, shared.KindValidation))
}
