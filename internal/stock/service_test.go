package stock

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/saitoboy/merenda-back-sub000/internal/shared"
)

type memoryRepo struct {
	records  map[uuid.UUID]StockRecord
	schools  map[uuid.UUID]bool
	items    map[uuid.UUID]bool
	segments map[uuid.UUID]bool
	periods  map[uuid.UUID]bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		records:  make(map[uuid.UUID]StockRecord),
		schools:  make(map[uuid.UUID]bool),
		items:    make(map[uuid.UUID]bool),
		segments: make(map[uuid.UUID]bool),
		periods:  make(map[uuid.UUID]bool),
	}
}

// memoryTx mutates a snapshot so a failed batch leaves the repo untouched,
// mirroring the rollback the real repository gets from PostgreSQL.
type memoryTx struct {
	repo    *memoryRepo
	records map[uuid.UUID]StockRecord
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapshot := make(map[uuid.UUID]StockRecord, len(r.records))
	for id, rec := range r.records {
		snapshot[id] = rec
	}
	tx := &memoryTx{repo: r, records: snapshot}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	r.records = snapshot
	return nil
}

func (tx *memoryTx) EnsureRefs(ctx context.Context, key RecordKey) error {
	if !tx.repo.schools[key.SchoolID] {
		return shared.NotFoundError("school")
	}
	if !tx.repo.items[key.ItemID] {
		return shared.NotFoundError("item")
	}
	if !tx.repo.segments[key.SegmentID] {
		return shared.NotFoundError("segment")
	}
	if !tx.repo.periods[key.PeriodID] {
		return shared.NotFoundError("period")
	}
	return nil
}

func (tx *memoryTx) FindByKey(ctx context.Context, key RecordKey) (StockRecord, error) {
	for _, rec := range tx.records {
		if rec.Key() == key {
			return rec, nil
		}
	}
	return StockRecord{}, ErrRecordNotFound
}

func (tx *memoryTx) InsertRecord(ctx context.Context, rec StockRecord) (uuid.UUID, error) {
	rec.ID = uuid.New()
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	tx.records[rec.ID] = rec
	return rec.ID, nil
}

func (tx *memoryTx) UpdateIdealQuantity(ctx context.Context, id uuid.UUID, ideal int) error {
	rec, ok := tx.records[id]
	if !ok {
		return ErrRecordNotFound
	}
	rec.IdealQuantity = ideal
	rec.UpdatedAt = time.Now()
	tx.records[id] = rec
	return nil
}

func (r *memoryRepo) ListBySchool(ctx context.Context, schoolID uuid.UUID) ([]RecordView, error) {
	var views []RecordView
	for _, rec := range r.records {
		if rec.SchoolID == schoolID {
			views = append(views, RecordView{StockRecord: rec})
		}
	}
	return views, nil
}

func (r *memoryRepo) FindBelowIdeal(ctx context.Context, schoolID uuid.UUID) ([]RecordView, error) {
	var views []RecordView
	for _, rec := range r.records {
		if rec.SchoolID == schoolID && rec.QuantityOnHand < rec.IdealQuantity {
			views = append(views, RecordView{StockRecord: rec})
		}
	}
	return views, nil
}

func (r *memoryRepo) FindNearExpiry(ctx context.Context, schoolID uuid.UUID, horizonDays int) ([]RecordView, error) {
	today := time.Now().Truncate(24 * time.Hour)
	limit := today.AddDate(0, 0, horizonDays)
	var views []RecordView
	for _, rec := range r.records {
		if rec.SchoolID != schoolID || rec.ExpiryDate == nil {
			continue
		}
		if rec.ExpiryDate.Before(today) || rec.ExpiryDate.After(limit) {
			continue
		}
		views = append(views, RecordView{StockRecord: rec})
	}
	sort.Slice(views, func(i, j int) bool {
		return views[i].ExpiryDate.Before(*views[j].ExpiryDate)
	})
	return views, nil
}

func (r *memoryRepo) CountAll(ctx context.Context, schoolID uuid.UUID) (int, error) {
	n := 0
	for _, rec := range r.records {
		if rec.SchoolID == schoolID {
			n++
		}
	}
	return n, nil
}

func (r *memoryRepo) CountBelowIdeal(ctx context.Context, schoolID uuid.UUID) (int, error) {
	n := 0
	for _, rec := range r.records {
		if rec.SchoolID == schoolID && rec.QuantityOnHand < rec.IdealQuantity {
			n++
		}
	}
	return n, nil
}

func (r *memoryRepo) CountNearExpiry(ctx context.Context, schoolID uuid.UUID, horizonDays int) (int, error) {
	today := time.Now().Truncate(24 * time.Hour)
	limit := today.AddDate(0, 0, horizonDays)
	n := 0
	for _, rec := range r.records {
		if rec.SchoolID != schoolID || rec.ExpiryDate == nil {
			continue
		}
		if !rec.ExpiryDate.Before(today) && !rec.ExpiryDate.After(limit) {
			n++
		}
	}
	return n, nil
}

func (r *memoryRepo) Get(ctx context.Context, id uuid.UUID) (StockRecord, error) {
	rec, ok := r.records[id]
	if !ok {
		return StockRecord{}, ErrRecordNotFound
	}
	return rec, nil
}

func (r *memoryRepo) UpdateRecord(ctx context.Context, id uuid.UUID, patch RecordPatch) error {
	rec, ok := r.records[id]
	if !ok {
		return ErrRecordNotFound
	}
	if patch.QuantityOnHand != nil {
		rec.QuantityOnHand = *patch.QuantityOnHand
	}
	if patch.IdealQuantity != nil {
		rec.IdealQuantity = *patch.IdealQuantity
	}
	if patch.ClearExpiry {
		rec.ExpiryDate = nil
	} else if patch.ExpiryDate != nil {
		rec.ExpiryDate = patch.ExpiryDate
	}
	if patch.Note != nil {
		rec.Note = *patch.Note
	}
	r.records[id] = rec
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.records[id]; !ok {
		return ErrRecordNotFound
	}
	delete(r.records, id)
	return nil
}

func (r *memoryRepo) DeleteBySchoolAndPeriod(ctx context.Context, schoolID, periodID uuid.UUID) (int64, error) {
	var n int64
	for id, rec := range r.records {
		if rec.SchoolID == schoolID && rec.PeriodID == periodID {
			delete(r.records, id)
			n++
		}
	}
	return n, nil
}

func (r *memoryRepo) addRefs(key RecordKey) {
	r.schools[key.SchoolID] = true
	r.items[key.ItemID] = true
	r.segments[key.SegmentID] = true
	r.periods[key.PeriodID] = true
}

func newKey() RecordKey {
	return RecordKey{SchoolID: uuid.New(), ItemID: uuid.New(), SegmentID: uuid.New(), PeriodID: uuid.New()}
}

func target(key RecordKey, ideal int) IdealTarget {
	return IdealTarget{SchoolID: key.SchoolID, ItemID: key.ItemID, SegmentID: key.SegmentID, PeriodID: key.PeriodID, IdealQuantity: ideal}
}

func TestReconcileCreatesThenUpdates(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	key := newKey()
	repo.addRefs(key)

	results, err := svc.ReconcileIdealQuantities(ctx, []IdealTarget{target(key, 10)})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, ActionCreated, results[0].Action)

	rec, err := repo.Get(ctx, results[0].RecordID)
	require.NoError(t, err)
	require.Equal(t, 0, rec.QuantityOnHand)
	require.Equal(t, 10, rec.IdealQuantity)

	results, err = svc.ReconcileIdealQuantities(ctx, []IdealTarget{target(key, 25)})
	require.NoError(t, err)
	require.Equal(t, ActionUpdated, results[0].Action)
	require.Equal(t, rec.ID, results[0].RecordID)

	rec, err = repo.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, 0, rec.QuantityOnHand)
	require.Equal(t, 25, rec.IdealQuantity)
	require.Len(t, repo.records, 1)
}

func TestReconcileRollsBackWholeBatch(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	good := newKey()
	repo.addRefs(good)
	// Same school, unknown period.
	bad := RecordKey{SchoolID: good.SchoolID, ItemID: good.ItemID, SegmentID: good.SegmentID, PeriodID: uuid.New()}

	_, err := svc.ReconcileIdealQuantities(ctx, []IdealTarget{target(good, 5), target(bad, 8)})
	require.Error(t, err)
	require.True(t, shared.IsKind(err, shared.KindNotFound))
	require.Empty(t, repo.records)
}

func TestReconcileDuplicateKeysInBatch(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	key := newKey()
	repo.addRefs(key)

	results, err := svc.ReconcileIdealQuantities(ctx, []IdealTarget{target(key, 10), target(key, 30)})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, ActionCreated, results[0].Action)
	require.Equal(t, ActionUpdated, results[1].Action)
	require.Equal(t, results[0].RecordID, results[1].RecordID)

	require.Len(t, repo.records, 1)
	rec, err := repo.Get(ctx, results[0].RecordID)
	require.NoError(t, err)
	require.Equal(t, 30, rec.IdealQuantity)
}

func TestReconcileResultOrderMatchesInput(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	first := newKey()
	second := newKey()
	repo.addRefs(first)
	repo.addRefs(second)

	_, err := svc.ReconcileIdealQuantities(ctx, []IdealTarget{target(first, 1)})
	require.NoError(t, err)

	results, err := svc.ReconcileIdealQuantities(ctx, []IdealTarget{target(second, 2), target(first, 3)})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, ActionCreated, results[0].Action)
	require.Equal(t, ActionUpdated, results[1].Action)
}

func TestReconcileRejectsBadInput(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.ReconcileIdealQuantities(ctx, nil)
	require.True(t, shared.IsKind(err, shared.KindValidation))

	key := newKey()
	repo.addRefs(key)
	_, err = svc.ReconcileIdealQuantities(ctx, []IdealTarget{target(key, -1)})
	require.True(t, shared.IsKind(err, shared.KindValidation))
	require.Empty(t, repo.records)
}

func TestFindNearExpiryOrdersSoonestFirst(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	schoolID := uuid.New()
	in1 := time.Now().AddDate(0, 0, 1)
	in3 := time.Now().AddDate(0, 0, 3)
	in5 := time.Now().AddDate(0, 0, 5)
	in10 := time.Now().AddDate(0, 0, 10)
	yesterday := time.Now().AddDate(0, 0, -1)

	// Seeded out of order so the result order comes from the sort, not
	// from insertion.
	repo.records[uuid.New()] = StockRecord{ID: uuid.New(), SchoolID: schoolID, ExpiryDate: &in5}
	repo.records[uuid.New()] = StockRecord{ID: uuid.New(), SchoolID: schoolID, ExpiryDate: &in1}
	repo.records[uuid.New()] = StockRecord{ID: uuid.New(), SchoolID: schoolID, ExpiryDate: &in3}
	repo.records[uuid.New()] = StockRecord{ID: uuid.New(), SchoolID: schoolID, ExpiryDate: &in10}
	repo.records[uuid.New()] = StockRecord{ID: uuid.New(), SchoolID: schoolID, ExpiryDate: &yesterday}
	repo.records[uuid.New()] = StockRecord{ID: uuid.New(), SchoolID: schoolID}
	repo.records[uuid.New()] = StockRecord{ID: uuid.New(), SchoolID: uuid.New(), ExpiryDate: &in1}

	views, err := svc.FindNearExpiry(ctx, schoolID, 7)
	require.NoError(t, err)
	require.Len(t, views, 3)
	require.Equal(t, in1, *views[0].ExpiryDate)
	require.Equal(t, in3, *views[1].ExpiryDate)
	require.Equal(t, in5, *views[2].ExpiryDate)

	_, err = svc.FindNearExpiry(ctx, schoolID, 0)
	require.True(t, shared.IsKind(err, shared.KindValidation))
	_, err = svc.FindNearExpiry(ctx, uuid.Nil, 7)
	require.True(t, shared.IsKind(err, shared.KindValidation))
}

func TestMetricsCounts(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	schoolID := uuid.New()
	soon := time.Now().AddDate(0, 0, 3)
	later := time.Now().AddDate(0, 0, 30)
	repo.records[uuid.New()] = StockRecord{ID: uuid.New(), SchoolID: schoolID, QuantityOnHand: 2, IdealQuantity: 10, ExpiryDate: &soon}
	repo.records[uuid.New()] = StockRecord{ID: uuid.New(), SchoolID: schoolID, QuantityOnHand: 10, IdealQuantity: 10, ExpiryDate: &later}
	repo.records[uuid.New()] = StockRecord{ID: uuid.New(), SchoolID: schoolID, QuantityOnHand: 0, IdealQuantity: 5}
	repo.records[uuid.New()] = StockRecord{ID: uuid.New(), SchoolID: uuid.New(), QuantityOnHand: 0, IdealQuantity: 5}

	m, err := svc.Metrics(ctx, schoolID)
	require.NoError(t, err)
	require.Equal(t, 3, m.TotalItems)
	require.Equal(t, 2, m.BelowIdealCount)
	// Only the record expiring in three days falls inside the fixed window.
	require.Equal(t, 1, m.NearExpiryCount)
}

func TestUpdateRecordPatchValidation(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.UpdateRecord(ctx, uuid.New(), RecordPatch{})
	require.True(t, shared.IsKind(err, shared.KindValidation))

	neg := -4
	_, err = svc.UpdateRecord(ctx, uuid.New(), RecordPatch{QuantityOnHand: &neg})
	require.True(t, shared.IsKind(err, shared.KindValidation))

	qty := 7
	id := uuid.New()
	repo.records[id] = StockRecord{ID: id, SchoolID: uuid.New(), QuantityOnHand: 1, IdealQuantity: 3}
	rec, err := svc.UpdateRecord(ctx, id, RecordPatch{QuantityOnHand: &qty})
	require.NoError(t, err)
	require.Equal(t, 7, rec.QuantityOnHand)
	require.Equal(t, 3, rec.IdealQuantity)
}

func TestDeleteMissingRecord(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil)

	err := svc.Delete(context.Background(), uuid.New())
	require.True(t, shared.IsKind(err, shared.KindNotFound))
}
