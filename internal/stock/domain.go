package stock

import (
	"time"

	"github.com/google/uuid"
)

// RecordKey is the four-part composite key identifying a stock row. At most
// one StockRecord exists per key; the reconciliation path enforces this with
// lookup-before-insert inside its transaction.
type RecordKey struct {
	SchoolID  uuid.UUID
	ItemID    uuid.UUID
	SegmentID uuid.UUID
	PeriodID  uuid.UUID
}

// StockRecord models one school/item/segment/period stock row.
type StockRecord struct {
	ID             uuid.UUID  `json:"id"`
	SchoolID       uuid.UUID  `json:"school_id"`
	ItemID         uuid.UUID  `json:"item_id"`
	SegmentID      uuid.UUID  `json:"segment_id"`
	PeriodID       uuid.UUID  `json:"period_id"`
	QuantityOnHand int        `json:"quantity_on_hand"`
	IdealQuantity  int        `json:"ideal_quantity"`
	ExpiryDate     *time.Time `json:"expiry_date,omitempty"`
	Note           string     `json:"note,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Key returns the composite key of the record.
func (r StockRecord) Key() RecordKey {
	return RecordKey{SchoolID: r.SchoolID, ItemID: r.ItemID, SegmentID: r.SegmentID, PeriodID: r.PeriodID}
}

// RecordView joins a stock row with the descriptive fields consumers render.
type RecordView struct {
	StockRecord
	ItemName    string `json:"item_name"`
	ItemUnit    string `json:"item_unit"`
	SegmentName string `json:"segment_name"`
	PeriodName  string `json:"period_name"`
}

// IdealTarget is one entry of a reconciliation batch.
type IdealTarget struct {
	SchoolID      uuid.UUID `json:"school_id"`
	ItemID        uuid.UUID `json:"item_id"`
	SegmentID     uuid.UUID `json:"segment_id"`
	PeriodID      uuid.UUID `json:"period_id"`
	IdealQuantity int       `json:"ideal_quantity"`
}

// Key returns the composite key of the target.
func (t IdealTarget) Key() RecordKey {
	return RecordKey{SchoolID: t.SchoolID, ItemID: t.ItemID, SegmentID: t.SegmentID, PeriodID: t.PeriodID}
}

// ReconcileAction says what the engine did for one target.
type ReconcileAction string

const (
	// ActionCreated means a new stock row was inserted with quantity zero.
	ActionCreated ReconcileAction = "created"
	// ActionUpdated means only the ideal quantity of an existing row changed.
	ActionUpdated ReconcileAction = "updated"
)

// ReconciliationResult reports the outcome for one target, in input order.
type ReconciliationResult struct {
	RecordID uuid.UUID       `json:"record_id"`
	Action   ReconcileAction `json:"action"`
}

// Metrics summarises a school's stock position. NearExpiryCount always uses
// the fixed seven-day horizon regardless of what horizon query endpoints use.
type Metrics struct {
	TotalItems      int `json:"total_items"`
	BelowIdealCount int `json:"below_ideal_count"`
	NearExpiryCount int `json:"near_expiry_count"`
}

// RecordPatch updates individual fields of a stock row. Nil pointers leave
// the stored value untouched; ClearExpiry removes the expiry date.
type RecordPatch struct {
	QuantityOnHand *int
	IdealQuantity  *int
	ExpiryDate     *time.Time
	ClearExpiry    bool
	Note           *string
}

// Empty reports whether the patch changes nothing.
func (p RecordPatch) Empty() bool {
	return p.QuantityOnHand == nil && p.IdealQuantity == nil && p.ExpiryDate == nil && !p.ClearExpiry && p.Note == nil
}

// metricsExpiryHorizonDays is the fixed window for the metrics near-expiry
// count, independent of the caller-supplied horizon on the query endpoint.
const metricsExpiryHorizonDays = 7
