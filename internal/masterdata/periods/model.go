package periods

import (
	"time"

	"github.com/google/uuid"
)

// Period statuses. A period starts as a draft, at most one period is
// active at a time, and a closed period never reopens.
const (
	StatusDraft  = "draft"
	StatusActive = "active"
	StatusClosed = "closed"
)

// Period represents a meal-planning period (bimester, semester).
type Period struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
