package items

import (
	"time"

	"github.com/google/uuid"
)

// Item represents a food item handled by the program
type Item struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Unit        string    `json:"unit"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
