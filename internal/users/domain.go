package users

import (
	"time"

	"github.com/google/uuid"
)

// Role values mirror the profiles known to the school-meal network.
const (
	RoleAdmin         = "admin"
	RoleNutricionista = "nutricionista"
	RoleEscola        = "escola"
	RoleFornecedor    = "fornecedor"
)

// User represents an account that can sign in to the system.
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ValidRole reports whether role is one of the known profiles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleNutricionista, RoleEscola, RoleFornecedor:
		return true
	}
	return false
}
