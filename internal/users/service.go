package users

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/saitoboy/merenda-back-sub000/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	List(ctx context.Context) ([]User, error)
	Get(ctx context.Context, id uuid.UUID) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	Create(ctx context.Context, u User) (User, error)
}

// Service handles user account business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// Get returns a single user.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (User, error) {
	return s.repo.Get(ctx, id)
}

// CreateInput carries the fields for a new account.
type CreateInput struct {
	Name     string
	Email    string
	Role     string
	Password string
}

// Create registers a new account with a bcrypt-hashed password.
func (s *Service) Create(ctx context.Context, input CreateInput) (User, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if name == "" {
		return User{}, shared.ValidationError("name is required")
	}
	if email == "" {
		return User{}, shared.ValidationError("email is required")
	}
	if !ValidRole(input.Role) {
		return User{}, shared.ValidationError("unknown role " + input.Role)
	}
	if len(input.Password) < 6 {
		return User{}, shared.ValidationError("password must have at least 6 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	return s.repo.Create(ctx, User{
		Name:         name,
		Email:        email,
		Role:         input.Role,
		PasswordHash: string(hash),
		IsActive:     true,
	})
}
