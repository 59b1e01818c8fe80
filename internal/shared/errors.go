package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ErrorKind classifies domain failures. Transport status mapping lives in
// platform/httpx, never here.
type ErrorKind string

const (
	// KindNotFound indicates a referenced entity is absent.
	KindNotFound ErrorKind = "not_found"
	// KindConstraintViolation indicates the operation is blocked by existing dependents.
	KindConstraintViolation ErrorKind = "constraint_violation"
	// KindForbidden indicates the caller's role is insufficient.
	KindForbidden ErrorKind = "forbidden"
	// KindInvalidState indicates the entity state is incompatible with the transition.
	KindInvalidState ErrorKind = "invalid_state"
	// KindValidation indicates structurally invalid input, rejected before any mutation.
	KindValidation ErrorKind = "validation"
	// KindRateLimited indicates the caller exceeded an issuance quota.
	KindRateLimited ErrorKind = "rate_limited"
	// KindAttemptsExhausted indicates a one-time code was burned by too many attempts.
	KindAttemptsExhausted ErrorKind = "attempts_exhausted"
)

// DomainError carries a kind plus the structured detail the HTTP boundary
// needs to build a response. Only the detail group matching the kind is
// populated.
type DomainError struct {
	Kind    ErrorKind
	Message string

	// Entity names the missing or blocked resource (NotFound, ConstraintViolation).
	Entity string
	// Dependents maps dependent entity name to row count (ConstraintViolation).
	Dependents map[string]int
	// RequiredRoles and ActualRole describe the failed role check (Forbidden).
	RequiredRoles []string
	ActualRole    string
	// CurrentState and RequiredState label the rejected transition (InvalidState).
	CurrentState  string
	RequiredState string
}

func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

// NotFoundError builds a KindNotFound error for the named entity.
func NotFoundError(entity string) *DomainError {
	return &DomainError{Kind: KindNotFound, Entity: entity, Message: fmt.Sprintf("%s not found", entity)}
}

// NotFoundErrorMsg builds a KindNotFound error with an explicit message.
func NotFoundErrorMsg(entity, msg string) *DomainError {
	return &DomainError{Kind: KindNotFound, Entity: entity, Message: msg}
}

// ConstraintViolationError builds a KindConstraintViolation error carrying dependent counts.
func ConstraintViolationError(entity string, dependents map[string]int) *DomainError {
	return &DomainError{
		Kind:       KindConstraintViolation,
		Entity:     entity,
		Dependents: dependents,
		Message:    fmt.Sprintf("%s has dependent records", entity),
	}
}

// ForbiddenError builds a KindForbidden error with the failed role check.
func ForbiddenError(required []string, actual string) *DomainError {
	return &DomainError{
		Kind:          KindForbidden,
		RequiredRoles: required,
		ActualRole:    actual,
		Message:       "insufficient role",
	}
}

// InvalidStateError builds a KindInvalidState error labelling the rejected transition.
func InvalidStateError(current, required string) *DomainError {
	return &DomainError{
		Kind:          KindInvalidState,
		CurrentState:  current,
		RequiredState: required,
		Message:       fmt.Sprintf("state %s does not allow this operation (requires %s)", current, required),
	}
}

// ValidationError builds a KindValidation error.
func ValidationError(msg string) *DomainError {
	return &DomainError{Kind: KindValidation, Message: msg}
}

// RateLimitedError builds a KindRateLimited error.
func RateLimitedError(msg string) *DomainError {
	return &DomainError{Kind: KindRateLimited, Message: msg}
}

// AttemptsExhaustedError builds a KindAttemptsExhausted error.
func AttemptsExhaustedError(msg string) *DomainError {
	return &DomainError{Kind: KindAttemptsExhausted, Message: msg}
}

// KindOf returns the kind of err when it is (or wraps) a DomainError.
func KindOf(err error) (ErrorKind, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
