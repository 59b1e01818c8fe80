package httpx

import (
	"errors"
	"net/http"

	"github.com/saitoboy/merenda-back-sub000/internal/shared"
)

// ErrUnauthorized is raised by the session middleware before any domain
// logic runs, so it lives here rather than in the domain error set.
var ErrUnauthorized = errors.New("unauthorized")

// statusForKind is the only place domain error kinds meet HTTP status codes.
func statusForKind(kind shared.ErrorKind) (int, string) {
	switch kind {
	case shared.KindNotFound:
		return http.StatusNotFound, "Not Found"
	case shared.KindConstraintViolation:
		return http.StatusBadRequest, "Constraint Violation"
	case shared.KindForbidden:
		return http.StatusForbidden, "Forbidden"
	case shared.KindInvalidState:
		return http.StatusBadRequest, "Invalid State"
	case shared.KindValidation:
		return http.StatusBadRequest, "Validation Failed"
	case shared.KindRateLimited:
		return http.StatusTooManyRequests, "Rate Limited"
	case shared.KindAttemptsExhausted:
		return http.StatusBadRequest, "Attempts Exhausted"
	default:
		return http.StatusInternalServerError, "Internal Error"
	}
}

// RespondError translates an error from the service layer into an RFC7807
// response. Domain errors keep their structured detail; anything else becomes
// an opaque 500.
func RespondError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrUnauthorized) {
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
		return
	}

	var de *shared.DomainError
	if !errors.As(err, &de) {
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	status, title := statusForKind(de.Kind)
	extra := map[string]any{}
	if de.Entity != "" {
		extra["entity"] = de.Entity
	}
	if len(de.Dependents) > 0 {
		extra["dependents"] = de.Dependents
	}
	if len(de.RequiredRoles) > 0 {
		extra["required_roles"] = de.RequiredRoles
		extra["actual_role"] = de.ActualRole
	}
	if de.CurrentState != "" || de.RequiredState != "" {
		extra["current_state"] = de.CurrentState
		extra["required_state"] = de.RequiredState
	}
	if len(extra) == 0 {
		Problem(w, status, title, de.Message)
		return
	}
	ProblemExtra(w, status, title, de.Message, extra)
}
