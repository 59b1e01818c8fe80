package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saitoboy/merenda-back-sub000/internal/shared"
)

func respond(t *testing.T, err error) (int, ProblemDetail) {
	t.Helper()
	rr := httptest.NewRecorder()
	RespondError(rr, err)

	var pd ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &pd))
	return rr.Code, pd
}

func TestRespondErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{shared.NotFoundError("school"), http.StatusNotFound},
		{shared.ConstraintViolationError("item", map[string]int{"stock_records": 2}), http.StatusBadRequest},
		{shared.ForbiddenError([]string{"admin"}, "escola"), http.StatusForbidden},
		{shared.InvalidStateError("closed", "draft"), http.StatusBadRequest},
		{shared.ValidationError("bad input"), http.StatusBadRequest},
		{shared.RateLimitedError("slow down"), http.StatusTooManyRequests},
		{shared.AttemptsExhaustedError("burned"), http.StatusBadRequest},
	}
	for _, tc := range cases {
		status, pd := respond(t, tc.err)
		require.Equal(t, tc.status, status)
		require.Equal(t, tc.status, pd.Status)
	}
}

func TestRespondErrorCarriesStructuredDetail(t *testing.T) {
	status, pd := respond(t, shared.ConstraintViolationError("school", map[string]int{"stock_records": 7}))
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "school", pd.Extra["entity"])

	deps, ok := pd.Extra["dependents"].(map[string]any)
	require.True(t, ok)
	require.EqualValues(t, 7, deps["stock_records"])
}

func TestRespondErrorWrappedDomainError(t *testing.T) {
	status, _ := respond(t, fmt.Errorf("stock: delete: %w", shared.NotFoundError("record")))
	require.Equal(t, http.StatusNotFound, status)
}

func TestRespondErrorOpaqueInternal(t *testing.T) {
	status, pd := respond(t, fmt.Errorf("pgx: connection refused"))
	require.Equal(t, http.StatusInternalServerError, status)
	require.Empty(t, pd.Detail, "internal detail must not leak")
}

func TestRespondErrorUnauthorized(t *testing.T) {
	status, _ := respond(t, ErrUnauthorized)
	require.Equal(t, http.StatusUnauthorized, status)
}
