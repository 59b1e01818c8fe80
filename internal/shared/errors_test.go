package shared

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOfUnwrapsWrappedErrors(t *testing.T) {
	err := fmt.Errorf("stock: reconcile: %w", NotFoundError("period"))

	kind, ok := KindOf(err)
	require.True(t, ok)
	require.Equal(t, KindNotFound, kind)
	require.True(t, IsKind(err, KindNotFound))
	require.False(t, IsKind(err, KindValidation))
}

func TestKindOfPlainError(t *testing.T) {
	_, ok := KindOf(fmt.Errorf("boom"))
	require.False(t, ok)
}

func TestConstructorsPopulateDetailGroups(t *testing.T) {
	cv := ConstraintViolationError("school", map[string]int{"stock_records": 4})
	require.Equal(t, "school", cv.Entity)
	require.Equal(t, 4, cv.Dependents["stock_records"])

	fb := ForbiddenError([]string{"admin"}, "escola")
	require.Equal(t, []string{"admin"}, fb.RequiredRoles)
	require.Equal(t, "escola", fb.ActualRole)

	is := InvalidStateError("closed", "draft")
	require.Equal(t, "closed", is.CurrentState)
	require.Equal(t, "draft", is.RequiredState)
}

func TestErrorMessageFallsBackToKind(t *testing.T) {
	err := &DomainError{Kind: KindValidation}
	require.Equal(t, "validation", err.Error())
}
