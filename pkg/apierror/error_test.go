package apierror

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToJSON(t *testing.T) {
	assert.JSONEq(t,
		`{"success":false,"error":{"code":"NOT_FOUND","message":"store not found"}}`,
		string(NotFound("store not found").ToJSON()))

	err := ValidationError("invalid request", FieldError{Field: "limit", Message: "limit must be at most 1000"})
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.JSONEq(t,
		`{"success":false,"error":{"code":"VALIDATION_ERROR","message":"invalid request","details":[{"field":"limit","message":"limit must be at most 1000"}]}}`,
		string(err.ToJSON()))
}

func TestDefaultMessages(t *testing.T) {
	assert.Equal(t, "Resource not found", NotFound("").Message)
	assert.Equal(t, http.StatusTooManyRequests, TooManyRequests("").StatusCode)
	assert.Equal(t, "An unexpected error occurred", InternalError("").Error())
}

func TestAs(t *testing.T) {
	wrapped := fmt.Errorf("lookup: %w", NotFound("gone"))
	apiErr, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, "NOT_FOUND", apiErr.Code)

	_, ok = As(fmt.Errorf("plain"))
	assert.False(t, ok)
}
