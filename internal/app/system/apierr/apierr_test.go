package apierr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/arabeuna/aramove/internal/app/system/apierr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors_StatusAndCode(t *testing.T) {
	tests := []struct {
		name   string
		err    *apierr.Error
		status int
		code   string
	}{
		{"bad request", apierr.BadRequest("bad", nil), http.StatusBadRequest, apierr.CodeBadRequest},
		{"validation", apierr.Validation(map[string]string{"stars": "max"}), http.StatusBadRequest, apierr.CodeValidation},
		{"duplicate", apierr.Duplicate("email", nil), http.StatusBadRequest, apierr.CodeDuplicate},
		{"location", apierr.LocationUnavailable(), http.StatusBadRequest, apierr.CodeLocationUnavailable},
		{"unauthorized", apierr.Unauthorized(""), http.StatusUnauthorized, apierr.CodeUnauthorized},
		{"forbidden", apierr.Forbidden(""), http.StatusForbidden, apierr.CodeForbidden},
		{"not found", apierr.NotFound("ride"), http.StatusNotFound, apierr.CodeNotFound},
		{"conflict", apierr.Conflict("taken", nil), http.StatusConflict, apierr.CodeConflict},
		{"rate limited", apierr.TooManyRequests("slow down"), http.StatusTooManyRequests, apierr.CodeTooManyRequests},
		{"internal", apierr.Internal(errors.New("boom")), http.StatusInternalServerError, apierr.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.Status)
			assert.Equal(t, tt.code, tt.err.Code)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestDuplicate_CarriesField(t *testing.T) {
	e := apierr.Duplicate("plate", nil)
	assert.Equal(t, "plate", e.Details["field"])
}

func TestFrom_WrapsUnknownAsInternal(t *testing.T) {
	cause := errors.New("socket closed")
	e := apierr.From(cause)
	require.NotNil(t, e)
	assert.Equal(t, apierr.CodeInternal, e.Code)
	assert.ErrorIs(t, e, cause)
	assert.Equal(t, "internal server error", e.Message)
}

func TestFrom_FindsWrappedError(t *testing.T) {
	wrapped := fmt.Errorf("accept: %w", apierr.Conflict("ride already taken", nil))
	e := apierr.From(wrapped)
	assert.Equal(t, apierr.CodeConflict, e.Code)
	assert.True(t, apierr.Is(wrapped, apierr.CodeConflict))
	assert.False(t, apierr.Is(wrapped, apierr.CodeNotFound))
	assert.Nil(t, apierr.From(nil))
}

func TestWithDetail_DoesNotMutateOriginal(t *testing.T) {
	base := apierr.BadRequest("bad", nil)
	withField := base.WithDetail("field", "origin")
	assert.Nil(t, base.Details)
	assert.Equal(t, "origin", withField.Details["field"])
}
