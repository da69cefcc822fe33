package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_Error(t *testing.T) {
	assert.Equal(t, "Invalid request format", ErrInvalidRequest.Error())
	assert.Equal(t, "", (&APIError{StatusCode: http.StatusInternalServerError}).Error())
}

func TestAPIError_Render(t *testing.T) {
	tests := []struct {
		name       string
		apiError   *APIError
		wantStatus int
	}{
		{"bad request", ErrInvalidRequest, http.StatusBadRequest},
		{"not authorized", ErrNotAuthorized, http.StatusForbidden},
		{"session not found", ErrSessionNotFound, http.StatusNotFound},
		{"rate limited", ErrRateLimitExceeded, http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/test", nil)

			require.NoError(t, render.Render(w, r, tt.apiError))
			assert.Equal(t, tt.wantStatus, w.Code)

			var body APIError
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.apiError.ErrorCode, body.ErrorCode)
		})
	}
}

func TestHelperConstructors(t *testing.T) {
	t.Run("invalid request keeps cause", func(t *testing.T) {
		err := InvalidRequestWithError(stderrors.New("unexpected EOF"))
		assert.Equal(t, http.StatusBadRequest, err.StatusCode)
		assert.Equal(t, "unexpected EOF", err.Details)
	})

	t.Run("field validation", func(t *testing.T) {
		err := ErrValidation("token", "is required")
		assert.Equal(t, "VALIDATION_FAILED", err.ErrorCode)
		assert.Equal(t, ValidationError{Field: "token", Message: "is required"}, err.Details)
	})

	t.Run("multiple validation errors", func(t *testing.T) {
		err := NewValidationErrors([]ValidationError{{Field: "a", Message: "x"}, {Field: "b", Message: "y"}})
		details, ok := err.Details.(ValidationErrors)
		require.True(t, ok)
		assert.Len(t, details.Errors, 2)
	})
}
