package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "licensegate/internal/errors"
)

type tokenBody struct {
	Token string `json:"token" validate:"required,max=64"`
}

func newValidation() *ValidationMiddleware {
	logger, _ := testLogger()
	return NewValidationMiddleware(logger, apierrors.NewErrorHandler(logger, false))
}

func TestDecodeAndValidate(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantOK     bool
		wantStatus int
		wantInBody string
	}{
		{name: "valid", body: `{"token":"abc"}`, wantOK: true},
		{name: "empty body", body: ``, wantStatus: http.StatusBadRequest, wantInBody: "request body is empty"},
		{name: "malformed json", body: `{"token":`, wantStatus: http.StatusBadRequest},
		{name: "unknown field", body: `{"token":"abc","extra":1}`, wantStatus: http.StatusBadRequest, wantInBody: "extra"},
		{name: "missing token", body: `{}`, wantStatus: http.StatusBadRequest, wantInBody: "token is required"},
		{name: "too long", body: `{"token":"` + strings.Repeat("a", 65) + `"}`, wantStatus: http.StatusBadRequest, wantInBody: "token must be at most 64"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newValidation()
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/api/license/authorize", strings.NewReader(tt.body))

			var got tokenBody
			ok := m.DecodeAndValidate(w, r, &got)

			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, "abc", got.Token)
				return
			}
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantInBody != "" {
				assert.Contains(t, w.Body.String(), tt.wantInBody)
			}
		})
	}
}

func TestDecodeAndValidate_BodyTooLarge(t *testing.T) {
	m := newValidation()
	m.maxBodySize = 16

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"token":"`+strings.Repeat("a", 100)+`"}`))

	var got tokenBody
	assert.False(t, m.DecodeAndValidate(w, r, &got))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestValidateStruct_UsesJSONNames(t *testing.T) {
	err := newValidation().ValidateStruct(&tokenBody{})
	require.Error(t, err)

	apiErr, ok := err.(*apierrors.APIError)
	require.True(t, ok)
	details, ok := apiErr.Details.(apierrors.ValidationErrors)
	require.True(t, ok)
	require.Len(t, details.Errors, 1)
	assert.Equal(t, "token", details.Errors[0].Field)
}

func TestContentTypeValidator(t *testing.T) {
	logger, _ := testLogger()
	h := ContentTypeValidator(apierrors.NewErrorHandler(logger, false), "application/json")(okHandler())

	t.Run("json accepted", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}"))
		r.Header.Set("Content-Type", "application/json; charset=utf-8")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("form rejected", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("a=b"))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "UNSUPPORTED_MEDIA_TYPE", body["error_code"])
	})

	t.Run("get skipped", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
