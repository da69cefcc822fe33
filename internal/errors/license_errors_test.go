package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"licensegate/internal/gate"
	"licensegate/internal/license"
)

func TestProblemDetails_MarshalJSON(t *testing.T) {
	problem := NewProblemDetails(http.StatusForbidden, TypeLicenseNotAuthorized, "License Not Authorized", "nope", "/api/trim").
		WithExtension("trace_id", "abc").
		WithExtension("status", 200)

	data, err := json.Marshal(problem)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, TypeLicenseNotAuthorized, out["type"])
	assert.Equal(t, "License Not Authorized", out["title"])
	assert.Equal(t, float64(http.StatusForbidden), out["status"], "extensions cannot shadow standard members")
	assert.Equal(t, "nope", out["detail"])
	assert.Equal(t, "/api/trim", out["instance"])
	assert.Equal(t, "abc", out["trace_id"])
}

func TestProblemDetails_OmitsEmptyOptionalMembers(t *testing.T) {
	data, err := json.Marshal(NewProblemDetails(http.StatusNotFound, TypeNotFound, "Not Found", "", ""))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "detail")
	assert.NotContains(t, string(data), "instance")
}

func TestProblemDetails_WithExtensionOnZeroValue(t *testing.T) {
	pd := &ProblemDetails{}
	assert.NotPanics(t, func() { pd.WithExtension("k", "v") })
	assert.Equal(t, "v", pd.Extensions["k"])
}

func TestNewNotAuthorizedProblem(t *testing.T) {
	problem := NewNotAuthorizedProblem("trim", "/api/trim", "trace-1")
	assert.Equal(t, http.StatusForbidden, problem.Status)
	assert.Equal(t, "trim", problem.Extensions["operation"])
	assert.Equal(t, "trace-1", problem.Extensions["trace_id"])
	assert.Contains(t, problem.Detail, `"trim"`)
}

func TestMapLicenseError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"gate locked", gate.ErrNotAuthorized, http.StatusForbidden, TypeLicenseNotAuthorized},
		{"wrapped gate locked", fmt.Errorf("trim: %w", gate.ErrNotAuthorized), http.StatusForbidden, TypeLicenseNotAuthorized},
		{"session missing", gate.ErrSessionNotFound, http.StatusNotFound, TypeSessionNotFound},
		{"invalid token", license.ErrInvalidToken, http.StatusUnauthorized, TypeLicenseInvalid},
		{"malformed token", &license.DecodeError{Kind: license.BadSchema}, http.StatusUnauthorized, TypeLicenseInvalid},
		{"bad block length", &license.DecryptError{Length: 15, Err: license.ErrInvalidBlockLength}, http.StatusUnauthorized, TypeLicenseInvalid},
		{"anything else", fmt.Errorf("boom"), http.StatusInternalServerError, TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problem := MapLicenseError(tt.err, "/api/x", "trace-9")
			assert.Equal(t, tt.wantStatus, problem.Status)
			assert.Equal(t, tt.wantType, problem.Type)
			assert.Equal(t, "trace-9", problem.Extensions["trace_id"])

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/api/x", nil)
			require.NoError(t, render.Render(w, r, problem))
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestMapLicenseError_MalformedMatchesInvalid(t *testing.T) {
	kinds := []license.DecodeErrorKind{license.BadEncoding, license.BadSchema, license.BadSignatureEncoding}
	invalid := MapLicenseError(license.ErrInvalidToken, "/api/license/authorize", "t")

	for _, kind := range kinds {
		t.Run(kind.String(), func(t *testing.T) {
			problem := MapLicenseError(&license.DecodeError{Kind: kind}, "/api/license/authorize", "t")
			assert.Equal(t, invalid, problem)
			assert.Equal(t, "INVALID_LICENSE", problem.Extensions["error_code"])
			assert.NotContains(t, problem.Extensions, "reason")
		})
	}
}
