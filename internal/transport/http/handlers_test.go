package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "licensegate/internal/errors"
	"licensegate/internal/gate"
	"licensegate/internal/license"
	"licensegate/internal/middleware"
	"licensegate/internal/services"
)

type testServer struct {
	router http.Handler
	gate   *gate.Gate
	token  string
	issuer *license.Issuer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	verifier, err := license.NewVerifier(nil, license.WithLogger(logger))
	require.NoError(t, err)
	issuer, err := license.NewIssuer(nil)
	require.NoError(t, err)
	token, err := issuer.Issue("a@b.com", time.Now().Add(-time.Hour), "pro")
	require.NoError(t, err)

	g := gate.New(verifier, gate.WithLogger(logger))
	store := gate.NewStore(verifier, time.Minute, 10, gate.WithLogger(logger))
	t.Cleanup(store.Stop)

	licenseSvc := services.NewLicenseService(g, store, verifier.UsesDefaultKey(), logger)
	trimSvc := services.NewTrimService(g, logger)
	healthSvc := services.NewHealthService(verifier, licenseSvc, nil, logger)

	errorHandler := apierrors.NewErrorHandler(logger, false)
	validation := middleware.NewValidationMiddleware(logger, errorHandler)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Mount("/license", NewLicenseHandler(licenseSvc, validation, errorHandler, logger).Routes())
		r.Mount("/trim", NewTrimHandler(trimSvc, validation, errorHandler, logger).Routes())
		r.Mount("/sessions", NewSessionHandler(licenseSvc, trimSvc, validation, errorHandler, logger).Routes())
		health := NewHealthHandler(healthSvc, logger)
		r.Mount("/health", health.Routes())
		r.Get("/version", health.Version)
	})

	return &testServer{router: r, gate: g, token: token, issuer: issuer}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	out := map[string]interface{}{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w, out
}

func TestLicenseHandler_Authorize(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(t, http.MethodPost, "/api/license/authorize", map[string]string{"token": s.token})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, "pro", body["license_type"])
	assert.Equal(t, gate.Unlocked, s.gate.Snapshot().State)

	w, body = s.do(t, http.MethodPost, "/api/license/authorize", map[string]string{"token": "not base64 at all!"})
	require.Equal(t, http.StatusOK, w.Code, "malformed tokens are a verdict, not a request error")
	assert.Equal(t, false, body["valid"])
	assert.NotContains(t, body, "license_type")
	assert.Equal(t, gate.Locked, s.gate.Snapshot().State)
}

func TestLicenseHandler_AuthorizeRejectsBadRequests(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body interface{}
		code string
	}{
		{"missing token", map[string]string{}, "VALIDATION_FAILED"},
		{"empty token", map[string]string{"token": ""}, "VALIDATION_FAILED"},
		{"unknown field", map[string]string{"token": "x", "extra": "y"}, "INVALID_REQUEST"},
		{"not json", "{", "INVALID_REQUEST"},
		{"empty body", "", "INVALID_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := s.do(t, http.MethodPost, "/api/license/authorize", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.code, body["error_code"])
		})
	}
	assert.Equal(t, gate.Locked, s.gate.Snapshot().State)
}

func TestLicenseHandler_Status(t *testing.T) {
	s := newTestServer(t)

	_, body := s.do(t, http.MethodGet, "/api/license/status", nil)
	assert.Equal(t, "locked", body["state"])
	assert.Equal(t, false, body["authorized"])
	assert.Equal(t, "default", body["key_source"])

	s.do(t, http.MethodPost, "/api/license/authorize", map[string]string{"token": s.token})

	_, body = s.do(t, http.MethodGet, "/api/license/status", nil)
	assert.Equal(t, "unlocked", body["state"])
	assert.Equal(t, true, body["authorized"])
	assert.Equal(t, "pro", body["license_type"])
}

func TestTrimHandler(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(t, http.MethodPost, "/api/trim", map[string]string{"value": "  hi  "})
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, apierrors.TypeLicenseNotAuthorized, body["type"])
	assert.Equal(t, "trim", body["operation"])
	assert.Equal(t, "LICENSE_NOT_AUTHORIZED", body["error_code"])

	s.do(t, http.MethodPost, "/api/license/authorize", map[string]string{"token": s.token})

	w, body = s.do(t, http.MethodPost, "/api/trim", map[string]string{"value": "  hi  "})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hi", body["value"])
	assert.Equal(t, "pro", body["license_type"])

	w, body = s.do(t, http.MethodPost, "/api/trim", map[string]string{"value": ""})
	require.Equal(t, http.StatusOK, w.Code, "empty value is allowed")
	assert.Equal(t, "", body["value"])

	w, _ = s.do(t, http.MethodPost, "/api/trim", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code, "value is required")
}

func TestTrimHandler_ExpiredTokenRelocks(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/license/authorize", map[string]string{"token": s.token})

	expired, err := s.issuer.Issue("a@b.com", time.Now().Add(-366*24*time.Hour), "pro")
	require.NoError(t, err)
	_, body := s.do(t, http.MethodPost, "/api/license/authorize", map[string]string{"token": expired})
	assert.Equal(t, false, body["valid"])

	w, _ := s.do(t, http.MethodPost, "/api/trim", map[string]string{"value": " x "})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSessionHandler_Lifecycle(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(t, http.MethodPost, "/api/sessions", map[string]string{"token": s.token})
	require.Equal(t, http.StatusCreated, w.Code)
	id, ok := body["session_id"].(string)
	require.True(t, ok)
	assert.Equal(t, "unlocked", body["state"])
	assert.Equal(t, "pro", body["license_type"])

	w, body = s.do(t, http.MethodGet, "/api/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, body["session_id"])

	w, body = s.do(t, http.MethodPost, "/api/sessions/"+id+"/trim", map[string]string{"value": "\t x \n"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "x", body["value"])
	assert.Equal(t, gate.Locked, s.gate.Snapshot().State, "session trim leaves the process gate alone")

	_, body = s.do(t, http.MethodGet, "/api/sessions/stats", nil)
	assert.Equal(t, float64(1), body["entries"])

	w, _ = s.do(t, http.MethodDelete, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, body = s.do(t, http.MethodGet, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apierrors.TypeSessionNotFound, body["type"])

	w, _ = s.do(t, http.MethodPost, "/api/sessions/"+id+"/trim", map[string]string{"value": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(t, http.MethodDelete, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionHandler_Errors(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(t, http.MethodPost, "/api/sessions", map[string]string{"token": "garbage"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, apierrors.TypeLicenseInvalid, body["type"])

	w, body = s.do(t, http.MethodGet, "/api/sessions/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_FAILED", body["error_code"])
}

func TestHealthHandler(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, services.StatusDegraded, body["status"], "built-in key degrades health")
	checks, ok := body["checks"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, checks, "license_cipher")
	assert.Contains(t, checks, "license_gate")

	w, body = s.do(t, http.MethodGet, "/api/health/live", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alive", body["status"])

	_, body = s.do(t, http.MethodGet, "/api/version", nil)
	assert.Equal(t, "v1", body["api_version"])
}
