package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"

	"licensegate/internal/gate"
	"licensegate/internal/license"
)

// ProblemDetails implements RFC 7807 Problem Details for HTTP APIs
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	// Additional fields for extensibility
	Extensions map[string]interface{} `json:"-"`
}

// Render implements the render.Renderer interface
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, pd.Status)
	return nil
}

// MarshalJSON flattens extensions next to the standard members
func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	data := make(map[string]interface{}, 5+len(pd.Extensions))

	// Extensions first so they cannot shadow standard members
	for k, v := range pd.Extensions {
		data[k] = v
	}

	data["type"] = pd.Type
	data["title"] = pd.Title
	data["status"] = pd.Status

	if pd.Detail != "" {
		data["detail"] = pd.Detail
	}
	if pd.Instance != "" {
		data["instance"] = pd.Instance
	}

	return json.Marshal(data)
}

// NewProblemDetails creates a new RFC 7807 compliant error
func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:       problemType,
		Title:      title,
		Status:     status,
		Detail:     detail,
		Instance:   instance,
		Extensions: make(map[string]interface{}),
	}
}

// WithExtension adds an extension field to the problem details
func (pd *ProblemDetails) WithExtension(key string, value interface{}) *ProblemDetails {
	if pd.Extensions == nil {
		pd.Extensions = make(map[string]interface{})
	}
	pd.Extensions[key] = value
	return pd
}

// NewNotAuthorizedProblem is the response for a gated operation refused
// while the gate is locked
func NewNotAuthorizedProblem(operation, instance, traceID string) *ProblemDetails {
	return NewProblemDetails(
		http.StatusForbidden,
		TypeLicenseNotAuthorized,
		"License Not Authorized",
		fmt.Sprintf("Operation %q requires an authorized license. Submit a valid token first.", operation),
		instance,
	).WithExtension("trace_id", traceID).
		WithExtension("error_code", "LICENSE_NOT_AUTHORIZED").
		WithExtension("operation", operation)
}

// MapLicenseError maps license and gate errors to HTTP problem details.
// Anything else becomes a 500. Malformed tokens map to the same
// INVALID_LICENSE problem as a failed verification so the cause stays hidden.
func MapLicenseError(err error, instance, traceID string) *ProblemDetails {
	switch {
	case errors.Is(err, gate.ErrNotAuthorized):
		return NewProblemDetails(
			http.StatusForbidden,
			TypeLicenseNotAuthorized,
			"License Not Authorized",
			"A valid license must be authorized before this operation.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "LICENSE_NOT_AUTHORIZED")

	case errors.Is(err, gate.ErrSessionNotFound):
		return NewProblemDetails(
			http.StatusNotFound,
			TypeSessionNotFound,
			"License Session Not Found",
			"The license session does not exist or has expired.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "SESSION_NOT_FOUND")

	case isInvalidLicense(err):
		return NewProblemDetails(
			http.StatusUnauthorized,
			TypeLicenseInvalid,
			"Invalid License",
			"The license token is invalid or expired.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "INVALID_LICENSE")

	default:
		return NewProblemDetails(
			http.StatusInternalServerError,
			TypeInternal,
			"Internal Server Error",
			"An unexpected error occurred while processing your request.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "INTERNAL_ERROR")
	}
}

func isInvalidLicense(err error) bool {
	var decodeErr *license.DecodeError
	var decryptErr *license.DecryptError
	return errors.Is(err, license.ErrInvalidToken) ||
		errors.As(err, &decodeErr) ||
		errors.As(err, &decryptErr)
}
