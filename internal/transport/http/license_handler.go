package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apierrors "licensegate/internal/errors"
	"licensegate/internal/middleware"
	"licensegate/internal/services"
	"licensegate/pkg/contracts/domain"
)

// LicenseHandler handles the process gate endpoints
type LicenseHandler struct {
	service      services.LicenseService
	validation   *middleware.ValidationMiddleware
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewLicenseHandler creates a new license handler
func NewLicenseHandler(service services.LicenseService, validation *middleware.ValidationMiddleware, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *LicenseHandler {
	return &LicenseHandler{
		service:      service,
		validation:   validation,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "license")),
	}
}

// Routes returns a chi router for license endpoints
func (h *LicenseHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/authorize", h.Authorize)
	r.Get("/status", h.GetStatus)
	return r
}

// Authorize handles POST /api/license/authorize. Any well-formed request
// gets 200; an undecodable or forged token is reported as valid=false.
func (h *LicenseHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	var req domain.AuthorizeRequest
	if !h.validation.DecodeAndValidate(w, r, &req) {
		return
	}

	ctx, span := otel.Tracer("license-handler").Start(r.Context(), "license_handler.authorize",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("operation", "authorize"),
		),
	)
	defer span.End()

	resp := h.service.Authorize(ctx, req.Token)
	span.SetAttributes(attribute.Bool("license.valid", resp.Valid))

	render.JSON(w, r, resp)
}

// GetStatus handles GET /api/license/status
func (h *LicenseHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Status(r.Context()))
}
