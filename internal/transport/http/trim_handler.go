package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "licensegate/internal/errors"
	"licensegate/internal/gate"
	"licensegate/internal/infrastructure"
	"licensegate/internal/middleware"
	"licensegate/internal/services"
	"licensegate/pkg/contracts/domain"
)

// TrimHandler exposes the gated trim operation on the process gate
type TrimHandler struct {
	trim         *services.TrimService
	validation   *middleware.ValidationMiddleware
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewTrimHandler creates a new trim handler
func NewTrimHandler(trim *services.TrimService, validation *middleware.ValidationMiddleware, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *TrimHandler {
	return &TrimHandler{
		trim:         trim,
		validation:   validation,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "trim")),
	}
}

// Routes returns a chi router for the trim endpoint
func (h *TrimHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Trim)
	return r
}

// Trim handles POST /api/trim
func (h *TrimHandler) Trim(w http.ResponseWriter, r *http.Request) {
	var req domain.TrimRequest
	if !h.validation.DecodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.trim.Trim(r.Context(), *req.Value)
	if err != nil {
		renderGatedError(w, r, h.errorHandler, err)
		return
	}

	render.JSON(w, r, resp)
}

// renderGatedError answers a refused gated operation with the
// not-authorized problem and hands every other error to the error handler
func renderGatedError(w http.ResponseWriter, r *http.Request, errorHandler *apierrors.ErrorHandler, err error) {
	if errors.Is(err, gate.ErrNotAuthorized) {
		traceID := infrastructure.GetTraceID(r.Context())
		_ = render.Render(w, r, apierrors.NewNotAuthorizedProblem(services.OperationTrim, r.URL.Path, traceID))
		return
	}
	errorHandler.HandleError(w, r, err)
}
