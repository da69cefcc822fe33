package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "licensegate/internal/errors"
	"licensegate/internal/middleware"
	"licensegate/internal/services"
	"licensegate/pkg/contracts/domain"
)

// sessionPath holds the validated {id} URL parameter
type sessionPath struct {
	ID string `json:"session_id" validate:"required,uuid"`
}

// SessionHandler handles per-session gates
type SessionHandler struct {
	license      services.LicenseService
	trim         *services.TrimService
	validation   *middleware.ValidationMiddleware
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(license services.LicenseService, trim *services.TrimService, validation *middleware.ValidationMiddleware, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		license:      license,
		trim:         trim,
		validation:   validation,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "session")),
	}
}

// Routes returns a chi router for session endpoints
func (h *SessionHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Open)
	r.Get("/stats", h.Stats)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Delete("/", h.Close)
		r.Post("/trim", h.Trim)
	})
	return r
}

// Open handles POST /api/sessions
func (h *SessionHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req domain.OpenSessionRequest
	if !h.validation.DecodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.license.OpenSession(r.Context(), req.Token)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, resp)
}

// Get handles GET /api/sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	resp, err := h.license.GetSession(r.Context(), id)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, resp)
}

// Close handles DELETE /api/sessions/{id}
func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	if err := h.license.CloseSession(r.Context(), id); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Trim handles POST /api/sessions/{id}/trim
func (h *SessionHandler) Trim(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var req domain.TrimRequest
	if !h.validation.DecodeAndValidate(w, r, &req) {
		return
	}

	g, err := h.license.SessionGate(r.Context(), id)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	resp, err := h.trim.TrimWith(r.Context(), g, *req.Value)
	if err != nil {
		renderGatedError(w, r, h.errorHandler, err)
		return
	}

	render.JSON(w, r, resp)
}

// Stats handles GET /api/sessions/stats
func (h *SessionHandler) Stats(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.license.SessionStats())
}

func (h *SessionHandler) sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	path := sessionPath{ID: chi.URLParam(r, "id")}
	if err := h.validation.ValidateStruct(&path); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return "", false
	}
	return path.ID, true
}
