// internal/registration/handler.go
package registration

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gymnexus/internal/httpx"
)

type Handler struct {
	service Service
	logger  *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{service: service, logger: logger}
}

// Routes mounts the registration endpoints. create wraps the registration
// endpoint.
func (h *Handler) Routes(create func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	if create == nil {
		r.Post("/", h.handleRegister)
	} else {
		r.With(create).Post("/", h.handleRegister)
	}
	r.Get("/", h.handleList)
	r.Get("/{registrationId}", h.handleGet)
	return r
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req Registration
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, h.logger, http.StatusBadRequest, err.Error(), err)
		return
	}
	reg, err := h.service.Register(r.Context(), req)
	switch {
	case errors.Is(err, ErrInvalidRegistration):
		httpx.WriteError(w, r, h.logger, http.StatusBadRequest, err.Error(), err)
	case err != nil:
		httpx.WriteError(w, r, h.logger, http.StatusInternalServerError, "failed to register", err)
	default:
		httpx.WriteJSON(w, http.StatusOK, reg)
	}
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamUUID(r, "registrationId")
	if err != nil {
		httpx.WriteError(w, r, h.logger, http.StatusBadRequest, err.Error(), err)
		return
	}
	reg, err := h.service.GetRegistration(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, h.logger, http.StatusInternalServerError, "failed to retrieve registration", err)
		return
	}
	if reg == nil {
		httpx.WriteError(w, r, h.logger, http.StatusNotFound, "Registration with ID "+id.String()+" not found.", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, reg)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	regs, err := h.service.ListRegistrations(r.Context())
	if err != nil {
		httpx.WriteError(w, r, h.logger, http.StatusInternalServerError, "failed to retrieve registrations", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, regs)
}
