// internal/membership/handler.go
package membership

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gymnexus/internal/channel"
	"gymnexus/internal/httpx"
)

type Handler struct {
	service   Service
	publisher channel.Publisher
	logger    *slog.Logger
}

func NewHandler(service Service, publisher channel.Publisher, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{service: service, publisher: publisher, logger: logger}
}

// Routes mounts the membership endpoints. create wraps the creation
// endpoint, typically with a rate limiter.
func (h *Handler) Routes(create func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	if create == nil {
		r.Post("/", h.handleCreate)
	} else {
		r.With(create).Post("/", h.handleCreate)
	}
	r.Get("/user/{userId}", h.handleListByUser)
	r.Put("/edit/{membershipId}", h.handleEdit)
	r.Get("/{membershipId}", h.handleGet)
	return r
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var m Membership
	if err := httpx.DecodeJSON(r, &m); err != nil {
		httpx.WriteError(w, r, h.logger, http.StatusBadRequest, err.Error(), err)
		return
	}

	ack, err := channel.PublishJSON(r.Context(), h.publisher, Topic, m)
	if err != nil {
		httpx.WriteError(w, r, h.logger, http.StatusInternalServerError, "An error occurred while sending the membership creation request.", err)
		return
	}
	h.logger.DebugContext(r.Context(), "membership creation request published", "component", "membership", "ack", ack.String())

	res, err := h.service.CreateMembership(r.Context())
	if err != nil {
		httpx.WriteProcessError(w, r, h.logger, err)
		return
	}
	resp := httpx.MessageResponse{Message: string(res.Outcome), Offset: &ack.Offset}
	if res.Membership != nil {
		resp.ID = res.Membership.ID.String()
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamUUID(r, "membershipId")
	if err != nil {
		httpx.WriteError(w, r, h.logger, http.StatusBadRequest, err.Error(), err)
		return
	}
	m, err := h.service.GetMembership(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, h.logger, http.StatusInternalServerError, "An error occurred while retrieving the membership data.", err)
		return
	}
	if m == nil {
		httpx.WriteError(w, r, h.logger, http.StatusNotFound, "Membership with ID "+id.String()+" not found.", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, m)
}

func (h *Handler) handleListByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := httpx.URLParamUUID(r, "userId")
	if err != nil {
		httpx.WriteError(w, r, h.logger, http.StatusBadRequest, err.Error(), err)
		return
	}
	ms, err := h.service.GetMembershipsByUserID(r.Context(), userID)
	if err != nil {
		httpx.WriteError(w, r, h.logger, http.StatusInternalServerError, "An error occurred while retrieving the memberships data.", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, ms)
}

func (h *Handler) handleEdit(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamUUID(r, "membershipId")
	if err != nil {
		httpx.WriteError(w, r, h.logger, http.StatusBadRequest, err.Error(), err)
		return
	}
	var update Membership
	if err := httpx.DecodeJSON(r, &update); err != nil {
		httpx.WriteError(w, r, h.logger, http.StatusBadRequest, err.Error(), err)
		return
	}

	m, err := h.service.EditMembership(r.Context(), id, update)
	switch {
	case errors.Is(err, ErrPlanNotFound):
		httpx.WriteError(w, r, h.logger, http.StatusNotFound, err.Error(), err)
	case err != nil:
		httpx.WriteError(w, r, h.logger, http.StatusInternalServerError, "An error occurred while updating the membership data.", err)
	case m == nil:
		httpx.WriteError(w, r, h.logger, http.StatusNotFound, "Membership with ID "+id.String()+" not found.", nil)
	default:
		httpx.WriteJSON(w, http.StatusOK, m)
	}
}
