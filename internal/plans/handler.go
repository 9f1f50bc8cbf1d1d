// internal/plans/handler.go
package plans

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

// Routes mounts the catalog endpoints. create wraps the creation endpoint.
func (h *Handler) Routes(create func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	if create == nil {
		r.Post("/", h.handleCreate)
	} else {
		r.With(create).Post("/", h.handleCreate)
	}
	r.Get("/", h.handleList)
	r.Put("/", h.handleUpdate)
	r.Get("/id/{membershipTypeId}", h.handleGetByID)
	r.Get("/name/{name}", h.handleGetByName)
	r.Delete("/{membershipTypeId}", h.handleDelete)
	return r
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var mt MembershipType
	if err := httpx.DecodeJSON(r, &mt); err != nil {
		httpx.WriteError(w, r, h.logger, http.StatusBadRequest, err.Error(), err)
		return
	}

	ack, err := channel.PublishJSON(r.Context(), h.publisher, Topic, mt)
	if err != nil {
		httpx.WriteError(w, r, h.logger, http.StatusInternalServerError, "failed to publish membership type", err)
		return
	}
	res, err := h.service.CreateMembershipType(r.Context())
	if err != nil {
		httpx.WriteProcessError(w, r, h.logger, err)
		return
	}
	resp := httpx.MessageResponse{Message: string(res.Outcome), Offset: &ack.Offset}
	if res.MembershipType != nil {
		resp.ID = res.MembershipType.ID.String()
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetByID(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamUUID(r, "membershipTypeId")
	if err != nil {
		httpx.WriteError(w, r, h.logger, http.StatusBadRequest, err.Error(), err)
		return
	}
	mt, err := h.service.GetMembershipTypeByID(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, h.logger, http.StatusInternalServerError, "failed to retrieve membership type", err)
		return
	}
	if mt == nil {
		httpx.WriteError(w, r, h.logger, http.StatusNotFound, "MembershipType by id not found.", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, mt)
}

func (h *Handler) handleGetByName(w http.ResponseWriter, r *http.Request) {
	mt, err := h.service.GetMembershipTypeByName(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		httpx.WriteError(w, r, h.logger, http.StatusInternalServerError, "failed to retrieve membership type", err)
		return
	}
	if mt == nil {
		httpx.WriteError(w, r, h.logger, http.StatusNotFound, "MembershipType by name not found.", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, mt)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	mts, err := h.service.ListMembershipTypes(r.Context())
	if err != nil {
		httpx.WriteError(w, r, h.logger, http.StatusInternalServerError, "failed to list membership types", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, mts)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var mt MembershipType
	if err := httpx.DecodeJSON(r, &mt); err != nil {
		httpx.WriteError(w, r, h.logger, http.StatusBadRequest, err.Error(), err)
		return
	}
	outcome, err := h.service.UpdateMembershipType(r.Context(), mt)
	switch {
	case errors.Is(err, ErrMalformedPayload):
		httpx.WriteError(w, r, h.logger, http.StatusBadRequest, err.Error(), err)
	case err != nil:
		httpx.WriteError(w, r, h.logger, http.StatusInternalServerError, "failed to update membership type", err)
	case outcome == OutcomeNotFound:
		httpx.WriteError(w, r, h.logger, http.StatusNotFound, string(outcome), nil)
	default:
		httpx.WriteJSON(w, http.StatusOK, httpx.MessageResponse{Message: string(outcome), ID: mt.ID.String()})
	}
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamUUID(r, "membershipTypeId")
	if err != nil {
		httpx.WriteError(w, r, h.logger, http.StatusBadRequest, err.Error(), err)
		return
	}
	outcome, err := h.service.DeleteMembershipType(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, h.logger, http.StatusInternalServerError, "failed to delete membership type", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.MessageResponse{Message: string(outcome), ID: id.String()})
}
