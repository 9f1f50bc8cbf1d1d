// internal/discounts/handler.go
package discounts

import (
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

// Routes mounts the discount endpoints. create wraps the creation endpoint.
func (h *Handler) Routes(create func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	if create == nil {
		r.Post("/", h.handleCreate)
	} else {
		r.With(create).Post("/", h.handleCreate)
	}
	r.Put("/", h.handleUpdate)
	r.Get("/id/{discountId}", h.handleGetByID)
	r.Get("/user/{userId}", h.handleGetByUser)
	r.Get("/user/all/{userId}", h.handleListByUser)
	r.Delete("/{discountId}", h.handleDelete)
	return r
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var d Discount
	if err := httpx.DecodeJSON(r, &d); err != nil {
		httpx.WriteError(w, r, h.logger, http.StatusBadRequest, err.Error(), err)
		return
	}

	ack, err := channel.PublishJSON(r.Context(), h.publisher, Topic, d)
	if err != nil {
		httpx.WriteError(w, r, h.logger, http.StatusInternalServerError, "failed to publish discount", err)
		return
	}
	res, err := h.service.CreateDiscount(r.Context())
	if err != nil {
		httpx.WriteProcessError(w, r, h.logger, err)
		return
	}
	resp := httpx.MessageResponse{Message: string(res.Outcome), Offset: &ack.Offset}
	if res.Discount != nil {
		resp.ID = res.Discount.ID.String()
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetByID(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamUUID(r, "discountId")
	if err != nil {
		httpx.WriteError(w, r, h.logger, http.StatusBadRequest, err.Error(), err)
		return
	}
	d, err := h.service.GetDiscountByID(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, h.logger, http.StatusInternalServerError, "failed to retrieve discount", err)
		return
	}
	if d == nil {
		httpx.WriteError(w, r, h.logger, http.StatusNotFound, "Discount with id "+id.String()+" not found.", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) handleGetByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := httpx.URLParamUUID(r, "userId")
	if err != nil {
		httpx.WriteError(w, r, h.logger, http.StatusBadRequest, err.Error(), err)
		return
	}
	d, err := h.service.GetDiscountByUserID(r.Context(), userID)
	if err != nil {
		httpx.WriteError(w, r, h.logger, http.StatusInternalServerError, "failed to retrieve discount", err)
		return
	}
	if d == nil {
		httpx.WriteError(w, r, h.logger, http.StatusNotFound, "Discount for user "+userID.String()+" not found.", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) handleListByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := httpx.URLParamUUID(r, "userId")
	if err != nil {
		httpx.WriteError(w, r, h.logger, http.StatusBadRequest, err.Error(), err)
		return
	}
	ds, err := h.service.ListDiscountsByUserID(r.Context(), userID)
	if err != nil {
		httpx.WriteError(w, r, h.logger, http.StatusInternalServerError, "failed to retrieve discounts", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, ds)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var d Discount
	if err := httpx.DecodeJSON(r, &d); err != nil {
		httpx.WriteError(w, r, h.logger, http.StatusBadRequest, err.Error(), err)
		return
	}
	outcome, err := h.service.UpdateDiscount(r.Context(), d)
	switch {
	case err != nil:
		httpx.WriteError(w, r, h.logger, http.StatusInternalServerError, "failed to update discount", err)
	case outcome == OutcomeNotFound:
		httpx.WriteError(w, r, h.logger, http.StatusNotFound, string(outcome), nil)
	default:
		httpx.WriteJSON(w, http.StatusOK, httpx.MessageResponse{Message: string(outcome), ID: d.ID.String()})
	}
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamUUID(r, "discountId")
	if err != nil {
		httpx.WriteError(w, r, h.logger, http.StatusBadRequest, err.Error(), err)
		return
	}
	outcome, err := h.service.DeleteDiscount(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, h.logger, http.StatusInternalServerError, "failed to delete discount", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.MessageResponse{Message: string(outcome), ID: id.String()})
}
