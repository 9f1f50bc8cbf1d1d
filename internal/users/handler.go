// internal/users/handler.go
package users

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

// Routes mounts the user endpoints. create wraps the registration endpoint,
// typically with a rate limiter.
func (h *Handler) Routes(create func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	if create == nil {
		r.Post("/", h.handleRegister)
	} else {
		r.With(create).Post("/", h.handleRegister)
	}
	r.Post("/login", h.handleLogin)
	r.Get("/email/{email}", h.handleGetByEmail)
	r.Get("/email/{email}/all", h.handleListByEmail)
	r.Put("/edit/{userId}", h.handleEdit)
	r.Get("/{userId}", h.handleGet)
	return r
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, h.logger, http.StatusBadRequest, err.Error(), err)
		return
	}

	ack, err := channel.PublishJSON(r.Context(), h.publisher, Topic, req)
	if err != nil {
		httpx.WriteError(w, r, h.logger, http.StatusInternalServerError, "failed to publish registration", err)
		return
	}
	res, err := h.service.RegisterUser(r.Context())
	if err != nil {
		httpx.WriteProcessError(w, r, h.logger, err)
		return
	}

	resp := httpx.MessageResponse{Message: string(res.Outcome), Offset: &ack.Offset}
	if res.User != nil {
		resp.ID = res.User.ID.String()
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamUUID(r, "userId")
	if err != nil {
		httpx.WriteError(w, r, h.logger, http.StatusBadRequest, err.Error(), err)
		return
	}
	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, h.logger, http.StatusInternalServerError, "failed to retrieve user", err)
		return
	}
	if user == nil {
		httpx.WriteError(w, r, h.logger, http.StatusNotFound, "User with ID "+id.String()+" not found.", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) handleGetByEmail(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	user, err := h.service.GetUserByEmail(r.Context(), email)
	if err != nil {
		httpx.WriteError(w, r, h.logger, http.StatusInternalServerError, "failed to retrieve user", err)
		return
	}
	if user == nil {
		httpx.WriteError(w, r, h.logger, http.StatusNotFound, "User with email "+email+" not found.", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) handleListByEmail(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsersByEmail(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		httpx.WriteError(w, r, h.logger, http.StatusInternalServerError, "failed to retrieve users", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, users)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Login    string `json:"login"`
		Password string `json:"password"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, h.logger, http.StatusBadRequest, err.Error(), err)
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Login, req.Password)
	switch {
	case errors.Is(err, ErrRateLimited):
		httpx.WriteError(w, r, h.logger, http.StatusTooManyRequests, err.Error(), err)
	case errors.Is(err, ErrInvalidCredentials):
		httpx.WriteError(w, r, h.logger, http.StatusUnauthorized, err.Error(), err)
	case err != nil:
		httpx.WriteError(w, r, h.logger, http.StatusInternalServerError, "authentication failed", err)
	default:
		httpx.WriteJSON(w, http.StatusOK, user)
	}
}

func (h *Handler) handleEdit(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamUUID(r, "userId")
	if err != nil {
		httpx.WriteError(w, r, h.logger, http.StatusBadRequest, err.Error(), err)
		return
	}
	var req EditRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, h.logger, http.StatusBadRequest, err.Error(), err)
		return
	}

	user, err := h.service.EditUser(r.Context(), id, req)
	switch {
	case errors.Is(err, ErrMalformedPayload):
		httpx.WriteError(w, r, h.logger, http.StatusBadRequest, err.Error(), err)
	case err != nil:
		httpx.WriteError(w, r, h.logger, http.StatusInternalServerError, "failed to edit user", err)
	case user == nil:
		httpx.WriteError(w, r, h.logger, http.StatusNotFound, "User with ID "+id.String()+" not found.", nil)
	default:
		httpx.WriteJSON(w, http.StatusOK, httpx.MessageResponse{Message: string(OutcomeEdited), ID: id.String()})
	}
}
