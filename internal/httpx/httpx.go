// Package httpx holds the response helpers and middleware shared by the
// service handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"gymnexus/internal/channel"
)

// ErrorResponse is the body written for every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse carries a processing outcome back to the caller.
type MessageResponse struct {
	Message string `json:"message"`
	Offset  *int64 `json:"offset,omitempty"`
	ID      string `json:"id,omitempty"`
}

// WriteJSON encodes v as the response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes a JSON error body. 5xx causes are logged; the client only
// sees msg.
func WriteError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, status int, msg string, cause error) {
	if status >= http.StatusInternalServerError && logger != nil {
		logger.ErrorContext(r.Context(), msg,
			"component", "http",
			"method", r.Method,
			"path", r.URL.Path,
			"error", cause,
		)
	}
	WriteJSON(w, status, ErrorResponse{Error: msg})
}

// DecodeJSON decodes the request body into v, rejecting unknown trailing
// data.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("invalid request body: unexpected trailing data")
	}
	return nil
}

// URLParamUUID parses the named chi route parameter as a UUID.
func URLParamUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

// Healthz answers liveness probes.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// WriteProcessError maps a failed publish-then-process cycle to a response.
func WriteProcessError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, channel.ErrMalformedPayload):
		WriteError(w, r, logger, http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, channel.ErrNoMessage):
		WriteError(w, r, logger, http.StatusServiceUnavailable, "no message available", err)
	default:
		WriteError(w, r, logger, http.StatusInternalServerError, "failed to process request", err)
	}
}
