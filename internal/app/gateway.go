// internal/app/gateway.go
package app

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"gymnexus/internal/httpx"
)

// NewGateway proxies /api/v1/membership/* to the membership service and
// /api/v1/registration/* to the registration service, stripping the prefix.
func NewGateway(membershipURL, registrationURL string, logger *slog.Logger) (http.Handler, error) {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(httpx.RequestLogger(logger))
	r.Get("/healthz", httpx.Healthz)

	routes := []struct {
		prefix   string
		upstream string
	}{
		{prefix: "/api/v1/membership", upstream: membershipURL},
		{prefix: "/api/v1/registration", upstream: registrationURL},
	}
	for _, route := range routes {
		target, err := url.Parse(route.upstream)
		if err != nil || target.Scheme == "" || target.Host == "" {
			return nil, fmt.Errorf("invalid upstream for %s: %q", route.prefix, route.upstream)
		}
		proxy := httputil.NewSingleHostReverseProxy(target)
		proxy.ErrorHandler = func(w http.ResponseWriter, req *http.Request, err error) {
			httpx.WriteError(w, req, logger, http.StatusBadGateway, "upstream unavailable", err)
		}
		r.Handle(route.prefix+"/*", http.StripPrefix(route.prefix, proxy))
	}
	return r, nil
}
