package app

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoPath(name string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, name+" "+r.URL.Path)
	}))
}

func TestGatewayRoutesByPrefix(t *testing.T) {
	members := echoPath("membership")
	defer members.Close()
	intake := echoPath("registration")
	defer intake.Close()

	gw, err := NewGateway(members.URL, intake.URL, nil)
	require.NoError(t, err)
	srv := httptest.NewServer(gw)
	defer srv.Close()

	tests := []struct {
		path string
		want string
	}{
		{path: "/api/v1/membership/api/membership/user/42", want: "membership /api/membership/user/42"},
		{path: "/api/v1/registration/api/registration/", want: "registration /api/registration/"},
	}
	for _, tt := range tests {
		resp, err := http.Get(srv.URL + tt.path)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, tt.want, string(body))
	}

	resp, err := http.Get(srv.URL + "/api/v1/unknown/x")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGatewayUpstreamDown(t *testing.T) {
	down := echoPath("gone")
	down.Close()

	gw, err := NewGateway(down.URL, down.URL, nil)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/membership/healthz", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"error":"upstream unavailable"}`, rec.Body.String())
}

func TestGatewayRejectsInvalidUpstream(t *testing.T) {
	_, err := NewGateway("not a url", "http://localhost:1", nil)
	assert.Error(t, err)
	_, err = NewGateway("http://localhost:1", "", nil)
	assert.Error(t, err)
}
