package chaos

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymnexus/internal/channel"
	"gymnexus/internal/httpx"
	"gymnexus/internal/membership"
	"gymnexus/internal/plans"
	"gymnexus/internal/users"
)

// stubService accepts every creation and lists every stored membership,
// with no duplicate check at all.
type stubService struct {
	mu          sync.Mutex
	plan        plans.MembershipType
	memberships []membership.Membership
}

func (s *stubService) routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", httpx.Healthz)
	r.Post("/api/registration", func(w http.ResponseWriter, r *http.Request) {
		var req users.RegisterRequest
		_ = httpx.DecodeJSON(r, &req)
		httpx.WriteJSON(w, http.StatusOK, httpx.MessageResponse{Message: string(users.OutcomeRegistered), ID: req.ID.String()})
	})
	r.Post("/api/membershiptypes", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		_ = httpx.DecodeJSON(r, &s.plan)
		s.plan.ID = uuid.New()
		httpx.WriteJSON(w, http.StatusOK, httpx.MessageResponse{Message: string(plans.OutcomeCreated)})
	})
	r.Get("/api/membershiptypes/name/{name}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		httpx.WriteJSON(w, http.StatusOK, s.plan)
	})
	r.Post("/api/membership", func(w http.ResponseWriter, r *http.Request) {
		var m membership.Membership
		_ = httpx.DecodeJSON(r, &m)
		s.mu.Lock()
		s.memberships = append(s.memberships, m)
		s.mu.Unlock()
		httpx.WriteJSON(w, http.StatusOK, httpx.MessageResponse{Message: string(membership.OutcomeCreated)})
	})
	r.Get("/api/membership/user/{userId}", func(w http.ResponseWriter, r *http.Request) {
		id, _ := httpx.URLParamUUID(r, "userId")
		s.mu.Lock()
		defer s.mu.Unlock()
		out := []membership.Membership{}
		for _, m := range s.memberships {
			if m.UserID == id {
				out = append(out, m)
			}
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	})
	return r
}

func TestDuplicateRaceExperimentCountsRows(t *testing.T) {
	stub := &stubService{}
	srv := httptest.NewServer(stub.routes())
	t.Cleanup(srv.Close)

	exp := DuplicateRaceExperiment(Target{BaseURL: srv.URL, HTTPClient: srv.Client()}, 4)
	exp.Duration = 50 * time.Millisecond
	exp.SampleInterval = 10 * time.Millisecond

	result, err := NewEngine(nil).RunExperiment(context.Background(), exp)
	require.NoError(t, err)
	assert.Empty(t, result.ErrorEvents)
	assert.True(t, result.HypothesisHeld)
	rows, ok := result.Last("matching_rows")
	require.True(t, ok)
	assert.Equal(t, float64(4), rows, "a service without a duplicate check stores every request")
}

func TestRedeliveryExperimentOnMemoryChannel(t *testing.T) {
	mem := channel.NewMemory(nil)
	exp := RedeliveryExperiment(Target{
		Publisher: mem,
		Consumers: func(group string) channel.Consumer { return mem.Consumer(group) },
	}, 20*time.Millisecond)

	result, err := NewEngine(nil).RunExperiment(context.Background(), exp)
	require.NoError(t, err)
	assert.True(t, result.HypothesisHeld, "failed: %v", result.FailedAssertions)
}

func TestLatencyExperimentWithinTimeout(t *testing.T) {
	stub := &stubService{}
	srv := httptest.NewServer(stub.routes())
	t.Cleanup(srv.Close)

	exp := LatencyExperiment(Target{BaseURL: srv.URL}, 10*time.Millisecond, time.Second)
	exp.Duration = 60 * time.Millisecond
	exp.SampleInterval = 20 * time.Millisecond

	result, err := NewEngine(nil).RunExperiment(context.Background(), exp)
	require.NoError(t, err)
	assert.True(t, result.HypothesisHeld)
}

func TestLatencyTransportHonoursContext(t *testing.T) {
	lt := &LatencyTransport{}
	lt.Inject(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://example.invalid", nil)
	require.NoError(t, err)
	_, err = lt.RoundTrip(req)
	assert.ErrorIs(t, err, context.Canceled)
}
