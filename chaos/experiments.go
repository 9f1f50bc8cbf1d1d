// chaos/experiments.go
package chaos

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"gymnexus/internal/channel"
	"gymnexus/internal/clients"
	"gymnexus/internal/membership"
	"gymnexus/internal/plans"
	"gymnexus/internal/users"
)

// Target describes the system the drills run against.
type Target struct {
	// BaseURL is the membership service root, e.g. http://localhost:8083.
	BaseURL    string
	HTTPClient *http.Client
	// Publisher and Consumers reach the event channel backend directly.
	Publisher channel.Publisher
	Consumers func(group string) channel.Consumer
}

// RegisterExperiments registers every drill that t can serve.
func (e *Engine) RegisterExperiments(t Target) {
	if t.BaseURL != "" {
		e.RegisterExperiment(DuplicateRaceExperiment(t, 8))
		e.RegisterExperiment(LatencyExperiment(t, 250*time.Millisecond, 2*time.Second))
	}
	if t.Publisher != nil && t.Consumers != nil {
		e.RegisterExperiment(RedeliveryExperiment(t, 2*time.Second))
	}
}

func serviceUp(c interface{ Healthz(context.Context) error }) Metric {
	return Metric{
		Name: "service_up",
		Query: func(ctx context.Context) (float64, error) {
			if err := c.Healthz(ctx); err != nil {
				return 0, nil
			}
			return 1, nil
		},
		Threshold: Threshold{Operator: "==", Value: 1},
	}
}

// DuplicateRaceExperiment fires identical membership creations
// concurrently. The duplicate check reads before it writes, so concurrent
// requests may each pass it; the drill records how many rows were stored
// and only asserts that at least one was.
func DuplicateRaceExperiment(t Target, concurrency int) Experiment {
	members := clients.NewMembershipClient(t.BaseURL, t.HTTPClient)
	catalog := clients.NewCatalogClient(t.BaseURL, t.HTTPClient)
	userID := uuid.New()
	planName := "chaos-" + uuid.NewString()
	start := time.Now().UTC().Truncate(time.Second)

	var (
		mu     sync.Mutex
		intent *membership.Membership
	)
	matchingRows := func(ctx context.Context) (float64, error) {
		mu.Lock()
		want := intent
		mu.Unlock()
		if want == nil {
			return 0, nil
		}
		ms, err := members.GetMembershipsByUserID(ctx, userID)
		if err != nil {
			return 0, err
		}
		n := 0
		for _, m := range ms {
			if m.MembershipTypeID == want.MembershipTypeID && m.IsActive == want.IsActive &&
				m.StartDate.Equal(want.StartDate) && m.EndDate.Equal(want.EndDate) {
				n++
			}
		}
		return float64(n), nil
	}

	return Experiment{
		Name:       "concurrent-duplicate-membership",
		Hypothesis: "Concurrent identical creations store at least one membership; extra rows expose the read-then-write duplicate check",
		SteadyState: []Metric{
			serviceUp(members),
			{Name: "matching_rows", Query: matchingRows, Threshold: Threshold{Operator: ">=", Value: 0}},
		},
		Method: []Action{
			{
				Type:   "seed",
				Target: "membership-service",
				Execute: func(ctx context.Context) error {
					if _, err := members.RegisterUser(ctx, users.RegisterRequest{
						ID:       userID,
						Username: "chaos-" + userID.String()[:8],
						Email:    userID.String() + "@chaos.test",
						Password: uuid.NewString(),
					}); err != nil {
						return fmt.Errorf("failed to register drill user: %w", err)
					}
					if _, err := catalog.CreateMembershipType(ctx, plans.MembershipType{
						Name:  planName,
						Price: decimal.NewFromInt(100),
					}); err != nil {
						return fmt.Errorf("failed to create drill plan: %w", err)
					}
					plan, err := catalog.GetMembershipTypeByName(ctx, planName)
					if err != nil {
						return err
					}
					if plan == nil {
						return errors.New("drill plan not found after creation")
					}
					mu.Lock()
					intent = &membership.Membership{
						UserID:           userID,
						MembershipTypeID: plan.ID,
						StartDate:        start,
						EndDate:          start.AddDate(0, 1, 0),
						IsActive:         true,
					}
					mu.Unlock()
					return nil
				},
			},
			{
				Type:       "concurrent-requests",
				Target:     "membership-service",
				Parameters: map[string]any{"concurrency": concurrency},
				Execute: func(ctx context.Context) error {
					mu.Lock()
					req := intent
					mu.Unlock()
					if req == nil {
						return errors.New("drill was not seeded")
					}
					var g errgroup.Group
					for range concurrency {
						g.Go(func() error {
							_, err := members.CreateMembership(ctx, *req)
							return err
						})
					}
					return g.Wait()
				},
			},
		},
		Validation: []Assertion{
			{
				Metric:    "matching_rows",
				Condition: func(v float64) bool { return v >= 1 },
				Message:   "At least one membership should be stored",
			},
			{
				Metric:    "service_up",
				Condition: func(v float64) bool { return v == 1 },
				Message:   "The service should stay up",
			},
		},
		Duration:       3 * time.Second,
		SampleInterval: time.Second,
		BlastRadius:    0.1,
	}
}

// RedeliveryExperiment receives a message without committing it, as a
// processor that crashed mid-request would, and checks that the next
// consumer of the same group gets it again.
func RedeliveryExperiment(t Target, wait time.Duration) Experiment {
	topic := "chaos_redelivery_" + uuid.NewString()
	group := "chaos-" + uuid.NewString()
	var redelivered atomic.Bool

	return Experiment{
		Name:       "uncommitted-delivery-redelivery",
		Hypothesis: "A delivery that is never committed is handed to the next consumer of the group",
		SteadyState: []Metric{
			{
				Name: "redelivered",
				Query: func(ctx context.Context) (float64, error) {
					if redelivered.Load() {
						return 1, nil
					}
					c := t.Consumers(group)
					d, err := channel.Receive(ctx, c, topic, wait)
					if errors.Is(err, channel.ErrNoMessage) || errors.Is(err, context.DeadlineExceeded) {
						return 0, nil
					}
					if err != nil {
						return 0, err
					}
					redelivered.Store(true)
					return 1, c.Commit(ctx, d)
				},
				Threshold: Threshold{Operator: ">=", Value: 0},
			},
		},
		Method: []Action{
			{
				Type:   "crash-before-commit",
				Target: "event-channel",
				Execute: func(ctx context.Context) error {
					if _, err := t.Publisher.Publish(ctx, topic, []byte(`{"drill":"redelivery"}`)); err != nil {
						return err
					}
					_, err := channel.Receive(ctx, t.Consumers(group), topic, wait)
					return err
				},
			},
		},
		Validation: []Assertion{
			{
				Metric:    "redelivered",
				Condition: func(v float64) bool { return v == 1 },
				Message:   "The uncommitted delivery should be redelivered",
			},
		},
		Duration:       2 * wait,
		SampleInterval: wait / 4,
		BlastRadius:    0,
	}
}

// LatencyTransport delays every request by the current injected latency.
type LatencyTransport struct {
	Base  http.RoundTripper
	delay atomic.Int64
}

func (l *LatencyTransport) Inject(d time.Duration) { l.delay.Store(int64(d)) }

func (l *LatencyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if d := time.Duration(l.delay.Load()); d > 0 {
		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(d):
		}
	}
	base := l.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// LatencyExperiment slows every call to the service and measures how many
// reads still finish within timeout.
func LatencyExperiment(t Target, latency, timeout time.Duration) Experiment {
	transport := &LatencyTransport{}
	if t.HTTPClient != nil {
		transport.Base = t.HTTPClient.Transport
	}
	members := clients.NewMembershipClient(t.BaseURL, &http.Client{Transport: transport, Timeout: timeout})
	const reads = 10

	return Experiment{
		Name:       "request-latency",
		Hypothesis: "Reads keep succeeding while added latency stays below the client timeout",
		SteadyState: []Metric{
			{
				Name: "read_success_rate",
				Query: func(ctx context.Context) (float64, error) {
					var ok atomic.Int64
					var g errgroup.Group
					for range reads {
						g.Go(func() error {
							if _, err := members.GetMembershipsByUserID(ctx, uuid.New()); err == nil {
								ok.Add(1)
							}
							return nil
						})
					}
					_ = g.Wait()
					return float64(ok.Load()) / reads * 100, nil
				},
				Threshold: Threshold{Operator: ">=", Value: 99},
			},
		},
		Method: []Action{
			{
				Type:       "inject-latency",
				Target:     "membership-service",
				Parameters: map[string]any{"latency": latency},
				Execute: func(context.Context) error {
					transport.Inject(latency)
					return nil
				},
			},
		},
		Rollback: []Action{
			{
				Type:   "remove-latency",
				Target: "membership-service",
				Execute: func(context.Context) error {
					transport.Inject(0)
					return nil
				},
			},
		},
		Validation: []Assertion{
			{
				Metric:    "read_success_rate",
				Condition: func(v float64) bool { return v > 95 },
				Message:   "Read success rate should remain above 95%",
			},
		},
		Duration:       2 * time.Second,
		SampleInterval: 500 * time.Millisecond,
		BlastRadius:    1.0,
	}
}
