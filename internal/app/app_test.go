package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymnexus/internal/channel"
	"gymnexus/internal/clients"
	"gymnexus/internal/config"
	"gymnexus/internal/database/dbtest"
	"gymnexus/internal/discounts"
	"gymnexus/internal/httpx"
	"gymnexus/internal/membership"
	"gymnexus/internal/plans"
	"gymnexus/internal/registration"
	"gymnexus/internal/users"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.ChannelBackend = config.ChannelBackendMemory
	cfg.ConsumeWait = 2 * time.Second
	cfg.RateLimit = 0
	return cfg
}

func TestOpenChannel(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()

	ch, err := OpenChannel(ctx, cfg, nil, nil, nil)
	require.NoError(t, err)
	_, err = channel.PublishJSON(ctx, ch.Publisher, "t", map[string]int{"n": 1})
	require.NoError(t, err)
	d, err := channel.Receive(ctx, ch.Consumers("g"), "t", time.Second)
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, string(d.Payload))

	cfg.ChannelBackend = config.ChannelBackendPostgres
	_, err = OpenChannel(ctx, cfg, nil, nil, nil)
	assert.Error(t, err, "postgres backend needs a database")

	cfg.ChannelBackend = "kafka"
	_, err = OpenChannel(ctx, cfg, nil, nil, nil)
	assert.Error(t, err)
}

func TestRegistrationRouter(t *testing.T) {
	db, err := registration.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	mem := channel.NewMemory(nil)
	srv := httptest.NewServer(NewRegistrationRouter(db, Deps{
		Config:   testConfig(),
		Registry: prometheus.NewRegistry(),
		Channel:  MemoryChannel(mem),
	}))
	defer srv.Close()

	body := `{"firstName":"Ana","lastName":"Lima","email":"ana@gym.test","height":172.5,"weight":64}`
	resp, err := http.Post(srv.URL+"/api/registration/", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got registration.Registration
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.NotEqual(t, uuid.Nil, got.ID)
	assert.Equal(t, 1, mem.Len(registration.Topic))

	resp, err = http.Get(srv.URL + "/api/registration/" + got.ID.String())
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func postJSON(t *testing.T, url string, v any) httpx.MessageResponse {
	t.Helper()
	buf, err := json.Marshal(v)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(buf))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out httpx.MessageResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// TestMembershipFlow drives the membership service end to end: two users,
// one plan, a discount for the second user, then a membership created for
// the first user and moved to the second.
func TestMembershipFlow(t *testing.T) {
	db := dbtest.Open(t)
	srv := httptest.NewServer(NewMembershipRouter(db, Deps{
		Config:   testConfig(),
		Registry: prometheus.NewRegistry(),
		Channel:  MemoryChannel(channel.NewMemory(nil)),
	}))
	defer srv.Close()

	ctx := context.Background()
	members := clients.NewMembershipClient(srv.URL, srv.Client())
	catalog := clients.NewCatalogClient(srv.URL, srv.Client())

	var userIDs []uuid.UUID
	for _, name := range []string{"ana", "bo"} {
		req := users.RegisterRequest{
			ID:       uuid.New(),
			Username: name + "-" + uuid.NewString(),
			Email:    uuid.NewString() + "@gym.test",
			Password: "s3cret",
		}
		resp, err := members.RegisterUser(ctx, req)
		require.NoError(t, err)
		require.Equal(t, string(users.OutcomeRegistered), resp.Message)
		userIDs = append(userIDs, req.ID)
	}
	userA, userB := userIDs[0], userIDs[1]

	planName := "monthly-" + uuid.NewString()
	resp, err := catalog.CreateMembershipType(ctx, plans.MembershipType{
		Name:  planName,
		Price: decimal.RequireFromString("100.00"),
	})
	require.NoError(t, err)
	require.Equal(t, string(plans.OutcomeCreated), resp.Message)
	plan, err := catalog.GetMembershipTypeByName(ctx, planName)
	require.NoError(t, err)
	require.NotNil(t, plan)

	now := time.Now().UTC().Truncate(time.Second)
	discResp := postJSON(t, srv.URL+"/api/discount/", discounts.Discount{
		UserID:     userB,
		Percentage: decimal.NewFromInt(30),
		StartDate:  now.Add(-time.Hour),
		EndDate:    now.Add(24 * time.Hour),
		IsActive:   true,
	})
	require.Equal(t, string(discounts.OutcomeCreated), discResp.Message)

	m := membership.Membership{
		UserID:           userA,
		MembershipTypeID: plan.ID,
		StartDate:        now,
		EndDate:          now.AddDate(0, 1, 0),
		IsActive:         true,
	}
	resp, err = members.CreateMembership(ctx, m)
	require.NoError(t, err)
	require.Equal(t, string(membership.OutcomeCreated), resp.Message)
	id, err := uuid.Parse(resp.ID)
	require.NoError(t, err)

	resp, err = members.CreateMembership(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, string(membership.OutcomeDuplicate), resp.Message)

	stored, err := members.GetMembership(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, decimal.NewFromInt(100).Equal(stored.Price), "no discount for the first user: %s", stored.Price)

	m.UserID = userB
	buf, err := json.Marshal(m)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPut, srv.URL+"/api/membership/edit/"+id.String(), bytes.NewReader(buf))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	editResp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer editResp.Body.Close()
	require.Equal(t, http.StatusOK, editResp.StatusCode)
	var edited membership.Membership
	require.NoError(t, json.NewDecoder(editResp.Body).Decode(&edited))
	assert.Equal(t, userB, edited.UserID)
	assert.True(t, decimal.NewFromInt(70).Equal(edited.Price), "30%% off for the second user: %s", edited.Price)

	byUser, err := members.GetMembershipsByUserID(ctx, userB)
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	assert.Equal(t, id, byUser[0].ID)
}
