// internal/clients/membership_client.go
package clients

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"gymnexus/internal/httpx"
	"gymnexus/internal/membership"
	"gymnexus/internal/users"
)

// MembershipClient calls the membership and user endpoints of the
// membership service.
type MembershipClient struct {
	baseClient
}

func NewMembershipClient(baseURL string, httpClient *http.Client) *MembershipClient {
	return &MembershipClient{baseClient: newBaseClient(baseURL, httpClient)}
}

func (c *MembershipClient) CreateMembership(ctx context.Context, m membership.Membership) (*httpx.MessageResponse, error) {
	var resp httpx.MessageResponse
	if err := c.do(ctx, http.MethodPost, "/api/membership", m, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetMembership returns (nil, nil) when the membership does not exist.
func (c *MembershipClient) GetMembership(ctx context.Context, id uuid.UUID) (*membership.Membership, error) {
	var m membership.Membership
	err := c.do(ctx, http.MethodGet, "/api/membership/"+id.String(), nil, &m)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *MembershipClient) GetMembershipsByUserID(ctx context.Context, userID uuid.UUID) ([]*membership.Membership, error) {
	var ms []*membership.Membership
	if err := c.do(ctx, http.MethodGet, "/api/membership/user/"+userID.String(), nil, &ms); err != nil {
		return nil, err
	}
	return ms, nil
}

func (c *MembershipClient) RegisterUser(ctx context.Context, req users.RegisterRequest) (*httpx.MessageResponse, error) {
	var resp httpx.MessageResponse
	if err := c.do(ctx, http.MethodPost, "/api/registration", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
