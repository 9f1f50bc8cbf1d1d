// internal/clients/catalog_client.go
package clients

import (
	"context"
	"net/http"
	"net/url"

	"gymnexus/internal/httpx"
	"gymnexus/internal/plans"
)

// CatalogClient calls the membership type endpoints.
type CatalogClient struct {
	baseClient
}

func NewCatalogClient(baseURL string, httpClient *http.Client) *CatalogClient {
	return &CatalogClient{baseClient: newBaseClient(baseURL, httpClient)}
}

func (c *CatalogClient) CreateMembershipType(ctx context.Context, mt plans.MembershipType) (*httpx.MessageResponse, error) {
	var resp httpx.MessageResponse
	if err := c.do(ctx, http.MethodPost, "/api/membershiptypes", mt, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetMembershipTypeByName returns (nil, nil) when no plan has that name.
func (c *CatalogClient) GetMembershipTypeByName(ctx context.Context, name string) (*plans.MembershipType, error) {
	var mt plans.MembershipType
	err := c.do(ctx, http.MethodGet, "/api/membershiptypes/name/"+url.PathEscape(name), nil, &mt)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &mt, nil
}
