// internal/plans/service.go
package plans

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for the membership type catalog.
type Service interface {
	// CreateMembershipType consumes one request from Topic and stores it
	// under a freshly generated id.
	CreateMembershipType(ctx context.Context) (*CreateResult, error)
	ProcessCreate(ctx context.Context, mt MembershipType) (*CreateResult, error)
	GetMembershipTypeByID(ctx context.Context, id uuid.UUID) (*MembershipType, error)
	GetMembershipTypeByName(ctx context.Context, name string) (*MembershipType, error)
	ListMembershipTypes(ctx context.Context) ([]*MembershipType, error)
	UpdateMembershipType(ctx context.Context, mt MembershipType) (Outcome, error)
	DeleteMembershipType(ctx context.Context, id uuid.UUID) (Outcome, error)
}

// Store persists membership types. Lookups return (nil, nil) when nothing
// matches.
type Store interface {
	InsertMembershipType(ctx context.Context, mt *MembershipType) error
	GetMembershipType(ctx context.Context, id uuid.UUID) (*MembershipType, error)
	GetMembershipTypeByName(ctx context.Context, name string) (*MembershipType, error)
	ListMembershipTypes(ctx context.Context) ([]*MembershipType, error)
	UpdateMembershipType(ctx context.Context, mt *MembershipType) error
	DeleteMembershipType(ctx context.Context, id uuid.UUID) error
}
