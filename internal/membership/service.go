// internal/membership/service.go
package membership

import (
	"context"

	"github.com/google/uuid"

	"gymnexus/internal/plans"
	"gymnexus/internal/users"
)

// Service defines the interface for the membership engine.
type Service interface {
	// CreateMembership consumes one creation request from Topic and
	// processes it. The delivery is committed once processing finishes,
	// whatever the outcome.
	CreateMembership(ctx context.Context) (*CreateResult, error)
	// ProcessCreate runs the creation steps for an already received payload.
	ProcessCreate(ctx context.Context, payload []byte) (*CreateResult, error)
	GetMembership(ctx context.Context, id uuid.UUID) (*Membership, error)
	GetMembershipsByUserID(ctx context.Context, userID uuid.UUID) ([]*Membership, error)
	// EditMembership moves a membership to another plan, owner or activity.
	// Start and end dates are kept.
	EditMembership(ctx context.Context, id uuid.UUID, m Membership) (*Membership, error)
}

// Store persists memberships. Lookups return (nil, nil) when nothing
// matches.
type Store interface {
	InsertMembership(ctx context.Context, m *Membership) error
	GetMembership(ctx context.Context, id uuid.UUID) (*Membership, error)
	ListMembershipsByUserID(ctx context.Context, userID uuid.UUID) ([]*Membership, error)
	UpdateMembership(ctx context.Context, m *Membership) error
}

// Catalog resolves plans.
type Catalog interface {
	GetMembershipTypeByID(ctx context.Context, id uuid.UUID) (*plans.MembershipType, error)
}

// UserDirectory resolves membership owners.
type UserDirectory interface {
	GetUser(ctx context.Context, id uuid.UUID) (*users.User, error)
}
