// internal/discounts/service.go
package discounts

import (
	"context"

	"github.com/google/uuid"

	"gymnexus/internal/users"
)

// Service defines the interface for the discount ledger.
type Service interface {
	// CreateDiscount consumes one request from Topic and stores it under a
	// fresh id once the owning user is known.
	CreateDiscount(ctx context.Context) (*CreateResult, error)
	ProcessCreate(ctx context.Context, d Discount) (*CreateResult, error)
	GetDiscountByID(ctx context.Context, id uuid.UUID) (*Discount, error)
	// GetDiscountByUserID selects the one discount consulted when pricing a
	// membership for userID.
	GetDiscountByUserID(ctx context.Context, userID uuid.UUID) (*Discount, error)
	ListDiscountsByUserID(ctx context.Context, userID uuid.UUID) ([]*Discount, error)
	UpdateDiscount(ctx context.Context, d Discount) (Outcome, error)
	DeleteDiscount(ctx context.Context, id uuid.UUID) (Outcome, error)
}

// UserDirectory resolves discount owners.
type UserDirectory interface {
	GetUser(ctx context.Context, id uuid.UUID) (*users.User, error)
}

// Store persists discounts. Lookups return (nil, nil) when nothing matches.
type Store interface {
	InsertDiscount(ctx context.Context, d *Discount) error
	GetDiscount(ctx context.Context, id uuid.UUID) (*Discount, error)
	ListDiscountsByUserID(ctx context.Context, userID uuid.UUID) ([]*Discount, error)
	UpdateDiscount(ctx context.Context, d *Discount) error
	DeleteDiscount(ctx context.Context, id uuid.UUID) error
}
