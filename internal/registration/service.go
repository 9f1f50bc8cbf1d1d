// internal/registration/service.go
package registration

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for the registration service.
type Service interface {
	// Register stores r under a new id and then announces it on Topic.
	Register(ctx context.Context, r Registration) (*Registration, error)
	GetRegistration(ctx context.Context, id uuid.UUID) (*Registration, error)
	ListRegistrations(ctx context.Context) ([]*Registration, error)
}

// Store persists registrations. GetRegistration returns (nil, nil) when the
// id is unknown.
type Store interface {
	SaveRegistration(ctx context.Context, r *Registration) error
	GetRegistration(ctx context.Context, id uuid.UUID) (*Registration, error)
	ListRegistrations(ctx context.Context) ([]*Registration, error)
}
