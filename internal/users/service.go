// internal/users/service.go
package users

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for the user directory.
type Service interface {
	// RegisterUser consumes one request from Topic and registers it.
	RegisterUser(ctx context.Context) (*RegisterResult, error)
	ProcessRegister(ctx context.Context, req RegisterRequest) (*RegisterResult, error)
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsersByEmail(ctx context.Context, email string) ([]*User, error)
	Authenticate(ctx context.Context, login, password string) (*User, error)
	EditUser(ctx context.Context, id uuid.UUID, req EditRequest) (*User, error)
}

// Store persists users and their credentials. Lookups return (nil, nil)
// when nothing matches.
type Store interface {
	InsertUser(ctx context.Context, user *User, cred *Credential) error
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	ListUsersByEmail(ctx context.Context, email string) ([]*User, error)
	ListUsersByUsername(ctx context.Context, username string) ([]*User, error)
	GetCredential(ctx context.Context, userID uuid.UUID) (*Credential, error)
	UpdateUser(ctx context.Context, user *User, cred *Credential) error
}
