// internal/users/domain.go
package users

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"gymnexus/internal/channel"
)

// Topic carries user registration requests.
const Topic = "user_post_topic"

// User is a person known to the membership service.
type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Credential holds a user's hashed password.
type Credential struct {
	UserID       uuid.UUID `json:"-"`
	PasswordHash string    `json:"-"`
	Salt         string    `json:"-"`
}

// RegisterRequest is the message published on Topic. A zero ID asks the
// service to generate one.
type RegisterRequest struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Password string    `json:"password"`
}

// EditRequest overwrites a user's username, email and password.
type EditRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Outcome is the caller-facing result of a registration or edit.
type Outcome string

const (
	OutcomeRegistered    Outcome = "User registered"
	OutcomeIDExists      Outcome = "User with id already exist"
	OutcomeUsernameTaken Outcome = "User with the same name already exist"
	OutcomeEdited        Outcome = "User edited"
)

// RegisterResult is returned by a registration. User is set only when the
// user was registered.
type RegisterResult struct {
	Outcome Outcome `json:"message"`
	User    *User   `json:"user,omitempty"`
}

var (
	// ErrMalformedPayload wraps requests that cannot be decoded or lack
	// required fields.
	ErrMalformedPayload = channel.ErrMalformedPayload
	// ErrInvalidCredentials is returned when no user matches a login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRateLimited is returned when too many logins are attempted.
	ErrRateLimited = errors.New("rate limit exceeded")
)
