// internal/plans/domain.go
package plans

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gymnexus/internal/channel"
)

// Topic carries membership type creation requests.
const Topic = "membership_type_post_topic"

// MembershipType is a priced plan a user can subscribe to. Names are unique
// by convention only.
type MembershipType struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
}

// Outcome is the caller-facing result of a catalog mutation.
type Outcome string

const (
	OutcomeCreated  Outcome = "Membership type created"
	OutcomeNotFound Outcome = "Membership type does not exist"
	OutcomeUpdated  Outcome = "Membership type updated"
	OutcomeDeleted  Outcome = "Membership type deleted"
)

// CreateResult is returned by a creation.
type CreateResult struct {
	Outcome        Outcome         `json:"message"`
	MembershipType *MembershipType `json:"membershipType,omitempty"`
}

// ErrMalformedPayload wraps requests that cannot be decoded or carry an
// invalid plan.
var ErrMalformedPayload = channel.ErrMalformedPayload
