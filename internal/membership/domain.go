// internal/membership/domain.go
package membership

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gymnexus/internal/channel"
)

// Topic carries membership creation requests.
const Topic = "membership_post_topic"

// Membership ties a user to a plan for a period. Price is derived from the
// plan's list price and the owner's discount whenever the record is read or
// written; a caller-supplied price is never trusted.
type Membership struct {
	ID               uuid.UUID       `json:"id"`
	UserID           uuid.UUID       `json:"userId"`
	MembershipTypeID uuid.UUID       `json:"membershipTypeId"`
	StartDate        time.Time       `json:"startDate"`
	EndDate          time.Time       `json:"endDate"`
	IsActive         bool            `json:"isActive"`
	Price            decimal.Decimal `json:"price"`
}

// sameIntent reports whether m and o request the same plan, activity and
// period. Owners are compared by the caller.
func (m *Membership) sameIntent(o *Membership) bool {
	return m.MembershipTypeID == o.MembershipTypeID &&
		m.IsActive == o.IsActive &&
		m.StartDate.Equal(o.StartDate) &&
		m.EndDate.Equal(o.EndDate)
}

// Outcome is the caller-facing result of a creation. Every outcome other
// than OutcomeCreated leaves the store untouched.
type Outcome string

const (
	OutcomeCreated      Outcome = "Membership created"
	OutcomeDuplicate    Outcome = "Membership with the same properties already exist"
	OutcomePlanNotFound Outcome = "Creating membership failed - membership type does not exist."
	OutcomeIDCollision  Outcome = "Membership with id already exist"
	OutcomeUserNotFound Outcome = "Creating membership failed - user does not exist."
)

// label is the metric label for o.
func (o Outcome) label() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomePlanNotFound:
		return "plan_not_found"
	case OutcomeIDCollision:
		return "id_collision"
	case OutcomeUserNotFound:
		return "user_not_found"
	default:
		return "unknown"
	}
}

// CreateResult is returned by a creation. Membership is set only when a row
// was written.
type CreateResult struct {
	Outcome    Outcome     `json:"message"`
	Membership *Membership `json:"membership,omitempty"`
}

var (
	// ErrMalformedPayload wraps creation payloads that cannot be decoded.
	ErrMalformedPayload = channel.ErrMalformedPayload
	// ErrPlanNotFound is returned when an edit names a plan the catalog
	// does not hold.
	ErrPlanNotFound = errors.New("membership type does not exist")
)
