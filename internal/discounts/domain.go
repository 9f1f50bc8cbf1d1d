// internal/discounts/domain.go
package discounts

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gymnexus/internal/channel"
)

// Topic carries discount creation requests.
const Topic = "discount_post_topic"

// Discount is a percentage reduction granted to one user for a window of
// time. Percentage is expected in [0, 100] but not enforced on write.
type Discount struct {
	ID         uuid.UUID       `json:"id"`
	UserID     uuid.UUID       `json:"userId"`
	Percentage decimal.Decimal `json:"percentage"`
	StartDate  time.Time       `json:"startDate"`
	EndDate    time.Time       `json:"endDate"`
	IsActive   bool            `json:"isActive"`
}

// AppliesAt reports whether the discount is active and not yet expired at
// now. A nil discount never applies.
func (d *Discount) AppliesAt(now time.Time) bool {
	return d != nil && d.IsActive && d.EndDate.After(now)
}

// Outcome is the caller-facing result of a ledger mutation.
type Outcome string

const (
	OutcomeCreated  Outcome = "Discount created successfully!"
	OutcomeUpdated  Outcome = "Discount updated successfully!"
	OutcomeDeleted  Outcome = "Discount deleted successfully!"
	OutcomeNotFound Outcome = "Discount does not exist!"
)

// UserNotFoundOutcome reports a discount for an unknown user.
func UserNotFoundOutcome(userID uuid.UUID) Outcome {
	return Outcome(fmt.Sprintf("User with id %s does not exist!", userID))
}

// CreateResult is returned by a creation. Discount is set only when the
// discount was stored.
type CreateResult struct {
	Outcome  Outcome   `json:"message"`
	Discount *Discount `json:"discount,omitempty"`
}

// ErrMalformedPayload wraps requests that cannot be decoded.
var ErrMalformedPayload = channel.ErrMalformedPayload
