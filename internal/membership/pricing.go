// internal/membership/pricing.go
package membership

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gymnexus/internal/discounts"
)

var hundred = decimal.NewFromInt(100)

// EffectivePrice applies d to list at now. A discount that is absent,
// inactive or expired counts as zero percent. Percentages are clamped to
// [0, 100] so the result never exceeds list and never drops below zero.
func EffectivePrice(list decimal.Decimal, d *discounts.Discount, now time.Time) decimal.Decimal {
	pct := decimal.Zero
	if d.AppliesAt(now) {
		pct = decimal.Min(decimal.Max(d.Percentage, decimal.Zero), hundred)
	}
	price := list.Sub(list.Mul(pct).Shift(-2))
	if price.IsNegative() {
		return decimal.Zero
	}
	return price
}

// DiscountLedger lists the discounts a user holds. The pricer picks the one
// to apply with discounts.Select on its own clock.
type DiscountLedger interface {
	ListDiscountsByUserID(ctx context.Context, userID uuid.UUID) ([]*discounts.Discount, error)
}

// Pricer computes membership prices from the owner's discount.
type Pricer struct {
	ledger DiscountLedger
	now    func() time.Time
}

func NewPricer(ledger DiscountLedger, now func() time.Time) *Pricer {
	if now == nil {
		now = time.Now
	}
	return &Pricer{ledger: ledger, now: now}
}

// Price returns list reduced by the discount that applies to userID.
func (p *Pricer) Price(ctx context.Context, list decimal.Decimal, userID uuid.UUID) (decimal.Decimal, error) {
	ds, err := p.ledger.ListDiscountsByUserID(ctx, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get discount for user %s: %w", userID, err)
	}
	now := p.now()
	return EffectivePrice(list, discounts.Select(ds, now), now), nil
}
