package membership

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"gymnexus/internal/discounts"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func activeDiscount(pct string) *discounts.Discount {
	return &discounts.Discount{
		ID:         uuid.New(),
		Percentage: dec(pct),
		StartDate:  now.Add(-24 * time.Hour),
		EndDate:    now.Add(24 * time.Hour),
		IsActive:   true,
	}
}

func TestEffectivePrice(t *testing.T) {
	inactive := activeDiscount("50")
	inactive.IsActive = false
	expired := activeDiscount("50")
	expired.EndDate = now.Add(-time.Second)
	endsNow := activeDiscount("50")
	endsNow.EndDate = now

	tests := []struct {
		name     string
		list     string
		discount *discounts.Discount
		want     string
	}{
		{name: "no discount", list: "100.00", want: "100"},
		{name: "active discount", list: "100.00", discount: activeDiscount("20"), want: "80"},
		{name: "fractional result", list: "49.99", discount: activeDiscount("10"), want: "44.991"},
		{name: "inactive discount", list: "100", discount: inactive, want: "100"},
		{name: "expired discount", list: "100", discount: expired, want: "100"},
		{name: "discount ending now", list: "100", discount: endsNow, want: "100"},
		{name: "over one hundred percent", list: "100", discount: activeDiscount("150"), want: "0"},
		{name: "negative percentage", list: "100", discount: activeDiscount("-10"), want: "100"},
		{name: "free plan", list: "0", discount: activeDiscount("30"), want: "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EffectivePrice(dec(tt.list), tt.discount, now)
			assert.True(t, dec(tt.want).Equal(got), "got %s, want %s", got, tt.want)
		})
	}
}

func TestEffectivePriceProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		list := decimal.New(rapid.Int64Range(0, 10_000_000).Draw(t, "cents"), -2)
		pct := decimal.New(rapid.Int64Range(-5_000, 20_000).Draw(t, "pct"), -2)
		d := &discounts.Discount{
			Percentage: pct,
			EndDate:    now.Add(time.Duration(rapid.IntRange(-48, 48).Draw(t, "hours")) * time.Hour),
			IsActive:   rapid.Bool().Draw(t, "active"),
		}

		price := EffectivePrice(list, d, now)
		if price.IsNegative() || price.GreaterThan(list) {
			t.Fatalf("price %s outside [0, %s]", price, list)
		}
		if !d.AppliesAt(now) && !price.Equal(list) {
			t.Fatalf("discount does not apply but price %s != list %s", price, list)
		}
		if !EffectivePrice(list, nil, now).Equal(list) {
			t.Fatalf("nil discount changed the price")
		}
		if d.AppliesAt(now) && !pct.IsNegative() && pct.LessThanOrEqual(hundred) {
			want := list.Mul(hundred.Sub(pct)).Shift(-2)
			if !price.Equal(want) {
				t.Fatalf("price %s, want %s", price, want)
			}
		}

		deeper := *d
		deeper.Percentage = pct.Add(decimal.New(rapid.Int64Range(0, 5_000).Draw(t, "extra"), -2))
		if EffectivePrice(list, &deeper, now).GreaterThan(price) {
			t.Fatalf("a larger discount raised the price")
		}
	})
}

type fakeLedger map[uuid.UUID][]*discounts.Discount

func (f fakeLedger) ListDiscountsByUserID(_ context.Context, userID uuid.UUID) ([]*discounts.Discount, error) {
	return f[userID], nil
}

type failingLedger struct{ err error }

func (f failingLedger) ListDiscountsByUserID(context.Context, uuid.UUID) ([]*discounts.Discount, error) {
	return nil, f.err
}

func TestPricer(t *testing.T) {
	ctx := context.Background()
	discounted := uuid.New()
	p := NewPricer(fakeLedger{discounted: {activeDiscount("25")}}, func() time.Time { return now })

	got, err := p.Price(ctx, dec("200"), discounted)
	require.NoError(t, err)
	assert.True(t, dec("150").Equal(got))

	got, err = p.Price(ctx, dec("200"), uuid.New())
	require.NoError(t, err)
	assert.True(t, dec("200").Equal(got))

	down := errors.New("ledger down")
	_, err = NewPricer(failingLedger{err: down}, nil).Price(ctx, dec("1"), uuid.New())
	assert.ErrorIs(t, err, down)
}

func TestPricerSelectsOnItsOwnClock(t *testing.T) {
	user := uuid.New()
	// expired before now, but starts later than the one that applies
	lapsed := &discounts.Discount{
		ID:         uuid.New(),
		Percentage: dec("50"),
		StartDate:  now.Add(-2 * time.Hour),
		EndDate:    now.Add(-time.Hour),
		IsActive:   true,
	}
	running := &discounts.Discount{
		ID:         uuid.New(),
		Percentage: dec("10"),
		StartDate:  now.Add(-48 * time.Hour),
		EndDate:    now.Add(48 * time.Hour),
		IsActive:   true,
	}
	ledger := fakeLedger{user: {running, lapsed}}

	got, err := NewPricer(ledger, func() time.Time { return now }).Price(context.Background(), dec("100"), user)
	require.NoError(t, err)
	assert.True(t, dec("90").Equal(got), "got %s", got)

	// ninety minutes earlier the later discount was still running
	earlier := now.Add(-90 * time.Minute)
	got, err = NewPricer(ledger, func() time.Time { return earlier }).Price(context.Background(), dec("100"), user)
	require.NoError(t, err)
	assert.True(t, dec("50").Equal(got), "got %s", got)
}
