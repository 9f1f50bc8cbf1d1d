package discounts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymnexus/internal/database/dbtest"
)

func TestPGStore(t *testing.T) {
	store := NewPGStore(dbtest.Open(t))
	ctx := context.Background()

	start := time.Now().UTC().Truncate(time.Microsecond)
	d := &Discount{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		Percentage: decimal.RequireFromString("12.5"),
		StartDate:  start,
		EndDate:    start.Add(30 * 24 * time.Hour),
		IsActive:   true,
	}
	require.NoError(t, store.InsertDiscount(ctx, d))

	got, err := store.GetDiscount(ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, d.Percentage.Equal(got.Percentage))
	assert.True(t, d.StartDate.Equal(got.StartDate))
	assert.Equal(t, time.UTC, got.EndDate.Location())

	later := *d
	later.ID = uuid.New()
	later.StartDate = start.Add(time.Hour)
	require.NoError(t, store.InsertDiscount(ctx, &later))

	list, err := store.ListDiscountsByUserID(ctx, d.UserID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, later.ID, list[0].ID, "latest start first")

	d.IsActive = false
	require.NoError(t, store.UpdateDiscount(ctx, d))
	got, err = store.GetDiscount(ctx, d.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	require.NoError(t, store.DeleteDiscount(ctx, d.ID))
	got, err = store.GetDiscount(ctx, d.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
