package plans

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymnexus/internal/database/dbtest"
)

func TestPGStore(t *testing.T) {
	store := NewPGStore(dbtest.Open(t))
	ctx := context.Background()

	mt := &MembershipType{
		ID:          uuid.New(),
		Name:        "plan-" + uuid.NewString(),
		Description: "test",
		Price:       decimal.RequireFromString("49.99"),
	}
	require.NoError(t, store.InsertMembershipType(ctx, mt))

	got, err := store.GetMembershipType(ctx, mt.ID)
	require.NoError(t, err)
	assert.True(t, mt.Price.Equal(got.Price))

	byName, err := store.GetMembershipTypeByName(ctx, mt.Name)
	require.NoError(t, err)
	assert.Equal(t, mt.ID, byName.ID)

	mt.Price = decimal.RequireFromString("59.99")
	require.NoError(t, store.UpdateMembershipType(ctx, mt))
	got, err = store.GetMembershipType(ctx, mt.ID)
	require.NoError(t, err)
	assert.True(t, mt.Price.Equal(got.Price))

	all, err := store.ListMembershipTypes(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, all)

	require.NoError(t, store.DeleteMembershipType(ctx, mt.ID))
	got, err = store.GetMembershipType(ctx, mt.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
