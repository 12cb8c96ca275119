package cart

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentx-marketplace/service-rental/internal/platform/domain"
)

func TestCart_AddMergesQuantity(t *testing.T) {
	c := New(uuid.New())
	v := uuid.New()

	require.NoError(t, c.Add(v, 1))
	require.NoError(t, c.Add(v, 2))
	require.NoError(t, c.Add(uuid.New(), 1))

	items := c.Items()
	require.Len(t, items, 2)
	assert.Equal(t, 3, items[0].Quantity)
}

func TestCart_SetQuantity(t *testing.T) {
	c := New(uuid.New())
	v := uuid.New()
	require.NoError(t, c.Add(v, 1))

	require.NoError(t, c.SetQuantity(v, 5))
	assert.Equal(t, 5, c.Items()[0].Quantity)

	assert.True(t, errors.Is(c.SetQuantity(v, 0), domain.ErrValidation))
	assert.True(t, errors.Is(c.SetQuantity(uuid.New(), 2), domain.ErrNotFound))
}

func TestCart_Remove(t *testing.T) {
	c := New(uuid.New())
	a, b, d := uuid.New(), uuid.New(), uuid.New()
	for _, id := range []uuid.UUID{a, b, d} {
		require.NoError(t, c.Add(id, 1))
	}

	c.Remove(a, d, uuid.New())

	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, b, items[0].VehicleID)
}

func TestCart_ItemsIsACopy(t *testing.T) {
	c := New(uuid.New())
	require.NoError(t, c.Add(uuid.New(), 1))

	items := c.Items()
	items[0].Quantity = 99
	assert.Equal(t, 1, c.Items()[0].Quantity)
}
