package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geoestate/server/internal/models"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"), logrus.New())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestApplyListingBatch_AssignsIDs(t *testing.T) {
	store := tempStore(t)

	batch := []*models.Property{
		{Address: "Keizersgracht 1", Price: 750000, Bedrooms: 3, Longitude: 4.88, Latitude: 52.37},
		{Address: "Keizersgracht 2", Price: 650000, Bedrooms: 2, Longitude: 4.89, Latitude: 52.37},
	}
	require.NoError(t, store.ApplyListingBatch(batch))

	assert.NotEmpty(t, batch[0].ID)
	assert.NotEmpty(t, batch[1].ID)
	assert.Equal(t, models.StatusActive, batch[0].Status)
	assert.False(t, batch[0].ListedAt.IsZero())

	props, err := store.ListProperties()
	require.NoError(t, err)
	assert.Len(t, props, 2)
}

func TestApplyListingBatch_UpsertsByID(t *testing.T) {
	store := tempStore(t)

	p := &models.Property{Address: "Herengracht 10", Price: 900000, Longitude: 4.89, Latitude: 52.37}
	require.NoError(t, store.ApplyListingBatch([]*models.Property{p}))

	// A status transition is an upsert of the same id, never a delete.
	p.Status = models.StatusWithdrawn
	p.Price = 880000
	require.NoError(t, store.ApplyListingBatch([]*models.Property{p}))

	props, err := store.ListProperties()
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, models.StatusWithdrawn, props[0].Status)
	assert.Equal(t, 880000.0, props[0].Price)
}

func TestNeighborhoodRoundTrip(t *testing.T) {
	store := tempStore(t)

	ring := orb.Ring{{4.88, 52.36}, {4.92, 52.36}, {4.92, 52.38}, {4.88, 52.38}, {4.88, 52.36}}
	avg := 725000.0
	require.NoError(t, store.SaveNeighborhoods([]models.Neighborhood{
		{Name: "Grachtengordel", Boundary: ring, AvgPrice: &avg},
	}))

	hoods, err := store.ListNeighborhoods()
	require.NoError(t, err)
	require.Len(t, hoods, 1)
	assert.Equal(t, "Grachtengordel", hoods[0].Name)
	assert.Equal(t, ring, hoods[0].Boundary)
	require.NotNil(t, hoods[0].AvgPrice)
	assert.Equal(t, avg, *hoods[0].AvgPrice)
}

func TestSaveNeighborhoods_RejectsDegenerateBoundary(t *testing.T) {
	store := tempStore(t)

	err := store.SaveNeighborhoods([]models.Neighborhood{
		{Name: "broken", Boundary: orb.Ring{{0, 0}, {1, 1}}},
	})
	assert.Error(t, err)
}

func TestListProperties_Empty(t *testing.T) {
	store := tempStore(t)

	props, err := store.ListProperties()
	require.NoError(t, err)
	assert.Empty(t, props)
}

func TestApplyListingBatch_PreservesListedAt(t *testing.T) {
	store := tempStore(t)

	listed := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	p := &models.Property{Address: "Test", Price: 1, ListedAt: listed, Longitude: 1, Latitude: 1}
	require.NoError(t, store.ApplyListingBatch([]*models.Property{p}))

	props, err := store.ListProperties()
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.True(t, props[0].ListedAt.Equal(listed))
}
