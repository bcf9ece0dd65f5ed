package analytics

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geoestate/server/internal/engine"
	"geoestate/server/internal/models"
)

var hoodRing = orb.Ring{{4.88, 52.36}, {4.92, 52.36}, {4.92, 52.38}, {4.88, 52.38}, {4.88, 52.36}}

func intPtr(n int) *int { return &n }

func hoodProperty(id string, price float64, listedDaysAgo int, now time.Time) models.Property {
	return models.Property{
		ID:           id,
		Price:        price,
		Bedrooms:     3,
		Bathrooms:    2,
		LivingArea:   intPtr(100),
		PropertyType: "condo",
		Status:       models.StatusActive,
		Longitude:    4.90,
		Latitude:     52.37,
		ListedAt:     now.AddDate(0, 0, -listedDaysAgo),
	}
}

func analyticsService(props []models.Property) *Service {
	eng := engine.New(0, logrus.New())
	eng.Reload(props, []models.Neighborhood{{Name: "Centrum", Boundary: hoodRing}})
	return NewService(eng, logrus.New())
}

func TestNeighborhoodStats_Median(t *testing.T) {
	now := time.Now()
	svc := analyticsService([]models.Property{
		hoodProperty("a", 600000, 10, now),
		hoodProperty("b", 700000, 10, now),
		hoodProperty("c", 800000, 10, now),
	})

	stats, err := svc.NeighborhoodStats("Centrum", now)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Count)
	assert.Equal(t, 700000.0, stats.MedianPrice)
	assert.InDelta(t, 7000.0, stats.AvgPricePerArea, 1e-9)
	assert.InDelta(t, 10.0, stats.AvgDaysOnMarket, 0.01)

	// No listings 30-60 days back, so no trend rather than an error.
	assert.Nil(t, stats.Trend30d)
}

func TestNeighborhoodStats_MedianInterpolation(t *testing.T) {
	now := time.Now()
	svc := analyticsService([]models.Property{
		hoodProperty("a", 400000, 5, now),
		hoodProperty("b", 500000, 5, now),
		hoodProperty("c", 600000, 5, now),
		hoodProperty("d", 900000, 5, now),
	})

	stats, err := svc.NeighborhoodStats("Centrum", now)
	require.NoError(t, err)
	assert.Equal(t, 550000.0, stats.MedianPrice)
}

func TestNeighborhoodStats_Trend(t *testing.T) {
	now := time.Now()
	svc := analyticsService([]models.Property{
		hoodProperty("new1", 660000, 5, now),
		hoodProperty("new2", 660000, 10, now),
		hoodProperty("new3", 660000, 15, now),
		hoodProperty("old1", 580000, 45, now), // baseline window (30,60]
		hoodProperty("old2", 620000, 50, now),
	})

	stats, err := svc.NeighborhoodStats("Centrum", now)
	require.NoError(t, err)
	require.NotNil(t, stats.Trend30d)

	// Median of all five is 660000; baseline mean is 600000 → +10%.
	assert.InDelta(t, 10.0, *stats.Trend30d, 0.01)
}

func TestNeighborhoodStats_Empty(t *testing.T) {
	now := time.Now()
	svc := analyticsService(nil)

	stats, err := svc.NeighborhoodStats("Centrum", now)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Count)
	assert.Equal(t, 0.0, stats.MedianPrice)
	assert.Nil(t, stats.Trend30d)
}

func TestNeighborhoodStats_UnknownNeighborhood(t *testing.T) {
	svc := analyticsService(nil)
	_, err := svc.NeighborhoodStats("Nowhere", time.Now())
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func TestNeighborhoodStats_ExcludesInactive(t *testing.T) {
	now := time.Now()
	sold := hoodProperty("sold", 100000, 5, now)
	sold.Status = models.StatusSold
	svc := analyticsService([]models.Property{
		hoodProperty("a", 700000, 5, now),
		sold,
	})

	stats, err := svc.NeighborhoodStats("Centrum", now)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Count)
	assert.Equal(t, 700000.0, stats.MedianPrice)
}

func TestNeighborhoodStats_NotTruncatedByResultCap(t *testing.T) {
	now := time.Now()
	props := make([]models.Property, 10)
	for i := range props {
		props[i] = hoodProperty(fmt.Sprintf("p%02d", i), 500000+float64(i)*10000, 5, now)
	}

	// An engine capped well below the listing count must still aggregate
	// over every property in the boundary.
	eng := engine.New(5, logrus.New())
	eng.Reload(props, []models.Neighborhood{{Name: "Centrum", Boundary: hoodRing}})
	svc := NewService(eng, logrus.New())

	stats, err := svc.NeighborhoodStats("Centrum", now)
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Count)
	assert.Equal(t, 545000.0, stats.MedianPrice)
}

func TestHeatmap_EmptyGridHasNoNaN(t *testing.T) {
	svc := analyticsService(nil)
	bound := orb.Bound{Min: orb.Point{4.8, 52.3}, Max: orb.Point{5.0, 52.4}}

	grid, err := svc.Heatmap(bound, 4)
	require.NoError(t, err)
	require.Len(t, grid, 4)

	for _, row := range grid {
		require.Len(t, row, 4)
		for _, cell := range row {
			assert.Equal(t, 0, cell.Count)
			assert.Equal(t, 0.0, cell.AvgPrice)
			assert.Equal(t, 0.0, cell.AvgPricePerArea)
			assert.False(t, math.IsNaN(cell.AvgPrice))
			assert.False(t, math.IsNaN(cell.AvgPricePerArea))
		}
	}
}

func TestHeatmap_Aggregation(t *testing.T) {
	now := time.Now()
	sw := hoodProperty("sw", 400000, 5, now)
	sw.Longitude, sw.Latitude = 4.81, 52.31
	sw2 := hoodProperty("sw2", 600000, 5, now)
	sw2.Longitude, sw2.Latitude = 4.82, 52.32
	ne := hoodProperty("ne", 900000, 5, now)
	ne.Longitude, ne.Latitude = 4.99, 52.39

	svc := analyticsService([]models.Property{sw, sw2, ne})
	bound := orb.Bound{Min: orb.Point{4.8, 52.3}, Max: orb.Point{5.0, 52.4}}

	grid, err := svc.Heatmap(bound, 2)
	require.NoError(t, err)

	assert.Equal(t, 2, grid[0][0].Count)
	assert.Equal(t, 500000.0, grid[0][0].AvgPrice)
	assert.Equal(t, 1, grid[1][1].Count)
	assert.Equal(t, 900000.0, grid[1][1].AvgPrice)
	assert.Equal(t, 0, grid[0][1].Count)
	assert.Equal(t, 0, grid[1][0].Count)

	// Cell centers sit at the cell midpoints.
	assert.InDelta(t, 4.85, grid[0][0].CenterLon, 1e-9)
	assert.InDelta(t, 52.325, grid[0][0].CenterLat, 1e-9)
}

func TestHeatmap_InvalidInputs(t *testing.T) {
	svc := analyticsService(nil)
	bound := orb.Bound{Min: orb.Point{4.8, 52.3}, Max: orb.Point{5.0, 52.4}}

	_, err := svc.Heatmap(bound, 0)
	assert.ErrorIs(t, err, engine.ErrInvalidInput)

	inverted := orb.Bound{Min: orb.Point{5.0, 52.4}, Max: orb.Point{4.8, 52.3}}
	_, err = svc.Heatmap(inverted, 2)
	assert.ErrorIs(t, err, engine.ErrInvalidGeometry)
}
