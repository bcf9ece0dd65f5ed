// Package analytics aggregates price statistics over geographic regions:
// per-neighborhood summaries with a 30-day trend, and a coarse grid
// heat-map over an arbitrary bounding box.
package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"

	"geoestate/server/internal/engine"
	"geoestate/server/internal/geometry"
	"geoestate/server/internal/models"
)

// Trend baseline window: listings that went on the market between 60 and
// 30 days ago.
const (
	trendWindowStartDays = 60
	trendWindowEndDays   = 30

	maxGridSize = 100
)

type Service struct {
	engine *engine.Engine
	logger *logrus.Logger
}

func NewService(eng *engine.Engine, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{engine: eng, logger: logger}
}

// NeighborhoodStats summarizes the active listings inside a neighborhood
// boundary. Trend30d is nil when the historical window has no listings;
// an empty baseline is a data condition, not an error.
type NeighborhoodStats struct {
	Neighborhood    string   `json:"neighborhood"`
	Count           int      `json:"count"`
	MedianPrice     float64  `json:"median_price"`
	AvgPricePerArea float64  `json:"avg_price_per_area"`
	AvgDaysOnMarket float64  `json:"avg_days_on_market"`
	Trend30d        *float64 `json:"trend_30d"`
}

// NeighborhoodStats computes aggregates for the named neighborhood as of
// now. Only active properties whose location falls inside the boundary
// (closed-region policy) contribute. The scan deliberately bypasses the
// engine's result cap: aggregates must cover the whole neighborhood, the
// cap exists to bound caller-facing result lists.
func (s *Service) NeighborhoodStats(name string, now time.Time) (NeighborhoodStats, error) {
	hood, err := s.engine.Neighborhood(name)
	if err != nil {
		return NeighborhoodStats{}, err
	}

	candidates, err := s.engine.PropertiesInBound(hood.Boundary.Bound(), engine.Filters{})
	if err != nil {
		return NeighborhoodStats{}, fmt.Errorf("neighborhood %q containment: %w", name, err)
	}

	var contained []models.Property
	for _, p := range candidates {
		if geometry.PointInPolygon(p.Location(), hood.Boundary) {
			contained = append(contained, p)
		}
	}

	stats := NeighborhoodStats{Neighborhood: name, Count: len(contained)}
	if len(contained) == 0 {
		return stats, nil
	}

	prices := make([]float64, 0, len(contained))
	var (
		perAreaSum   float64
		perAreaCount int
		daysSum      float64
	)
	for _, p := range contained {
		prices = append(prices, p.Price)
		if p.LivingArea != nil && *p.LivingArea > 0 {
			perAreaSum += p.Price / float64(*p.LivingArea)
			perAreaCount++
		}
		daysSum += now.Sub(p.ListedAt).Hours() / 24
	}

	stats.MedianPrice = medianInterpolated(prices)
	if perAreaCount > 0 {
		stats.AvgPricePerArea = perAreaSum / float64(perAreaCount)
	}
	stats.AvgDaysOnMarket = daysSum / float64(len(contained))
	stats.Trend30d = s.trend30d(contained, stats.MedianPrice, now)

	return stats, nil
}

// trend30d compares the current median against the mean price of listings
// whose listing timestamp falls 30 to 60 days back. Returns nil when the
// window is empty or the baseline mean is zero.
func (s *Service) trend30d(props []models.Property, currentMedian float64, now time.Time) *float64 {
	windowStart := now.AddDate(0, 0, -trendWindowStartDays)
	windowEnd := now.AddDate(0, 0, -trendWindowEndDays)

	var (
		sum   float64
		count int
	)
	for _, p := range props {
		if !p.ListedAt.Before(windowStart) && p.ListedAt.Before(windowEnd) {
			sum += p.Price
			count++
		}
	}
	if count == 0 {
		return nil
	}
	baseline := sum / float64(count)
	if baseline == 0 {
		return nil
	}

	trend := (currentMedian - baseline) / baseline * 100
	return &trend
}

// medianInterpolated returns the linearly interpolated median of prices.
func medianInterpolated(prices []float64) float64 {
	if len(prices) == 0 {
		return 0
	}
	sorted := append([]float64(nil), prices...)
	sort.Float64s(sorted)

	mid := float64(len(sorted)-1) / 2
	lo := int(mid)
	if float64(lo) == mid {
		return sorted[lo]
	}
	frac := mid - float64(lo)
	return sorted[lo]*(1-frac) + sorted[lo+1]*frac
}

// HeatmapCell is one aggregation cell of the price heat-map. Empty cells
// report zero averages rather than NaN so the grid always serializes
// cleanly.
type HeatmapCell struct {
	CenterLon       float64 `json:"center_lon"`
	CenterLat       float64 `json:"center_lat"`
	Count           int     `json:"count"`
	AvgPrice        float64 `json:"avg_price"`
	AvgPricePerArea float64 `json:"avg_price_per_area"`
}

// Heatmap partitions the bounding box into gridSize x gridSize equal cells
// and aggregates active properties per cell. Cells are returned row-major,
// rows from south to north.
func (s *Service) Heatmap(bound orb.Bound, gridSize int) ([][]HeatmapCell, error) {
	if gridSize < 1 || gridSize > maxGridSize {
		return nil, fmt.Errorf("grid size %d: %w", gridSize, engine.ErrInvalidInput)
	}

	props, err := s.engine.PropertiesInBound(bound, engine.Filters{})
	if err != nil {
		return nil, err
	}

	cellW := (bound.Max[0] - bound.Min[0]) / float64(gridSize)
	cellH := (bound.Max[1] - bound.Min[1]) / float64(gridSize)

	type accum struct {
		priceSum     float64
		perAreaSum   float64
		perAreaCount int
		count        int
	}
	cells := make([][]accum, gridSize)
	for i := range cells {
		cells[i] = make([]accum, gridSize)
	}

	cellIdx := func(v, min, size float64) int {
		if size <= 0 {
			return 0
		}
		i := int((v - min) / size)
		if i >= gridSize {
			i = gridSize - 1 // points on the max edge belong to the last cell
		}
		if i < 0 {
			i = 0
		}
		return i
	}

	for _, p := range props {
		row := cellIdx(p.Latitude, bound.Min[1], cellH)
		col := cellIdx(p.Longitude, bound.Min[0], cellW)
		a := &cells[row][col]
		a.count++
		a.priceSum += p.Price
		if p.LivingArea != nil && *p.LivingArea > 0 {
			a.perAreaSum += p.Price / float64(*p.LivingArea)
			a.perAreaCount++
		}
	}

	grid := make([][]HeatmapCell, gridSize)
	for row := 0; row < gridSize; row++ {
		grid[row] = make([]HeatmapCell, gridSize)
		for col := 0; col < gridSize; col++ {
			a := cells[row][col]
			cell := HeatmapCell{
				CenterLon: bound.Min[0] + (float64(col)+0.5)*cellW,
				CenterLat: bound.Min[1] + (float64(row)+0.5)*cellH,
				Count:     a.count,
			}
			if a.count > 0 {
				cell.AvgPrice = a.priceSum / float64(a.count)
			}
			if a.perAreaCount > 0 {
				cell.AvgPricePerArea = a.perAreaSum / float64(a.perAreaCount)
			}
			grid[row][col] = cell
		}
	}

	return grid, nil
}
