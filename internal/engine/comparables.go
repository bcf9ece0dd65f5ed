package engine

import (
	"fmt"
	"math"
	"sort"

	"geoestate/server/internal/models"
)

// Comparable-scoring weights. These are a fixed pricing policy carried over
// unchanged for result compatibility; recalibrating them changes every
// valuation downstream.
const (
	weightPrice        = 30.0
	weightArea         = 20.0
	weightBedrooms     = 10.0
	weightBathrooms    = 5.0
	weightTypeMismatch = 15.0

	// maxBedroomGap is a hard cutoff applied before scoring: candidates
	// more than one bedroom away from the target are not comparable.
	maxBedroomGap = 1
)

// ComparableParams tunes a comparable-properties search around a target.
type ComparableParams struct {
	RadiusMeters   float64
	PriceTolerance float64 // fraction of the target price, e.g. 0.2
	AreaTolerance  float64 // fraction of the target area
	MaxResults     int
}

// Comparable is a candidate property with its similarity score and distance
// from the target.
type Comparable struct {
	Property       models.Property `json:"property"`
	Score          float64         `json:"score"`
	DistanceMeters float64         `json:"distance_meters"`
}

// Comparables ranks active properties near the target by similarity. The
// target itself is excluded. An identical candidate scores 100; every
// weighted difference subtracts from that.
func (e *Engine) Comparables(targetID string, params ComparableParams) ([]Comparable, error) {
	target, err := e.Property(targetID)
	if err != nil {
		return nil, err
	}
	if params.RadiusMeters <= 0 {
		return nil, fmt.Errorf("radius %v: %w", params.RadiusMeters, ErrInvalidGeometry)
	}
	if params.PriceTolerance < 0 || params.AreaTolerance < 0 {
		return nil, fmt.Errorf("negative tolerance: %w", ErrInvalidInput)
	}

	filters := Filters{Statuses: []string{models.StatusActive}}
	if params.PriceTolerance > 0 {
		lo := target.Price * (1 - params.PriceTolerance)
		hi := target.Price * (1 + params.PriceTolerance)
		filters.MinPrice, filters.MaxPrice = &lo, &hi
	}

	matches, err := e.SearchByRadius(target.Location(), params.RadiusMeters, filters)
	if err != nil {
		return nil, err
	}

	var areaLo, areaHi float64
	hasAreaBand := params.AreaTolerance > 0 && target.LivingArea != nil && *target.LivingArea > 0
	if hasAreaBand {
		areaLo = float64(*target.LivingArea) * (1 - params.AreaTolerance)
		areaHi = float64(*target.LivingArea) * (1 + params.AreaTolerance)
	}

	var comps []Comparable
	for _, m := range matches {
		c := m.Property
		if c.ID == target.ID {
			continue
		}
		if abs(c.Bedrooms-target.Bedrooms) > maxBedroomGap {
			continue
		}
		if hasAreaBand {
			if c.LivingArea == nil {
				continue
			}
			if a := float64(*c.LivingArea); a < areaLo || a > areaHi {
				continue
			}
		}
		comps = append(comps, Comparable{
			Property:       c,
			Score:          score(target, c),
			DistanceMeters: m.DistanceMeters,
		})
	}

	sort.Slice(comps, func(i, j int) bool {
		if comps[i].Score != comps[j].Score {
			return comps[i].Score > comps[j].Score
		}
		if comps[i].DistanceMeters != comps[j].DistanceMeters {
			return comps[i].DistanceMeters < comps[j].DistanceMeters
		}
		return comps[i].Property.ID < comps[j].Property.ID
	})

	max := params.MaxResults
	if max <= 0 || max > e.maxResults {
		max = e.maxResults
	}
	if len(comps) > max {
		comps = comps[:max]
	}
	return comps, nil
}

// score computes the weighted similarity of a candidate against the target.
// Relative differences are fractions of the target's own value; a zero or
// unknown target dimension counts as the maximal difference rather than
// dividing by zero.
func score(target, candidate models.Property) float64 {
	relPrice := 1.0
	if target.Price > 0 {
		relPrice = math.Abs(candidate.Price-target.Price) / target.Price
	}

	relArea := 1.0
	if target.LivingArea != nil && *target.LivingArea > 0 && candidate.LivingArea != nil {
		relArea = math.Abs(float64(*candidate.LivingArea)-float64(*target.LivingArea)) / float64(*target.LivingArea)
	}

	bedroomDiff := float64(abs(candidate.Bedrooms - target.Bedrooms))
	bathroomDiff := math.Abs(candidate.Bathrooms - target.Bathrooms)

	typeMismatch := 0.0
	if candidate.PropertyType != target.PropertyType {
		typeMismatch = 1.0
	}

	return 100 - (weightPrice*relPrice +
		weightArea*relArea +
		weightBedrooms*bedroomDiff +
		weightBathrooms*bathroomDiff +
		weightTypeMismatch*typeMismatch)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
