package engine

import (
	"fmt"

	"geoestate/server/internal/models"
)

// Filters narrows a search by listing attributes. Zero values mean "no
// constraint" except Statuses: an empty status list deliberately defaults
// to active-only, so showing sold or withdrawn listings is an explicit
// caller choice rather than an accident.
type Filters struct {
	MinPrice      *float64
	MaxPrice      *float64
	MinBedrooms   *int
	MaxBedrooms   *int
	PropertyTypes []string
	Statuses      []string
	Limit         int
}

func (f Filters) validate() error {
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return fmt.Errorf("price range %v > %v: %w", *f.MinPrice, *f.MaxPrice, ErrInvalidInput)
	}
	if f.MinBedrooms != nil && f.MaxBedrooms != nil && *f.MinBedrooms > *f.MaxBedrooms {
		return fmt.Errorf("bedroom range %d > %d: %w", *f.MinBedrooms, *f.MaxBedrooms, ErrInvalidInput)
	}
	return nil
}

func (f Filters) matches(p models.Property) bool {
	if !f.statusAllowed(p.Status) {
		return false
	}
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	if f.MinBedrooms != nil && p.Bedrooms < *f.MinBedrooms {
		return false
	}
	if f.MaxBedrooms != nil && p.Bedrooms > *f.MaxBedrooms {
		return false
	}
	if len(f.PropertyTypes) > 0 {
		found := false
		for _, t := range f.PropertyTypes {
			if p.PropertyType == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (f Filters) statusAllowed(status string) bool {
	if len(f.Statuses) == 0 {
		return status == models.StatusActive
	}
	for _, s := range f.Statuses {
		if status == s {
			return true
		}
	}
	return false
}
