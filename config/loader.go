package config

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"geoestate/server/internal/models"
)

// LoadNeighborhoods reads a GeoJSON FeatureCollection of neighborhood
// boundaries. Each feature must carry a "name" property and a Polygon (or
// MultiPolygon, from which the first polygon is taken); only the outer
// ring of each polygon is kept.
func LoadNeighborhoods(path string) ([]models.Neighborhood, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read neighborhoods file: %w", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse neighborhoods file: %w", err)
	}

	hoods := make([]models.Neighborhood, 0, len(fc.Features))
	for i, feature := range fc.Features {
		name, ok := feature.Properties["name"].(string)
		if !ok || name == "" {
			return nil, fmt.Errorf("feature %d has no name property", i)
		}

		var ring orb.Ring
		switch geom := feature.Geometry.(type) {
		case orb.Polygon:
			if len(geom) == 0 {
				return nil, fmt.Errorf("neighborhood %q has an empty polygon", name)
			}
			ring = geom[0]
		case orb.MultiPolygon:
			if len(geom) == 0 || len(geom[0]) == 0 {
				return nil, fmt.Errorf("neighborhood %q has an empty polygon", name)
			}
			ring = geom[0][0]
		default:
			return nil, fmt.Errorf("neighborhood %q has unsupported geometry type %T", name, geom)
		}

		hoods = append(hoods, models.Neighborhood{Name: name, Boundary: ring})
	}

	return hoods, nil
}
