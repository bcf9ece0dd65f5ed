package geometry

import (
	"math"

	"github.com/paulmach/orb"
)

// EarthRadiusMeters is the mean earth radius used for great-circle math.
const EarthRadiusMeters = 6371000.0

const (
	degToRad        = math.Pi / 180.0
	metersPerDegLat = 111320.0
	onSegmentEps    = 1e-12
)

// Distance returns the great-circle (haversine) distance in meters between
// two lon/lat points. Inputs are geographic coordinates, so planar Euclidean
// distance would be wrong at any useful radius.
func Distance(a, b orb.Point) float64 {
	lat1 := a[1] * degToRad
	lat2 := b[1] * degToRad
	dLat := (b[1] - a[1]) * degToRad
	dLon := (b[0] - a[0]) * degToRad

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon

	return 2 * EarthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// WithinRadius reports whether p lies within radiusMeters of center.
func WithinRadius(center orb.Point, radiusMeters float64, p orb.Point) bool {
	return Distance(center, p) <= radiusMeters
}

// PointInPolygon reports whether p lies inside or on the boundary of ring.
// The region is closed: boundary vertices and edge points count as inside.
// The ring may or may not repeat its first vertex at the end.
func PointInPolygon(p orb.Point, ring orb.Ring) bool {
	n := len(ring)
	if n < 3 {
		return false
	}

	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		a, b := ring[j], ring[i]
		j = i

		if onSegment(p, a, b) {
			return true
		}

		// Even-odd crossing test against the edge a->b.
		if (a[1] > p[1]) != (b[1] > p[1]) {
			x := a[0] + (p[1]-a[1])/(b[1]-a[1])*(b[0]-a[0])
			if p[0] < x {
				inside = !inside
			}
		}
	}

	return inside
}

// onSegment reports whether p lies on the segment from a to b, including
// the endpoints. Degenerate segments (a == b) match only the point itself.
func onSegment(p, a, b orb.Point) bool {
	cross := (b[0]-a[0])*(p[1]-a[1]) - (b[1]-a[1])*(p[0]-a[0])
	if math.Abs(cross) > onSegmentEps {
		return false
	}
	return p[0] >= math.Min(a[0], b[0])-onSegmentEps && p[0] <= math.Max(a[0], b[0])+onSegmentEps &&
		p[1] >= math.Min(a[1], b[1])-onSegmentEps && p[1] <= math.Max(a[1], b[1])+onSegmentEps
}

// RadiusBound returns the axis-aligned lon/lat box enclosing the circle of
// radiusMeters around center. Used as the coarse phase of radius queries;
// the caller must still verify candidates with WithinRadius.
//
// The box clamps at the antimeridian rather than wrapping: a query centered
// within a radius of lon ±180 will not see candidates across the seam. Data
// sets here are city-scale and nowhere near the seam.
func RadiusBound(center orb.Point, radiusMeters float64) orb.Bound {
	dLat := radiusMeters / metersPerDegLat

	// Longitude degrees shrink with latitude. Near the poles the circle can
	// wrap every meridian, so clamp to the full longitude span instead of
	// dividing by a vanishing cosine.
	cosLat := math.Cos(center[1] * degToRad)
	var dLon float64
	if cosLat < 1e-6 {
		dLon = 180
	} else {
		dLon = math.Min(180, radiusMeters/(metersPerDegLat*cosLat))
	}

	return orb.Bound{
		Min: orb.Point{math.Max(-180, center[0]-dLon), math.Max(-90, center[1]-dLat)},
		Max: orb.Point{math.Min(180, center[0]+dLon), math.Min(90, center[1]+dLat)},
	}
}

// ValidPoint reports whether p is a plausible WGS84 lon/lat coordinate.
func ValidPoint(p orb.Point) bool {
	return p[0] >= -180 && p[0] <= 180 && p[1] >= -90 && p[1] <= 90
}

// ValidRing reports whether every vertex of ring is a valid coordinate.
func ValidRing(ring orb.Ring) bool {
	for _, p := range ring {
		if !ValidPoint(p) {
			return false
		}
	}
	return true
}
