// Package engine holds the in-memory property search engine: a shared,
// rebuildable spatial index over property points and neighborhood polygons,
// and the stateless query operations on top of it. The engine performs no
// I/O; data arrives through Reload and queries run against an immutable
// snapshot, so readers never block while a new data set is being built.
package engine

import (
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"

	"geoestate/server/internal/geometry"
	"geoestate/server/internal/models"
	"geoestate/server/internal/spatial"
)

// DefaultMaxResults caps the result size of any query when the caller
// supplies no tighter limit. Bounds response size regardless of filters.
const DefaultMaxResults = 1000

// Match is one query result: the matched property plus its distance from
// the query center. Containment searches report distance zero.
type Match struct {
	Property       models.Property `json:"property"`
	DistanceMeters float64         `json:"distance_meters"`
}

// dataset is one immutable generation of the engine's data: entity maps
// plus the two spatial indexes built over them. The index never encodes
// listing status; withdrawn properties keep their entry and are excluded
// by status filtering at query time.
type dataset struct {
	properties    map[string]models.Property
	neighborhoods map[string]models.Neighborhood
	propIndex     *spatial.Index
	hoodIndex     *spatial.Index
	generation    int64
}

type Engine struct {
	logger     *logrus.Logger
	maxResults int
	current    atomic.Pointer[dataset]
	generation atomic.Int64
}

func New(maxResults int, logger *logrus.Logger) *Engine {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{
		logger:     logger,
		maxResults: maxResults,
	}
}

// Reload replaces the engine's data set. The new indexes are built off to
// the side and swapped in atomically, so concurrent readers keep querying
// the previous generation until the swap completes.
func (e *Engine) Reload(properties []models.Property, neighborhoods []models.Neighborhood) {
	props := make(map[string]models.Property, len(properties))
	propEntries := make([]spatial.Entry, 0, len(properties))
	for _, p := range properties {
		props[p.ID] = p
		loc := p.Location()
		propEntries = append(propEntries, spatial.Entry{
			ID:    p.ID,
			Bound: orb.Bound{Min: loc, Max: loc},
		})
	}

	hoods := make(map[string]models.Neighborhood, len(neighborhoods))
	hoodEntries := make([]spatial.Entry, 0, len(neighborhoods))
	for _, n := range neighborhoods {
		hoods[n.Name] = n
		hoodEntries = append(hoodEntries, spatial.Entry{
			ID:    n.Name,
			Bound: n.Boundary.Bound(),
		})
	}

	ds := &dataset{
		properties:    props,
		neighborhoods: hoods,
		propIndex:     spatial.Build(propEntries),
		hoodIndex:     spatial.Build(hoodEntries),
		generation:    e.generation.Add(1),
	}
	e.current.Store(ds)

	e.logger.WithFields(logrus.Fields{
		"generation":    ds.generation,
		"properties":    len(props),
		"neighborhoods": len(hoods),
	}).Info("Engine data set reloaded")
}

// Stats summarizes the active data set for health reporting.
type Stats struct {
	Generation    int64 `json:"generation"`
	Properties    int   `json:"properties"`
	Neighborhoods int   `json:"neighborhoods"`
}

func (e *Engine) Stats() Stats {
	ds := e.current.Load()
	if ds == nil {
		return Stats{}
	}
	return Stats{
		Generation:    ds.generation,
		Properties:    len(ds.properties),
		Neighborhoods: len(ds.neighborhoods),
	}
}

// Property returns the property with the given id from the active data set.
func (e *Engine) Property(id string) (models.Property, error) {
	ds := e.current.Load()
	if ds == nil {
		return models.Property{}, fmt.Errorf("property %q: %w", id, ErrNotFound)
	}
	p, ok := ds.properties[id]
	if !ok {
		return models.Property{}, fmt.Errorf("property %q: %w", id, ErrNotFound)
	}
	return p, nil
}

// Neighborhood returns the named neighborhood from the active data set.
func (e *Engine) Neighborhood(name string) (models.Neighborhood, error) {
	ds := e.current.Load()
	if ds == nil {
		return models.Neighborhood{}, fmt.Errorf("neighborhood %q: %w", name, ErrNotFound)
	}
	n, ok := ds.neighborhoods[name]
	if !ok {
		return models.Neighborhood{}, fmt.Errorf("neighborhood %q: %w", name, ErrNotFound)
	}
	return n, nil
}

// Neighborhoods lists all neighborhoods in the active data set, sorted by
// name.
func (e *Engine) Neighborhoods() []models.Neighborhood {
	ds := e.current.Load()
	if ds == nil {
		return nil
	}
	out := make([]models.Neighborhood, 0, len(ds.neighborhoods))
	for _, n := range ds.neighborhoods {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SearchByRadius finds properties within radiusMeters of center that pass
// the filters. Results are ordered by ascending distance, ties broken by
// ascending id, and capped at maxResults.
//
// The search is two-phase: the spatial index answers a coarse bounding-box
// query, and only that candidate set pays for exact haversine distances.
func (e *Engine) SearchByRadius(center orb.Point, radiusMeters float64, f Filters) ([]Match, error) {
	if radiusMeters <= 0 {
		return nil, fmt.Errorf("radius %v: %w", radiusMeters, ErrInvalidGeometry)
	}
	if !geometry.ValidPoint(center) {
		return nil, fmt.Errorf("center %v: %w", center, ErrInvalidGeometry)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}

	ds := e.current.Load()
	if ds == nil {
		return []Match{}, nil
	}

	var matches []Match
	for _, id := range ds.propIndex.QueryBound(geometry.RadiusBound(center, radiusMeters)) {
		p := ds.properties[id]
		if !f.matches(p) {
			continue
		}
		d := geometry.Distance(center, p.Location())
		if d <= radiusMeters {
			matches = append(matches, Match{Property: p, DistanceMeters: d})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].DistanceMeters != matches[j].DistanceMeters {
			return matches[i].DistanceMeters < matches[j].DistanceMeters
		}
		return matches[i].Property.ID < matches[j].Property.ID
	})

	return e.cap(matches, f.Limit), nil
}

// SearchByPolygon finds properties whose location lies inside or on the
// boundary of the polygon (closed-region policy). Results are ordered by
// ascending id; containment has no natural distance metric.
func (e *Engine) SearchByPolygon(polygon orb.Ring, f Filters) ([]Match, error) {
	if len(polygon) < 3 {
		return nil, fmt.Errorf("polygon with %d vertices: %w", len(polygon), ErrInvalidGeometry)
	}
	if !geometry.ValidRing(polygon) {
		return nil, fmt.Errorf("polygon coordinates out of range: %w", ErrInvalidGeometry)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}

	ds := e.current.Load()
	if ds == nil {
		return []Match{}, nil
	}

	var matches []Match
	for _, id := range ds.propIndex.QueryBound(polygon.Bound()) {
		p := ds.properties[id]
		if !f.matches(p) {
			continue
		}
		if geometry.PointInPolygon(p.Location(), polygon) {
			matches = append(matches, Match{Property: p})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Property.ID < matches[j].Property.ID
	})

	return e.cap(matches, f.Limit), nil
}

// PropertiesInBound returns properties inside the lon/lat box that pass the
// filters, ordered by ascending id. Used by analytics for grid aggregation.
func (e *Engine) PropertiesInBound(bound orb.Bound, f Filters) ([]models.Property, error) {
	if !geometry.ValidPoint(bound.Min) || !geometry.ValidPoint(bound.Max) {
		return nil, fmt.Errorf("bound %v: %w", bound, ErrInvalidGeometry)
	}
	if bound.Min[0] > bound.Max[0] || bound.Min[1] > bound.Max[1] {
		return nil, fmt.Errorf("inverted bound %v: %w", bound, ErrInvalidGeometry)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}

	ds := e.current.Load()
	if ds == nil {
		return nil, nil
	}

	var out []models.Property
	for _, id := range ds.propIndex.QueryBound(bound) {
		p := ds.properties[id]
		if f.matches(p) && bound.Contains(p.Location()) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// cap truncates results to the caller's limit, itself clamped by the
// engine-wide defensive cap.
func (e *Engine) cap(matches []Match, limit int) []Match {
	max := e.maxResults
	if limit > 0 && limit < max {
		max = limit
	}
	if len(matches) > max {
		matches = matches[:max]
	}
	return matches
}
