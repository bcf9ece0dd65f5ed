// Package database is the durable store the service layer loads the engine
// from. The engine itself never touches it; index structures are rebuilt
// from this data and are not durable.
package database

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"geoestate/server/internal/models"
)

type Store struct {
	db     *gorm.DB
	logger *logrus.Logger
}

type propertyRow struct {
	ID           string `gorm:"primaryKey"`
	Address      string
	Price        float64
	Bedrooms     int
	Bathrooms    float64
	LivingArea   *int
	PropertyType string
	Status       string `gorm:"index"`
	Longitude    float64
	Latitude     float64
	ListedAt     time.Time
	UpdatedAt    time.Time
}

func (propertyRow) TableName() string { return "properties" }

type neighborhoodRow struct {
	Name      string `gorm:"primaryKey"`
	Boundary  string // GeoJSON geometry, polygon
	AvgPrice  *float64
	UpdatedAt time.Time
}

func (neighborhoodRow) TableName() string { return "neighborhoods" }

// Open opens (or creates) the sqlite store at path and runs migrations.
func Open(path string, logger *logrus.Logger) (*Store, error) {
	if logger == nil {
		logger = logrus.New()
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&propertyRow{}, &neighborhoodRow{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ApplyListingBatch upserts a batch of properties in a single transaction.
// Properties without an ID are new listings and get one assigned; status
// changes arrive as upserts of the same ID, never as deletes.
func (s *Store) ApplyListingBatch(batch []*models.Property) error {
	if len(batch) == 0 {
		return nil
	}

	rows := make([]propertyRow, 0, len(batch))
	now := time.Now().UTC()
	for _, p := range batch {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if p.Status == "" {
			p.Status = models.StatusActive
		}
		if p.ListedAt.IsZero() {
			p.ListedAt = now
		}
		p.UpdatedAt = now
		rows = append(rows, toPropertyRow(*p))
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to upsert listing batch: %w", err)
		}
		return nil
	})
}

// ListProperties returns every stored property, including sold and
// withdrawn ones; the engine filters by status at query time.
func (s *Store) ListProperties() ([]models.Property, error) {
	var rows []propertyRow
	if err := s.db.Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}

	props := make([]models.Property, len(rows))
	for i, r := range rows {
		props[i] = fromPropertyRow(r)
	}
	return props, nil
}

// SaveNeighborhoods upserts neighborhood boundary reference data.
func (s *Store) SaveNeighborhoods(hoods []models.Neighborhood) error {
	if len(hoods) == 0 {
		return nil
	}

	rows := make([]neighborhoodRow, 0, len(hoods))
	now := time.Now().UTC()
	for _, n := range hoods {
		boundary, err := encodeBoundary(n.Boundary)
		if err != nil {
			return fmt.Errorf("neighborhood %q: %w", n.Name, err)
		}
		rows = append(rows, neighborhoodRow{
			Name:      n.Name,
			Boundary:  boundary,
			AvgPrice:  n.AvgPrice,
			UpdatedAt: now,
		})
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			UpdateAll: true,
		}).Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to upsert neighborhoods: %w", err)
		}
		return nil
	})
}

// ListNeighborhoods returns all stored neighborhoods. Rows whose boundary
// no longer parses are skipped with a warning rather than failing the
// whole reload.
func (s *Store) ListNeighborhoods() ([]models.Neighborhood, error) {
	var rows []neighborhoodRow
	if err := s.db.Order("name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list neighborhoods: %w", err)
	}

	hoods := make([]models.Neighborhood, 0, len(rows))
	for _, r := range rows {
		ring, err := decodeBoundary(r.Boundary)
		if err != nil {
			s.logger.WithError(err).WithField("neighborhood", r.Name).Warn("Skipping neighborhood with bad boundary")
			continue
		}
		hoods = append(hoods, models.Neighborhood{
			Name:     r.Name,
			Boundary: ring,
			AvgPrice: r.AvgPrice,
		})
	}
	return hoods, nil
}

func toPropertyRow(p models.Property) propertyRow {
	return propertyRow{
		ID:           p.ID,
		Address:      p.Address,
		Price:        p.Price,
		Bedrooms:     p.Bedrooms,
		Bathrooms:    p.Bathrooms,
		LivingArea:   p.LivingArea,
		PropertyType: p.PropertyType,
		Status:       p.Status,
		Longitude:    p.Longitude,
		Latitude:     p.Latitude,
		ListedAt:     p.ListedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func fromPropertyRow(r propertyRow) models.Property {
	return models.Property{
		ID:           r.ID,
		Address:      r.Address,
		Price:        r.Price,
		Bedrooms:     r.Bedrooms,
		Bathrooms:    r.Bathrooms,
		LivingArea:   r.LivingArea,
		PropertyType: r.PropertyType,
		Status:       r.Status,
		Longitude:    r.Longitude,
		Latitude:     r.Latitude,
		ListedAt:     r.ListedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func encodeBoundary(ring orb.Ring) (string, error) {
	if len(ring) < 3 {
		return "", fmt.Errorf("boundary has %d vertices, need at least 3", len(ring))
	}
	data, err := json.Marshal(geojson.NewGeometry(orb.Polygon{ring}))
	if err != nil {
		return "", fmt.Errorf("failed to encode boundary: %w", err)
	}
	return string(data), nil
}

func decodeBoundary(data string) (orb.Ring, error) {
	geom, err := geojson.UnmarshalGeometry([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse boundary: %w", err)
	}
	poly, ok := geom.Geometry().(orb.Polygon)
	if !ok || len(poly) == 0 {
		return nil, fmt.Errorf("boundary is not a polygon")
	}
	return poly[0], nil
}
