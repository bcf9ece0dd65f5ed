package api

import (
	"errors"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"

	"geoestate/server/internal/analytics"
	"geoestate/server/internal/engine"
	"geoestate/server/internal/finance"
	"geoestate/server/internal/models"
	"geoestate/server/internal/queue"
)

// Query defaults carried over from the original service.
const (
	defaultLat    = 37.7749
	defaultLng    = -122.4194
	defaultRadius = 1000.0
	defaultLimit  = 10
	maxLimit      = 100
)

type Handler struct {
	engine    *engine.Engine
	analytics *analytics.Service
	queue     *queue.ListingQueue
	logger    *logrus.Logger
}

type ListingRequest struct {
	Address      string   `json:"address" binding:"required"`
	Price        float64  `json:"price" binding:"required"`
	Latitude     *float64 `json:"latitude" binding:"required"`
	Longitude    *float64 `json:"longitude" binding:"required"`
	Bedrooms     int      `json:"bedrooms"`
	Bathrooms    float64  `json:"bathrooms"`
	LivingArea   *int     `json:"living_area"`
	PropertyType string   `json:"property_type"`
	Status       string   `json:"listing_status"`
}

type PolygonRequest struct {
	Polygon       [][]float64 `json:"polygon" binding:"required"`
	MinPrice      *float64    `json:"min_price"`
	MaxPrice      *float64    `json:"max_price"`
	MinBedrooms   *int        `json:"min_bedrooms"`
	MaxBedrooms   *int        `json:"max_bedrooms"`
	PropertyTypes []string    `json:"property_types"`
	Statuses      []string    `json:"statuses"`
	Limit         int         `json:"limit"`
}

type InvestmentRequest struct {
	MonthlyRent        float64  `json:"monthly_rent" binding:"required"`
	DownPaymentRate    *float64 `json:"down_payment_rate"`
	AnnualInterestRate *float64 `json:"annual_interest_rate"`
	LoanTermYears      *int     `json:"loan_term_years"`
}

func NewHandler(eng *engine.Engine, q *queue.ListingQueue, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Handler{
		engine:    eng,
		analytics: analytics.NewService(eng, logger),
		queue:     q,
		logger:    logger,
	}
}

func (h *Handler) HealthCheck(c *gin.Context) {
	stats := h.engine.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":        "healthy",
		"generation":    stats.Generation,
		"properties":    stats.Properties,
		"neighborhoods": stats.Neighborhoods,
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) GetNearbyProperties(c *gin.Context) {
	lat, err := queryFloat(c, "lat", defaultLat)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid lat parameter"})
		return
	}
	lng, err := queryFloat(c, "lng", defaultLng)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid lng parameter"})
		return
	}
	radius, err := queryFloat(c, "radius", defaultRadius)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid radius parameter"})
		return
	}

	filters, err := parseFilters(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	filters.Limit = parseLimit(c)

	matches, err := h.engine.SearchByRadius(orb.Point{lng, lat}, radius, filters)
	if err != nil {
		h.respondError(c, err, "Failed to search nearby properties")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   len(matches),
		"results": matches,
	})
}

func (h *Handler) SearchProperties(c *gin.Context) {
	filters, err := parseFilters(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	limit := parseLimit(c)

	var props []models.Property
	if c.Query("lat") != "" && c.Query("lng") != "" {
		lat, err := queryFloat(c, "lat", 0)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid lat parameter"})
			return
		}
		lng, err := queryFloat(c, "lng", 0)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid lng parameter"})
			return
		}
		radius, err := queryFloat(c, "radius", defaultRadius)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid radius parameter"})
			return
		}

		matches, err := h.engine.SearchByRadius(orb.Point{lng, lat}, radius, filters)
		if err != nil {
			h.respondError(c, err, "Failed to search properties")
			return
		}
		for _, m := range matches {
			props = append(props, m.Property)
		}
	} else {
		world := orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}}
		props, err = h.engine.PropertiesInBound(world, filters)
		if err != nil {
			h.respondError(c, err, "Failed to search properties")
			return
		}
	}

	sort.Slice(props, func(i, j int) bool {
		if props[i].Price != props[j].Price {
			return props[i].Price < props[j].Price
		}
		return props[i].ID < props[j].ID
	})
	if len(props) > limit {
		props = props[:limit]
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   len(props),
		"results": props,
	})
}

func (h *Handler) CreateProperty(c *gin.Context) {
	var req ListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing payload"})
		return
	}

	p := &models.Property{
		Address:      req.Address,
		Price:        req.Price,
		Bedrooms:     req.Bedrooms,
		Bathrooms:    req.Bathrooms,
		LivingArea:   req.LivingArea,
		PropertyType: req.PropertyType,
		Status:       req.Status,
		Latitude:     *req.Latitude,
		Longitude:    *req.Longitude,
	}

	if err := h.queue.Push([]*models.Property{p}); err != nil {
		if errors.Is(err, queue.ErrQueueFull) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Ingest queue is full, retry later"})
			return
		}
		h.respondError(c, err, "Failed to queue listing")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":  "queued",
		"address": p.Address,
	})
}

func (h *Handler) GetComparables(c *gin.Context) {
	radius, err := queryFloat(c, "radius", defaultRadius)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid radius parameter"})
		return
	}
	priceTol, err := queryFloat(c, "price_tolerance", 0.2)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid price_tolerance parameter"})
		return
	}
	areaTol, err := queryFloat(c, "area_tolerance", 0.2)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid area_tolerance parameter"})
		return
	}

	comps, err := h.engine.Comparables(c.Param("id"), engine.ComparableParams{
		RadiusMeters:   radius,
		PriceTolerance: priceTol,
		AreaTolerance:  areaTol,
		MaxResults:     parseLimit(c),
	})
	if err != nil {
		h.respondError(c, err, "Failed to find comparable properties")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   len(comps),
		"results": comps,
	})
}

func (h *Handler) GetNeighborhoods(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Neighborhoods())
}

func (h *Handler) GetNeighborhoodStats(c *gin.Context) {
	stats, err := h.analytics.NeighborhoodStats(c.Param("name"), time.Now())
	if err != nil {
		h.respondError(c, err, "Failed to compute neighborhood stats")
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) SearchByPolygon(c *gin.Context) {
	var req PolygonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid polygon payload"})
		return
	}

	ring := make(orb.Ring, 0, len(req.Polygon))
	for _, pair := range req.Polygon {
		if len(pair) != 2 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Polygon vertices must be [lng, lat] pairs"})
			return
		}
		ring = append(ring, orb.Point{pair[0], pair[1]})
	}

	filters := engine.Filters{
		MinPrice:      req.MinPrice,
		MaxPrice:      req.MaxPrice,
		MinBedrooms:   req.MinBedrooms,
		MaxBedrooms:   req.MaxBedrooms,
		PropertyTypes: req.PropertyTypes,
		Statuses:      req.Statuses,
		Limit:         req.Limit,
	}

	matches, err := h.engine.SearchByPolygon(ring, filters)
	if err != nil {
		h.respondError(c, err, "Failed to search polygon")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   len(matches),
		"results": matches,
	})
}

func (h *Handler) GetHeatmap(c *gin.Context) {
	minLat, err1 := queryFloat(c, "min_lat", 0)
	minLng, err2 := queryFloat(c, "min_lng", 0)
	maxLat, err3 := queryFloat(c, "max_lat", 0)
	maxLng, err4 := queryFloat(c, "max_lng", 0)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bounding box parameters"})
		return
	}
	if c.Query("min_lat") == "" || c.Query("min_lng") == "" || c.Query("max_lat") == "" || c.Query("max_lng") == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "min_lat, min_lng, max_lat and max_lng are required"})
		return
	}

	gridSize, err := strconv.Atoi(c.DefaultQuery("grid", "10"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid grid parameter"})
		return
	}

	bound := orb.Bound{Min: orb.Point{minLng, minLat}, Max: orb.Point{maxLng, maxLat}}
	grid, err := h.analytics.Heatmap(bound, gridSize)
	if err != nil {
		h.respondError(c, err, "Failed to build heatmap")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"grid_size": gridSize,
		"cells":     grid,
	})
}

func (h *Handler) EvaluateInvestment(c *gin.Context) {
	var req InvestmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid investment payload"})
		return
	}

	p, err := h.engine.Property(c.Param("id"))
	if err != nil {
		h.respondError(c, err, "Failed to load property")
		return
	}

	assumptions := finance.Assumptions{
		MonthlyRent:        req.MonthlyRent,
		DownPaymentRate:    0.2,
		AnnualInterestRate: 0.065,
		LoanTermYears:      30,
	}
	if req.DownPaymentRate != nil {
		assumptions.DownPaymentRate = *req.DownPaymentRate
	}
	if req.AnnualInterestRate != nil {
		assumptions.AnnualInterestRate = *req.AnnualInterestRate
	}
	if req.LoanTermYears != nil {
		assumptions.LoanTermYears = *req.LoanTermYears
	}

	metrics, err := finance.Evaluate(p.Price, assumptions)
	if err != nil {
		h.respondError(c, err, "Failed to evaluate investment")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"property_id": p.ID,
		"price":       p.Price,
		"assumptions": assumptions,
		"metrics":     metrics,
	})
}

// respondError maps domain errors onto HTTP statuses: bad input is the
// caller's fault, a missing entity is 404, everything else is logged and
// hidden behind a 500.
func (h *Handler) respondError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, engine.ErrInvalidGeometry),
		errors.Is(err, engine.ErrInvalidInput),
		errors.Is(err, finance.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.WithError(err).Error(msg)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

func queryFloat(c *gin.Context, key string, def float64) (float64, error) {
	s := c.Query(key)
	if s == "" {
		return def, nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit
}

func parseFilters(c *gin.Context) (engine.Filters, error) {
	var f engine.Filters

	if s := c.Query("min_price"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return f, errors.New("invalid min_price parameter")
		}
		f.MinPrice = &v
	}
	if s := c.Query("max_price"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return f, errors.New("invalid max_price parameter")
		}
		f.MaxPrice = &v
	}
	if s := c.Query("min_bedrooms"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return f, errors.New("invalid min_bedrooms parameter")
		}
		f.MinBedrooms = &v
	}
	if s := c.Query("max_bedrooms"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return f, errors.New("invalid max_bedrooms parameter")
		}
		f.MaxBedrooms = &v
	}
	if s := c.Query("property_type"); s != "" {
		f.PropertyTypes = strings.Split(s, ",")
	}
	if s := c.Query("status"); s != "" {
		f.Statuses = strings.Split(s, ",")
	}

	return f, nil
}
