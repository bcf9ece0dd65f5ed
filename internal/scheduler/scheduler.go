package scheduler

import (
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"geoestate/server/internal/models"
)

// Source yields the full data set for a refresh.
type Source interface {
	ListProperties() ([]models.Property, error)
	ListNeighborhoods() ([]models.Neighborhood, error)
}

// Target receives the refreshed data set.
type Target interface {
	Reload(properties []models.Property, neighborhoods []models.Neighborhood)
}

// Refresher periodically rebuilds the query engine from the durable store,
// so listings written outside the queue path (or by another process sharing
// the database) become visible without a restart.
type Refresher struct {
	source   Source
	target   Target
	logger   *logrus.Logger
	interval time.Duration
	stopChan chan struct{}
	wg       sync.WaitGroup
	runMutex sync.Mutex // Ensures sequential refresh runs
}

// NewRefresher creates a refresher with the given interval.
func NewRefresher(source Source, target Target, interval time.Duration, logger *logrus.Logger) *Refresher {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.InfoLevel)
	}

	return &Refresher{
		source:   source,
		target:   target,
		logger:   logger,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the periodic refresh loop. The first refresh runs
// immediately so the engine is populated at startup.
func (r *Refresher) Start() {
	r.wg.Add(1)
	go r.run()
}

func (r *Refresher) run() {
	defer r.wg.Done()

	r.logger.Info("Running startup engine refresh")
	r.RefreshNow()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopChan:
			return
		case <-ticker.C:
			r.RefreshNow()
		}
	}
}

// RefreshNow runs a single refresh. A failed store read keeps the engine
// on its previous generation.
func (r *Refresher) RefreshNow() {
	r.runMutex.Lock()
	defer r.runMutex.Unlock()

	start := time.Now()

	props, err := r.source.ListProperties()
	if err != nil {
		r.logger.WithError(err).Error("Engine refresh failed to load properties")
		return
	}
	hoods, err := r.source.ListNeighborhoods()
	if err != nil {
		r.logger.WithError(err).Error("Engine refresh failed to load neighborhoods")
		return
	}

	r.target.Reload(props, hoods)

	r.logger.WithFields(logrus.Fields{
		"properties":    len(props),
		"neighborhoods": len(hoods),
		"duration":      time.Since(start).String(),
	}).Info("Engine refresh completed")
}

// Stop gracefully stops the refresher.
func (r *Refresher) Stop() {
	close(r.stopChan)
	r.wg.Wait()
}
