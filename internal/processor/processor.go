package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"geoestate/server/config"
	"geoestate/server/internal/models"
	"geoestate/server/internal/queue"
)

// ListingStore is the slice of the durable store the processor needs:
// transactional batch upserts plus full reads for engine reloads.
type ListingStore interface {
	ApplyListingBatch(batch []*models.Property) error
	ListProperties() ([]models.Property, error)
	ListNeighborhoods() ([]models.Neighborhood, error)
}

// Reloader is the engine side: swap in a freshly built data set.
type Reloader interface {
	Reload(properties []models.Property, neighborhoods []models.Neighborhood)
}

// BatchProcessor drains the listing queue into the store and refreshes the
// engine's in-memory index after each applied batch.
type BatchProcessor struct {
	store     ListingStore
	engine    Reloader
	logger    *logrus.Logger
	config    *config.Config
	queue     *queue.ListingQueue
	waitGroup sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewBatchProcessor creates a new batch processor instance.
func NewBatchProcessor(store ListingStore, engine Reloader, q *queue.ListingQueue, cfg *config.Config, logger *logrus.Logger) *BatchProcessor {
	ctx, cancel := context.WithCancel(context.Background())
	return &BatchProcessor{
		store:  store,
		engine: engine,
		queue:  q,
		config: cfg,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start subscribes the processor to the listing queue.
func (p *BatchProcessor) Start() {
	p.waitGroup.Add(1)
	go func() {
		defer p.waitGroup.Done()
		p.queue.Subscribe(func(batch []*models.Property) error {
			return p.processBatch(batch)
		})
	}()
}

// Stop gracefully shuts down the processor.
func (p *BatchProcessor) Stop() {
	p.cancel()
	p.waitGroup.Wait()
}

// processBatch applies one batch with retry, then refreshes the engine so
// queries see the new listings.
func (p *BatchProcessor) processBatch(batch []*models.Property) error {
	var err error
	for attempt := 0; attempt <= p.config.BatchProcessing.MaxRetries; attempt++ {
		if attempt > 0 {
			p.logger.Infof("Retrying batch processing, attempt %d of %d", attempt, p.config.BatchProcessing.MaxRetries)
			select {
			case <-p.ctx.Done():
				return p.ctx.Err()
			case <-time.After(time.Duration(p.config.BatchProcessing.RetryDelay) * time.Second):
			}
		}

		err = p.store.ApplyListingBatch(batch)
		if err == nil {
			p.logger.Infof("Successfully processed batch of %d listings", len(batch))
			p.refreshEngine()
			return nil
		}

		p.logger.Errorf("Batch processing failed: %v", err)
	}

	return fmt.Errorf("failed to process batch after %d attempts: %w", p.config.BatchProcessing.MaxRetries, err)
}

// refreshEngine rebuilds the engine data set from the store. A failed read
// leaves the previous index generation serving queries.
func (p *BatchProcessor) refreshEngine() {
	props, err := p.store.ListProperties()
	if err != nil {
		p.logger.WithError(err).Error("Failed to load properties for engine refresh")
		return
	}
	hoods, err := p.store.ListNeighborhoods()
	if err != nil {
		p.logger.WithError(err).Error("Failed to load neighborhoods for engine refresh")
		return
	}
	p.engine.Reload(props, hoods)
}
