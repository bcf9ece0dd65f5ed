package queue

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"geoestate/server/internal/models"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// ListingQueue buffers validated listing batches between the API layer and
// the batch processor. Records arrive already validated; the queue only
// moves them.
type ListingQueue struct {
	items    chan []*models.Property
	done     chan struct{}
	maxSize  int
	closed   bool
	mu       sync.RWMutex
	logger   *logrus.Logger
	handlers []func([]*models.Property) error
}

// NewListingQueue creates a queue with the given buffer size.
func NewListingQueue(bufferSize int, logger *logrus.Logger) *ListingQueue {
	if logger == nil {
		logger = logrus.New()
	}
	return &ListingQueue{
		items:   make(chan []*models.Property, bufferSize),
		done:    make(chan struct{}),
		maxSize: bufferSize,
		logger:  logger,
	}
}

// Push adds a batch of listings to the queue without blocking. A full
// queue is reported to the caller instead of stalling the request path.
// The lock is held across the send so Close cannot close the channel
// between the closed check and the send.
func (q *ListingQueue) Push(batch []*models.Property) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.items <- batch:
		q.logger.WithField("batch_size", len(batch)).Debug("Pushed listing batch to queue")
		return nil
	default:
		return ErrQueueFull
	}
}

// Subscribe adds a handler that will be called for each batch.
func (q *ListingQueue) Subscribe(handler func([]*models.Property) error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start begins draining the queue in a background goroutine.
func (q *ListingQueue) Start() {
	go q.process()
}

func (q *ListingQueue) process() {
	for {
		select {
		case <-q.done:
			return
		case batch := <-q.items:
			q.dispatch(batch)
		}
	}
}

func (q *ListingQueue) dispatch(batch []*models.Property) {
	q.mu.RLock()
	handlers := q.handlers
	q.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(batch); err != nil {
			q.logger.WithError(err).Error("Handler failed to process listing batch")
		}
	}
}

// Close stops the queue and prevents new batches from being added.
func (q *ListingQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	q.closed = true
	close(q.done)
	close(q.items)
	return nil
}

// Len returns the number of queued batches.
func (q *ListingQueue) Len() int {
	return len(q.items)
}

// IsClosed reports whether the queue has been closed.
func (q *ListingQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
