package processor

import (
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"geoestate/server/config"
	"geoestate/server/internal/models"
	"geoestate/server/internal/queue"
)

// MockStore is a mock implementation of ListingStore
type MockStore struct {
	mock.Mock
}

func (m *MockStore) ApplyListingBatch(batch []*models.Property) error {
	args := m.Called(batch)
	return args.Error(0)
}

func (m *MockStore) ListProperties() ([]models.Property, error) {
	args := m.Called()
	return args.Get(0).([]models.Property), args.Error(1)
}

func (m *MockStore) ListNeighborhoods() ([]models.Neighborhood, error) {
	args := m.Called()
	return args.Get(0).([]models.Neighborhood), args.Error(1)
}

// MockReloader records engine reloads
type MockReloader struct {
	mock.Mock
}

func (m *MockReloader) Reload(props []models.Property, hoods []models.Neighborhood) {
	m.Called(props, hoods)
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.BatchProcessing.MaxRetries = 3
	cfg.BatchProcessing.RetryDelay = 0
	return cfg
}

func TestNewBatchProcessor(t *testing.T) {
	mockStore := &MockStore{}
	mockEngine := &MockReloader{}
	q := queue.NewListingQueue(10, logrus.New())

	p := NewBatchProcessor(mockStore, mockEngine, q, testConfig(), logrus.New())

	assert.NotNil(t, p)
	assert.Equal(t, mockStore, p.store)
	assert.Equal(t, q, p.queue)
}

func TestBatchProcessor_ProcessBatch(t *testing.T) {
	mockStore := &MockStore{}
	mockEngine := &MockReloader{}
	q := queue.NewListingQueue(10, logrus.New())
	p := NewBatchProcessor(mockStore, mockEngine, q, testConfig(), logrus.New())

	batch := []*models.Property{
		{ID: "1", Address: "Test Address 1"},
		{ID: "2", Address: "Test Address 2"},
	}

	// Successful processing refreshes the engine
	mockStore.On("ApplyListingBatch", batch).Return(nil).Once()
	mockStore.On("ListProperties").Return([]models.Property{{ID: "1"}, {ID: "2"}}, nil).Once()
	mockStore.On("ListNeighborhoods").Return([]models.Neighborhood{}, nil).Once()
	mockEngine.On("Reload", mock.Anything, mock.Anything).Once()

	err := p.processBatch(batch)
	assert.NoError(t, err)
	mockEngine.AssertCalled(t, "Reload", mock.Anything, mock.Anything)

	// Persistent store failure is retried, then surfaced
	mockStore.On("ApplyListingBatch", batch).Return(errors.New("db error")).Times(4)
	err = p.processBatch(batch)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to process batch after 3 attempts")
}

func TestBatchProcessor_RefreshFailureKeepsServing(t *testing.T) {
	mockStore := &MockStore{}
	mockEngine := &MockReloader{}
	q := queue.NewListingQueue(10, logrus.New())
	p := NewBatchProcessor(mockStore, mockEngine, q, testConfig(), logrus.New())

	batch := []*models.Property{{ID: "1"}}

	// The batch lands but the reload read fails; the processor must not
	// fail the batch or swap the engine data set.
	mockStore.On("ApplyListingBatch", batch).Return(nil).Once()
	mockStore.On("ListProperties").Return([]models.Property(nil), errors.New("read error")).Once()

	err := p.processBatch(batch)
	assert.NoError(t, err)
	mockEngine.AssertNotCalled(t, "Reload", mock.Anything, mock.Anything)
}

func TestBatchProcessor_StartStop(t *testing.T) {
	mockStore := &MockStore{}
	mockEngine := &MockReloader{}
	q := queue.NewListingQueue(10, logrus.New())
	p := NewBatchProcessor(mockStore, mockEngine, q, testConfig(), logrus.New())

	p.Start()
	time.Sleep(50 * time.Millisecond)

	p.Stop()
	q.Close()
	assert.True(t, q.IsClosed())
}
