package worker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nsqio/go-nsq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"lookout/internal/worker"
)

type MockMaintainer struct{ mock.Mock }

func (m *MockMaintainer) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockMaintainer) EvictOlderThan(ctx context.Context, maxAge time.Duration) (int, error) {
	args := m.Called(ctx, maxAge)
	return args.Int(0), args.Error(1)
}

func msg(body string) *nsq.Message {
	return nsq.NewMessage(nsq.MessageID{}, []byte(body))
}

func TestMaintenanceConsumer(t *testing.T) {
	t.Run("Evicts When Over Threshold", func(t *testing.T) {
		idx := new(MockMaintainer)
		idx.On("Count", mock.Anything).Return(10050, nil)
		idx.On("EvictOlderThan", mock.Anything, 24*time.Hour).Return(300, nil)

		h := worker.NewMaintenanceConsumer(idx, 10000, 24*time.Hour)
		err := h.HandleMessage(msg(`{"correlation_id":"abc"}`))
		assert.NoError(t, err)
		idx.AssertExpectations(t)
	})

	t.Run("Skips Eviction Under Threshold", func(t *testing.T) {
		idx := new(MockMaintainer)
		idx.On("Count", mock.Anything).Return(9000, nil)

		h := worker.NewMaintenanceConsumer(idx, 10000, 24*time.Hour)
		err := h.HandleMessage(msg(`{}`))
		assert.NoError(t, err)
		idx.AssertNotCalled(t, "EvictOlderThan")
	})

	t.Run("Exactly At Threshold Does Not Evict", func(t *testing.T) {
		idx := new(MockMaintainer)
		idx.On("Count", mock.Anything).Return(10000, nil)

		h := worker.NewMaintenanceConsumer(idx, 10000, 24*time.Hour)
		assert.NoError(t, h.HandleMessage(msg(`{}`)))
		idx.AssertNotCalled(t, "EvictOlderThan")
	})

	t.Run("Count Failure Requeues", func(t *testing.T) {
		idx := new(MockMaintainer)
		idx.On("Count", mock.Anything).Return(0, errors.New("store down"))

		h := worker.NewMaintenanceConsumer(idx, 10000, 24*time.Hour)
		assert.Error(t, h.HandleMessage(msg(`{}`)))
	})

	t.Run("Eviction Failure Requeues", func(t *testing.T) {
		idx := new(MockMaintainer)
		idx.On("Count", mock.Anything).Return(20000, nil)
		idx.On("EvictOlderThan", mock.Anything, mock.Anything).Return(0, errors.New("store down"))

		h := worker.NewMaintenanceConsumer(idx, 10000, 24*time.Hour)
		assert.Error(t, h.HandleMessage(msg(`{}`)))
	})

	t.Run("Invalid JSON Is Dropped Not Retried", func(t *testing.T) {
		idx := new(MockMaintainer)

		h := worker.NewMaintenanceConsumer(idx, 10000, 24*time.Hour)
		assert.NoError(t, h.HandleMessage(msg(`{not json`)))
		idx.AssertNotCalled(t, "Count")
	})

	t.Run("Empty Body Still Checks", func(t *testing.T) {
		idx := new(MockMaintainer)
		idx.On("Count", mock.Anything).Return(1, nil)

		h := worker.NewMaintenanceConsumer(idx, 10000, 24*time.Hour)
		assert.NoError(t, h.HandleMessage(msg("")))
		idx.AssertExpectations(t)
	})
}
