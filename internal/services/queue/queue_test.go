package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/phambaophuc/image-compressor/internal/models"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type mockChannel struct {
	mock.Mock
}

func (m *mockChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	args := m.Called(exchange, key, mandatory, immediate, msg)
	return args.Error(0)
}

func (m *mockChannel) QueueInspect(name string) (amqp.Queue, error) {
	args := m.Called(name)
	return args.Get(0).(amqp.Queue), args.Error(1)
}

func (m *mockChannel) Close() error {
	return nil
}

func TestPublishBatchEvent(t *testing.T) {
	ch := new(mockChannel)
	q := newQueueService(nil, ch, "events", zaptest.NewLogger(t))

	event := models.BatchEvent{
		BatchID:    "3f1c",
		Status:     models.StatusCompleted,
		Summary:    models.BatchSummary{TotalFiles: 3, Successful: 2, Failed: 1},
		OccurredAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}

	ch.On("Publish", "", "events", false, false, mock.MatchedBy(func(msg amqp.Publishing) bool {
		var got models.BatchEvent
		if err := json.Unmarshal(msg.Body, &got); err != nil {
			return false
		}
		return msg.ContentType == "application/json" &&
			msg.DeliveryMode == amqp.Persistent &&
			msg.MessageId == "3f1c" &&
			msg.Type == "batch.completed" &&
			got.Summary.Failed == 1
	})).Return(nil).Once()

	require.NoError(t, q.PublishBatchEvent(context.Background(), event))
	ch.AssertExpectations(t)
}

func TestPublishBatchEvent_Errors(t *testing.T) {
	ch := new(mockChannel)
	q := newQueueService(nil, ch, "events", zaptest.NewLogger(t))

	ch.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(amqp.ErrClosed).Once()

	err := q.PublishBatchEvent(context.Background(), models.BatchEvent{BatchID: "x", Status: models.StatusFailed})
	assert.ErrorIs(t, err, amqp.ErrClosed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, q.PublishBatchEvent(ctx, models.BatchEvent{}), context.Canceled)
	ch.AssertNumberOfCalls(t, "Publish", 1)
}

func TestQueueStatsAndHealth(t *testing.T) {
	ch := new(mockChannel)
	q := newQueueService(nil, ch, "events", zaptest.NewLogger(t))

	ch.On("QueueInspect", "events").Return(amqp.Queue{Name: "events", Messages: 4, Consumers: 1}, nil).Twice()

	stats, err := q.GetQueueStats()
	require.NoError(t, err)
	assert.Equal(t, 4, stats["messages"])
	assert.Equal(t, "healthy", q.HealthCheck())

	ch.On("QueueInspect", "events").Return(amqp.Queue{}, errors.New("channel closed"))
	assert.Contains(t, q.HealthCheck(), "unhealthy")
}

func TestHealthCheck_NoChannel(t *testing.T) {
	q := &QueueService{}
	assert.Equal(t, "unhealthy: channel not available", q.HealthCheck())
}
