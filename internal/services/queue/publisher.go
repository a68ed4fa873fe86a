package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/phambaophuc/image-compressor/internal/models"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

func (q *QueueService) PublishBatchEvent(ctx context.Context, event models.BatchEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal batch event: %w", err)
	}

	q.mu.Lock()
	err = q.channel.Publish(
		"",          // exchange
		q.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			MessageId:    event.BatchID,
			Type:         "batch." + event.Status,
		},
	)
	q.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to publish batch event: %w", err)
	}

	q.logger.Info("Batch event published",
		zap.String("batch_id", event.BatchID),
		zap.String("status", event.Status))
	return nil
}
