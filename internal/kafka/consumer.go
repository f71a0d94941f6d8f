package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"ms-reconciliation/internal/logger"
	"ms-reconciliation/internal/models"
)

type Consumer struct {
	reader *kafka.Reader
	logger *logger.Logger
}

// NewConsumer creates a Kafka consumer for the notification intake topic
func NewConsumer(brokers []string, topic, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: reader, logger: log}
}

// Start consumes provider notifications from Kafka until the context is
// cancelled. Each message is one NotificationRequestItem; malformed
// messages are logged and skipped, they never stop the loop.
func (c *Consumer) Start(ctx context.Context, handler func(ctx context.Context, n *models.Notification)) {
	c.logger.Info("KAFKA", "Notification consumer started")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("KAFKA", "Notification consumer stopping")
				return
			}
			c.logger.Error("KAFKA", fmt.Sprintf("Error reading message: %v", err))
			continue
		}

		var notification models.Notification
		if err := json.Unmarshal(msg.Value, &notification); err != nil {
			c.logger.Warn("KAFKA", fmt.Sprintf("Failed to unmarshal notification message: %v", err))
			continue
		}

		c.logger.LogKafka("CONSUME", msg.Topic,
			fmt.Sprintf("notification %s [%s]", notification.PSPReference, notification.EventCode))
		handler(ctx, &notification)
	}
}

// Close gracefully shuts down the Kafka reader
func (c *Consumer) Close() error {
	return c.reader.Close()
}
