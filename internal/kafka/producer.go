package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"ms-reconciliation/internal/logger"
	"ms-reconciliation/internal/models"
)

type Producer struct {
	Writer          *kafka.Writer
	Brokers         []string
	ReconciledTopic string
	Logger          *logger.Logger
}

func NewProducer(brokers []string, reconciledTopic string, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer{
		Writer:          writer,
		Brokers:         brokers,
		ReconciledTopic: reconciledTopic,
		Logger:          log,
	}
}

// Publish writes one message to the given topic.
func (p *Producer) Publish(topic, key string, value []byte) error {
	return p.Writer.WriteMessages(context.Background(),
		kafka.Message{
			Topic: topic,
			Key:   []byte(key),
			Value: value,
		},
	)
}

// PublishReconciled streams the outcome of one reconciliation run. A
// missing topic is created and the publish retried once; persistent
// failures go back to the caller, which logs and moves on.
func (p *Producer) PublishReconciled(event models.ReconciliationEvent) error {
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = p.Publish(p.ReconciledTopic, event.PSPReference, msgBytes)
	if err == nil {
		p.Logger.LogKafka("PUBLISH", p.ReconciledTopic,
			fmt.Sprintf("reconciliation event for %s (%s)", event.PSPReference, event.Status))
		return nil
	}

	p.Logger.Warn("KAFKA", fmt.Sprintf("Publish to %s failed, ensuring topic exists: %v", p.ReconciledTopic, err))
	if topicErr := CreateTopicIfNotExists(p.Brokers, p.ReconciledTopic); topicErr != nil {
		return fmt.Errorf("create topic %s: %w", p.ReconciledTopic, topicErr)
	}
	return p.Publish(p.ReconciledTopic, event.PSPReference, msgBytes)
}

// Close shuts down the underlying writer.
func (p *Producer) Close() error {
	return p.Writer.Close()
}
