package kafka

import (
	"errors"
	"fmt"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

func TestIsTopicExists(t *testing.T) {
	assert.True(t, isTopicExists(kafka.TopicAlreadyExists))
	assert.True(t, isTopicExists(fmt.Errorf("create topic payments.reconciled: %w", kafka.TopicAlreadyExists)))

	assert.False(t, isTopicExists(nil))
	assert.False(t, isTopicExists(kafka.InvalidTopic))
	// Matching on the error value, not its text.
	assert.False(t, isTopicExists(errors.New("kafka server: topic already exists")))
}
