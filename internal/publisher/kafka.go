// Package publisher fans issued predictions out to Kafka.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/diamondline/props-api/internal/models"
)

// MessageWriter is the subset of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes one JSON message per prediction, keyed by player so a
// consumer sees each player's predictions in log order.
type KafkaPublisher struct {
	writer MessageWriter
	topic  string
	logger *zap.SugaredLogger
}

// NewKafkaPublisher builds a publisher for topic on brokers.
func NewKafkaPublisher(brokers []string, topic string, logger *zap.SugaredLogger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers not provided")
	}
	if topic == "" {
		return nil, errors.New("kafka topic not provided")
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
		ReadTimeout:            10 * time.Second,
		WriteTimeout:           10 * time.Second,
	}
	return NewWithWriter(writer, topic, logger), nil
}

// NewWithWriter wraps an existing writer.
func NewWithWriter(w MessageWriter, topic string, logger *zap.SugaredLogger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &KafkaPublisher{writer: w, topic: topic, logger: logger}
}

// PublishPrediction serializes p and writes it.
func (k *KafkaPublisher) PublishPrediction(ctx context.Context, p *models.Prediction) error {
	value, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode prediction: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(p.PlayerID, 10)),
		Value: value,
		Time:  p.CreatedAt,
		Headers: []kafka.Header{
			{Key: "prop_type", Value: []byte(p.PropType)},
			{Key: "model_version", Value: []byte(p.ModelVersion)},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish prediction %s: %w", p.ID, err)
	}

	k.logger.Debugw("Published prediction", "topic", k.topic, "id", p.ID, "player", p.PlayerID)
	return nil
}

// Close flushes and closes the writer.
func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}
