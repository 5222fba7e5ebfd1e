package watch

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/sanspareilsmyn/mongolens/internal/config"
	"github.com/sanspareilsmyn/mongolens/internal/store"
)

// Publisher forwards accumulated change events to another system.
type Publisher interface {
	Publish(ctx context.Context, ev store.ChangeEvent) error
	Close() error
}

type kafkaZapLogger struct {
	log *zap.Logger
}

func (l kafkaZapLogger) Printf(msg string, args ...interface{}) {
	l.log.Debug(fmt.Sprintf(msg, args...))
}

type kafkaZapErrorLogger struct {
	log *zap.Logger
}

func (l kafkaZapErrorLogger) Printf(msg string, args ...interface{}) {
	l.log.Error(fmt.Sprintf(msg, args...))
}

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes change events as JSON to a Kafka topic, keyed by
// document key so events of one document stay on one partition.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger *zap.Logger
}

// NewKafkaPublisher creates a publisher for cfg.Topic on cfg.Brokers.
func NewKafkaPublisher(cfg config.KafkaConfig, logger *zap.Logger) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		logger.Error("Kafka configuration validation failed",
			zap.Strings("brokers", cfg.Brokers),
			zap.String("topic", cfg.Topic),
		)
		return nil, ErrInvalidKafkaConfig
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		Logger:                 kafkaZapLogger{logger.Named("kafka-writer").WithOptions(zap.AddCallerSkip(1))},
		ErrorLogger:            kafkaZapErrorLogger{logger.Named("kafka-writer-error").WithOptions(zap.AddCallerSkip(1))},
	}

	logger.Info("Kafka publisher created",
		zap.String("topic", cfg.Topic),
		zap.Strings("brokers", cfg.Brokers),
	)
	return &KafkaPublisher{writer: w, topic: cfg.Topic, logger: logger}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev store.ChangeEvent) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	msg := kafka.Message{
		Key:   []byte(ev.DocumentKey),
		Value: value,
		Time:  ev.ClusterTime,
		Headers: []kafka.Header{
			{Key: "operationType", Value: []byte(ev.OperationType)},
			{Key: "collection", Value: []byte(ev.Collection)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	p.logger.Info("Closing Kafka publisher", zap.String("topic", p.topic))
	return p.writer.Close()
}
