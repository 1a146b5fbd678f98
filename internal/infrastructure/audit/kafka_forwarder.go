package audit

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/courierd/courierd/internal/config"
	"github.com/courierd/courierd/internal/domain/models"
	"github.com/courierd/courierd/pkg/logger"
)

// KafkaForwarder publishes stored security events to a Kafka topic for
// external SIEM consumption. It is a secondary destination: publish failures
// are logged and swallowed, the gorm store stays the source of truth.
type KafkaForwarder struct {
	writer *kafka.Writer
	logger logger.Logger
}

var _ Forwarder = (*KafkaForwarder)(nil)

// NewKafkaForwarder creates a forwarder for the configured brokers and topic.
func NewKafkaForwarder(cfg config.KafkaConfig, log logger.Logger) *KafkaForwarder {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.AuditTopic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
	}
	return &KafkaForwarder{
		writer: writer,
		logger: log.WithComponent("kafka_forwarder"),
	}
}

// Forward implements Forwarder.
func (f *KafkaForwarder) Forward(ctx context.Context, event *models.SecurityEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return f.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(string(event.EventType)),
		Value: payload,
	})
}

// Close closes the underlying Kafka writer.
func (f *KafkaForwarder) Close() error {
	return f.writer.Close()
}
