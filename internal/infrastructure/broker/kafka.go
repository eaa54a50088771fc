package broker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"fallout/internal/errs"
	"fallout/internal/ports"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// KafkaPublisher keys messages by order id so one order's entries stay in
// one partition and keep their order.
type KafkaPublisher struct {
	writer messageWriter
}

var _ ports.AuditPublisher = (*KafkaPublisher)(nil)

func NewKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	brokers := make([]string, 0, len(cfg.Brokers))
	for _, item := range cfg.Brokers {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	if len(brokers) == 0 {
		return nil, errors.New("audit.kafka.brokers is required")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, errors.New("audit.kafka.topic is required")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        strings.TrimSpace(cfg.Topic),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: cfg.WriteTimeout,
	}
	return newKafkaPublisher(writer), nil
}

func newKafkaPublisher(writer messageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

func (p *KafkaPublisher) Name() string {
	return "kafka"
}

func (p *KafkaPublisher) Publish(ctx context.Context, records []ports.AuditRecord) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	if len(records) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(records))
	for _, record := range records {
		data, err := json.Marshal(record)
		if err != nil {
			return errs.Wrapf(err, "marshal audit record %s", record.LogID)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(record.OrderID),
			Value: data,
			Headers: []kafka.Header{
				{Key: "log_id", Value: []byte(record.LogID)},
				{Key: "event_type", Value: []byte(record.EventType)},
			},
			Time: record.Timestamp,
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return errs.Wrap(err, "write kafka messages")
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
