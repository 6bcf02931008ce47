// Package events publishes ledger events to Kafka after a balance mutation
// commits. Publishing is best effort: failures are logged and counted,
// never returned to the caller of a settlement operation.
package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"tekpay/internal/metrics"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	TypeTransaction = "transaction"
	TypeReferral    = "referral"
)

type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	UserID     uint            `json:"user_id"`
	Reference  string          `json:"reference,omitempty"`
	Category   string          `json:"category,omitempty"`
	Status     string          `json:"status,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Title      string          `json:"title"`
	Message    string          `json:"message"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter returns an async writer tuned for small ledger events.
func NewKafkaWriter(brokers []string, topic string, logger *zap.Logger) *kafka.Writer {
	sugar := logger.Sugar()
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		MaxAttempts:  3,
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		Compression:  kafka.Snappy,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			sugar.Errorf("kafka: "+msg, args...)
		}),
	}
}

type KafkaPublisher struct {
	writer  MessageWriter
	logger  *zap.Logger
	metrics metrics.Recorder
}

func NewKafkaPublisher(writer MessageWriter, logger *zap.Logger, recorder metrics.Recorder) *KafkaPublisher {
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	return &KafkaPublisher{writer: writer, logger: logger, metrics: recorder}
}

// Publish keys the message by user id so one user's events stay ordered.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(event.UserID), 10)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
		Time: event.OccurredAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.metrics.RecordPublishError()
		p.logger.Error("failed to publish event",
			zap.String("type", event.Type),
			zap.String("reference", event.Reference),
			zap.Error(err))
		return err
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Noop is used when no brokers are configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }

// New builds a Kafka publisher, or Noop when brokers is empty.
func New(brokers []string, topic string, logger *zap.Logger, recorder metrics.Recorder) Publisher {
	if len(brokers) == 0 {
		logger.Info("kafka brokers not configured, ledger events disabled")
		return Noop{}
	}
	return NewKafkaPublisher(NewKafkaWriter(brokers, topic, logger), logger, recorder)
}
