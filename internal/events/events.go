package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"betai/internal/logger"
)

// ChatExchanged is emitted after every answered chat message.
type ChatExchanged struct {
	UserID string    `json:"user_id,omitempty"`
	Sport  string    `json:"sport"`
	Intent string    `json:"intent"`
	Source string    `json:"source"`
	Model  string    `json:"model,omitempty"`
	At     time.Time `json:"at"`
}

// Publisher delivers chat events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e ChatExchanged) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, ChatExchanged) error { return nil }
func (Nop) Close() error { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes JSON events to one topic.
type KafkaPublisher struct {
	writer messageWriter
	log    *zap.Logger
}

// NewKafkaPublisher builds a writer for topic on brokers.
func NewKafkaPublisher(brokers []string, topic string, log *zap.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
		ReadTimeout:            10 * time.Second,
		WriteTimeout:           10 * time.Second,
	}
	return &KafkaPublisher{writer: writer, log: logger.OrNop(log)}
}

// Publish serializes e and writes it keyed by user so one user's events stay ordered.
func (p *KafkaPublisher) Publish(ctx context.Context, e ChatExchanged) error {
	value, err := json.Marshal(e)
	if err != nil {
		return err
	}
	key := e.UserID
	if key == "" {
		key = "anonymous"
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  e.At,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Error("failed to publish chat event", zap.Error(err))
		return err
	}
	p.log.Debug("published chat event", zap.String("intent", e.Intent), zap.String("source", e.Source))
	return nil
}

// Close flushes pending writes.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
