// Package events publishes checkout facts (orders placed, payments failed,
// status changes) for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

const (
	TopicOrderPlaced   = "order.placed"
	TopicOrderStatus   = "order.status_changed"
	TopicPaymentFailed = "payment.failed"
)

type Publisher interface {
	// Publish sends payload to topic, keyed so that one user's events stay ordered.
	Publish(ctx context.Context, topic, key string, payload any) error
	Close() error
}

// Envelope is the JSON value of every message.
type Envelope struct {
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

func encode(topic string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: topic, OccurredAt: time.Now().UTC(), Data: data})
}

type KafkaPublisher struct {
	writer *kafka.Writer
	closed atomic.Bool
}

// NewKafka returns a synchronous writer; the topic comes from each message.
func NewKafka(brokers []string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		MaxAttempts:            3,
		AllowAutoTopicCreation: true,
		Compression:            kafka.Snappy,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			log.Warn().Msgf("[events] kafka: "+msg, args...)
		}),
	}
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic, key string, payload any) error {
	if p.closed.Load() {
		return fmt.Errorf("publish %s: writer closed", topic)
	}
	value, err := encode(topic, payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", topic, err)
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Topic: topic, Key: []byte(key), Value: value}); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return p.writer.Close()
}

// Nop is used when no brokers are configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, string, any) error { return nil }
func (Nop) Close() error { return nil }

// Message is what Memory records.
type Message struct {
	Topic string
	Key   string
	Value []byte
}

// Memory keeps published messages in process, for tests and local runs.
type Memory struct {
	mu   sync.Mutex
	msgs []Message
}

func (m *Memory) Publish(_ context.Context, topic, key string, payload any) error {
	value, err := encode(topic, payload)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, Message{Topic: topic, Key: key, Value: value})
	return nil
}

func (m *Memory) Close() error { return nil }

// Topic returns the recorded messages of one topic.
func (m *Memory) Topic(topic string) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Message
	for _, msg := range m.msgs {
		if msg.Topic == topic {
			out = append(out, msg)
		}
	}
	return out
}

// PublishAsync fires publish in the background and only logs a failure. Order
// placement must not fail because the broker is down.
func PublishAsync(p Publisher, topic, key string, payload any) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.Publish(ctx, topic, key, payload); err != nil {
			log.Warn().Err(err).Str("topic", topic).Str("key", key).Msg("[events] publish failed")
		}
	}()
}
