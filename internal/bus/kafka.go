package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

const publishTimeout = 10 * time.Second

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes trace events to a Kafka topic keyed by run ID, so
// every span of a run lands on the same partition.
type KafkaPublisher struct {
	w     MessageWriter
	topic string
}

// NewKafkaPublisher creates a publisher for a comma separated broker list.
func NewKafkaPublisher(brokers, topic string) (*KafkaPublisher, error) {
	var addrs []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			addrs = append(addrs, b)
		}
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("kafka publisher: no brokers")
	}
	if strings.TrimSpace(topic) == "" {
		return nil, fmt.Errorf("kafka publisher: no topic")
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(addrs...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{w: w, topic: topic}, nil
}

// NewKafkaPublisherWithWriter wraps an existing writer.
func NewKafkaPublisherWithWriter(w MessageWriter, topic string) *KafkaPublisher {
	return &KafkaPublisher{w: w, topic: topic}
}

// Publish writes one event.
func (p *KafkaPublisher) Publish(ctx context.Context, evt *Event) error {
	value, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal trace event: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(evt.RunID),
		Value: value,
		Time:  evt.EndedAt,
		Headers: []kafka.Header{
			{Key: "span_kind", Value: []byte(evt.Kind)},
			{Key: "node", Value: []byte(evt.Node)},
		},
	})
}

// Handler adapts the publisher to the bus. Failures are logged and never
// interrupt the run.
func (p *KafkaPublisher) Handler() Handler {
	return func(ctx context.Context, evt *Event) {
		if err := p.Publish(ctx, evt); err != nil {
			slog.Warn("Trace publish failed", "topic", p.topic, "node", evt.Node, "error", err)
		}
	}
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}
