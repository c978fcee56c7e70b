package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	headerContentType   = "content-type"
	headerReplyTopic    = "reply-topic"
	headerCorrelationID = "correlation-id"
)

// Producer writes JSON events to any topic; the topic is chosen per message.
type Producer struct {
	w *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			Async:                  false,
			AllowAutoTopicCreation: true,
			BatchTimeout:           10 * time.Millisecond,
		},
	}
}

func (p *Producer) Close() error {
	return p.w.Close()
}

// Emit publishes payload to topic, keyed so events of one order or checkout
// land on the same partition.
func (p *Producer) Emit(ctx context.Context, topic, key string, payload any) error {
	msg, err := newMessage(topic, key, payload)
	if err != nil {
		return err
	}
	return p.w.WriteMessages(ctx, msg)
}

// Reply answers a request that carried a reply-topic header.
func (p *Producer) Reply(ctx context.Context, topic, correlationID string, result any) error {
	msg, err := newMessage(topic, correlationID, result)
	if err != nil {
		return err
	}
	if correlationID != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: headerCorrelationID, Value: []byte(correlationID)})
	}
	return p.w.WriteMessages(ctx, msg)
}

func newMessage(topic, key string, payload any) (kafka.Message, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return kafka.Message{}, err
	}

	msg := kafka.Message{
		Topic: topic,
		Value: b,
		Headers: []kafka.Header{
			{Key: headerContentType, Value: []byte("application/json")},
		},
	}
	if key != "" {
		msg.Key = []byte(key)
	}
	return msg, nil
}
