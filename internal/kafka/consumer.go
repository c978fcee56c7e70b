package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/RaikyD/order-lifecycle-service/internal/application"
	"github.com/RaikyD/order-lifecycle-service/internal/domain"
	"github.com/RaikyD/order-lifecycle-service/internal/logger"
	"github.com/segmentio/kafka-go"
)

const (
	DefaultMaxRetries = 5
	fetchBackoff      = 300 * time.Millisecond
)

type ConsumerConfig struct {
	Brokers    []string
	GroupID    string
	Topics     []string
	MaxRetries int
}

// Replier sends a Result back to the requester of a command.
type Replier interface {
	Reply(ctx context.Context, topic, correlationID string, result any) error
}

type handleFunc func(ctx context.Context, topic string, value []byte) (application.Result, error)

type consumer struct {
	handle     handleFunc
	replies    Replier
	maxRetries int
	backoff    time.Duration
}

// StartConsumer reads every dispatcher topic in one consumer group. A message
// is committed once it succeeded, failed permanently or ran out of retries.
func StartConsumer(ctx context.Context, d *Dispatcher, replies Replier, cfg ConsumerConfig) (*kafka.Reader, error) {
	if cfg.GroupID == "" {
		return nil, errors.New("kafka consumer needs a group id")
	}
	topics := cfg.Topics
	if len(topics) == 0 {
		topics = d.Topics()
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:         cfg.Brokers,
		GroupID:         cfg.GroupID,
		GroupTopics:     topics,
		MinBytes:        1,
		MaxBytes:        10e6,
		CommitInterval:  0,
		StartOffset:     kafka.FirstOffset,
		ReadLagInterval: -1,
	})

	logger.Info("kafka consumer starting", "brokers", cfg.Brokers, "topics", topics, "group", cfg.GroupID)

	c := &consumer{handle: d.Handle, replies: replies, maxRetries: maxRetries, backoff: fetchBackoff}
	go func() {
		defer r.Close()

		for {
			m, err := r.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Warn("kafka fetch error", "err", err)
				time.Sleep(fetchBackoff)
				continue
			}

			if !c.process(ctx, m) {
				return
			}

			if err := r.CommitMessages(ctx, m); err != nil {
				logger.Warn("kafka commit failed", "topic", m.Topic, "offset", m.Offset, "err", err)
			}
		}
	}()
	return r, nil
}

// process handles one message and reports whether its offset may be
// committed. It returns false only when ctx ended before the message settled.
func (c *consumer) process(ctx context.Context, m kafka.Message) bool {
	logger.Debug("kafka message fetched", "topic", m.Topic, "partition", m.Partition, "offset", m.Offset)

	var (
		res application.Result
		err error
	)
	for attempt := 1; ; attempt++ {
		res, err = c.handle(ctx, m.Topic, m.Value)
		if err == nil || domain.IsPermanent(err) || attempt > c.maxRetries {
			break
		}
		logger.Warn("kafka handler failed, will retry", "topic", m.Topic, "offset", m.Offset, "attempt", attempt, "err", err)
		select {
		case <-ctx.Done():
			return false
		case <-time.After(c.backoff * time.Duration(attempt)):
		}
	}

	switch {
	case err == nil:
		logger.Info("kafka message handled", "topic", m.Topic, "partition", m.Partition, "offset", m.Offset)
	case domain.IsPermanent(err):
		logger.Warn("kafka message rejected", "topic", m.Topic, "offset", m.Offset, "err", err)
	default:
		logger.Error("kafka message dropped after retries", "topic", m.Topic, "offset", m.Offset, "err", err)
	}

	c.reply(ctx, m, res)
	return true
}

func (c *consumer) reply(ctx context.Context, m kafka.Message, res application.Result) {
	topic := header(m, headerReplyTopic)
	if topic == "" || c.replies == nil {
		return
	}
	if err := c.replies.Reply(ctx, topic, header(m, headerCorrelationID), res); err != nil {
		logger.Error("kafka reply failed", "topic", topic, "err", err)
	}
}

func header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
