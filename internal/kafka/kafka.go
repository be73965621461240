// Package kafka carries domain events over a Kafka topic.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"teamfinance/internal/events"
	"teamfinance/internal/log"
)

const (
	handlerAttempts = 3
	retryDelay      = time.Second
)

// Publisher writes events keyed by team name, so events of one team keep
// their order within a partition.
type Publisher struct {
	writer *kafka.Writer
}

var _ events.Publisher = (*Publisher)(nil)

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (p *Publisher) Publish(ctx context.Context, ev events.Event) error {
	data, err := ev.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.TeamName),
		Value: data,
		Time:  ev.Timestamp,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(ev.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("write kafka message: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// Consumer reads events as part of a consumer group. Offsets are committed
// only after the handler succeeds or the message is given up on.
type Consumer struct {
	reader *kafka.Reader
	logger *log.Logger
}

var _ events.Consumer = (*Consumer)(nil)

func NewConsumer(brokers []string, topic, groupID string, logger *log.Logger) *Consumer {
	if logger == nil {
		logger = log.Discard()
	}
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			GroupID:  groupID,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
		logger: logger.WithComponent(log.ComponentKafka),
	}
}

func (c *Consumer) Consume(ctx context.Context, h events.Handler) error {
	c.logger.InfoContext(ctx, "Started consuming events", "topic", c.reader.Config().Topic)
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("fetch kafka message: %w", err)
		}

		c.handle(ctx, msg, h)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("commit kafka message: %w", err)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message, h events.Handler) {
	ev, err := events.FromJSON(msg.Value)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to decode event",
			log.FieldError, err,
			"partition", msg.Partition,
			"offset", msg.Offset)
		return
	}

	if err := retry(ctx, handlerAttempts, retryDelay, func() error { return h(ctx, ev) }); err != nil {
		c.logger.ErrorContext(ctx, "Giving up on event",
			log.FieldError, err,
			log.FieldEventType, ev.Type,
			"event_id", ev.ID,
			"offset", msg.Offset)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

func retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(delay * time.Duration(i+1)):
		}
	}
	return err
}
