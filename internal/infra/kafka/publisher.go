package kafka

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront-service/internal/infra/rabbitmq"

	"github.com/segmentio/kafka-go"
)

// Publisher writes events to a single topic keyed by pattern, using the same
// envelope as the AMQP publisher.
type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(brokersCSV, topic string) (*Publisher, error) {
	var brokers []string
	for _, b := range strings.Split(brokersCSV, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers configured")
	}
	return &Publisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}}, nil
}

func (p *Publisher) Publish(ctx context.Context, pattern string, data any) error {
	body, err := rabbitmq.Encode(pattern, data)
	if err != nil {
		return err
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(pattern), Value: body, Time: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("kafka publish %s: %w", pattern, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ rabbitmq.PublisherInterface = (*Publisher)(nil)
