package rabbitmq

import "context"

// PublisherInterface is the publish(topic, payload) seam used by services.
type PublisherInterface interface {
	Publish(ctx context.Context, routingKey string, data any) error
}

var _ PublisherInterface = (*Publisher)(nil)
