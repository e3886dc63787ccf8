package services

import (
	"context"
	"sync"
	"time"

	"storefront-service/internal/domain"
	rabbit "storefront-service/internal/infra/rabbitmq"

	"go.uber.org/zap"
)

// Notifier publishes events in the background. Failures are logged and
// swallowed; nothing that calls it waits for delivery.
type Notifier struct {
	publisher rabbit.PublisherInterface
	timeout   time.Duration
	log       *zap.Logger
	wg        sync.WaitGroup
}

func NewNotifier(pub rabbit.PublisherInterface, timeout time.Duration, log *zap.Logger) *Notifier {
	return &Notifier{publisher: pub, timeout: timeout, log: log}
}

func (n *Notifier) OrderConfirmed(order *domain.Order) {
	evt := domain.OrderConfirmedEvent{
		OrderID:        order.ID,
		UserID:         order.UserID,
		RecipientEmail: order.ContactEmail,
		Total:          order.Total,
		Items:          order.Items,
		CreatedAt:      order.CreatedAt,
	}
	n.Emit(domain.TopicOrderConfirmed, evt)
}

func (n *Notifier) Emit(topic string, payload any) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		if err := n.publisher.Publish(ctx, topic, payload); err != nil {
			n.log.Warn("failed to publish event", zap.String("topic", topic), zap.Error(err))
			return
		}
		n.log.Debug("published event", zap.String("topic", topic))
	}()
}

// Wait blocks until every in-flight publish has finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}
