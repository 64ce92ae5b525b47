package kafka

import (
	"context"
	"fmt"

	"github.com/vladislavdragonenkov/microcart/internal/domain"
)

// OrderEventPublisher отправляет события оформленных заказов в Kafka.
type OrderEventPublisher struct {
	producer *Producer
	topic    string
}

// NewOrderEventPublisher создаёт publisher; пустой topic означает TopicOrderEvents.
func NewOrderEventPublisher(producer *Producer, topic string) *OrderEventPublisher {
	if topic == "" {
		topic = TopicOrderEvents
	}
	return &OrderEventPublisher{
		producer: producer,
		topic:    topic,
	}
}

// PublishOrderPlaced публикует событие с ключом по id заказа.
func (p *OrderEventPublisher) PublishOrderPlaced(ctx context.Context, event domain.OrderPlaced) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka order publisher is not initialized")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.producer.PublishEvent(p.topic, event.OrderID, EventTypeOrderPlaced, NewOrderPlacedEvent(event))
}

var _ domain.EventPublisher = (*OrderEventPublisher)(nil)
