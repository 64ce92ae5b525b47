package kafka

import (
	"time"

	"github.com/vladislavdragonenkov/microcart/internal/domain"
)

// EventType определяет тип события
type EventType string

// EventTypeOrderPlaced — заказ оформлен и оба письма отправлены.
const EventTypeOrderPlaced EventType = "order.placed"

// TopicOrderEvents — topic событий заказов по умолчанию.
const TopicOrderEvents = "microcart.order.events"

// HeaderEventType дублирует тип события в заголовке сообщения.
const HeaderEventType = "x-event-type"

// OrderPlacedEvent — сообщение об оформленном заказе.
type OrderPlacedEvent struct {
	EventType  EventType `json:"event_type"`
	OrderID    string    `json:"order_id"`
	CartID     string    `json:"cart_id"`
	UserID     string    `json:"user_id,omitempty"`
	TotalPrice float64   `json:"total_price"`
	Positions  int       `json:"positions"`
	PlacedAt   time.Time `json:"placed_at"`
}

// NewOrderPlacedEvent строит сообщение из доменного события.
func NewOrderPlacedEvent(event domain.OrderPlaced) *OrderPlacedEvent {
	placedAt := event.PlacedAt
	if placedAt.IsZero() {
		placedAt = time.Now()
	}
	return &OrderPlacedEvent{
		EventType:  EventTypeOrderPlaced,
		OrderID:    event.OrderID,
		CartID:     event.CartID,
		UserID:     event.UserID,
		TotalPrice: event.TotalPrice,
		Positions:  event.Positions,
		PlacedAt:   placedAt.UTC(),
	}
}
