package domain

import (
	"context"
	"time"
)

// CartStore описывает backend-хранилище корзин и заказов.
type CartStore interface {
	// FetchCart возвращает корзину; found == false без ошибки означает,
	// что корзины нет. Любая другая проблема возвращается как error.
	FetchCart(ctx context.Context, id string) (cart Cart, found bool, err error)
	// FetchOrder возвращает оформленный заказ или ErrOrderNotFound.
	FetchOrder(ctx context.Context, id string) (Cart, error)
	// PersistCart сохраняет корзину (создаёт или перезаписывает).
	PersistCart(ctx context.Context, cart Cart) error
	// CreateOrder сохраняет содержимое корзины как новый заказ и возвращает его id.
	CreateOrder(ctx context.Context, cart Cart) (string, error)
	// DeleteCart удаляет корзину по id.
	DeleteCart(ctx context.Context, id string) error
}

// IdentityContext — состояние входа текущего запроса у identity-провайдера.
type IdentityContext interface {
	IsLoggedIn(ctx context.Context) bool
	CurrentUser(ctx context.Context) (User, error)
}

// AddressSelf — адрес магазина в почтовом транспорте.
const AddressSelf = "self"

// Mail — текстовое письмо (text/plain, UTF-8).
type Mail struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Notifier доставляет письма.
type Notifier interface {
	SendPlainText(ctx context.Context, mail Mail) error
}

// Renderer превращает корзину в текст по имени шаблона.
type Renderer interface {
	// Render рендерит именованный шаблон с корзиной и дополнительным контекстом.
	Render(name string, cart Cart, extra map[string]any) (string, error)
	// RenderPaymentInfo рендерит инструкции по оплате (может содержать разметку).
	RenderPaymentInfo(cart Cart, orderID string) (string, error)
}

// OrderPlaced — событие об успешно оформленном заказе.
type OrderPlaced struct {
	OrderID    string
	CartID     string
	UserID     string
	TotalPrice float64
	Positions  int
	PlacedAt   time.Time
}

// EventPublisher публикует доменные события наружу.
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event OrderPlaced) error
}

// PlacementStep — шаги оформления заказа для логов и метрик.
type PlacementStep string

const (
	PlacementStepCreateOrder PlacementStep = "create_order"
	PlacementStepDeleteCart  PlacementStep = "delete_cart"
	PlacementStepNotifyUser  PlacementStep = "notify_customer"
	PlacementStepNotifyOwner PlacementStep = "notify_owner"
)
