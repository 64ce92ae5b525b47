package checkout

import (
	"context"
	"encoding/json"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/microcart/internal/domain"
)

// PlaceOrder превращает корзину в заказ: сохраняет заказ, удаляет старую
// корзину и уведомляет покупателя и владельца магазина. Шаги выполняются строго
// последовательно; ошибка любого шага прерывает цепочку и возвращается как есть.
// Компенсации нет: после создания заказа он остаётся оформленным, даже если
// удаление корзины или уведомления не удались.
//
// Параллельное оформление одной и той же корзины не блокируется: оба вызова
// создадут по заказу, второе удаление корзины, скорее всего, вернёт ошибку.
func (s *Service) PlaceOrder(ctx context.Context, cart *domain.Cart) (string, error) {
	start := s.now()
	if s.metrics != nil {
		s.metrics.RecordPlacementStarted()
	}

	orderID, step, err := s.placeOrder(ctx, cart)
	if err != nil {
		s.logPlacementFailure(cart, step, err)
		if s.metrics != nil {
			s.metrics.RecordPlacementFailed(string(step), s.now().Sub(start))
		}
		return "", err
	}

	if s.metrics != nil {
		s.metrics.RecordPlacementCompleted(s.now().Sub(start))
	}
	s.publishOrderPlaced(ctx, cart, orderID)
	return orderID, nil
}

func (s *Service) placeOrder(ctx context.Context, cart *domain.Cart) (string, domain.PlacementStep, error) {
	now := s.now().UTC()
	cart.Timestamp = now
	cart.TimestampLastUpdated = now

	oldCartID := cart.ID
	cart.ID = s.newID()

	var orderID string
	if err := s.runStep(domain.PlacementStepCreateOrder, func() error {
		id, err := s.store.CreateOrder(ctx, *cart)
		orderID = id
		return err
	}); err != nil {
		return "", domain.PlacementStepCreateOrder, err
	}

	if err := s.runStep(domain.PlacementStepDeleteCart, func() error {
		return s.store.DeleteCart(ctx, oldCartID)
	}); err != nil {
		return "", domain.PlacementStepDeleteCart, err
	}

	s.logger.WithFields(log.Fields{
		"order_id":    orderID,
		"old_cart_id": oldCartID,
	}).Info("placed order")

	if err := s.runStep(domain.PlacementStepNotifyUser, func() error {
		return s.notifyCustomer(ctx, cart, orderID)
	}); err != nil {
		return "", domain.PlacementStepNotifyUser, err
	}

	if err := s.runStep(domain.PlacementStepNotifyOwner, func() error {
		return s.notifyOwner(ctx, cart, orderID)
	}); err != nil {
		return "", domain.PlacementStepNotifyOwner, err
	}

	return orderID, "", nil
}

func (s *Service) runStep(step domain.PlacementStep, fn func() error) error {
	start := s.now()
	err := fn()
	if s.metrics != nil {
		s.metrics.RecordStepDuration(string(step), s.now().Sub(start))
	}
	return err
}

// logPlacementFailure пишет ошибку вместе с содержимым корзины для разбора.
func (s *Service) logPlacementFailure(cart *domain.Cart, step domain.PlacementStep, err error) {
	entry := s.logger.WithError(err).WithFields(log.Fields{
		"step":    step,
		"cart_id": cart.ID,
		"user_id": cart.UserID,
	})

	snapshot, marshalErr := json.Marshal(cart)
	if marshalErr != nil {
		entry.WithField("marshal_error", marshalErr.Error()).Error("error while placing order, cart is not serializable")
		return
	}
	entry.WithField("cart", string(snapshot)).Error("error while placing order")
}

func (s *Service) publishOrderPlaced(ctx context.Context, cart *domain.Cart, orderID string) {
	if s.events == nil {
		return
	}

	event := domain.OrderPlaced{
		OrderID:    orderID,
		CartID:     cart.ID,
		UserID:     cart.UserID,
		TotalPrice: cart.TotalPrice(),
		Positions:  len(cart.Positions),
		PlacedAt:   cart.Timestamp,
	}
	if err := s.events.PublishOrderPlaced(ctx, event); err != nil {
		// Заказ уже оформлен, событие не влияет на результат.
		s.logger.WithError(err).WithField("order_id", orderID).Warn("failed to publish order placed event")
	}
}
