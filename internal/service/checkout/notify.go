package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/microcart/internal/domain"
	"github.com/vladislavdragonenkov/microcart/internal/metrics"
)

const (
	notificationCustomer = "customer"
	notificationOwner    = "owner"

	ownerSubjectPrefix = "Bestellung von "
)

// notifyCustomer отправляет покупателю подтверждение заказа с инструкциями по оплате.
func (s *Service) notifyCustomer(ctx context.Context, cart *domain.Cart, orderID string) error {
	recipient := ""
	if cart.OrderData != nil {
		recipient = cart.OrderData.Email
	}
	if recipient == "" {
		s.recordNotification(notificationCustomer, metrics.ResultFailure)
		return domain.ErrRecipientRequired
	}

	paymentInfo, err := s.renderer.RenderPaymentInfo(*cart, orderID)
	if err != nil {
		s.recordNotification(notificationCustomer, metrics.ResultFailure)
		return err
	}

	body, err := s.renderer.Render(s.cfg.ConfirmationTemplate, *cart, map[string]any{
		"orderId":     orderID,
		"paymentInfo": StripMarkup(paymentInfo),
	})
	if err != nil {
		s.recordNotification(notificationCustomer, metrics.ResultFailure)
		return err
	}

	mail := domain.Mail{
		From:    domain.AddressSelf,
		To:      recipient,
		Subject: s.cfg.OrderSuccessSubject,
		Body:    body,
	}
	if err := s.notifier.SendPlainText(ctx, mail); err != nil {
		s.recordNotification(notificationCustomer, metrics.ResultFailure)
		return err
	}
	s.recordNotification(notificationCustomer, metrics.ResultSuccess)
	return nil
}

// notifyOwner отправляет владельцу магазина сводку заказа.
// Письмо уходит «от» покупателя, чтобы на него можно было ответить.
func (s *Service) notifyOwner(ctx context.Context, cart *domain.Cart, orderID string) error {
	name := cart.OrderData.FullName()
	from := ""
	if cart.OrderData != nil {
		from = cart.OrderData.Email
	}

	mail := domain.Mail{
		From:    from,
		To:      domain.AddressSelf,
		Subject: ownerSubjectPrefix + name + " " + orderID,
		Body:    s.ownerMailBody(cart, name, orderID),
	}
	if err := s.notifier.SendPlainText(ctx, mail); err != nil {
		s.recordNotification(notificationOwner, metrics.ResultFailure)
		return err
	}
	s.recordNotification(notificationOwner, metrics.ResultSuccess)
	return nil
}

// ownerMailBody собирает тело письма владельцу. Ошибка сериализации не
// прерывает оформление: в письмо попадает то, что успели собрать.
func (s *Service) ownerMailBody(cart *domain.Cart, name, orderID string) string {
	var body strings.Builder
	body.WriteString(name)
	body.WriteString("\n")
	fmt.Fprintf(&body, "Preis: %.2f", cart.TotalPrice())
	body.WriteString("\n\n")

	positions, err := json.MarshalIndent(cart.Positions, "", "  ")
	if err != nil {
		s.logger.WithError(err).WithField("order_id", orderID).Error("error constructing owner notification body")
		return body.String()
	}
	body.Write(positions)
	body.WriteString("\n")

	orderData, err := json.MarshalIndent(cart.OrderData, "", "  ")
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": orderID,
			"part":     "order_data",
		}).Error("error constructing owner notification body")
		return body.String()
	}
	body.Write(orderData)
	return body.String()
}

func (s *Service) recordNotification(kind, result string) {
	if s.metrics != nil {
		s.metrics.RecordNotification(kind, result)
	}
}
