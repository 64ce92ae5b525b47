package checkout

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/microcart/internal/domain"
)

const (
	prefillSkipped = "skipped"
	prefillMerged  = "merged"
	prefillFailed  = "failed"
)

// PrefillOrderData дополняет OrderData корзины данными профиля вошедшего
// пользователя. Заполняются только пустые поля; повторный вызов ничего не меняет.
func (s *Service) PrefillOrderData(ctx context.Context, cart *domain.Cart, identity domain.IdentityContext) error {
	orderData := cart.EnsureOrderData()

	if identity == nil || !identity.IsLoggedIn(ctx) {
		s.recordPrefill(prefillSkipped)
		return nil
	}

	user, err := identity.CurrentUser(ctx)
	if errors.Is(err, domain.ErrNotLoggedIn) {
		// Токен есть, но провайдер его не принял: пользователь считается гостем.
		s.logger.WithField("tracking_id", cart.ID).Debug("login not verified, prefill skipped")
		s.recordPrefill(prefillSkipped)
		return nil
	}
	if err != nil {
		s.logger.WithError(err).WithField("tracking_id", cart.ID).Warn("failed to load user profile for prefill")
		s.recordPrefill(prefillFailed)
		return err
	}

	cart.UserID = user.ID
	mergeProfile(orderData, user)

	s.logger.WithFields(log.Fields{
		"tracking_id": cart.ID,
		"user_id":     user.ID,
	}).Debug("order data prefilled from profile")
	s.recordPrefill(prefillMerged)
	return nil
}

// mergeProfile переносит значения профиля только в пустые поля.
func mergeProfile(orderData *domain.OrderData, user domain.User) {
	fillEmpty(&orderData.GivenName, user.Name.GivenName)
	fillEmpty(&orderData.FamilyName, user.Name.FamilyName)
	fillEmpty(&orderData.HonorificPrefix, user.Name.HonorificPrefix)

	if phone, ok := domain.SelectPreferred(user.PhoneNumbers, domain.IsPrimaryValue); ok {
		fillEmpty(&orderData.PhoneNumber, phone.Value)
	}
	if email, ok := domain.SelectPreferred(user.Emails, domain.IsPrimaryValue); ok {
		fillEmpty(&orderData.Email, email.Value)
	}

	// Адрес переносится целиком: наличие улицы решает за всю группу.
	if address, ok := domain.SelectPreferred(user.Addresses, domain.IsPrimaryAddress); ok && orderData.StreetAddress == "" {
		orderData.Locality = address.Locality
		orderData.StreetAddress = address.StreetAddress
		orderData.PostalCode = address.PostalCode
	}
}

func fillEmpty(target *string, value string) {
	if *target == "" {
		*target = value
	}
}

func (s *Service) recordPrefill(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordPrefill(outcome)
	}
}
