package domain

import "errors"

var (
	// ErrCartNotFound — корзины с таким tracking id нет в хранилище.
	ErrCartNotFound = errors.New("cart not found")
	// ErrOrderNotFound — заказа с таким идентификатором нет в хранилище.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderConflict — заказ с таким идентификатором уже существует.
	ErrOrderConflict = errors.New("order already exists")
	// ErrTrackingIDRequired — операция требует непустой tracking id.
	ErrTrackingIDRequired = errors.New("tracking id is required")
	// ErrOrderIDRequired — операция требует непустой идентификатор заказа.
	ErrOrderIDRequired = errors.New("order id is required")
	// ErrRecipientRequired — у письма нет адреса получателя.
	ErrRecipientRequired = errors.New("mail recipient is required")
	// ErrNotLoggedIn — профиль запрошен без подтверждённого входа.
	ErrNotLoggedIn = errors.New("user is not logged in")
	// ErrBackendUnavailable — backend ответил неожиданным статусом.
	ErrBackendUnavailable = errors.New("backend request failed")
)

// IsNotFound сообщает, означает ли ошибка отсутствие ресурса.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCartNotFound) || errors.Is(err, ErrOrderNotFound)
}
