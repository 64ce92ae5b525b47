package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/microcart/internal/domain"
)

// cartStoreInMemory — in-memory реализация CartStore для локальной разработки и тестов.
type cartStoreInMemory struct {
	mu     sync.RWMutex
	carts  map[string]domain.Cart
	orders map[string]domain.Cart
}

// NewCartStore возвращает пустое in-memory хранилище корзин и заказов.
func NewCartStore() *cartStoreInMemory {
	return &cartStoreInMemory{
		carts:  make(map[string]domain.Cart),
		orders: make(map[string]domain.Cart),
	}
}

// FetchCart возвращает копию корзины; отсутствие корзины не является ошибкой.
func (s *cartStoreInMemory) FetchCart(_ context.Context, id string) (domain.Cart, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cart, ok := s.carts[id]
	if !ok {
		return domain.Cart{}, false, nil
	}
	return cloneCart(cart), true, nil
}

// FetchOrder возвращает копию заказа или ErrOrderNotFound.
func (s *cartStoreInMemory) FetchOrder(_ context.Context, id string) (domain.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[id]
	if !ok {
		return domain.Cart{}, domain.ErrOrderNotFound
	}
	return cloneCart(order), nil
}

// PersistCart сохраняет копию корзины; id обязателен.
func (s *cartStoreInMemory) PersistCart(_ context.Context, cart domain.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cart.ID == "" {
		return domain.ErrTrackingIDRequired
	}
	s.carts[cart.ID] = cloneCart(cart)
	return nil
}

// CreateOrder сохраняет заказ под id корзины (или новым uuid, если id пуст).
func (s *cartStoreInMemory) CreateOrder(_ context.Context, cart domain.Cart) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := cart.ID
	if id == "" {
		id = uuid.NewString()
		cart.ID = id
	}
	if _, exists := s.orders[id]; exists {
		return "", domain.ErrOrderConflict
	}
	s.orders[id] = cloneCart(cart)
	return id, nil
}

// DeleteCart удаляет корзину или возвращает ErrCartNotFound.
func (s *cartStoreInMemory) DeleteCart(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.carts[id]; !ok {
		return domain.ErrCartNotFound
	}
	delete(s.carts, id)
	return nil
}

// Ping всегда успешен; нужен для health-проверок.
func (s *cartStoreInMemory) Ping(context.Context) error {
	return nil
}

// cloneCart копирует срез позиций и OrderData, чтобы хранилище не делило память с вызывающим.
func cloneCart(cart domain.Cart) domain.Cart {
	out := cart
	out.Positions = append([]domain.Position(nil), cart.Positions...)
	if cart.OrderData != nil {
		data := *cart.OrderData
		out.OrderData = &data
	}
	return out
}

var _ domain.CartStore = (*cartStoreInMemory)(nil)
