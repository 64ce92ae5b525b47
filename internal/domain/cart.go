package domain

import (
	"strings"
	"time"
)

// Position — позиция корзины. Для оркестратора важны только количество и цена.
type Position struct {
	ArticleID string  `json:"articleId"`
	Title     string  `json:"title,omitempty"`
	Size      string  `json:"size,omitempty"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// Total возвращает стоимость позиции с учётом количества.
func (p Position) Total() float64 {
	return p.Price * float64(p.Quantity)
}

// OrderData содержит контактные данные и адрес доставки.
// Каждое поле независимо: пустая строка означает «не заполнено».
type OrderData struct {
	GivenName       string `json:"givenName,omitempty"`
	FamilyName      string `json:"familyName,omitempty"`
	HonorificPrefix string `json:"honorificPrefix,omitempty"`
	PhoneNumber     string `json:"phoneNumber,omitempty"`
	Email           string `json:"email,omitempty"`
	StreetAddress   string `json:"streetAddress,omitempty"`
	Locality        string `json:"locality,omitempty"`
	PostalCode      string `json:"postalCode,omitempty"`
}

// FullName склеивает имя и фамилию покупателя.
func (d *OrderData) FullName() string {
	if d == nil {
		return ""
	}
	return strings.TrimSpace(d.GivenName + " " + d.FamilyName)
}

// Cart — незавершённая покупка. После оформления корзина превращается в заказ
// той же формы, но с новым идентификатором и в отдельной коллекции.
type Cart struct {
	// ID — tracking id корзины; при оформлении заменяется новым.
	ID        string     `json:"id,omitempty"`
	Positions []Position `json:"positions"`
	// OrderData отсутствует, пока покупатель или prefill её не заполнили.
	OrderData *OrderData `json:"orderData,omitempty"`
	// UserID — subject id identity-провайдера.
	UserID string `json:"userId,omitempty"`
	// ShippingCosts и ShippingCostLimit всегда берутся из текущей конфигурации.
	ShippingCosts     float64 `json:"shippingCosts"`
	ShippingCostLimit float64 `json:"shippingCostLimit"`

	Timestamp            time.Time `json:"timestamp,omitzero"`
	TimestampLastUpdated time.Time `json:"timestampLastUpdated,omitzero"`
}

// NewCart создаёт пустую корзину с заданной политикой доставки.
func NewCart(id string, shippingCosts, shippingCostLimit float64) Cart {
	return Cart{
		ID:                id,
		Positions:         []Position{},
		ShippingCosts:     shippingCosts,
		ShippingCostLimit: shippingCostLimit,
	}
}

// PositionsTotal суммирует стоимость всех позиций без доставки.
func (c *Cart) PositionsTotal() float64 {
	var sum float64
	for _, p := range c.Positions {
		sum += p.Total()
	}
	return sum
}

// ShippingCostsToPay возвращает стоимость доставки: бесплатно, если сумма
// позиций достигла лимита. Нулевой лимит означает, что доставка платная всегда.
func (c *Cart) ShippingCostsToPay() float64 {
	if c.ShippingCostLimit > 0 && c.PositionsTotal() >= c.ShippingCostLimit {
		return 0
	}
	return c.ShippingCosts
}

// TotalPrice — итоговая сумма корзины вместе с доставкой.
func (c *Cart) TotalPrice() float64 {
	return c.PositionsTotal() + c.ShippingCostsToPay()
}

// EnsureOrderData создаёт пустую OrderData, если её ещё нет.
func (c *Cart) EnsureOrderData() *OrderData {
	if c.OrderData == nil {
		c.OrderData = &OrderData{}
	}
	return c.OrderData
}
