package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/microcart/internal/domain"
	"github.com/vladislavdragonenkov/microcart/internal/metrics"
)

// DefaultConfirmationTemplate — шаблон письма-подтверждения для покупателя.
const DefaultConfirmationTemplate = "orderConfirmationMail"

// Config — неизменяемые настройки оркестратора, передаются при создании.
type Config struct {
	// ShippingCosts — текущая стоимость доставки.
	ShippingCosts float64
	// ShippingCostLimit — сумма, начиная с которой доставка бесплатна.
	ShippingCostLimit float64
	// OrderSuccessSubject — тема письма-подтверждения.
	OrderSuccessSubject string
	// ConfirmationTemplate — имя шаблона письма-подтверждения.
	ConfirmationTemplate string
}

// Options задаёт необязательные зависимости сервиса.
type Options struct {
	Logger  *log.Entry
	Metrics *metrics.CheckoutMetrics
	Events  domain.EventPublisher
	Now     func() time.Time
	NewID   func() string
}

// Option настраивает Service.
type Option func(*Options)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithMetrics включает prometheus-метрики.
func WithMetrics(m *metrics.CheckoutMetrics) Option {
	return func(opts *Options) {
		opts.Metrics = m
	}
}

// WithEventPublisher задаёт publisher событий об оформленных заказах.
func WithEventPublisher(publisher domain.EventPublisher) Option {
	return func(opts *Options) {
		opts.Events = publisher
	}
}

// WithClock подменяет источник текущего времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(opts *Options) {
		opts.Now = now
	}
}

// WithIDGenerator подменяет генератор идентификаторов заказа.
func WithIDGenerator(newID func() string) Option {
	return func(opts *Options) {
		opts.NewID = newID
	}
}

// Service управляет корзинами и превращает корзину в заказ.
// После создания состояние не меняется, поэтому Service безопасен
// для конкурентного использования.
type Service struct {
	store    domain.CartStore
	notifier domain.Notifier
	renderer domain.Renderer
	events   domain.EventPublisher
	cfg      Config
	logger   *log.Entry
	metrics  *metrics.CheckoutMetrics
	now      func() time.Time
	newID    func() string
}

// NewService собирает сервис из коллабораторов.
func NewService(
	store domain.CartStore,
	notifier domain.Notifier,
	renderer domain.Renderer,
	cfg Config,
	options ...Option,
) *Service {
	opts := Options{
		Now:   time.Now,
		NewID: uuid.NewString,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New().WithField("component", "checkout")
	}
	if cfg.ConfirmationTemplate == "" {
		cfg.ConfirmationTemplate = DefaultConfirmationTemplate
	}

	return &Service{
		store:    store,
		notifier: notifier,
		renderer: renderer,
		events:   opts.Events,
		cfg:      cfg,
		logger:   logger,
		metrics:  opts.Metrics,
		now:      opts.Now,
		newID:    opts.NewID,
	}
}

// GetOrCreateCart загружает корзину по tracking id или создаёт новую.
// Стоимость доставки всегда берётся из текущей конфигурации.
func (s *Service) GetOrCreateCart(ctx context.Context, trackingID string) (domain.Cart, error) {
	if trackingID != "" {
		cart, found, err := s.store.FetchCart(ctx, trackingID)
		if err != nil {
			s.logger.WithError(err).WithFields(log.Fields{
				"operation":   "fetch_cart",
				"tracking_id": trackingID,
			}).Error("failed to load cart from backend")
			if s.metrics != nil {
				s.metrics.RecordCartLoadError()
			}
			return domain.Cart{}, err
		}
		if found {
			cart.ShippingCosts = s.cfg.ShippingCosts
			cart.ShippingCostLimit = s.cfg.ShippingCostLimit
			if s.metrics != nil {
				s.metrics.RecordCartLoaded()
			}
			return cart, nil
		}
		s.logger.WithField("tracking_id", trackingID).Debug("cart not found, creating new one")
	}

	if s.metrics != nil {
		s.metrics.RecordCartCreated()
	}
	return domain.NewCart(trackingID, s.cfg.ShippingCosts, s.cfg.ShippingCostLimit), nil
}

// GetOrder возвращает оформленный заказ как есть, без подмены политики доставки.
func (s *Service) GetOrder(ctx context.Context, orderID string) (domain.Cart, error) {
	if orderID == "" {
		return domain.Cart{}, domain.ErrOrderIDRequired
	}
	order, err := s.store.FetchOrder(ctx, orderID)
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"operation": "fetch_order",
			"order_id":  orderID,
		}).Warn("failed to load order")
		return domain.Cart{}, err
	}
	return order, nil
}

// SaveCart отмечает время изменения и сохраняет корзину в хранилище.
func (s *Service) SaveCart(ctx context.Context, cart *domain.Cart) error {
	if cart.ID == "" {
		return domain.ErrTrackingIDRequired
	}
	cart.TimestampLastUpdated = s.now().UTC()
	if err := s.store.PersistCart(ctx, *cart); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"operation":   "persist_cart",
			"tracking_id": cart.ID,
		}).Error("failed to save cart")
		return err
	}
	return nil
}
