package checkout

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/microcart/internal/domain"
)

// callLog — общий журнал вызовов коллабораторов для проверки порядка шагов.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

type stubStore struct {
	log *callLog

	carts     map[string]domain.Cart
	orders    map[string]domain.Cart
	fetchErr  error
	createErr error
	deleteErr error
	orderID   string

	created []domain.Cart
	deleted []string
}

func newStubStore(log *callLog) *stubStore {
	return &stubStore{
		log:     log,
		carts:   make(map[string]domain.Cart),
		orders:  make(map[string]domain.Cart),
		orderID: "ord-42",
	}
}

func (s *stubStore) FetchCart(_ context.Context, id string) (domain.Cart, bool, error) {
	s.log.add("fetch_cart:" + id)
	if s.fetchErr != nil {
		return domain.Cart{}, false, s.fetchErr
	}
	cart, ok := s.carts[id]
	return cart, ok, nil
}

func (s *stubStore) FetchOrder(_ context.Context, id string) (domain.Cart, error) {
	s.log.add("fetch_order:" + id)
	order, ok := s.orders[id]
	if !ok {
		return domain.Cart{}, domain.ErrOrderNotFound
	}
	return order, nil
}

func (s *stubStore) PersistCart(_ context.Context, cart domain.Cart) error {
	s.log.add("persist_cart:" + cart.ID)
	s.carts[cart.ID] = cart
	return nil
}

func (s *stubStore) CreateOrder(_ context.Context, cart domain.Cart) (string, error) {
	s.log.add("create_order")
	if s.createErr != nil {
		return "", s.createErr
	}
	s.created = append(s.created, cart)
	return s.orderID, nil
}

func (s *stubStore) DeleteCart(_ context.Context, id string) error {
	s.log.add("delete_cart:" + id)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, id)
	return nil
}

type stubNotifier struct {
	log *callLog

	// failTo — адрес получателя, на котором отправка падает.
	failTo string
	err    error
	sent   []domain.Mail
}

func (n *stubNotifier) SendPlainText(_ context.Context, mail domain.Mail) error {
	n.log.add("send:" + mail.To)
	if n.err != nil && (n.failTo == "" || n.failTo == mail.To) {
		return n.err
	}
	n.sent = append(n.sent, mail)
	return nil
}

type stubRenderer struct {
	paymentInfo string
	paymentErr  error
	renderErr   error

	lastTemplate string
	lastExtra    map[string]any
}

func (r *stubRenderer) Render(name string, cart domain.Cart, extra map[string]any) (string, error) {
	if r.renderErr != nil {
		return "", r.renderErr
	}
	r.lastTemplate = name
	r.lastExtra = extra
	return "Danke " + cart.OrderData.FullName() + "\n" + extra["paymentInfo"].(string), nil
}

func (r *stubRenderer) RenderPaymentInfo(_ domain.Cart, orderID string) (string, error) {
	if r.paymentErr != nil {
		return "", r.paymentErr
	}
	if r.paymentInfo != "" {
		return r.paymentInfo, nil
	}
	return "<p>Bitte <b>überweisen</b> Sie mit Verwendungszweck " + orderID + "</p>", nil
}

type stubIdentity struct {
	loggedIn bool
	user     domain.User
	err      error
}

func (i stubIdentity) IsLoggedIn(context.Context) bool { return i.loggedIn }

func (i stubIdentity) CurrentUser(context.Context) (domain.User, error) {
	if !i.loggedIn {
		return domain.User{}, domain.ErrNotLoggedIn
	}
	return i.user, i.err
}

type stubEvents struct {
	err    error
	events []domain.OrderPlaced
}

func (e *stubEvents) PublishOrderPlaced(_ context.Context, event domain.OrderPlaced) error {
	e.events = append(e.events, event)
	return e.err
}

var errBackend = errors.New("backend exploded")

var fixedNow = time.Date(2024, 5, 17, 10, 30, 0, 0, time.UTC)

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	logger.SetLevel(logrus.DebugLevel)
	return logger.WithField("component", "test")
}

func testConfig() Config {
	return Config{
		ShippingCosts:       4.9,
		ShippingCostLimit:   50,
		OrderSuccessSubject: "Ihre Bestellung",
	}
}

func newTestService(store domain.CartStore, notifier domain.Notifier, renderer domain.Renderer, opts ...Option) *Service {
	base := []Option{
		WithLogger(testLogger()),
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string { return "generated-id" }),
	}
	return NewService(store, notifier, renderer, testConfig(), append(base, opts...)...)
}

func annaProfile() domain.User {
	return domain.User{
		ID: "user-1",
		Name: domain.Name{
			GivenName:  "Anna",
			FamilyName: "Muster",
		},
		Emails: []domain.MultiValue{
			{Value: "a@x.de", Primary: true},
			{Value: "b@x.de", Primary: false},
		},
	}
}
