package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/microcart/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

type cartStore struct {
	db *sql.DB
}

// NewCartStore создаёт PostgreSQL-реализацию CartStore. Корзины и заказы
// хранятся как JSONB-документы.
func NewCartStore(store *Store) domain.CartStore {
	return &cartStore{db: store.DB()}
}

func (s *cartStore) FetchCart(ctx context.Context, id string) (domain.Cart, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM carts WHERE id = $1`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Cart{}, false, nil
		}
		return domain.Cart{}, false, fmt.Errorf("select cart: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(payload, &cart); err != nil {
		return domain.Cart{}, false, fmt.Errorf("decode cart %s: %w", id, err)
	}
	return cart, true, nil
}

func (s *cartStore) FetchOrder(ctx context.Context, id string) (domain.Cart, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM orders WHERE id = $1`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Cart{}, domain.ErrOrderNotFound
		}
		return domain.Cart{}, fmt.Errorf("select order: %w", err)
	}

	var order domain.Cart
	if err := json.Unmarshal(payload, &order); err != nil {
		return domain.Cart{}, fmt.Errorf("decode order %s: %w", id, err)
	}
	return order, nil
}

func (s *cartStore) PersistCart(ctx context.Context, cart domain.Cart) error {
	if cart.ID == "" {
		return domain.ErrTrackingIDRequired
	}
	payload, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO carts (id, payload, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE
		SET payload = EXCLUDED.payload,
		    updated_at = EXCLUDED.updated_at
	`, cart.ID, payload); err != nil {
		return fmt.Errorf("upsert cart: %w", err)
	}
	return nil
}

func (s *cartStore) CreateOrder(ctx context.Context, cart domain.Cart) (string, error) {
	if cart.ID == "" {
		cart.ID = uuid.NewString()
	}
	payload, err := json.Marshal(cart)
	if err != nil {
		return "", fmt.Errorf("encode order: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO orders (id, payload, user_id, created_at)
		VALUES ($1, $2, $3, NOW())
	`, cart.ID, payload, cart.UserID); err != nil {
		if isUniqueViolation(err) {
			return "", domain.ErrOrderConflict
		}
		return "", fmt.Errorf("insert order: %w", err)
	}
	return cart.ID, nil
}

func (s *cartStore) DeleteCart(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `DELETE FROM carts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete cart rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrCartNotFound
	}
	return nil
}

// Ping проверяет доступность базы.
func (s *cartStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return s.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.CartStore = (*cartStore)(nil)
