package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/microcart/internal/domain"
	"github.com/vladislavdragonenkov/microcart/internal/storage/memory"
)

func newCart(id string) domain.Cart {
	cart := domain.NewCart(id, 4.9, 50)
	cart.Positions = []domain.Position{{ArticleID: "a-1", Quantity: 1, Price: 10}}
	cart.OrderData = &domain.OrderData{Email: "a@x.de"}
	return cart
}

func TestCartStore_PersistFetch(t *testing.T) {
	ctx := context.Background()
	store := memory.NewCartStore()

	if _, found, err := store.FetchCart(ctx, "abc"); err != nil || found {
		t.Fatalf("expected missing cart without error, found=%v err=%v", found, err)
	}

	cart := newCart("abc")
	if err := store.PersistCart(ctx, cart); err != nil {
		t.Fatalf("persist failed: %v", err)
	}

	// Изменения исходной корзины не должны протекать в хранилище.
	cart.OrderData.Email = "changed@x.de"
	cart.Positions[0].Quantity = 99

	stored, found, err := store.FetchCart(ctx, "abc")
	if err != nil || !found {
		t.Fatalf("fetch failed: found=%v err=%v", found, err)
	}
	if stored.OrderData.Email != "a@x.de" {
		t.Fatalf("expected stored email a@x.de, got %s", stored.OrderData.Email)
	}
	if stored.Positions[0].Quantity != 1 {
		t.Fatalf("expected stored quantity 1, got %d", stored.Positions[0].Quantity)
	}
}

func TestCartStore_PersistRequiresID(t *testing.T) {
	store := memory.NewCartStore()
	if err := store.PersistCart(context.Background(), newCart("")); !errors.Is(err, domain.ErrTrackingIDRequired) {
		t.Fatalf("expected ErrTrackingIDRequired, got %v", err)
	}
}

func TestCartStore_CreateOrderAndDeleteCart(t *testing.T) {
	ctx := context.Background()
	store := memory.NewCartStore()
	if err := store.PersistCart(ctx, newCart("abc")); err != nil {
		t.Fatalf("persist failed: %v", err)
	}

	orderID, err := store.CreateOrder(ctx, newCart("new-id"))
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if orderID != "new-id" {
		t.Fatalf("expected order id new-id, got %s", orderID)
	}
	if _, err := store.CreateOrder(ctx, newCart("new-id")); !errors.Is(err, domain.ErrOrderConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	order, err := store.FetchOrder(ctx, orderID)
	if err != nil {
		t.Fatalf("fetch order failed: %v", err)
	}
	if order.OrderData.Email != "a@x.de" {
		t.Fatalf("unexpected order payload: %+v", order)
	}

	if err := store.DeleteCart(ctx, "abc"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := store.DeleteCart(ctx, "abc"); !errors.Is(err, domain.ErrCartNotFound) {
		t.Fatalf("expected ErrCartNotFound on second delete, got %v", err)
	}
	if _, err := store.FetchOrder(ctx, "missing"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestCartStore_CreateOrderGeneratesID(t *testing.T) {
	store := memory.NewCartStore()
	orderID, err := store.CreateOrder(context.Background(), newCart(""))
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if orderID == "" {
		t.Fatal("expected generated order id")
	}
	order, err := store.FetchOrder(context.Background(), orderID)
	if err != nil {
		t.Fatalf("fetch order failed: %v", err)
	}
	if order.ID != orderID {
		t.Fatalf("expected stored id %s, got %s", orderID, order.ID)
	}
}

func TestMailbox(t *testing.T) {
	box := memory.NewMailbox()
	if err := box.SendPlainText(context.Background(), domain.Mail{From: domain.AddressSelf}); !errors.Is(err, domain.ErrRecipientRequired) {
		t.Fatalf("expected ErrRecipientRequired, got %v", err)
	}
	if err := box.SendPlainText(context.Background(), domain.Mail{To: "a@x.de", Body: "hi"}); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	sent := box.Sent()
	if len(sent) != 1 || sent[0].To != "a@x.de" {
		t.Fatalf("unexpected mailbox content: %+v", sent)
	}
}
