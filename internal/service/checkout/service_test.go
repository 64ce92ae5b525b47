package checkout

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/microcart/internal/domain"
	"github.com/vladislavdragonenkov/microcart/internal/metrics"
)

func TestGetOrCreateCart_NotFoundCreatesWithTrackingID(t *testing.T) {
	calls := &callLog{}
	store := newStubStore(calls)
	svc := newTestService(store, &stubNotifier{log: calls}, &stubRenderer{})

	for _, id := range []string{"abc", "tracking-1", "ä-ü"} {
		cart, err := svc.GetOrCreateCart(context.Background(), id)
		require.NoError(t, err)
		require.Equal(t, id, cart.ID)
		require.Equal(t, 4.9, cart.ShippingCosts)
		require.Equal(t, 50.0, cart.ShippingCostLimit)
		require.Nil(t, cart.OrderData)
	}
}

func TestGetOrCreateCart_FoundUsesLiveShippingPolicy(t *testing.T) {
	calls := &callLog{}
	store := newStubStore(calls)
	stored := domain.NewCart("abc", 99, 1000)
	stored.Positions = []domain.Position{{ArticleID: "a-1", Quantity: 1, Price: 12}}
	stored.OrderData = &domain.OrderData{Email: "kept@x.de"}
	store.carts["abc"] = stored

	svc := newTestService(store, &stubNotifier{log: calls}, &stubRenderer{})

	cart, err := svc.GetOrCreateCart(context.Background(), "abc")
	require.NoError(t, err)
	require.Equal(t, "abc", cart.ID)
	require.Equal(t, 4.9, cart.ShippingCosts)
	require.Equal(t, 50.0, cart.ShippingCostLimit)
	require.Len(t, cart.Positions, 1)
	require.Equal(t, "kept@x.de", cart.OrderData.Email)
}

func TestGetOrCreateCart_EmptyTrackingIDSkipsBackend(t *testing.T) {
	calls := &callLog{}
	store := newStubStore(calls)
	svc := newTestService(store, &stubNotifier{log: calls}, &stubRenderer{})

	cart, err := svc.GetOrCreateCart(context.Background(), "")
	require.NoError(t, err)
	require.Empty(t, cart.ID)
	require.Equal(t, 4.9, cart.ShippingCosts)
	require.Empty(t, calls.snapshot())
}

func TestGetOrCreateCart_BackendFailurePropagates(t *testing.T) {
	calls := &callLog{}
	store := newStubStore(calls)
	store.fetchErr = errBackend
	svc := newTestService(store, &stubNotifier{log: calls}, &stubRenderer{},
		WithMetrics(metrics.NewCheckoutMetricsWithRegisterer(prometheus.NewRegistry())))

	_, err := svc.GetOrCreateCart(context.Background(), "abc")
	require.ErrorIs(t, err, errBackend)
}

func TestGetOrder(t *testing.T) {
	calls := &callLog{}
	store := newStubStore(calls)
	order := domain.NewCart("ord-1", 7, 70)
	store.orders["ord-1"] = order
	svc := newTestService(store, &stubNotifier{log: calls}, &stubRenderer{})

	got, err := svc.GetOrder(context.Background(), "ord-1")
	require.NoError(t, err)
	// Заказ — исторический снимок, политика доставки не подменяется.
	require.Equal(t, 7.0, got.ShippingCosts)

	_, err = svc.GetOrder(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = svc.GetOrder(context.Background(), "")
	require.ErrorIs(t, err, domain.ErrOrderIDRequired)
}

func TestSaveCart_StampsLastUpdated(t *testing.T) {
	calls := &callLog{}
	store := newStubStore(calls)
	svc := newTestService(store, &stubNotifier{log: calls}, &stubRenderer{})

	cart := domain.NewCart("abc", 0, 0)
	require.NoError(t, svc.SaveCart(context.Background(), &cart))
	require.Equal(t, fixedNow, cart.TimestampLastUpdated)
	require.Equal(t, fixedNow, store.carts["abc"].TimestampLastUpdated)
	require.True(t, cart.Timestamp.IsZero())

	empty := domain.NewCart("", 0, 0)
	require.ErrorIs(t, svc.SaveCart(context.Background(), &empty), domain.ErrTrackingIDRequired)
}
