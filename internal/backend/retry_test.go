package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/microcart/internal/domain"
)

func quietLogger() *log.Entry {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return log.NewEntry(logger)
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Positive(t, cfg.InitialDelay)
	assert.Greater(t, cfg.BackoffFactor, 1.0)
}

func TestRetryable(t *testing.T) {
	boom := errors.New("boom")

	assert.False(t, retryable(http.StatusInternalServerError, nil))
	assert.True(t, retryable(0, boom))
	assert.True(t, retryable(http.StatusBadGateway, boom))
	assert.False(t, retryable(http.StatusBadRequest, boom))
	assert.False(t, retryable(http.StatusOK, boom))
	assert.False(t, retryable(0, context.Canceled))
}

func TestWithRetry(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 2}

	t.Run("retry then success", func(t *testing.T) {
		attempts := 0
		err := withRetry(context.Background(), cfg, quietLogger(), "op", func() (bool, error) {
			attempts++
			if attempts < 3 {
				return true, errors.New("temporary")
			}
			return false, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("non-retryable", func(t *testing.T) {
		attempts := 0
		err := withRetry(context.Background(), cfg, quietLogger(), "op", func() (bool, error) {
			attempts++
			return false, errors.New("permanent")
		})
		require.Error(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("exhausted", func(t *testing.T) {
		attempts := 0
		err := withRetry(context.Background(), cfg, quietLogger(), "op", func() (bool, error) {
			attempts++
			return true, errors.New("still down")
		})
		require.EqualError(t, err, "still down")
		assert.Equal(t, 3, attempts)
	})

	t.Run("context canceled during backoff", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		slow := RetryConfig{MaxAttempts: 5, InitialDelay: time.Hour, BackoffFactor: 2}
		attempts := 0
		err := withRetry(ctx, slow, quietLogger(), "op", func() (bool, error) {
			attempts++
			cancel()
			return true, errors.New("down")
		})
		require.Error(t, err)
		assert.Equal(t, 1, attempts)
	})
}

func TestClient_FetchCartRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"abc","positions":[]}`))
	})
	client.retry = RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, BackoffFactor: 1}

	cart, found, err := client.FetchCart(context.Background(), "abc")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "abc", cart.ID)
	assert.EqualValues(t, 2, calls.Load())
}

func TestClient_FetchOrderDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})
	client.retry = RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, BackoffFactor: 1}

	_, err := client.FetchOrder(context.Background(), "ord-1")
	require.ErrorIs(t, err, domain.ErrBackendUnavailable)
	assert.EqualValues(t, 1, calls.Load())
}
