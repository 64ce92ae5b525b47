package backend

import (
	"context"
	"errors"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// RetryConfig задаёт повторы идемпотентных GET-запросов к backend.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig возвращает конфигурацию по умолчанию.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		BackoffFactor: 2.0,
	}
}

// WithRetry задаёт политику повторов чтения. MaxAttempts <= 1 отключает повторы.
func WithRetry(cfg RetryConfig) Option {
	return func(opts *ClientOptions) {
		opts.Retry = cfg
	}
}

// retryable сообщает, стоит ли повторить чтение: сетевые ошибки и ответы 5xx
// повторяются, отмена контекста и ошибки декодирования нет.
func retryable(status int, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return status == 0 || status >= http.StatusInternalServerError
}

// withRetry выполняет fn, пока она просит повтора и не исчерпаны попытки.
func withRetry(ctx context.Context, cfg RetryConfig, logger *log.Entry, operation string, fn func() (retry bool, err error)) error {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := cfg.InitialDelay

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		retry, err := fn()
		if err == nil {
			if attempt > 1 {
				logger.WithFields(log.Fields{
					"operation": operation,
					"attempt":   attempt,
				}).Info("backend request succeeded after retry")
			}
			return nil
		}
		lastErr = err
		if !retry || attempt == attempts {
			break
		}

		logger.WithError(err).WithFields(log.Fields{
			"operation": operation,
			"attempt":   attempt,
			"delay":     delay,
		}).Warn("backend request failed, retrying")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * cfg.BackoffFactor)
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
	return lastErr
}
