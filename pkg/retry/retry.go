// Package retry повторяет публикацию батчей при временных сбоях
// и сохраняет батчи, исчерпавшие повторы, в dead-letter файл.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/ruslano69/tdtp-datagen/pkg/core/generr"
)

// ErrExhausted - все повторы исчерпаны
var ErrExhausted = errors.New("retry attempts exhausted")

// RetryableFunc - функция, которую можно повторить
type RetryableFunc func(ctx context.Context) error

// Retryer выполняет повторы
type Retryer struct {
	config Config
	dlq    *DLQ
}

// NewRetryer создает новый Retryer
func NewRetryer(config Config) (*Retryer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry config: %w", err)
	}

	r := &Retryer{config: config}
	if config.DLQPath != "" {
		dlq, err := NewDLQ(config.DLQPath, config.DLQMaxSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create DLQ: %w", err)
		}
		r.dlq = dlq
	}
	return r, nil
}

// Do выполняет функцию с повторами и возвращает число сделанных попыток
func (r *Retryer) Do(ctx context.Context, fn RetryableFunc) (int, error) {
	return r.DoWithData(ctx, fn, nil)
}

// DoWithData выполняет функцию с повторами.
// При исчерпании повторов data сохраняется в DLQ (если он включен).
func (r *Retryer) DoWithData(ctx context.Context, fn RetryableFunc, data *DLQEntry) (int, error) {
	attempts := 0
	for {
		attempts++

		err := fn(ctx)
		if err == nil {
			return attempts, nil
		}
		if !r.retryable(err) {
			return attempts, err
		}

		if attempts > r.config.MaxRetries {
			if r.dlq != nil && data != nil {
				entry := *data
				entry.Attempts = attempts
				entry.LastError = err.Error()
				if dlqErr := r.dlq.Add(entry); dlqErr != nil {
					return attempts, fmt.Errorf("%w after %d attempts: %w (dead-letter write failed: %v)", ErrExhausted, attempts, err, dlqErr)
				}
			}
			return attempts, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, err)
		}

		if ctx.Err() != nil {
			return attempts, fmt.Errorf("context cancelled: %w", ctx.Err())
		}

		delay := r.Delay(attempts)
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempts, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return attempts, fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		}
	}
}

// Delay вычисляет задержку перед повтором номер attempt (с 1)
func (r *Retryer) Delay(attempt int) time.Duration {
	var delay time.Duration

	switch r.config.Backoff {
	case BackoffLinear:
		delay = r.config.Delay * time.Duration(attempt)
	case BackoffExponential:
		multiplier := math.Pow(r.config.Multiplier, float64(attempt-1))
		delay = time.Duration(float64(r.config.Delay) * multiplier)
	default:
		delay = r.config.Delay
	}

	if r.config.MaxDelay > 0 && delay > r.config.MaxDelay {
		delay = r.config.MaxDelay
	}

	if r.config.Jitter > 0 {
		delay += time.Duration(float64(delay) * r.config.Jitter * (rand.Float64()*2 - 1))
		if delay < 0 {
			delay = 0
		}
	}
	return delay
}

func (r *Retryer) retryable(err error) bool {
	if r.config.Retryable != nil {
		return r.config.Retryable(err)
	}
	return generr.IsTransient(err)
}

// DLQ возвращает dead-letter очередь или nil
func (r *Retryer) DLQ() *DLQ {
	return r.dlq
}

// Close сохраняет DLQ
func (r *Retryer) Close() error {
	if r.dlq != nil {
		return r.dlq.Save()
	}
	return nil
}
