package retry

import (
	"fmt"
	"strings"
	"time"
)

// BackoffStrategy определяет стратегию задержки между повторами
type BackoffStrategy string

const (
	// BackoffConstant - постоянная задержка
	BackoffConstant BackoffStrategy = "constant"
	// BackoffLinear - задержка растет линейно: delay * attempt
	BackoffLinear BackoffStrategy = "linear"
	// BackoffExponential - задержка растет как delay * multiplier^(attempt-1)
	BackoffExponential BackoffStrategy = "exponential"
)

// ParseBackoff разбирает имя стратегии. Пустая строка означает constant.
func ParseBackoff(s string) (BackoffStrategy, error) {
	switch b := BackoffStrategy(strings.ToLower(strings.TrimSpace(s))); b {
	case "":
		return BackoffConstant, nil
	case BackoffConstant, BackoffLinear, BackoffExponential:
		return b, nil
	}
	return "", fmt.Errorf("invalid backoff strategy: %s", s)
}

// Config конфигурация повторов публикации батча
type Config struct {
	// MaxRetries - число повторов после первой попытки, 0 = без повторов
	MaxRetries int

	// Delay - задержка перед первым повтором
	Delay time.Duration

	// MaxDelay - верхняя граница задержки, 0 = без ограничения
	MaxDelay time.Duration

	Backoff BackoffStrategy

	// Multiplier - множитель для exponential (по умолчанию 2.0)
	Multiplier float64

	// Jitter - доля случайного отклонения задержки (0.0 - 1.0)
	Jitter float64

	// Retryable решает, можно ли повторить ошибку.
	// nil = повторяются только временные ошибки публикации.
	Retryable func(err error) bool

	// OnRetry вызывается перед каждым повтором
	OnRetry func(attempt int, err error, delay time.Duration)

	// DLQPath - файл для батчей, исчерпавших повторы. Пусто = DLQ выключен.
	DLQPath string

	// DLQMaxSize - максимальный размер DLQ, старые записи вытесняются
	DLQMaxSize int
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0, got %d", c.MaxRetries)
	}
	if c.Delay < 0 {
		return fmt.Errorf("retry_delay must be >= 0")
	}
	if c.MaxDelay != 0 && c.MaxDelay < c.Delay {
		return fmt.Errorf("max_delay (%v) must be >= retry_delay (%v)", c.MaxDelay, c.Delay)
	}
	backoff, err := ParseBackoff(string(c.Backoff))
	if err != nil {
		return err
	}
	c.Backoff = backoff
	if c.Multiplier <= 0 {
		c.Multiplier = 2.0
	}
	if c.Jitter < 0 || c.Jitter > 1.0 {
		return fmt.Errorf("jitter must be between 0.0 and 1.0, got %f", c.Jitter)
	}
	return nil
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		Delay:      1 * time.Second,
		MaxDelay:   30 * time.Second,
		Backoff:    BackoffConstant,
		Multiplier: 2.0,
		DLQMaxSize: 10000,
	}
}
