package resilience

import (
	"fmt"
	"time"
)

// Config настройки предохранителя одного sink'а
type Config struct {
	// Name - имя sink'а, попадает в логи и метрики
	Name string

	// MaxFailures - число подряд неудачных публикаций до размыкания
	MaxFailures uint32

	// Timeout - сколько предохранитель остается разомкнутым
	Timeout time.Duration

	// SuccessThreshold - успешных пробных публикаций для замыкания
	SuccessThreshold uint32

	// OnStateChange вызывается синхронно при смене состояния
	OnStateChange func(name string, from, to State)

	// IsFailure решает, считается ли ошибка сбоем. nil = любая ошибка.
	IsFailure func(err error) bool
}

// Validate проверяет конфигурацию и подставляет значения по умолчанию
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("circuit breaker name is required")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0")
	}
	if c.MaxFailures == 0 {
		c.MaxFailures = 5
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.SuccessThreshold == 0 {
		c.SuccessThreshold = 1
	}
	return nil
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		MaxFailures:      5,
		Timeout:          30 * time.Second,
		SuccessThreshold: 1,
	}
}
