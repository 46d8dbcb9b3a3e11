// Package resilience защищает sink'и от повторных обращений после
// серии сбоев (circuit breaker).
package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrCircuitOpen - предохранитель разомкнут
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Breaker предохранитель одного sink'а
type Breaker struct {
	config Config
	now    func() time.Time

	mu         sync.Mutex
	state      State
	generation uint64
	counts     Counts
	expiry     time.Time
}

// New создает предохранитель
func New(config Config) (*Breaker, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid circuit breaker config: %w", err)
	}
	return &Breaker{config: config, now: time.Now}, nil
}

// Execute выполняет fn, если предохранитель замкнут или ждет пробы.
// Паника в fn считается сбоем и пробрасывается дальше.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	generation, err := b.before()
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			b.after(generation, false)
			panic(r)
		}
	}()

	err = fn(ctx)
	b.after(generation, !b.isFailure(err))
	return err
}

func (b *Breaker) isFailure(err error) bool {
	if err == nil {
		return false
	}
	if b.config.IsFailure != nil {
		return b.config.IsFailure(err)
	}
	return true
}

// State возвращает текущее состояние с учетом истекшего таймаута
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.expire()
	return b.state
}

// Counts возвращает счетчики текущего поколения
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

// Name возвращает имя sink'а
func (b *Breaker) Name() string {
	return b.config.Name
}

// Reset замыкает предохранитель
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setState(StateClosed)
}

func (b *Breaker) before() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.expire()
	if b.state == StateOpen {
		return b.generation, fmt.Errorf("%s: %w", b.config.Name, ErrCircuitOpen)
	}
	return b.generation, nil
}

func (b *Breaker) after(generation uint64, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// результат вызова из прошлого поколения не учитывается
	if generation != b.generation {
		return
	}

	if success {
		b.counts.success()
		if b.state == StateHalfOpen && b.counts.ConsecutiveSuccesses >= b.config.SuccessThreshold {
			b.setState(StateClosed)
		}
		return
	}

	b.counts.failure()
	switch b.state {
	case StateClosed:
		if b.counts.ConsecutiveFailures >= b.config.MaxFailures {
			b.setState(StateOpen)
		}
	case StateHalfOpen:
		b.setState(StateOpen)
	}
}

// expire переводит Open в HalfOpen после таймаута. Вызывается под mu.
func (b *Breaker) expire() {
	if b.state == StateOpen && !b.now().Before(b.expiry) {
		b.setState(StateHalfOpen)
	}
}

// setState вызывается под mu
func (b *Breaker) setState(state State) {
	if b.state == state {
		return
	}
	prev := b.state
	b.state = state
	b.generation++
	b.counts = Counts{}
	if state == StateOpen {
		b.expiry = b.now().Add(b.config.Timeout)
	}
	if b.config.OnStateChange != nil {
		b.config.OnStateChange(b.config.Name, prev, state)
	}
}
