// Package emit выгружает готовую таблицу батчами в sink'и.
//
// Каждая публикация проходит через предохранитель sink'а и политику
// повторов. Повторяются только временные сбои; фатальный сбой или
// исчерпание повторов прерывает оставшуюся выгрузку. Уже переданные
// батчи не отзываются.
package emit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ruslano69/tdtp-datagen/pkg/core/generr"
	"github.com/ruslano69/tdtp-datagen/pkg/core/table"
	"github.com/ruslano69/tdtp-datagen/pkg/resilience"
	"github.com/ruslano69/tdtp-datagen/pkg/retry"
)

// SinkReport статистика одного sink'а
type SinkReport struct {
	Batches int `json:"batches"`
	Rows    int `json:"rows"`
	Retries int `json:"retries"`
}

// Report итог выгрузки
type Report struct {
	RunID    string                `json:"run_id"`
	Batches  int                   `json:"batches"`
	Total    int                   `json:"total_batches"`
	Rows     int                   `json:"rows"`
	Retries  int                   `json:"retries"`
	Sinks    map[string]SinkReport `json:"sinks"`
	Duration time.Duration         `json:"duration"`
}

// Streamer выгружает таблицы батчами
type Streamer struct {
	retry      retry.Config
	breaker    resilience.Config
	logger     zerolog.Logger
	runID      string
	configName string

	retryer *retry.Retryer

	mu       sync.Mutex
	breakers map[string]*resilience.Breaker
}

// Option настройка Streamer
type Option func(*Streamer)

// WithRetry задает политику повторов
func WithRetry(c retry.Config) Option {
	return func(s *Streamer) { s.retry = c }
}

// WithBreaker задает параметры предохранителей
func WithBreaker(maxFailures uint32, timeout time.Duration) Option {
	return func(s *Streamer) {
		s.breaker.MaxFailures = maxFailures
		s.breaker.Timeout = timeout
	}
}

// WithLogger задает логгер
func WithLogger(l zerolog.Logger) Option {
	return func(s *Streamer) { s.logger = l }
}

// WithRunID задает идентификатор прогона (по умолчанию UUID)
func WithRunID(id string) Option {
	return func(s *Streamer) { s.runID = id }
}

// WithConfigName задает имя конфигурации в метаданных батча
func WithConfigName(name string) Option {
	return func(s *Streamer) { s.configName = name }
}

// NewStreamer создает Streamer
func NewStreamer(opts ...Option) (*Streamer, error) {
	s := &Streamer{
		retry:    retry.DefaultConfig(),
		logger:   log.Logger,
		breakers: make(map[string]*resilience.Breaker),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.runID == "" {
		s.runID = uuid.NewString()
	}

	bc := s.breaker
	bc.Name = "stream"
	if err := bc.Validate(); err != nil {
		return nil, generr.Configuration("invalid circuit breaker settings: %v", err)
	}

	retryer, err := retry.NewRetryer(s.retry)
	if err != nil {
		return nil, generr.Configuration("invalid stream settings: %v", err)
	}
	s.retryer = retryer
	return s, nil
}

// RunID возвращает идентификатор прогона
func (s *Streamer) RunID() string { return s.runID }

// Close сохраняет dead-letter файл
func (s *Streamer) Close() error {
	return s.retryer.Close()
}

// Emit делит таблицу на батчи и передает каждый батч всем sink'ам по порядку
func (s *Streamer) Emit(ctx context.Context, tbl *table.Table, sinks []Sink, batchSize int) (*Report, error) {
	if batchSize < 1 {
		return nil, generr.Configuration("batch_size must be at least 1, got %d", batchSize)
	}
	if !tbl.Frozen() {
		return nil, generr.Configuration("table must be frozen before emission")
	}

	start := time.Now()
	batches := Split(tbl, batchSize)
	report := &Report{
		RunID: s.runID,
		Total: len(batches),
		Sinks: make(map[string]SinkReport, len(sinks)),
	}
	defer func() { report.Duration = time.Since(start) }()

	s.logger.Info().
		Str("run_id", s.runID).
		Int("rows", tbl.Rows()).
		Int("batches", len(batches)).
		Int("sinks", len(sinks)).
		Msg("emission started")

	for _, batch := range batches {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("emission canceled before batch %d: %w", batch.Index, err)
		}
		batch.RunID = s.runID
		batch.ConfigName = s.configName

		for _, sink := range sinks {
			retries, err := s.publish(ctx, sink, batch)

			sr := report.Sinks[sink.Name()]
			sr.Retries += retries
			report.Retries += retries
			if err != nil {
				report.Sinks[sink.Name()] = sr
				publishFailures.WithLabelValues(sink.Name()).Inc()
				s.logger.Error().Err(err).
					Str("sink", sink.Name()).
					Int("batch", batch.Index).
					Msg("batch emission failed")
				return report, err
			}
			sr.Batches++
			sr.Rows += batch.Size
			report.Sinks[sink.Name()] = sr
			batchesEmitted.WithLabelValues(sink.Name()).Inc()
		}

		report.Batches++
		report.Rows += batch.Size
		s.logger.Debug().
			Int("batch", batch.Index).
			Int("total", batch.Total).
			Int("size", batch.Size).
			Msg("batch emitted")
	}

	s.logger.Info().
		Str("run_id", s.runID).
		Int("batches", report.Batches).
		Int("retries", report.Retries).
		Dur("duration", time.Since(start)).
		Msg("emission finished")
	return report, nil
}

// publish передает батч одному sink'у и возвращает число повторов
func (s *Streamer) publish(ctx context.Context, sink Sink, batch Batch) (int, error) {
	name := sink.Name()
	breaker := s.breakerFor(name)

	var entry *retry.DLQEntry
	if s.retryer.DLQ() != nil {
		entry = &retry.DLQEntry{
			RunID:      batch.RunID,
			Sink:       name,
			BatchIndex: batch.Index,
			Offset:     batch.Offset,
			Columns:    batch.Columns,
			Rows:       batch.Records(),
		}
	}

	attempt := 0
	attempts, err := s.retryer.DoWithData(ctx, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			publishRetries.WithLabelValues(name).Inc()
			s.logger.Warn().Str("sink", name).Int("batch", batch.Index).Int("attempt", attempt).Msg("retrying batch")
		}
		err := breaker.Execute(ctx, func(ctx context.Context) error {
			return sink.Publish(ctx, batch)
		})
		return classify(name, err)
	}, entry)

	retries := max(attempts-1, 0)
	if err == nil {
		return retries, nil
	}
	if errors.Is(err, retry.ErrExhausted) {
		return retries, generr.Publish(name, false,
			fmt.Errorf("batch %d/%d: %w", batch.Index+1, batch.Total, err))
	}
	return retries, err
}

// classify приводит ошибку sink'а к PublishError.
// Разомкнутый предохранитель и неизвестные ошибки фатальны.
func classify(sink string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return generr.Publish(sink, false, err)
	}
	if generr.KindOf(err) != 0 {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return generr.Publish(sink, false, err)
}

func (s *Streamer) breakerFor(name string) *resilience.Breaker {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.breakers[name]; ok {
		return b
	}
	config := s.breaker
	config.Name = name
	// фатальные ошибки прерывают выгрузку сами, предохранитель считает только временные
	config.IsFailure = generr.IsTransient
	config.OnStateChange = func(name string, from, to resilience.State) {
		circuitState.WithLabelValues(name).Set(float64(to))
		s.logger.Warn().Str("sink", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit state changed")
	}
	b, err := resilience.New(config)
	if err != nil {
		// параметры проверены в NewStreamer
		panic(err)
	}
	s.breakers[name] = b
	return b
}
