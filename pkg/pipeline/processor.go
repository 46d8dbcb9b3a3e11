// Package pipeline выполняет полный прогон по конфигурации: генерация таблицы,
// файловые writers, потоковая отправка батчей и публикация результата.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ruslano69/tdtp-datagen/pkg/audit"
	"github.com/ruslano69/tdtp-datagen/pkg/brokers"
	"github.com/ruslano69/tdtp-datagen/pkg/config"
	"github.com/ruslano69/tdtp-datagen/pkg/core/engine"
	"github.com/ruslano69/tdtp-datagen/pkg/core/generr"
	"github.com/ruslano69/tdtp-datagen/pkg/core/table"
	"github.com/ruslano69/tdtp-datagen/pkg/emit"
	"github.com/ruslano69/tdtp-datagen/pkg/resultlog"
	"github.com/ruslano69/tdtp-datagen/pkg/writers"
)

// Stats статистика прогона
type Stats struct {
	RunID         string
	StartTime     time.Time
	EndTime       time.Time
	Duration      time.Duration
	RowsGenerated int
	Columns       []string
	FilesWritten  []string
	Generation    *engine.Stats
	Emission      *emit.Report
	Errors        []error
}

// Processor выполняет один прогон
type Processor struct {
	config   *config.Config
	logger   zerolog.Logger
	noStream bool
	runID    string
	stats    Stats
	audit    *audit.Logger
}

// Option настройка Processor
type Option func(*Processor)

// WithLogger задает логгер
func WithLogger(l zerolog.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// WithoutStream отключает секцию stream
func WithoutStream() Option {
	return func(p *Processor) { p.noStream = true }
}

// WithRunID задает идентификатор прогона
func WithRunID(id string) Option {
	return func(p *Processor) { p.runID = id }
}

// NewProcessor создает Processor для проверенной конфигурации
func NewProcessor(cfg *config.Config, opts ...Option) *Processor {
	p := &Processor{config: cfg, logger: log.Logger}
	for _, opt := range opts {
		opt(p)
	}
	if p.runID == "" {
		p.runID = uuid.NewString()
	}
	p.logger = p.logger.With().Str("run_id", p.runID).Logger()
	return p
}

// Generate выполняет только шаги генерации
func (p *Processor) Generate(ctx context.Context) (*table.Table, error) {
	opts := append(p.config.EngineOptions(), engine.WithLogger(p.logger))
	tbl, stats, err := engine.New(opts...).RunWithStats(ctx, p.config.Steps(), p.config.NumOfRows, p.config.Shuffle)
	p.stats.Generation = stats
	if err != nil {
		return nil, err
	}
	p.stats.RowsGenerated = tbl.Rows()
	p.stats.Columns = tbl.Names()
	return tbl, nil
}

// Execute выполняет весь прогон. Результат публикуется в result_log
// независимо от исхода.
func (p *Processor) Execute(ctx context.Context) (err error) {
	p.stats.RunID = p.runID
	p.stats.StartTime = time.Now()

	p.audit, err = audit.New(p.config.Audit, p.logger)
	if err != nil {
		return generr.Configuration("audit: %v", err)
	}
	defer func() {
		p.stats.EndTime = time.Now()
		p.stats.Duration = p.stats.EndTime.Sub(p.stats.StartTime)
		if err != nil {
			p.stats.Errors = append(p.stats.Errors, err)
		}
		p.publishResult(err)
		if cerr := p.audit.Close(); cerr != nil {
			p.logger.Warn().Err(cerr).Msg("failed to close audit log")
		}
	}()

	// 1. Генерация
	start := time.Now()
	tbl, err := p.Generate(ctx)
	p.record(ctx, audit.NewEntry(audit.OpGenerate, err).
		WithRecords(p.stats.RowsGenerated).
		WithDuration(time.Since(start)).
		WithMetadata("columns", p.stats.Columns))
	if err != nil {
		return err
	}

	// 2. Файлы
	if p.config.ShouldWrite() {
		start = time.Now()
		err = p.writeFiles(ctx, tbl)
		p.record(ctx, audit.NewEntry(audit.OpWrite, err).
			WithRecords(tbl.Rows()).
			WithDuration(time.Since(start)).
			WithMetadata("writers", p.stats.FilesWritten))
		if err != nil {
			return err
		}
	}

	// 3. Поток
	if p.config.Stream != nil && !p.noStream {
		start = time.Now()
		err = p.stream(ctx, tbl)
		entry := audit.NewEntry(audit.OpEmit, err).WithDuration(time.Since(start))
		if r := p.stats.Emission; r != nil {
			entry.WithRecords(r.Rows).
				WithMetadata("batches", r.Batches).
				WithMetadata("retries", r.Retries)
		}
		p.record(ctx, entry)
		if err != nil {
			return err
		}
	}

	p.logger.Info().
		Str("config", p.config.Name()).
		Int("rows", p.stats.RowsGenerated).
		Int("columns", len(p.stats.Columns)).
		Dur("duration", time.Since(p.stats.StartTime)).
		Msg("run completed")
	return nil
}

func (p *Processor) writeFiles(ctx context.Context, tbl *table.Table) error {
	ws, err := p.config.Writers()
	if err != nil {
		return err
	}
	if len(ws) == 0 {
		return nil
	}
	if err := writers.WriteAll(ctx, tbl, ws); err != nil {
		return err
	}
	for _, w := range ws {
		p.stats.FilesWritten = append(p.stats.FilesWritten, w.Type())
	}
	return nil
}

// stream открывает соединения на время прогона и закрывает их в конце.
// Ошибка сохранения DLQ при закрытии streamer'а возвращается, если выгрузка прошла.
func (p *Processor) stream(ctx context.Context, tbl *table.Table) (err error) {
	sc := p.config.Stream

	sinks, closers, err := p.openSinks(ctx, sc)
	defer func() {
		for _, c := range closers {
			if cerr := c.Close(); cerr != nil {
				p.logger.Warn().Err(cerr).Msg("failed to close sink")
			}
		}
	}()
	if err != nil {
		return err
	}

	streamer, err := emit.NewStreamer(
		emit.WithRetry(sc.RetryConfig()),
		emit.WithBreaker(sc.CircuitBreaker.MaxFailures, sc.CircuitBreaker.Timeout),
		emit.WithLogger(p.logger),
		emit.WithRunID(p.runID),
		emit.WithConfigName(p.config.Name()),
	)
	if err != nil {
		return err
	}
	defer func() {
		cerr := streamer.Close()
		if cerr == nil {
			return
		}
		cerr = fmt.Errorf("failed to save dead letter queue: %w", cerr)
		if err == nil {
			err = cerr
			return
		}
		p.stats.Errors = append(p.stats.Errors, cerr)
		p.logger.Warn().Err(cerr).Msg("failed to close streamer")
	}()

	report, err := streamer.Emit(ctx, tbl, sinks, sc.BatchSize)
	p.stats.Emission = report
	return err
}

func (p *Processor) openSinks(ctx context.Context, sc *config.StreamConfig) ([]emit.Sink, []io.Closer, error) {
	var (
		sinks   []emit.Sink
		closers []io.Closer
	)

	for i, wc := range sc.Writers {
		s, err := writers.NewSink(wc.Type, wc.Params)
		if err != nil {
			return nil, closers, fmt.Errorf("stream.writers[%d]: %w", i, err)
		}
		sinks = append(sinks, s)
		closers = append(closers, s)
	}

	if len(sc.Brokers) == 0 {
		return sinks, closers, nil
	}

	enc, err := brokers.NewEncoder(sc.Compression)
	if err != nil {
		return nil, closers, generr.Configuration("stream.compression: %v", err)
	}
	closers = append(closers, closerFunc(func() error { enc.Close(); return nil }))

	for i, bc := range sc.Brokers {
		pub, err := brokers.New(bc)
		if err != nil {
			return nil, closers, generr.Configuration("stream.brokers[%d]: %v", i, err)
		}
		if err := pub.Connect(ctx); err != nil {
			return nil, closers, generr.Publish(pub.Type()+":"+pub.Destination(), false, err)
		}
		s := brokers.NewSink(pub, enc)
		sinks = append(sinks, s)
		closers = append(closers, s)
		p.logger.Info().Str("sink", s.Name()).Msg("broker connected")
	}
	return sinks, closers, nil
}

func (p *Processor) record(ctx context.Context, e *audit.Entry) {
	p.audit.Log(ctx, e.WithRun(p.runID, p.config.Name()))
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// publishResult сообщает итог прогона во внешний Redis
func (p *Processor) publishResult(execErr error) {
	rl := p.config.ResultLog
	if rl == nil {
		return
	}

	pub := resultlog.NewRedisPublisher(*rl)
	defer pub.Close()

	result := resultlog.RunResult{
		ConfigName:    p.config.Name(),
		RunID:         p.runID,
		StartedAt:     p.stats.StartTime,
		FinishedAt:    p.stats.EndTime,
		RowsGenerated: p.stats.RowsGenerated,
		Columns:       p.stats.Columns,
		Outputs:       p.stats.FilesWritten,
	}
	if r := p.stats.Emission; r != nil {
		result.Batches = r.Batches
		result.Retries = r.Retries
	}

	// контекст прогона мог быть отменен, результат все равно доставляется
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := pub.Publish(ctx, result, execErr)
	p.record(ctx, audit.NewEntry(audit.OpPublishResult, err).WithTarget(resultlog.StateKey(rl.Name)))
	if err != nil {
		p.stats.Errors = append(p.stats.Errors, fmt.Errorf("failed to publish result: %w", err))
		p.logger.Warn().Err(err).Msg("failed to publish run result")
		return
	}
	p.logger.Debug().Str("key", resultlog.StateKey(rl.Name)).Msg("run result published")
}

// Stats возвращает статистику прогона
func (p *Processor) Stats() Stats {
	return p.stats
}

// RunID идентификатор прогона
func (p *Processor) RunID() string {
	return p.runID
}

// IsCanceled сообщает, что прогон прерван отменой контекста
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
