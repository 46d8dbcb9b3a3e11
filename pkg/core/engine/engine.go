// Package engine выполняет упорядоченный список шагов генерации над таблицей.
//
// Прогон состоит из двух фаз. Подготовка проверяет шаги, компилирует маски,
// создает стратегии и проверяет зависимости, не трогая таблицу. Выполнение
// применяет шаги по порядку, затем перемешивает строки, удаляет промежуточные
// колонки и замораживает таблицу.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ruslano69/tdtp-datagen/pkg/core/generr"
	"github.com/ruslano69/tdtp-datagen/pkg/core/mask"
	"github.com/ruslano69/tdtp-datagen/pkg/core/strategy"
	"github.com/ruslano69/tdtp-datagen/pkg/core/table"
)

// Engine оркестратор генерации
type Engine struct {
	registry    *strategy.Registry
	logger      zerolog.Logger
	columnOrder []string
	seed        uint64
	seeded      bool
}

// Option настройка Engine
type Option func(*Engine)

// WithRegistry задает реестр стратегий (по умолчанию strategy.DefaultRegistry)
func WithRegistry(r *strategy.Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// WithLogger задает логгер
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithColumnOrder задает итоговый порядок колонок
func WithColumnOrder(names []string) Option {
	return func(e *Engine) { e.columnOrder = append([]string(nil), names...) }
}

// WithSeed делает прогон воспроизводимым
func WithSeed(seed uint64) Option {
	return func(e *Engine) {
		e.seed = seed
		e.seeded = true
	}
}

// New создает Engine
func New(opts ...Option) *Engine {
	e := &Engine{
		registry: strategy.DefaultRegistry,
		logger:   log.Logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// plannedStep шаг, прошедший подготовку
type plannedStep struct {
	index      int
	step       Step
	mask       *mask.Mask
	strategies []strategy.Strategy // по одной на целевую колонку
}

// Run выполняет шаги и возвращает замороженную таблицу
func (e *Engine) Run(ctx context.Context, steps []Step, numRows int, shuffle bool) (*table.Table, error) {
	tbl, _, err := e.RunWithStats(ctx, steps, numRows, shuffle)
	return tbl, err
}

// RunWithStats выполняет шаги и возвращает таблицу вместе с отчетом
func (e *Engine) RunWithStats(ctx context.Context, steps []Step, numRows int, shuffle bool) (*table.Table, *Stats, error) {
	stats := &Stats{StartTime: time.Now(), Rows: numRows}

	tbl, err := e.run(ctx, steps, numRows, shuffle, stats)
	stats.Duration = time.Since(stats.StartTime)

	switch {
	case err == nil:
		runsTotal.WithLabelValues("ok").Inc()
		stats.Columns = tbl.Names()
		stats.Log(e.logger)
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		runsTotal.WithLabelValues("canceled").Inc()
		e.logger.Warn().Err(err).Msg("generation canceled")
	default:
		runsTotal.WithLabelValues("failed").Inc()
		e.logger.Error().Err(err).Msg("generation failed")
	}
	if err != nil {
		return nil, stats, err
	}
	return tbl, stats, nil
}

// Validate выполняет только фазу подготовки
func (e *Engine) Validate(steps []Step, numRows int) error {
	_, err := e.prepare(steps, numRows, &Stats{})
	return err
}

func (e *Engine) run(ctx context.Context, steps []Step, numRows int, shuffle bool, stats *Stats) (*table.Table, error) {
	plan, err := e.prepare(steps, numRows, stats)
	if err != nil {
		return nil, err
	}

	tbl := table.New(numRows, e.columnOrder...)
	for _, p := range plan {
		for _, name := range p.step.Names {
			tbl.Ensure(name)
		}
	}

	allRows := make([]int, numRows)
	for i := range allRows {
		allRows[i] = i
	}

	for _, p := range plan {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("generation canceled before step %d: %w", p.index, err)
		}
		if err := e.execute(p, tbl, allRows, stats); err != nil {
			return nil, err
		}
	}

	if shuffle {
		if err := tbl.ShuffleRand(e.shuffleRand()); err != nil {
			return nil, fmt.Errorf("failed to shuffle rows: %w", err)
		}
		stats.Shuffled = true
	}
	stats.Dropped = tbl.DropIntermediate()
	if len(e.columnOrder) > 0 {
		tbl.Reorder(e.columnOrder)
	}
	tbl.Freeze()
	return tbl, nil
}

// prepare проверяет шаги до любой записи в таблицу
func (e *Engine) prepare(steps []Step, numRows int, stats *Stats) ([]plannedStep, error) {
	if numRows < 1 {
		return nil, generr.Configuration("num_of_rows must be at least 1, got %d", numRows)
	}

	populated := make(map[string]bool)
	plan := make([]plannedStep, 0, len(steps))

	for i, st := range steps {
		if st.Disabled {
			stats.Skipped++
			e.logger.Debug().Int("step", i).Str("step_label", st.label()).Msg("step disabled, skipped")
			continue
		}

		if len(st.Names) == 0 {
			return nil, generr.Configuration("step has no target columns").WithStep(i, "")
		}
		for _, name := range st.Names {
			if strings.TrimSpace(name) == "" {
				return nil, generr.Configuration("empty column name").WithStep(i, "")
			}
		}
		if strings.TrimSpace(st.Strategy) == "" {
			return nil, generr.Configuration("strategy name is empty").WithStep(i, st.Names[0])
		}
		op, err := ParseOperation(string(st.Operation))
		if err != nil {
			return nil, stepError(err, i, st.Names[0])
		}
		st.Operation = op

		p := plannedStep{index: i, step: st}

		if strings.TrimSpace(st.Mask) != "" {
			m, err := mask.Compile(st.Mask)
			if err != nil {
				return nil, stepError(err, i, st.Names[0])
			}
			for _, col := range m.Columns() {
				if !populated[col] {
					return nil, generr.Dependency(col,
						"mask %q of step %d (%s) references column %q that no earlier step populates",
						st.Mask, i, st.label(), col).WithStep(i, st.Names[0])
				}
			}
			p.mask = m
		}

		for j, name := range st.Names {
			var opts []strategy.CreateOption
			if e.seeded {
				opts = append(opts, strategy.WithSeed(deriveSeed(e.seed, i, j)))
			}
			s, err := e.registry.Create(st.Strategy, st.Params, opts...)
			if err != nil {
				return nil, stepError(err, i, name)
			}
			for _, dep := range strategy.Dependencies(s, name) {
				if !populated[dep] {
					return nil, generr.Dependency(dep,
						"step %d (%s) reads column %q that no earlier step populates",
						i, st.label(), dep).WithStep(i, name)
				}
			}
			p.strategies = append(p.strategies, s)
			populated[name] = true
		}

		plan = append(plan, p)
	}
	return plan, nil
}

// execute применяет один шаг ко всем его колонкам
func (e *Engine) execute(p plannedStep, tbl *table.Table, allRows []int, stats *Stats) error {
	rows := allRows
	if p.mask != nil {
		bits, err := p.mask.Evaluate(tbl)
		if err != nil {
			return stepError(err, p.index, p.step.Names[0])
		}
		rows = mask.Selected(bits)
	}

	for j, name := range p.step.Names {
		start := time.Now()

		gctx := &strategy.Context{Target: name, Rows: rows, Table: tbl}
		values, err := p.strategies[j].Generate(gctx, len(rows))
		if err != nil {
			return stepError(err, p.index, name)
		}
		if len(values) != len(rows) {
			return generr.Generation("strategy %s produced %d values, expected %d",
				p.step.Strategy, len(values), len(rows)).WithStep(p.index, name)
		}

		written, err := apply(tbl, name, rows, values, p.step.Operation)
		if err != nil {
			return stepError(err, p.index, name)
		}
		tbl.MarkPopulated(name, p.step.Intermediate)

		elapsed := time.Since(start)
		label := strings.ToUpper(p.step.Strategy)
		rowsGenerated.WithLabelValues(label).Add(float64(written))
		stepDuration.WithLabelValues(label).Observe(elapsed.Seconds())
		stats.Steps = append(stats.Steps, StepStats{
			Step:      p.index,
			Column:    name,
			Strategy:  p.step.Strategy,
			Operation: p.step.Operation,
			Selected:  len(rows),
			Written:   written,
			Duration:  elapsed,
		})
	}
	return nil
}

// apply записывает значения в выбранные строки и возвращает число записанных ячеек.
// Для insert_if_empty значения берутся по порядку и только для пустых ячеек,
// оставшиеся значения отбрасываются.
func apply(tbl *table.Table, name string, rows []int, values []any, op Operation) (int, error) {
	written := 0
	for k, r := range rows {
		v := values[k]
		if op == OpInsertIfEmpty {
			if !tbl.IsNull(name, r) {
				continue
			}
			v = values[written]
		}
		if err := tbl.Set(name, r, v); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

// stepError привязывает ошибку к шагу и колонке
func stepError(err error, step int, column string) error {
	var gerr *generr.Error
	if errors.As(err, &gerr) {
		return gerr.WithStep(step, column)
	}
	e := generr.Generation("%v", err).WithStep(step, column)
	e.Err = err
	e.Msg = "unexpected strategy failure"
	return e
}

// deriveSeed дает независимый seed для колонки j шага i (splitmix64)
func deriveSeed(seed uint64, step, column int) uint64 {
	z := seed + uint64(step+1)*0x9e3779b97f4a7c15 + uint64(column+1)*0xbf58476d1ce4e5b9
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func (e *Engine) shuffleRand() *rand.Rand {
	if e.seeded {
		return strategy.NewRand(deriveSeed(e.seed, -1, -1))
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}
