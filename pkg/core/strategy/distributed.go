package strategy

import (
	"fmt"
	"math/rand/v2"

	"github.com/ruslano69/tdtp-datagen/pkg/core/generr"
)

// weighted общая часть взвешенных стратегий: распределение count по корзинам
// и конкатенация результатов корзин в порядке объявления
type weighted struct {
	weights []float64
}

func (w weighted) generate(count int, bucket func(i, n int) []any) ([]any, error) {
	counts, err := Apportion(w.weights, count)
	if err != nil {
		return nil, generr.Generation("apportion %d values: %v", count, err)
	}
	out := make([]any, 0, count)
	for i, n := range counts {
		if n > 0 {
			out = append(out, bucket(i, n)...)
		}
	}
	return out, nil
}

func checkWeights(field string, weights []float64) []generr.FieldError {
	if _, err := Apportion(weights, 0); err != nil {
		return []generr.FieldError{{Field: field, Message: err.Error()}}
	}
	return nil
}

// rangeItems валидирует элементы списка ranges по схеме элемента
func rangeItems(p Params, item Schema) ([]Params, []generr.FieldError) {
	list := p.List("ranges")
	if len(list) == 0 {
		return nil, []generr.FieldError{{Field: "ranges", Message: "must be a non-empty list"}}
	}
	var errs []generr.FieldError
	items := make([]Params, 0, len(list))
	for i, raw := range list {
		prefix := fmt.Sprintf("ranges[%d].", i)
		m, ok := itemParams(raw)
		if !ok {
			errs = append(errs, generr.FieldError{Field: prefix[:len(prefix)-1], Message: fmt.Sprintf("expected mapping, got %T", raw)})
			items = append(items, nil) // индексы items совпадают с индексами ranges
			continue
		}
		ip, ierrs := item.validate(m, prefix)
		errs = append(errs, ierrs...)
		items = append(items, ip)
	}
	return items, errs
}

// prefixed переносит ошибки поля элемента в пространство имен ranges[i]
func prefixed(i int, errs []generr.FieldError) []generr.FieldError {
	for k := range errs {
		errs[k].Field = fmt.Sprintf("ranges[%d].%s", i, errs[k].Field)
	}
	return errs
}

var numberRangeItem = Schema{Fields: []Field{
	{Name: "start", Type: TypeFloat, Required: true},
	{Name: "end", Type: TypeFloat, Required: true},
	{Name: "distribution", Type: TypeFloat, Default: 100.0, Description: "bucket weight"},
}}

// DistributedNumberRange равномерные числа из нескольких взвешенных диапазонов
type DistributedNumberRange struct {
	weighted
	grids []grid
	rng   *rand.Rand
}

func newDistributedNumberRange(p Params, rng *rand.Rand) (Strategy, error) {
	items, errs := rangeItems(p, numberRangeItem)
	s := &DistributedNumberRange{rng: rng}
	precision := p.Int("precision")
	for i, it := range items {
		if it == nil {
			continue
		}
		g, field, err := newGrid(it.Float("start"), it.Float("end"), precision)
		if err != nil {
			switch {
			case precision < 0 || precision > maxPrecision:
				// одна ошибка на параметр, а не на каждый диапазон
				if i == 0 {
					errs = append(errs, generr.FieldError{Field: "precision", Message: err.Error()})
				}
			case field == "precision":
				errs = append(errs, generr.FieldError{Field: fmt.Sprintf("ranges[%d]", i), Message: err.Error()})
			default:
				errs = append(errs, generr.FieldError{Field: fmt.Sprintf("ranges[%d].%s", i, field), Message: err.Error()})
			}
		}
		s.grids = append(s.grids, g)
		s.weights = append(s.weights, it.Float("distribution"))
	}
	if len(errs) == 0 {
		errs = checkWeights("ranges", s.weights)
	}
	if len(errs) > 0 {
		return nil, generr.Validation(errs)
	}
	return s, nil
}

// Generate распределяет count между диапазонами и заполняет каждую корзину
func (s *DistributedNumberRange) Generate(_ *Context, count int) ([]any, error) {
	return s.generate(count, func(i, n int) []any {
		g := s.grids[i]
		out := make([]any, n)
		for k := range out {
			out[k] = g.value(g.uniform(s.rng))
		}
		return out
	})
}

// DistributedChoice метки с заданными весами
type DistributedChoice struct {
	weighted
	labels []any
}

func newDistributedChoice(p Params, _ *rand.Rand) (Strategy, error) {
	choices := p.Map("choices")
	if len(choices) == 0 {
		return nil, generr.Validation([]generr.FieldError{{Field: "choices", Message: "must be a non-empty mapping"}})
	}
	s := &DistributedChoice{}
	var errs []generr.FieldError
	for _, it := range choices {
		v, err := coerceField(TypeFloat, it.Value)
		if err != nil {
			errs = append(errs, generr.FieldError{Field: "choices." + it.Key, Message: err.Error()})
			continue
		}
		s.labels = append(s.labels, it.Key)
		s.weights = append(s.weights, v.(float64))
	}
	if len(errs) == 0 {
		errs = checkWeights("choices", s.weights)
	}
	if len(errs) > 0 {
		return nil, generr.Validation(errs)
	}
	return s, nil
}

// Generate повторяет каждую метку столько раз, сколько ей выделено
func (s *DistributedChoice) Generate(_ *Context, count int) ([]any, error) {
	return s.generate(count, func(i, n int) []any {
		out := make([]any, n)
		for k := range out {
			out[k] = s.labels[i]
		}
		return out
	})
}

var dateRangeItem = Schema{Fields: []Field{
	{Name: "start_date", Type: TypeString, Required: true},
	{Name: "end_date", Type: TypeString, Required: true},
	{Name: "format", Type: TypeString, Default: defaultDateFormat},
	{Name: "output_format", Type: TypeString},
	{Name: "distribution", Type: TypeFloat, Default: 100.0, Description: "bucket weight"},
}}

// DistributedDateRange даты из нескольких взвешенных диапазонов
type DistributedDateRange struct {
	weighted
	ranges []dateRange
	rng    *rand.Rand
}

func newDistributedDateRange(p Params, rng *rand.Rand) (Strategy, error) {
	items, errs := rangeItems(p, dateRangeItem)
	s := &DistributedDateRange{rng: rng}
	if len(errs) == 0 {
		for i, it := range items {
			output := it.String("output_format")
			if output == "" {
				output = p.String("output_format")
			}
			r, rerrs := newDateRange(it.String("start_date"), it.String("end_date"), it.String("format"), output)
			errs = append(errs, prefixed(i, rerrs)...)
			s.ranges = append(s.ranges, r)
			s.weights = append(s.weights, it.Float("distribution"))
		}
	}
	if len(errs) == 0 {
		errs = checkWeights("ranges", s.weights)
	}
	if len(errs) > 0 {
		return nil, generr.Validation(errs)
	}
	return s, nil
}

// Generate распределяет count между диапазонами дат
func (s *DistributedDateRange) Generate(_ *Context, count int) ([]any, error) {
	return s.generate(count, func(i, n int) []any {
		out := make([]any, n)
		for k := range out {
			out[k] = s.ranges[i].draw(s.rng)
		}
		return out
	})
}

var timeRangeItem = Schema{Fields: []Field{
	{Name: "start", Type: TypeString, Required: true},
	{Name: "end", Type: TypeString, Required: true},
	{Name: "format", Type: TypeString, Default: defaultTimeFormat},
	{Name: "distribution", Type: TypeFloat, Default: 100.0, Description: "bucket weight"},
}}

// DistributedTimeRange время суток из нескольких взвешенных диапазонов
type DistributedTimeRange struct {
	weighted
	ranges []timeRange
	rng    *rand.Rand
}

func newDistributedTimeRange(p Params, rng *rand.Rand) (Strategy, error) {
	items, errs := rangeItems(p, timeRangeItem)
	s := &DistributedTimeRange{rng: rng}
	if len(errs) == 0 {
		for i, it := range items {
			r, rerrs := newTimeRange(it.String("start"), it.String("end"), it.String("format"),
				p.String("output_format"), "start", "end")
			errs = append(errs, prefixed(i, rerrs)...)
			s.ranges = append(s.ranges, r)
			s.weights = append(s.weights, it.Float("distribution"))
		}
	}
	if len(errs) == 0 {
		errs = checkWeights("ranges", s.weights)
	}
	if len(errs) > 0 {
		return nil, generr.Validation(errs)
	}
	return s, nil
}

// Generate распределяет count между диапазонами времени
func (s *DistributedTimeRange) Generate(_ *Context, count int) ([]any, error) {
	return s.generate(count, func(i, n int) []any {
		out := make([]any, n)
		for k := range out {
			out[k] = s.ranges[i].draw(s.rng)
		}
		return out
	})
}
