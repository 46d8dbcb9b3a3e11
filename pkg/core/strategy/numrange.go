package strategy

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/ruslano69/tdtp-datagen/pkg/core/generr"
)

// Распределения RANDOM_NUMBER_RANGE_STRATEGY
const (
	DistUniform     = "uniform"
	DistNormal      = "normal"
	DistExponential = "exponential"
)

const (
	maxPrecision = 12
	maxGridValue = 1 << 53
	// normalRedraws число повторных попыток для значения вне диапазона,
	// после них значение прижимается к границе
	normalRedraws = 100
)

// grid множество значений диапазона [start, end] с шагом 10^-precision.
// Значение хранится как целый индекс k, число равно k / 10^precision.
type grid struct {
	lo, hi    int64
	scale     float64
	precision int
}

// newGrid строит сетку значений. field называет параметр, к которому относится ошибка.
func newGrid(start, end float64, precision int) (g grid, field string, err error) {
	if precision < 0 || precision > maxPrecision {
		return grid{}, "precision", fmt.Errorf("must be in [0, %d], got %d", maxPrecision, precision)
	}
	if end < start {
		return grid{}, "end", fmt.Errorf("end (%v) must not be less than start (%v)", end, start)
	}
	scale := math.Pow10(precision)
	// допуск на двоичное представление: 0.1*10 должно дать ровно 1
	lo := math.Ceil(start*scale - 1e-9)
	hi := math.Floor(end*scale + 1e-9)
	if math.Abs(lo) > maxGridValue || math.Abs(hi) > maxGridValue {
		return grid{}, "precision", fmt.Errorf("range [%v, %v] is too wide for precision %d", start, end, precision)
	}
	if lo > hi {
		return grid{}, "precision", fmt.Errorf("range [%v, %v] has no values with precision %d", start, end, precision)
	}
	return grid{lo: int64(lo), hi: int64(hi), scale: scale, precision: precision}, "", nil
}

// size число различных значений
func (g grid) size() int64 { return g.hi - g.lo + 1 }

// value переводит индекс в значение ячейки
func (g grid) value(k int64) any {
	if g.precision == 0 {
		return k
	}
	return float64(k) / g.scale
}

// nearest возвращает ближайший к x индекс внутри диапазона
func (g grid) nearest(x float64) int64 {
	k := math.Round(x * g.scale)
	switch {
	case k < float64(g.lo):
		return g.lo
	case k > float64(g.hi):
		return g.hi
	}
	return int64(k)
}

func (g grid) uniform(rng *rand.Rand) int64 {
	return g.lo + rng.Int64N(g.size())
}

// NumberRange случайные числа в [start, end]
type NumberRange struct {
	start, end   float64
	g            grid
	distribution string
	mean, stdDev float64
	rate         float64
	unique       bool
	rng          *rand.Rand
}

func newNumberRange(p Params, rng *rand.Rand) (Strategy, error) {
	s := &NumberRange{
		start:        p.Float("start"),
		end:          p.Float("end"),
		distribution: p.String("distribution"),
		rate:         p.Float("rate"),
		unique:       p.Bool("unique"),
		rng:          rng,
	}

	var errs []generr.FieldError
	g, field, err := newGrid(s.start, s.end, p.Int("precision"))
	if err != nil {
		errs = append(errs, generr.FieldError{Field: field, Message: err.Error()})
	}
	s.g = g

	s.mean = (s.start + s.end) / 2
	if p.Has("mean") {
		s.mean = p.Float("mean")
	}
	s.stdDev = (s.end - s.start) / 6
	if p.Has("std_dev") {
		s.stdDev = p.Float("std_dev")
		if s.stdDev < 0 {
			errs = append(errs, generr.FieldError{Field: "std_dev", Message: "must not be negative"})
		}
	}
	if s.rate <= 0 {
		errs = append(errs, generr.FieldError{Field: "rate", Message: "must be positive"})
	}

	if len(errs) > 0 {
		return nil, generr.Validation(errs)
	}
	return s, nil
}

// Generate возвращает count чисел выбранного распределения
func (s *NumberRange) Generate(_ *Context, count int) ([]any, error) {
	var idx []int64
	if s.unique {
		var err error
		if idx, err = s.sampleUnique(count); err != nil {
			return nil, err
		}
	} else {
		idx = make([]int64, count)
		for i := range idx {
			idx[i] = s.draw()
		}
	}

	out := make([]any, count)
	for i, k := range idx {
		out[i] = s.g.value(k)
	}
	return out, nil
}

// draw возвращает индекс одного значения с учетом распределения
func (s *NumberRange) draw() int64 {
	switch s.distribution {
	case DistNormal:
		x := s.mean
		for i := 0; i < normalRedraws; i++ {
			x = s.mean + s.stdDev*s.rng.NormFloat64()
			if x >= s.start && x <= s.end {
				break
			}
		}
		return s.g.nearest(math.Min(math.Max(x, s.start), s.end))

	case DistExponential:
		// обратная функция усеченного на [0, 1] экспоненциального распределения
		u := s.rng.Float64()
		x := -math.Log1p(-u*(-math.Expm1(-s.rate))) / s.rate
		return s.g.nearest(s.start + x*(s.end-s.start))
	}
	return s.g.uniform(s.rng)
}

// sampleUnique выбирает count различных значений без повторных попыток
func (s *NumberRange) sampleUnique(count int) ([]int64, error) {
	n := s.g.size()
	if n < int64(count) {
		return nil, generr.Generation(
			"range [%v, %v] with precision %d has %d distinct values, %d unique values requested",
			s.start, s.end, s.g.precision, n, count)
	}

	if s.distribution == DistUniform || s.distribution == "" {
		// алгоритм Флойда: count значений из n без перебора всего диапазона
		taken := make(map[int64]struct{}, count)
		idx := make([]int64, 0, count)
		for j := n - int64(count); j < n; j++ {
			t := s.rng.Int64N(j + 1)
			if _, ok := taken[t]; ok {
				t = j
			}
			taken[t] = struct{}{}
			idx = append(idx, s.g.lo+t)
		}
		s.rng.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })
		return idx, nil
	}

	// для неравномерных распределений занятое значение заменяется ближайшим свободным
	taken := make(map[int64]struct{}, count)
	idx := make([]int64, 0, count)
	for len(idx) < count {
		k := s.draw()
		if _, ok := taken[k]; ok {
			k = s.nearestFree(k, taken)
		}
		taken[k] = struct{}{}
		idx = append(idx, k)
	}
	return idx, nil
}

func (s *NumberRange) nearestFree(k int64, taken map[int64]struct{}) int64 {
	for d := int64(1); ; d++ {
		lower, upper := k-d, k+d
		inLower, inUpper := lower >= s.g.lo, upper <= s.g.hi
		if !inLower && !inUpper {
			// недостижимо: свободное значение есть, пока len(taken) < size
			return k
		}
		first, second := lower, upper
		if s.rng.IntN(2) == 1 {
			first, second = upper, lower
		}
		for _, c := range [2]int64{first, second} {
			if c < s.g.lo || c > s.g.hi {
				continue
			}
			if _, ok := taken[c]; !ok {
				return c
			}
		}
	}
}
