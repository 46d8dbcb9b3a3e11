package strategy

import (
	"math"
	"math/rand/v2"
)

// Series арифметическая прогрессия start + i*step
type Series struct {
	start, step float64
	integral    bool
}

func newSeries(p Params, _ *rand.Rand) (Strategy, error) {
	s := &Series{start: p.Float("start"), step: p.Float("step")}
	s.integral = isIntegral(s.start) && isIntegral(s.step)
	return s, nil
}

// Generate возвращает count членов прогрессии
func (s *Series) Generate(_ *Context, count int) ([]any, error) {
	out := make([]any, count)
	for i := range out {
		if s.integral {
			out[i] = int64(s.start) + int64(i)*int64(s.step)
			continue
		}
		out[i] = s.start + float64(i)*s.step
	}
	return out, nil
}

func isIntegral(f float64) bool {
	return f == math.Trunc(f) && math.Abs(f) < 1<<53
}
