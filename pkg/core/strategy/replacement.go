package strategy

import (
	"math/rand/v2"
	"strings"

	"github.com/ruslano69/tdtp-datagen/pkg/core/generr"
	"github.com/ruslano69/tdtp-datagen/pkg/core/table"
)

// Replacement заменяет точные совпадения from_value на to_value
type Replacement struct {
	column          string
	from, to        any
	caseInsensitive bool
}

func newReplacement(p Params, _ *rand.Rand) (Strategy, error) {
	s := &Replacement{
		column:          p.String("column"),
		caseInsensitive: p.Bool("case_insensitive"),
	}

	var errs []generr.FieldError
	var err error
	if s.from, _, err = table.Normalize(p.Get("from_value")); err != nil {
		errs = append(errs, generr.FieldError{Field: "from_value", Message: err.Error()})
	}
	if s.to, _, err = table.Normalize(p.Get("to_value")); err != nil {
		errs = append(errs, generr.FieldError{Field: "to_value", Message: err.Error()})
	}
	if len(errs) > 0 {
		return nil, generr.Validation(errs)
	}
	return s, nil
}

func (s *Replacement) source(target string) string {
	if s.column != "" {
		return s.column
	}
	return target
}

// Dependencies возвращает просматриваемую колонку (по умолчанию целевую)
func (s *Replacement) Dependencies(target string) []string {
	return []string{s.source(target)}
}

// Generate возвращает значения колонки с выполненной заменой
func (s *Replacement) Generate(ctx *Context, count int) ([]any, error) {
	values, err := ctx.Column(s.source(ctx.Target))
	if err != nil {
		return nil, err
	}

	out := make([]any, count)
	for i := range out {
		if i >= len(values) {
			break
		}
		v := values[i]
		if s.matches(v) {
			v = s.to
		}
		out[i] = v
	}
	return out, nil
}

// matches сравнивает значения одного вида: числа численно (int и float
// совместимы), строки посимвольно. Строка "3" не совпадает с числом 3.
func (s *Replacement) matches(v any) bool {
	if v == nil || s.from == nil {
		return v == nil && s.from == nil
	}
	switch from := s.from.(type) {
	case string:
		str, ok := v.(string)
		if !ok {
			return false
		}
		if s.caseInsensitive {
			return strings.EqualFold(str, from)
		}
		return str == from
	case bool:
		b, ok := v.(bool)
		return ok && b == from
	}
	a, ok := table.AsFloat(v)
	if !ok {
		return false
	}
	b, _ := table.AsFloat(s.from)
	return a == b
}
