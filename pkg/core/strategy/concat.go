package strategy

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/ruslano69/tdtp-datagen/pkg/core/generr"
	"github.com/ruslano69/tdtp-datagen/pkg/core/table"
)

// Concat построчное объединение значений нескольких колонок
type Concat struct {
	columns                   []string
	separator, prefix, suffix string
}

func newConcat(p Params, _ *rand.Rand) (Strategy, error) {
	s := &Concat{
		separator: p.String("separator"),
		prefix:    p.String("prefix"),
		suffix:    p.String("suffix"),
	}

	var errs []generr.FieldError
	for i, raw := range p.List("columns") {
		name, ok := raw.(string)
		if !ok || name == "" {
			errs = append(errs, generr.FieldError{Field: "columns", Message: fmt.Sprintf("item #%d must be a column name", i+1)})
			continue
		}
		s.columns = append(s.columns, name)
	}
	if len(s.columns) == 0 && len(errs) == 0 {
		lhs, rhs := p.String("lhs_col"), p.String("rhs_col")
		if lhs == "" {
			errs = append(errs, generr.FieldError{Field: "lhs_col", Message: "required when columns is not set"})
		}
		if rhs == "" {
			errs = append(errs, generr.FieldError{Field: "rhs_col", Message: "required when columns is not set"})
		}
		s.columns = []string{lhs, rhs}
	}
	if len(errs) > 0 {
		return nil, generr.Validation(errs)
	}
	return s, nil
}

// Dependencies возвращает объединяемые колонки
func (s *Concat) Dependencies(string) []string { return s.columns }

// Generate объединяет значения колонок для выбранных строк. null дает пустую строку.
func (s *Concat) Generate(ctx *Context, count int) ([]any, error) {
	sources := make([][]any, len(s.columns))
	for i, name := range s.columns {
		values, err := ctx.Column(name)
		if err != nil {
			return nil, err
		}
		sources[i] = values
	}

	out := make([]any, count)
	parts := make([]string, len(sources))
	for row := range out {
		for i, values := range sources {
			if row < len(values) {
				parts[i] = table.Format(values[row])
			} else {
				parts[i] = ""
			}
		}
		out[row] = s.prefix + strings.Join(parts, s.separator) + s.suffix
	}
	return out, nil
}
