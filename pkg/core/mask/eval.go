// Package mask компилирует и вычисляет маски строк.
//
// Маска - булево выражение над уже заполненными колонками и литералами:
//
//	status == 'active' and age >= 18
//	not (country in ['RU', 'KZ']) or vip
//
// Грамматика ограничена сравнениями (== != < > <= >=), проверкой
// принадлежности (in, not in) и логическими связками (and, or, not).
// Все остальное отклоняется на этапе компиляции.
package mask

import (
	"github.com/ruslano69/tdtp-datagen/pkg/core/generr"
	"github.com/ruslano69/tdtp-datagen/pkg/core/table"
)

// Mask скомпилированная маска
type Mask struct {
	source  string
	expr    Expression
	columns []string
}

// Compile разбирает выражение маски
func Compile(source string) (*Mask, error) {
	expr, err := NewParser(source).Parse()
	if err != nil {
		return nil, err
	}

	m := &Mask{source: source, expr: expr}
	columns(expr, make(map[string]bool), &m.columns)
	return m, nil
}

// Source возвращает исходный текст маски
func (m *Mask) Source() string { return m.source }

// String возвращает нормализованное представление AST
func (m *Mask) String() string { return m.expr.String() }

// Columns возвращает колонки, на которые ссылается маска, в порядке появления
func (m *Mask) Columns() []string {
	out := make([]string, len(m.columns))
	copy(out, m.columns)
	return out
}

// Evaluate вычисляет маску для всех строк таблицы. Таблица не изменяется.
func (m *Mask) Evaluate(r table.Reader) ([]bool, error) {
	for _, name := range m.columns {
		if !r.Has(name) || !r.Populated(name) {
			return nil, generr.Dependency(name, "mask %q references column %q that is not populated yet", m.source, name)
		}
	}

	ev := &evaluator{r: r, rows: r.Rows()}
	return ev.eval(m.expr)
}

// Selected возвращает индексы строк, для которых маска истинна
func Selected(bits []bool) []int {
	rows := make([]int, 0, len(bits))
	for i, ok := range bits {
		if ok {
			rows = append(rows, i)
		}
	}
	return rows
}

type evaluator struct {
	r    table.Reader
	rows int
}

func (ev *evaluator) eval(expr Expression) ([]bool, error) {
	switch e := expr.(type) {
	case *ParenExpression:
		return ev.eval(e.Expression)

	case *NotExpression:
		res, err := ev.eval(e.Expression)
		if err != nil {
			return nil, err
		}
		for i := range res {
			res[i] = !res[i]
		}
		return res, nil

	case *BinaryExpression:
		left, err := ev.eval(e.Left)
		if err != nil {
			return nil, err
		}
		right, err := ev.eval(e.Right)
		if err != nil {
			return nil, err
		}
		for i := range left {
			if e.Operator == "and" {
				left[i] = left[i] && right[i]
			} else {
				left[i] = left[i] || right[i]
			}
		}
		return left, nil

	case *ComparisonExpression:
		res := make([]bool, ev.rows)
		for i := range res {
			ok, err := compare(ev.value(e.Left, i), ev.value(e.Right, i), e.Operator)
			if err != nil {
				return nil, generr.MaskEvaluation("%s: %v", e.String(), err)
			}
			res[i] = ok
		}
		return res, nil

	case *InExpression:
		res := make([]bool, ev.rows)
		for i := range res {
			v := ev.value(e.Operand, i)
			found := false
			for _, lit := range e.Values {
				if eq, _ := compare(v, lit.Value, "=="); eq {
					found = true
					break
				}
			}
			res[i] = found != e.Not
		}
		return res, nil

	case *TruthExpression:
		res := make([]bool, ev.rows)
		for i := range res {
			switch v := ev.value(e.Operand, i).(type) {
			case nil:
				res[i] = false
			case bool:
				res[i] = v
			default:
				return nil, generr.MaskEvaluation("operand %s is not boolean (row %d has %T)", e.Operand.String(), i, v)
			}
		}
		return res, nil
	}

	return nil, generr.MaskEvaluation("unsupported expression %T", expr)
}

func (ev *evaluator) value(op Operand, row int) any {
	switch o := op.(type) {
	case *ColumnRef:
		return ev.r.Value(o.Name, row)
	case *Literal:
		return o.Value
	}
	return nil
}
