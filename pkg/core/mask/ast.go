package mask

import (
	"strconv"
	"strings"
)

// Node базовый интерфейс для всех узлов AST
type Node interface {
	node()
	String() string
}

// Expression булево выражение
type Expression interface {
	Node
	expression()
}

// Operand операнд сравнения: ссылка на колонку или литерал
type Operand interface {
	Node
	operand()
}

// ColumnRef ссылка на колонку
type ColumnRef struct {
	Name string
	Pos  int
}

func (c *ColumnRef) node()    {}
func (c *ColumnRef) operand() {}
func (c *ColumnRef) String() string {
	if isPlainIdent(c.Name) {
		return c.Name
	}
	return "`" + c.Name + "`"
}

// Literal строковый, числовой или булев литерал.
// Value хранит string, float64 или bool.
type Literal struct {
	Value any
}

func (l *Literal) node()    {}
func (l *Literal) operand() {}
func (l *Literal) String() string {
	switch v := l.Value.(type) {
	case string:
		return strconv.Quote(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return "?"
}

// BinaryExpression логическое выражение (and, or)
type BinaryExpression struct {
	Left     Expression
	Operator string // "and", "or"
	Right    Expression
}

func (b *BinaryExpression) node()       {}
func (b *BinaryExpression) expression() {}
func (b *BinaryExpression) String() string {
	return b.Left.String() + " " + b.Operator + " " + b.Right.String()
}

// ComparisonExpression сравнение двух операндов
type ComparisonExpression struct {
	Left     Operand
	Operator string // "==", "!=", "<", "<=", ">", ">="
	Right    Operand
}

func (c *ComparisonExpression) node()       {}
func (c *ComparisonExpression) expression() {}
func (c *ComparisonExpression) String() string {
	return c.Left.String() + " " + c.Operator + " " + c.Right.String()
}

// InExpression проверка принадлежности списку литералов
type InExpression struct {
	Operand Operand
	Values  []*Literal
	Not     bool // для "not in"
}

func (i *InExpression) node()       {}
func (i *InExpression) expression() {}
func (i *InExpression) String() string {
	vals := make([]string, len(i.Values))
	for j, v := range i.Values {
		vals[j] = v.String()
	}
	op := " in "
	if i.Not {
		op = " not in "
	}
	return i.Operand.String() + op + "[" + strings.Join(vals, ", ") + "]"
}

// NotExpression логическое отрицание
type NotExpression struct {
	Expression Expression
}

func (n *NotExpression) node()       {}
func (n *NotExpression) expression() {}
func (n *NotExpression) String() string {
	return "not " + n.Expression.String()
}

// ParenExpression выражение в скобках
type ParenExpression struct {
	Expression Expression
}

func (p *ParenExpression) node()       {}
func (p *ParenExpression) expression() {}
func (p *ParenExpression) String() string {
	return "(" + p.Expression.String() + ")"
}

// TruthExpression одиночный операнд в булевом контексте (flag, true)
type TruthExpression struct {
	Operand Operand
}

func (t *TruthExpression) node()       {}
func (t *TruthExpression) expression() {}
func (t *TruthExpression) String() string {
	return t.Operand.String()
}

func isPlainIdent(s string) bool {
	if s == "" || lookupKeyword(s) != TokenIdent {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isLetter(s[i]) && !(i > 0 && isDigit(s[i])) {
			return false
		}
	}
	return true
}

// columns собирает имена колонок, на которые ссылается выражение
func columns(expr Node, seen map[string]bool, out *[]string) {
	add := func(op Operand) {
		if c, ok := op.(*ColumnRef); ok && !seen[c.Name] {
			seen[c.Name] = true
			*out = append(*out, c.Name)
		}
	}
	switch e := expr.(type) {
	case *BinaryExpression:
		columns(e.Left, seen, out)
		columns(e.Right, seen, out)
	case *ComparisonExpression:
		add(e.Left)
		add(e.Right)
	case *InExpression:
		add(e.Operand)
	case *NotExpression:
		columns(e.Expression, seen, out)
	case *ParenExpression:
		columns(e.Expression, seen, out)
	case *TruthExpression:
		add(e.Operand)
	}
}
