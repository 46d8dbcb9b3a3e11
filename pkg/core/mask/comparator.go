package mask

import (
	"fmt"

	"github.com/ruslano69/tdtp-datagen/pkg/core/table"
)

// compare сравнивает два значения.
// null дает false для всех операторов, кроме !=.
// Значения разных типов не равны и не упорядочены.
func compare(a, b any, op string) (bool, error) {
	if a == nil || b == nil {
		if op == "==" {
			return a == nil && b == nil, nil
		}
		if op == "!=" {
			return !(a == nil && b == nil), nil
		}
		return false, nil
	}

	if fa, ok := table.AsFloat(a); ok {
		if fb, ok := table.AsFloat(b); ok {
			return order(cmpFloat(fa, fb), op), nil
		}
		return mismatch(op), nil
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return mismatch(op), nil
		}
		return order(cmpString(av, bv), op), nil

	case bool:
		bv, ok := b.(bool)
		if !ok {
			return mismatch(op), nil
		}
		switch op {
		case "==":
			return av == bv, nil
		case "!=":
			return av != bv, nil
		}
		return false, fmt.Errorf("operator %s is not defined for booleans", op)
	}

	return false, fmt.Errorf("unsupported value type %T", a)
}

func mismatch(op string) bool {
	return op == "!="
}

func order(c int, op string) bool {
	switch op {
	case "==":
		return c == 0
	case "!=":
		return c != 0
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	case ">=":
		return c >= 0
	}
	return false
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
