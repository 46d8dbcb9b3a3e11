package table

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Kind тип данных колонки
type Kind int

const (
	KindNone Kind = iota // колонка еще не получила ни одного значения
	KindInt
	KindFloat
	KindString
	KindBool
)

// String возвращает имя типа
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	default:
		return "none"
	}
}

// Normalize приводит значение к одному из внутренних представлений:
// int64, float64, string, bool или nil.
func Normalize(v any) (any, Kind, error) {
	switch x := v.(type) {
	case nil:
		return nil, KindNone, nil
	case int64:
		return x, KindInt, nil
	case int:
		return int64(x), KindInt, nil
	case int32:
		return int64(x), KindInt, nil
	case int16:
		return int64(x), KindInt, nil
	case int8:
		return int64(x), KindInt, nil
	case uint:
		return int64(x), KindInt, nil
	case uint32:
		return int64(x), KindInt, nil
	case uint16:
		return int64(x), KindInt, nil
	case uint8:
		return int64(x), KindInt, nil
	case uint64:
		if x > math.MaxInt64 {
			return nil, KindNone, fmt.Errorf("value %d overflows int64", x)
		}
		return int64(x), KindInt, nil
	case float64:
		return x, KindFloat, nil
	case float32:
		return float64(x), KindFloat, nil
	case string:
		return x, KindString, nil
	case bool:
		return x, KindBool, nil
	case time.Time:
		return x.Format(time.RFC3339), KindString, nil
	case fmt.Stringer:
		return x.String(), KindString, nil
	default:
		return nil, KindNone, fmt.Errorf("unsupported value type %T", v)
	}
}

// coerce приводит нормализованное значение к типу колонки.
// Допустимы только int→float и целочисленный float→int.
func coerce(v any, vk, ck Kind) (any, bool) {
	if vk == ck {
		return v, true
	}
	switch {
	case ck == KindFloat && vk == KindInt:
		return float64(v.(int64)), true
	case ck == KindInt && vk == KindFloat:
		f := v.(float64)
		if f == math.Trunc(f) && math.Abs(f) < 1<<62 {
			return int64(f), true
		}
	}
	return nil, false
}

// Format возвращает строковое представление значения ячейки.
// null отображается пустой строкой.
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

// AsFloat возвращает числовое значение ячейки
func AsFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	case int:
		return float64(x), true
	}
	return 0, false
}
