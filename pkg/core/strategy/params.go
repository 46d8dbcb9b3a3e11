package strategy

import (
	"bytes"
	"encoding/json"
	"sort"
)

// MapItem элемент упорядоченного отображения
type MapItem struct {
	Key   string
	Value any
}

// Mapping отображение, сохраняющее порядок объявления ключей.
// Нужно стратегиям, для которых порядок значим (веса в DISTRIBUTED_CHOICE_STRATEGY).
type Mapping []MapItem

// Get возвращает значение по ключу
func (m Mapping) Get(key string) (any, bool) {
	for _, it := range m {
		if it.Key == key {
			return it.Value, true
		}
	}
	return nil, false
}

// Map превращает Mapping в обычную map
func (m Mapping) Map() map[string]any {
	out := make(map[string]any, len(m))
	for _, it := range m {
		out[it.Key] = it.Value
	}
	return out
}

// MarshalJSON сериализует Mapping как JSON-объект с сохранением порядка
func (m Mapping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, it := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(it.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(it.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ToMapping приводит значение к Mapping.
// Для обычной map порядок ключей берется отсортированным.
func ToMapping(v any) (Mapping, bool) {
	switch m := v.(type) {
	case Mapping:
		return m, true
	case map[string]any:
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(Mapping, len(keys))
		for i, k := range keys {
			out[i] = MapItem{Key: k, Value: m[k]}
		}
		return out, true
	}
	return nil, false
}

// Params провалидированные параметры стратегии.
// Значения приведены к типам схемы: string, int, float64, bool, []any, Mapping.
type Params map[string]any

// Has проверяет наличие параметра
func (p Params) Has(name string) bool {
	_, ok := p[name]
	return ok
}

// Get возвращает значение параметра как есть
func (p Params) Get(name string) any { return p[name] }

// String возвращает строковый параметр
func (p Params) String(name string) string {
	s, _ := p[name].(string)
	return s
}

// Int возвращает целочисленный параметр
func (p Params) Int(name string) int {
	switch v := p[name].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

// Float возвращает вещественный параметр
func (p Params) Float(name string) float64 {
	switch v := p[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

// Bool возвращает булев параметр
func (p Params) Bool(name string) bool {
	b, _ := p[name].(bool)
	return b
}

// List возвращает параметр-список
func (p Params) List(name string) []any {
	l, _ := p[name].([]any)
	return l
}

// Map возвращает параметр-отображение
func (p Params) Map(name string) Mapping {
	m, _ := p[name].(Mapping)
	return m
}
