package strategy

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ruslano69/tdtp-datagen/pkg/core/generr"
	"github.com/ruslano69/tdtp-datagen/pkg/core/table"
)

// FieldType тип параметра стратегии
type FieldType string

const (
	TypeString FieldType = "string"
	TypeInt    FieldType = "int"
	TypeFloat  FieldType = "float"
	TypeBool   FieldType = "bool"
	TypeList   FieldType = "list"
	TypeMap    FieldType = "map"
	TypeAny    FieldType = "any"
)

// Field описание одного параметра
type Field struct {
	Name        string    `json:"name"`
	Type        FieldType `json:"type"`
	Required    bool      `json:"required"`
	Default     any       `json:"default,omitempty"`
	Enum        []string  `json:"enum,omitempty"`
	Description string    `json:"description,omitempty"`
}

// Schema схема параметров стратегии
type Schema struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Aliases     []string `json:"aliases,omitempty"`
	Fields      []Field  `json:"fields"`
}

// Field возвращает описание параметра по имени
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// clone возвращает копию схемы, не разделяющую срезы с оригиналом
func (s Schema) clone() Schema {
	c := s
	c.Aliases = append([]string(nil), s.Aliases...)
	c.Fields = make([]Field, len(s.Fields))
	for i, f := range s.Fields {
		f.Enum = append([]string(nil), f.Enum...)
		c.Fields[i] = f
	}
	return c
}

// Validate проверяет параметры по схеме и применяет значения по умолчанию.
// Возвращает все найденные ошибки, а не только первую.
// Неизвестные параметры игнорируются.
func (s Schema) Validate(params map[string]any) (Params, []generr.FieldError) {
	return s.validate(params, "")
}

func (s Schema) validate(params map[string]any, prefix string) (Params, []generr.FieldError) {
	out := make(Params, len(s.Fields))
	var errs []generr.FieldError

	for _, f := range s.Fields {
		raw, present := params[f.Name]
		if !present {
			if f.Required {
				errs = append(errs, generr.FieldError{Field: prefix + f.Name, Message: "required"})
				continue
			}
			if f.Default != nil {
				out[f.Name] = f.Default
			}
			continue
		}

		v, err := coerceField(f.Type, raw)
		if err != nil {
			errs = append(errs, generr.FieldError{Field: prefix + f.Name, Message: err.Error()})
			if f.Default != nil {
				out[f.Name] = f.Default
			}
			continue
		}
		if len(f.Enum) > 0 && v != nil {
			str := strings.ToLower(fmt.Sprint(v))
			if !containsString(f.Enum, str) {
				errs = append(errs, generr.FieldError{
					Field:   prefix + f.Name,
					Message: fmt.Sprintf("must be one of %s, got %q", strings.Join(f.Enum, ", "), v),
				})
				if f.Default != nil {
					out[f.Name] = f.Default
				}
				continue
			}
			v = str
		}
		out[f.Name] = v
	}

	return out, errs
}

func coerceField(t FieldType, v any) (any, error) {
	switch t {
	case TypeAny:
		return v, nil

	case TypeString:
		switch x := v.(type) {
		case string:
			return x, nil
		case nil:
			return nil, fmt.Errorf("expected string, got null")
		case []any, map[string]any, Mapping:
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		n, _, err := table.Normalize(v)
		if err != nil {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		return table.Format(n), nil

	case TypeInt:
		switch x := v.(type) {
		case string:
			i, err := strconv.Atoi(strings.TrimSpace(x))
			if err != nil {
				return nil, fmt.Errorf("expected integer, got %q", x)
			}
			return i, nil
		}
		n, kind, err := table.Normalize(v)
		if err != nil {
			return nil, fmt.Errorf("expected integer, got %T", v)
		}
		switch kind {
		case table.KindInt:
			return int(n.(int64)), nil
		case table.KindFloat:
			f := n.(float64)
			if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
				return int(f), nil
			}
			return nil, fmt.Errorf("expected integer, got %v", f)
		}
		return nil, fmt.Errorf("expected integer, got %T", v)

	case TypeFloat:
		if x, ok := v.(string); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
			if err != nil {
				return nil, fmt.Errorf("expected number, got %q", x)
			}
			return f, nil
		}
		n, _, err := table.Normalize(v)
		if err != nil {
			return nil, fmt.Errorf("expected number, got %T", v)
		}
		f, ok := table.AsFloat(n)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("expected number, got %v", v)
		}
		return f, nil

	case TypeBool:
		switch x := v.(type) {
		case bool:
			return x, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(x))
			if err != nil {
				return nil, fmt.Errorf("expected boolean, got %q", x)
			}
			return b, nil
		}
		return nil, fmt.Errorf("expected boolean, got %T", v)

	case TypeList:
		switch x := v.(type) {
		case []any:
			return x, nil
		case []string:
			out := make([]any, len(x))
			for i, s := range x {
				out[i] = s
			}
			return out, nil
		case []map[string]any:
			out := make([]any, len(x))
			for i, m := range x {
				out[i] = m
			}
			return out, nil
		}
		return nil, fmt.Errorf("expected list, got %T", v)

	case TypeMap:
		if m, ok := ToMapping(v); ok {
			return m, nil
		}
		return nil, fmt.Errorf("expected mapping, got %T", v)
	}

	return nil, fmt.Errorf("unknown field type %s", t)
}

// itemParams приводит элемент списка (range) к map для вложенной валидации
func itemParams(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Mapping:
		return m.Map(), true
	}
	return nil, false
}

func containsString(list []string, s string) bool {
	for _, x := range list {
		if strings.EqualFold(x, s) {
			return true
		}
	}
	return false
}
