// Package writers сохраняет готовую таблицу в файлы и базы данных.
//
// Writer'ы регистрируются по типу в init() и создаются через New:
//
//	w, err := writers.New("CSV_WRITER", params)
//	err = w.Write(ctx, tbl)
package writers

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/ruslano69/tdtp-datagen/pkg/core/generr"
	"github.com/ruslano69/tdtp-datagen/pkg/core/strategy"
	"github.com/ruslano69/tdtp-datagen/pkg/core/table"
)

// Writer сохраняет таблицу целиком. Ошибки возвращаются как generr.Writer.
type Writer interface {
	Write(ctx context.Context, tbl *table.Table) error
	Type() string
}

// Constructor создает writer по параметрам
type Constructor func(p strategy.Params) (Writer, error)

var (
	mu       sync.RWMutex
	registry = make(map[string]Constructor)
)

// aliases дополнительные имена типов
var aliases = map[string]string{
	"excel":      "xlsx",
	"postgresql": "postgres",
	"pg":         "postgres",
	"sqlserver":  "mssql",
	"arrow":      "feather",
	"ipc":        "feather",
	"ndjson":     "jsonl",
}

// Register регистрирует конструктор writer'а
func Register(writerType string, ctor Constructor) {
	mu.Lock()
	defer mu.Unlock()
	registry[NormalizeType(writerType)] = ctor
}

// NormalizeType приводит тип к каноническому виду: "CSV_WRITER" → "csv"
func NormalizeType(writerType string) string {
	t := strings.ToLower(strings.TrimSpace(writerType))
	t = strings.TrimSuffix(t, "_writer")
	if canonical, ok := aliases[t]; ok {
		return canonical
	}
	return t
}

// Types возвращает зарегистрированные типы
func Types() []string {
	mu.RLock()
	defer mu.RUnlock()

	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// New создает writer по типу
func New(writerType string, params map[string]any) (Writer, error) {
	t := NormalizeType(writerType)

	mu.RLock()
	ctor, ok := registry[t]
	mu.RUnlock()
	if !ok {
		return nil, generr.Configuration("unknown writer type %q (available: %s)",
			writerType, strings.Join(Types(), ", "))
	}

	p := strategy.Params(params)
	if p == nil {
		p = strategy.Params{}
	}
	return ctor(p)
}

// requireString возвращает обязательный строковый параметр
func requireString(p strategy.Params, writerType, name string) (string, error) {
	v := strings.TrimSpace(p.String(name))
	if v == "" {
		e := generr.Validation([]generr.FieldError{{Field: name, Message: "required"}})
		e.Msg = "invalid parameters for " + writerType + " writer"
		return "", e
	}
	return v, nil
}
