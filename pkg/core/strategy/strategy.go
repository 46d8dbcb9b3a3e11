// Package strategy содержит реестр стратегий генерации и их реализации.
//
// Стратегия получает число значений count и возвращает ровно count значений.
// Доступ к уже заполненным колонкам - только на чтение, через Context.
package strategy

import (
	"github.com/ruslano69/tdtp-datagen/pkg/core/generr"
	"github.com/ruslano69/tdtp-datagen/pkg/core/table"
)

// Strategy алгоритм генерации значений одной колонки
type Strategy interface {
	// Generate возвращает ровно count значений
	Generate(ctx *Context, count int) ([]any, error)
}

// Dependent реализуют стратегии, читающие другие колонки.
// target - колонка, которую заполняет шаг.
type Dependent interface {
	Dependencies(target string) []string
}

// Dependencies возвращает колонки, которые стратегия читает
func Dependencies(s Strategy, target string) []string {
	if d, ok := s.(Dependent); ok {
		return d.Dependencies(target)
	}
	return nil
}

// Context контекст вызова стратегии
type Context struct {
	Target string       // заполняемая колонка
	Rows   []int        // индексы выбранных маской строк
	Table  table.Reader // таблица только для чтения
}

// Column возвращает значения колонки для выбранных строк, в порядке Rows
func (c *Context) Column(name string) ([]any, error) {
	if c == nil || c.Table == nil || !c.Table.Has(name) || !c.Table.Populated(name) {
		return nil, generr.Dependency(name, "column %q is not populated yet", name)
	}
	values, _ := c.Table.Values(name)
	out := make([]any, len(c.Rows))
	for i, r := range c.Rows {
		out[i] = values[r]
	}
	return out, nil
}
