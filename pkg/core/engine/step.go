package engine

import (
	"strings"

	"github.com/ruslano69/tdtp-datagen/pkg/core/generr"
)

// Operation режим записи значений шага
type Operation string

const (
	// OpOverwrite записывает все значения в выбранные строки
	OpOverwrite Operation = "overwrite"
	// OpInsertIfEmpty записывает значения только в пустые ячейки выбранных строк
	OpInsertIfEmpty Operation = "insert_if_empty"
)

// ParseOperation разбирает имя операции. Пустая строка означает overwrite.
func ParseOperation(s string) (Operation, error) {
	switch Operation(strings.ToLower(strings.TrimSpace(s))) {
	case "", OpOverwrite:
		return OpOverwrite, nil
	case OpInsertIfEmpty:
		return OpInsertIfEmpty, nil
	}
	return "", generr.Configuration("unknown operation %q, expected %s or %s", s, OpOverwrite, OpInsertIfEmpty)
}

// Step одна инструкция генерации
type Step struct {
	Names        []string       // целевые колонки
	Strategy     string         // имя стратегии
	Params       map[string]any // параметры стратегии
	Mask         string         // выражение выбора строк, пусто - все строки
	Operation    Operation
	Intermediate bool // колонки нужны только следующим шагам
	Disabled     bool // шаг пропускается целиком
}

// label возвращает краткое описание шага для ошибок и логов
func (s Step) label() string {
	return strings.Join(s.Names, ",") + " <- " + s.Strategy
}
