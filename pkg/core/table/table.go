// Package table реализует таблицу генератора: фиксированное число строк,
// упорядоченный набор колонок, выровненных по индексу строки.
//
// Таблица создается пустой (все ячейки null), изменяется по шагам,
// затем может быть перемешана, очищена от промежуточных колонок
// и заморожена для выгрузки.
package table

import (
	"fmt"
	"math/rand/v2"

	"github.com/ruslano69/tdtp-datagen/pkg/core/generr"
)

// Reader read-only доступ к таблице.
// Используется масками и стратегиями, которым запрещено менять данные.
type Reader interface {
	Rows() int
	Has(name string) bool
	Populated(name string) bool
	Kind(name string) Kind
	Value(name string, row int) any
	// Values возвращает значения колонки. Срез нельзя изменять.
	Values(name string) ([]any, bool)
}

// ColumnInfo описание колонки
type ColumnInfo struct {
	Name         string
	Kind         Kind
	Populated    bool
	Intermediate bool
}

type column struct {
	ColumnInfo
	values []any
}

// Table таблица генератора
type Table struct {
	rows    int
	columns []*column
	index   map[string]int
	frozen  bool
}

// Compile-time check
var _ Reader = (*Table)(nil)

// New создает таблицу из rows строк с заданными колонками. Все ячейки null.
func New(rows int, names ...string) *Table {
	t := &Table{
		rows:  rows,
		index: make(map[string]int, len(names)),
	}
	for _, name := range names {
		t.Ensure(name)
	}
	return t
}

// Rows возвращает число строк
func (t *Table) Rows() int { return t.rows }

// Names возвращает имена колонок в текущем порядке
func (t *Table) Names() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Schema возвращает описание всех колонок
func (t *Table) Schema() []ColumnInfo {
	info := make([]ColumnInfo, len(t.columns))
	for i, c := range t.columns {
		info[i] = c.ColumnInfo
	}
	return info
}

// Has проверяет наличие колонки
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Populated сообщает, была ли колонка заполнена хотя бы одним шагом
func (t *Table) Populated(name string) bool {
	c := t.col(name)
	return c != nil && c.Populated
}

// Kind возвращает тип колонки
func (t *Table) Kind(name string) Kind {
	if c := t.col(name); c != nil {
		return c.Kind
	}
	return KindNone
}

// Value возвращает значение ячейки (nil для null или неизвестной колонки)
func (t *Table) Value(name string, row int) any {
	c := t.col(name)
	if c == nil || row < 0 || row >= t.rows {
		return nil
	}
	return c.values[row]
}

// Values возвращает значения колонки без копирования
func (t *Table) Values(name string) ([]any, bool) {
	c := t.col(name)
	if c == nil {
		return nil, false
	}
	return c.values, true
}

// IsNull проверяет, пуста ли ячейка
func (t *Table) IsNull(name string, row int) bool {
	return t.Value(name, row) == nil
}

// Ensure добавляет колонку, если ее еще нет
func (t *Table) Ensure(name string) {
	if _, ok := t.index[name]; ok {
		return
	}
	t.index[name] = len(t.columns)
	t.columns = append(t.columns, &column{
		ColumnInfo: ColumnInfo{Name: name},
		values:     make([]any, t.rows),
	})
}

// Set записывает значение в ячейку.
// Тип колонки фиксируется первым не-null значением и далее не меняется.
func (t *Table) Set(name string, row int, v any) error {
	if t.frozen {
		return fmt.Errorf("table is frozen")
	}
	c := t.col(name)
	if c == nil {
		return fmt.Errorf("unknown column %q", name)
	}
	if row < 0 || row >= t.rows {
		return fmt.Errorf("row %d out of range [0,%d)", row, t.rows)
	}

	nv, kind, err := Normalize(v)
	if err != nil {
		return generr.Generation("column %q row %d: %v", name, row, err)
	}
	if nv == nil {
		c.values[row] = nil
		return nil
	}

	if c.Kind == KindNone {
		c.Kind = kind
	} else if kind != c.Kind {
		cv, ok := coerce(nv, kind, c.Kind)
		if !ok {
			return generr.Generation("column %q has dtype %s, cannot store %s value %v", name, c.Kind, kind, v)
		}
		nv = cv
	}
	c.values[row] = nv
	return nil
}

// MarkPopulated отмечает колонку как заполненную
func (t *Table) MarkPopulated(name string, intermediate bool) {
	if c := t.col(name); c != nil {
		c.Populated = true
		c.Intermediate = c.Intermediate || intermediate
	}
}

// Shuffle применяет одну перестановку строк ко всем колонкам.
// perm[i] = индекс исходной строки, которая станет строкой i.
func (t *Table) Shuffle(perm []int) error {
	if t.frozen {
		return fmt.Errorf("table is frozen")
	}
	if len(perm) != t.rows {
		return fmt.Errorf("permutation length %d, expected %d", len(perm), t.rows)
	}
	seen := make([]bool, t.rows)
	for _, p := range perm {
		if p < 0 || p >= t.rows || seen[p] {
			return fmt.Errorf("invalid permutation")
		}
		seen[p] = true
	}

	for _, c := range t.columns {
		shuffled := make([]any, t.rows)
		for i, p := range perm {
			shuffled[i] = c.values[p]
		}
		c.values = shuffled
	}
	return nil
}

// ShuffleRand перемешивает строки случайной перестановкой
func (t *Table) ShuffleRand(rng *rand.Rand) error {
	return t.Shuffle(rng.Perm(t.rows))
}

// DropIntermediate удаляет промежуточные колонки и возвращает их имена
func (t *Table) DropIntermediate() []string {
	var dropped []string
	for _, c := range t.columns {
		if c.Intermediate {
			dropped = append(dropped, c.Name)
		}
	}
	t.Drop(dropped...)
	return dropped
}

// Drop удаляет колонки
func (t *Table) Drop(names ...string) {
	if len(names) == 0 {
		return
	}
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	kept := t.columns[:0]
	for _, c := range t.columns {
		if !drop[c.Name] {
			kept = append(kept, c)
		}
	}
	t.columns = kept
	t.reindex()
}

// Reorder переставляет колонки: сначала перечисленные в order (если есть),
// затем остальные в порядке создания.
func (t *Table) Reorder(order []string) {
	placed := make(map[string]bool, len(order))
	cols := make([]*column, 0, len(t.columns))
	for _, name := range order {
		if c := t.col(name); c != nil && !placed[name] {
			cols = append(cols, c)
			placed[name] = true
		}
	}
	for _, c := range t.columns {
		if !placed[c.Name] {
			cols = append(cols, c)
		}
	}
	t.columns = cols
	t.reindex()
}

// Freeze запрещает дальнейшие изменения
func (t *Table) Freeze() { t.frozen = true }

// Frozen сообщает, заморожена ли таблица
func (t *Table) Frozen() bool { return t.frozen }

// Row возвращает строку в порядке колонок
func (t *Table) Row(i int) []any {
	row := make([]any, len(t.columns))
	for j, c := range t.columns {
		row[j] = c.values[i]
	}
	return row
}

// Slice возвращает строки [from, to)
func (t *Table) Slice(from, to int) [][]any {
	if from < 0 {
		from = 0
	}
	if to > t.rows {
		to = t.rows
	}
	if from >= to {
		return nil
	}
	rows := make([][]any, 0, to-from)
	for i := from; i < to; i++ {
		rows = append(rows, t.Row(i))
	}
	return rows
}

// Records возвращает все строки в виде map колонка → значение
func (t *Table) Records() []map[string]any {
	return ToRecords(t.Names(), t.Slice(0, t.rows))
}

// ToRecords превращает строки в записи
func ToRecords(names []string, rows [][]any) []map[string]any {
	records := make([]map[string]any, len(rows))
	for i, row := range rows {
		rec := make(map[string]any, len(names))
		for j, name := range names {
			rec[name] = row[j]
		}
		records[i] = rec
	}
	return records
}

func (t *Table) col(name string) *column {
	i, ok := t.index[name]
	if !ok {
		return nil
	}
	return t.columns[i]
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.columns))
	for i, c := range t.columns {
		t.index[c.Name] = i
	}
}
