package emit

import (
	"context"

	"github.com/ruslano69/tdtp-datagen/pkg/core/strategy"
	"github.com/ruslano69/tdtp-datagen/pkg/core/table"
)

// Metadata описание батча
type Metadata struct {
	Index      int    `json:"batch_index"`
	Total      int    `json:"total_batches"`
	Size       int    `json:"batch_size"`
	Offset     int    `json:"offset"`
	RunID      string `json:"run_id,omitempty"`
	ConfigName string `json:"config_name,omitempty"`
}

// Batch непрерывный срез строк готовой таблицы
type Batch struct {
	Metadata
	Columns []string
	Rows    [][]any
}

// Records возвращает строки батча в виде map колонка → значение
func (b Batch) Records() []map[string]any {
	return table.ToRecords(b.Columns, b.Rows)
}

// OrderedRecords возвращает строки батча с порядком колонок таблицы
func (b Batch) OrderedRecords() []strategy.Mapping {
	return OrderedRecords(b.Columns, b.Rows)
}

// OrderedRecords превращает строки в записи, сохраняя порядок колонок при
// сериализации в JSON
func OrderedRecords(names []string, rows [][]any) []strategy.Mapping {
	records := make([]strategy.Mapping, len(rows))
	for i, row := range rows {
		rec := make(strategy.Mapping, len(names))
		for j, name := range names {
			rec[j] = strategy.MapItem{Key: name, Value: row[j]}
		}
		records[i] = rec
	}
	return records
}

// Sink получатель батчей: потоковый writer или брокер сообщений.
// Временные сбои возвращаются как generr.Publish(name, true, err).
type Sink interface {
	Name() string
	Publish(ctx context.Context, batch Batch) error
}

// Split делит таблицу на батчи не более size строк
func Split(tbl *table.Table, size int) []Batch {
	rows := tbl.Rows()
	total := (rows + size - 1) / size
	columns := tbl.Names()

	batches := make([]Batch, 0, total)
	for i := 0; i < total; i++ {
		from := i * size
		to := min(from+size, rows)
		batches = append(batches, Batch{
			Metadata: Metadata{
				Index:  i,
				Total:  total,
				Size:   to - from,
				Offset: from,
			},
			Columns: columns,
			Rows:    tbl.Slice(from, to),
		})
	}
	return batches
}
