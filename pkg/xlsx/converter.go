// Package xlsx сохраняет таблицу генератора в Excel и читает ее обратно.
package xlsx

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/ruslano69/tdtp-datagen/pkg/core/table"
)

// DefaultSheet имя листа по умолчанию
const DefaultSheet = "Sheet1"

// Write сохраняет таблицу в XLSX файл.
// Первая строка листа - имена колонок, null записывается пустой ячейкой.
//
// Example:
//
//	err := xlsx.Write(tbl, "users.xlsx", "Users")
func Write(tbl *table.Table, filePath string, sheetName string) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheetName == "" {
		sheetName = DefaultSheet
	}
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if sheetName != DefaultSheet {
		f.DeleteSheet(DefaultSheet)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// потоковая запись: таблица может быть большой
	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create stream writer: %w", err)
	}

	names := tbl.Names()
	if len(names) > 0 {
		if err := sw.SetColWidth(1, len(names), 15); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	header := make([]any, len(names))
	for i, name := range names {
		header[i] = excelize.Cell{StyleID: headerStyle, Value: name}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for r := 0; r < tbl.Rows(); r++ {
		row := tbl.Row(r)
		cells := make([]any, len(row))
		for i, v := range row {
			cells[i] = cellValue(v)
		}
		if err := sw.SetRow("A"+strconv.Itoa(r+2), cells); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if len(names) > 0 {
		if err := f.AutoFilter(sheetName, "A1:"+columnName(len(names))+"1", nil); err != nil {
			return fmt.Errorf("failed to set autofilter: %w", err)
		}
	}

	return f.SaveAs(filePath)
}

// Read читает лист XLSX файла: заголовок и строки как текст
func Read(filePath string, sheetName string) ([]string, [][]string, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("sheet %q is empty", sheetName)
	}

	header := rows[0]
	data := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		// GetRows обрезает пустые ячейки в конце строки
		full := make([]string, len(header))
		copy(full, row)
		data = append(data, full)
	}
	return header, data, nil
}

// cellValue приводит значение таблицы к значению ячейки
func cellValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	default:
		return x
	}
}

// columnName - номер колонки в имя Excel (1 → A, 27 → AA)
func columnName(col int) string {
	name := ""
	for col > 0 {
		col--
		name = string(rune('A'+col%26)) + name
		col /= 26
	}
	return name
}
