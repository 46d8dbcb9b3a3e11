package writers

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"html/template"
	"os"

	"github.com/ruslano69/tdtp-datagen/pkg/core/generr"
	"github.com/ruslano69/tdtp-datagen/pkg/core/strategy"
	"github.com/ruslano69/tdtp-datagen/pkg/core/table"
	"github.com/ruslano69/tdtp-datagen/pkg/emit"
	"github.com/ruslano69/tdtp-datagen/pkg/xlsx"
)

func init() {
	Register("csv", newCSVWriter)
	Register("json", newJSONWriter)
	Register("jsonl", newJSONLWriter)
	Register("xlsx", newExcelWriter)
	Register("html", newHTMLWriter)
}

// CSVWriter params: output_path, delimiter (","), header (true)
type CSVWriter struct {
	out       *output
	delimiter rune
	header    bool
}

func newCSVWriter(p strategy.Params) (Writer, error) {
	out, err := newOutput(p, "csv")
	if err != nil {
		return nil, err
	}
	w := &CSVWriter{out: out, delimiter: ',', header: true}
	if d := p.String("delimiter"); d != "" {
		r := []rune(d)
		if len(r) != 1 {
			e := generr.Validation([]generr.FieldError{{Field: "delimiter", Message: "must be a single character"}})
			e.Msg = "invalid parameters for csv writer"
			return nil, e
		}
		w.delimiter = r[0]
	}
	if p.Has("header") {
		w.header = p.Bool("header")
	}
	return w, nil
}

func (w *CSVWriter) Type() string { return "csv" }

func (w *CSVWriter) Write(ctx context.Context, tbl *table.Table) error {
	err := w.out.write(ctx, func(local string) error {
		return createFile(local, func(f *os.File) error {
			cw := csv.NewWriter(f)
			cw.Comma = w.delimiter
			if w.header {
				if err := cw.Write(tbl.Names()); err != nil {
					return err
				}
			}
			if err := writeCSVRows(cw, tbl.Slice(0, tbl.Rows())); err != nil {
				return err
			}
			cw.Flush()
			return cw.Error()
		})
	})
	if err != nil {
		return generr.Writer(w.Type(), err)
	}
	return nil
}

func writeCSVRows(cw *csv.Writer, rows [][]any) error {
	record := make([]string, 0)
	for _, row := range rows {
		record = record[:0]
		for _, v := range row {
			record = append(record, table.Format(v))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	return nil
}

// JSONWriter пишет массив записей. params: output_path, indent (false)
type JSONWriter struct {
	out    *output
	indent bool
}

func newJSONWriter(p strategy.Params) (Writer, error) {
	out, err := newOutput(p, "json")
	if err != nil {
		return nil, err
	}
	return &JSONWriter{out: out, indent: p.Bool("indent")}, nil
}

func (w *JSONWriter) Type() string { return "json" }

func (w *JSONWriter) Write(ctx context.Context, tbl *table.Table) error {
	err := w.out.write(ctx, func(local string) error {
		return createFile(local, func(f *os.File) error {
			enc := json.NewEncoder(f)
			if w.indent {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(emit.OrderedRecords(tbl.Names(), tbl.Slice(0, tbl.Rows())))
		})
	})
	if err != nil {
		return generr.Writer(w.Type(), err)
	}
	return nil
}

// JSONLWriter пишет по записи на строку. params: output_path
type JSONLWriter struct {
	out *output
}

func newJSONLWriter(p strategy.Params) (Writer, error) {
	out, err := newOutput(p, "jsonl")
	if err != nil {
		return nil, err
	}
	return &JSONLWriter{out: out}, nil
}

func (w *JSONLWriter) Type() string { return "jsonl" }

func (w *JSONLWriter) Write(ctx context.Context, tbl *table.Table) error {
	err := w.out.write(ctx, func(local string) error {
		return createFile(local, func(f *os.File) error {
			bw := bufio.NewWriter(f)
			if err := writeJSONLines(bw, tbl.Names(), tbl.Slice(0, tbl.Rows())); err != nil {
				return err
			}
			return bw.Flush()
		})
	})
	if err != nil {
		return generr.Writer(w.Type(), err)
	}
	return nil
}

func writeJSONLines(bw *bufio.Writer, names []string, rows [][]any) error {
	enc := json.NewEncoder(bw)
	for _, rec := range emit.OrderedRecords(names, rows) {
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}

// ExcelWriter params: output_path, sheet_name
type ExcelWriter struct {
	out   *output
	sheet string
}

func newExcelWriter(p strategy.Params) (Writer, error) {
	out, err := newOutput(p, "xlsx")
	if err != nil {
		return nil, err
	}
	return &ExcelWriter{out: out, sheet: p.String("sheet_name")}, nil
}

func (w *ExcelWriter) Type() string { return "xlsx" }

func (w *ExcelWriter) Write(ctx context.Context, tbl *table.Table) error {
	err := w.out.write(ctx, func(local string) error {
		return xlsx.Write(tbl, local, w.sheet)
	})
	if err != nil {
		return generr.Writer(w.Type(), err)
	}
	return nil
}

var htmlTemplate = template.Must(template.New("table").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
table { border-collapse: collapse; font-family: sans-serif; font-size: 13px; }
th { background: #4472C4; color: #fff; }
th, td { border: 1px solid #ccc; padding: 4px 8px; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<table>
<thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</tbody>
</table>
</body>
</html>
`))

// HTMLWriter params: output_path, title
type HTMLWriter struct {
	out   *output
	title string
}

func newHTMLWriter(p strategy.Params) (Writer, error) {
	out, err := newOutput(p, "html")
	if err != nil {
		return nil, err
	}
	title := p.String("title")
	if title == "" {
		title = "Generated data"
	}
	return &HTMLWriter{out: out, title: title}, nil
}

func (w *HTMLWriter) Type() string { return "html" }

func (w *HTMLWriter) Write(ctx context.Context, tbl *table.Table) error {
	rows := make([][]string, tbl.Rows())
	for i := range rows {
		row := tbl.Row(i)
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = table.Format(v)
		}
		rows[i] = cells
	}

	err := w.out.write(ctx, func(local string) error {
		return createFile(local, func(f *os.File) error {
			return htmlTemplate.Execute(f, struct {
				Title   string
				Columns []string
				Rows    [][]string
			}{w.title, tbl.Names(), rows})
		})
	})
	if err != nil {
		return generr.Writer(w.Type(), err)
	}
	return nil
}
