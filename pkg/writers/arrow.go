package writers

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/ruslano69/tdtp-datagen/pkg/core/generr"
	"github.com/ruslano69/tdtp-datagen/pkg/core/strategy"
	"github.com/ruslano69/tdtp-datagen/pkg/core/table"
)

func init() {
	Register("feather", newFeatherWriter)
	Register("parquet", newParquetWriter)
}

// arrowSchema строит схему Arrow по типам колонок. Все поля nullable.
func arrowSchema(tbl *table.Table) *arrow.Schema {
	cols := tbl.Schema()
	fields := make([]arrow.Field, len(cols))
	for i, c := range cols {
		var dt arrow.DataType
		switch c.Kind {
		case table.KindInt:
			dt = arrow.PrimitiveTypes.Int64
		case table.KindFloat:
			dt = arrow.PrimitiveTypes.Float64
		case table.KindBool:
			dt = arrow.FixedWidthTypes.Boolean
		default:
			dt = arrow.BinaryTypes.String
		}
		fields[i] = arrow.Field{Name: c.Name, Type: dt, Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// buildRecord переносит таблицу в один Arrow record
func buildRecord(mem memory.Allocator, tbl *table.Table) arrow.Record {
	schema := arrowSchema(tbl)
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for i, name := range tbl.Names() {
		values, _ := tbl.Values(name)
		switch fb := b.Field(i).(type) {
		case *array.Int64Builder:
			for _, v := range values {
				if v == nil {
					fb.AppendNull()
				} else {
					fb.Append(v.(int64))
				}
			}
		case *array.Float64Builder:
			for _, v := range values {
				if v == nil {
					fb.AppendNull()
				} else {
					fb.Append(v.(float64))
				}
			}
		case *array.BooleanBuilder:
			for _, v := range values {
				if v == nil {
					fb.AppendNull()
				} else {
					fb.Append(v.(bool))
				}
			}
		case *array.StringBuilder:
			for _, v := range values {
				if v == nil {
					fb.AppendNull()
				} else {
					fb.Append(table.Format(v))
				}
			}
		}
	}
	return b.NewRecord()
}

// FeatherWriter пишет Arrow IPC файл (Feather v2).
// params: output_path, compression ("" | lz4 | zstd)
type FeatherWriter struct {
	out         *output
	compression string
}

func newFeatherWriter(p strategy.Params) (Writer, error) {
	out, err := newOutput(p, "feather")
	if err != nil {
		return nil, err
	}
	c := strings.ToLower(p.String("compression"))
	switch c {
	case "", "none", "lz4", "zstd":
	default:
		e := generr.Validation([]generr.FieldError{{Field: "compression", Message: "must be one of none, lz4, zstd"}})
		e.Msg = "invalid parameters for feather writer"
		return nil, e
	}
	return &FeatherWriter{out: out, compression: c}, nil
}

func (w *FeatherWriter) Type() string { return "feather" }

func (w *FeatherWriter) Write(ctx context.Context, tbl *table.Table) error {
	mem := memory.NewGoAllocator()
	rec := buildRecord(mem, tbl)
	defer rec.Release()

	opts := []ipc.Option{ipc.WithSchema(rec.Schema()), ipc.WithAllocator(mem)}
	switch w.compression {
	case "lz4":
		opts = append(opts, ipc.WithLZ4())
	case "zstd":
		opts = append(opts, ipc.WithZstd())
	}

	err := w.out.write(ctx, func(local string) error {
		return createFile(local, func(f *os.File) error {
			fw, err := ipc.NewFileWriter(f, opts...)
			if err != nil {
				return fmt.Errorf("failed to create ipc writer: %w", err)
			}
			if err := fw.Write(rec); err != nil {
				fw.Close()
				return fmt.Errorf("failed to write record: %w", err)
			}
			return fw.Close()
		})
	})
	if err != nil {
		return generr.Writer(w.Type(), err)
	}
	return nil
}

// ParquetWriter params: output_path, compression (snappy | zstd | gzip | none)
type ParquetWriter struct {
	out   *output
	codec compress.Compression
}

func newParquetWriter(p strategy.Params) (Writer, error) {
	out, err := newOutput(p, "parquet")
	if err != nil {
		return nil, err
	}
	w := &ParquetWriter{out: out}
	switch strings.ToLower(p.String("compression")) {
	case "", "snappy":
		w.codec = compress.Codecs.Snappy
	case "zstd":
		w.codec = compress.Codecs.Zstd
	case "gzip":
		w.codec = compress.Codecs.Gzip
	case "none":
		w.codec = compress.Codecs.Uncompressed
	default:
		e := generr.Validation([]generr.FieldError{{Field: "compression", Message: "must be one of snappy, zstd, gzip, none"}})
		e.Msg = "invalid parameters for parquet writer"
		return nil, e
	}
	return w, nil
}

func (w *ParquetWriter) Type() string { return "parquet" }

func (w *ParquetWriter) Write(ctx context.Context, tbl *table.Table) error {
	mem := memory.NewGoAllocator()
	rec := buildRecord(mem, tbl)
	defer rec.Release()

	err := w.out.write(ctx, func(local string) error {
		return createFile(local, func(f *os.File) error {
			props := parquet.NewWriterProperties(parquet.WithCompression(w.codec))
			arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema(), pqarrow.WithAllocator(mem))

			pw, err := pqarrow.NewFileWriter(rec.Schema(), f, props, arrowProps)
			if err != nil {
				return fmt.Errorf("failed to create parquet writer: %w", err)
			}
			if err := pw.Write(rec); err != nil {
				pw.Close()
				return fmt.Errorf("failed to write record: %w", err)
			}
			return pw.Close()
		})
	})
	if err != nil {
		return generr.Writer(w.Type(), err)
	}
	return nil
}
