package writers

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ruslano69/tdtp-datagen/pkg/core/generr"
	"github.com/ruslano69/tdtp-datagen/pkg/core/strategy"
	"github.com/ruslano69/tdtp-datagen/pkg/emit"
)

// StreamSink потоковый файловый sink. Батчи дописываются в файл по мере выгрузки.
type StreamSink interface {
	emit.Sink
	io.Closer
}

// NewSink создает потоковый sink. Поддерживаются csv и jsonl с локальным output_path.
func NewSink(writerType string, params map[string]any) (StreamSink, error) {
	p := strategy.Params(params)
	t := NormalizeType(writerType)
	if t != "csv" && t != "jsonl" {
		return nil, generr.Configuration("writer type %q does not support streaming", writerType)
	}

	path, err := requireString(p, t, "output_path")
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(path, "s3://") {
		return nil, generr.Configuration("streaming %s writer needs a local output_path, got %q", t, path)
	}
	var cw *CSVWriter
	if t == "csv" {
		w, err := newCSVWriter(p)
		if err != nil {
			return nil, err
		}
		cw = w.(*CSVWriter)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, generr.Writer(t, fmt.Errorf("failed to create output directory: %w", err))
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, generr.Writer(t, fmt.Errorf("failed to create file: %w", err))
	}

	s := &fileSink{kind: t, path: path, file: f, buf: bufio.NewWriter(f)}
	if cw != nil {
		s.csv = csv.NewWriter(s.buf)
		s.csv.Comma = cw.delimiter
		s.header = cw.header
	}
	return s, nil
}

type fileSink struct {
	kind   string
	path   string
	file   *os.File
	buf    *bufio.Writer
	csv    *csv.Writer
	header bool

	mu          sync.Mutex
	wroteHeader bool
}

func (s *fileSink) Name() string { return s.kind + ":" + s.path }

// Publish дописывает батч. Ошибки файловой системы фатальны.
func (s *fileSink) Publish(ctx context.Context, batch emit.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	switch s.kind {
	case "csv":
		if s.header && !s.wroteHeader {
			err = s.csv.Write(batch.Columns)
			s.wroteHeader = true
		}
		if err == nil {
			err = writeCSVRows(s.csv, batch.Rows)
		}
		if err == nil {
			s.csv.Flush()
			err = s.csv.Error()
		}
	default:
		err = writeJSONLines(s.buf, batch.Columns, batch.Rows)
	}
	if err == nil {
		err = s.buf.Flush()
	}
	if err != nil {
		return generr.Publish(s.Name(), false, err)
	}
	return nil
}

func (s *fileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.buf.Flush(); err != nil {
		s.file.Close()
		return fmt.Errorf("failed to flush %s: %w", s.path, err)
	}
	return s.file.Close()
}
