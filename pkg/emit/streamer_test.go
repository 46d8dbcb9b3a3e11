package emit

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ruslano69/tdtp-datagen/pkg/core/generr"
	"github.com/ruslano69/tdtp-datagen/pkg/core/table"
	"github.com/ruslano69/tdtp-datagen/pkg/resilience"
	"github.com/ruslano69/tdtp-datagen/pkg/retry"
)

// fakeSink запоминает батчи и падает по сценарию
type fakeSink struct {
	name    string
	batches []Batch
	calls   int
	fail    func(call int, b Batch) error
}

func (f *fakeSink) Name() string { return f.name }

func (f *fakeSink) Publish(ctx context.Context, b Batch) error {
	f.calls++
	if f.fail != nil {
		if err := f.fail(f.calls, b); err != nil {
			return err
		}
	}
	f.batches = append(f.batches, b)
	return nil
}

func frozenTable(t *testing.T, rows int) *table.Table {
	t.Helper()
	tbl := table.New(rows, "id", "name")
	for i := 0; i < rows; i++ {
		if err := tbl.Set("id", i, int64(i+1)); err != nil {
			t.Fatal(err)
		}
		if err := tbl.Set("name", i, "user"); err != nil {
			t.Fatal(err)
		}
	}
	tbl.MarkPopulated("id", false)
	tbl.MarkPopulated("name", false)
	tbl.Freeze()
	return tbl
}

func newStreamer(t *testing.T, opts ...Option) *Streamer {
	t.Helper()
	base := []Option{
		WithLogger(zerolog.Nop()),
		WithRunID("run-1"),
		WithConfigName("users"),
		WithRetry(retry.Config{MaxRetries: 2, Delay: time.Millisecond}),
	}
	s, err := NewStreamer(append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewStreamer: %v", err)
	}
	return s
}

func TestSplit(t *testing.T) {
	tests := []struct {
		rows, size int
		sizes      []int
	}{
		{10, 3, []int{3, 3, 3, 1}},
		{10, 5, []int{5, 5}},
		{10, 100, []int{10}},
		{1, 1, []int{1}},
	}

	for _, tt := range tests {
		batches := Split(frozenTable(t, tt.rows), tt.size)
		if len(batches) != len(tt.sizes) {
			t.Fatalf("rows=%d size=%d: got %d batches, want %d", tt.rows, tt.size, len(batches), len(tt.sizes))
		}
		offset := 0
		for i, b := range batches {
			if b.Index != i || b.Total != len(tt.sizes) || b.Size != tt.sizes[i] || b.Offset != offset {
				t.Errorf("batch %d metadata = %+v", i, b.Metadata)
			}
			if len(b.Rows) != b.Size {
				t.Errorf("batch %d has %d rows, size %d", i, len(b.Rows), b.Size)
			}
			offset += b.Size
		}
	}
}

func TestEmit_AllBatchesInOrder(t *testing.T) {
	s := newStreamer(t)
	first := &fakeSink{name: "first"}
	second := &fakeSink{name: "second"}

	report, err := s.Emit(context.Background(), frozenTable(t, 7), []Sink{first, second}, 3)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}

	if report.Batches != 3 || report.Total != 3 || report.Rows != 7 || report.Retries != 0 {
		t.Errorf("Unexpected report: %+v", report)
	}
	for _, sink := range []*fakeSink{first, second} {
		if len(sink.batches) != 3 {
			t.Fatalf("%s got %d batches", sink.name, len(sink.batches))
		}
		for i, b := range sink.batches {
			if b.Index != i {
				t.Errorf("%s: batch %d arrived at position %d", sink.name, b.Index, i)
			}
			if b.RunID != "run-1" || b.ConfigName != "users" {
				t.Errorf("metadata not attached: %+v", b.Metadata)
			}
		}
		if r := report.Sinks[sink.name]; r.Batches != 3 || r.Rows != 7 {
			t.Errorf("%s report = %+v", sink.name, r)
		}
	}

	last := first.batches[2]
	rec := last.Records()[0]
	if rec["id"] != int64(7) || rec["name"] != "user" {
		t.Errorf("Unexpected last record: %v", rec)
	}
}

func TestEmit_TransientRetried(t *testing.T) {
	s := newStreamer(t)
	sink := &fakeSink{name: "kafka", fail: func(call int, b Batch) error {
		if call == 1 {
			return generr.Publish("kafka", true, errors.New("leader not available"))
		}
		return nil
	}}

	report, err := s.Emit(context.Background(), frozenTable(t, 4), []Sink{sink}, 2)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if report.Retries != 1 || report.Sinks["kafka"].Retries != 1 {
		t.Errorf("Expected 1 retry, got %+v", report)
	}
	if len(sink.batches) != 2 {
		t.Errorf("Expected 2 delivered batches, got %d", len(sink.batches))
	}
}

func TestEmit_FatalAbortsRemaining(t *testing.T) {
	s := newStreamer(t)
	sink := &fakeSink{name: "csv", fail: func(call int, b Batch) error {
		if b.Index == 1 {
			return generr.Publish("csv", false, errors.New("disk full"))
		}
		return nil
	}}

	report, err := s.Emit(context.Background(), frozenTable(t, 6), []Sink{sink}, 2)
	if !errors.Is(err, generr.ErrPublish) || generr.IsTransient(err) {
		t.Fatalf("Expected fatal PublishError, got %v", err)
	}
	if sink.calls != 2 {
		t.Errorf("Fatal error must not be retried and must abort emission, calls = %d", sink.calls)
	}
	if report.Batches != 1 {
		t.Errorf("Expected 1 emitted batch before failure, got %d", report.Batches)
	}
}

func TestEmit_ExhaustionIsFatal(t *testing.T) {
	dlqPath := filepath.Join(t.TempDir(), "dlq.json")
	s := newStreamer(t, WithRetry(retry.Config{MaxRetries: 2, Delay: time.Millisecond, DLQPath: dlqPath}))
	sink := &fakeSink{name: "rabbitmq", fail: func(call int, b Batch) error {
		return generr.Publish("rabbitmq", true, errors.New("connection refused"))
	}}

	report, err := s.Emit(context.Background(), frozenTable(t, 3), []Sink{sink}, 10)
	if !errors.Is(err, retry.ErrExhausted) {
		t.Fatalf("Expected exhaustion, got %v", err)
	}
	if generr.IsTransient(err) {
		t.Error("Exhaustion must escalate to a fatal error")
	}
	if sink.calls != 3 {
		t.Errorf("Expected 3 attempts, got %d", sink.calls)
	}
	if report.Retries != 2 {
		t.Errorf("Expected 2 retries, got %d", report.Retries)
	}

	dlq, err := retry.NewDLQ(dlqPath, 0)
	if err != nil {
		t.Fatalf("NewDLQ: %v", err)
	}
	entries := dlq.Entries()
	if len(entries) != 1 || entries[0].Sink != "rabbitmq" || len(entries[0].Rows) != 3 {
		t.Errorf("Unexpected dead-letter entries: %+v", entries)
	}
}

func TestEmit_PlainErrorIsFatal(t *testing.T) {
	s := newStreamer(t)
	sink := &fakeSink{name: "plain", fail: func(call int, b Batch) error {
		return errors.New("boom")
	}}

	_, err := s.Emit(context.Background(), frozenTable(t, 2), []Sink{sink}, 1)
	if !errors.Is(err, generr.ErrPublish) {
		t.Fatalf("Expected PublishError, got %v", err)
	}
	if sink.calls != 1 {
		t.Errorf("Expected no retries, got %d calls", sink.calls)
	}
}

func TestEmit_OpenCircuitIsFatal(t *testing.T) {
	s := newStreamer(t,
		WithRetry(retry.Config{MaxRetries: 5, Delay: time.Millisecond}),
		WithBreaker(2, time.Hour),
	)
	sink := &fakeSink{name: "redis", fail: func(call int, b Batch) error {
		return generr.Publish("redis", true, errors.New("timeout"))
	}}

	_, err := s.Emit(context.Background(), frozenTable(t, 2), []Sink{sink}, 1)
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("Expected open circuit, got %v", err)
	}
	if sink.calls != 2 {
		t.Errorf("Open circuit must stop calls to the sink, calls = %d", sink.calls)
	}
}

func TestEmit_Canceled(t *testing.T) {
	s := newStreamer(t)
	ctx, cancel := context.WithCancel(context.Background())
	sink := &fakeSink{name: "jsonl", fail: func(call int, b Batch) error {
		cancel()
		return nil
	}}

	report, err := s.Emit(ctx, frozenTable(t, 5), []Sink{sink}, 1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if report.Batches != 1 || len(sink.batches) != 1 {
		t.Errorf("Delivered batch must be kept, report = %+v", report)
	}
}

func TestEmit_InvalidInput(t *testing.T) {
	s := newStreamer(t)

	if _, err := s.Emit(context.Background(), frozenTable(t, 2), nil, 0); !errors.Is(err, generr.ErrConfiguration) {
		t.Errorf("batch_size 0: expected ConfigurationError, got %v", err)
	}

	open := table.New(2, "id")
	if _, err := s.Emit(context.Background(), open, nil, 1); !errors.Is(err, generr.ErrConfiguration) {
		t.Errorf("unfrozen table: expected ConfigurationError, got %v", err)
	}
}

func TestNewStreamer_InvalidRetry(t *testing.T) {
	_, err := NewStreamer(WithRetry(retry.Config{Backoff: "random"}))
	if !errors.Is(err, generr.ErrConfiguration) {
		t.Errorf("Expected ConfigurationError, got %v", err)
	}
}
