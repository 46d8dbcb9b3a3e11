package audit

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestEntry_Builder(t *testing.T) {
	e := NewEntry(OpWrite, nil).
		WithRun("run-1", "users").
		WithTarget("csv").
		WithRecords(10).
		WithDuration(time.Second).
		WithMetadata("path", "out.csv")

	if e.ID == "" || e.Status != StatusSuccess || e.Records != 10 || e.Metadata["path"] != "out.csv" {
		t.Errorf("entry = %+v", e)
	}
	if !strings.Contains(e.String(), "write success target=csv records=10") {
		t.Errorf("String() = %s", e.String())
	}

	failed := NewEntry(OpEmit, errors.New("broker down"))
	if failed.Status != StatusFailure || failed.ErrorMessage != "broker down" {
		t.Errorf("failed entry = %+v", failed)
	}
}

func readLines(t *testing.T, path string) []Entry {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var entries []Entry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		entries = append(entries, e)
	}
	return entries
}

func TestFileAppender_Write(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "audit.jsonl")
	fa, err := NewFileAppender(FileAppenderConfig{FilePath: path})
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	for _, op := range []Operation{OpGenerate, OpWrite} {
		if err := fa.Append(ctx, NewEntry(op, nil)); err != nil {
			t.Fatal(err)
		}
	}
	if err := fa.Close(); err != nil {
		t.Fatal(err)
	}

	entries := readLines(t, path)
	if len(entries) != 2 || entries[0].Operation != OpGenerate || entries[1].Operation != OpWrite {
		t.Errorf("entries = %+v", entries)
	}

	// повторное открытие дописывает
	fa, _ = NewFileAppender(FileAppenderConfig{FilePath: path})
	fa.Append(ctx, NewEntry(OpEmit, nil))
	fa.Close()
	if n := len(readLines(t, path)); n != 3 {
		t.Errorf("entries after reopen = %d, want 3", n)
	}
}

func TestFileAppender_Rotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	fa, err := NewFileAppender(FileAppenderConfig{FilePath: path, MaxSize: 300, MaxBackups: 2})
	if err != nil {
		t.Fatal(err)
	}
	defer fa.Close()

	for i := 0; i < 10; i++ {
		if err := fa.Append(context.Background(), NewEntry(OpWrite, nil).WithTarget("csv")); err != nil {
			t.Fatal(err)
		}
	}

	for _, p := range []string{path, path + ".1", path + ".2"} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("%s: %v", filepath.Base(p), err)
		}
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Error("backups beyond max_backups must be removed")
	}
}

func TestLogAppender(t *testing.T) {
	var buf bytes.Buffer
	la := NewLogAppender(zerolog.New(&buf))
	la.Append(context.Background(), NewEntry(OpEmit, errors.New("timeout")).WithTarget("redis:users"))

	out := buf.String()
	if !strings.Contains(out, `"level":"warn"`) || !strings.Contains(out, `"target":"redis:users"`) || !strings.Contains(out, `"error":"timeout"`) {
		t.Errorf("log = %s", out)
	}
}

type failingAppender struct{ closed bool }

func (f *failingAppender) Append(context.Context, *Entry) error { return errors.New("disk full") }
func (f *failingAppender) Close() error                         { f.closed = true; return nil }

func TestLogger(t *testing.T) {
	var reported []error
	bad := &failingAppender{}
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	fa, _ := NewFileAppender(FileAppenderConfig{FilePath: path})

	l := NewLogger(func(err error) { reported = append(reported, err) }, bad, fa)
	l.Log(context.Background(), NewEntry(OpGenerate, nil))

	if len(reported) != 1 {
		t.Errorf("reported errors = %v", reported)
	}
	if len(readLines(t, path)) != 1 {
		t.Error("healthy appender must still receive the entry")
	}

	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	if !bad.closed {
		t.Error("appenders not closed")
	}
	l.Log(context.Background(), NewEntry(OpWrite, nil)) // после Close игнорируется

	var nilLogger *Logger
	nilLogger.Log(context.Background(), NewEntry(OpWrite, nil))
	if err := nilLogger.Close(); err != nil {
		t.Error(err)
	}
}

func TestNew(t *testing.T) {
	l, err := New(&Config{Enabled: false}, zerolog.Nop())
	if err != nil || l != nil {
		t.Errorf("disabled audit = %v, %v", l, err)
	}

	path := filepath.Join(t.TempDir(), "a.jsonl")
	l, err = New(&Config{Enabled: true, Output: path, Log: true}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	l.Log(context.Background(), NewEntry(OpGenerate, nil))
	l.Close()
	if len(readLines(t, path)) != 1 {
		t.Error("entry not written")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		cfg     Config
		wantErr bool
	}{
		{Config{}, false},
		{Config{Enabled: true, Output: "a.jsonl"}, false},
		{Config{Enabled: true, Log: true}, false},
		{Config{Enabled: true}, true},
		{Config{Enabled: true, Output: "a", MaxSizeMB: -1}, true},
	}
	for i, tt := range tests {
		if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
			t.Errorf("case %d: Validate() = %v, wantErr %v", i, err, tt.wantErr)
		}
	}
}
