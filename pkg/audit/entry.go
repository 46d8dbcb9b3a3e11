// Package audit ведет журнал операций прогона: генерация, запись файлов,
// отправка батчей, публикация результата.
package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Operation тип операции
type Operation string

const (
	OpGenerate      Operation = "generate"
	OpWrite         Operation = "write"
	OpEmit          Operation = "emit"
	OpPublishResult Operation = "publish_result"
)

// Status статус выполнения операции
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Entry запись журнала
type Entry struct {
	ID           string         `json:"id"`
	Timestamp    time.Time      `json:"timestamp"`
	RunID        string         `json:"run_id,omitempty"`
	Config       string         `json:"config,omitempty"`
	Operation    Operation      `json:"operation"`
	Status       Status         `json:"status"`
	Target       string         `json:"target,omitempty"`
	Records      int64          `json:"records,omitempty"`
	Duration     time.Duration  `json:"duration,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// NewEntry создает запись. err != nil дает статус failure.
func NewEntry(op Operation, err error) *Entry {
	e := &Entry{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Operation: op,
		Status:    StatusSuccess,
	}
	if err != nil {
		e.Status = StatusFailure
		e.ErrorMessage = err.Error()
	}
	return e
}

func (e *Entry) WithRun(runID, config string) *Entry {
	e.RunID = runID
	e.Config = config
	return e
}

func (e *Entry) WithTarget(target string) *Entry {
	e.Target = target
	return e
}

func (e *Entry) WithRecords(n int) *Entry {
	e.Records = int64(n)
	return e
}

func (e *Entry) WithDuration(d time.Duration) *Entry {
	e.Duration = d
	return e
}

func (e *Entry) WithMetadata(key string, value any) *Entry {
	if e.Metadata == nil {
		e.Metadata = make(map[string]any)
	}
	e.Metadata[key] = value
	return e
}

// String однострочное представление для текстового журнала
func (e *Entry) String() string {
	s := fmt.Sprintf("[%s] %s %s", e.Timestamp.Format(time.RFC3339), e.Operation, e.Status)
	if e.Target != "" {
		s += " target=" + e.Target
	}
	if e.Records > 0 {
		s += fmt.Sprintf(" records=%d", e.Records)
	}
	if e.ErrorMessage != "" {
		s += " error=" + e.ErrorMessage
	}
	return s
}

// MarshalLine JSON без отступов с переводом строки
func (e *Entry) MarshalLine() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
