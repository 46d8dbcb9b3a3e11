package retry

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DLQEntry батч, который не удалось опубликовать
type DLQEntry struct {
	ID         string           `json:"id"`
	Timestamp  time.Time        `json:"timestamp"`
	RunID      string           `json:"run_id,omitempty"`
	Sink       string           `json:"sink"`
	BatchIndex int              `json:"batch_index"`
	Offset     int              `json:"offset"`
	Attempts   int              `json:"attempts"`
	LastError  string           `json:"last_error"`
	Columns    []string         `json:"columns,omitempty"`
	Rows       []map[string]any `json:"rows,omitempty"`
}

// DLQ dead-letter очередь в JSON-файле
type DLQ struct {
	mu      sync.RWMutex
	path    string
	maxSize int
	entries []DLQEntry
}

// NewDLQ открывает DLQ. Существующий файл загружается.
func NewDLQ(path string, maxSize int) (*DLQ, error) {
	d := &DLQ{path: path, maxSize: maxSize}

	if _, err := os.Stat(path); err == nil {
		if err := d.Load(); err != nil {
			return nil, fmt.Errorf("failed to load DLQ: %w", err)
		}
	}
	return d, nil
}

// Add добавляет запись и сразу сохраняет файл
func (d *DLQ) Add(entry DLQEntry) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	d.entries = append(d.entries, entry)

	if d.maxSize > 0 && len(d.entries) > d.maxSize {
		d.entries = d.entries[len(d.entries)-d.maxSize:]
	}
	return d.saveUnsafe()
}

// Entries возвращает копию всех записей
func (d *DLQ) Entries() []DLQEntry {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]DLQEntry, len(d.entries))
	copy(result, d.entries)
	return result
}

// Size возвращает количество записей
func (d *DLQ) Size() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}

// Clear очищает DLQ
func (d *DLQ) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.entries = nil
	return d.saveUnsafe()
}

// Save сохраняет DLQ в файл
func (d *DLQ) Save() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.saveUnsafe()
}

func (d *DLQ) saveUnsafe() error {
	entries := d.entries
	if entries == nil {
		entries = []DLQEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal DLQ: %w", err)
	}
	if err := os.WriteFile(d.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write DLQ file: %w", err)
	}
	return nil
}

// Load загружает DLQ из файла
func (d *DLQ) Load() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	data, err := os.ReadFile(d.path)
	if err != nil {
		return fmt.Errorf("failed to read DLQ file: %w", err)
	}

	var entries []DLQEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("failed to unmarshal DLQ: %w", err)
	}
	d.entries = entries
	return nil
}
