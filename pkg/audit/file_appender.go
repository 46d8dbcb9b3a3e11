package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileAppender пишет JSON lines с ротацией по размеру
type FileAppender struct {
	mu          sync.Mutex
	file        *os.File
	filePath    string
	maxSize     int64
	maxBackups  int
	currentSize int64
}

// FileAppenderConfig конфигурация FileAppender
type FileAppenderConfig struct {
	FilePath   string
	MaxSize    int64 // байты, 0 = 100 MB
	MaxBackups int   // 0 = 5
}

// NewFileAppender открывает файл журнала на дозапись
func NewFileAppender(config FileAppenderConfig) (*FileAppender, error) {
	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	fa := &FileAppender{
		file:        file,
		filePath:    config.FilePath,
		maxSize:     config.MaxSize,
		maxBackups:  config.MaxBackups,
		currentSize: info.Size(),
	}
	if fa.maxSize <= 0 {
		fa.maxSize = 100 << 20
	}
	if fa.maxBackups <= 0 {
		fa.maxBackups = 5
	}
	return fa, nil
}

// Append записывает одну строку
func (fa *FileAppender) Append(_ context.Context, entry *Entry) error {
	data, err := entry.MarshalLine()
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	fa.mu.Lock()
	defer fa.mu.Unlock()

	if fa.currentSize > 0 && fa.currentSize+int64(len(data)) > fa.maxSize {
		if err := fa.rotate(); err != nil {
			return fmt.Errorf("failed to rotate file: %w", err)
		}
	}

	n, err := fa.file.Write(data)
	fa.currentSize += int64(n)
	if err != nil {
		return fmt.Errorf("failed to write entry: %w", err)
	}
	return nil
}

// rotate сдвигает path.1 ... path.N и открывает новый файл
func (fa *FileAppender) rotate() error {
	if err := fa.file.Close(); err != nil {
		return err
	}

	os.Remove(fmt.Sprintf("%s.%d", fa.filePath, fa.maxBackups))
	for i := fa.maxBackups - 1; i > 0; i-- {
		oldPath := fmt.Sprintf("%s.%d", fa.filePath, i)
		if _, err := os.Stat(oldPath); err == nil {
			os.Rename(oldPath, fmt.Sprintf("%s.%d", fa.filePath, i+1))
		}
	}
	if err := os.Rename(fa.filePath, fa.filePath+".1"); err != nil {
		return err
	}

	file, err := os.OpenFile(fa.filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	fa.file = file
	fa.currentSize = 0
	return nil
}

func (fa *FileAppender) Close() error {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	if fa.file != nil {
		err := fa.file.Close()
		fa.file = nil
		return err
	}
	return nil
}

// FilePath путь к текущему файлу
func (fa *FileAppender) FilePath() string {
	return fa.filePath
}
