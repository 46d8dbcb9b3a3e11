package audit

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// Config секция audit конфигурации
type Config struct {
	Enabled    bool   `yaml:"enabled" json:"enabled"`
	Output     string `yaml:"output" json:"output,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb,omitempty"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups,omitempty"`
	Log        bool   `yaml:"log" json:"log,omitempty"` // дублировать записи в лог
}

// Validate проверяет секцию
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Output == "" && !c.Log {
		return errors.New("audit.output or audit.log is required when audit is enabled")
	}
	if c.MaxSizeMB < 0 || c.MaxBackups < 0 {
		return errors.New("audit.max_size_mb and audit.max_backups must be >= 0")
	}
	return nil
}

// Logger пишет записи синхронно во все appender'ы.
// Ошибки записи не прерывают прогон, они передаются в onError.
type Logger struct {
	mu       sync.Mutex
	appender *MultiAppender
	onError  func(error)
	closed   bool
}

// NewLogger создает Logger
func NewLogger(onError func(error), appenders ...Appender) *Logger {
	return &Logger{appender: NewMultiAppender(appenders...), onError: onError}
}

// New собирает Logger по конфигурации. Для выключенного журнала возвращает nil.
func New(cfg *Config, logger zerolog.Logger) (*Logger, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	var appenders []Appender
	if cfg.Output != "" {
		fa, err := NewFileAppender(FileAppenderConfig{
			FilePath:   cfg.Output,
			MaxSize:    int64(cfg.MaxSizeMB) << 20,
			MaxBackups: cfg.MaxBackups,
		})
		if err != nil {
			return nil, err
		}
		appenders = append(appenders, fa)
	}
	if cfg.Log {
		appenders = append(appenders, NewLogAppender(logger))
	}

	onError := func(err error) { logger.Warn().Err(err).Msg("audit write failed") }
	return NewLogger(onError, appenders...), nil
}

// Log записывает entry. Nil Logger ничего не делает.
func (l *Logger) Log(ctx context.Context, entry *Entry) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	if err := l.appender.Append(ctx, entry); err != nil && l.onError != nil {
		l.onError(err)
	}
}

// Close закрывает appender'ы
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.appender.Close()
}
