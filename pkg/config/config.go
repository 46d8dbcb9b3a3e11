// Package config описывает конфигурацию прогона генерации: шаги, writers,
// потоковую отправку и публикацию результата.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ruslano69/tdtp-datagen/pkg/audit"
	"github.com/ruslano69/tdtp-datagen/pkg/brokers"
	"github.com/ruslano69/tdtp-datagen/pkg/core/engine"
	"github.com/ruslano69/tdtp-datagen/pkg/core/generr"
	"github.com/ruslano69/tdtp-datagen/pkg/resultlog"
	"github.com/ruslano69/tdtp-datagen/pkg/retry"
	"github.com/ruslano69/tdtp-datagen/pkg/writers"
)

// Config полная конфигурация одного прогона
type Config struct {
	Metadata    Metadata          `yaml:"metadata" json:"metadata"`
	NumOfRows   int               `yaml:"num_of_rows" json:"num_of_rows"`
	Shuffle     bool              `yaml:"shuffle" json:"shuffle"`
	Seed        *uint64           `yaml:"seed" json:"seed,omitempty"`
	WriteOutput *bool             `yaml:"write_output" json:"write_output,omitempty"`
	ColumnName  []string          `yaml:"column_name" json:"column_name"`
	Configs     []StepConfig      `yaml:"configs" json:"configs"`
	FileWriter  []WriterConfig    `yaml:"file_writer" json:"file_writer,omitempty"`
	Stream      *StreamConfig     `yaml:"stream" json:"stream,omitempty"`
	ResultLog   *resultlog.Config `yaml:"result_log" json:"result_log,omitempty"`
	Audit       *audit.Config     `yaml:"audit" json:"audit,omitempty"`
}

// Metadata описание конфигурации
type Metadata struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description,omitempty"`
}

// StepConfig один шаг генерации
type StepConfig struct {
	Names        []string       `yaml:"names" json:"names"`
	Strategy     StrategyConfig `yaml:"strategy" json:"strategy"`
	Mask         string         `yaml:"mask" json:"mask,omitempty"`
	Operation    string         `yaml:"operation" json:"operation,omitempty"`
	Intermediate bool           `yaml:"intermediate" json:"intermediate,omitempty"`
	Disabled     bool           `yaml:"disabled" json:"disabled,omitempty"`
}

// StrategyConfig ссылка на стратегию
type StrategyConfig struct {
	Name   string `yaml:"name" json:"name"`
	Params Params `yaml:"params" json:"params,omitempty"`
	Unique bool   `yaml:"unique" json:"unique,omitempty"`
}

// WriterConfig файловый writer
type WriterConfig struct {
	Type   string `yaml:"type" json:"type"`
	Params Params `yaml:"params" json:"params,omitempty"`
}

// StreamConfig потоковая отправка батчей
type StreamConfig struct {
	BatchSize      int              `yaml:"batch_size" json:"batch_size"`
	MaxRetries     *int             `yaml:"max_retries" json:"max_retries,omitempty"`
	RetryDelay     time.Duration    `yaml:"retry_delay" json:"retry_delay,omitempty"`
	MaxDelay       time.Duration    `yaml:"max_delay" json:"max_delay,omitempty"`
	Backoff        string           `yaml:"backoff" json:"backoff,omitempty"`
	Jitter         float64          `yaml:"jitter" json:"jitter,omitempty"`
	DLQPath        string           `yaml:"dlq_path" json:"dlq_path,omitempty"`
	DLQMaxSize     int              `yaml:"dlq_max_size" json:"dlq_max_size,omitempty"`
	CircuitBreaker BreakerConfig    `yaml:"circuit_breaker" json:"circuit_breaker"`
	Compression    string           `yaml:"compression" json:"compression,omitempty"`
	Brokers        []brokers.Config `yaml:"brokers" json:"brokers,omitempty"`
	Writers        []WriterConfig   `yaml:"writers" json:"writers,omitempty"`
}

// BreakerConfig circuit breaker каждого sink'а
type BreakerConfig struct {
	MaxFailures uint32        `yaml:"max_failures" json:"max_failures"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
}

// Значения по умолчанию
const (
	DefaultBatchSize   = 1000
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = time.Second
	DefaultMaxFailures = 5
	DefaultOpenTimeout = 30 * time.Second
	DefaultResultTTL   = 3600
)

// LoadConfig читает конфигурацию из YAML или JSON файла
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, generr.Configuration("failed to read config file: %v", err)
	}
	return Parse(data)
}

// Parse разбирает, проверяет и дополняет значениями по умолчанию.
// JSON читается тем же парсером: это валидный YAML.
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(expandEnv(data), &config); err != nil {
		return nil, generr.Configuration("failed to parse config: %v", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.SetDefaults()
	return &config, nil
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv подставляет только ${VAR}: одиночный $ встречается в масках и шаблонах
func expandEnv(data []byte) []byte {
	return envRef.ReplaceAllFunc(data, func(m []byte) []byte {
		return []byte(os.Getenv(string(m[2 : len(m)-1])))
	})
}

// Validate проверяет конфигурацию. Нулевые значения допустимы там,
// где SetDefaults подставит значение по умолчанию.
func (c *Config) Validate() error {
	if c.NumOfRows < 1 {
		return generr.Configuration("num_of_rows must be at least 1, got %d", c.NumOfRows)
	}
	if len(c.Configs) == 0 {
		return generr.Configuration("at least one entry in configs is required")
	}

	seen := make(map[string]bool, len(c.ColumnName))
	for _, name := range c.ColumnName {
		if strings.TrimSpace(name) == "" {
			return generr.Configuration("column_name contains an empty name")
		}
		if seen[name] {
			return generr.Configuration("column_name contains duplicate %q", name)
		}
		seen[name] = true
	}

	for i, st := range c.Configs {
		if err := st.Validate(); err != nil {
			return wrapf(err, "configs[%d]", i)
		}
	}
	for i, w := range c.FileWriter {
		if err := w.Validate(); err != nil {
			return wrapf(err, "file_writer[%d]", i)
		}
	}
	if c.Stream != nil {
		if err := c.Stream.Validate(); err != nil {
			return wrapf(err, "stream")
		}
	}
	if c.ResultLog != nil {
		if err := c.ResultLog.Validate(); err != nil {
			return generr.Configuration("result_log: %v", err)
		}
	}
	if c.Audit != nil {
		if err := c.Audit.Validate(); err != nil {
			return generr.Configuration("%v", err)
		}
	}
	return nil
}

// Validate проверяет шаг без создания стратегии
func (s *StepConfig) Validate() error {
	if len(s.Names) == 0 {
		return generr.Configuration("names is required")
	}
	for _, n := range s.Names {
		if strings.TrimSpace(n) == "" {
			return generr.Configuration("names contains an empty name")
		}
	}
	if strings.TrimSpace(s.Strategy.Name) == "" {
		return generr.Configuration("strategy.name is required")
	}
	if _, err := engine.ParseOperation(s.Operation); err != nil {
		return err
	}
	return nil
}

// Validate проверяет тип writer'а
func (w *WriterConfig) Validate() error {
	t := writers.NormalizeType(w.Type)
	if t == "" {
		return generr.Configuration("type is required")
	}
	for _, known := range writers.Types() {
		if known == t {
			return nil
		}
	}
	return generr.Configuration("unknown writer type %q (available: %s)", w.Type, strings.Join(writers.Types(), ", "))
}

// Validate проверяет параметры потоковой отправки
func (s *StreamConfig) Validate() error {
	if s.BatchSize < 0 {
		return generr.Configuration("batch_size must be at least 1, got %d", s.BatchSize)
	}
	if s.MaxRetries != nil && *s.MaxRetries < 0 {
		return generr.Configuration("max_retries must be >= 0, got %d", *s.MaxRetries)
	}
	if _, err := retry.ParseBackoff(s.Backoff); err != nil {
		return generr.Configuration("%v", err)
	}
	if s.Jitter < 0 || s.Jitter > 1 {
		return generr.Configuration("jitter must be between 0.0 and 1.0, got %v", s.Jitter)
	}
	switch s.Compression {
	case "", "none", "zstd":
	default:
		return generr.Configuration("unsupported compression %q (supported: none, zstd)", s.Compression)
	}
	for i, b := range s.Brokers {
		if _, err := brokers.New(b); err != nil {
			return generr.Configuration("brokers[%d]: %v", i, err)
		}
	}
	for i, w := range s.Writers {
		if t := writers.NormalizeType(w.Type); t != "csv" && t != "jsonl" {
			return generr.Configuration("writers[%d]: writer type %q does not support streaming", i, w.Type)
		}
	}
	if len(s.Brokers) == 0 && len(s.Writers) == 0 {
		return generr.Configuration("at least one broker or streaming writer is required")
	}
	return nil
}

// SetDefaults подставляет значения по умолчанию
func (c *Config) SetDefaults() {
	if c.Stream != nil {
		s := c.Stream
		if s.BatchSize == 0 {
			s.BatchSize = DefaultBatchSize
		}
		if s.MaxRetries == nil {
			n := DefaultMaxRetries
			s.MaxRetries = &n
		}
		if s.RetryDelay == 0 {
			s.RetryDelay = DefaultRetryDelay
		}
		if s.Backoff == "" {
			s.Backoff = string(retry.BackoffConstant)
		}
		if s.CircuitBreaker.MaxFailures == 0 {
			s.CircuitBreaker.MaxFailures = DefaultMaxFailures
		}
		if s.CircuitBreaker.Timeout == 0 {
			s.CircuitBreaker.Timeout = DefaultOpenTimeout
		}
	}
	if c.ResultLog != nil {
		if c.ResultLog.Type == "" {
			c.ResultLog.Type = "redis"
		}
		if c.ResultLog.TTL == 0 {
			c.ResultLog.TTL = DefaultResultTTL
		}
		if c.ResultLog.Name == "" {
			c.ResultLog.Name = c.Metadata.Name
		}
	}
}

// Name имя конфигурации для логов и метаданных батчей
func (c *Config) Name() string {
	return c.Metadata.Name
}

// ShouldWrite сообщает, нужно ли запускать файловые writers (по умолчанию да)
func (c *Config) ShouldWrite() bool {
	return c.WriteOutput == nil || *c.WriteOutput
}

// Steps превращает configs в шаги engine. strategy.unique переносится в params.
func (c *Config) Steps() []engine.Step {
	steps := make([]engine.Step, 0, len(c.Configs))
	for _, sc := range c.Configs {
		params := make(map[string]any, len(sc.Strategy.Params)+1)
		for k, v := range sc.Strategy.Params {
			params[k] = v
		}
		if sc.Strategy.Unique {
			params["unique"] = true
		}
		steps = append(steps, engine.Step{
			Names:        append([]string(nil), sc.Names...),
			Strategy:     sc.Strategy.Name,
			Params:       params,
			Mask:         sc.Mask,
			Operation:    engine.Operation(sc.Operation),
			Intermediate: sc.Intermediate,
			Disabled:     sc.Disabled,
		})
	}
	return steps
}

// EngineOptions опции engine из конфигурации
func (c *Config) EngineOptions() []engine.Option {
	var opts []engine.Option
	if len(c.ColumnName) > 0 {
		opts = append(opts, engine.WithColumnOrder(c.ColumnName))
	}
	if c.Seed != nil {
		opts = append(opts, engine.WithSeed(*c.Seed))
	}
	return opts
}

// Writers создает файловые writers
func (c *Config) Writers() ([]writers.Writer, error) {
	ws := make([]writers.Writer, 0, len(c.FileWriter))
	for i, wc := range c.FileWriter {
		w, err := writers.New(wc.Type, wc.Params)
		if err != nil {
			return nil, wrapf(err, "file_writer[%d]", i)
		}
		ws = append(ws, w)
	}
	return ws, nil
}

// RetryConfig политика повторов для emit.Streamer
func (s *StreamConfig) RetryConfig() retry.Config {
	cfg := retry.DefaultConfig()
	if s.MaxRetries != nil {
		cfg.MaxRetries = *s.MaxRetries
	}
	cfg.Delay = s.RetryDelay
	cfg.MaxDelay = s.MaxDelay
	if cfg.MaxDelay != 0 && cfg.MaxDelay < cfg.Delay {
		cfg.MaxDelay = cfg.Delay
	}
	cfg.Backoff = retry.BackoffStrategy(s.Backoff)
	cfg.Jitter = s.Jitter
	cfg.DLQPath = s.DLQPath
	if s.DLQMaxSize > 0 {
		cfg.DLQMaxSize = s.DLQMaxSize
	}
	return cfg
}

// wrapf добавляет путь к полю в сообщение ошибки, сохраняя ее вид
func wrapf(err error, format string, args ...any) error {
	prefix := fmt.Sprintf(format, args...)
	var e *generr.Error
	if errors.As(err, &e) {
		e.Msg = prefix + ": " + e.Msg
		return e
	}
	return fmt.Errorf("%s: %w", prefix, err)
}
