// Package resultlog сообщает внешнему оркестратору итог прогона генерации через Redis.
package resultlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config параметры публикации результата
type Config struct {
	Type     string `yaml:"type" json:"type"` // пока только redis
	Address  string `yaml:"address" json:"address"`
	Password string `yaml:"password" json:"password,omitempty"`
	DB       int    `yaml:"db" json:"db,omitempty"`
	Name     string `yaml:"name" json:"name"`
	TTL      int    `yaml:"ttl" json:"ttl"` // секунды, 0 = без истечения
}

// Validate проверяет конфигурацию
func (c *Config) Validate() error {
	if c.Type != "" && c.Type != "redis" {
		return fmt.Errorf("unsupported result_log type: %s (supported: redis)", c.Type)
	}
	if c.Address == "" {
		return fmt.Errorf("result_log.address is required")
	}
	if c.Name == "" {
		return fmt.Errorf("result_log.name is required")
	}
	if c.TTL < 0 {
		return fmt.Errorf("result_log.ttl must be >= 0, got %d", c.TTL)
	}
	return nil
}

// Статусы прогона
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// RunResult состояние прогона, публикуемое в Redis после завершения
// (успешного или с ошибкой).
//
// Redis-ключи:
//
//	SET  datagen:run:<name>:state  <JSON>  EX <ttl>  для опроса
//	PUB  datagen:run:<name>                         для подписчиков
type RunResult struct {
	ConfigName    string    `json:"config_name"`
	ResultName    string    `json:"result_name"`
	RunID         string    `json:"run_id"`
	Status        string    `json:"status"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	DurationMs    int64     `json:"duration_ms"`
	RowsGenerated int       `json:"rows_generated"`
	Columns       []string  `json:"columns,omitempty"`
	Outputs       []string  `json:"outputs,omitempty"`
	Batches       int       `json:"batches_emitted"`
	Retries       int       `json:"retries"`
	Error         *string   `json:"error,omitempty"`
}

// StateKey ключ последнего состояния
func StateKey(name string) string { return fmt.Sprintf("datagen:run:%s:state", name) }

// Channel канал событий
func Channel(name string) string { return fmt.Sprintf("datagen:run:%s", name) }

// RedisPublisher публикует результат прогона в Redis
type RedisPublisher struct {
	client *redis.Client
	config Config
}

// NewRedisPublisher создает publisher. Соединение открывается лениво клиентом.
func NewRedisPublisher(config Config) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       config.DB,
	})
	return &RedisPublisher{client: client, config: config}
}

// Publish записывает состояние и рассылает событие.
// execErr == nil означает успешный прогон.
func (p *RedisPublisher) Publish(ctx context.Context, result RunResult, execErr error) error {
	result.ResultName = p.config.Name
	if !result.FinishedAt.IsZero() && !result.StartedAt.IsZero() {
		result.DurationMs = result.FinishedAt.Sub(result.StartedAt).Milliseconds()
	}
	if execErr != nil {
		result.Status = StatusFailed
		msg := execErr.Error()
		result.Error = &msg
	} else {
		result.Status = StatusSuccess
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	ttl := time.Duration(p.config.TTL) * time.Second
	if err := p.client.Set(ctx, StateKey(p.config.Name), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis SET failed: %w", err)
	}
	if err := p.client.Publish(ctx, Channel(p.config.Name), payload).Err(); err != nil {
		return fmt.Errorf("redis PUBLISH failed: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
