package brokers

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Поля записи Redis Stream
const (
	StreamFieldKey  = "key"
	StreamFieldBody = "body"
)

// RedisStream публикует сообщения в Redis Stream через XADD
type RedisStream struct {
	config Config
	client *redis.Client
}

// NewRedisStream создает publisher Redis Streams
func NewRedisStream(cfg Config) (*RedisStream, error) {
	if cfg.Stream == "" {
		return nil, fmt.Errorf("stream name is required for Redis")
	}
	if cfg.Address == "" {
		cfg.Address = "localhost:6379"
	}
	if cfg.MaxLen < 0 {
		return nil, fmt.Errorf("max_len must be >= 0, got %d", cfg.MaxLen)
	}
	return &RedisStream{config: cfg}, nil
}

// Connect создает клиента и проверяет соединение
func (r *RedisStream) Connect(ctx context.Context) error {
	r.client = redis.NewClient(&redis.Options{
		Addr:     r.config.Address,
		Password: r.config.Password,
		DB:       r.config.DB,
	})
	if err := r.Ping(ctx); err != nil {
		r.client.Close()
		r.client = nil
		return err
	}
	return nil
}

// Close закрывает клиента
func (r *RedisStream) Close() error {
	if r.client != nil {
		if err := r.client.Close(); err != nil {
			return fmt.Errorf("failed to close redis client: %w", err)
		}
	}
	return nil
}

// Send добавляет запись: key, body и заголовки отдельными полями
func (r *RedisStream) Send(ctx context.Context, msg Message) error {
	if r.client == nil {
		return fatal(r, fmt.Errorf("not connected to Redis"))
	}

	values := make([]any, 0, 4+2*len(msg.Headers))
	values = append(values, StreamFieldKey, msg.Key, StreamFieldBody, msg.Body)
	for _, k := range sortedKeys(msg.Headers) {
		values = append(values, k, msg.Headers[k])
	}

	args := &redis.XAddArgs{
		Stream: r.config.Stream,
		Values: values,
	}
	if r.config.MaxLen > 0 {
		args.MaxLen = r.config.MaxLen
		args.Approx = true
	}
	if err := r.client.XAdd(ctx, args).Err(); err != nil {
		err = fmt.Errorf("failed to add message to stream %s: %w", r.config.Stream, err)
		if redisFatal(err) {
			return fatal(r, err)
		}
		return err
	}
	return nil
}

// Ping проверяет доступность Redis
func (r *RedisStream) Ping(ctx context.Context) error {
	if r.client == nil {
		return fmt.Errorf("not connected to Redis")
	}
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

func (r *RedisStream) Type() string { return "redis" }

func (r *RedisStream) Destination() string { return r.config.Stream }
