// Package brokers публикует батчи сгенерированных данных в очереди сообщений:
// RabbitMQ, Apache Kafka и Redis Streams.
package brokers

import (
	"context"
	"fmt"
	"strings"
)

// Message сообщение для брокера
type Message struct {
	Key     string
	Body    []byte
	Headers map[string]string
}

// Publisher универсальный интерфейс отправки в очередь
type Publisher interface {
	// Connect устанавливает соединение с брокером
	Connect(ctx context.Context) error

	// Close закрывает соединение
	Close() error

	// Send отправляет одно сообщение
	Send(ctx context.Context, msg Message) error

	// Ping проверяет доступность брокера
	Ping(ctx context.Context) error

	// Type возвращает тип брокера (rabbitmq, kafka, redis)
	Type() string

	// Destination возвращает очередь, topic или stream назначения
	Destination() string
}

// Config параметры подключения к брокеру
type Config struct {
	Type string `yaml:"type" json:"type"`

	// RabbitMQ
	Host       string `yaml:"host" json:"host,omitempty"`
	Port       int    `yaml:"port" json:"port,omitempty"`
	User       string `yaml:"user" json:"user,omitempty"`
	Password   string `yaml:"password" json:"password,omitempty"`
	Queue      string `yaml:"queue" json:"queue,omitempty"`
	VHost      string `yaml:"vhost" json:"vhost,omitempty"`
	UseTLS     bool   `yaml:"use_tls" json:"use_tls,omitempty"`
	Exchange   string `yaml:"exchange" json:"exchange,omitempty"`
	RoutingKey string `yaml:"routing_key" json:"routing_key,omitempty"`
	// параметры очереди должны совпадать с уже существующей очередью
	Durable    bool `yaml:"durable" json:"durable,omitempty"`
	AutoDelete bool `yaml:"auto_delete" json:"auto_delete,omitempty"`

	// Kafka
	Brokers []string `yaml:"brokers" json:"brokers,omitempty"`
	Topic   string   `yaml:"topic" json:"topic,omitempty"`

	// Redis Streams (Password общий с RabbitMQ)
	Address string `yaml:"address" json:"address,omitempty"`
	DB      int    `yaml:"db" json:"db,omitempty"`
	Stream  string `yaml:"stream" json:"stream,omitempty"`
	MaxLen  int64  `yaml:"max_len" json:"max_len,omitempty"`
}

// New создает Publisher по конфигурации. Соединение не открывается.
func New(cfg Config) (Publisher, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "rabbitmq", "amqp":
		return NewRabbitMQ(cfg)
	case "kafka":
		return NewKafka(cfg)
	case "redis", "redis_stream":
		return NewRedisStream(cfg)
	default:
		return nil, fmt.Errorf("unsupported broker type: %s (supported: rabbitmq, kafka, redis)", cfg.Type)
	}
}
