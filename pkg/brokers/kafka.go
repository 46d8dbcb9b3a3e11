package brokers

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Kafka публикует сообщения в topic Apache Kafka
type Kafka struct {
	config Config
	writer *kafka.Writer
}

// NewKafka создает publisher Kafka
func NewKafka(cfg Config) (*Kafka, error) {
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic name is required for Kafka")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker address is required for Kafka")
	}
	return &Kafka{config: cfg}, nil
}

// Connect создает writer и проверяет доступность topic
func (k *Kafka) Connect(ctx context.Context) error {
	k.writer = &kafka.Writer{
		Addr:         kafka.TCP(k.config.Brokers...),
		Topic:        k.config.Topic,
		Balancer:     &kafka.Hash{}, // батчи одного прогона в одну партицию по ключу
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		Compression:  kafka.Snappy,
		MaxAttempts:  1, // повторы делает emit
		WriteTimeout: 10 * time.Second,
	}
	return k.Ping(ctx)
}

// Close закрывает writer
func (k *Kafka) Close() error {
	if k.writer != nil {
		if err := k.writer.Close(); err != nil {
			return fmt.Errorf("failed to close writer: %w", err)
		}
	}
	return nil
}

// Send записывает сообщение, заголовки переносятся в kafka.Header
func (k *Kafka) Send(ctx context.Context, msg Message) error {
	if k.writer == nil {
		return fatal(k, fmt.Errorf("not connected to Kafka"))
	}
	if err := k.writer.WriteMessages(ctx, kafkaMessage(msg)); err != nil {
		err = fmt.Errorf("failed to write message to Kafka: %w", err)
		if kafkaFatal(err) {
			return fatal(k, err)
		}
		return err
	}
	return nil
}

func kafkaMessage(msg Message) kafka.Message {
	headers := make([]kafka.Header, 0, len(msg.Headers))
	for _, k := range sortedKeys(msg.Headers) {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(msg.Headers[k])})
	}
	return kafka.Message{
		Key:     []byte(msg.Key),
		Value:   msg.Body,
		Time:    time.Now(),
		Headers: headers,
	}
}

// Ping читает партиции topic через временное соединение
func (k *Kafka) Ping(ctx context.Context) error {
	conn, err := kafka.DialContext(ctx, "tcp", k.config.Brokers[0])
	if err != nil {
		return fmt.Errorf("failed to dial Kafka broker: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ReadPartitions(k.config.Topic); err != nil {
		return fmt.Errorf("failed to read topic partitions: %w", err)
	}
	return nil
}

func (k *Kafka) Type() string { return "kafka" }

func (k *Kafka) Destination() string { return k.config.Topic }

// Stats статистика writer
func (k *Kafka) Stats() kafka.WriterStats {
	if k.writer == nil {
		return kafka.WriterStats{}
	}
	return k.writer.Stats()
}
