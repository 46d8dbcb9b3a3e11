package brokers

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQ публикует сообщения в очередь RabbitMQ
type RabbitMQ struct {
	config  Config
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewRabbitMQ создает publisher RabbitMQ
func NewRabbitMQ(cfg Config) (*RabbitMQ, error) {
	if cfg.Queue == "" {
		return nil, fmt.Errorf("queue name is required for RabbitMQ")
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		if cfg.UseTLS {
			cfg.Port = 5671
		} else {
			cfg.Port = 5672
		}
	}
	if cfg.VHost == "" {
		cfg.VHost = "/"
	}
	if cfg.User == "" {
		cfg.User = "guest"
		if cfg.Password == "" {
			cfg.Password = "guest"
		}
	}
	if cfg.RoutingKey == "" {
		cfg.RoutingKey = cfg.Queue
	}
	return &RabbitMQ{config: cfg}, nil
}

// URL строка подключения amqp:// или amqps://
func (r *RabbitMQ) URL() string {
	scheme := "amqp"
	if r.config.UseTLS {
		scheme = "amqps"
	}
	u := url.URL{
		Scheme: scheme,
		User:   url.UserPassword(r.config.User, r.config.Password),
		Host:   fmt.Sprintf("%s:%d", r.config.Host, r.config.Port),
		Path:   "/" + url.PathEscape(r.config.VHost),
	}
	return u.String()
}

// Connect открывает соединение, канал и объявляет очередь
func (r *RabbitMQ) Connect(ctx context.Context) error {
	var err error
	if r.config.UseTLS {
		r.conn, err = amqp.DialTLS(r.URL(), &tls.Config{
			ServerName: r.config.Host,
			MinVersion: tls.VersionTLS12,
		})
	} else {
		r.conn, err = amqp.Dial(r.URL())
	}
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	r.channel, err = r.conn.Channel()
	if err != nil {
		r.conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	// объявление идемпотентно
	_, err = r.channel.QueueDeclare(
		r.config.Queue,
		r.config.Durable,
		r.config.AutoDelete,
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		r.channel.Close()
		r.conn.Close()
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	return nil
}

// Close закрывает канал и соединение
func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		if err := r.channel.Close(); err != nil {
			return fmt.Errorf("failed to close channel: %w", err)
		}
	}
	if r.conn != nil {
		if err := r.conn.Close(); err != nil {
			return fmt.Errorf("failed to close connection: %w", err)
		}
	}
	return nil
}

// Send публикует сообщение, заголовки переносятся в amqp.Table
func (r *RabbitMQ) Send(ctx context.Context, msg Message) error {
	if r.channel == nil {
		return fatal(r, fmt.Errorf("not connected to RabbitMQ"))
	}

	headers := make(amqp.Table, len(msg.Headers))
	for k, v := range msg.Headers {
		headers[k] = v
	}

	err := r.channel.PublishWithContext(ctx,
		r.config.Exchange,
		r.config.RoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			Headers:         headers,
			ContentType:     msg.Headers[HeaderContentType],
			ContentEncoding: msg.Headers[HeaderContentEncoding],
			MessageId:       msg.Key,
			Body:            msg.Body,
			DeliveryMode:    amqp.Persistent,
			Timestamp:       time.Now(),
		},
	)
	if err != nil {
		err = fmt.Errorf("failed to publish message: %w", err)
		if amqpFatal(err) {
			return fatal(r, err)
		}
		return err
	}
	return nil
}

// Ping проверяет, что соединение и канал открыты
func (r *RabbitMQ) Ping(ctx context.Context) error {
	if r.conn == nil || r.conn.IsClosed() {
		return fmt.Errorf("not connected to RabbitMQ")
	}
	if r.channel == nil || r.channel.IsClosed() {
		return fmt.Errorf("channel not open")
	}
	return nil
}

func (r *RabbitMQ) Type() string { return "rabbitmq" }

func (r *RabbitMQ) Destination() string { return r.config.Queue }
