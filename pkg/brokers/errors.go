package brokers

import (
	"errors"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/ruslano69/tdtp-datagen/pkg/core/generr"
)

// fatal помечает ошибку отправки как неповторяемую. Sink передает ее дальше без изменений.
func fatal(p Publisher, err error) error {
	return generr.Publish(p.Type()+":"+p.Destination(), false, err)
}

// amqpFatal: закрытый канал или соединение без флага Recover повторять бессмысленно
func amqpFatal(err error) bool {
	var aerr *amqp.Error
	return errors.As(err, &aerr) && !aerr.Recover
}

// kafkaFatal: протокольная ошибка без Temporary() или слишком большое сообщение
func kafkaFatal(err error) bool {
	var werrs kafka.WriteErrors
	if errors.As(err, &werrs) {
		for _, e := range werrs {
			if e != nil && kafkaFatal(e) {
				return true
			}
		}
		return false
	}
	var tooLarge kafka.MessageTooLargeError
	if errors.As(err, &tooLarge) {
		return true
	}
	var kerr kafka.Error
	return errors.As(err, &kerr) && !kerr.Temporary()
}

// Ответы сервера Redis, после которых повтор может пройти
var redisRetryable = []string{"LOADING", "READONLY", "TRYAGAIN", "CLUSTERDOWN", "MASTERDOWN", "BUSY"}

// redisFatal: ответ сервера с ошибкой (WRONGTYPE, ERR ...), кроме состояний кластера
func redisFatal(err error) bool {
	var rerr redis.Error
	if !errors.As(err, &rerr) || errors.Is(err, redis.Nil) {
		return false
	}
	msg := rerr.Error()
	for _, prefix := range redisRetryable {
		if strings.HasPrefix(msg, prefix) {
			return false
		}
	}
	return true
}
