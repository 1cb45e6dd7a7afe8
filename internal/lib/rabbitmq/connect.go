// Package rabbitmq содержит вспомогательные функции для работы с брокером
// сообщений: подключение с повторами, объявление очередей, публикация
// и потребление сообщений.
package rabbitmq

import (
	"fmt"
	"time"

	"github.com/streadway/amqp"
)

// ExchangeEvents — topic-exchange, через который проходят все события бота.
const ExchangeEvents = "profileshop.events"

// Connect подключается к RabbitMQ с повторными попытками.
func Connect(url string, maxRetries int, retryDelay time.Duration) (*amqp.Connection, error) {
	const op = "rabbitmq.Connect"

	var conn *amqp.Connection
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		time.Sleep(retryDelay)
	}
	return nil, fmt.Errorf("%s: %w", op, err)
}
