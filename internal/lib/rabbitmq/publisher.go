package rabbitmq

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
)

// Publisher публикует события бота в topic-exchange. Сервисы получают
// его по интерфейсу и не знают про канал AMQP.
type Publisher struct {
	ch       *amqp.Channel
	exchange string
}

// NewPublisher создает Publisher поверх готового канала.
func NewPublisher(ch *amqp.Channel) *Publisher {
	return &Publisher{ch: ch, exchange: ExchangeEvents}
}

// Publish сериализует событие в JSON и публикует его с указанным ключом.
func (p *Publisher) Publish(routingKey string, message any) error {
	return PublishMessage(p.ch, p.exchange, routingKey, message)
}

// PublishMessage публикует сообщение в RabbitMQ.
func PublishMessage(ch *amqp.Channel, exchange string, routingkey string, message any) error {
	const op = "rabbitmq.PublishMessage"
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = ch.Publish(
		exchange,
		routingkey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
