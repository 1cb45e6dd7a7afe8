package rabbitmq

import (
	"fmt"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/profile-sales-bot/internal/models"
)

// QueueConfig описывает очередь и ключ маршрутизации, которым она
// привязана к exchange событий.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// Имена очередей нотификатора.
const (
	QueueAdminNotifications = "admin.notifications"
	QueueSalesAudit         = "audit.sales"
)

// GetNotificationQueues возвращает очереди, которые потребляет нотификатор.
// Одна очередь может быть привязана несколькими ключами.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: QueueAdminNotifications, RoutingKey: models.RoutingKeyOrderAppealed},
		{QueueName: QueueAdminNotifications, RoutingKey: models.RoutingKeyRestockNeeded},
		{QueueName: QueueSalesAudit, RoutingKey: models.RoutingKeySaleCompleted},
	}
}

// SetupChannel открывает канал, объявляет exchange событий и все очереди
// с привязками.
func SetupChannel(conn *amqp.Connection, queues []QueueConfig) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := ch.ExchangeDeclare(ExchangeEvents, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, q := range queues {
		if _, err := ch.QueueDeclare(q.QueueName, true, false, false, false, nil); err != nil {
			return nil, fmt.Errorf("%s: declare %s: %w", op, q.QueueName, err)
		}
		if err := ch.QueueBind(q.QueueName, q.RoutingKey, ExchangeEvents, false, nil); err != nil {
			return nil, fmt.Errorf("%s: bind %s: %w", op, q.QueueName, err)
		}
	}
	return ch, nil
}
