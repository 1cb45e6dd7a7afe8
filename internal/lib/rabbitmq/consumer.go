package rabbitmq

import (
	"context"
	"fmt"

	"github.com/streadway/amqp"
)

// ConsumerMessage запускает потребителя очереди. Каждое сообщение передаётся
// в handler; при ошибке обработчика сообщение возвращается в очередь один
// раз (requeue), чтобы сбойное сообщение не зациклилось.
func ConsumerMessage(ctx context.Context, ch *amqp.Channel, queueName string, handler func([]byte) error) error {
	const op = "rabbitmq.ConsumerMessage"

	deliveries, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				if err := handler(d.Body); err != nil {
					_ = d.Nack(false, !d.Redelivered)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()
	return nil
}
