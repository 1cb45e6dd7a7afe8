package rabbitmq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/profile-sales-bot/internal/models"
)

func TestGetNotificationQueues(t *testing.T) {
	queues := GetNotificationQueues()

	require.NotEmpty(t, queues, "queues list should not be empty")

	// Все ключи маршрутизации событий должны быть привязаны к какой-то очереди
	keys := map[string]string{}
	for _, q := range queues {
		keys[q.RoutingKey] = q.QueueName
	}
	assert.Equal(t, QueueAdminNotifications, keys[models.RoutingKeyOrderAppealed])
	assert.Equal(t, QueueAdminNotifications, keys[models.RoutingKeyRestockNeeded])
	assert.Equal(t, QueueSalesAudit, keys[models.RoutingKeySaleCompleted])

	// Пара (очередь, ключ) не должна повторяться
	seen := map[string]bool{}
	for _, q := range queues {
		pair := q.QueueName + "/" + q.RoutingKey
		assert.Falsef(t, seen[pair], "duplicate binding: %s", pair)
		seen[pair] = true
	}
}
