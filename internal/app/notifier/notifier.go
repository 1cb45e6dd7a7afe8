// Package notifier собирает и запускает нотификатор — отдельный процесс,
// который потребляет события брокера и рассылает уведомления.
package notifier

import (
	"context"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/profile-sales-bot/internal/config"
	"github.com/magabrotheeeer/profile-sales-bot/internal/gateway/telegram"
	"github.com/magabrotheeeer/profile-sales-bot/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/profile-sales-bot/internal/lib/sl"
	"github.com/magabrotheeeer/profile-sales-bot/internal/services/admins"
	notifierservice "github.com/magabrotheeeer/profile-sales-bot/internal/services/notifier"
	"github.com/magabrotheeeer/profile-sales-bot/internal/storage/repository"
)

// App — приложение нотификатора.
type App struct {
	conn            *amqp.Connection
	ch              *amqp.Channel
	admins          *admins.Directory
	notifierService *notifierservice.Service
	logger          *slog.Logger
}

// Бот добавляет администраторов в обход этого процесса, поэтому
// справочник периодически перечитывается из базы.
const adminsRefreshInterval = time.Minute

// New собирает нотификатор из конфигурации. Справочник администраторов
// загружается из той же базы, что использует бот.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		conn.Close()
		return nil, err
	}

	dir, err := admins.New(ctx, db, cfg.OwnerID)
	if err != nil {
		return nil, err
	}

	client := telegram.New(cfg.BotToken, logger)
	notifierService := notifierservice.New(client, dir, logger)

	return &App{
		conn:            conn,
		ch:              ch,
		admins:          dir,
		notifierService: notifierService,
		logger:          logger,
	}, nil
}

// Run запускает потребителей очередей и блокируется до отмены контекста.
func (a *App) Run(ctx context.Context) error {
	err := rabbitmq.ConsumerMessage(ctx, a.ch, rabbitmq.QueueAdminNotifications, a.notifierService.HandleAdminNotification)
	if err != nil {
		a.logger.Error("failed to start admin notifications consumer", sl.Err(err))
		return err
	}

	err = rabbitmq.ConsumerMessage(ctx, a.ch, rabbitmq.QueueSalesAudit, a.notifierService.HandleSaleAudit)
	if err != nil {
		a.logger.Error("failed to start sales audit consumer", sl.Err(err))
		return err
	}

	go a.refreshAdmins(ctx)

	<-ctx.Done()
	a.logger.Info("notifier shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	return nil
}

func (a *App) refreshAdmins(ctx context.Context) {
	ticker := time.NewTicker(adminsRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.admins.Reload(ctx); err != nil {
				a.logger.Warn("failed to reload admin directory", sl.Err(err))
			}
		}
	}
}
