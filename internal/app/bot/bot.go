// Package bot собирает и запускает основное приложение: хранилище,
// кэш, брокер, шлюз мессенджера, сервисы и цикл long-poll.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/streadway/amqp"

	botrouter "github.com/magabrotheeeer/profile-sales-bot/internal/bot"
	"github.com/magabrotheeeer/profile-sales-bot/internal/cache"
	"github.com/magabrotheeeer/profile-sales-bot/internal/config"
	"github.com/magabrotheeeer/profile-sales-bot/internal/gateway/telegram"
	"github.com/magabrotheeeer/profile-sales-bot/internal/lib/ocr"
	"github.com/magabrotheeeer/profile-sales-bot/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/profile-sales-bot/internal/lib/sl"
	"github.com/magabrotheeeer/profile-sales-bot/internal/migrations"
	"github.com/magabrotheeeer/profile-sales-bot/internal/services/admins"
	"github.com/magabrotheeeer/profile-sales-bot/internal/services/allocator"
	"github.com/magabrotheeeer/profile-sales-bot/internal/services/inventory"
	"github.com/magabrotheeeer/profile-sales-bot/internal/services/order"
	"github.com/magabrotheeeer/profile-sales-bot/internal/services/referral"
	"github.com/magabrotheeeer/profile-sales-bot/internal/services/review"
	"github.com/magabrotheeeer/profile-sales-bot/internal/storage/repository"
)

// App — основное приложение бота.
type App struct {
	server      *http.Server
	client      *telegram.Client
	router      *botrouter.Router
	pollTimeout time.Duration
	logger      *slog.Logger
	db          *repository.Storage
	conn        *amqp.Connection
	ch          *amqp.Channel
}

// New собирает приложение из конфигурации.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
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
	publisher := rabbitmq.NewPublisher(ch)

	client := telegram.New(cfg.BotToken, logger)

	dir, err := admins.New(ctx, db, cfg.OwnerID)
	if err != nil {
		return nil, err
	}

	var verifier *ocr.Verifier
	if cfg.OCREnabled && cfg.OCRServiceURL != "" {
		verifier = ocr.NewVerifier(ocr.NewHTTPExtractor(cfg.OCRServiceURL), cfg.Price)
	}

	orderService := order.New(db, cacheRedis, verifier, cfg.Price, logger)
	allocatorService := allocator.New(db, publisher, logger)
	reviewService := review.New(db, allocatorService, dir, publisher, logger)
	referralService := referral.New(db, cfg.ReferralThreshold, logger)
	inventoryService := inventory.New(db, cacheRedis, logger)

	router := botrouter.New(client, orderService, reviewService, referralService,
		inventoryService, dir, botrouter.Config{
			Price:           cfg.Price,
			BkashNumber:     cfg.BkashNumber,
			NagadNumber:     cfg.NagadNumber,
			OCREnabled:      verifier != nil,
			OCRAutoApprove:  cfg.OCRAutoApprove,
			ChannelUsername: cfg.ChannelUsername,
		}, logger)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      newServiceRouter(db),
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:      srv,
		client:      client,
		router:      router,
		pollTimeout: cfg.PollTimeout,
		logger:      logger,
		db:          db,
		conn:        conn,
		ch:          ch,
	}, nil
}

// Run запускает служебный HTTP-сервер и цикл long-poll. Блокируется
// до отмены контекста или фатальной ошибки сервера.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("metrics server starting", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	go a.pollLoop(ctx)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.router.Wait()
		if closeErr := a.ch.Close(); closeErr != nil {
			a.logger.Error("failed to close channel", sl.Err(closeErr))
		}
		if closeErr := a.conn.Close(); closeErr != nil {
			a.logger.Error("failed to close connection", sl.Err(closeErr))
		}
		a.db.DB.Close()
		return err
	}
}

func (a *App) pollLoop(ctx context.Context) {
	offset := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		updates, err := a.client.GetUpdates(ctx, offset, a.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			a.logger.Error("long poll failed", sl.Err(err))
			select {
			case <-time.After(3 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		for _, upd := range updates {
			offset = upd.UpdateID + 1
			a.router.Dispatch(ctx, upd)
		}
	}
}
