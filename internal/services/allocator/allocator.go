// Package allocator выдаёт профили одобренным заказам. Вся гонка за
// профиль решается одной транзакцией хранилища, сервис лишь переводит
// её исходы в доменные ошибки и публикует аудиторское событие.
package allocator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/profile-sales-bot/internal/lib/sl"
	"github.com/magabrotheeeer/profile-sales-bot/internal/models"
)

// Repository описывает транзакцию аллокации.
type Repository interface {
	AllocateProfile(ctx context.Context, orderID int) (*models.Delivery, error)
}

// EventPublisher публикует события в брокер.
type EventPublisher interface {
	Publish(routingKey string, message any) error
}

// Service — аллокатор профилей.
type Service struct {
	repo      Repository
	publisher EventPublisher
	log       *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, publisher EventPublisher, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		log:       log,
	}
}

// Allocate одобряет заказ и привязывает к нему самый старый непроданный
// профиль. Идемпотентна: повторный вызов по уже одобренному заказу
// возвращает ранее привязанный профиль вместе с models.ErrAlreadyProcessed.
// При пустом складе возвращает models.ErrOutOfStock, заказ остаётся pending.
func (s *Service) Allocate(ctx context.Context, orderID int) (*models.Delivery, error) {
	const op = "services.allocator.Allocate"

	delivery, err := s.repo.AllocateProfile(ctx, orderID)
	if err != nil {
		if errors.Is(err, models.ErrAlreadyProcessed) {
			s.log.Info("order already approved, returning bound profile",
				slog.Int("order_id", orderID))
			return delivery, err
		}
		if errors.Is(err, models.ErrOutOfStock) {
			s.log.Warn("allocation hit empty stock", slog.Int("order_id", orderID))
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	event := models.SaleCompletedEvent{
		EventID:   uuid.NewString(),
		OrderID:   delivery.Order.ID,
		BuyerID:   delivery.Order.BuyerID,
		TrxID:     delivery.Order.TrxID,
		Amount:    delivery.Order.Amount,
		ProfileID: delivery.Profile.ID,
		SoldAt:    time.Now().UTC(),
	}
	if err := s.publisher.Publish(models.RoutingKeySaleCompleted, event); err != nil {
		// продажа уже зафиксирована, аудит не должен её откатывать
		s.log.Error("failed to publish sale event",
			slog.Int("order_id", orderID), sl.Err(err))
	}

	s.log.Info("profile allocated",
		slog.Int("order_id", delivery.Order.ID),
		slog.Int("profile_id", delivery.Profile.ID),
		slog.Int64("buyer_id", delivery.Order.BuyerID))
	return delivery, nil
}
