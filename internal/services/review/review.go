// Package review реализует админский цикл проверки заказов: одобрение,
// отклонение с причиной и апелляции покупателей.
package review

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

// Repository описывает контракт хранилища заказов для проверки.
type Repository interface {
	GetOrder(ctx context.Context, id int) (*models.Order, error)
	RejectOrder(ctx context.Context, id int, reason string) (int, error)
	SetAppeal(ctx context.Context, id int, buyerID int64, text string, at time.Time) (int, error)
	ExistsApprovedTrxID(ctx context.Context, trxID string, excludeOrderID int) (bool, error)
}

// Allocator выдаёт профиль одобренному заказу.
type Allocator interface {
	Allocate(ctx context.Context, orderID int) (*models.Delivery, error)
}

// AdminChecker проверяет права администратора.
type AdminChecker interface {
	IsAdmin(userID int64) bool
}

// EventPublisher публикует события в брокер.
type EventPublisher interface {
	Publish(routingKey string, message any) error
}

// Service — цикл админской проверки.
type Service struct {
	repo      Repository
	allocator Allocator
	admins    AdminChecker
	publisher EventPublisher
	log       *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, allocator Allocator, admins AdminChecker, publisher EventPublisher, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		allocator: allocator,
		admins:    admins,
		publisher: publisher,
		log:       log,
	}
}

// Order возвращает заказ для отображения в карточках и уведомлениях.
func (s *Service) Order(ctx context.Context, orderID int) (*models.Order, error) {
	return s.repo.GetOrder(ctx, orderID)
}

// Approve одобряет заказ. Перед аллокацией применяется защита от повторного
// использования идентификатора транзакции: если он уже стоит на другом
// одобренном заказе, текущий автоматически отклоняется с причиной
// "duplicate". При пустом складе заказ остаётся pending, администраторам
// уходит сигнал о необходимости пополнения.
func (s *Service) Approve(ctx context.Context, orderID int, adminID int64) (*models.Delivery, error) {
	const op = "services.review.Approve"

	if !s.admins.IsAdmin(adminID) {
		return nil, models.ErrUnauthorized
	}
	return s.approve(ctx, op, orderID, adminID)
}

// AutoApprove одобряет заказ без участия администратора — путь
// автоматического распознавания скриншота. Защиты те же, что и при
// ручном одобрении; при пустом складе заказ остаётся pending и уходит
// на ручную проверку.
func (s *Service) AutoApprove(ctx context.Context, orderID int) (*models.Delivery, error) {
	const op = "services.review.AutoApprove"
	return s.approve(ctx, op, orderID, 0)
}

func (s *Service) approve(ctx context.Context, op string, orderID int, adminID int64) (*models.Delivery, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if order.TrxID != "" {
		exists, err := s.repo.ExistsApprovedTrxID(ctx, order.TrxID, orderID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if exists {
			if _, err := s.repo.RejectOrder(ctx, orderID, models.RejectReasonDuplicate); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			s.log.Warn("order auto-rejected as duplicate",
				slog.Int("order_id", orderID),
				slog.String("trxid", order.TrxID))
			return nil, models.ErrDuplicateSubmission
		}
	}

	delivery, err := s.allocator.Allocate(ctx, orderID)
	if errors.Is(err, models.ErrOutOfStock) {
		event := models.RestockNeededEvent{
			EventID: uuid.NewString(),
			OrderID: orderID,
			AdminID: adminID,
		}
		if pubErr := s.publisher.Publish(models.RoutingKeyRestockNeeded, event); pubErr != nil {
			s.log.Error("failed to publish restock event",
				slog.Int("order_id", orderID), sl.Err(pubErr))
		}
		return nil, err
	}
	if err != nil {
		// в том числе ErrAlreadyProcessed с уже привязанным профилем
		return delivery, err
	}

	s.log.Info("order approved",
		slog.Int("order_id", orderID),
		slog.Int64("admin_id", adminID))
	return delivery, nil
}

// Reject отклоняет заказ с причиной. Причина — одна из канонических
// констант или произвольный текст администратора. Отклонить можно только
// pending или уже отклонённый заказ; одобренные неприкосновенны.
func (s *Service) Reject(ctx context.Context, orderID int, adminID int64, reason string) error {
	const op = "services.review.Reject"

	if !s.admins.IsAdmin(adminID) {
		return models.ErrUnauthorized
	}
	if reason == "" {
		reason = models.RejectReasonUnclear
	}

	affected, err := s.repo.RejectOrder(ctx, orderID, reason)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return models.ErrAlreadyProcessed
	}
	s.log.Info("order rejected",
		slog.Int("order_id", orderID),
		slog.Int64("admin_id", adminID),
		slog.String("reason", reason))
	return nil
}

// Appeal подаёт апелляцию на отклонённый заказ. Разрешена только
// покупателю этого заказа и не более одного раза; статус заказа
// не меняется, решение остаётся за администратором.
func (s *Service) Appeal(ctx context.Context, orderID int, buyerID int64, message string) error {
	const op = "services.review.Appeal"

	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if order.BuyerID != buyerID {
		return models.ErrUnauthorized
	}
	if order.Status != models.OrderStatusRejected {
		return models.ErrOrderNotRejected
	}
	if order.AppealText != nil {
		return models.ErrAlreadyAppealed
	}

	now := time.Now().UTC()
	affected, err := s.repo.SetAppeal(ctx, orderID, buyerID, message, now)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		// гонка: кто-то успел подать апелляцию или сменить статус
		return models.ErrAlreadyAppealed
	}

	event := models.OrderAppealedEvent{
		EventID:    uuid.NewString(),
		OrderID:    orderID,
		BuyerID:    buyerID,
		AppealText: message,
		AppealedAt: now,
	}
	if err := s.publisher.Publish(models.RoutingKeyOrderAppealed, event); err != nil {
		s.log.Error("failed to publish appeal event",
			slog.Int("order_id", orderID), sl.Err(err))
	}

	s.log.Info("appeal filed",
		slog.Int("order_id", orderID),
		slog.Int64("buyer_id", buyerID))
	return nil
}
