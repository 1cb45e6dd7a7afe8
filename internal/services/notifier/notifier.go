// Package notifier обрабатывает события из брокера: рассылает
// административные уведомления и ведёт аудиторский журнал продаж.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/profile-sales-bot/internal/gateway"
	"github.com/magabrotheeeer/profile-sales-bot/internal/lib/sl"
	"github.com/magabrotheeeer/profile-sales-bot/internal/models"
)

// Sender — исходящий канал уведомлений.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string, buttons [][]gateway.Button) (gateway.MessageRef, error)
}

// AdminLister отдаёт список получателей административных уведомлений.
type AdminLister interface {
	List() []int64
}

// Service — обработчики очередей нотификатора.
type Service struct {
	sender Sender
	admins AdminLister
	log    *slog.Logger
}

// New создает новый экземпляр Service.
func New(sender Sender, admins AdminLister, log *slog.Logger) *Service {
	return &Service{
		sender: sender,
		admins: admins,
		log:    log,
	}
}

// adminEvent покрывает оба вида событий очереди admin.notifications;
// вид определяется по заполненным полям.
type adminEvent struct {
	EventID    string  `json:"event_id"`
	OrderID    int     `json:"order_id"`
	BuyerID    int64   `json:"buyer_id"`
	AppealText *string `json:"appeal_text"`
	AdminID    *int64  `json:"admin_id"`
}

// HandleAdminNotification рассылает событие всем администраторам.
func (s *Service) HandleAdminNotification(msg []byte) error {
	const op = "services.notifier.HandleAdminNotification"

	var event adminEvent
	if err := json.Unmarshal(msg, &event); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var text string
	switch {
	case event.AppealText != nil:
		text = fmt.Sprintf("📣 Appeal on order #%d from buyer %d:\n%s",
			event.OrderID, event.BuyerID, *event.AppealText)
	case event.AdminID != nil:
		text = fmt.Sprintf("⚠️ Order #%d could not be filled: no profiles left. Restock needed.",
			event.OrderID)
	default:
		s.log.Warn("unknown admin notification", slog.String("event_id", event.EventID))
		return nil
	}

	ctx := context.Background()
	for _, adminID := range s.admins.List() {
		if _, err := s.sender.SendText(ctx, adminID, text, nil); err != nil {
			s.log.Error("failed to notify admin",
				slog.Int64("admin_id", adminID), sl.Err(err))
		}
	}
	s.log.Info("admin notification delivered",
		slog.String("event_id", event.EventID),
		slog.Int("order_id", event.OrderID))
	return nil
}

// HandleSaleAudit пишет структурированную запись о продаже в журнал.
func (s *Service) HandleSaleAudit(msg []byte) error {
	const op = "services.notifier.HandleSaleAudit"

	var event models.SaleCompletedEvent
	if err := json.Unmarshal(msg, &event); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("sale completed",
		slog.String("event_id", event.EventID),
		slog.Int("order_id", event.OrderID),
		slog.Int64("buyer_id", event.BuyerID),
		slog.Int("profile_id", event.ProfileID),
		slog.Int("amount", event.Amount),
		slog.String("trxid", event.TrxID),
		slog.Time("sold_at", event.SoldAt))
	return nil
}
