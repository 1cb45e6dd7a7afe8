package notifier

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/profile-sales-bot/internal/gateway"
	"github.com/magabrotheeeer/profile-sales-bot/internal/models"
)

type senderStub struct {
	sent map[int64][]string
}

func (s *senderStub) SendText(_ context.Context, chatID int64, text string, _ [][]gateway.Button) (gateway.MessageRef, error) {
	if s.sent == nil {
		s.sent = make(map[int64][]string)
	}
	s.sent[chatID] = append(s.sent[chatID], text)
	return gateway.MessageRef{ChatID: chatID}, nil
}

type adminsStub []int64

func (a adminsStub) List() []int64 { return a }

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestHandleAdminNotification_Appeal(t *testing.T) {
	sender := &senderStub{}
	svc := New(sender, adminsStub{1, 5}, newNoopLogger())

	body, err := json.Marshal(models.OrderAppealedEvent{
		EventID:    "ev-1",
		OrderID:    7,
		BuyerID:    42,
		AppealText: "я оплатил полную сумму",
		AppealedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	require.NoError(t, svc.HandleAdminNotification(body))
	require.Len(t, sender.sent, 2, "уведомление уходит каждому администратору")
	assert.Contains(t, sender.sent[1][0], "order #7")
	assert.Contains(t, sender.sent[5][0], "я оплатил полную сумму")
}

func TestHandleAdminNotification_Restock(t *testing.T) {
	sender := &senderStub{}
	svc := New(sender, adminsStub{1}, newNoopLogger())

	body, err := json.Marshal(models.RestockNeededEvent{
		EventID: "ev-2",
		OrderID: 9,
		AdminID: 1,
	})
	require.NoError(t, err)

	require.NoError(t, svc.HandleAdminNotification(body))
	require.Len(t, sender.sent[1], 1)
	assert.Contains(t, sender.sent[1][0], "Restock")
}

func TestHandleAdminNotification_BadPayload(t *testing.T) {
	svc := New(&senderStub{}, adminsStub{1}, newNoopLogger())
	require.Error(t, svc.HandleAdminNotification([]byte("not json")))
}

func TestHandleSaleAudit(t *testing.T) {
	svc := New(&senderStub{}, adminsStub{}, newNoopLogger())

	body, err := json.Marshal(models.SaleCompletedEvent{
		EventID: "ev-3", OrderID: 7, BuyerID: 42, ProfileID: 3, Amount: 50, TrxID: "9G45H6J7K8",
		SoldAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	require.NoError(t, svc.HandleSaleAudit(body))
}
