// Package bot маршрутизирует обновления мессенджера в бизнес-логику:
// покупательский диалог, админскую панель и карточки проверки заказов.
package bot

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/magabrotheeeer/profile-sales-bot/internal/gateway"
	"github.com/magabrotheeeer/profile-sales-bot/internal/gateway/telegram"
	"github.com/magabrotheeeer/profile-sales-bot/internal/lib/sl"
	"github.com/magabrotheeeer/profile-sales-bot/internal/metrics"
	"github.com/magabrotheeeer/profile-sales-bot/internal/services/admins"
	"github.com/magabrotheeeer/profile-sales-bot/internal/services/inventory"
	"github.com/magabrotheeeer/profile-sales-bot/internal/services/order"
	"github.com/magabrotheeeer/profile-sales-bot/internal/services/referral"
	"github.com/magabrotheeeer/profile-sales-bot/internal/services/review"
)

// Config — настройки магазина, которые видит покупатель.
type Config struct {
	Price           int
	BkashNumber     string
	NagadNumber     string
	OCREnabled      bool
	OCRAutoApprove  bool
	ChannelUsername string
}

// Router принимает обновления long-poll и раздаёт их обработчикам.
// Обновления одного чата обрабатываются строго последовательно,
// разные чаты — параллельно.
type Router struct {
	gw        gateway.Gateway
	orders    *order.Service
	review    *review.Service
	referral  *referral.Service
	inventory *inventory.Service
	admins    *admins.Directory
	cfg       Config
	sessions  *sessionStore
	log       *slog.Logger

	mu         sync.Mutex
	chatQueues map[int64]chan telegram.Update
	wg         sync.WaitGroup
}

// New создает новый Router.
func New(gw gateway.Gateway, orders *order.Service, reviewSvc *review.Service,
	referralSvc *referral.Service, inventorySvc *inventory.Service,
	dir *admins.Directory, cfg Config, log *slog.Logger) *Router {
	return &Router{
		gw:         gw,
		orders:     orders,
		review:     reviewSvc,
		referral:   referralSvc,
		inventory:  inventorySvc,
		admins:     dir,
		cfg:        cfg,
		sessions:   newSessionStore(),
		log:        log,
		chatQueues: make(map[int64]chan telegram.Update),
	}
}

// Dispatch ставит обновление в очередь его чата. Для каждого чата живёт
// одна горутина-воркер: так обновления одного покупателя обрабатываются
// в порядке поступления, а разные чаты не ждут друг друга.
func (r *Router) Dispatch(ctx context.Context, upd telegram.Update) {
	chatID := updateChatID(upd)

	r.mu.Lock()
	queue, ok := r.chatQueues[chatID]
	if !ok {
		queue = make(chan telegram.Update, 16)
		r.chatQueues[chatID] = queue
		r.wg.Add(1)
		go r.chatWorker(ctx, queue)
	}
	r.mu.Unlock()

	select {
	case queue <- upd:
	default:
		r.log.Warn("chat queue full, dropping update",
			slog.Int64("chat_id", chatID),
			slog.Int("update_id", upd.UpdateID))
	}
}

func (r *Router) chatWorker(ctx context.Context, queue <-chan telegram.Update) {
	defer r.wg.Done()
	for {
		select {
		case upd := <-queue:
			func() {
				defer func() {
					if rec := recover(); rec != nil {
						r.log.Error("handler panic", slog.Any("panic", rec))
					}
				}()
				r.HandleUpdate(ctx, upd)
			}()
		case <-ctx.Done():
			return
		}
	}
}

// Wait дожидается завершения всех запущенных обработчиков.
func (r *Router) Wait() {
	r.wg.Wait()
}

// HandleUpdate разбирает одно обновление синхронно.
func (r *Router) HandleUpdate(ctx context.Context, upd telegram.Update) {
	metrics.UpdatesProcessed.Inc()

	switch {
	case upd.CallbackQuery != nil:
		r.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil:
		r.handleMessage(ctx, upd.Message)
	}
}

func updateChatID(upd telegram.Update) int64 {
	if upd.Message != nil {
		return upd.Message.Chat.ID
	}
	if upd.CallbackQuery != nil && upd.CallbackQuery.From != nil {
		return upd.CallbackQuery.From.ID
	}
	return 0
}

func displayName(u *telegram.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

func (r *Router) send(ctx context.Context, chatID int64, text string, buttons [][]gateway.Button) {
	if _, err := r.gw.SendText(ctx, chatID, text, buttons); err != nil {
		r.log.Error("failed to send message", slog.Int64("chat_id", chatID), sl.Err(err))
	}
}
