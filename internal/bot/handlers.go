package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/magabrotheeeer/profile-sales-bot/internal/gateway/telegram"
	"github.com/magabrotheeeer/profile-sales-bot/internal/lib/sl"
	"github.com/magabrotheeeer/profile-sales-bot/internal/metrics"
	"github.com/magabrotheeeer/profile-sales-bot/internal/models"
	"github.com/magabrotheeeer/profile-sales-bot/internal/services/referral"
)

func (r *Router) handleMessage(ctx context.Context, msg *telegram.Message) {
	if msg.From == nil {
		return
	}
	userID := msg.From.ID
	text := strings.TrimSpace(msg.Text)

	switch {
	case strings.HasPrefix(text, "/start"):
		r.handleStart(ctx, msg)
		return
	case text == "/cancel":
		r.handleCancel(ctx, userID)
		return
	case text == "/admin":
		r.handleAdminPanel(ctx, userID)
		return
	}

	if sess, ok := r.sessions.pop(userID); ok {
		r.handleSessionReply(ctx, msg, sess)
		return
	}

	draft, err := r.orders.Draft(userID)
	if err == nil {
		r.handleDraftStep(ctx, msg, draft)
		return
	}
	if !errors.Is(err, models.ErrNoDraft) {
		r.log.Error("failed to load draft", slog.Int64("buyer_id", userID), sl.Err(err))
		return
	}

	r.send(ctx, msg.Chat.ID, "Use the button below to buy a profile, or /start for help.", buyKeyboard())
}

func (r *Router) handleStart(ctx context.Context, msg *telegram.Message) {
	userID := msg.From.ID
	code := ""
	if parts := strings.Fields(msg.Text); len(parts) > 1 {
		code = parts[1]
	}

	res, err := r.referral.Register(ctx, referral.RegisterInput{
		UserID:       userID,
		Username:     msg.From.Username,
		DisplayName:  displayName(msg.From),
		Locale:       msg.From.LanguageCode,
		ReferralCode: code,
	})
	if err != nil {
		r.log.Error("registration failed", slog.Int64("user_id", userID), sl.Err(err))
		r.send(ctx, msg.Chat.ID, "Something went wrong, please try again later.", nil)
		return
	}

	if res.Counted {
		metrics.ReferralsCounted.Inc()
		r.send(ctx, res.ReferrerID, "🎉 Your referral joined! +1 to your count.", nil)
		if res.NewAllocations > 0 {
			r.send(ctx, res.ReferrerID,
				fmt.Sprintf("🏆 You earned %d free profile(s)! Contact the admin to claim.", res.NewAllocations), nil)
		}
	}

	welcome := fmt.Sprintf(
		"👋 Welcome to the profile shop!\n\nPrice: %d Tk\nPayment: bKash %s / Nagad %s (Send Money)\n\nYour referral code: <code>%s</code>\nInvite %d friends to earn a free profile.",
		r.cfg.Price, r.cfg.BkashNumber, r.cfg.NagadNumber, res.User.ReferralCode, referralThresholdHint)
	r.send(ctx, msg.Chat.ID, welcome, buyKeyboard())
}

// Порог в приветствии чисто информационный, авторитетное значение живёт
// в реферальном сервисе.
const referralThresholdHint = 20

func (r *Router) handleCancel(ctx context.Context, userID int64) {
	r.sessions.clear(userID)
	if err := r.orders.Cancel(ctx, userID); err != nil {
		r.log.Error("cancel failed", slog.Int64("buyer_id", userID), sl.Err(err))
	}
	r.send(ctx, userID, "Cancelled. Nothing was charged.", buyKeyboard())
}

func (r *Router) handleAdminPanel(ctx context.Context, userID int64) {
	if !r.admins.IsAdmin(userID) {
		return
	}
	r.send(ctx, userID, "Admin panel:", adminPanelKeyboard())
}

func (r *Router) handleSessionReply(ctx context.Context, msg *telegram.Message, sess session) {
	userID := msg.From.ID
	text := strings.TrimSpace(msg.Text)

	switch sess.Kind {
	case awaitRejectReason:
		r.finishReject(ctx, sess.OrderID, userID, text)
	case awaitBulkProfiles:
		added, skipped, err := r.inventory.AddBulk(ctx, msg.Text)
		if err != nil {
			r.log.Error("bulk add failed", sl.Err(err))
			r.send(ctx, userID, "Failed to add profiles, check the logs.", nil)
			return
		}
		r.send(ctx, userID, fmt.Sprintf("Added %d profile(s), skipped %d malformed line(s).", added, skipped), nil)
	case awaitAppealText:
		r.finishAppeal(ctx, sess.OrderID, userID, text)
	case awaitAdminID:
		newID, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			r.send(ctx, userID, "That is not a numeric user id. Try again from the admin panel.", nil)
			return
		}
		if err := r.admins.Add(ctx, newID, userID); err != nil {
			r.log.Error("add admin failed", sl.Err(err))
			r.send(ctx, userID, "Failed to add admin.", nil)
			return
		}
		r.send(ctx, userID, fmt.Sprintf("User %d is now an admin.", newID), nil)
	}
}

func (r *Router) handleDraftStep(ctx context.Context, msg *telegram.Message, draft *models.OrderDraft) {
	userID := msg.From.ID
	text := strings.TrimSpace(msg.Text)

	switch draft.State {
	case models.DraftStateEvidence:
		r.handleEvidence(ctx, msg)
	case models.DraftStateIdentifier:
		// фото и прочие нетекстовые сообщения не продвигают диалог
		if text == "" {
			r.send(ctx, userID, "Please send the Transaction ID as text.", nil)
			return
		}
		if err := r.orders.SubmitIdentifier(ctx, userID, text); err != nil {
			r.log.Error("submit identifier failed", slog.Int64("buyer_id", userID), sl.Err(err))
			return
		}
		r.send(ctx, userID, "Now send the last 4 digits of the number you paid from.", nil)
	case models.DraftStateSecondary:
		if text == "" {
			r.send(ctx, userID, "Please send the last 4 digits as text.", nil)
			return
		}
		order, err := r.orders.SubmitSecondary(ctx, userID, text)
		if err != nil {
			r.log.Error("submit secondary failed", slog.Int64("buyer_id", userID), sl.Err(err))
			return
		}
		metrics.OrdersSubmitted.Inc()
		r.send(ctx, userID, "✅ Submitted! An admin will verify your payment shortly.", nil)
		r.notifyAdmins(ctx, order)
	}
}

func (r *Router) handleEvidence(ctx context.Context, msg *telegram.Message) {
	userID := msg.From.ID

	if len(msg.Photo) == 0 {
		if err := r.orders.SubmitEvidence(ctx, userID, "", false); errors.Is(err, models.ErrInvalidEvidence) {
			r.send(ctx, userID, "Please send the payment screenshot as a photo.", nil)
		}
		return
	}
	// последний элемент — самый крупный размер
	fileRef := msg.Photo[len(msg.Photo)-1].FileID

	if err := r.orders.SubmitEvidence(ctx, userID, fileRef, true); err != nil {
		r.log.Error("submit evidence failed", slog.Int64("buyer_id", userID), sl.Err(err))
		return
	}

	if r.cfg.OCREnabled {
		if r.tryAutoVerify(ctx, userID, fileRef) {
			return
		}
	}
	r.send(ctx, userID, "Got it. Now send the Transaction ID (TrxID) from your payment.", nil)
}

// tryAutoVerify пытается распознать скриншот. Возвращает true, если заказ
// создан автоматически; при любом сбое покупатель продолжает ручным путём.
func (r *Router) tryAutoVerify(ctx context.Context, userID int64, fileRef string) bool {
	img, err := r.gw.FetchAttachment(ctx, fileRef)
	if err != nil {
		r.log.Warn("failed to fetch screenshot", slog.Int64("buyer_id", userID), sl.Err(err))
		return false
	}

	order, err := r.orders.AutoVerify(ctx, userID, img)
	if err != nil {
		// черновик откатился к сбору скриншота, восстанавливаем его
		// и продолжаем ручным путём; если отката не было, черновик уже
		// ждёт TrxID и восстановление не требуется
		subErr := r.orders.SubmitEvidence(ctx, userID, fileRef, true)
		if subErr != nil && !errors.Is(subErr, models.ErrWrongDraftStep) {
			r.log.Error("failed to restore draft", slog.Int64("buyer_id", userID), sl.Err(subErr))
		}
		return false
	}

	metrics.OrdersSubmitted.Inc()

	if r.cfg.OCRAutoApprove && r.tryAutoApprove(ctx, order) {
		return true
	}

	r.send(ctx, userID, "✅ Screenshot recognized and submitted! An admin will confirm shortly.", nil)
	r.notifyAdmins(ctx, order)
	return true
}

// tryAutoApprove доводит распознанный заказ до выдачи без администратора.
// Возвращает false, если заказ должен уйти на ручную проверку (например,
// при пустом складе — он остаётся pending).
func (r *Router) tryAutoApprove(ctx context.Context, order *models.Order) bool {
	delivery, err := r.review.AutoApprove(ctx, order.ID)
	switch {
	case errors.Is(err, models.ErrDuplicateSubmission):
		metrics.OrdersReviewed.WithLabelValues("duplicate").Inc()
		r.notifyRejected(ctx, order.ID)
		return true
	case err != nil:
		r.log.Warn("auto-approve fell back to manual review",
			slog.Int("order_id", order.ID), sl.Err(err))
		return false
	}

	metrics.OrdersReviewed.WithLabelValues("approved").Inc()
	metrics.ProfilesSold.Inc()

	r.send(ctx, delivery.Order.BuyerID, "✅ Payment verified automatically!", nil)
	if _, err := r.gw.SendText(ctx, delivery.Order.BuyerID, credentialsText(&delivery.Profile), nil); err != nil {
		r.log.Error("credential delivery failed",
			slog.Int("order_id", order.ID),
			slog.Int64("buyer_id", delivery.Order.BuyerID), sl.Err(err))
		r.broadcastAdmins(ctx, fmt.Sprintf(
			"⚠️ Order #%d auto-approved but delivery failed. Profile #%d is bound, resend credentials manually.",
			order.ID, delivery.Profile.ID))
		return true
	}

	r.broadcastAdmins(ctx, fmt.Sprintf(
		"🤖 Order #%d auto-approved, profile #%d delivered to %d.",
		order.ID, delivery.Profile.ID, delivery.Order.BuyerID))
	return true
}

func (r *Router) broadcastAdmins(ctx context.Context, text string) {
	for _, adminID := range r.admins.List() {
		r.send(ctx, adminID, text, nil)
	}
}

func (r *Router) notifyAdmins(ctx context.Context, order *models.Order) {
	for _, adminID := range r.admins.List() {
		_, err := r.gw.SendPhoto(ctx, adminID, order.EvidenceRef, orderCaption(order), reviewKeyboard(order.ID))
		if err != nil {
			r.log.Error("failed to send review card",
				slog.Int64("admin_id", adminID),
				slog.Int("order_id", order.ID), sl.Err(err))
		}
	}
}
