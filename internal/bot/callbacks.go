package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/magabrotheeeer/profile-sales-bot/internal/gateway"
	"github.com/magabrotheeeer/profile-sales-bot/internal/gateway/telegram"
	"github.com/magabrotheeeer/profile-sales-bot/internal/lib/sl"
	"github.com/magabrotheeeer/profile-sales-bot/internal/metrics"
	"github.com/magabrotheeeer/profile-sales-bot/internal/models"
)

func (r *Router) handleCallback(ctx context.Context, cb *telegram.CallbackQuery) {
	userID := cb.From.ID
	data := cb.Data

	ack := func(text string, alert bool) {
		if err := r.gw.AnswerCallback(ctx, cb.ID, text, alert); err != nil {
			r.log.Warn("failed to answer callback", sl.Err(err))
		}
	}

	switch {
	case data == "buy":
		r.handleBuy(ctx, cb, ack)
	case data == "adm_add":
		if !r.admins.IsAdmin(userID) {
			ack("Not allowed.", true)
			return
		}
		r.sessions.set(userID, awaitBulkProfiles, 0)
		ack("", false)
		r.send(ctx, userID, "Send profiles, one per line:\n<code>email:password:pin</code> or <code>email:password:pin:name</code>", nil)
	case data == "adm_stats":
		r.handleStats(ctx, userID, ack)
	case data == "adm_top":
		r.handleLeaderboard(ctx, userID, ack)
	case data == "adm_addadmin":
		if !r.admins.IsAdmin(userID) {
			ack("Not allowed.", true)
			return
		}
		r.sessions.set(userID, awaitAdminID, 0)
		ack("", false)
		r.send(ctx, userID, "Send the numeric user id of the new admin.", nil)
	case strings.HasPrefix(data, "approve_"):
		r.handleApprove(ctx, cb, ack)
	case strings.HasPrefix(data, "pre_reject_"):
		r.handlePreReject(ctx, cb, ack)
	case strings.HasPrefix(data, "reject_reason_"):
		r.handleRejectReason(ctx, cb, ack)
	case strings.HasPrefix(data, "reject_skip_"):
		r.handleRejectSkip(ctx, cb, ack)
	case strings.HasPrefix(data, "back_to_main_"):
		r.handleBackToMain(ctx, cb, ack)
	case strings.HasPrefix(data, "appeal_"):
		r.handleAppealButton(ctx, cb, ack)
	default:
		ack("", false)
	}
}

func (r *Router) handleBuy(ctx context.Context, cb *telegram.CallbackQuery, ack func(string, bool)) {
	userID := cb.From.ID

	if r.cfg.ChannelUsername != "" {
		if !r.ensureChannelMember(ctx, userID) {
			ack("", false)
			r.send(ctx, userID,
				fmt.Sprintf("Please join our channel @%s first, then press Buy again.", r.cfg.ChannelUsername), nil)
			return
		}
	}

	err := r.orders.BeginPurchase(ctx, userID, cb.From.Username)
	if errors.Is(err, models.ErrOutOfStock) {
		ack("Out of stock", true)
		r.send(ctx, userID, "😔 All profiles are sold out. Check back later!", nil)
		return
	}
	if err != nil {
		r.log.Error("begin purchase failed", slog.Int64("buyer_id", userID), sl.Err(err))
		ack("Error, try again.", true)
		return
	}
	ack("", false)
	r.send(ctx, userID, fmt.Sprintf(
		"Send %d Tk to bKash %s or Nagad %s (Send Money), then send the payment screenshot here.\n\n/cancel to abort.",
		r.cfg.Price, r.cfg.BkashNumber, r.cfg.NagadNumber), nil)
}

// ensureChannelMember проверяет подписку на канал, при успехе помечая
// её в профиле пользователя, чтобы не спрашивать повторно.
func (r *Router) ensureChannelMember(ctx context.Context, userID int64) bool {
	user, err := r.referral.User(ctx, userID)
	if err == nil && user.ChannelVerified {
		return true
	}

	status, err := r.gw.GetChatMember(ctx, "@"+r.cfg.ChannelUsername, userID)
	if err != nil {
		r.log.Warn("channel check failed", slog.Int64("user_id", userID), sl.Err(err))
		// канал недоступен — не блокируем покупку
		return true
	}
	switch status {
	case gateway.MemberStatusMember, gateway.MemberStatusAdministrator, gateway.MemberStatusCreator:
		if err := r.referral.MarkChannelVerified(ctx, userID); err != nil {
			r.log.Warn("failed to persist channel verification", sl.Err(err))
		}
		return true
	}
	return false
}

func (r *Router) handleStats(ctx context.Context, userID int64, ack func(string, bool)) {
	if !r.admins.IsAdmin(userID) {
		ack("Not allowed.", true)
		return
	}
	stats, err := r.inventory.Stats(ctx)
	if err != nil {
		r.log.Error("stats failed", sl.Err(err))
		ack("Error.", true)
		return
	}
	ack("", false)
	r.send(ctx, userID, fmt.Sprintf(
		"📊 Inventory\nUnsold: %d\nSold: %d\nTotal sales: %d", stats.Unsold, stats.Sold, stats.TotalSales), nil)
}

func (r *Router) handleLeaderboard(ctx context.Context, userID int64, ack func(string, bool)) {
	if !r.admins.IsAdmin(userID) {
		ack("Not allowed.", true)
		return
	}
	ranks, err := r.inventory.Leaderboard(ctx, 10)
	if err != nil {
		r.log.Error("leaderboard failed", sl.Err(err))
		ack("Error.", true)
		return
	}
	ack("", false)

	var b strings.Builder
	b.WriteString("🏆 Top referrers\n")
	for i, rank := range ranks {
		fmt.Fprintf(&b, "%d. %s — %d\n", i+1, rank.DisplayName, rank.ReferralCount)
	}
	if len(ranks) == 0 {
		b.WriteString("Nobody yet.")
	}
	r.send(ctx, userID, b.String(), nil)
}

func (r *Router) handleApprove(ctx context.Context, cb *telegram.CallbackQuery, ack func(string, bool)) {
	adminID := cb.From.ID
	orderID, ok := parseOrderID(cb.Data, "approve_")
	if !ok {
		ack("", false)
		return
	}

	delivery, err := r.review.Approve(ctx, orderID, adminID)
	switch {
	case errors.Is(err, models.ErrUnauthorized):
		ack("Not allowed.", true)
		return
	case errors.Is(err, models.ErrDuplicateSubmission):
		metrics.OrdersReviewed.WithLabelValues("duplicate").Inc()
		ack("Duplicate TrxID, auto-rejected.", true)
		r.editCard(ctx, cb, fmt.Sprintf("Order #%d\n❌ AUTO-REJECTED: duplicate TrxID", orderID))
		r.notifyRejected(ctx, orderID)
		return
	case errors.Is(err, models.ErrOutOfStock):
		ack("Out of stock!", true)
		r.send(ctx, adminID, fmt.Sprintf(
			"⚠️ Order #%d approved but no profiles left. Restock and approve again.", orderID), nil)
		return
	case errors.Is(err, models.ErrAlreadyProcessed):
		ack("Already processed.", true)
		return
	case err != nil:
		r.log.Error("approve failed", slog.Int("order_id", orderID), sl.Err(err))
		ack("Error.", true)
		return
	}

	metrics.OrdersReviewed.WithLabelValues("approved").Inc()
	metrics.ProfilesSold.Inc()
	ack("Approved.", false)

	// доставка после успешной аллокации: сбой не откатывает продажу,
	// а явно помечается на карточке
	_, err = r.gw.SendText(ctx, delivery.Order.BuyerID, credentialsText(&delivery.Profile), nil)
	if err != nil {
		r.log.Error("credential delivery failed",
			slog.Int("order_id", orderID),
			slog.Int64("buyer_id", delivery.Order.BuyerID), sl.Err(err))
		r.editCard(ctx, cb, fmt.Sprintf(
			"Order #%d\n⚠️ APPROVED BUT DELIVERY FAILED\nProfile #%d is bound, resend credentials manually.",
			orderID, delivery.Profile.ID))
		return
	}
	r.editCard(ctx, cb, fmt.Sprintf("Order #%d\n✅ APPROVED, profile #%d delivered", orderID, delivery.Profile.ID))
}

func (r *Router) handlePreReject(ctx context.Context, cb *telegram.CallbackQuery, ack func(string, bool)) {
	if !r.admins.IsAdmin(cb.From.ID) {
		ack("Not allowed.", true)
		return
	}
	orderID, ok := parseOrderID(cb.Data, "pre_reject_")
	if !ok {
		ack("", false)
		return
	}
	ack("", false)
	if cb.Message != nil {
		ref := gateway.MessageRef{ChatID: cb.Message.Chat.ID, MessageID: cb.Message.MessageID}
		if err := r.gw.EditReplyMarkup(ctx, ref, rejectReasonKeyboard(orderID)); err != nil {
			r.log.Warn("failed to show reject reasons", sl.Err(err))
		}
	}
}

func (r *Router) handleRejectReason(ctx context.Context, cb *telegram.CallbackQuery, ack func(string, bool)) {
	rest := strings.TrimPrefix(cb.Data, "reject_reason_")
	parts := strings.SplitN(rest, "_", 2)
	if len(parts) != 2 {
		ack("", false)
		return
	}
	orderID, err1 := strconv.Atoi(parts[0])
	reasonIdx, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || reasonIdx < 0 || reasonIdx >= len(rejectReasons) {
		ack("", false)
		return
	}

	if err := r.review.Reject(ctx, orderID, cb.From.ID, rejectReasons[reasonIdx]); err != nil {
		r.answerRejectError(ctx, err, ack)
		return
	}
	metrics.OrdersReviewed.WithLabelValues("rejected").Inc()
	ack("Rejected.", false)
	r.editCard(ctx, cb, fmt.Sprintf("Order #%d\n❌ REJECTED: %s", orderID, rejectReasons[reasonIdx]))
	r.notifyRejected(ctx, orderID)
}

func (r *Router) handleRejectSkip(ctx context.Context, cb *telegram.CallbackQuery, ack func(string, bool)) {
	if !r.admins.IsAdmin(cb.From.ID) {
		ack("Not allowed.", true)
		return
	}
	orderID, ok := parseOrderID(cb.Data, "reject_skip_")
	if !ok {
		ack("", false)
		return
	}
	r.sessions.set(cb.From.ID, awaitRejectReason, orderID)
	ack("", false)
	r.send(ctx, cb.From.ID, fmt.Sprintf("Send the rejection reason for order #%d as text.", orderID), nil)
}

func (r *Router) handleBackToMain(ctx context.Context, cb *telegram.CallbackQuery, ack func(string, bool)) {
	orderID, ok := parseOrderID(cb.Data, "back_to_main_")
	if !ok {
		ack("", false)
		return
	}
	ack("", false)
	if cb.Message != nil {
		ref := gateway.MessageRef{ChatID: cb.Message.Chat.ID, MessageID: cb.Message.MessageID}
		if err := r.gw.EditReplyMarkup(ctx, ref, reviewKeyboard(orderID)); err != nil {
			r.log.Warn("failed to restore review keyboard", sl.Err(err))
		}
	}
}

func (r *Router) handleAppealButton(ctx context.Context, cb *telegram.CallbackQuery, ack func(string, bool)) {
	orderID, ok := parseOrderID(cb.Data, "appeal_")
	if !ok {
		ack("", false)
		return
	}
	r.sessions.set(cb.From.ID, awaitAppealText, orderID)
	ack("", false)
	r.send(ctx, cb.From.ID, "Describe why the decision should be reconsidered. One appeal per order.", nil)
}

// finishReject завершает отклонение с произвольной причиной администратора.
func (r *Router) finishReject(ctx context.Context, orderID int, adminID int64, reason string) {
	if err := r.review.Reject(ctx, orderID, adminID, reason); err != nil {
		if errors.Is(err, models.ErrAlreadyProcessed) {
			r.send(ctx, adminID, fmt.Sprintf("Order #%d is already finalized.", orderID), nil)
			return
		}
		r.log.Error("reject failed", slog.Int("order_id", orderID), sl.Err(err))
		r.send(ctx, adminID, "Failed to reject the order.", nil)
		return
	}
	metrics.OrdersReviewed.WithLabelValues("rejected").Inc()
	r.send(ctx, adminID, fmt.Sprintf("Order #%d rejected.", orderID), nil)
	r.notifyRejected(ctx, orderID)
}

// finishAppeal завершает подачу апелляции покупателем.
func (r *Router) finishAppeal(ctx context.Context, orderID int, buyerID int64, text string) {
	err := r.review.Appeal(ctx, orderID, buyerID, text)
	switch {
	case errors.Is(err, models.ErrAlreadyAppealed):
		r.send(ctx, buyerID, "You already appealed this order.", nil)
	case errors.Is(err, models.ErrOrderNotRejected):
		r.send(ctx, buyerID, "This order is not rejected, nothing to appeal.", nil)
	case errors.Is(err, models.ErrUnauthorized):
		r.send(ctx, buyerID, "This is not your order.", nil)
	case err != nil:
		r.log.Error("appeal failed", slog.Int("order_id", orderID), sl.Err(err))
		r.send(ctx, buyerID, "Failed to file the appeal, try again later.", nil)
	default:
		metrics.AppealsFiled.Inc()
		r.send(ctx, buyerID, "📨 Appeal filed. Admins will take another look.", nil)
	}
}

// notifyRejected сообщает покупателю об отклонении с причиной и кнопкой
// апелляции.
func (r *Router) notifyRejected(ctx context.Context, orderID int) {
	order, err := r.review.Order(ctx, orderID)
	if err != nil {
		r.log.Error("failed to load rejected order", slog.Int("order_id", orderID), sl.Err(err))
		return
	}
	reason := models.RejectReasonUnclear
	if order.RejectReason != nil {
		reason = *order.RejectReason
	}
	r.send(ctx, order.BuyerID,
		fmt.Sprintf("❌ Your order #%d was rejected.\nReason: %s", orderID, reason),
		appealKeyboard(orderID))
}

func (r *Router) answerRejectError(ctx context.Context, err error, ack func(string, bool)) {
	switch {
	case errors.Is(err, models.ErrUnauthorized):
		ack("Not allowed.", true)
	case errors.Is(err, models.ErrAlreadyProcessed):
		ack("Already finalized.", true)
	default:
		r.log.Error("reject failed", sl.Err(err))
		ack("Error.", true)
	}
}

// editCard меняет подпись карточки заказа и убирает кнопки.
func (r *Router) editCard(ctx context.Context, cb *telegram.CallbackQuery, caption string) {
	if cb.Message == nil {
		return
	}
	ref := gateway.MessageRef{ChatID: cb.Message.Chat.ID, MessageID: cb.Message.MessageID}
	if err := r.gw.EditCaption(ctx, ref, caption, nil); err != nil {
		r.log.Warn("failed to edit review card", sl.Err(err))
	}
}

func parseOrderID(data, prefix string) (int, bool) {
	id, err := strconv.Atoi(strings.TrimPrefix(data, prefix))
	if err != nil {
		return 0, false
	}
	return id, true
}
