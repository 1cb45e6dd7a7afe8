package bot

import (
	"fmt"

	"github.com/magabrotheeeer/profile-sales-bot/internal/gateway"
	"github.com/magabrotheeeer/profile-sales-bot/internal/models"
)

// Канонические причины отклонения в порядке кнопок админской карточки.
var rejectReasons = []string{
	models.RejectReasonInvalidEvidence,
	models.RejectReasonWrongAmount,
	models.RejectReasonDuplicate,
	models.RejectReasonUnclear,
}

func buyKeyboard() [][]gateway.Button {
	return [][]gateway.Button{
		{{Text: "🛒 Buy Profile", CallbackData: "buy"}},
	}
}

func reviewKeyboard(orderID int) [][]gateway.Button {
	return [][]gateway.Button{
		{
			{Text: "✅ Approve", CallbackData: fmt.Sprintf("approve_%d", orderID)},
			{Text: "❌ Reject", CallbackData: fmt.Sprintf("pre_reject_%d", orderID)},
		},
	}
}

func rejectReasonKeyboard(orderID int) [][]gateway.Button {
	rows := make([][]gateway.Button, 0, len(rejectReasons)+2)
	for i, reason := range rejectReasons {
		rows = append(rows, []gateway.Button{
			{Text: reason, CallbackData: fmt.Sprintf("reject_reason_%d_%d", orderID, i)},
		})
	}
	rows = append(rows,
		[]gateway.Button{{Text: "✍️ Custom reason", CallbackData: fmt.Sprintf("reject_skip_%d", orderID)}},
		[]gateway.Button{{Text: "⬅️ Back", CallbackData: fmt.Sprintf("back_to_main_%d", orderID)}},
	)
	return rows
}

func appealKeyboard(orderID int) [][]gateway.Button {
	return [][]gateway.Button{
		{{Text: "📣 Appeal", CallbackData: fmt.Sprintf("appeal_%d", orderID)}},
	}
}

func adminPanelKeyboard() [][]gateway.Button {
	return [][]gateway.Button{
		{{Text: "➕ Add profiles", CallbackData: "adm_add"}},
		{{Text: "📊 Stats", CallbackData: "adm_stats"}},
		{{Text: "🏆 Referral top", CallbackData: "adm_top"}},
		{{Text: "👤 Add admin", CallbackData: "adm_addadmin"}},
	}
}

func orderCaption(order *models.Order) string {
	return fmt.Sprintf(
		"Order #%d\nBuyer: @%s (%d)\nTrxID: %s\nAmount: %d\nLast digits: %s",
		order.ID, order.BuyerUsername, order.BuyerID, order.TrxID, order.Amount, order.PayerLast4)
}

func credentialsText(profile *models.Profile) string {
	return fmt.Sprintf(
		"✅ Payment confirmed! Your profile:\n\nEmail: <code>%s</code>\nPassword: <code>%s</code>\nPIN: <code>%s</code>\nProfile: %s\n\nUse only the profile assigned to you.",
		profile.Email, profile.Password, profile.PIN, profile.Name)
}
