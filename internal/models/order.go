package models

import "time"

// Статусы заказа.
const (
	OrderStatusPending  = "pending"
	OrderStatusApproved = "approved"
	OrderStatusRejected = "rejected"
)

// Канонические причины отклонения заказа. Администратор может указать
// и произвольный текст, эти константы — готовые варианты для кнопок.
const (
	RejectReasonInvalidEvidence = "Invalid payment screenshot"
	RejectReasonWrongAmount     = "Wrong amount paid"
	RejectReasonDuplicate       = "Duplicate transaction ID"
	RejectReasonUnclear         = "Details could not be verified"
)

// Order представляет одну попытку покупки. Запись создаётся только после
// того, как покупатель прошёл все шаги сбора данных; до этого состояние
// живёт в черновике (OrderDraft) и в базу не попадает.
// BoundProfileID заполнен тогда и только тогда, когда Status == approved.
type Order struct {
	ID             int        // Уникальный идентификатор заказа
	BuyerID        int64      // Telegram ID покупателя
	BuyerUsername  string     // Username покупателя на момент заказа
	TrxID          string     // Идентификатор транзакции (введён вручную или извлечён OCR)
	Amount         int        // Заявленная сумма платежа
	PayerLast4     string     // Последние цифры номера, с которого платили
	EvidenceRef    string     // Ссылка на скриншот оплаты (file_id, не байты)
	Status         string     // pending, approved или rejected
	RejectReason   *string    // Причина отклонения (nil, пока заказ не отклонён)
	AppealText     *string    // Текст апелляции (не более одной на заказ)
	AppealedAt     *time.Time // Время подачи апелляции
	BoundProfileID *int       // Проданный профиль (nil, пока заказ не одобрен)
	SubmittedAt    time.Time  // Время создания заказа
}

// Sale — неизменяемая запись о состоявшейся продаже, пишется в той же
// транзакции, что и привязка профиля к заказу. Используется для аудита
// и статистики.
type Sale struct {
	ID        int
	UserID    int64
	Username  string
	TrxID     string
	Amount    int
	ProfileID int
	CreatedAt time.Time
}

// Delivery — результат успешной аллокации: заказ и привязанный к нему профиль.
type Delivery struct {
	Order   Order
	Profile Profile
}
