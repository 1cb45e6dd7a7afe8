package models

import "time"

// Состояния черновика покупки. Линейный порядок: сначала скриншот,
// затем идентификатор транзакции, затем последние цифры номера.
const (
	DraftStateEvidence   = "collecting_evidence"
	DraftStateIdentifier = "collecting_identifier"
	DraftStateSecondary  = "collecting_secondary"
)

// OrderDraft — сессионное состояние покупателя между началом покупки
// и созданием заказа. Хранится в кэше с TTL и сериализуется в JSON;
// в базу данных черновик не попадает, отмена просто удаляет запись.
type OrderDraft struct {
	BuyerID     int64     `json:"buyer_id"`
	Username    string    `json:"username"`
	State       string    `json:"state"`
	EvidenceRef string    `json:"evidence_ref,omitempty"`
	TrxID       string    `json:"trxid,omitempty"`
	Secondary   string    `json:"secondary,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
