package models

import "time"

// Ключи маршрутизации событий в RabbitMQ.
const (
	RoutingKeySaleCompleted = "sale.completed"
	RoutingKeyOrderAppealed = "order.appealed"
	RoutingKeyRestockNeeded = "restock.needed"
)

// SaleCompletedEvent публикуется после успешной аллокации профиля
// и потребляется нотификатором для аудиторского журнала.
type SaleCompletedEvent struct {
	EventID   string    `json:"event_id"`
	OrderID   int       `json:"order_id"`
	BuyerID   int64     `json:"buyer_id"`
	TrxID     string    `json:"trxid"`
	Amount    int       `json:"amount"`
	ProfileID int       `json:"profile_id"`
	SoldAt    time.Time `json:"sold_at"`
}

// OrderAppealedEvent публикуется при подаче апелляции; нотификатор
// рассылает её всем администраторам.
type OrderAppealedEvent struct {
	EventID    string    `json:"event_id"`
	OrderID    int       `json:"order_id"`
	BuyerID    int64     `json:"buyer_id"`
	AppealText string    `json:"appeal_text"`
	AppealedAt time.Time `json:"appealed_at"`
}

// RestockNeededEvent публикуется, когда одобрение заказа упёрлось
// в пустой склад.
type RestockNeededEvent struct {
	EventID string `json:"event_id"`
	OrderID int    `json:"order_id"`
	AdminID int64  `json:"admin_id"`
}
