// Package gateway определяет интерфейс транспорта сообщений. Сам транспорт
// (доставка, хранение вложений, кнопки) — внешний компонент; бизнес-логика
// и слой доставки зависят только от этого интерфейса.
package gateway

import "context"

// Button — кнопка инлайн-клавиатуры.
type Button struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

// MessageRef — ссылка на ранее отправленное сообщение, достаточная
// для его редактирования.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Статусы членства в канале, возвращаемые GetChatMember.
const (
	MemberStatusMember        = "member"
	MemberStatusAdministrator = "administrator"
	MemberStatusCreator       = "creator"
	MemberStatusLeft          = "left"
)

// Gateway — абстракция исходящих операций мессенджера.
type Gateway interface {
	// SendText отправляет текстовое сообщение, опционально с клавиатурой.
	SendText(ctx context.Context, chatID int64, text string, buttons [][]Button) (MessageRef, error)
	// SendPhoto отправляет фото по его ссылке с подписью и клавиатурой.
	SendPhoto(ctx context.Context, chatID int64, fileRef, caption string, buttons [][]Button) (MessageRef, error)
	// EditCaption меняет подпись ранее отправленного сообщения с фото.
	EditCaption(ctx context.Context, ref MessageRef, caption string, buttons [][]Button) error
	// EditReplyMarkup меняет клавиатуру ранее отправленного сообщения.
	EditReplyMarkup(ctx context.Context, ref MessageRef, buttons [][]Button) error
	// AnswerCallback подтверждает нажатие кнопки, опционально с алертом.
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
	// FetchAttachment скачивает вложение по его ссылке.
	FetchAttachment(ctx context.Context, fileRef string) ([]byte, error)
	// GetChatMember возвращает статус пользователя в канале.
	GetChatMember(ctx context.Context, chatRef string, userID int64) (string, error)
}
