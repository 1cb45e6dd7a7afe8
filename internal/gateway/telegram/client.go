// Package telegram реализует gateway.Gateway поверх Telegram Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/profile-sales-bot/internal/gateway"
)

const apiHost = "https://api.telegram.org"

// Client — HTTP-клиент Telegram Bot API. Исходящие запросы ограничены
// глобальным лимитером, чтобы не упираться в 429 от Telegram.
type Client struct {
	httpClient *http.Client
	token      string
	baseURL    string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Update — входящее обновление long-poll.
type Update struct {
	UpdateID      int            `json:"update_id"`
	Message       *Message       `json:"message,omitempty"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

// Message — входящее сообщение.
type Message struct {
	MessageID int         `json:"message_id"`
	From      *User       `json:"from,omitempty"`
	Chat      Chat        `json:"chat"`
	Text      string      `json:"text,omitempty"`
	Caption   string      `json:"caption,omitempty"`
	Photo     []PhotoSize `json:"photo,omitempty"`
}

// User — отправитель сообщения или нажатия.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username,omitempty"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}

type Chat struct {
	ID int64 `json:"id"`
}

// PhotoSize — один из размеров фото; Telegram присылает их по возрастанию.
type PhotoSize struct {
	FileID   string `json:"file_id"`
	FileSize int    `json:"file_size,omitempty"`
}

// CallbackQuery — нажатие инлайн-кнопки.
type CallbackQuery struct {
	ID      string   `json:"id"`
	From    *User    `json:"from"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data,omitempty"`
}

type apiResponse struct {
	Ok          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	Description string          `json:"description,omitempty"`
}

type inlineKeyboard struct {
	InlineKeyboard [][]gateway.Button `json:"inline_keyboard"`
}

// New создает клиента. Лимит в 25 запросов в секунду держит бота ниже
// глобального порога Telegram.
func New(token string, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		token:      token,
		baseURL:    apiHost,
		limiter:    rate.NewLimiter(25, 5),
		logger:     logger,
	}
}

func (c *Client) call(ctx context.Context, method string, payload any, result any) error {
	const op = "gateway.telegram.call"

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", op, method, err)
	}
	defer resp.Body.Close()

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return fmt.Errorf("%s: %s: %w", op, method, err)
	}
	if !apiResp.Ok {
		return fmt.Errorf("%s: %s: telegram: %s", op, method, apiResp.Description)
	}
	if result != nil {
		if err := json.Unmarshal(apiResp.Result, result); err != nil {
			return fmt.Errorf("%s: %s: %w", op, method, err)
		}
	}
	return nil
}

func markup(buttons [][]gateway.Button) *inlineKeyboard {
	if len(buttons) == 0 {
		return nil
	}
	return &inlineKeyboard{InlineKeyboard: buttons}
}

// GetUpdates забирает очередную пачку обновлений long-poll.
func (c *Client) GetUpdates(ctx context.Context, offset int, timeout time.Duration) ([]Update, error) {
	const op = "gateway.telegram.GetUpdates"

	payload := map[string]any{
		"offset":          offset,
		"timeout":         int(timeout.Seconds()),
		"allowed_updates": []string{"message", "callback_query"},
	}
	var updates []Update
	if err := c.call(ctx, "getUpdates", payload, &updates); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return updates, nil
}

// SendText отправляет текстовое сообщение.
func (c *Client) SendText(ctx context.Context, chatID int64, text string, buttons [][]gateway.Button) (gateway.MessageRef, error) {
	const op = "gateway.telegram.SendText"

	payload := map[string]any{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	if kb := markup(buttons); kb != nil {
		payload["reply_markup"] = kb
	}
	var msg Message
	if err := c.call(ctx, "sendMessage", payload, &msg); err != nil {
		return gateway.MessageRef{}, fmt.Errorf("%s: %w", op, err)
	}
	return gateway.MessageRef{ChatID: chatID, MessageID: msg.MessageID}, nil
}

// SendPhoto отправляет фото по file_id Telegram.
func (c *Client) SendPhoto(ctx context.Context, chatID int64, fileRef, caption string, buttons [][]gateway.Button) (gateway.MessageRef, error) {
	const op = "gateway.telegram.SendPhoto"

	payload := map[string]any{
		"chat_id": chatID,
		"photo":   fileRef,
		"caption": caption,
	}
	if kb := markup(buttons); kb != nil {
		payload["reply_markup"] = kb
	}
	var msg Message
	if err := c.call(ctx, "sendPhoto", payload, &msg); err != nil {
		return gateway.MessageRef{}, fmt.Errorf("%s: %w", op, err)
	}
	return gateway.MessageRef{ChatID: chatID, MessageID: msg.MessageID}, nil
}

// EditCaption меняет подпись сообщения с фото.
func (c *Client) EditCaption(ctx context.Context, ref gateway.MessageRef, caption string, buttons [][]gateway.Button) error {
	const op = "gateway.telegram.EditCaption"

	payload := map[string]any{
		"chat_id":    ref.ChatID,
		"message_id": ref.MessageID,
		"caption":    caption,
	}
	if kb := markup(buttons); kb != nil {
		payload["reply_markup"] = kb
	}
	if err := c.call(ctx, "editMessageCaption", payload, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// EditReplyMarkup меняет клавиатуру сообщения. Пустой buttons убирает кнопки.
func (c *Client) EditReplyMarkup(ctx context.Context, ref gateway.MessageRef, buttons [][]gateway.Button) error {
	const op = "gateway.telegram.EditReplyMarkup"

	payload := map[string]any{
		"chat_id":      ref.ChatID,
		"message_id":   ref.MessageID,
		"reply_markup": inlineKeyboard{InlineKeyboard: buttons},
	}
	if err := c.call(ctx, "editMessageReplyMarkup", payload, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// AnswerCallback подтверждает нажатие кнопки.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	const op = "gateway.telegram.AnswerCallback"

	payload := map[string]any{
		"callback_query_id": callbackID,
		"show_alert":        alert,
	}
	if text != "" {
		payload["text"] = text
	}
	if err := c.call(ctx, "answerCallbackQuery", payload, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// FetchAttachment скачивает файл по его file_id.
func (c *Client) FetchAttachment(ctx context.Context, fileRef string) ([]byte, error) {
	const op = "gateway.telegram.FetchAttachment"

	var file struct {
		FilePath string `json:"file_path"`
	}
	if err := c.call(ctx, "getFile", map[string]any{"file_id": fileRef}, &file); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	url := fmt.Sprintf("%s/file/bot%s/%s", c.baseURL, c.token, file.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return data, nil
}

// GetChatMember возвращает статус пользователя в канале, например
// gateway.MemberStatusMember или gateway.MemberStatusLeft.
func (c *Client) GetChatMember(ctx context.Context, chatRef string, userID int64) (string, error) {
	const op = "gateway.telegram.GetChatMember"

	payload := map[string]any{
		"chat_id": chatRef,
		"user_id": userID,
	}
	var member struct {
		Status string `json:"status"`
	}
	if err := c.call(ctx, "getChatMember", payload, &member); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return member.Status, nil
}
