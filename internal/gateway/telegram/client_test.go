package telegram

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/profile-sales-bot/internal/gateway"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New("test-token", slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.baseURL = srv.URL
	return c
}

func TestClient_SendText(t *testing.T) {
	var gotPath string
	var gotPayload map[string]any

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":     true,
			"result": map[string]any{"message_id": 77},
		})
	})

	ref, err := c.SendText(context.Background(), 123, "привет", [][]gateway.Button{
		{{Text: "Купить", CallbackData: "buy"}},
	})
	require.NoError(t, err)
	assert.Equal(t, gateway.MessageRef{ChatID: 123, MessageID: 77}, ref)
	assert.Equal(t, "/bottest-token/sendMessage", gotPath)
	assert.Equal(t, "привет", gotPayload["text"])
	assert.Contains(t, gotPayload, "reply_markup")
}

func TestClient_GetUpdates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"result": []map[string]any{
				{
					"update_id": 5,
					"message": map[string]any{
						"message_id": 1,
						"chat":       map[string]any{"id": 42},
						"text":       "/start",
						"from":       map[string]any{"id": 42, "username": "buyer"},
					},
				},
			},
		})
	})

	updates, err := c.GetUpdates(context.Background(), 0, time.Second)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, 5, updates[0].UpdateID)
	require.NotNil(t, updates[0].Message)
	assert.Equal(t, "/start", updates[0].Message.Text)
	assert.Equal(t, int64(42), updates[0].Message.From.ID)
}

func TestClient_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":          false,
			"description": "Bad Request: chat not found",
		})
	})

	_, err := c.SendText(context.Background(), 1, "x", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestClient_GetChatMember(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "@channel", payload["chat_id"])
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":     true,
			"result": map[string]any{"status": "member"},
		})
	})

	status, err := c.GetChatMember(context.Background(), "@channel", 42)
	require.NoError(t, err)
	assert.Equal(t, gateway.MemberStatusMember, status)
}
