package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPExtractor — клиент внешнего OCR-сервиса. Сервис принимает PNG-байты
// в теле POST-запроса и возвращает JSON {"text": "..."}.
type HTTPExtractor struct {
	url        string
	httpClient *http.Client
}

// NewHTTPExtractor создает извлекатель, работающий через HTTP.
func NewHTTPExtractor(url string) *HTTPExtractor {
	return &HTTPExtractor{
		url:        url,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// ExtractText отправляет изображение OCR-сервису и возвращает сырой текст.
func (e *HTTPExtractor) ExtractText(ctx context.Context, image []byte) (string, error) {
	const op = "ocr.HTTPExtractor.ExtractText"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(image))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return result.Text, nil
}
