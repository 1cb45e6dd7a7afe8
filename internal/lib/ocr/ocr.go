// Package ocr реализует автоматическую проверку платёжного скриншота:
// нормализацию изображения, вызов внешнего извлекателя текста и разбор
// сырого текста по упорядоченным спискам шаблонов.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"regexp"
	"strconv"
	"strings"

	// Регистрация декодеров форматов, встречающихся в скриншотах.
	_ "image/jpeg"
	_ "image/png"

	"github.com/magabrotheeeer/profile-sales-bot/internal/models"
)

// TextExtractor извлекает сырой текст из изображения. Сам движок OCR —
// внешний компонент, здесь только его интерфейс.
type TextExtractor interface {
	ExtractText(ctx context.Context, image []byte) (string, error)
}

// Шаблоны идентификатора транзакции, в порядке убывания точности.
// Побеждает первый шаблон, давший токен, содержащий и букву, и цифру.
var trxIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)trx\s*id\s*[:=]?\s*([A-Z0-9]{8,14})`),
	regexp.MustCompile(`(?i)transaction\s*id\s*[:=]?\s*([A-Z0-9]{8,14})`),
	regexp.MustCompile(`\b([A-Z0-9]{10})\b`),
	regexp.MustCompile(`\b([A-Z0-9]{8,14})\b`),
}

// Шаблоны суммы платежа. Побеждает первое совпадение, равное ожидаемой
// цене; прямое вхождение цены в текст — запасной вариант.
var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:amount|total|tk|taka|৳)\s*[:=]?\s*(\d+)(?:\.\d{1,2})?`),
	regexp.MustCompile(`(\d+)(?:\.\d{1,2})?\s*(?:tk|taka|bdt|৳)`),
}

// Verifier проверяет скриншоты на соответствие ожидаемой цене.
type Verifier struct {
	extractor TextExtractor
	price     int
}

// NewVerifier создает Verifier с внешним извлекателем текста.
func NewVerifier(extractor TextExtractor, price int) *Verifier {
	return &Verifier{extractor: extractor, price: price}
}

// Verify нормализует изображение, извлекает текст и разбирает из него
// идентификатор транзакции и сумму. При любом сбое извлечения возвращает
// models.ErrExtractionFailed — вызывающий обязан трактовать это как
// "нужен повтор вручную", а не как успех.
func (v *Verifier) Verify(ctx context.Context, img []byte) (string, int, error) {
	const op = "ocr.Verify"

	raw, err := v.extractor.ExtractText(ctx, Grayscale(img))
	if err != nil {
		return "", 0, fmt.Errorf("%s: %w", op, models.ErrExtractionFailed)
	}

	trxID := ParseTransactionID(raw)
	amount := ParseAmount(raw, v.price)
	if trxID == "" || amount == 0 {
		return "", 0, fmt.Errorf("%s: %w", op, models.ErrExtractionFailed)
	}
	return trxID, amount, nil
}

// Grayscale перекодирует изображение в оттенки серого: извлекатели текста
// стабильнее работают без цветного фона платёжных приложений. Если байты
// не декодируются как изображение, возвращаются исходные данные —
// окончательное решение остаётся за извлекателем.
func Grayscale(data []byte) []byte {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data
	}

	gray := image.NewGray(src.Bounds())
	draw.Draw(gray, gray.Bounds(), src, src.Bounds().Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		return data
	}
	return buf.Bytes()
}

// ParseTransactionID ищет идентификатор транзакции в сыром тексте.
// Возвращает пустую строку, если ни один шаблон не дал токена,
// содержащего одновременно букву и цифру.
func ParseTransactionID(raw string) string {
	upper := strings.ToUpper(raw)
	for _, pattern := range trxIDPatterns {
		for _, match := range pattern.FindAllStringSubmatch(upper, -1) {
			token := match[1]
			if hasLetterAndDigit(token) {
				return token
			}
		}
	}
	return ""
}

// ParseAmount ищет сумму платежа, равную ожидаемой цене. Возвращает 0,
// если подходящей суммы в тексте нет.
func ParseAmount(raw string, expectedPrice int) int {
	for _, pattern := range amountPatterns {
		for _, match := range pattern.FindAllStringSubmatch(raw, -1) {
			value, err := strconv.Atoi(match[1])
			if err != nil {
				continue
			}
			if value == expectedPrice {
				return value
			}
		}
	}
	// Запасной вариант: цена встречается в тексте как отдельное число.
	direct := regexp.MustCompile(`\b` + strconv.Itoa(expectedPrice) + `\b`)
	if direct.MatchString(raw) {
		return expectedPrice
	}
	return 0
}

func hasLetterAndDigit(s string) bool {
	var hasLetter, hasDigit bool
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			hasLetter = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}
