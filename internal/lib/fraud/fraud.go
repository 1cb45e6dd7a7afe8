// Package fraud содержит эвристики против злоупотреблений реферальной
// программой: отпечаток устройства, признак использования VPN и
// детерминированный реферальный код.
package fraud

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// vpnKeywords — список подстрок, по которым определяется вероятное
// использование VPN. Эвристика намеренно грубая: ложные срабатывания
// в обе стороны допустимы.
var vpnKeywords = []string{
	"vpn", "proxy", "anonymous", "hide", "tunnel",
	"secure", "private", "shield", "guard", "protect",
}

// Fingerprint возвращает отпечаток устройства: одностороннний хэш над
// наблюдаемыми у клиента признаками. Идентификатор самого пользователя
// в хэш не входит, иначе отпечатки разных пользователей не могли бы
// совпасть и проверка повторного использования никогда бы не сработала.
func Fingerprint(username, displayName, locale string) string {
	h := sha256.New()
	h.Write([]byte(strings.ToLower(username)))
	h.Write([]byte{0})
	h.Write([]byte(strings.ToLower(displayName)))
	h.Write([]byte{0})
	h.Write([]byte(strings.ToLower(locale)))
	return hex.EncodeToString(h.Sum(nil))
}

// LooksLikeVPN возвращает true, если в username или отображаемом имени
// встречаются два и более различных ключевых слова из списка.
func LooksLikeVPN(username, displayName string) bool {
	haystack := strings.ToLower(username + " " + displayName)
	hits := 0
	for _, kw := range vpnKeywords {
		if strings.Contains(haystack, kw) {
			hits++
			if hits >= 2 {
				return true
			}
		}
	}
	return false
}

// ReferralCode детерминированно выводит реферальный код из идентификатора
// пользователя. Код уникален, потому что уникален сам идентификатор.
func ReferralCode(userID int64) string {
	return "REF" + strings.ToUpper(strconv.FormatInt(userID, 36))
}
