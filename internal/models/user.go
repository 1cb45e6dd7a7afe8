package models

import "time"

// User представляет человека, взаимодействующего с ботом.
// ReferredBy устанавливается не более одного раза, при первой регистрации,
// и только если реферал прошёл все проверки. FreeAllocations — кэш формулы
// floor(ReferralCount / threshold), поддерживается реферальным сервисом.
type User struct {
	UserID          int64     // Внешний идентификатор (Telegram ID), уникален
	Username        string    // Username в мессенджере
	DisplayName     string    // Отображаемое имя
	Locale          string    // Языковой код клиента, участвует в отпечатке устройства
	ReferralCode    string    // Уникальный код, детерминированно выводится из UserID
	ReferredBy      *int64    // Кто привёл пользователя (nil, если пришёл сам)
	ReferralCount   int       // Сколько засчитанных рефералов привёл пользователь
	FreeAllocations int       // Заработанные бесплатные профили
	Fingerprint     string    // Отпечаток устройства
	FlaggedVPN      bool      // Эвристический признак использования VPN
	HasPaid         bool      // Совершал ли пользователь хотя бы одну покупку
	ChannelVerified bool      // Подтверждена ли подписка на канал
	JoinedAt        time.Time // Время первой регистрации
}

// ReferralRank — строка реферального рейтинга для админской статистики.
type ReferralRank struct {
	UserID        int64
	DisplayName   string
	ReferralCount int
}

// Admin — привилегированный пользователь. Кроме происхождения записи
// никакого состояния у администратора нет; проверка членства выполняется
// AdminDirectory с учётом фиксированного владельца из конфигурации.
type Admin struct {
	UserID  int64
	AddedBy int64
	AddedAt time.Time
}
