// Package models содержит доменные структуры бота продажи профилей:
// профили, заказы, пользователей, администраторов и записи о продажах.
// Структуры используются в бизнес‑логике и при работе с хранилищем.
package models

import "time"

// Статусы профиля. Профиль переходит из unsold в sold ровно один раз,
// обратного перехода не существует.
const (
	ProfileStatusUnsold = "unsold"
	ProfileStatusSold   = "sold"
)

// Profile представляет продаваемый комплект учётных данных.
// После продажи SoldAt и SoldToUserID заполняются и больше не меняются.
type Profile struct {
	ID           int        // Уникальный идентификатор, назначается при создании
	Email        string     // Почта аккаунта
	Password     string     // Пароль аккаунта
	PIN          string     // PIN-код профиля
	Name         string     // Отображаемое имя профиля
	Status       string     // unsold или sold
	SoldAt       *time.Time // Время продажи (nil, пока не продан)
	SoldToUserID *int64     // Покупатель (nil, пока не продан)
}
