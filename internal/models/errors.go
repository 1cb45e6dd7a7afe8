package models

import "errors"

// Доменные ошибки. Слой доставки сопоставляет каждую из них
// с понятным пользователю сообщением; до пользователя не должна
// доходить ни одна необработанная ошибка.
var (
	// ErrOutOfStock — непроданных профилей нет. Заказ остаётся pending,
	// администратору нужно пополнить склад.
	ErrOutOfStock = errors.New("no unsold profiles left")
	// ErrAlreadyProcessed — повторная аллокация уже одобренного заказа.
	ErrAlreadyProcessed = errors.New("order already processed")
	// ErrDuplicateSubmission — идентификатор транзакции уже привязан
	// к другому одобренному заказу.
	ErrDuplicateSubmission = errors.New("transaction id already used")
	// ErrUnauthorized — действие доступно только администратору.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidEvidence — вложение не является фотографией.
	ErrInvalidEvidence = errors.New("evidence is not a photo")
	// ErrExtractionFailed — OCR не извлёк пригодных данных, нужен повтор вручную.
	ErrExtractionFailed = errors.New("text extraction failed")
	// ErrNoDraft — у покупателя нет активного черновика заказа.
	ErrNoDraft = errors.New("no active purchase draft")
	// ErrWrongDraftStep — черновик находится на другом шаге диалога.
	ErrWrongDraftStep = errors.New("draft is at a different step")
	// ErrEmptyInput — текстовый шаг получил пустое значение после нормализации.
	ErrEmptyInput = errors.New("empty input")
	// ErrNotFound — запрошенная сущность отсутствует в хранилище.
	ErrNotFound = errors.New("not found")
	// ErrOrderNotRejected — апелляция возможна только по отклонённому заказу.
	ErrOrderNotRejected = errors.New("order is not rejected")
	// ErrAlreadyAppealed — по заказу уже подана апелляция.
	ErrAlreadyAppealed = errors.New("order already appealed")
)
