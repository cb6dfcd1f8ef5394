package domain

import "time"

// IdempotencyStatus — стадия обработки запроса с Idempotency-Key.
// Ключи защищают checkout: клиент может безопасно повторить запрос,
// не создавая второй заказ.
type IdempotencyStatus string

const (
	// IdempotencyStatusProcessing — первый запрос с ключом ещё в работе.
	IdempotencyStatusProcessing IdempotencyStatus = "processing"
	// IdempotencyStatusDone — ответ сохранён и отдаётся при повторе.
	IdempotencyStatusDone IdempotencyStatus = "done"
	// IdempotencyStatusFailed — первый запрос завершился ошибкой.
	IdempotencyStatusFailed IdempotencyStatus = "failed"
)

// Valid сообщает, входит ли статус в известный набор.
func (s IdempotencyStatus) Valid() bool {
	switch s {
	case IdempotencyStatusProcessing, IdempotencyStatusDone, IdempotencyStatusFailed:
		return true
	}
	return false
}

// IdempotencyRecord — сохранённое состояние одного ключа: хеш исходного
// запроса для проверки конфликтов и готовый JSON-ответ для replay.
type IdempotencyRecord struct {
	Key          string
	RequestHash  string
	ResponseBody []byte
	HTTPStatus   int
	Status       IdempotencyStatus
	TTLAt        time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
