package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrProductNotFound возвращается, если продукт не найден в каталоге.
	ErrProductNotFound = errors.New("product not found")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken — попытка регистрации с уже занятым email.
	ErrEmailTaken = errors.New("email is already registered")
	// ErrCartLineNotFound — в корзине нет позиции с таким ключом (product, size, color).
	ErrCartLineNotFound = errors.New("item not found in cart")
	// ErrEmptyCart — checkout по пустой корзине запрещён.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInsufficientStock — запрошенное количество превышает доступный сток.
	// Конкретные случаи оборачиваются в InsufficientStockError с именем товара.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrAlreadyReviewed — пользователь уже оставил отзыв на этот продукт.
	ErrAlreadyReviewed = errors.New("product already reviewed")
	// ErrInvalidStatusTransition — запрошенный переход статуса заказа запрещён.
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении заказа.
	ErrOrderVersionConflict = errors.New("order version conflict")

	// Ошибки валидации входных данных.
	ErrQuantityInvalid  = errors.New("quantity must be greater than zero")
	ErrRatingOutOfRange = errors.New("rating must be between 1 and 5")
	ErrPriceNegative    = errors.New("price must be non-negative")
	ErrNameRequired     = errors.New("name is required")
	ErrUserRequired     = errors.New("user_id is required")
	ErrItemsRequired    = errors.New("order must contain at least one item")
	ErrAmountMismatch   = errors.New("order total does not match items sum")

	// ErrIdempotencyKeyRequired — пустой idempotency-key.
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	// ErrIdempotencyRequestHashRequired — пустой хеш запроса.
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	// ErrIdempotencyKeyNotFound — запись с таким ключом отсутствует.
	ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")
	// ErrIdempotencyKeyAlreadyExists — повторный запрос с тем же idempotency-key.
	ErrIdempotencyKeyAlreadyExists = errors.New("idempotency key already exists")
	// ErrIdempotencyHashMismatch — тот же ключ, но другой payload запроса.
	ErrIdempotencyHashMismatch = errors.New("idempotency key is used with different request")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// InsufficientStockError уточняет ErrInsufficientStock именем позиции,
// из-за которой операция отклонена. Поддерживает errors.Is(err, ErrInsufficientStock).
type InsufficientStockError struct {
	// Item — имя товара, которого не хватило.
	Item string
}

func (e *InsufficientStockError) Error() string {
	if e.Item == "" {
		return ErrInsufficientStock.Error()
	}
	return fmt.Sprintf("insufficient stock for %s", e.Item)
}

// Is позволяет сопоставлять конкретную ошибку с сентинелом ErrInsufficientStock.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// NewInsufficientStock создаёт ошибку нехватки стока для конкретного товара.
func NewInsufficientStock(item string) error {
	return &InsufficientStockError{Item: item}
}

// IsNotFound проверяет, относится ли ошибка к классу "not found".
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrCartLineNotFound)
}
