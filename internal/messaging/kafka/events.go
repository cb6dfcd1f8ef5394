package kafka

import "time"

// Топики магазина. Порядок событий гарантируется в пределах партиции,
// поэтому ключом сообщения всегда служит ID агрегата.
const (
	TopicOrderEvents     = "shop.order.events"
	TopicCatalogEvents   = "shop.catalog.events"
	TopicDeadLetterQueue = "shop.dlq"
)

// HeaderRetryCount — заголовок со счётчиком попыток обработки;
// consumer уменьшает на него свой локальный лимит ретраев.
const HeaderRetryCount = "x-retry-count"

// EventType определяет тип события
type EventType string

const (
	// события жизненного цикла заказа
	EventTypeOrderCreated   EventType = "order.created"
	EventTypeOrderPaid      EventType = "order.paid"
	EventTypeOrderShipped   EventType = "order.shipped"
	EventTypeOrderDelivered EventType = "order.delivered"
	EventTypeOrderCancelled EventType = "order.cancelled"

	// события каталога
	EventTypeProductOutOfStock EventType = "product.out_of_stock"
	EventTypeProductReviewed   EventType = "product.reviewed"
)

// OrderEvent — событие заказа, публикуемое через outbox.
type OrderEvent struct {
	EventType EventType              `json:"event_type"`
	OrderID   string                 `json:"order_id"`
	UserID    string                 `json:"user_id"`
	Status    string                 `json:"status"`
	Total     float64                `json:"total"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewOrderEvent создает новое событие заказа с текущим временем.
func NewOrderEvent(eventType EventType, orderID, userID, status string, total float64, metadata map[string]interface{}) *OrderEvent {
	return &OrderEvent{
		EventType: eventType,
		OrderID:   orderID,
		UserID:    userID,
		Status:    status,
		Total:     total,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}
}
