package domain

import (
	"errors"
	"math"
	"time"
)

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан, оплата ещё не подтверждена.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusPaid — оплата подтверждена.
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusShipped — заказ передан в доставку.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered — заказ доставлен (терминальный статус).
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled — заказ отменён (терминальный статус).
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal сообщает, является ли статус терминальным.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// rank задаёт порядок прямых переходов pending → paid → shipped → delivered.
func (s OrderStatus) rank() int {
	switch s {
	case OrderStatusPending:
		return 0
	case OrderStatusPaid:
		return 1
	case OrderStatusShipped:
		return 2
	case OrderStatusDelivered:
		return 3
	default:
		return -1
	}
}

// CanTransition проверяет допустимость перехода статуса.
// Переходы строго forward-only; cancelled достижим из любого
// нетерминального статуса; обратные переходы запрещены.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	if !s.Valid() || !to.Valid() || s == to {
		return false
	}
	if s.Terminal() {
		return false
	}
	if to == OrderStatusCancelled {
		return true
	}
	return to.rank() > s.rank()
}

// OrderItem — неизменяемый снимок позиции корзины, сделанный в момент checkout.
type OrderItem struct {
	ProductID string  `json:"product"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Image     string  `json:"image"`
	Size      string  `json:"size"`
	Color     string  `json:"color"`
}

// ShippingAddress — адрес доставки, копируется в заказ как есть.
type ShippingAddress struct {
	FullName   string `json:"fullName"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// PaymentResult — непрозрачный payload платёжного провайдера.
type PaymentResult struct {
	ID     string `json:"id,omitempty"`
	Status string `json:"status,omitempty"`
	Email  string `json:"email,omitempty"`
}

// Order агрегирует снимок корзины и метаданные оплаты/доставки.
// Инвариант: после создания Items не меняются никогда; мутируются только
// статус и платёжные/доставочные поля.
type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user"`
	Items           []OrderItem     `json:"orderItems"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod"`
	PaymentResult   PaymentResult   `json:"paymentResult,omitempty"`
	ItemsPrice      float64         `json:"itemsPrice"`
	ShippingPrice   float64         `json:"shippingPrice"`
	TaxPrice        float64         `json:"taxPrice"`
	TotalPrice      float64         `json:"totalPrice"`
	Status          OrderStatus     `json:"status"`
	IsPaid          bool            `json:"isPaid"`
	PaidAt          time.Time       `json:"paidAt,omitempty"`
	IsDelivered     bool            `json:"isDelivered"`
	DeliveredAt     time.Time       `json:"deliveredAt,omitempty"`
	Version         int64           `json:"-"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

const (
	// Порог бесплатной доставки и её базовая стоимость.
	freeShippingThreshold = 100.0
	flatShippingPrice     = 10.0
	// Налоговая ставка, применяется к сумме позиций.
	taxRate = 0.15
)

// ComputeTotals заполняет ценовые поля заказа из позиций:
// items = сумма price*qty, доставка бесплатна от freeShippingThreshold,
// налог taxRate от items, всё с округлением до центов.
func (o *Order) ComputeTotals() {
	var items float64
	for _, item := range o.Items {
		items += item.Price * float64(item.Quantity)
	}
	o.ItemsPrice = roundCents(items)
	if o.ItemsPrice >= freeShippingThreshold {
		o.ShippingPrice = 0
	} else {
		o.ShippingPrice = flatShippingPrice
	}
	o.TaxPrice = roundCents(o.ItemsPrice * taxRate)
	o.TotalPrice = roundCents(o.ItemsPrice + o.ShippingPrice + o.TaxPrice)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// ValidateInvariants проверяет базовые инварианты заказа.
func (o *Order) ValidateInvariants() error {
	var errs []error

	if o.UserID == "" {
		errs = append(errs, ErrUserRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}

	var items float64
	for _, item := range o.Items {
		if item.Quantity <= 0 {
			errs = append(errs, ErrQuantityInvalid)
		}
		if item.Price < 0 {
			errs = append(errs, ErrPriceNegative)
		}
		items += item.Price * float64(item.Quantity)
	}
	if roundCents(items) != o.ItemsPrice {
		errs = append(errs, ErrAmountMismatch)
	}

	return errors.Join(errs...)
}
