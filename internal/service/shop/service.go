package shop

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/adepetun22/shopapp/internal/domain"
	"github.com/adepetun22/shopapp/internal/messaging/kafka"
	"github.com/adepetun22/shopapp/internal/metrics"
)

// Service реализует операции корзины и жизненный цикл заказа.
// Корзина живёт на агрегате пользователя, поэтому каждая операция
// читает пользователя, мутирует копию корзины и сохраняет её целиком.
type Service struct {
	products domain.ProductRepository
	users    domain.UserRepository
	orders   domain.OrderRepository
	reviews  domain.ReviewRepository
	outbox   domain.OutboxRepository
	logger   *log.Entry
	metrics  *metrics.ShopMetrics
	now      func() time.Time
}

// NewService создаёт рабочий экземпляр сервиса.
func NewService(
	products domain.ProductRepository,
	users domain.UserRepository,
	orders domain.OrderRepository,
	reviews domain.ReviewRepository,
	outbox domain.OutboxRepository,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "shop")
	}
	return &Service{
		products: products,
		users:    users,
		orders:   orders,
		reviews:  reviews,
		outbox:   outbox,
		logger:   logger,
		metrics:  metrics.NewShopMetrics(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// NewServiceWithoutMetrics создаёт сервис без метрик (для тестов).
func NewServiceWithoutMetrics(
	products domain.ProductRepository,
	users domain.UserRepository,
	orders domain.OrderRepository,
	reviews domain.ReviewRepository,
	outbox domain.OutboxRepository,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "shop")
	}
	return &Service{
		products: products,
		users:    users,
		orders:   orders,
		reviews:  reviews,
		outbox:   outbox,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// AddItem добавляет товар в корзину или увеличивает количество
// существующей строки с тем же (product, size, color).
func (s *Service) AddItem(userID, productID string, quantity int, size, color string) (domain.Cart, error) {
	if quantity < 1 {
		s.recordCartOperation("add_item", "invalid_quantity")
		return nil, domain.ErrQuantityInvalid
	}

	user, err := s.users.Get(userID)
	if err != nil {
		s.recordCartOperation("add_item", "user_not_found")
		return nil, err
	}

	product, err := s.products.Get(productID)
	if err != nil {
		s.recordCartOperation("add_item", "product_not_found")
		return nil, err
	}

	requested := quantity
	if idx := user.Cart.Find(productID, size, color); idx >= 0 {
		requested += user.Cart[idx].Quantity
	}
	if requested > product.Stock {
		s.recordCartOperation("add_item", "insufficient_stock")
		return nil, domain.NewInsufficientStock(product.Name)
	}

	cart := user.Cart.Merge(domain.CartLine{
		ProductID: product.ID,
		Name:      product.Name,
		Price:     product.Price,
		Image:     product.FirstImage(),
		Quantity:  quantity,
		Size:      size,
		Color:     color,
		Stock:     product.Stock,
	})

	if err := s.users.SaveCart(userID, cart); err != nil {
		s.recordCartOperation("add_item", "save_failed")
		return nil, err
	}

	s.recordCartOperation("add_item", "ok")
	s.logger.WithFields(log.Fields{
		"user_id":    userID,
		"product_id": productID,
		"quantity":   quantity,
	}).Debug("cart line added")

	return cart, nil
}

// UpdateItem выставляет количество существующей строки корзины.
// В отличие от AddItem количество задаётся абсолютно, не инкрементом.
func (s *Service) UpdateItem(userID, productID string, quantity int, size, color string) (domain.Cart, error) {
	if quantity < 1 {
		s.recordCartOperation("update_item", "invalid_quantity")
		return nil, domain.ErrQuantityInvalid
	}

	user, err := s.users.Get(userID)
	if err != nil {
		s.recordCartOperation("update_item", "user_not_found")
		return nil, err
	}

	idx := user.Cart.Find(productID, size, color)
	if idx < 0 {
		s.recordCartOperation("update_item", "line_not_found")
		return nil, domain.ErrCartLineNotFound
	}

	// Проверяем актуальный stock, а не снимок в строке корзины.
	product, err := s.products.Get(productID)
	if err != nil {
		s.recordCartOperation("update_item", "product_not_found")
		return nil, err
	}
	if quantity > product.Stock {
		s.recordCartOperation("update_item", "insufficient_stock")
		return nil, domain.NewInsufficientStock(product.Name)
	}

	cart := user.Cart.Clone()
	cart[idx].Quantity = quantity
	cart[idx].Price = product.Price
	cart[idx].Stock = product.Stock

	if err := s.users.SaveCart(userID, cart); err != nil {
		s.recordCartOperation("update_item", "save_failed")
		return nil, err
	}

	s.recordCartOperation("update_item", "ok")
	return cart, nil
}

// RemoveItem удаляет строку корзины. Отсутствующая строка не ошибка.
func (s *Service) RemoveItem(userID, productID, size, color string) (domain.Cart, error) {
	user, err := s.users.Get(userID)
	if err != nil {
		s.recordCartOperation("remove_item", "user_not_found")
		return nil, err
	}

	cart := user.Cart.Remove(productID, size, color)
	if err := s.users.SaveCart(userID, cart); err != nil {
		s.recordCartOperation("remove_item", "save_failed")
		return nil, err
	}

	s.recordCartOperation("remove_item", "ok")
	return cart, nil
}

// ClearCart безусловно опустошает корзину.
func (s *Service) ClearCart(userID string) (domain.Cart, error) {
	if _, err := s.users.Get(userID); err != nil {
		s.recordCartOperation("clear_cart", "user_not_found")
		return nil, err
	}

	cart := domain.Cart{}
	if err := s.users.SaveCart(userID, cart); err != nil {
		s.recordCartOperation("clear_cart", "save_failed")
		return nil, err
	}

	s.recordCartOperation("clear_cart", "ok")
	return cart, nil
}

// GetCart возвращает текущую корзину пользователя.
func (s *Service) GetCart(userID string) (domain.Cart, error) {
	user, err := s.users.Get(userID)
	if err != nil {
		return nil, err
	}
	return user.Cart.Clone(), nil
}

// Checkout конвертирует корзину в заказ в два этапа:
// сначала валидация всех строк, затем commit через атомарное
// списание stock. Частично созданный заказ наружу не виден.
func (s *Service) Checkout(userID string, address domain.ShippingAddress, paymentMethod string) (domain.Order, error) {
	start := s.now()
	if s.metrics != nil {
		s.metrics.RecordCheckoutStarted()
	}

	order, err := s.checkout(userID, address, paymentMethod)
	if s.metrics != nil {
		s.metrics.RecordCheckoutDuration(time.Since(start))
		if err != nil {
			s.metrics.RecordCheckoutFailed()
		} else {
			s.metrics.RecordCheckoutCompleted()
		}
	}
	return order, err
}

func (s *Service) checkout(userID string, address domain.ShippingAddress, paymentMethod string) (domain.Order, error) {
	user, err := s.users.Get(userID)
	if err != nil {
		return domain.Order{}, err
	}
	if user.Cart.IsEmpty() {
		return domain.Order{}, domain.ErrEmptyCart
	}

	cart := user.Cart.Clone()

	// Этап 1: валидация всех строк до какой-либо записи.
	for _, line := range cart {
		product, err := s.products.Get(line.ProductID)
		if err != nil {
			return domain.Order{}, err
		}
		if line.Quantity > product.Stock {
			return domain.Order{}, domain.NewInsufficientStock(product.Name)
		}
	}

	// Этап 2: commit через атомарное decrement-if-available.
	// При конкурентном checkout строка может не пройти даже после
	// валидации, тогда откатываем уже списанные строки.
	committed := make([]domain.CartLine, 0, len(cart))
	for _, line := range cart {
		if err := s.products.DecrementStock(line.ProductID, line.Quantity); err != nil {
			if s.metrics != nil {
				s.metrics.RecordStockConflict()
			}
			s.compensateStock(committed)
			return domain.Order{}, err
		}
		committed = append(committed, line)
	}

	now := s.now()
	order := domain.Order{
		ID:              uuid.NewString(),
		UserID:          userID,
		Items:           orderItemsFromCart(cart),
		ShippingAddress: address,
		PaymentMethod:   strings.TrimSpace(paymentMethod),
		Status:          domain.OrderStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	order.ComputeTotals()

	if err := s.orders.Create(order); err != nil {
		s.compensateStock(committed)
		return domain.Order{}, err
	}

	if err := s.users.SaveCart(userID, domain.Cart{}); err != nil {
		// Заказ уже создан, stock списан. Корзину не смогли
		// очистить, но это не повод терять заказ.
		s.logger.WithError(err).WithFields(log.Fields{
			"user_id":  userID,
			"order_id": order.ID,
		}).Warn("failed to clear cart after checkout")
	}

	s.enqueueOrderEvent(kafka.EventTypeOrderCreated, order, map[string]interface{}{
		"items": len(order.Items),
	})
	s.reportOutOfStock(cart)

	s.logger.WithFields(log.Fields{
		"user_id":  userID,
		"order_id": order.ID,
		"total":    order.TotalPrice,
	}).Info("order created")

	return order, nil
}

// MarkPaid помечает заказ оплаченным и сохраняет payload платёжного
// провайдера. Владение заказом здесь не проверяется: операция
// вызывается из контекста платёжного webhook, авторизация на
// владельца выполняется HTTP-слоем для читающих операций.
func (s *Service) MarkPaid(orderID string, result domain.PaymentResult) (domain.Order, error) {
	order, err := s.orders.Get(orderID)
	if err != nil {
		return domain.Order{}, err
	}

	if !order.Status.CanTransition(domain.OrderStatusPaid) {
		return domain.Order{}, domain.ErrInvalidStatusTransition
	}

	now := s.now()
	order.Status = domain.OrderStatusPaid
	order.IsPaid = true
	order.PaidAt = now
	order.PaymentResult = result
	order.UpdatedAt = now

	if err := s.orders.Save(order); err != nil {
		return domain.Order{}, err
	}
	order.Version++

	s.recordStatusChange(domain.OrderStatusPaid)
	s.enqueueOrderEvent(kafka.EventTypeOrderPaid, order, map[string]interface{}{
		"payment_id": result.ID,
	})

	return order, nil
}

// MarkDelivered помечает заказ доставленным.
func (s *Service) MarkDelivered(orderID string) (domain.Order, error) {
	return s.SetStatus(orderID, domain.OrderStatusDelivered)
}

// SetStatus переводит заказ в новый статус. Переходы только вперёд
// по pending → paid → shipped → delivered, cancelled достижим из
// любого нетерминального статуса.
func (s *Service) SetStatus(orderID string, status domain.OrderStatus) (domain.Order, error) {
	if !status.Valid() {
		return domain.Order{}, domain.ErrInvalidStatusTransition
	}

	order, err := s.orders.Get(orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !order.Status.CanTransition(status) {
		return domain.Order{}, domain.ErrInvalidStatusTransition
	}

	now := s.now()
	order.Status = status
	order.UpdatedAt = now

	switch status {
	case domain.OrderStatusPaid:
		order.IsPaid = true
		order.PaidAt = now
	case domain.OrderStatusDelivered:
		order.IsDelivered = true
		order.DeliveredAt = now
	}

	if err := s.orders.Save(order); err != nil {
		return domain.Order{}, err
	}
	order.Version++

	s.recordStatusChange(status)
	s.enqueueOrderEvent(eventTypeForStatus(status), order, nil)

	return order, nil
}

// GetOrder возвращает заказ по ID.
func (s *Service) GetOrder(orderID string) (domain.Order, error) {
	return s.orders.Get(orderID)
}

// ListOrders возвращает заказы пользователя, новые первыми.
func (s *Service) ListOrders(userID string, limit int) ([]domain.Order, error) {
	return s.orders.ListByUser(userID, limit)
}

// DeleteOrder удаляет заказ из хранилища.
func (s *Service) DeleteOrder(orderID string) error {
	if _, err := s.orders.Get(orderID); err != nil {
		return err
	}
	return s.orders.Delete(orderID)
}

// AddReview добавляет отзыв и пересчитывает агрегированный рейтинг
// товара как среднее по всем отзывам. Пересчёт линейный по числу
// отзывов, на текущих объёмах этого достаточно.
func (s *Service) AddReview(productID, userID, userName string, rating int, comment string) error {
	product, err := s.products.Get(productID)
	if err != nil {
		return err
	}

	exists, err := s.reviews.HasReview(productID, userID)
	if err != nil {
		return err
	}
	if exists {
		return domain.ErrAlreadyReviewed
	}

	review := domain.Review{
		ID:        uuid.NewString(),
		ProductID: productID,
		UserID:    userID,
		UserName:  userName,
		Rating:    rating,
		Comment:   strings.TrimSpace(comment),
		CreatedAt: s.now(),
	}
	if err := review.Validate(); err != nil {
		return err
	}

	if err := s.reviews.Add(review); err != nil {
		return err
	}

	all, err := s.reviews.ListByProduct(productID)
	if err != nil {
		return err
	}
	if err := s.products.SetRating(productID, domain.Rating{Average: domain.AverageRating(all), Count: len(all)}); err != nil {
		return err
	}

	s.enqueueProductEvent(kafka.EventTypeProductReviewed, product.ID, map[string]interface{}{
		"user_id": userID,
		"rating":  rating,
	})

	return nil
}

// ListReviews возвращает отзывы товара.
func (s *Service) ListReviews(productID string) ([]domain.Review, error) {
	if _, err := s.products.Get(productID); err != nil {
		return nil, err
	}
	return s.reviews.ListByProduct(productID)
}

func (s *Service) compensateStock(committed []domain.CartLine) {
	for _, line := range committed {
		if err := s.products.IncrementStock(line.ProductID, line.Quantity); err != nil {
			s.logger.WithError(err).WithFields(log.Fields{
				"product_id": line.ProductID,
				"quantity":   line.Quantity,
			}).Error("failed to compensate stock after checkout failure")
			continue
		}
		if s.metrics != nil {
			s.metrics.RecordCheckoutCompensation()
		}
	}
}

func (s *Service) reportOutOfStock(cart domain.Cart) {
	for _, line := range cart {
		product, err := s.products.Get(line.ProductID)
		if err != nil || product.Stock > 0 {
			continue
		}
		s.enqueueProductEvent(kafka.EventTypeProductOutOfStock, product.ID, nil)
	}
}

func (s *Service) enqueueOrderEvent(eventType kafka.EventType, order domain.Order, metadata map[string]interface{}) {
	if s.outbox == nil {
		return
	}

	event := kafka.NewOrderEvent(eventType, order.ID, order.UserID, string(order.Status), order.TotalPrice, metadata)
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to marshal order event")
		return
	}

	if _, err := s.outbox.Enqueue(domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   order.ID,
		EventType:     string(eventType),
		Payload:       payload,
	}); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id":   order.ID,
			"event_type": eventType,
		}).Warn("failed to enqueue order event")
		return
	}

	if s.metrics != nil {
		s.metrics.RecordOutboxEvent()
	}
}

func (s *Service) enqueueProductEvent(eventType kafka.EventType, productID string, metadata map[string]interface{}) {
	if s.outbox == nil {
		return
	}

	payload, err := json.Marshal(map[string]interface{}{
		"event_type": eventType,
		"product_id": productID,
		"timestamp":  s.now().Format(time.RFC3339Nano),
		"metadata":   metadata,
	})
	if err != nil {
		s.logger.WithError(err).WithField("product_id", productID).Warn("failed to marshal product event")
		return
	}

	if _, err := s.outbox.Enqueue(domain.OutboxMessage{
		AggregateType: "product",
		AggregateID:   productID,
		EventType:     string(eventType),
		Payload:       payload,
	}); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"product_id": productID,
			"event_type": eventType,
		}).Warn("failed to enqueue product event")
		return
	}

	if s.metrics != nil {
		s.metrics.RecordOutboxEvent()
	}
}

func (s *Service) recordCartOperation(operation, result string) {
	if s.metrics != nil {
		s.metrics.RecordCartOperation(operation, result)
	}
}

func (s *Service) recordStatusChange(status domain.OrderStatus) {
	if s.metrics != nil {
		s.metrics.RecordOrderStatusChange(string(status))
	}
}

func orderItemsFromCart(cart domain.Cart) []domain.OrderItem {
	items := make([]domain.OrderItem, 0, len(cart))
	for _, line := range cart {
		items = append(items, domain.OrderItem{
			ProductID: line.ProductID,
			Name:      line.Name,
			Price:     line.Price,
			Quantity:  line.Quantity,
			Image:     line.Image,
			Size:      line.Size,
			Color:     line.Color,
		})
	}
	return items
}

func eventTypeForStatus(status domain.OrderStatus) kafka.EventType {
	switch status {
	case domain.OrderStatusPaid:
		return kafka.EventTypeOrderPaid
	case domain.OrderStatusShipped:
		return kafka.EventTypeOrderShipped
	case domain.OrderStatusDelivered:
		return kafka.EventTypeOrderDelivered
	case domain.OrderStatusCancelled:
		return kafka.EventTypeOrderCancelled
	default:
		return kafka.EventTypeOrderCreated
	}
}
