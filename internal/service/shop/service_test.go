package shop

import (
	"errors"
	"math"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/adepetun22/shopapp/internal/domain"
	"github.com/adepetun22/shopapp/internal/storage/memory"
)

type fixture struct {
	products domain.ProductRepository
	users    domain.UserRepository
	orders   domain.OrderRepository
	reviews  domain.ReviewRepository
	outbox   domain.OutboxRepository
	service  *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		products: memory.NewProductRepository(),
		users:    memory.NewUserRepository(),
		orders:   memory.NewOrderRepository(),
		reviews:  memory.NewReviewRepository(),
		outbox:   memory.NewOutboxRepository(),
	}
	f.service = NewServiceWithoutMetrics(
		f.products, f.users, f.orders, f.reviews, f.outbox,
		log.New().WithField("test", "shop"),
	)
	return f
}

func (f *fixture) seedUser(t *testing.T, id string) {
	t.Helper()

	now := time.Now().UTC()
	err := f.users.Create(domain.User{
		ID:           id,
		FirstName:    "Test",
		LastName:     "Buyer",
		Email:        id + "@example.com",
		PasswordHash: "hash",
		Role:         domain.RoleCustomer,
		Cart:         domain.Cart{},
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
}

func (f *fixture) seedProduct(t *testing.T, id, name string, price float64, stock int) {
	t.Helper()

	now := time.Now().UTC()
	err := f.products.Create(domain.Product{
		ID:        id,
		Name:      name,
		Price:     price,
		Category:  "shoes",
		Brand:     "acme",
		Images:    []domain.ProductImage{{URL: "https://img.example.com/" + id + ".jpg"}},
		Stock:     stock,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("seed product %s: %v", id, err)
	}
}

func (f *fixture) cart(t *testing.T, userID string) domain.Cart {
	t.Helper()

	user, err := f.users.Get(userID)
	if err != nil {
		t.Fatalf("get user %s: %v", userID, err)
	}
	return user.Cart
}

func (f *fixture) stock(t *testing.T, productID string) int {
	t.Helper()

	product, err := f.products.Get(productID)
	if err != nil {
		t.Fatalf("get product %s: %v", productID, err)
	}
	return product.Stock
}

func TestAddItemMergesMatchingLines(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "user-1")
	f.seedProduct(t, "p-1", "Sneakers", 55, 10)

	if _, err := f.service.AddItem("user-1", "p-1", 3, "42", "black"); err != nil {
		t.Fatalf("first add: %v", err)
	}
	cart, err := f.service.AddItem("user-1", "p-1", 2, "42", "black")
	if err != nil {
		t.Fatalf("second add: %v", err)
	}

	if len(cart) != 1 {
		t.Fatalf("expected one merged line, got %d", len(cart))
	}
	if cart[0].Quantity != 5 {
		t.Fatalf("expected quantity 5, got %d", cart[0].Quantity)
	}

	// Другой размер даёт отдельную строку.
	cart, err = f.service.AddItem("user-1", "p-1", 1, "43", "black")
	if err != nil {
		t.Fatalf("add different size: %v", err)
	}
	if len(cart) != 2 {
		t.Fatalf("expected two lines for different sizes, got %d", len(cart))
	}
}

func TestAddItemInsufficientStockLeavesCartUnchanged(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "user-1")
	f.seedProduct(t, "p-1", "Sneakers", 55, 2)

	if _, err := f.service.AddItem("user-1", "p-1", 3, "", ""); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if got := f.cart(t, "user-1"); len(got) != 0 {
		t.Fatalf("cart must stay empty after failed add, got %d lines", len(got))
	}

	// Инкрементальный лимит: 2 есть, ещё 1 уже не влезает.
	if _, err := f.service.AddItem("user-1", "p-1", 2, "", ""); err != nil {
		t.Fatalf("add within stock: %v", err)
	}
	if _, err := f.service.AddItem("user-1", "p-1", 1, "", ""); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock for merged overflow, got %v", err)
	}
	if got := f.cart(t, "user-1"); len(got) != 1 || got[0].Quantity != 2 {
		t.Fatalf("cart must be unchanged after overflow: %+v", got)
	}
}

func TestAddItemValidation(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "user-1")

	if _, err := f.service.AddItem("user-1", "p-missing", 0, "", ""); !errors.Is(err, domain.ErrQuantityInvalid) {
		t.Fatalf("expected ErrQuantityInvalid, got %v", err)
	}
	if _, err := f.service.AddItem("user-1", "p-missing", 1, "", ""); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	if _, err := f.service.AddItem("nobody", "p-missing", 1, "", ""); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUpdateItemSetsQuantityExactly(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "user-1")
	f.seedProduct(t, "p-1", "Sneakers", 55, 10)

	if _, err := f.service.AddItem("user-1", "p-1", 3, "42", ""); err != nil {
		t.Fatalf("seed cart: %v", err)
	}

	cart, err := f.service.UpdateItem("user-1", "p-1", 7, "42", "")
	if err != nil {
		t.Fatalf("update item: %v", err)
	}
	if cart[0].Quantity != 7 {
		t.Fatalf("expected absolute quantity 7, got %d", cart[0].Quantity)
	}

	if _, err := f.service.UpdateItem("user-1", "p-1", 11, "42", ""); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock above stock, got %v", err)
	}
	if _, err := f.service.UpdateItem("user-1", "p-1", 1, "40", ""); !errors.Is(err, domain.ErrCartLineNotFound) {
		t.Fatalf("expected ErrCartLineNotFound for unknown line, got %v", err)
	}
}

func TestRemoveItemIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "user-1")
	f.seedProduct(t, "p-1", "Sneakers", 55, 10)

	if _, err := f.service.AddItem("user-1", "p-1", 2, "", ""); err != nil {
		t.Fatalf("seed cart: %v", err)
	}

	before := f.cart(t, "user-1")
	cart, err := f.service.RemoveItem("user-1", "p-other", "", "")
	if err != nil {
		t.Fatalf("remove missing line must not fail: %v", err)
	}
	if len(cart) != len(before) {
		t.Fatalf("cart changed by no-op remove: %d != %d", len(cart), len(before))
	}

	cart, err = f.service.RemoveItem("user-1", "p-1", "", "")
	if err != nil {
		t.Fatalf("remove existing line: %v", err)
	}
	if len(cart) != 0 {
		t.Fatalf("expected empty cart after remove, got %d lines", len(cart))
	}
}

func TestClearCart(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "user-1")
	f.seedProduct(t, "p-1", "Sneakers", 55, 10)

	if _, err := f.service.AddItem("user-1", "p-1", 2, "", ""); err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	cart, err := f.service.ClearCart("user-1")
	if err != nil {
		t.Fatalf("clear cart: %v", err)
	}
	if len(cart) != 0 {
		t.Fatalf("expected empty cart, got %d lines", len(cart))
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "user-1")

	if _, err := f.service.Checkout("user-1", sampleAddress(), "PayPal"); !errors.Is(err, domain.ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
	if orders, _ := f.orders.ListByUser("user-1", 0); len(orders) != 0 {
		t.Fatalf("no order must be created for empty cart, got %d", len(orders))
	}
}

func TestCheckoutSuccess(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "user-1")
	f.seedProduct(t, "p-1", "Sneakers", 55, 5)
	f.seedProduct(t, "p-2", "Socks", 5, 20)

	if _, err := f.service.AddItem("user-1", "p-1", 3, "42", "black"); err != nil {
		t.Fatalf("add p-1: %v", err)
	}
	if _, err := f.service.AddItem("user-1", "p-2", 2, "", "white"); err != nil {
		t.Fatalf("add p-2: %v", err)
	}

	order, err := f.service.Checkout("user-1", sampleAddress(), "PayPal")
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if order.Status != domain.OrderStatusPending || order.IsPaid || order.IsDelivered {
		t.Fatalf("unexpected order defaults: %+v", order)
	}
	if len(order.Items) != 2 {
		t.Fatalf("expected 2 order items, got %d", len(order.Items))
	}
	if order.Items[0].ProductID != "p-1" || order.Items[0].Quantity != 3 || order.Items[0].Size != "42" {
		t.Fatalf("order items must snapshot the cart: %+v", order.Items[0])
	}

	// itemsPrice = 3*55 + 2*5 = 175, доставка бесплатная, налог 15%.
	if order.ItemsPrice != 175 {
		t.Fatalf("unexpected items price: %v", order.ItemsPrice)
	}
	if order.ShippingPrice != 0 {
		t.Fatalf("expected free shipping above threshold, got %v", order.ShippingPrice)
	}
	if order.TaxPrice != 26.25 {
		t.Fatalf("unexpected tax: %v", order.TaxPrice)
	}
	if order.TotalPrice != 201.25 {
		t.Fatalf("unexpected total: %v", order.TotalPrice)
	}

	if got := f.cart(t, "user-1"); len(got) != 0 {
		t.Fatalf("cart must be empty after checkout, got %d lines", len(got))
	}
	if got := f.stock(t, "p-1"); got != 2 {
		t.Fatalf("stock must be decremented: p-1 stock %d", got)
	}
	if got := f.stock(t, "p-2"); got != 18 {
		t.Fatalf("stock must be decremented: p-2 stock %d", got)
	}

	persisted, err := f.orders.Get(order.ID)
	if err != nil {
		t.Fatalf("order must be persisted: %v", err)
	}
	if persisted.ID != order.ID {
		t.Fatalf("unexpected persisted order: %+v", persisted)
	}

	pending, err := f.outbox.PullPending(10)
	if err != nil {
		t.Fatalf("pull outbox: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected one order.created event, got %d", len(pending))
	}
	if pending[0].EventType != "order.created" || pending[0].AggregateID != order.ID {
		t.Fatalf("unexpected outbox event: %+v", pending[0])
	}
}

func TestCheckoutInsufficientStockLeavesEverythingUnchanged(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "user-1")
	f.seedProduct(t, "p-1", "Sneakers", 55, 5)

	if _, err := f.service.AddItem("user-1", "p-1", 3, "", ""); err != nil {
		t.Fatalf("seed cart: %v", err)
	}

	// Stock падает ниже запрошенного уже после наполнения корзины.
	if err := f.products.DecrementStock("p-1", 3); err != nil {
		t.Fatalf("drain stock: %v", err)
	}

	_, err := f.service.Checkout("user-1", sampleAddress(), "PayPal")
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	var stockErr *domain.InsufficientStockError
	if !errors.As(err, &stockErr) || stockErr.Item != "Sneakers" {
		t.Fatalf("error must name the offending item: %v", err)
	}

	if orders, _ := f.orders.ListByUser("user-1", 0); len(orders) != 0 {
		t.Fatalf("no order must be created, got %d", len(orders))
	}
	cart := f.cart(t, "user-1")
	if len(cart) != 1 || cart[0].Quantity != 3 {
		t.Fatalf("cart must be untouched after failed checkout: %+v", cart)
	}
	if got := f.stock(t, "p-1"); got != 2 {
		t.Fatalf("stock must be untouched by failed checkout: %d", got)
	}
}

type conflictingProductRepo struct {
	domain.ProductRepository
	failID string
}

func (r *conflictingProductRepo) DecrementStock(productID string, quantity int) error {
	if productID == r.failID {
		return domain.NewInsufficientStock(productID)
	}
	return r.ProductRepository.DecrementStock(productID, quantity)
}

func TestCheckoutCompensatesCommittedLinesOnConflict(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "user-1")
	f.seedProduct(t, "p-1", "Sneakers", 55, 5)
	f.seedProduct(t, "p-2", "Socks", 5, 20)

	if _, err := f.service.AddItem("user-1", "p-1", 2, "", ""); err != nil {
		t.Fatalf("add p-1: %v", err)
	}
	if _, err := f.service.AddItem("user-1", "p-2", 4, "", ""); err != nil {
		t.Fatalf("add p-2: %v", err)
	}

	// Вторая строка проходит валидацию, но падает на commit:
	// имитация конкурентного списания между этапами.
	conflicting := &conflictingProductRepo{ProductRepository: f.products, failID: "p-2"}
	service := NewServiceWithoutMetrics(
		conflicting, f.users, f.orders, f.reviews, f.outbox,
		log.New().WithField("test", "shop"),
	)

	_, err := service.Checkout("user-1", sampleAddress(), "PayPal")
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	if got := f.stock(t, "p-1"); got != 5 {
		t.Fatalf("committed line must be compensated, p-1 stock %d", got)
	}
	if orders, _ := f.orders.ListByUser("user-1", 0); len(orders) != 0 {
		t.Fatalf("no partial order allowed, got %d", len(orders))
	}
	if cart := f.cart(t, "user-1"); len(cart) != 2 {
		t.Fatalf("cart must survive failed checkout: %+v", cart)
	}
}

func TestCheckoutBelowFreeShippingThreshold(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "user-1")
	f.seedProduct(t, "p-1", "Socks", 5, 20)

	if _, err := f.service.AddItem("user-1", "p-1", 2, "", ""); err != nil {
		t.Fatalf("seed cart: %v", err)
	}

	order, err := f.service.Checkout("user-1", sampleAddress(), "Card")
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	// 10 + доставка 10 + налог 1.5
	if order.ShippingPrice != 10 {
		t.Fatalf("expected flat shipping below threshold, got %v", order.ShippingPrice)
	}
	if order.TotalPrice != 21.5 {
		t.Fatalf("unexpected total: %v", order.TotalPrice)
	}
}

func TestMarkPaid(t *testing.T) {
	f := newFixture(t)
	order := seedCheckout(t, f)

	paid, err := f.service.MarkPaid(order.ID, domain.PaymentResult{
		ID:     "pay-1",
		Status: "completed",
		Email:  "buyer@example.com",
	})
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	if !paid.IsPaid || paid.PaidAt.IsZero() || paid.Status != domain.OrderStatusPaid {
		t.Fatalf("unexpected paid state: %+v", paid)
	}
	if paid.PaymentResult.ID != "pay-1" {
		t.Fatalf("payment result must be stored: %+v", paid.PaymentResult)
	}

	if _, err := f.service.MarkPaid(order.ID, domain.PaymentResult{}); !errors.Is(err, domain.ErrInvalidStatusTransition) {
		t.Fatalf("expected ErrInvalidStatusTransition on double pay, got %v", err)
	}
	if _, err := f.service.MarkPaid("missing", domain.PaymentResult{}); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestStatusTransitionsForwardOnly(t *testing.T) {
	f := newFixture(t)
	order := seedCheckout(t, f)

	if _, err := f.service.SetStatus(order.ID, domain.OrderStatusDelivered); !errors.Is(err, domain.ErrInvalidStatusTransition) {
		t.Fatalf("pending->delivered must be rejected, got %v", err)
	}

	if _, err := f.service.SetStatus(order.ID, domain.OrderStatusPaid); err != nil {
		t.Fatalf("pending->paid: %v", err)
	}
	if _, err := f.service.SetStatus(order.ID, domain.OrderStatusShipped); err != nil {
		t.Fatalf("paid->shipped: %v", err)
	}

	delivered, err := f.service.MarkDelivered(order.ID)
	if err != nil {
		t.Fatalf("shipped->delivered: %v", err)
	}
	if !delivered.IsDelivered || delivered.DeliveredAt.IsZero() {
		t.Fatalf("delivered flags must be set: %+v", delivered)
	}

	// Откат назад и отмена терминального заказа запрещены.
	if _, err := f.service.SetStatus(order.ID, domain.OrderStatusPending); !errors.Is(err, domain.ErrInvalidStatusTransition) {
		t.Fatalf("backward transition must be rejected, got %v", err)
	}
	if _, err := f.service.SetStatus(order.ID, domain.OrderStatusCancelled); !errors.Is(err, domain.ErrInvalidStatusTransition) {
		t.Fatalf("cancel of delivered order must be rejected, got %v", err)
	}
	if _, err := f.service.SetStatus(order.ID, domain.OrderStatus("weird")); !errors.Is(err, domain.ErrInvalidStatusTransition) {
		t.Fatalf("unknown status must be rejected, got %v", err)
	}
}

func TestCancelFromNonTerminalStatus(t *testing.T) {
	f := newFixture(t)
	order := seedCheckout(t, f)

	if _, err := f.service.SetStatus(order.ID, domain.OrderStatusPaid); err != nil {
		t.Fatalf("pending->paid: %v", err)
	}
	cancelled, err := f.service.SetStatus(order.ID, domain.OrderStatusCancelled)
	if err != nil {
		t.Fatalf("paid->cancelled: %v", err)
	}
	if cancelled.Status != domain.OrderStatusCancelled {
		t.Fatalf("unexpected status: %s", cancelled.Status)
	}
	if _, err := f.service.SetStatus(order.ID, domain.OrderStatusPaid); !errors.Is(err, domain.ErrInvalidStatusTransition) {
		t.Fatalf("cancelled is terminal, got %v", err)
	}
}

func TestAddReviewRecomputesRating(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "p-1", "Sneakers", 55, 5)

	ratings := []int{5, 3, 4}
	for i, rating := range ratings {
		userID := string(rune('a' + i))
		if err := f.service.AddReview("p-1", "user-"+userID, "User "+userID, rating, "ok"); err != nil {
			t.Fatalf("add review %d: %v", i, err)
		}
	}

	product, err := f.products.Get("p-1")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if product.Rating.Count != len(ratings) {
		t.Fatalf("expected rating count %d, got %d", len(ratings), product.Rating.Count)
	}
	want := (5.0 + 3.0 + 4.0) / 3.0
	if math.Abs(product.Rating.Average-want) > 1e-9 {
		t.Fatalf("expected average %v, got %v", want, product.Rating.Average)
	}
}

func TestAddReviewDuplicateRejected(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "p-1", "Sneakers", 55, 5)

	if err := f.service.AddReview("p-1", "user-1", "User", 5, "great"); err != nil {
		t.Fatalf("first review: %v", err)
	}
	if err := f.service.AddReview("p-1", "user-1", "User", 1, "changed my mind"); !errors.Is(err, domain.ErrAlreadyReviewed) {
		t.Fatalf("expected ErrAlreadyReviewed, got %v", err)
	}

	product, err := f.products.Get("p-1")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if product.Rating.Count != 1 {
		t.Fatalf("rating count must be unchanged by duplicate, got %d", product.Rating.Count)
	}
}

func TestAddReviewValidation(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "p-1", "Sneakers", 55, 5)

	if err := f.service.AddReview("p-missing", "user-1", "User", 5, ""); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	if err := f.service.AddReview("p-1", "user-1", "User", 6, ""); !errors.Is(err, domain.ErrRatingOutOfRange) {
		t.Fatalf("expected ErrRatingOutOfRange, got %v", err)
	}
	if err := f.service.AddReview("p-1", "", "User", 4, ""); !errors.Is(err, domain.ErrUserRequired) {
		t.Fatalf("expected ErrUserRequired, got %v", err)
	}
}

func TestStatusChangeEnqueuesOutboxEvents(t *testing.T) {
	f := newFixture(t)
	order := seedCheckout(t, f)

	if _, err := f.service.MarkPaid(order.ID, domain.PaymentResult{ID: "pay-1"}); err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	pending, err := f.outbox.PullPending(10)
	if err != nil {
		t.Fatalf("pull outbox: %v", err)
	}

	var types []string
	for _, msg := range pending {
		types = append(types, msg.EventType)
	}
	if len(types) != 2 || types[0] != "order.created" || types[1] != "order.paid" {
		t.Fatalf("unexpected outbox event types: %v", types)
	}
}

func seedCheckout(t *testing.T, f *fixture) domain.Order {
	t.Helper()

	f.seedUser(t, "user-1")
	f.seedProduct(t, "p-1", "Sneakers", 55, 5)
	if _, err := f.service.AddItem("user-1", "p-1", 1, "", ""); err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	order, err := f.service.Checkout("user-1", sampleAddress(), "PayPal")
	if err != nil {
		t.Fatalf("seed checkout: %v", err)
	}
	return order
}

func sampleAddress() domain.ShippingAddress {
	return domain.ShippingAddress{
		FullName:   "Test Buyer",
		Address:    "1 Main st",
		City:       "Springfield",
		PostalCode: "12345",
		Country:    "US",
	}
}
