package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/adepetun22/shopapp/internal/domain"
	"github.com/adepetun22/shopapp/internal/service/catalog"
	"github.com/adepetun22/shopapp/internal/service/shop"
	"github.com/adepetun22/shopapp/internal/storage/memory"
	transport "github.com/adepetun22/shopapp/internal/transport/http"
)

// OrderLifecycleTestSuite прогоняет полный путь покупателя через HTTP API:
// регистрация, корзина, checkout, оплата и доставка, включая события outbox.
type OrderLifecycleTestSuite struct {
	suite.Suite
	router   *gin.Engine
	tokens   *transport.TokenManager
	products domain.ProductRepository
	users    domain.UserRepository
	orders   domain.OrderRepository
	outbox   domain.OutboxRepository
}

func (suite *OrderLifecycleTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	baseLogger := log.New()
	baseLogger.SetLevel(log.WarnLevel) // Уменьшаем шум в тестах
	logger := baseLogger.WithField("component", "integration-test")

	suite.products = memory.NewProductRepository()
	suite.users = memory.NewUserRepository()
	suite.orders = memory.NewOrderRepository()
	reviews := memory.NewReviewRepository()
	suite.outbox = memory.NewOutboxRepository()
	idempotency := memory.NewIdempotencyRepository()

	shopSvc := shop.NewServiceWithoutMetrics(suite.products, suite.users, suite.orders, reviews, suite.outbox, logger)
	catalogSvc := catalog.NewService(suite.products, logger)
	suite.tokens = transport.NewTokenManager("integration-secret", time.Hour)

	handler := transport.NewHandler(shopSvc, catalogSvc, suite.users, idempotency, suite.tokens, logger)
	suite.router = handler.Router()
}

func (suite *OrderLifecycleTestSuite) seedProduct(name string, price float64, stock int) string {
	id := uuid.NewString()
	err := suite.products.Create(domain.Product{
		ID:       id,
		Name:     name,
		Price:    price,
		Category: "Clothing",
		Stock:    stock,
		Images:   []domain.ProductImage{{URL: "https://example.com/p.jpg"}},
	})
	require.NoError(suite.T(), err)
	return id
}

func (suite *OrderLifecycleTestSuite) seedAdmin() string {
	hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	require.NoError(suite.T(), err)

	admin := domain.User{
		ID:           uuid.NewString(),
		FirstName:    "Admin",
		LastName:     "User",
		Email:        "admin@shopapp.com",
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
	}
	require.NoError(suite.T(), suite.users.Create(admin))

	token, err := suite.tokens.Issue(admin)
	require.NoError(suite.T(), err)
	return token
}

// do выполняет запрос к роутеру и декодирует JSON-ответ.
func (suite *OrderLifecycleTestSuite) do(method, path, token string, body any, headers map[string]string) (int, map[string]any) {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(suite.T(), err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	suite.router.ServeHTTP(rec, req)

	decoded := map[string]any{}
	if rec.Body.Len() > 0 {
		require.NoError(suite.T(), json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec.Code, decoded
}

func (suite *OrderLifecycleTestSuite) registerCustomer(email string) string {
	status, body := suite.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"firstName": "John",
		"lastName":  "Doe",
		"email":     email,
		"password":  "user1234",
	}, nil)
	require.Equal(suite.T(), http.StatusCreated, status)
	token, ok := body["token"].(string)
	require.True(suite.T(), ok, "register response must carry a token")
	return token
}

// outboxEventTypes возвращает типы всех накопленных событий outbox.
func (suite *OrderLifecycleTestSuite) outboxEventTypes() []string {
	pending, err := suite.outbox.PullPending(100)
	require.NoError(suite.T(), err)
	types := make([]string, 0, len(pending))
	for _, msg := range pending {
		types = append(types, msg.EventType)
	}
	return types
}

func (suite *OrderLifecycleTestSuite) TestSuccessfulOrderLifecycle() {
	productID := suite.seedProduct("Running Sneakers", 129.99, 10)
	customer := suite.registerCustomer("john@example.com")
	admin := suite.seedAdmin()

	// 1. Наполняем корзину
	status, _ := suite.do(http.MethodPost, "/api/cart", customer, map[string]any{
		"productId": productID,
		"quantity":  2,
	}, nil)
	require.Equal(suite.T(), http.StatusCreated, status)

	// 2. Оформляем заказ
	status, body := suite.do(http.MethodPost, "/api/cart/checkout", customer, map[string]any{
		"shippingAddress": map[string]any{
			"fullName":   "John Doe",
			"address":    "1 Main St",
			"city":       "Springfield",
			"postalCode": "12345",
			"country":    "US",
		},
		"paymentMethod": "card",
	}, map[string]string{transport.HeaderIdempotencyKey: uuid.NewString()})
	require.Equal(suite.T(), http.StatusCreated, status)

	order, ok := body["order"].(map[string]any)
	require.True(suite.T(), ok)
	orderID, _ := order["id"].(string)
	require.NotEmpty(suite.T(), orderID)
	require.Equal(suite.T(), string(domain.OrderStatusPending), order["status"])
	// 2 x 129.99 = 259.98, доставка бесплатная, налог 15%
	require.InDelta(suite.T(), 298.977, order["totalPrice"], 0.01)

	// Сток списан атомарно при checkout
	product, err := suite.products.Get(productID)
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), 8, product.Stock)

	// 3. Оплата
	status, body = suite.do(http.MethodPut, "/api/orders/"+orderID+"/pay", customer, map[string]any{
		"id":     "tx-001",
		"status": "COMPLETED",
		"email":  "john@example.com",
	}, nil)
	require.Equal(suite.T(), http.StatusOK, status)

	stored, err := suite.orders.Get(orderID)
	require.NoError(suite.T(), err)
	require.True(suite.T(), stored.IsPaid)
	require.Equal(suite.T(), domain.OrderStatusPaid, stored.Status)

	// 4. Отгрузка и доставка (административные операции)
	status, _ = suite.do(http.MethodPut, "/api/orders/"+orderID+"/status", admin, map[string]any{
		"status": "shipped",
	}, nil)
	require.Equal(suite.T(), http.StatusOK, status)

	status, _ = suite.do(http.MethodPut, "/api/orders/"+orderID+"/deliver", admin, nil, nil)
	require.Equal(suite.T(), http.StatusOK, status)

	stored, err = suite.orders.Get(orderID)
	require.NoError(suite.T(), err)
	require.True(suite.T(), stored.IsDelivered)
	require.Equal(suite.T(), domain.OrderStatusDelivered, stored.Status)

	// 5. Каждый шаг оставил событие в outbox
	types := suite.outboxEventTypes()
	require.Contains(suite.T(), types, "order.created")
	require.Contains(suite.T(), types, "order.paid")
	require.Contains(suite.T(), types, "order.shipped")
	require.Contains(suite.T(), types, "order.delivered")
}

func (suite *OrderLifecycleTestSuite) TestCheckoutIsIdempotent() {
	productID := suite.seedProduct("Silk Scarf", 49.99, 5)
	customer := suite.registerCustomer("repeat@example.com")

	status, _ := suite.do(http.MethodPost, "/api/cart", customer, map[string]any{
		"productId": productID,
		"quantity":  1,
	}, nil)
	require.Equal(suite.T(), http.StatusCreated, status)

	checkoutBody := map[string]any{
		"shippingAddress": map[string]any{
			"fullName":   "John Doe",
			"address":    "1 Main St",
			"city":       "Springfield",
			"postalCode": "12345",
			"country":    "US",
		},
		"paymentMethod": "paypal",
	}
	headers := map[string]string{transport.HeaderIdempotencyKey: "checkout-retry-1"}

	status, first := suite.do(http.MethodPost, "/api/cart/checkout", customer, checkoutBody, headers)
	require.Equal(suite.T(), http.StatusCreated, status)

	// Повтор с тем же ключом возвращает сохранённый ответ и не создаёт заказ
	status, second := suite.do(http.MethodPost, "/api/cart/checkout", customer, checkoutBody, headers)
	require.Equal(suite.T(), http.StatusCreated, status)

	firstOrder := first["order"].(map[string]any)
	secondOrder := second["order"].(map[string]any)
	require.Equal(suite.T(), firstOrder["id"], secondOrder["id"])

	orders, err := suite.orders.ListByUser(firstOrder["user"].(string), 0)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), orders, 1)

	product, err := suite.products.Get(productID)
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), 4, product.Stock, "stock must be decremented exactly once")
}

func (suite *OrderLifecycleTestSuite) TestCheckoutFailsWhenStockRunsOut() {
	productID := suite.seedProduct("Classic Watch", 299.99, 3)
	customer := suite.registerCustomer("late@example.com")

	status, _ := suite.do(http.MethodPost, "/api/cart", customer, map[string]any{
		"productId": productID,
		"quantity":  3,
	}, nil)
	require.Equal(suite.T(), http.StatusCreated, status)

	// Пока покупатель думал, товар разобрали
	require.NoError(suite.T(), suite.products.DecrementStock(productID, 2))

	status, body := suite.do(http.MethodPost, "/api/cart/checkout", customer, map[string]any{
		"shippingAddress": map[string]any{
			"fullName":   "John Doe",
			"address":    "1 Main St",
			"city":       "Springfield",
			"postalCode": "12345",
			"country":    "US",
		},
		"paymentMethod": "card",
	}, nil)
	require.Equal(suite.T(), http.StatusBadRequest, status)
	require.Equal(suite.T(), false, body["success"])

	// Заказ не создан, остаток не тронут
	product, err := suite.products.Get(productID)
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), 1, product.Stock)

	status, body = suite.do(http.MethodGet, "/api/orders", customer, nil, nil)
	require.Equal(suite.T(), http.StatusOK, status)
	require.Equal(suite.T(), float64(0), body["count"])
}

func (suite *OrderLifecycleTestSuite) TestForeignOrderIsHidden() {
	productID := suite.seedProduct("Summer Dress", 59.99, 10)
	alice := suite.registerCustomer("alice@example.com")
	bob := suite.registerCustomer("bob@example.com")

	status, _ := suite.do(http.MethodPost, "/api/cart", alice, map[string]any{
		"productId": productID,
		"quantity":  1,
	}, nil)
	require.Equal(suite.T(), http.StatusCreated, status)

	status, body := suite.do(http.MethodPost, "/api/cart/checkout", alice, map[string]any{
		"shippingAddress": map[string]any{
			"fullName":   "Alice",
			"address":    "2 Oak Ave",
			"city":       "Springfield",
			"postalCode": "12345",
			"country":    "US",
		},
		"paymentMethod": "card",
	}, nil)
	require.Equal(suite.T(), http.StatusCreated, status)
	orderID := body["order"].(map[string]any)["id"].(string)

	status, _ = suite.do(http.MethodGet, "/api/orders/"+orderID, bob, nil, nil)
	require.Equal(suite.T(), http.StatusForbidden, status)
}

func TestOrderLifecycleTestSuite(t *testing.T) {
	suite.Run(t, new(OrderLifecycleTestSuite))
}
