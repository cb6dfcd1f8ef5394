package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/adepetun22/shopapp/internal/domain"
	"github.com/adepetun22/shopapp/internal/service/catalog"
	"github.com/adepetun22/shopapp/internal/service/shop"
)

// Handler объединяет HTTP-обработчики магазина над доменными сервисами.
type Handler struct {
	shop        *shop.Service
	catalog     *catalog.Service
	users       domain.UserRepository
	idempotency domain.IdempotencyRepository
	tokens      *TokenManager
	logger      *log.Entry
}

// NewHandler создаёт обработчик. idempotency может быть nil: тогда
// checkout работает без защиты Idempotency-Key.
func NewHandler(
	shopSvc *shop.Service,
	catalogSvc *catalog.Service,
	users domain.UserRepository,
	idempotency domain.IdempotencyRepository,
	tokens *TokenManager,
	logger *log.Entry,
) *Handler {
	if logger == nil {
		logger = log.New().WithField("component", "http")
	}
	return &Handler{
		shop:        shopSvc,
		catalog:     catalogSvc,
		users:       users,
		idempotency: idempotency,
		tokens:      tokens,
		logger:      logger,
	}
}

// Router собирает gin-движок со всеми маршрутами API.
func (h *Handler) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", HeaderIdempotencyKey},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/api/health", h.healthCheck)

	auth := router.Group("/api/auth")
	{
		auth.POST("/register", h.register)
		auth.POST("/login", h.login)
		auth.GET("/me", AuthRequired(h.tokens), h.me)
	}

	products := router.Group("/api/products")
	{
		products.GET("", h.listProducts)
		products.GET("/featured", h.featuredProducts)
		products.GET("/sale", h.saleProducts)
		products.GET("/categories", h.productCategories)
		products.GET("/brands", h.productBrands)
		products.GET("/:id", h.getProduct)
		products.GET("/:id/reviews", h.listReviews)
		products.POST("/:id/reviews", AuthRequired(h.tokens), h.addReview)

		admin := products.Group("", AuthRequired(h.tokens), RequireAdmin())
		{
			admin.POST("", h.createProduct)
			admin.PUT("/:id", h.updateProduct)
			admin.DELETE("/:id", h.deleteProduct)
		}
	}

	cart := router.Group("/api/cart", AuthRequired(h.tokens))
	{
		cart.GET("", h.getCart)
		cart.POST("", h.addToCart)
		cart.PUT("", h.updateCart)
		cart.DELETE("", h.clearCart)
		cart.DELETE("/:productId", h.removeFromCart)

		if h.idempotency != nil {
			cart.POST("/checkout", Idempotent(h.idempotency, h.logger), h.checkout)
		} else {
			cart.POST("/checkout", h.checkout)
		}
	}

	orders := router.Group("/api/orders", AuthRequired(h.tokens))
	{
		orders.GET("", h.listMyOrders)
		orders.GET("/:id", h.getOrder)
		orders.PUT("/:id/pay", h.payOrder)

		admin := orders.Group("", RequireAdmin())
		{
			admin.PUT("/:id/deliver", h.deliverOrder)
			admin.PUT("/:id/status", h.setOrderStatus)
			admin.DELETE("/:id", h.deleteOrder)
		}
	}

	return router
}

// healthCheck — простой liveness-ответ для балансировщика.
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}
