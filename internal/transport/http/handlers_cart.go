package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adepetun22/shopapp/internal/domain"
)

// getCart отдаёт текущую корзину пользователя.
func (h *Handler) getCart(c *gin.Context) {
	cart, err := h.shop.GetCart(c.GetString(ctxUserID))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"cartItems": cart})
}

type addToCartRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

// addToCart добавляет товар в корзину. Количество по умолчанию 1.
func (h *Handler) addToCart(c *gin.Context) {
	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	cart, err := h.shop.AddItem(c.GetString(ctxUserID), req.ProductID, req.Quantity, req.Size, req.Color)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{"cartItems": cart})
}

type updateCartRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

// updateCart задаёт абсолютное количество позиции корзины.
func (h *Handler) updateCart(c *gin.Context) {
	var req updateCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	cart, err := h.shop.UpdateItem(c.GetString(ctxUserID), req.ProductID, req.Quantity, req.Size, req.Color)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"cartItems": cart})
}

// removeFromCart удаляет позицию (product, size, color); size и color
// передаются query-параметрами. Удаление отсутствующей позиции — no-op.
func (h *Handler) removeFromCart(c *gin.Context) {
	cart, err := h.shop.RemoveItem(
		c.GetString(ctxUserID),
		c.Param("productId"),
		c.Query("size"),
		c.Query("color"),
	)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"cartItems": cart})
}

// clearCart опустошает корзину.
func (h *Handler) clearCart(c *gin.Context) {
	cart, err := h.shop.ClearCart(c.GetString(ctxUserID))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"cartItems": cart})
}

type checkoutRequest struct {
	ShippingAddress domain.ShippingAddress `json:"shippingAddress" binding:"required"`
	PaymentMethod   string                 `json:"paymentMethod" binding:"required"`
}

// checkout превращает корзину в заказ.
func (h *Handler) checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	order, err := h.shop.Checkout(c.GetString(ctxUserID), req.ShippingAddress, req.PaymentMethod)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{"order": order})
}
