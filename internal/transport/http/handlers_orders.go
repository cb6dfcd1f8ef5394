package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adepetun22/shopapp/internal/domain"
)

// listMyOrders отдаёт заказы текущего пользователя, новые первыми.
func (h *Handler) listMyOrders(c *gin.Context) {
	orders, err := h.shop.ListOrders(c.GetString(ctxUserID), queryInt(c, "limit", 0))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"count":  len(orders),
		"orders": orders,
	})
}

// getOrder отдаёт заказ владельцу или администратору.
func (h *Handler) getOrder(c *gin.Context) {
	order, err := h.shop.GetOrder(c.Param("id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}

	identity := identityFromContext(c)
	if order.UserID != identity.UserID && !identity.IsAdmin() {
		respondError(c, http.StatusForbidden, "not authorized to view this order")
		return
	}
	respond(c, http.StatusOK, gin.H{"order": order})
}

type payOrderRequest struct {
	PaymentResult domain.PaymentResult `json:"paymentResult"`
}

// payOrder подтверждает оплату заказа. Владелец не проверяется:
// подтверждение приходит из платёжного webhook от имени клиента.
func (h *Handler) payOrder(c *gin.Context) {
	var req payOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	order, err := h.shop.MarkPaid(c.Param("id"), req.PaymentResult)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"order": order})
}

// deliverOrder помечает заказ доставленным. Только для администратора.
func (h *Handler) deliverOrder(c *gin.Context) {
	order, err := h.shop.MarkDelivered(c.Param("id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"order": order})
}

type setStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// setOrderStatus переводит заказ в новый статус. Только для администратора.
func (h *Handler) setOrderStatus(c *gin.Context) {
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	order, err := h.shop.SetStatus(c.Param("id"), domain.OrderStatus(req.Status))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"order": order})
}

// deleteOrder удаляет заказ. Только для администратора.
func (h *Handler) deleteOrder(c *gin.Context) {
	if err := h.shop.DeleteOrder(c.Param("id")); err != nil {
		respondDomainError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "order removed"})
}
