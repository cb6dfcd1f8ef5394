package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adepetun22/shopapp/internal/domain"
)

// respond пишет JSON-ответ в едином конверте {"success": true, ...}.
// extra раскладывается в корень ответа рядом с success.
func respond(c *gin.Context, status int, extra gin.H) {
	body := gin.H{"success": true}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(status, body)
}

// respondError пишет конверт ошибки {"success": false, "message": ...}.
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"message": message,
	})
}

// respondDomainError транслирует доменную ошибку в HTTP-статус.
// Конфликты состояния (дубликаты, запрещённые переходы) отдают 409,
// нарушения валидации — 400, отсутствие сущности — 404.
func respondDomainError(c *gin.Context, err error) {
	switch {
	case domain.IsNotFound(err):
		respondError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrQuantityInvalid),
		errors.Is(err, domain.ErrRatingOutOfRange),
		errors.Is(err, domain.ErrPriceNegative),
		errors.Is(err, domain.ErrNameRequired),
		errors.Is(err, domain.ErrUserRequired),
		errors.Is(err, domain.ErrItemsRequired):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrEmailTaken),
		errors.Is(err, domain.ErrAlreadyReviewed),
		errors.Is(err, domain.ErrInvalidStatusTransition),
		errors.Is(err, domain.ErrOrderVersionConflict),
		errors.Is(err, domain.ErrIdempotencyHashMismatch):
		respondError(c, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, err.Error())
	default:
		respondError(c, http.StatusInternalServerError, "internal server error")
	}
}
