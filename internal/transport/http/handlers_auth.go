package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/adepetun22/shopapp/internal/domain"
)

type registerRequest struct {
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6"`
	Phone     string `json:"phone"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// register создаёт пользователя и сразу выдаёт токен.
func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		h.logger.WithError(err).Error("failed to hash password")
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:           uuid.NewString(),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:        strings.TrimSpace(req.Phone),
		PasswordHash: hash,
		Role:         domain.RoleCustomer,
		Cart:         domain.Cart{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.users.Create(user); err != nil {
		respondDomainError(c, err)
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		h.logger.WithError(err).Error("failed to issue token")
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}

	respond(c, http.StatusCreated, gin.H{
		"token": token,
		"user":  user,
	})
}

// login проверяет пару email/пароль и выдаёт токен.
func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	user, err := h.users.GetByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, domain.ErrUserNotFound) {
		respondDomainError(c, ErrInvalidCredentials)
		return
	}
	if err != nil {
		respondDomainError(c, err)
		return
	}
	if !CheckPassword(user.PasswordHash, req.Password) {
		respondDomainError(c, ErrInvalidCredentials)
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		h.logger.WithError(err).Error("failed to issue token")
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}

	respond(c, http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}

// me возвращает профиль текущего пользователя.
func (h *Handler) me(c *gin.Context) {
	user, err := h.users.Get(c.GetString(ctxUserID))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"user": user})
}
