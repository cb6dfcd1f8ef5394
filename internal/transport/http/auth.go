package http

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/adepetun22/shopapp/internal/domain"
)

// ErrInvalidToken возвращается при любом дефекте токена: подпись,
// формат, истёкший exp или отсутствующие claims.
var ErrInvalidToken = errors.New("invalid token")

// ErrInvalidCredentials — неверная пара email/пароль при логине.
var ErrInvalidCredentials = errors.New("invalid email or password")

// TokenManager выпускает и проверяет JWT с HMAC-подписью.
// Claims минимальные: user_id, email, role и стандартный exp.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager создаёт менеджер токенов с заданным секретом и TTL.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Issue выпускает подписанный токен для пользователя.
func (m *TokenManager) Issue(user domain.User) (string, error) {
	now := m.now()
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    string(user.Role),
		"iat":     now.Unix(),
		"exp":     now.Add(m.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Identity — аутентифицированный субъект запроса, извлечённый из токена.
type Identity struct {
	UserID string
	Email  string
	Role   domain.Role
}

// IsAdmin сообщает, имеет ли субъект административную роль.
func (i Identity) IsAdmin() bool {
	return i.Role == domain.RoleAdmin
}

// Parse проверяет подпись и срок действия токена и возвращает identity.
func (m *TokenManager) Parse(tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return Identity{}, ErrInvalidToken
	}
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)

	return Identity{
		UserID: userID,
		Email:  email,
		Role:   domain.Role(role),
	}, nil
}

// HashPassword возвращает bcrypt-хеш пароля.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword сверяет пароль с bcrypt-хешем.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
